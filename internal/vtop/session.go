package vtop

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
)

// Session is the single source of truth for whether an authenticated call can
// be made right now. The cookie jar is shared with the HTTP transport, which
// is the only thing that mutates it in response to Set-Cookie headers.
type Session struct {
	jar            *cookiejar.Jar
	csrfToken      string
	authenticated  bool
	externalCookie bool
	authorizedID   string
}

func NewSession() (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Session{jar: jar}, nil
}

func (s *Session) Jar() http.CookieJar {
	return s.jar
}

func (s *Session) CSRFToken() (string, bool) {
	return s.csrfToken, s.csrfToken != ""
}

func (s *Session) IsAuthenticated() bool {
	return s.authenticated
}

func (s *Session) IsCookieExternal() bool {
	return s.externalCookie
}

// AuthorizedID is the registration identifier the portal expects on every
// report request, it is empty until a login succeeds.
func (s *Session) AuthorizedID() string {
	return s.authorizedID
}

func (s *Session) setCSRFToken(token string) {
	s.csrfToken = token
}

func (s *Session) setAuthenticated(authenticated bool) {
	s.authenticated = authenticated
}

func (s *Session) setCookieExternal(external bool) {
	s.externalCookie = external
}

func (s *Session) setAuthorizedID(id string) {
	s.authorizedID = id
}

// cookieHeader renders the cookies that would be sent to scope in the format
// of a Cookie request header.
func (s *Session) cookieHeader(scope *url.URL) string {
	cookies := s.jar.Cookies(scope)
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// setCookieHeader stores the cookies of a Cookie request header for scope,
// pairs that cannot be parsed are dropped. The cookies take the path of scope
// so that a Set-Cookie from the portal for the same name replaces them.
func (s *Session) setCookieHeader(scope *url.URL, header string) int {
	req := http.Request{Header: http.Header{"Cookie": {header}}}
	cookies := req.Cookies()
	for _, c := range cookies {
		c.Path = scope.Path
	}
	s.jar.SetCookies(scope, cookies)
	return len(cookies)
}
