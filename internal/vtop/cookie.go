package vtop

import (
	"fmt"
)

// ExportCookie serializes the cookies of an authenticated session as a Cookie
// header value, the only form in which a session leaves the process.
func (c *Client) ExportCookie() ([]byte, error) {
	if !c.session.IsAuthenticated() {
		return nil, ErrSessionExpired
	}
	return []byte(c.session.cookieHeader(c.cookieScope())), nil
}

// ImportCookie replaces the session with one exported elsewhere. The session
// is not trusted until the next Login or Resume has checked it.
func (c *Client) ImportCookie(cookie []byte) error {
	n := c.session.setCookieHeader(c.cookieScope(), string(cookie))
	if n == 0 {
		return fmt.Errorf("no cookies in %d bytes", len(cookie))
	}
	c.session.setCookieExternal(true)
	c.session.setAuthenticated(false)
	c.session.setCSRFToken("")
	return nil
}
