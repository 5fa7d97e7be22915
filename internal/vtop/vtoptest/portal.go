// Package vtoptest provides an in-process imitation of the portal's login and
// report routes for tests.
package vtoptest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
)

const (
	Username = "23bce7001"
	Password = "hunter2-Pa$$word"
	Regno    = "23BCE7001"
	Answer   = "X7kQ2"
	Captcha  = "data:image/jpeg;base64,/9j/4AAQSkZJRg=="

	SessionCookie = "JSESSIONID"
)

const (
	PathOpenPage       = "/vtop/open/page"
	PathPrelogin       = "/vtop/prelogin/setup"
	PathLogin          = "/vtop/login"
	PathSemesters      = "/vtop/academics/common/StudentTimeTable"
	PathTimetable      = "/vtop/processViewTimeTable"
	PathAttendance     = "/vtop/processViewStudentAttendance"
	PathFullAttendance = "/vtop/processViewAttendanceDetail"
	PathMarks          = "/vtop/examinations/doStudentMarkView"
	PathExamSchedule   = "/vtop/examinations/doSearchExamScheduleForStudent"
)

var reportPaths = []string{
	PathSemesters,
	PathTimetable,
	PathAttendance,
	PathFullAttendance,
	PathMarks,
	PathExamSchedule,
}

// Outcomes a login submission can be scripted with.
const (
	OutcomeOk          = "ok"
	OutcomeCaptcha     = "captcha"
	OutcomeCredentials = "credentials"
	OutcomeUnknown     = "unknown"
	OutcomeNoRegno     = "no-regno"
)

type session struct {
	token         string
	authenticated bool
	reloads       int
}

// Portal serves a new csrf token with every page and rejects any post that
// does not carry the token of the page served right before it. Unknown session
// cookies are redirected to the login page the way the real portal does.
//
// The exported knobs must be set before the client under test makes requests.
type Portal struct {
	t      testing.TB
	server *httptest.Server

	// InitialStatus replaces the landing page with an empty response.
	InitialStatus int
	// ReportStatus replaces every report with an empty response.
	ReportStatus int
	// CaptchaAfter is the number of prelogin posts answered without a
	// captcha before one is shown.
	CaptchaAfter int
	NeverCaptcha bool
	// Outcomes are consumed one per login submission, OutcomeOk once empty.
	Outcomes []string

	lock     sync.Mutex
	sessions map[string]*session
	seq      int
	pages    map[string]string

	staleTokens   int
	openPageLoads int
	prelogins     int
	logins      int
	answers     []string
	reports     map[string]url.Values
}

func NewPortal(t testing.TB) *Portal {
	p := &Portal{
		t:        t,
		sessions: map[string]*session{},
		pages:    map[string]string{},
		reports:  map[string]url.Values{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+PathOpenPage, p.handleOpenPage)
	mux.HandleFunc("GET "+PathLogin, p.handleLoginPage)
	mux.HandleFunc("POST "+PathPrelogin, p.handlePrelogin)
	mux.HandleFunc("POST "+PathLogin, p.handleLogin)
	for _, path := range reportPaths {
		mux.HandleFunc("POST "+path, p.handleReport)
	}

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *Portal) URL() string {
	return p.server.URL
}

// Close stops the server, later requests fail at the transport.
func (p *Portal) Close() {
	p.server.Close()
}

// SetPage sets the html served for a report path, the current csrf token is
// appended to it.
func (p *Portal) SetPage(path, html string) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.pages[path] = html
}

// Expire drops every session the way the portal does after its idle timeout.
func (p *Portal) Expire() {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.sessions = map[string]*session{}
}

// CurrentToken is the token of the last page served to an authenticated
// session.
func (p *Portal) CurrentToken(t testing.TB) string {
	p.lock.Lock()
	defer p.lock.Unlock()
	for _, s := range p.sessions {
		if s.authenticated {
			return s.token
		}
	}
	t.Fatal("no authenticated session")
	return ""
}

func (p *Portal) Stats() (prelogins, logins, staleTokens int) {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.prelogins, p.logins, p.staleTokens
}

// OpenPageLoads is the number of requests made for the landing page, both
// session checks and initial page loads.
func (p *Portal) OpenPageLoads() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.openPageLoads
}

// Answers are the captcha answers submitted so far.
func (p *Portal) Answers() []string {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]string(nil), p.answers...)
}

// ReportForm is the form of the last accepted request to a report path.
func (p *Portal) ReportForm(path string) url.Values {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.reports[path]
}

func (p *Portal) nextToken() string {
	p.seq++
	return fmt.Sprintf("csrf-%04d", p.seq)
}

func (p *Portal) newSession(w http.ResponseWriter) *session {
	p.seq++
	id := fmt.Sprintf("sess-%04d", p.seq)
	s := &session{}
	p.sessions[id] = s
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: id, Path: "/vtop"})
	return s
}

func (p *Portal) lookup(r *http.Request) (*session, bool) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, false
	}
	s, ok := p.sessions[cookie.Value]
	return s, ok
}

func (p *Portal) checkToken(w http.ResponseWriter, r *http.Request, s *session) bool {
	if r.FormValue("_csrf") != s.token {
		p.staleTokens++
		p.t.Logf("stale csrf on %s: got %q want %q", r.URL.Path, r.FormValue("_csrf"), s.token)
		w.WriteHeader(http.StatusForbidden)
		return false
	}
	return true
}

func (p *Portal) writePage(w http.ResponseWriter, s *session, extra string) {
	s.token = p.nextToken()
	fmt.Fprintf(
		w,
		`<html><body><form><input type="hidden" name="_csrf" value="%s">%s</form></body></html>`,
		s.token, extra,
	)
}

func (p *Portal) handleOpenPage(w http.ResponseWriter, r *http.Request) {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.openPageLoads++

	if p.InitialStatus != 0 {
		w.WriteHeader(p.InitialStatus)
		return
	}

	s, ok := p.lookup(r)
	if !ok {
		if _, err := r.Cookie(SessionCookie); err == nil {
			http.Redirect(w, r, PathLogin, http.StatusFound)
			return
		}
		s = p.newSession(w)
	}
	extra := "<h1>VTOP</h1>"
	if s.authenticated {
		extra = fmt.Sprintf(`<input type="hidden" name="authorizedIDX" value="%s">`, Regno)
	}
	p.writePage(w, s, extra)
}

func (p *Portal) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	p.lock.Lock()
	defer p.lock.Unlock()

	s := p.newSession(w)
	p.writePage(w, s, "<h1>Login</h1>")
}

func (p *Portal) handlePrelogin(w http.ResponseWriter, r *http.Request) {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.prelogins++
	s, ok := p.lookup(r)
	if !ok {
		http.Redirect(w, r, PathLogin, http.StatusFound)
		return
	}
	if !p.checkToken(w, r, s) {
		return
	}
	if r.FormValue("flag") != "VTOP" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.reloads++
	if p.NeverCaptcha || s.reloads <= p.CaptchaAfter {
		p.writePage(w, s, "<p>loading</p>")
		return
	}
	s.reloads = 0
	p.writePage(w, s, fmt.Sprintf(
		`<img class="form-control img-fluid bg-light border-0" src="%s">`,
		Captcha,
	))
}

func (p *Portal) handleLogin(w http.ResponseWriter, r *http.Request) {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.logins++
	s, ok := p.lookup(r)
	if !ok {
		http.Redirect(w, r, PathLogin, http.StatusFound)
		return
	}
	if !p.checkToken(w, r, s) {
		return
	}
	p.answers = append(p.answers, r.FormValue("captchaStr"))
	if r.FormValue("username") != strings.ToUpper(Username) || r.FormValue("password") != Password {
		p.writePage(w, s, `<div class="alert alert-danger">Invalid LoginId/Password</div>`)
		return
	}

	outcome := OutcomeOk
	if len(p.Outcomes) > 0 {
		outcome = p.Outcomes[0]
		p.Outcomes = p.Outcomes[1:]
	}

	switch outcome {
	case OutcomeCaptcha:
		p.writePage(w, s, `<div class="alert alert-danger">Invalid Captcha</div>`)
	case OutcomeCredentials:
		p.writePage(w, s, `<div class="alert alert-danger">Invalid  Username/Password</div>`)
	case OutcomeUnknown:
		p.writePage(w, s, `<div class="alert alert-warning">Account locked, contact admin</div>`)
	case OutcomeNoRegno:
		s.authenticated = true
		p.writePage(w, s, "<h1>Welcome</h1>")
	default:
		s.authenticated = true
		p.writePage(w, s, fmt.Sprintf(
			`<h1>Welcome</h1><input type="hidden" name="authorizedIDX" value="%s">`,
			Regno,
		))
	}
}

func (p *Portal) handleReport(w http.ResponseWriter, r *http.Request) {
	p.lock.Lock()
	defer p.lock.Unlock()

	s, ok := p.lookup(r)
	if !ok || !s.authenticated {
		http.Redirect(w, r, PathLogin, http.StatusFound)
		return
	}
	if p.ReportStatus != 0 {
		w.WriteHeader(p.ReportStatus)
		return
	}
	if !p.checkToken(w, r, s) {
		return
	}

	values := url.Values{}
	for key, value := range r.Form {
		values[key] = value
	}
	if r.MultipartForm != nil {
		for key, value := range r.MultipartForm.Value {
			values[key] = value
		}
	}
	p.reports[r.URL.Path] = values

	page, ok := p.pages[r.URL.Path]
	if !ok {
		page = fmt.Sprintf(`<div id="report">%s</div>`, r.URL.Path)
	}
	p.writePage(w, s, page)
}

// Solver answers every captcha with Answer unless Err is set.
type Solver struct {
	Err error

	lock   sync.Mutex
	calls  int
	images []string
}

func (s *Solver) Solve(ctx context.Context, image []byte) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.calls++
	s.images = append(s.images, string(image))
	if s.Err != nil {
		return "", s.Err
	}
	return Answer, nil
}

func (s *Solver) Count() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.calls
}

func (s *Solver) Images() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]string(nil), s.images...)
}
