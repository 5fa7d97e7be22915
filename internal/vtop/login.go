package vtop

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vtop-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_login        = "client.login"
	report_login_reload = "client.login-reload"
	report_login_check  = "client.login-check"
	report_login_cycles = "client.login-cycles"
)

const (
	selectorCSRF         = "input[name='_csrf']"
	selectorCaptcha      = "img.form-control.img-fluid.bg-light.border-0"
	selectorAuthorizedID = "input[type=hidden][name=authorizedIDX]"

	captchaMarker = "base64,"

	loginFailOutput = "login_fail.html"
)

// State is a step of the login state machine.
type State int

const (
	StateIdle State = iota
	StateCheckingExternalCookie
	StateLoadingInitialPage
	StateCsrfExtracted
	StateAwaitingCaptchaPage
	StateCaptchaExtracted
	StateSolvingCaptcha
	StateSubmittingLogin
	StateCaptchaRetry
	StateAuthenticated
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:                   "idle",
	StateCheckingExternalCookie: "checking-external-cookie",
	StateLoadingInitialPage:     "loading-initial-page",
	StateCsrfExtracted:          "csrf-extracted",
	StateAwaitingCaptchaPage:    "awaiting-captcha-page",
	StateCaptchaExtracted:       "captcha-extracted",
	StateSolvingCaptcha:         "solving-captcha",
	StateSubmittingLogin:        "submitting-login",
	StateCaptchaRetry:           "captcha-retry",
	StateAuthenticated:          "authenticated",
	StateFailed:                 "failed",
}

func (s State) String() string {
	name, ok := stateNames[s]
	if !ok {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return name
}

func extractCSRFToken(doc *goquery.Document) (string, error) {
	token, err := htmlutil.ExtractAttr(doc, selectorCSRF, "value")
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", fmt.Errorf("%w: empty csrf token", htmlutil.ErrAttributeMissing)
	}
	return token, nil
}

func finalPath(res *resty.Response) string {
	if res.RawResponse == nil || res.RawResponse.Request == nil {
		return ""
	}
	return res.RawResponse.Request.URL.Path
}

func finalUrl(res *resty.Response) string {
	if res.RawResponse == nil || res.RawResponse.Request == nil {
		return res.Request.URL
	}
	return res.RawResponse.Request.URL.String()
}

// loginRun is the state of a single Login call.
type loginRun struct {
	client *Client
	state  State
	// cycles counts entries into StateAwaitingCaptchaPage.
	cycles int
	answer string
	err    error
}

// Login turns the credentials into an authenticated session. A session that
// was imported with ImportCookie is checked once first, and only when the
// check fails does the full captcha flow run.
func (c *Client) Login(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	run := &loginRun{client: c, state: StateIdle}
	err := run.execute(ctx)

	span.SetAttributes(
		attribute.String("vtop.username", c.creds.Username()),
		attribute.Int("vtop.captcha_cycles", run.cycles),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
		return err
	}
	return nil
}

// Resume authenticates an imported session without ever falling back to the
// captcha flow.
func (c *Client) Resume(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Resume")
	defer span.End()

	c.session.setCookieExternal(false)
	err := c.checkSession(ctx)
	if err != nil {
		c.session.setAuthenticated(false)
		span.RecordError(err)
		span.SetStatus(codes.Error, "resume failed")
		return fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}
	c.session.setAuthenticated(true)
	return nil
}

func (r *loginRun) execute(ctx context.Context) error {
	for {
		switch r.state {
		case StateAuthenticated:
			return nil
		case StateFailed:
			return r.err
		}

		next, err := r.step(ctx)
		if err != nil {
			r.fail(err)
			continue
		}
		r.client.tel.ReportDebug(report_login, "transition", r.state.String(), next.String())
		r.state = next
	}
}

func (r *loginRun) fail(err error) {
	c := r.client
	c.tel.ReportDebug(report_login, "transition", r.state.String(), StateFailed.String())
	c.tel.ReportWarning(report_login, fmt.Errorf("%s: %w", r.state, err))
	if c.pendingPage != "" {
		c.writeDiagnostic(loginFailOutput, c.pendingPage)
	}
	c.pendingPage = ""
	c.captcha = ""
	r.state = StateFailed
	r.err = err
}

func (r *loginRun) step(ctx context.Context) (State, error) {
	c := r.client

	switch r.state {
	case StateIdle:
		c.pendingPage = ""
		c.captcha = ""
		if c.session.IsCookieExternal() {
			return StateCheckingExternalCookie, nil
		}
		return StateLoadingInitialPage, nil

	case StateCheckingExternalCookie:
		c.session.setCookieExternal(false)
		err := c.checkSession(ctx)
		if err != nil {
			c.tel.ReportDebug(report_login_check, "external cookie rejected", err)
			c.session.setAuthenticated(false)
			return StateLoadingInitialPage, nil
		}
		c.session.setAuthenticated(true)
		return StateAuthenticated, nil

	case StateLoadingInitialPage:
		c.session.setAuthenticated(false)
		err := c.loadInitialPage(ctx)
		if err != nil {
			return StateFailed, err
		}
		return StateCsrfExtracted, nil

	case StateCsrfExtracted:
		return StateAwaitingCaptchaPage, nil

	case StateAwaitingCaptchaPage:
		r.cycles++
		c.tel.ReportCount(report_login_cycles, int64(r.cycles))
		err := c.awaitCaptchaPage(ctx)
		if err != nil {
			return StateFailed, err
		}
		err = c.extractCaptcha()
		if err != nil {
			return StateFailed, err
		}
		return StateCaptchaExtracted, nil

	case StateCaptchaExtracted:
		return StateSolvingCaptcha, nil

	case StateSolvingCaptcha:
		answer, err := c.solver.Solve(ctx, []byte(c.captcha))
		if err != nil {
			if !errors.Is(err, ErrSolverUnreachable) {
				err = fmt.Errorf("%w: %w", ErrSolverUnreachable, err)
			}
			return StateFailed, err
		}
		r.answer = answer
		return StateSubmittingLogin, nil

	case StateSubmittingLogin:
		outcome, url, err := c.submitLogin(ctx, r.answer)
		r.answer = ""
		if err != nil {
			return StateFailed, err
		}
		switch outcome {
		case OutcomeAuthenticated:
			err = c.completeLogin()
			if err != nil {
				return StateFailed, err
			}
			return StateAuthenticated, nil
		case OutcomeCaptchaRetry:
			return StateCaptchaRetry, nil
		case OutcomeInvalidCredentials:
			return StateFailed, ErrInvalidCredentials
		default:
			if snippet := alertSnippet(c.pendingPage, "alert", 500); snippet != "" {
				c.tel.ReportWarning(report_login, "unrecognized login response", snippet)
			}
			return StateFailed, authFailed(fmt.Sprintf("unknown error content. URL: %s", url))
		}

	case StateCaptchaRetry:
		// the failure page carries the token the next prelogin post must use
		if token, err := extractCSRFToken(htmlutil.Parse(c.pendingPage)); err == nil {
			c.session.setCSRFToken(token)
		}
		if r.cycles >= c.cfg.MaxCaptchaAttempts {
			return StateFailed, authFailed(reasonMaxAttempts)
		}
		c.pendingPage = ""
		c.captcha = ""
		return StateAwaitingCaptchaPage, nil
	}

	return StateFailed, fmt.Errorf("unknown login state %d", int(r.state))
}

// checkSession checks that the cookies in the jar still belong to a live
// session by loading the landing page and taking its csrf token.
func (c *Client) checkSession(ctx context.Context) error {
	if c.session.cookieHeader(c.cookieScope()) == "" {
		return fmt.Errorf("no cookie to check")
	}

	res, err := c.http.R().
		SetContext(ctx).
		Get(pathOpenPage)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	if !res.IsSuccess() {
		return fmt.Errorf("%w: session check status %s", ErrServer, res.Status())
	}
	if strings.Contains(finalPath(res), "login") {
		return fmt.Errorf("session check redirected to %s", finalPath(res))
	}

	doc := htmlutil.Parse(string(res.Body()))
	err = c.extractCSRF(doc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrParse, err)
	}
	if regno, err := htmlutil.ExtractAttr(doc, selectorAuthorizedID, "value"); err == nil && regno != "" {
		c.session.setAuthorizedID(regno)
	}
	return nil
}

func (c *Client) loadInitialPage(ctx context.Context) error {
	res, err := c.http.R().
		SetContext(ctx).
		Get(pathOpenPage)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	if !res.IsSuccess() {
		return fmt.Errorf("%w: initial page status %s", ErrServer, res.Status())
	}

	c.pendingPage = string(res.Body())
	err = c.extractCSRF(htmlutil.Parse(c.pendingPage))
	if err != nil {
		return fmt.Errorf("%w: initial page: %w", ErrParse, err)
	}
	return nil
}

// awaitCaptchaPage posts the prelogin form until a page containing a captcha
// image comes back or the reload budget runs out. Running out is not an error
// here, the captcha extraction that follows reports it.
func (c *Client) awaitCaptchaPage(ctx context.Context) error {
	for attempt := 1; attempt <= c.cfg.MaxReloadAttempts; attempt++ {
		token, ok := c.session.CSRFToken()
		if !ok {
			return fmt.Errorf("%w: no csrf token for prelogin", ErrSessionExpired)
		}

		res, err := c.http.R().
			SetContext(ctx).
			SetFormData(map[string]string{
				"_csrf": token,
				"flag":  "VTOP",
			}).
			Post(pathPrelogin)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrNetwork, err)
		}
		if !res.IsSuccess() {
			return fmt.Errorf("%w: prelogin status %s", ErrServer, res.Status())
		}

		c.pendingPage = string(res.Body())
		if strings.Contains(c.pendingPage, captchaMarker) {
			return nil
		}
		if token, err := extractCSRFToken(htmlutil.Parse(c.pendingPage)); err == nil {
			c.session.setCSRFToken(token)
		}
		c.tel.ReportDebug(report_login_reload, "no captcha on prelogin page", attempt)
	}

	c.tel.ReportWarning(report_login_reload, "captcha never appeared", c.cfg.MaxReloadAttempts)
	return nil
}

// extractCaptcha takes the captcha image and the fresh csrf token from the
// pending page.
func (c *Client) extractCaptcha() error {
	doc := htmlutil.Parse(c.pendingPage)

	src, err := htmlutil.ExtractAttr(doc, selectorCaptcha, "src")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCaptchaRequired, err)
	}
	if !strings.Contains(src, captchaMarker) {
		return fmt.Errorf("%w: captcha is not an inline image", ErrCaptchaRequired)
	}
	c.captcha = src

	err = c.extractCSRF(doc)
	if err != nil {
		return fmt.Errorf("%w: captcha page: %w", ErrParse, err)
	}
	return nil
}

func (c *Client) submitLogin(ctx context.Context, answer string) (Outcome, string, error) {
	token, ok := c.session.CSRFToken()
	if !ok {
		return OutcomeUnrecognized, "", fmt.Errorf("%w: no csrf token for login", ErrSessionExpired)
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"_csrf":      token,
			"username":   c.creds.username,
			"password":   c.creds.password,
			"captchaStr": answer,
		}).
		Post(pathLogin)
	if err != nil {
		return OutcomeUnrecognized, "", fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	if !res.IsSuccess() {
		return OutcomeUnrecognized, "", fmt.Errorf("%w: login status %s", ErrServer, res.Status())
	}

	url := finalUrl(res)
	c.pendingPage = string(res.Body())
	outcome := c.classifier.Classify(url, c.pendingPage)
	c.tel.ReportDebug(report_login, "login response", outcome.String(), url)
	return outcome, url, nil
}

// completeLogin takes the authoritative csrf token and the registration
// identifier from the landing page of a successful login.
func (c *Client) completeLogin() error {
	doc := htmlutil.Parse(c.pendingPage)

	err := c.extractCSRF(doc)
	if err != nil {
		return fmt.Errorf("%w: landing page: %w", ErrParse, err)
	}
	regno, err := htmlutil.ExtractAttr(doc, selectorAuthorizedID, "value")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRegistrationParsing, err)
	}
	regno = strings.TrimSpace(regno)
	if regno == "" {
		return fmt.Errorf("%w: empty registration number", ErrRegistrationParsing)
	}
	c.session.setAuthorizedID(regno)

	c.pendingPage = ""
	c.captcha = ""
	c.session.setAuthenticated(true)
	return nil
}
