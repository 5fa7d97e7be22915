package vtop

import (
	"crypto/tls"
	"fmt"
	"net/url"

	"vtop-backend/lib/assert"
	"vtop-backend/lib/restyutil"
	"vtop-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("vtop-backend/internal/vtop")

// browserHeaders makes requests look like a regular desktop browser
// navigation, the portal rejects requests without them.
var browserHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.5",
	"Upgrade-Insecure-Requests": "1",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "same-origin",
	"Sec-Fetch-User":            "?1",
	"Priority":                  "u=0, i",
}

// Client owns one portal session. It is not safe for concurrent use, callers
// that need parallelism should create one Client per credential.
type Client struct {
	cfg        Config
	baseUrl    *url.URL
	http       *resty.Client
	creds      Credentials
	session    *Session
	solver     CaptchaSolver
	classifier OutcomeClassifier
	sink       restyutil.Output
	tel        telemetry.API

	// pendingPage is the last fetched page that still has to be consumed.
	pendingPage string
	captcha     string
}

type ClientOptions struct {
	Config Config
	// Solver defaults to an HTTPSolver pointed at Config.CaptchaUrl.
	Solver CaptchaSolver
	// Classifier defaults to DefaultClassifier.
	Classifier OutcomeClassifier
	// Sink receives the page of a terminal login failure, it may be nil.
	Sink restyutil.Output
	// AuthorizedID is the registration number of a session that will be
	// imported instead of negotiated.
	AuthorizedID string
	Tel          telemetry.API
}

func NewClient(creds Credentials, opts ClientOptions) (*Client, error) {
	assert.NotNil(opts.Tel)
	if creds.Username() == "" {
		return nil, fmt.Errorf("username must not be empty")
	}

	cfg := opts.Config.withDefaults()
	assert.Positive(cfg.MaxCaptchaAttempts)
	assert.Positive(cfg.MaxReloadAttempts)
	baseUrl, err := url.Parse(cfg.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	session, err := NewSession()
	if err != nil {
		return nil, err
	}
	session.setAuthorizedID(opts.AuthorizedID)

	client := resty.New()
	client.SetBaseURL(cfg.BaseUrl)
	client.SetCookieJar(session.Jar())
	client.SetHeader("User-Agent", cfg.UserAgent)
	client.SetHeaders(browserHeaders)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(cfg.timeout())
	if !cfg.VerifyCertificates {
		client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	if cfg.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	if cfg.RequestsPerSecond > 0 {
		limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}
	telemetry.InstrumentResty(client, telemetry.NewScopedAPI("http", opts.Tel))

	solver := opts.Solver
	if solver == nil {
		solver = NewHTTPSolver(cfg.CaptchaUrl, cfg.timeout(), opts.Tel)
	}
	classifier := opts.Classifier
	if classifier == nil {
		classifier = DefaultClassifier
	}

	return &Client{
		cfg:        cfg,
		baseUrl:    baseUrl,
		http:       client,
		creds:      creds,
		session:    session,
		solver:     solver,
		classifier: classifier,
		sink:       opts.Sink,
		tel:        opts.Tel,
	}, nil
}

func (c *Client) Username() string {
	return c.creds.Username()
}

// Session exposes the session state for inspection.
func (c *Client) Session() *Session {
	return c.session
}

func (c *Client) IsAuthenticated() bool {
	return c.session.IsAuthenticated()
}

// cookieScope is the url whose cookies make up an exported session.
func (c *Client) cookieScope() *url.URL {
	scope := *c.baseUrl
	scope.Path = pathCookieScope
	scope.RawPath = ""
	scope.RawQuery = ""
	scope.Fragment = ""
	return &scope
}

// identity is the registration identifier once logged in, the username before.
func (c *Client) identity() string {
	if id := c.session.AuthorizedID(); id != "" {
		return id
	}
	return c.creds.Username()
}

// extractCSRF reads the _csrf hidden input out of a page and makes it the
// session token.
func (c *Client) extractCSRF(doc *goquery.Document) error {
	token, err := extractCSRFToken(doc)
	if err != nil {
		return err
	}
	c.session.setCSRFToken(token)
	return nil
}

func (c *Client) writeDiagnostic(id, contents string) {
	if c.sink == nil {
		return
	}
	c.sink.Write(id, contents)
}
