package vtop

import (
	"time"
)

const (
	DefaultBaseUrl    = "https://vtop.vitap.ac.in"
	DefaultCaptchaUrl = "https://cap.va.synaptic.gg/captcha"
	DefaultUserAgent  = "Mozilla/5.0 (Linux; U; Linux x86_64; en-US) Gecko/20100101 Firefox/130.5"

	// the portal tolerates only a handful of wrong captcha answers before it
	// starts flagging the account
	DefaultMaxCaptchaAttempts = 4

	// the portal is probabilistically slow to present the captcha
	DefaultMaxReloadAttempts = 8
)

// portal routes, these are a compatibility contract with the remote server
const (
	pathOpenPage       = "/vtop/open/page"
	pathPrelogin       = "/vtop/prelogin/setup"
	pathLogin          = "/vtop/login"
	pathSemesters      = "/vtop/academics/common/StudentTimeTable"
	pathTimetable      = "/vtop/processViewTimeTable"
	pathAttendance     = "/vtop/processViewStudentAttendance"
	pathFullAttendance = "/vtop/processViewAttendanceDetail"
	pathMarks          = "/vtop/examinations/doStudentMarkView"
	pathExamSchedule   = "/vtop/examinations/doSearchExamScheduleForStudent"

	// cookies are scoped to this path when exported or imported
	pathCookieScope = "/vtop"
)

// Config is the portal client configuration. Certificate verification is off
// unless VerifyCertificates is set, the portal does not serve a chain that
// common trust stores accept.
type Config struct {
	BaseUrl            string  `json:"base_url"`
	CaptchaUrl         string  `json:"captcha_url"`
	UserAgent          string  `json:"user_agent"`
	TimeoutSeconds     int     `json:"timeout_seconds"`
	MaxCaptchaAttempts int     `json:"max_captcha_attempts"`
	MaxReloadAttempts  int     `json:"max_reload_attempts"`
	RequestsPerSecond  float64 `json:"requests_per_second"`
	VerifyCertificates bool    `json:"verify_certificates"`
	CloudflareBypass   bool    `json:"cloudflare_bypass"`
}

func DefaultConfig() Config {
	return Config{
		BaseUrl:            DefaultBaseUrl,
		CaptchaUrl:         DefaultCaptchaUrl,
		UserAgent:          DefaultUserAgent,
		TimeoutSeconds:     30,
		MaxCaptchaAttempts: DefaultMaxCaptchaAttempts,
		MaxReloadAttempts:  DefaultMaxReloadAttempts,
	}
}

// withDefaults fills zero fields from DefaultConfig, booleans are left as is.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.BaseUrl == "" {
		c.BaseUrl = def.BaseUrl
	}
	if c.CaptchaUrl == "" {
		c.CaptchaUrl = def.CaptchaUrl
	}
	if c.UserAgent == "" {
		c.UserAgent = def.UserAgent
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = def.TimeoutSeconds
	}
	if c.MaxCaptchaAttempts <= 0 {
		c.MaxCaptchaAttempts = def.MaxCaptchaAttempts
	}
	if c.MaxReloadAttempts <= 0 {
		c.MaxReloadAttempts = def.MaxReloadAttempts
	}
	return c
}

func (c Config) timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
