package vtop

import (
	"strings"
)

// Outcome is the classification of the page returned by a login submission.
type Outcome int

const (
	OutcomeAuthenticated Outcome = iota
	OutcomeCaptchaRetry
	OutcomeInvalidCredentials
	OutcomeUnrecognized
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAuthenticated:
		return "authenticated"
	case OutcomeCaptchaRetry:
		return "captcha-retry"
	case OutcomeInvalidCredentials:
		return "invalid-credentials"
	default:
		return "unrecognized"
	}
}

// OutcomeClassifier decides what a login response means. The portal gives no
// structured signal, all it has is the final URL and the page text.
type OutcomeClassifier interface {
	Classify(finalUrl, body string) Outcome
}

// KeywordClassifier is the keyword-based outcome classifier: a response is an
// error when the URL contains ErrorUrlMarker or the body contains
// ErrorBodyMarker. Errors are then narrowed by the captcha markers first and
// the credential markers second, anything else stays unrecognized.
type KeywordClassifier struct {
	ErrorUrlMarker    string
	ErrorBodyMarker   string
	CaptchaMarkers    []string
	CredentialMarkers []string
}

var DefaultClassifier = KeywordClassifier{
	ErrorUrlMarker:  "error",
	ErrorBodyMarker: "alert",
	CaptchaMarkers:  []string{"Invalid Captcha"},
	CredentialMarkers: []string{
		"Invalid LoginId/Password",
		"Invalid  Username/Password",
		"User does not exist",
		"Invalid credentials",
	},
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func (k KeywordClassifier) isError(finalUrl, body string) bool {
	if k.ErrorUrlMarker != "" && strings.Contains(finalUrl, k.ErrorUrlMarker) {
		return true
	}
	return k.ErrorBodyMarker != "" && strings.Contains(body, k.ErrorBodyMarker)
}

func (k KeywordClassifier) Classify(finalUrl, body string) Outcome {
	if !k.isError(finalUrl, body) {
		return OutcomeAuthenticated
	}
	switch {
	case containsAny(body, k.CaptchaMarkers):
		return OutcomeCaptchaRetry
	case containsAny(body, k.CredentialMarkers):
		return OutcomeInvalidCredentials
	default:
		return OutcomeUnrecognized
	}
}

// alertSnippet returns up to n bytes of body starting at the first
// occurrence of marker, for diagnostics.
func alertSnippet(body, marker string, n int) string {
	idx := strings.Index(body, marker)
	if idx < 0 || marker == "" {
		return ""
	}
	snippet := body[idx:]
	if len(snippet) > n {
		snippet = snippet[:n]
	}
	return snippet
}
