package vtop

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork is a transport level failure, always safe to retry.
	ErrNetwork = errors.New("vtop: network error")

	// ErrSessionExpired means the client was never authenticated or the portal
	// dropped the session, Login must be run again.
	ErrSessionExpired = errors.New("vtop: session expired")

	// ErrCaptchaRequired means the captcha image could not be located when expected.
	ErrCaptchaRequired = errors.New("vtop: captcha required")

	ErrInvalidCredentials = errors.New("vtop: invalid credentials")

	ErrAuthenticationFailed = errors.New("vtop: authentication failed")

	// ErrServer is a non-success HTTP status outside of the guarded report calls.
	ErrServer = errors.New("vtop: server error")

	// ErrParse means a required HTML field could not be located.
	ErrParse = errors.New("vtop: parse error")

	// ErrRegistrationParsing means login succeeded but the registration
	// identifier could not be recovered from the landing page.
	ErrRegistrationParsing = errors.New("vtop: registration parsing error")

	ErrSolverUnreachable = errors.New("vtop: captcha solver unreachable")

	ErrMissingParam = errors.New("vtop: missing report parameter")
)

// AuthenticationFailedError is a terminal login failure with a diagnostic reason.
type AuthenticationFailedError struct {
	Reason string
}

func (e *AuthenticationFailedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrAuthenticationFailed.Error(), e.Reason)
}

func (e *AuthenticationFailedError) Is(target error) bool {
	return target == ErrAuthenticationFailed
}

func authFailed(reason string) error {
	return &AuthenticationFailedError{Reason: reason}
}

const reasonMaxAttempts = "Max login attempts exceeded"
