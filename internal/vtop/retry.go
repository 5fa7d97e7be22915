package vtop

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// Retryable reports whether a failed Login is worth running again. Wrong
// credentials and a landing page without a registration number will fail the
// same way every time.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrInvalidCredentials):
		return false
	case errors.Is(err, ErrRegistrationParsing):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

// LoginWithRetry runs Login up to attempts times with a constant delay in
// between, stopping early on errors that are not Retryable.
func LoginWithRetry(ctx context.Context, client *Client, attempts int, delay time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}
	if delay <= 0 {
		delay = time.Millisecond
	}

	attempt := 0
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(delay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := client.Login(ctx)
		if err == nil {
			return nil
		}
		client.tel.ReportWarning(report_login, "login attempt failed", attempt, err)
		if Retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
