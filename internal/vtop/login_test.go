package vtop

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"vtop-backend/internal/vtop/vtoptest"

	"github.com/stretchr/testify/require"
)

func TestLoginSuccess(t *testing.T) {
	portal := vtoptest.NewPortal(t)
	client := newTestClient(t, portal)

	err := client.Login(context.Background())
	require.NoError(t, err)

	require.True(t, client.IsAuthenticated())
	require.Equal(t, vtoptest.Regno, client.Session().AuthorizedID())
	token, ok := client.Session().CSRFToken()
	require.True(t, ok)
	require.Equal(t, portal.CurrentToken(t), token)

	prelogins, logins, stale := portal.Stats()
	require.Equal(t, 1, prelogins)
	require.Equal(t, 1, logins)
	require.Zero(t, stale)

	require.Equal(t, 1, client.solver.Count())
	require.Equal(t, []string{vtoptest.Captcha}, client.solver.Images())
	require.Equal(t, []string{vtoptest.Answer}, portal.Answers())

	require.Empty(t, client.pendingPage)
	require.Empty(t, client.captcha)
	_, written := client.sink.Get(loginFailOutput)
	require.False(t, written)
}

func TestLoginReloadsUntilCaptchaAppears(t *testing.T) {
	portal := vtoptest.NewPortal(t)
	portal.CaptchaAfter = 5
	client := newTestClient(t, portal)

	err := client.Login(context.Background())
	require.NoError(t, err)

	prelogins, _, stale := portal.Stats()
	require.Equal(t, 6, prelogins)
	require.Zero(t, stale)
	require.Equal(t, 1, client.solver.Count())
}

func TestLoginInitialPageServerError(t *testing.T) {
	portal := vtoptest.NewPortal(t)
	portal.InitialStatus = http.StatusInternalServerError
	client := newTestClient(t, portal)

	err := client.Login(context.Background())
	require.ErrorIs(t, err, ErrServer)
	require.False(t, client.IsAuthenticated())

	prelogins, logins, _ := portal.Stats()
	require.Zero(t, prelogins)
	require.Zero(t, logins)
	require.Zero(t, client.solver.Count())
}

func TestLoginReloadBudgetExhausted(t *testing.T) {
	portal := vtoptest.NewPortal(t)
	portal.NeverCaptcha = true
	client := newTestClient(t, portal)

	err := client.Login(context.Background())
	require.ErrorIs(t, err, ErrCaptchaRequired)

	prelogins, logins, stale := portal.Stats()
	require.Equal(t, DefaultMaxReloadAttempts, prelogins)
	require.Zero(t, logins)
	require.Zero(t, stale)
	require.Zero(t, client.solver.Count())
	require.Empty(t, client.pendingPage)
}

func TestLoginCaptchaAttemptsExhausted(t *testing.T) {
	portal := vtoptest.NewPortal(t)
	portal.Outcomes = []string{
		vtoptest.OutcomeCaptcha, vtoptest.OutcomeCaptcha, vtoptest.OutcomeCaptcha, vtoptest.OutcomeCaptcha, vtoptest.OutcomeCaptcha,
	}
	client := newTestClient(t, portal)

	err := client.Login(context.Background())
	require.ErrorIs(t, err, ErrAuthenticationFailed)
	require.NotErrorIs(t, err, ErrInvalidCredentials)

	var failed *AuthenticationFailedError
	require.True(t, errors.As(err, &failed))
	require.Equal(t, "Max login attempts exceeded", failed.Reason)

	prelogins, logins, stale := portal.Stats()
	require.Equal(t, DefaultMaxCaptchaAttempts, logins)
	require.Equal(t, DefaultMaxCaptchaAttempts, prelogins)
	require.Zero(t, stale)
	require.Equal(t, DefaultMaxCaptchaAttempts, client.solver.Count())
	require.False(t, client.IsAuthenticated())

	page, written := client.sink.Get(loginFailOutput)
	require.True(t, written)
	require.Contains(t, page, "Invalid Captcha")
}

func TestLoginCaptchaRetryThenSuccess(t *testing.T) {
	portal := vtoptest.NewPortal(t)
	portal.CaptchaAfter = 1
	portal.Outcomes = []string{vtoptest.OutcomeCaptcha, vtoptest.OutcomeCaptcha}
	client := newTestClient(t, portal)

	err := client.Login(context.Background())
	require.NoError(t, err)
	require.True(t, client.IsAuthenticated())

	prelogins, logins, stale := portal.Stats()
	require.Equal(t, 3, logins)
	require.Equal(t, 6, prelogins)
	require.Zero(t, stale)
}

func TestLoginMaxAttemptsIsConfigurable(t *testing.T) {
	portal := vtoptest.NewPortal(t)
	portal.Outcomes = []string{vtoptest.OutcomeCaptcha, vtoptest.OutcomeCaptcha, vtoptest.OutcomeCaptcha}

	solver := &vtoptest.Solver{}
	client, err := NewClient(NewCredentials(vtoptest.Username, vtoptest.Password), ClientOptions{
		Config: Config{
			BaseUrl:            portal.URL(),
			MaxCaptchaAttempts: 2,
		},
		Solver: solver,
		Tel:    newRecorder(),
	})
	require.NoError(t, err)

	err = client.Login(context.Background())
	require.ErrorIs(t, err, ErrAuthenticationFailed)
	_, logins, _ := portal.Stats()
	require.Equal(t, 2, logins)
}

func TestLoginInvalidCredentialsIsTerminal(t *testing.T) {
	portal := vtoptest.NewPortal(t)
	portal.Outcomes = []string{vtoptest.OutcomeCredentials}
	client := newTestClient(t, portal)

	err := client.Login(context.Background())
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.False(t, client.IsAuthenticated())

	_, logins, _ := portal.Stats()
	require.Equal(t, 1, logins)

	page, written := client.sink.Get(loginFailOutput)
	require.True(t, written)
	require.Contains(t, page, "Username/Password")
}

func TestLoginWrongPassword(t *testing.T) {
	portal := vtoptest.NewPortal(t)

	client, err := NewClient(NewCredentials(vtoptest.Username, "wrong"), ClientOptions{
		Config: Config{BaseUrl: portal.URL()},
		Solver: &vtoptest.Solver{},
		Tel:    newRecorder(),
	})
	require.NoError(t, err)

	err = client.Login(context.Background())
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownErrorIsTerminal(t *testing.T) {
	portal := vtoptest.NewPortal(t)
	portal.Outcomes = []string{vtoptest.OutcomeUnknown}
	client := newTestClient(t, portal)

	err := client.Login(context.Background())
	require.ErrorIs(t, err, ErrAuthenticationFailed)
	require.NotErrorIs(t, err, ErrInvalidCredentials)
	require.Contains(t, err.Error(), "unknown error content")

	_, logins, _ := portal.Stats()
	require.Equal(t, 1, logins)
	require.Equal(t, 1, client.solver.Count())
}

func TestLoginMissingRegistrationNumber(t *testing.T) {
	portal := vtoptest.NewPortal(t)
	portal.Outcomes = []string{vtoptest.OutcomeNoRegno}
	client := newTestClient(t, portal)

	err := client.Login(context.Background())
	require.ErrorIs(t, err, ErrRegistrationParsing)
	require.False(t, client.IsAuthenticated())
	require.Empty(t, client.Session().AuthorizedID())
}

func TestLoginSolverUnreachable(t *testing.T) {
	portal := vtoptest.NewPortal(t)
	client := newTestClient(t, portal)
	client.solver.Err = errors.New("connection refused")

	err := client.Login(context.Background())
	require.ErrorIs(t, err, ErrSolverUnreachable)

	_, logins, _ := portal.Stats()
	require.Zero(t, logins)
	require.Equal(t, 1, client.solver.Count())
}

func TestLoginNeverReportsPassword(t *testing.T) {
	portal := vtoptest.NewPortal(t)
	portal.Outcomes = []string{vtoptest.OutcomeCaptcha, vtoptest.OutcomeUnknown}
	client := newTestClient(t, portal)

	err := client.Login(context.Background())
	require.Error(t, err)

	require.NotEmpty(t, client.recorder.Reports())
	require.False(t, client.recorder.Contains(vtoptest.Password))
	require.NotContains(t, client.creds.String(), vtoptest.Password)
}

func TestStateNames(t *testing.T) {
	for state := StateIdle; state <= StateFailed; state++ {
		require.False(t, strings.HasPrefix(state.String(), "state("), state)
	}
	require.Equal(t, "state(99)", State(99).String())
}
