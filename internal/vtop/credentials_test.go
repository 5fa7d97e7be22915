package vtop

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"

	"vtop-backend/internal/vtop/vtoptest"

	"github.com/stretchr/testify/require"
)

func TestCredentialsNormalizeUsername(t *testing.T) {
	creds := NewCredentials("  23bce7001 ", vtoptest.Password)
	require.Equal(t, "23BCE7001", creds.Username())
}

func TestCredentialsRedactPassword(t *testing.T) {
	creds := NewCredentials(vtoptest.Username, vtoptest.Password)

	require.NotContains(t, creds.String(), vtoptest.Password)
	require.NotContains(t, fmt.Sprintf("%v %+v %#v", creds, creds, creds), vtoptest.Password)

	var buffer bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buffer, nil))
	logger.Info("login", "creds", creds)
	require.Contains(t, buffer.String(), "23BCE7001")
	require.NotContains(t, buffer.String(), vtoptest.Password)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{BaseUrl: "http://localhost:8080"}.withDefaults()
	require.Equal(t, "http://localhost:8080", cfg.BaseUrl)
	require.Equal(t, DefaultCaptchaUrl, cfg.CaptchaUrl)
	require.Equal(t, DefaultMaxCaptchaAttempts, cfg.MaxCaptchaAttempts)
	require.Equal(t, DefaultMaxReloadAttempts, cfg.MaxReloadAttempts)
	require.Equal(t, 30, cfg.TimeoutSeconds)
	require.False(t, cfg.VerifyCertificates)
}

func TestNewClientFillsAttemptBudgets(t *testing.T) {
	client, err := NewClient(NewCredentials(vtoptest.Username, vtoptest.Password), ClientOptions{
		Config: Config{MaxCaptchaAttempts: -1},
		Tel:    newRecorder(),
	})
	require.NoError(t, err)
	require.Equal(t, DefaultMaxCaptchaAttempts, client.cfg.MaxCaptchaAttempts)
	require.Equal(t, DefaultMaxReloadAttempts, client.cfg.MaxReloadAttempts)
}
