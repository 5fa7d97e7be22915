package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"vtop-backend/internal/vtop"
	"vtop-backend/internal/vtop/parse"
	"vtop-backend/lib/configutil"
	"vtop-backend/lib/restyutil"
	"vtop-backend/lib/telemetry"
)

const (
	loginAttempts = 3
	loginDelay    = 2 * time.Second
)

func newClient() (*vtop.Client, error) {
	cfg, err := configutil.ReadConfigOr(configPath, vtop.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	username := os.Getenv("VTOP_USERNAME")
	if username == "" {
		return nil, fmt.Errorf("VTOP_USERNAME must be set in the environment or .env")
	}

	opts := vtop.ClientOptions{
		Config: cfg,
		Tel:    telemetry.NewScopedAPI("vtop", telemetry.SlogAPI{}),
	}
	if debugDir != "" {
		sink, err := restyutil.NewFilesystemOutput(debugDir)
		if err != nil {
			return nil, err
		}
		opts.Sink = sink
	}
	return vtop.NewClient(vtop.NewCredentials(username, os.Getenv("VTOP_PASSWORD")), opts)
}

// connect returns an authenticated client, resuming the session saved with
// --cookie when one is given.
func connect(ctx context.Context) (*vtop.Client, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}

	if cookiePath != "" {
		cookie, err := os.ReadFile(cookiePath)
		if err != nil {
			return nil, err
		}
		err = client.ImportCookie(cookie)
		if err != nil {
			return nil, err
		}
		err = client.Resume(ctx)
		if err != nil {
			return nil, err
		}
		slog.Debug("resumed saved session", "username", client.Username())
		return client, nil
	}

	err = vtop.LoginWithRetry(ctx, client, loginAttempts, loginDelay)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// resolveSemester turns a semester id or name into an id, the latest
// semester is used when query is empty.
func resolveSemester(ctx context.Context, client *vtop.Client, query string) (string, error) {
	semesters, err := vtop.Fetch(ctx, client, vtop.ReportSemesters, vtop.ReportParams{}, parse.ParseSemesters)
	if err != nil {
		return "", err
	}
	if len(semesters) == 0 {
		return "", fmt.Errorf("no semesters found")
	}
	if query == "" {
		return semesters[0].ID, nil
	}
	semester, ok := parse.ResolveSemester(semesters, query)
	if !ok {
		return "", fmt.Errorf("no semester matches %q", query)
	}
	slog.Debug("resolved semester", "query", query, "id", semester.ID, "name", semester.Name)
	return semester.ID, nil
}
