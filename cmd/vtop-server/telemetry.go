package main

import (
	"context"
	"log/slog"

	"vtop-backend/lib/serviceutil"
	"vtop-backend/lib/telemetry"
)

func InitTelemetry(ctx context.Context, verbose bool) telemetry.API {
	telemetry.InitSlog(verbose)

	if verbose {
		slog.DebugContext(ctx, "verbose logging enabled")
	}

	providers, err := telemetry.SetupFromEnv(ctx, "vtop-server")
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	go func() {
		<-ctx.Done()
		providers.Shutdown(context.Background())
	}()

	tel := telemetry.SlogAPI{}
	telemetry.InstrumentPerfStats(ctx, tel)
	return tel
}
