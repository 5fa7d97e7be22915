package main

import (
	"flag"
	"log/slog"
	"os"
	"strconv"
	"time"

	"vtop-backend/internal/api"
	"vtop-backend/internal/sessionstore"
	"vtop-backend/lib/configutil"
	"vtop-backend/lib/restyutil"
	"vtop-backend/lib/serviceutil"

	"github.com/joho/godotenv"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	configPath := flag.String("config", "config.json5", "The config file to read.")
	flag.Parse()

	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "err", err)
	}

	ctx := serviceutil.SignalContext()
	tel := InitTelemetry(ctx, *verbose)

	cfg, err := configutil.ReadConfigOr(*configPath, api.DefaultConfig())
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Port, err = strconv.Atoi(port)
		if err != nil {
			serviceutil.Fatal("parse PORT", err)
		}
	}

	store, err := sessionstore.Open(cfg.SessionDb, time.Duration(cfg.SessionTtlMinutes)*time.Minute)
	if err != nil {
		serviceutil.Fatal("open session store", err)
	}
	defer store.Close()

	opts := api.Options{
		Config: cfg,
		Store:  store,
		Tel:    tel,
	}
	if cfg.DebugDir != "" {
		sink, err := restyutil.NewFilesystemOutput(cfg.DebugDir)
		if err != nil {
			serviceutil.Fatal("create debug dir", err)
		}
		opts.Sink = sink
	}

	server := api.NewServer(opts)
	go server.PurgeLoop(ctx, 5*time.Minute)

	err = serviceutil.StartHttpServer(ctx, cfg.Port, server.Router())
	if err != nil {
		serviceutil.Fatal("serve http", err)
	}
}
