package main

import (
	"context"

	"vtop-backend/cmd/vtop-cli/commands"
	"vtop-backend/lib/telemetry"

	"github.com/joho/godotenv"
)

func main() {
	godotenv.Load()
	telemetry.SetupFromEnv(context.Background(), "vtop-cli")
	commands.ExecuteContext(context.Background())
}
