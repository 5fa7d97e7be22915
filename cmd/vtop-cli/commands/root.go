package commands

import (
	"context"
	"fmt"
	"os"

	"vtop-backend/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	verbose    bool
	jsonOutput bool
	debugDir   string
	configPath string
	cookiePath string
)

var rootCmd = &cobra.Command{
	Use:   "vtop-cli",
	Short: "vtop-cli is a CLI for logging into VTOP and printing reports.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging.")
	flags.BoolVar(&jsonOutput, "json", false, "Print results as json instead of a table.")
	flags.StringVar(&debugDir, "debug-dir", "", "Write the pages of failed logins to this directory.")
	flags.StringVar(&configPath, "config", "vtop.json5", "The portal client config file.")
	flags.StringVar(
		&cookiePath, "cookie", "",
		"Resume the session saved in this file instead of logging in, see login --save.",
	)
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
