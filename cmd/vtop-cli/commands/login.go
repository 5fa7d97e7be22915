package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var savePath string

func init() {
	loginCmd.Flags().StringVar(&savePath, "save", "", "Save the session cookie to this file for use with --cookie.")
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login [--save <path/to/cookie>]",
	Short: "Logs into VTOP with VTOP_USERNAME and VTOP_PASSWORD.",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := connect(cmd.Context())
		if err != nil {
			return err
		}

		if savePath != "" {
			cookie, err := client.ExportCookie()
			if err != nil {
				return err
			}
			err = os.WriteFile(savePath, cookie, 0600)
			if err != nil {
				return err
			}
		}

		if jsonOutput {
			return printJson(map[string]any{
				"username":     client.Username(),
				"authorizedId": client.Session().AuthorizedID(),
			})
		}
		fmt.Printf("logged in as %s\n", client.Session().AuthorizedID())
		return nil
	},
}
