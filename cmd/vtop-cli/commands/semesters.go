package commands

import (
	"vtop-backend/internal/vtop"
	"vtop-backend/internal/vtop/parse"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(semestersCmd)
}

var semestersCmd = &cobra.Command{
	Use:   "semesters",
	Short: "Prints the semesters available to the student.",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		semesters, err := vtop.Fetch(cmd.Context(), client, vtop.ReportSemesters, vtop.ReportParams{}, parse.ParseSemesters)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJson(semesters)
		}
		t := newTable("Id", "Name")
		for _, s := range semesters {
			t.AppendRow(table.Row{s.ID, s.Name})
		}
		t.Render()
		return nil
	},
}
