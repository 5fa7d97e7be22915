package commands

import (
	"vtop-backend/internal/vtop"
	"vtop-backend/internal/vtop/parse"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(marksCmd)
}

var marksCmd = &cobra.Command{
	Use:   "marks [--semester <id or name>]",
	Short: "Prints the assessment marks of a semester.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := connect(ctx)
		if err != nil {
			return err
		}
		semesterID, err := resolveSemester(ctx, client, semesterQuery)
		if err != nil {
			return err
		}
		marks, err := vtop.Fetch(ctx, client, vtop.ReportMarks, vtop.ReportParams{SemesterID: semesterID}, parse.ParseMarks)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJson(marks)
		}
		t := newTable("Course", "Assessment", "Scored", "Max", "Weightage", "Weighted")
		for _, course := range marks.Courses {
			for _, c := range course.Components {
				t.AppendRow(table.Row{course.CourseCode, c.Title, c.Scored, c.MaxMark, c.Weightage, c.WeightageScored})
			}
			t.AppendSeparator()
		}
		t.Render()
		return nil
	},
}
