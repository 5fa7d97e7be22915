package commands

import (
	"vtop-backend/internal/vtop"
	"vtop-backend/internal/vtop/parse"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(examsCmd)
}

var examsCmd = &cobra.Command{
	Use:   "exams [--semester <id or name>]",
	Short: "Prints the exam schedule of a semester.",
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
		schedule, err := vtop.Fetch(
			ctx, client,
			vtop.ReportExamSchedule,
			vtop.ReportParams{SemesterID: semesterID},
			parse.ParseExamSchedule,
		)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJson(schedule)
		}
		t := newTable("Exam", "Course", "Date", "Time", "Venue", "Seat")
		for _, e := range schedule.Exams {
			date := "TBA"
			if !e.Date.IsZero() {
				date = e.Date.Format("2006-01-02")
			}
			t.AppendRow(table.Row{e.ExamType, e.CourseCode, date, e.ExamTime, e.Venue, e.SeatNo})
		}
		t.Render()
		return nil
	},
}
