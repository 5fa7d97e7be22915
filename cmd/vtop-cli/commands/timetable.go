package commands

import (
	"vtop-backend/internal/vtop"
	"vtop-backend/internal/vtop/parse"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var semesterQuery string

func init() {
	for _, cmd := range []*cobra.Command{timetableCmd, attendanceCmd, marksCmd, examsCmd} {
		cmd.Flags().StringVarP(
			&semesterQuery, "semester", "s", "",
			"The semester id or name, defaults to the latest semester.",
		)
	}
	rootCmd.AddCommand(timetableCmd)
}

var timetableCmd = &cobra.Command{
	Use:   "timetable [--semester <id or name>]",
	Short: "Prints the registered courses of a semester.",
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
		timetable, err := vtop.Fetch(
			ctx, client,
			vtop.ReportTimetable,
			vtop.ReportParams{SemesterID: semesterID},
			parse.ParseTimetable,
		)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJson(timetable)
		}
		t := newTable("Course", "Title", "Type", "Slot", "Venue", "Faculty")
		for _, s := range timetable.Slots {
			t.AppendRow(table.Row{s.CourseCode, s.CourseName, s.CourseType, s.Slot, s.RoomNo, s.Faculty})
		}
		t.Render()
		return nil
	},
}
