package commands

import (
	"fmt"

	"vtop-backend/internal/vtop"
	"vtop-backend/internal/vtop/parse"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	courseID   string
	courseType string
)

func init() {
	attendanceCmd.Flags().StringVar(&courseID, "course", "", "Print every class of this course id.")
	attendanceCmd.Flags().StringVar(&courseType, "type", "", "The course type of --course, ex. ETH.")
	rootCmd.AddCommand(attendanceCmd)
}

var attendanceCmd = &cobra.Command{
	Use:   "attendance [--semester <id or name>] [--course <id> --type <type>]",
	Short: "Prints the attendance summary of a semester or the classes of one course.",
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
		params := vtop.ReportParams{
			SemesterID: semesterID,
			CourseID:   courseID,
			CourseType: courseType,
		}

		if courseID != "" {
			detail, err := vtop.Fetch(ctx, client, vtop.ReportFullAttendance, params, parse.ParseFullAttendance)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJson(detail)
			}
			t := newTable("Date", "Slot", "Time", "Status")
			for _, e := range detail.Entries {
				t.AppendRow(table.Row{e.Date.Format("2006-01-02"), e.Slot, e.DayTime, e.Status})
			}
			t.AppendFooter(table.Row{"", "", "Attended", fmt.Sprintf("%d/%d", detail.Attended, detail.Total)})
			t.Render()
			return nil
		}

		attendance, err := vtop.Fetch(ctx, client, vtop.ReportAttendance, params, parse.ParseAttendance)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJson(attendance)
		}
		t := newTable("Course Id", "Course", "Type", "Slot", "Attended", "Total", "%")
		for _, r := range attendance.Records {
			t.AppendRow(table.Row{r.CourseID, r.CourseCode, r.CourseType, r.Slot, r.Attended, r.Total, r.Percentage})
		}
		t.Render()
		return nil
	},
}
