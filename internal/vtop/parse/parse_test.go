package parse

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"vtop-backend/internal/vtop"
	"vtop-backend/lib/timezone"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func fixture(t testing.TB, name string) string {
	contents, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	return string(contents)
}

var params = vtop.ReportParams{SemesterID: "AP2024254"}

func TestParseSemesters(t *testing.T) {
	semesters, err := ParseSemesters(fixture(t, "semesters.html"), params)
	require.NoError(t, err)

	expected := []Semester{
		{ID: "AP2024254", Name: "Winter Semester 2024-25"},
		{ID: "AP2024251", Name: "Fall Semester 2024-25"},
		{ID: "AP2023247", Name: "Summer Semester 2023-24"},
	}
	if diff := cmp.Diff(expected, semesters); diff != "" {
		t.Fatal(diff)
	}

	_, err = ParseSemesters("<html><body>session timed out</body></html>", params)
	require.ErrorIs(t, err, ErrMissingTable)

	semesters, err = ParseSemesters(`<select id="semesterSubId"><option value="">--</option></select>`, params)
	require.NoError(t, err)
	require.Empty(t, semesters)
}

func TestResolveSemester(t *testing.T) {
	semesters, err := ParseSemesters(fixture(t, "semesters.html"), params)
	require.NoError(t, err)

	semester, ok := ResolveSemester(semesters, "ap2024251")
	require.True(t, ok)
	require.Equal(t, "AP2024251", semester.ID)

	semester, ok = ResolveSemester(semesters, "winter semester 24-25")
	require.True(t, ok)
	require.Equal(t, "AP2024254", semester.ID)

	_, ok = ResolveSemester(semesters, "")
	require.False(t, ok)
	_, ok = ResolveSemester(nil, "winter")
	require.False(t, ok)
}

func TestParseTimetable(t *testing.T) {
	timetable, err := ParseTimetable(fixture(t, "timetable.html"), params)
	require.NoError(t, err)
	require.Equal(t, "AP2024254", timetable.SemesterID)

	expected := []TimetableSlot{
		{
			ClassID:    "AP2024254000123",
			CourseCode: "BCSE202L",
			CourseName: "Data Structures and Algorithms",
			CourseType: "Embedded Theory",
			Slot:       "A1+TA1",
			RoomNo:     "CB-302",
			Faculty:    "RAJESH KUMAR",
			School:     "SCOPE",
		},
		{
			ClassID:    "AP2024254000124",
			CourseCode: "BCSE202P",
			CourseName: "Data Structures and Algorithms Lab",
			CourseType: "Embedded Lab",
			Slot:       "L23+L24",
			RoomNo:     "CB-412",
			Faculty:    "RAJESH KUMAR",
			School:     "SCOPE",
		},
		{
			ClassID:    "AP2024254000200",
			CourseCode: "BSTS301P",
			CourseName: "Advanced Competitive Coding",
			CourseType: "Soft Skill",
			Slot:       "F1",
			Faculty:    "ANITA RAO",
		},
	}
	if diff := cmp.Diff(expected, timetable.Slots); diff != "" {
		t.Fatal(diff)
	}

	_, err = ParseTimetable("<p>nothing</p>", params)
	require.ErrorIs(t, err, ErrMissingTable)
}

func TestParseAttendance(t *testing.T) {
	attendance, err := ParseAttendance(fixture(t, "attendance.html"), params)
	require.NoError(t, err)
	require.Len(t, attendance.Records, 2)

	first := attendance.Records[0]
	require.Equal(t, "AP2024254000123", first.CourseID)
	require.Equal(t, "ETH", first.CourseType)
	require.Equal(t, "BCSE202L", first.CourseCode)
	require.Equal(t, "RAJESH KUMAR", first.Faculty)
	require.Equal(t, 27, first.Attended)
	require.Equal(t, 30, first.Total)
	require.Equal(t, 90.0, first.Percentage)

	second := attendance.Records[1]
	require.Empty(t, second.CourseID)
	require.Equal(t, "Soft Skill", second.CourseType)
	require.Zero(t, second.Attended)
}

func TestParseFullAttendance(t *testing.T) {
	detail := vtop.ReportParams{SemesterID: "AP2024254", CourseID: "AP2024254000123", CourseType: "ETH"}
	full, err := ParseFullAttendance(fixture(t, "full_attendance.html"), detail)
	require.NoError(t, err)

	require.Equal(t, "AP2024254000123", full.CourseID)
	require.Equal(t, "ETH", full.CourseType)
	require.Len(t, full.Entries, 3)
	require.Equal(t, 3, full.Total)
	require.Equal(t, 2, full.Attended)

	first := full.Entries[0]
	require.True(t, first.Date.Equal(time.Date(2024, time.August, 5, 0, 0, 0, 0, timezone.Location)))
	require.Equal(t, "A1", first.Slot)
	require.Equal(t, "MON 09:00-09:50", first.DayTime)
	require.Equal(t, "Present", first.Status)
}

func TestParseMarks(t *testing.T) {
	marks, err := ParseMarks(fixture(t, "marks.html"), params)
	require.NoError(t, err)
	require.Len(t, marks.Courses, 2)

	course := marks.Courses[0]
	require.Equal(t, "BCSE202L", course.CourseCode)
	require.Equal(t, "RAJESH KUMAR", course.Faculty)
	require.Equal(t, "A1+TA1", course.Slot)

	expected := []MarkComponent{
		{
			Title:           "Continuous Assessment Test - I",
			MaxMark:         50,
			Weightage:       15,
			Status:          "Present",
			Scored:          41.5,
			WeightageScored: 12.45,
		},
		{
			Title:           "Digital Assignment - I",
			MaxMark:         10,
			Weightage:       10,
			Status:          "Present",
			Scored:          9,
			WeightageScored: 9,
			Remark:          "Good",
		},
	}
	if diff := cmp.Diff(expected, course.Components); diff != "" {
		t.Fatal(diff)
	}
	require.Empty(t, marks.Courses[1].Components)
}

func TestParseExamSchedule(t *testing.T) {
	schedule, err := ParseExamSchedule(fixture(t, "exam_schedule.html"), params)
	require.NoError(t, err)
	require.Len(t, schedule.Exams, 2)

	cat := schedule.Exams[0]
	require.Equal(t, "CAT1", cat.ExamType)
	require.Equal(t, "BCSE202L", cat.CourseCode)
	require.Equal(t, "ETH", cat.CourseType)
	require.Equal(t, "FN", cat.Session)
	require.Equal(t, "09:30 AM - 11:00 AM", cat.ExamTime)
	require.Equal(t, "CB-201", cat.Venue)
	require.Equal(t, "14", cat.SeatNo)
	require.True(t, cat.Date.Equal(time.Date(2025, time.January, 6, 0, 0, 0, 0, timezone.Location)))

	fat := schedule.Exams[1]
	require.Equal(t, "FAT", fat.ExamType)
	require.True(t, fat.Date.IsZero())
}
