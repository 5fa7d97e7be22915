package parse

import (
	"regexp"
	"strings"

	"vtop-backend/internal/vtop"
	"vtop-backend/lib/htmlutil"
)

type TimetableSlot struct {
	ClassID    string `json:"classId"`
	CourseCode string `json:"courseCode"`
	CourseName string `json:"courseName"`
	CourseType string `json:"courseType"`
	Slot       string `json:"slot"`
	RoomNo     string `json:"roomNo"`
	Faculty    string `json:"faculty"`
	School     string `json:"school"`
}

type Timetable struct {
	SemesterID string          `json:"semesterId"`
	Slots      []TimetableSlot `json:"slots"`
}

var courseTypeRegex = regexp.MustCompile(`\(\s*([^)]+?)\s*\)\s*$`)

// splitCourse splits "BCSE202L - Data Structures ( Embedded Theory )" into
// its code, title and type.
func splitCourse(text string) (code, title, courseType string) {
	if m := courseTypeRegex.FindStringSubmatch(text); m != nil {
		courseType = m[1]
		text = strings.TrimSpace(text[:len(text)-len(m[0])])
	}
	parts := splitDash(text)
	if len(parts) == 0 {
		return "", "", courseType
	}
	return parts[0], strings.Join(parts[1:], " - "), courseType
}

// ParseTimetable reads the registered course table of a semester. Rows that do not
// have a cell for every column, like the credit total, are skipped.
func ParseTimetable(html string, params vtop.ReportParams) (Timetable, error) {
	doc := htmlutil.Parse(html)
	table, err := findTable(doc, "#studentDetailsList table", "table#timeTableStyle", "table.table")
	if err != nil {
		return Timetable{}, err
	}

	result := Timetable{
		SemesterID: params.SemesterID,
		Slots:      []TimetableSlot{},
	}
	all := rows(table)
	if len(all) == 0 {
		return result, nil
	}
	cols := readColumns(all[0])

	for _, row := range all[1:] {
		rowCells := cells(row)
		if len(rowCells) < len(cols) {
			continue
		}

		code, title, courseType := splitCourse(cols.text(rowCells, "Course", "Course Title"))
		if code == "" {
			continue
		}
		slot := TimetableSlot{
			ClassID:    cols.text(rowCells, "Class Nbr", "Class Id"),
			CourseCode: code,
			CourseName: title,
			CourseType: courseType,
		}

		slotVenue := splitDash(cols.text(rowCells, "Slot - Venue", "Slot"))
		if len(slotVenue) > 0 {
			slot.Slot = slotVenue[0]
		}
		if len(slotVenue) > 1 {
			slot.RoomNo = slotVenue[1]
		}

		faculty := splitDash(cols.text(rowCells, "Faculty Details", "Faculty"))
		if len(faculty) > 0 {
			slot.Faculty = faculty[0]
		}
		if len(faculty) > 1 {
			slot.School = faculty[1]
		}

		result.Slots = append(result.Slots, slot)
	}
	return result, nil
}
