package parse

import (
	"time"

	"vtop-backend/internal/vtop"
	"vtop-backend/lib/htmlutil"
)

type Exam struct {
	ExamType      string    `json:"examType"`
	CourseCode    string    `json:"courseCode"`
	CourseTitle   string    `json:"courseTitle"`
	CourseType    string    `json:"courseType"`
	ClassID       string    `json:"classId"`
	Slot          string    `json:"slot"`
	Date          time.Time `json:"date"`
	Session       string    `json:"session"`
	ReportingTime string    `json:"reportingTime"`
	ExamTime      string    `json:"examTime"`
	Venue         string    `json:"venue"`
	SeatLocation  string    `json:"seatLocation"`
	SeatNo        string    `json:"seatNo"`
}

type ExamSchedule struct {
	SemesterID string `json:"semesterId"`
	Exams      []Exam `json:"exams"`
}

// ParseExamSchedule reads the exam schedule table. Single cell rows name the
// exam type (CAT1, FAT, ...) of the rows below them. Exams whose date is not
// announced yet keep a zero Date.
func ParseExamSchedule(html string, params vtop.ReportParams) (ExamSchedule, error) {
	doc := htmlutil.Parse(html)
	table, err := findTable(doc, "table.customTable", "table.table")
	if err != nil {
		return ExamSchedule{}, err
	}

	result := ExamSchedule{
		SemesterID: params.SemesterID,
		Exams:      []Exam{},
	}

	var cols columns
	var examType string
	for _, row := range rows(table) {
		rowCells := cells(row)
		switch {
		case len(rowCells) == 1:
			examType = cellText(rowCells[0])
			continue
		case cols == nil || row.ChildrenFiltered("th").Length() > 0:
			cols = readColumns(row)
			continue
		case len(rowCells) < len(cols):
			continue
		}

		exam := Exam{
			ExamType:      examType,
			CourseCode:    cols.text(rowCells, "Course Code"),
			CourseTitle:   cols.text(rowCells, "Course Title"),
			CourseType:    cols.text(rowCells, "Course Type", "Type"),
			ClassID:       cols.text(rowCells, "Class ID", "Class Nbr"),
			Slot:          cols.text(rowCells, "Slot"),
			Session:       cols.text(rowCells, "Exam Session", "Session"),
			ReportingTime: cols.text(rowCells, "Reporting Time"),
			ExamTime:      cols.text(rowCells, "Exam Time"),
			Venue:         cols.text(rowCells, "Venue"),
			SeatLocation:  cols.text(rowCells, "Seat Location"),
			SeatNo:        cols.text(rowCells, "Seat No."),
		}
		if exam.CourseCode == "" {
			continue
		}
		if date, ok := parseDate(cols.text(rowCells, "Exam Date", "Date")); ok {
			exam.Date = date
		}
		result.Exams = append(result.Exams, exam)
	}
	return result, nil
}
