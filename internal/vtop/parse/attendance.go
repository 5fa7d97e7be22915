package parse

import (
	"regexp"
	"time"

	"vtop-backend/internal/vtop"
	"vtop-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

type AttendanceRecord struct {
	CourseID   string  `json:"courseId"`
	CourseCode string  `json:"courseCode"`
	CourseName string  `json:"courseName"`
	CourseType string  `json:"courseType"`
	Slot       string  `json:"slot"`
	Faculty    string  `json:"faculty"`
	Attended   int     `json:"attended"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

type Attendance struct {
	SemesterID string             `json:"semesterId"`
	Records    []AttendanceRecord `json:"records"`
}

// detailCallRegex captures the course id and type passed to the detail view,
// ex. processViewAttendanceDetail('AP2024254000123','ETH').
var detailCallRegex = regexp.MustCompile(`'([^']+)'\s*,\s*'([^']+)'\s*\)`)

func detailArgs(row *goquery.Selection) (courseID, courseType string) {
	var found bool
	row.Find("a, button").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		for _, attr := range []string{"onclick", "href", "data-action"} {
			m := detailCallRegex.FindStringSubmatch(el.AttrOr(attr, ""))
			if m != nil {
				courseID, courseType = m[1], m[2]
				found = true
				return false
			}
		}
		return true
	})
	if !found {
		return "", ""
	}
	return courseID, courseType
}

func ParseAttendance(html string, params vtop.ReportParams) (Attendance, error) {
	doc := htmlutil.Parse(html)
	table, err := findTable(doc, "table#AttendanceDetailDataTable", "#getStudentDetails table", "table.table")
	if err != nil {
		return Attendance{}, err
	}

	result := Attendance{
		SemesterID: params.SemesterID,
		Records:    []AttendanceRecord{},
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
		record := AttendanceRecord{
			CourseCode: cols.text(rowCells, "Course Code"),
			CourseName: cols.text(rowCells, "Course Title", "Course Name"),
			CourseType: cols.text(rowCells, "Course Type"),
			Slot:       cols.text(rowCells, "Slot"),
			Faculty:    cols.text(rowCells, "Faculty Name", "Faculty"),
			Attended:   parseInt(cols.text(rowCells, "Attended Classes", "Attended")),
			Total:      parseInt(cols.text(rowCells, "Total Classes", "Total")),
			Percentage: parseNumber(cols.text(rowCells, "Attendance Percentage", "Percentage")),
		}
		if record.CourseCode == "" {
			continue
		}
		var detailType string
		record.CourseID, detailType = detailArgs(row)
		if detailType != "" {
			record.CourseType = detailType
		}
		result.Records = append(result.Records, record)
	}
	return result, nil
}

type AttendanceEntry struct {
	Date    time.Time `json:"date"`
	Slot    string    `json:"slot"`
	DayTime string    `json:"dayTime"`
	Status  string    `json:"status"`
}

type FullAttendance struct {
	SemesterID string            `json:"semesterId"`
	CourseID   string            `json:"courseId"`
	CourseType string            `json:"courseType"`
	Entries    []AttendanceEntry `json:"entries"`
	Attended   int               `json:"attended"`
	Total      int               `json:"total"`
}

func ParseFullAttendance(html string, params vtop.ReportParams) (FullAttendance, error) {
	doc := htmlutil.Parse(html)
	table, err := findTable(doc, "table#StudentAttendanceDetailDataTable", "table.table")
	if err != nil {
		return FullAttendance{}, err
	}

	result := FullAttendance{
		SemesterID: params.SemesterID,
		CourseID:   params.CourseID,
		CourseType: params.CourseType,
		Entries:    []AttendanceEntry{},
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
		date, ok := parseDate(cols.text(rowCells, "Date"))
		if !ok {
			continue
		}
		entry := AttendanceEntry{
			Date:    date,
			Slot:    cols.text(rowCells, "Slot"),
			DayTime: cols.text(rowCells, "Day / Time", "Day"),
			Status:  cols.text(rowCells, "Status", "Attendance Status"),
		}
		result.Entries = append(result.Entries, entry)
		result.Total++
		if entry.Status == "Present" || entry.Status == "On Duty" {
			result.Attended++
		}
	}
	return result, nil
}
