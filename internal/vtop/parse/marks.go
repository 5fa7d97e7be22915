package parse

import (
	"vtop-backend/internal/vtop"
	"vtop-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

type MarkComponent struct {
	Title           string  `json:"title"`
	MaxMark         float64 `json:"maxMark"`
	Weightage       float64 `json:"weightage"`
	Status          string  `json:"status"`
	Scored          float64 `json:"scored"`
	WeightageScored float64 `json:"weightageScored"`
	Remark          string  `json:"remark"`
}

type CourseMarks struct {
	ClassID     string          `json:"classId"`
	CourseCode  string          `json:"courseCode"`
	CourseTitle string          `json:"courseTitle"`
	CourseType  string          `json:"courseType"`
	Faculty     string          `json:"faculty"`
	Slot        string          `json:"slot"`
	Components  []MarkComponent `json:"components"`
}

type Marks struct {
	SemesterID string        `json:"semesterId"`
	Courses    []CourseMarks `json:"courses"`
}

// ParseMarks reads the mark view, where every course row is followed by a row
// holding a nested table of its assessment components.
func ParseMarks(html string, params vtop.ReportParams) (Marks, error) {
	doc := htmlutil.Parse(html)
	table, err := findTable(doc, "table.customTable")
	if err != nil {
		return Marks{}, err
	}

	result := Marks{
		SemesterID: params.SemesterID,
		Courses:    []CourseMarks{},
	}
	all := rows(table)
	if len(all) == 0 {
		return result, nil
	}
	cols := readColumns(all[0])

	for _, row := range all[1:] {
		nested := row.Find("table").First()
		if nested.Length() > 0 {
			if len(result.Courses) == 0 {
				continue
			}
			course := &result.Courses[len(result.Courses)-1]
			course.Components = append(course.Components, parseMarkComponents(nested)...)
			continue
		}

		rowCells := cells(row)
		if len(rowCells) < len(cols) {
			continue
		}
		course := CourseMarks{
			ClassID:     cols.text(rowCells, "Class Nbr", "Class Number"),
			CourseCode:  cols.text(rowCells, "Course Code"),
			CourseTitle: cols.text(rowCells, "Course Title"),
			CourseType:  cols.text(rowCells, "Course Type"),
			Faculty:     cols.text(rowCells, "Faculty"),
			Slot:        cols.text(rowCells, "Slot"),
			Components:  []MarkComponent{},
		}
		if course.CourseCode == "" {
			continue
		}
		faculty := splitDash(course.Faculty)
		if len(faculty) > 0 {
			course.Faculty = faculty[0]
		}
		result.Courses = append(result.Courses, course)
	}
	return result, nil
}

func parseMarkComponents(table *goquery.Selection) []MarkComponent {
	all := rows(table)
	if len(all) == 0 {
		return nil
	}
	cols := readColumns(all[0])

	var out []MarkComponent
	for _, row := range all[1:] {
		rowCells := cells(row)
		if len(rowCells) < len(cols) {
			continue
		}
		component := MarkComponent{
			Title:           cols.text(rowCells, "Mark Title", "Title"),
			MaxMark:         parseNumber(cols.text(rowCells, "Max. Mark", "Max Mark")),
			Weightage:       parseNumber(cols.text(rowCells, "Weightage %", "Weightage")),
			Status:          cols.text(rowCells, "Status"),
			Scored:          parseNumber(cols.text(rowCells, "Scored Mark")),
			WeightageScored: parseNumber(cols.text(rowCells, "Weightage Mark")),
			Remark:          cols.text(rowCells, "Remark"),
		}
		if component.Title == "" {
			continue
		}
		out = append(out, component)
	}
	return out
}
