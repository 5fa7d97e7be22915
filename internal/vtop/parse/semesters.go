package parse

import (
	"fmt"
	"strings"

	"vtop-backend/internal/vtop"
	"vtop-backend/lib/htmlutil"
	"vtop-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

type Semester struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ParseSemesters reads the semester picker of the timetable page, the placeholder
// option without a value is skipped.
func ParseSemesters(html string, _ vtop.ReportParams) ([]Semester, error) {
	doc := htmlutil.Parse(html)
	sel := doc.Find("select#semesterSubId")
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: select#semesterSubId", ErrMissingTable)
	}

	semesters := []Semester{}
	sel.First().Find("option").Each(func(_ int, option *goquery.Selection) {
		id := strings.TrimSpace(option.AttrOr("value", ""))
		if id == "" {
			return
		}
		semesters = append(semesters, Semester{
			ID:   id,
			Name: htmlutil.NormalizeText(option.Text()),
		})
	})
	return semesters, nil
}

// minSemesterSimilarity is the Jaro-Winkler score below which a name is not
// considered to refer to a semester.
const minSemesterSimilarity = 0.7

// ResolveSemester finds a semester by exact id or by its closest name.
func ResolveSemester(semesters []Semester, query string) (Semester, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Semester{}, false
	}
	for _, s := range semesters {
		if strings.EqualFold(s.ID, query) {
			return s, true
		}
	}

	names := make([]string, len(semesters))
	for i, s := range semesters {
		names[i] = s.Name
	}
	idx, similarity := textutil.BestMatch(query, names)
	if idx < 0 || similarity < minSemesterSimilarity {
		return Semester{}, false
	}
	return semesters[idx], true
}
