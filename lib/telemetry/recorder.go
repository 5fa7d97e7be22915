package telemetry

import (
	"fmt"
	"strings"
	"sync"
)

// Report is a single call made against a Recorder.
type Report struct {
	Kind   string
	ID     string
	Params []any
}

func (r Report) String() string {
	var out strings.Builder
	out.WriteString(r.Kind)
	out.WriteString(" ")
	out.WriteString(r.ID)
	for _, p := range r.Params {
		out.WriteString(" ")
		out.WriteString(fmt.Sprint(p))
	}
	return out.String()
}

// Recorder is an API that keeps every report in memory, it is meant for tests.
type Recorder struct {
	lock    sync.Mutex
	reports []Report
}

func (r *Recorder) add(kind, id string, params []any) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.reports = append(r.reports, Report{Kind: kind, ID: id, Params: params})
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.add("broken", id, params)
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.add("warning", id, params)
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.add("debug", msg, params)
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.add("count", id, []any{count})
}

func (r *Recorder) Reports() []Report {
	r.lock.Lock()
	defer r.lock.Unlock()
	out := make([]Report, len(r.reports))
	copy(out, r.reports)
	return out
}

// Contains reports whether any recorded report mentions text.
func (r *Recorder) Contains(text string) bool {
	for _, report := range r.Reports() {
		if strings.Contains(report.String(), text) {
			return true
		}
	}
	return false
}
