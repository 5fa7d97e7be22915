package vtop

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"vtop-backend/lib/htmlutil"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const report_fetch = "client.fetch"

// Report is a kind of academic record the portal serves to an authenticated
// session.
type Report int

const (
	ReportSemesters Report = iota
	ReportTimetable
	ReportAttendance
	ReportFullAttendance
	ReportMarks
	ReportExamSchedule
)

type reportEndpoint struct {
	name      string
	path      string
	multipart bool
	// the ReportParams fields that must be set
	requiresSemester bool
	requiresCourse   bool
}

var reportEndpoints = map[Report]reportEndpoint{
	ReportSemesters: {
		name: "semesters",
		path: pathSemesters,
	},
	ReportTimetable: {
		name:             "timetable",
		path:             pathTimetable,
		requiresSemester: true,
	},
	ReportAttendance: {
		name:             "attendance",
		path:             pathAttendance,
		requiresSemester: true,
	},
	ReportFullAttendance: {
		name:             "full-attendance",
		path:             pathFullAttendance,
		requiresSemester: true,
		requiresCourse:   true,
	},
	ReportMarks: {
		name:             "marks",
		path:             pathMarks,
		multipart:        true,
		requiresSemester: true,
	},
	ReportExamSchedule: {
		name:             "exam-schedule",
		path:             pathExamSchedule,
		multipart:        true,
		requiresSemester: true,
	},
}

func (r Report) String() string {
	endpoint, ok := reportEndpoints[r]
	if !ok {
		return fmt.Sprintf("report(%d)", int(r))
	}
	return endpoint.name
}

// ReportParams is the context a report is requested with, it is passed
// through to the parser unchanged.
type ReportParams struct {
	SemesterID string
	CourseID   string
	CourseType string
}

// Parser turns the raw HTML of a report into a structured record.
type Parser[T any] func(html string, params ReportParams) (T, error)

func (e reportEndpoint) validate(params ReportParams) error {
	if e.requiresSemester && params.SemesterID == "" {
		return fmt.Errorf("%w: %s requires a semester id", ErrMissingParam, e.name)
	}
	if e.requiresCourse && (params.CourseID == "" || params.CourseType == "") {
		return fmt.Errorf("%w: %s requires a course id and type", ErrMissingParam, e.name)
	}
	return nil
}

func (c *Client) reportForm(report Report, csrf string, params ReportParams) map[string]string {
	identity := c.identity()

	switch report {
	case ReportSemesters:
		return map[string]string{
			"verifyMenu":   "true",
			"authorizedID": identity,
			"_csrf":        csrf,
			"nocache":      strconv.FormatInt(time.Now().UnixMilli(), 10),
		}
	case ReportFullAttendance:
		return map[string]string{
			"_csrf":          csrf,
			"semesterSubId":  params.SemesterID,
			"registerNumber": identity,
			"courseId":       params.CourseID,
			"courseType":     params.CourseType,
			"authorizedID":   identity,
		}
	default:
		return map[string]string{
			"_csrf":         csrf,
			"semesterSubId": params.SemesterID,
			"authorizedID":  identity,
		}
	}
}

// FetchRaw requests a report and returns its HTML untouched. A response that
// fails or lands on the login page means the portal dropped the session, the
// client is marked unauthenticated and ErrSessionExpired is returned.
func (c *Client) FetchRaw(ctx context.Context, report Report, params ReportParams) (string, error) {
	ctx, span := tracer.Start(ctx, "FetchRaw")
	defer span.End()
	span.SetAttributes(attribute.String("vtop.report", report.String()))

	body, err := c.fetchRaw(ctx, report, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return "", err
	}
	return body, nil
}

func (c *Client) fetchRaw(ctx context.Context, report Report, params ReportParams) (string, error) {
	endpoint, ok := reportEndpoints[report]
	if !ok {
		return "", fmt.Errorf("unknown report %d", int(report))
	}

	if !c.session.IsAuthenticated() {
		return "", ErrSessionExpired
	}
	err := endpoint.validate(params)
	if err != nil {
		return "", err
	}
	csrf, ok := c.session.CSRFToken()
	if !ok {
		return "", fmt.Errorf("%w: no csrf token", ErrSessionExpired)
	}

	form := c.reportForm(report, csrf, params)
	req := c.http.R().SetContext(ctx)
	if endpoint.multipart {
		req.SetMultipartFormData(form)
	} else {
		req.SetFormData(form)
	}

	res, err := req.Post(endpoint.path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrNetwork, endpoint.name, err)
	}
	if !res.IsSuccess() || strings.Contains(finalPath(res), "login") {
		c.session.setAuthenticated(false)
		c.tel.ReportWarning(report_fetch, "session expired", endpoint.name, res.Status(), finalPath(res))
		return "", fmt.Errorf("%w: %s returned %s", ErrSessionExpired, endpoint.name, res.Status())
	}

	body := string(res.Body())
	if token, err := extractCSRFToken(htmlutil.Parse(body)); err == nil {
		c.session.setCSRFToken(token)
	}
	return body, nil
}

// Fetch requests a report and hands its HTML to parse.
func Fetch[T any](ctx context.Context, c *Client, report Report, params ReportParams, parse Parser[T]) (T, error) {
	var zero T

	body, err := c.FetchRaw(ctx, report, params)
	if err != nil {
		return zero, err
	}
	result, err := parse(body, params)
	if err != nil {
		c.tel.ReportBroken(report_fetch, fmt.Errorf("parse %s: %w", report, err))
		return zero, fmt.Errorf("%w: %s: %w", ErrParse, report, err)
	}
	return result, nil
}
