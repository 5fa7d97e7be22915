package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"vtop-backend/internal/sessionstore"
	"vtop-backend/internal/vtop"
	"vtop-backend/internal/vtop/parse"
	"vtop-backend/lib/assert"
	"vtop-backend/lib/restyutil"
	"vtop-backend/lib/telemetry"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	report_login      = "api.login"
	report_report     = "api.report"
	report_purge      = "api.purge"
	report_purge_rows = "api.purge-rows"
)

type Options struct {
	Config Config
	Store  sessionstore.Store
	// Solver overrides the captcha service configured in Config.Vtop.
	Solver vtop.CaptchaSolver
	// Sink receives the pages of failed logins, it may be nil.
	Sink restyutil.Output
	Tel  telemetry.API
}

type Server struct {
	cfg      Config
	store    sessionstore.Store
	sessions sessionCache
	solver   vtop.CaptchaSolver
	sink     restyutil.Output
	tel      telemetry.API
}

func NewServer(opts Options) *Server {
	assert.NotNil(opts.Tel)

	s := &Server{
		cfg:    opts.Config,
		store:  opts.Store,
		solver: opts.Solver,
		sink:   opts.Sink,
		tel:    opts.Tel,
	}
	s.sessions = newSessionCache(opts.Store, opts.Config.sessionTtl(), opts.Tel, s.connect)
	return s
}

// connect creates a portal client, the password is empty for clients that
// resume a stored session.
func (s *Server) connect(username, authorizedID string) (*vtop.Client, error) {
	return s.newClient(vtop.NewCredentials(username, ""), authorizedID)
}

func (s *Server) newClient(creds vtop.Credentials, authorizedID string) (*vtop.Client, error) {
	return vtop.NewClient(creds, vtop.ClientOptions{
		Config:       s.cfg.Vtop,
		Solver:       s.solver,
		Sink:         s.sink,
		AuthorizedID: authorizedID,
		Tel:          telemetry.NewScopedAPI("vtop", s.tel),
	})
}

func (s *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(allowAnyOrigin)
	router.Use(logRequests(s.tel))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.Route("/api", func(r chi.Router) {
		if s.cfg.RequestsPerMinute > 0 {
			r.Use(rateLimitByIP(s.cfg.RequestsPerMinute))
		}
		r.Post("/vtop-login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.Post("/semesters", reportHandler(s, vtop.ReportSemesters, parse.ParseSemesters))
		r.Post("/timetable", reportHandler(s, vtop.ReportTimetable, parse.ParseTimetable))
		r.Post("/attendance", reportHandler(s, vtop.ReportAttendance, parse.ParseAttendance))
		r.Post("/full-attendance", reportHandler(s, vtop.ReportFullAttendance, parse.ParseFullAttendance))
		r.Post("/marks", reportHandler(s, vtop.ReportMarks, parse.ParseMarks))
		r.Post("/exam-schedule", reportHandler(s, vtop.ReportExamSchedule, parse.ParseExamSchedule))
	})

	return router
}

// PurgeLoop deletes expired sessions every interval until ctx is done.
func (s *Server) PurgeLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := s.store.Purge(ctx)
			if err != nil {
				s.tel.ReportBroken(report_purge, err)
				continue
			}
			s.tel.ReportCount(report_purge_rows, count)
		}
	}
}

type loginRequest struct {
	Username   string `json:"username" validate:"required,max=64"`
	Password   string `json:"password" validate:"required,max=256"`
	SemesterID string `json:"semesterId" validate:"max=128"`
}

type faculty struct {
	CabinID string `json:"cabinId"`
	Name    string `json:"name"`
}

type loginResponse struct {
	Success   bool             `json:"success"`
	Faculty   []faculty        `json:"faculty"`
	Semesters []parse.Semester `json:"semesters"`
	Session   string           `json:"session"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	username := strings.ToUpper(strings.TrimSpace(req.Username))

	client, err := s.newClient(vtop.NewCredentials(username, req.Password), "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create client", err)
		return
	}
	err = vtop.LoginWithRetry(ctx, client, s.cfg.LoginRetries, s.cfg.loginRetryDelay())
	if err != nil {
		s.tel.ReportWarning(report_login, client.Username(), err)
		writeError(w, http.StatusUnauthorized, "Login failed", err)
		return
	}

	semesters, err := vtop.Fetch(ctx, client, vtop.ReportSemesters, vtop.ReportParams{}, parse.ParseSemesters)
	if err != nil {
		writeError(w, statusFor(err), "Failed to fetch semesters", err)
		return
	}
	if len(semesters) == 0 {
		writeError(w, http.StatusNotFound, "No semesters found", nil)
		return
	}

	semesterID := semesters[0].ID
	if req.SemesterID != "" {
		semesterID = req.SemesterID
		if semester, ok := parse.ResolveSemester(semesters, req.SemesterID); ok {
			semesterID = semester.ID
		}
	}

	timetable, err := vtop.Fetch(
		ctx, client,
		vtop.ReportTimetable,
		vtop.ReportParams{SemesterID: semesterID},
		parse.ParseTimetable,
	)
	if err != nil {
		writeError(w, statusFor(err), "Failed to fetch timetable", err)
		return
	}

	cookie, err := client.ExportCookie()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to export session", err)
		return
	}
	id, err := s.store.Create(ctx, client.Username(), client.Session().AuthorizedID(), cookie)
	if err != nil {
		s.tel.ReportBroken(report_login, fmt.Errorf("save session: %w", err))
		writeError(w, http.StatusInternalServerError, "Failed to save session", err)
		return
	}
	s.sessions.Add(id, client)

	writeJson(w, http.StatusOK, loginResponse{
		Success:   true,
		Faculty:   uniqueFaculty(timetable),
		Semesters: semesters,
		Session:   id,
	})
}

// uniqueFaculty lists each cabin once in timetable order, faculty without a
// room get a placeholder cabin derived from their name.
func uniqueFaculty(timetable parse.Timetable) []faculty {
	seen := map[string]bool{}
	out := []faculty{}
	for _, slot := range timetable.Slots {
		if slot.Faculty == "" {
			continue
		}
		cabin := slot.RoomNo
		if cabin == "" {
			cabin = "UNKNOWN-" + strings.Join(strings.Fields(slot.Faculty), "-")
		}
		if seen[cabin] {
			continue
		}
		seen[cabin] = true
		out = append(out, faculty{CabinID: cabin, Name: slot.Faculty})
	}
	return out
}

type sessionRequest struct {
	Session string `json:"session" validate:"required,uuid"`
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !decode(w, r, &req) {
		return
	}
	err := s.sessions.Remove(r.Context(), req.Session)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete session", err)
		return
	}
	writeJson(w, http.StatusOK, map[string]bool{"success": true})
}

type reportRequest struct {
	Session    string `json:"session" validate:"required,uuid"`
	SemesterID string `json:"semesterId" validate:"max=128"`
	CourseID   string `json:"courseId" validate:"max=128"`
	CourseType string `json:"courseType" validate:"max=64"`
}

func reportHandler[T any](s *Server, report vtop.Report, parser vtop.Parser[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req reportRequest
		if !decode(w, r, &req) {
			return
		}
		params := vtop.ReportParams{
			SemesterID: req.SemesterID,
			CourseID:   req.CourseID,
			CourseType: req.CourseType,
		}

		var result T
		err := s.sessions.Use(ctx, req.Session, func(client *vtop.Client) error {
			var err error
			result, err = vtop.Fetch(ctx, client, report, params, parser)
			return err
		})
		if err != nil {
			s.tel.ReportDebug(report_report, report.String(), err)
			writeError(w, statusFor(err), fmt.Sprintf("Failed to fetch %s", report), err)
			return
		}
		writeJson(w, http.StatusOK, result)
	}
}
