package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"vtop-backend/internal/sessionstore"
	"vtop-backend/internal/vtop"
	"vtop-backend/internal/vtop/parse"
	"vtop-backend/internal/vtop/vtoptest"
	"vtop-backend/lib/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*Server
	handler  http.Handler
	store    sessionstore.Store
	solver   *vtoptest.Solver
	recorder *telemetry.Recorder
}

func fixture(t testing.TB, name string) string {
	t.Helper()
	contents, err := os.ReadFile(filepath.Join("..", "vtop", "parse", "testdata", name))
	require.NoError(t, err)
	return string(contents)
}

func newPortal(t testing.TB) *vtoptest.Portal {
	portal := vtoptest.NewPortal(t)
	portal.SetPage(vtoptest.PathSemesters, fixture(t, "semesters.html"))
	portal.SetPage(vtoptest.PathTimetable, fixture(t, "timetable.html"))
	return portal
}

func newStore(t testing.TB) sessionstore.Store {
	store, err := sessionstore.Open(":memory:", time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func newTestServer(t testing.TB, portal *vtoptest.Portal, store sessionstore.Store, edit ...func(*Config)) testServer {
	cfg := DefaultConfig()
	cfg.Vtop = vtop.Config{
		BaseUrl:            portal.URL(),
		VerifyCertificates: true,
	}
	cfg.LoginRetryDelayMs = 1
	cfg.RequestsPerMinute = 0
	for _, fn := range edit {
		fn(&cfg)
	}

	solver := &vtoptest.Solver{}
	recorder := &telemetry.Recorder{}
	server := NewServer(Options{
		Config: cfg,
		Store:  store,
		Solver: solver,
		Tel:    recorder,
	})
	return testServer{
		Server:   server,
		handler:  server.Router(),
		store:    store,
		solver:   solver,
		recorder: recorder,
	}
}

func (s testServer) post(t testing.TB, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	encoded, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(encoded))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	s.handler.ServeHTTP(res, req)
	return res
}

func decodeBody[T any](t testing.TB, res *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &out), res.Body.String())
	return out
}

func (s testServer) login(t testing.TB) loginResponse {
	t.Helper()
	res := s.post(t, "/api/vtop-login", map[string]string{
		"username": vtoptest.Username,
		"password": vtoptest.Password,
	})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	return decodeBody[loginResponse](t, res)
}

func TestLogin(t *testing.T) {
	portal := newPortal(t)
	server := newTestServer(t, portal, newStore(t))

	body := server.login(t)
	require.True(t, body.Success)
	require.NoError(t, uuid.Validate(body.Session))
	require.Len(t, body.Semesters, 3)
	require.Equal(t, "AP2024254", body.Semesters[0].ID)

	diff := cmp.Diff([]faculty{
		{CabinID: "CB-302", Name: "RAJESH KUMAR"},
		{CabinID: "CB-412", Name: "RAJESH KUMAR"},
		{CabinID: "UNKNOWN-ANITA-RAO", Name: "ANITA RAO"},
	}, body.Faculty)
	require.Empty(t, diff)

	require.Equal(t, 1, server.solver.Count())
	require.Equal(t, "AP2024254", portal.ReportForm(vtoptest.PathTimetable).Get("semesterSubId"))

	session, err := server.store.Get(context.Background(), body.Session)
	require.NoError(t, err)
	require.Equal(t, vtoptest.Regno, session.Username)
	require.Equal(t, vtoptest.Regno, session.AuthorizedID)
	require.NotEmpty(t, session.Cookie)

	require.False(t, server.recorder.Contains(vtoptest.Password))
}

func TestLoginSemesterByName(t *testing.T) {
	portal := newPortal(t)
	server := newTestServer(t, portal, newStore(t))

	res := server.post(t, "/api/vtop-login", map[string]string{
		"username":   vtoptest.Username,
		"password":   vtoptest.Password,
		"semesterId": "fall semester 2024-25",
	})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	require.Equal(t, "AP2024251", portal.ReportForm(vtoptest.PathTimetable).Get("semesterSubId"))
}

func TestLoginValidation(t *testing.T) {
	server := newTestServer(t, newPortal(t), newStore(t))

	res := server.post(t, "/api/vtop-login", map[string]string{
		"username": vtoptest.Username,
	})
	require.Equal(t, http.StatusBadRequest, res.Code)
	body := decodeBody[errorResponse](t, res)
	require.Contains(t, body.Details, "Password")

	req := httptest.NewRequest(http.MethodPost, "/api/vtop-login", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	server.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginInvalidCredentials(t *testing.T) {
	portal := newPortal(t)
	server := newTestServer(t, portal, newStore(t))

	res := server.post(t, "/api/vtop-login", map[string]string{
		"username": vtoptest.Username,
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, res.Code)
	require.Equal(t, "Login failed", decodeBody[errorResponse](t, res).Error)

	_, logins, _ := portal.Stats()
	require.Equal(t, 1, logins)
}

func TestLoginRetriesTransientFailure(t *testing.T) {
	portal := newPortal(t)
	portal.Outcomes = []string{
		vtoptest.OutcomeCaptcha,
		vtoptest.OutcomeCaptcha,
		vtoptest.OutcomeCaptcha,
		vtoptest.OutcomeCaptcha,
	}
	server := newTestServer(t, portal, newStore(t))

	body := server.login(t)
	require.True(t, body.Success)
	require.Equal(t, 5, server.solver.Count())
}

func TestLoginNoSemesters(t *testing.T) {
	portal := newPortal(t)
	portal.SetPage(vtoptest.PathSemesters, `<select id="semesterSubId"><option value="">--</option></select>`)
	server := newTestServer(t, portal, newStore(t))

	res := server.post(t, "/api/vtop-login", map[string]string{
		"username": vtoptest.Username,
		"password": vtoptest.Password,
	})
	require.Equal(t, http.StatusNotFound, res.Code)
	require.Equal(t, "No semesters found", decodeBody[errorResponse](t, res).Error)
}

func TestReportCachedSession(t *testing.T) {
	portal := newPortal(t)
	server := newTestServer(t, portal, newStore(t))
	login := server.login(t)

	res := server.post(t, "/api/timetable", map[string]string{
		"session":    login.Session,
		"semesterId": "AP2024251",
	})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	timetable := decodeBody[parse.Timetable](t, res)
	require.Equal(t, "AP2024251", timetable.SemesterID)
	require.Len(t, timetable.Slots, 3)
	require.Equal(t, 1, server.solver.Count())

	_, _, stale := portal.Stats()
	require.Zero(t, stale)
}

func TestReportResumesStoredSession(t *testing.T) {
	portal := newPortal(t)
	store := newStore(t)
	login := newTestServer(t, portal, store).login(t)
	_, loginsBefore, _ := portal.Stats()

	// a restarted server has nothing cached
	restarted := newTestServer(t, portal, store)
	res := restarted.post(t, "/api/semesters", map[string]string{
		"session": login.Session,
	})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	require.Len(t, decodeBody[[]parse.Semester](t, res), 3)

	_, loginsAfter, stale := portal.Stats()
	require.Equal(t, loginsBefore, loginsAfter)
	require.Zero(t, restarted.solver.Count())
	require.Zero(t, stale)
	require.Equal(t, vtoptest.Regno, portal.ReportForm(vtoptest.PathSemesters).Get("authorizedID"))
}

func TestReportConcurrentResume(t *testing.T) {
	portal := newPortal(t)
	store := newStore(t)
	login := newTestServer(t, portal, store).login(t)
	loads := portal.OpenPageLoads()

	restarted := newTestServer(t, portal, store)
	codes := make([]int, 8)
	var wg sync.WaitGroup
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res := restarted.post(t, "/api/semesters", map[string]string{
				"session": login.Session,
			})
			codes[i] = res.Code
		}(i)
	}
	wg.Wait()

	for _, code := range codes {
		require.Equal(t, http.StatusOK, code)
	}
	// every request shares one resume of the stored session
	require.Equal(t, loads+1, portal.OpenPageLoads())
	_, _, stale := portal.Stats()
	require.Zero(t, stale)
}

func TestReportExpiredSessionStoreFailure(t *testing.T) {
	portal := newPortal(t)
	server := newTestServer(t, portal, newStore(t))
	login := server.login(t)

	portal.Expire()
	require.NoError(t, server.store.Close())
	res := server.post(t, "/api/timetable", map[string]string{
		"session":    login.Session,
		"semesterId": "AP2024254",
	})
	require.Equal(t, http.StatusUnauthorized, res.Code)
	require.True(t, server.recorder.Contains(report_session_store))
}

func TestReportExpiredSession(t *testing.T) {
	portal := newPortal(t)
	server := newTestServer(t, portal, newStore(t))
	login := server.login(t)

	portal.Expire()
	res := server.post(t, "/api/timetable", map[string]string{
		"session":    login.Session,
		"semesterId": "AP2024254",
	})
	require.Equal(t, http.StatusUnauthorized, res.Code)

	_, err := server.store.Get(context.Background(), login.Session)
	require.ErrorIs(t, err, sessionstore.ErrNotFound)

	res = server.post(t, "/api/timetable", map[string]string{
		"session":    login.Session,
		"semesterId": "AP2024254",
	})
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestReportUnknownSession(t *testing.T) {
	server := newTestServer(t, newPortal(t), newStore(t))

	res := server.post(t, "/api/attendance", map[string]string{
		"session":    uuid.NewString(),
		"semesterId": "AP2024254",
	})
	require.Equal(t, http.StatusUnauthorized, res.Code)

	res = server.post(t, "/api/attendance", map[string]string{
		"session": "not-a-session",
	})
	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestReportMissingParam(t *testing.T) {
	server := newTestServer(t, newPortal(t), newStore(t))
	login := server.login(t)

	res := server.post(t, "/api/full-attendance", map[string]string{
		"session":    login.Session,
		"semesterId": "AP2024254",
	})
	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestLogout(t *testing.T) {
	server := newTestServer(t, newPortal(t), newStore(t))
	login := server.login(t)

	res := server.post(t, "/api/logout", map[string]string{"session": login.Session})
	require.Equal(t, http.StatusOK, res.Code)

	res = server.post(t, "/api/semesters", map[string]string{"session": login.Session})
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestHealthz(t *testing.T) {
	server := newTestServer(t, newPortal(t), newStore(t))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	server.handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "*", res.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	server := newTestServer(t, newPortal(t), newStore(t), func(c *Config) {
		c.RequestsPerMinute = 2
	})

	for range 2 {
		res := server.post(t, "/api/logout", map[string]string{"session": uuid.NewString()})
		require.Equal(t, http.StatusOK, res.Code)
	}
	res := server.post(t, "/api/logout", map[string]string{"session": uuid.NewString()})
	require.Equal(t, http.StatusTooManyRequests, res.Code)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{vtop.ErrMissingParam, http.StatusBadRequest},
		{vtop.ErrSessionExpired, http.StatusUnauthorized},
		{sessionstore.ErrNotFound, http.StatusUnauthorized},
		{vtop.ErrNetwork, http.StatusBadGateway},
		{vtop.ErrSolverUnreachable, http.StatusBadGateway},
		{vtop.ErrParse, http.StatusInternalServerError},
	}
	for _, c := range cases {
		require.Equal(t, c.want, statusFor(c.err), c.err.Error())
	}
}
