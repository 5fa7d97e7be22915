package api

import (
	"net/http"
	"time"

	"vtop-backend/lib/telemetry"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
)

const report_api_request = "api.request"

// allowAnyOrigin lets the mobile and web app call the api from any origin.
func allowAnyOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func rateLimitByIP(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded", nil)
		}),
	)
}

// logRequests reports the method, path, status and duration of every request.
// Bodies are never reported, the login body carries a password.
func logRequests(tel telemetry.API) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			tel.ReportDebug(
				report_api_request,
				middleware.GetReqID(r.Context()),
				r.Method,
				r.URL.Path,
				ww.Status(),
				time.Since(start).String(),
			)
		})
	}
}
