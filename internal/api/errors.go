package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"vtop-backend/internal/sessionstore"
	"vtop-backend/internal/vtop"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJson(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	res := errorResponse{Error: message}
	if err != nil {
		res.Details = err.Error()
	}
	writeJson(w, status, res)
}

// statusFor maps a portal error to the status returned to the app.
func statusFor(err error) int {
	switch {
	case errors.Is(err, vtop.ErrMissingParam):
		return http.StatusBadRequest
	case errors.Is(err, sessionstore.ErrNotFound),
		errors.Is(err, vtop.ErrSessionExpired),
		errors.Is(err, vtop.ErrInvalidCredentials),
		errors.Is(err, vtop.ErrAuthenticationFailed):
		return http.StatusUnauthorized
	case errors.Is(err, vtop.ErrNetwork),
		errors.Is(err, vtop.ErrServer),
		errors.Is(err, vtop.ErrSolverUnreachable),
		errors.Is(err, vtop.ErrCaptchaRequired):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
