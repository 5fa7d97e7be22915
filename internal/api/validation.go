package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

const maxBodyBytes = 64 << 10

// decode reads a json body into out and validates it, on failure the error
// response has already been written.
func decode(w http.ResponseWriter, r *http.Request, out any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(out)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	err = validate.Struct(out)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", validationError(err))
		return false
	}
	return true
}

// validationError describes the first failing field without its value.
func validationError(err error) error {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return err
	}
	fe := fields[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s: this field is required", fe.Field())
	case "max":
		return fmt.Errorf("%s: must have a maximum of %s characters", fe.Field(), fe.Param())
	case "uuid":
		return fmt.Errorf("%s: must be a session id", fe.Field())
	default:
		return fmt.Errorf("%s: failed validation: %s", fe.Field(), fe.Tag())
	}
}
