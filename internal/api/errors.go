package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/spyglass/internal/camera"
	"github.com/smazurov/spyglass/internal/recording"
)

// Error is the JSON error body: {"error": "..."}.
type Error struct {
	status int
	Msg    string `json:"error"`
}

func (e *Error) Error() string { return e.Msg }

// GetStatus implements huma.StatusError.
func (e *Error) GetStatus() int { return e.status }

func init() {
	// every error huma produces, including validation failures, uses the
	// same body as the hand-written ones
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		details := make([]string, 0, len(errs))
		for _, err := range errs {
			if err != nil {
				details = append(details, err.Error())
			}
		}
		if len(details) > 0 {
			msg += ": " + strings.Join(details, "; ")
		}
		return &Error{status: status, Msg: msg}
	}
}

// mapError converts a domain error to an HTTP error.
func mapError(err error) huma.StatusError {
	var se huma.StatusError
	var applyErr *camera.ApplyError
	switch {
	case errors.As(err, &se):
		return se
	case errors.Is(err, recording.ErrInvalidName):
		return huma.Error403Forbidden("Invalid path")
	case errors.Is(err, recording.ErrNoDirectory):
		return huma.Error404NotFound("No recordings directory")
	case errors.Is(err, recording.ErrNotFound):
		return huma.Error404NotFound("File not found" + strings.TrimPrefix(err.Error(), recording.ErrNotFound.Error()))
	case errors.As(err, &applyErr):
		return huma.Error500InternalServerError(applyErr.Err.Error())
	default:
		return huma.Error500InternalServerError(err.Error())
	}
}

// writeError writes an error body outside of huma.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(&Error{status: status, Msg: msg})
}
