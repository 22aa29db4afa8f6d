package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Shyboy443/EduflexKotlin-sub004/internal/ai"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/auth"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/authoring"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/blob"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/docstore"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/education"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/progress"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

// errBadRequest marks malformed requests.
var errBadRequest = errors.New("bad request")

// result is the body of a successful mutation: the notice to show and the
// stored record.
type result struct {
	Notice authoring.Notice `json:"notice"`
	Data   any              `json:"data,omitempty"`
}

// errorBody is the body of a failed request.
type errorBody struct {
	Notice authoring.Notice        `json:"notice"`
	Fields []education.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func writeResult(w http.ResponseWriter, status int, data any, format string, args ...any) error {
	writeJSON(w, status, result{Notice: authoring.Success(format, args...), Data: data})
	return nil
}

// statusFor maps operation errors to HTTP status codes.
func statusFor(err error) int {
	var verr *education.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, authoring.ErrForbidden), errors.Is(err, authoring.ErrWrongPasscode):
		return http.StatusForbidden
	case errors.Is(err, docstore.ErrNotFound), errors.Is(err, progress.ErrNotFound), errors.Is(err, blob.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, docstore.ErrAlreadyExists), errors.Is(err, authoring.ErrInvalidTransition), errors.Is(err, authoring.ErrLectureClosed),
		errors.Is(err, authoring.ErrUploadIDInUse):
		return http.StatusConflict
	case errors.Is(err, docstore.ErrInvalidPath), errors.Is(err, blob.ErrInvalidKey):
		return http.StatusBadRequest
	case errors.Is(err, ai.ErrBudgetExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, authoring.ErrGenerationUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, authoring.ErrInvalidDraft):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Notice: authoring.Failure(err)}

	var verr *education.ValidationError
	switch {
	case errors.As(err, &verr):
		body.Fields = verr.Fields
	case status == http.StatusBadRequest:
		body.Notice.Message = err.Error()
	case status == http.StatusUnauthorized:
		body.Notice.Message = "Please sign in"
	}

	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	writeJSON(w, status, body)
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", errBadRequest)
		}
		return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}
	return nil
}
