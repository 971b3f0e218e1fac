package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"cashflow/internal/logger"
	"cashflow/internal/models"
)

// maxBodyBytes bounds JSON and CSV request bodies
const maxBodyBytes = 10 << 20

// ErrConflict marks requests that cannot apply to the current state
var ErrConflict = errors.New("conflict")

// ErrorBody is the JSON shape of every error response
type ErrorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// WriteJSON writes v as JSON with the given status
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent
		fmt.Fprintf(w, `{"error":%q}`, err.Error())
	}
}

// StatusFor maps an error onto the HTTP status it should produce
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrLocked):
		return http.StatusLocked
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse logs err and sends it as a JSON error body. Internal errors
// are not echoed to the client.
func ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	body := ErrorBody{Error: err.Error()}

	var ve *models.ValidationError
	if errors.As(err, &ve) {
		body.Field = ve.Field
	}

	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		body.Error = http.StatusText(status)
	} else {
		log.Warn("Request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	WriteJSON(w, status, body)
}

// DecodeJSON reads a JSON request body into v. Malformed bodies are
// validation errors.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return &models.ValidationError{Field: "body", Reason: err.Error()}
	}
	return nil
}

// LimitBody caps the request body for uploads, raw or multipart
func LimitBody(w http.ResponseWriter, r *http.Request) io.Reader {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return r.Body
}

// ParseViewQuery reads the range and fill query parameters. An absent range
// falls back to def.
func ParseViewQuery(r *http.Request, def models.ViewRange) (models.ViewRange, bool, error) {
	q := r.URL.Query()

	vr := def
	if s := q.Get("range"); s != "" {
		parsed, err := models.ParseViewRange(s)
		if err != nil {
			return "", false, err
		}
		vr = parsed
	}

	fill := false
	if s := q.Get("fill"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return "", false, &models.ValidationError{Field: "fill", Value: s, Reason: "must be true or false"}
		}
		fill = b
	}
	return vr, fill, nil
}
