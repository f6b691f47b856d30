// Package response provides helpers for writing consistent JSON HTTP
// responses.
//
// Success responses may be any JSON shape (a student, a list, an ack).
// Error responses always look like:
//
//	{ "error": "age must be less than or equal to 120" }
package response

import (
	"encoding/json"
	"net/http"

	"github.com/aanand-mishra/students-api/internal/validation"
)

// Response is the envelope returned for error cases.
type Response struct {
	Error string `json:"error"`
}

// Ack is the body of a successful delete.
type Ack struct {
	OK bool `json:"ok"`
}

// WriteJSON writes data as JSON with the given HTTP status code.
//
// Header() must be set before WriteHeader(), and WriteHeader() before any
// body bytes.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// GeneralError wraps any error into the error envelope.
func GeneralError(err error) Response {
	return Response{Error: err.Error()}
}

// ValidationError renders field errors as a single comma separated message:
//
//	{ "error": "name must be at least 2 characters, grades[1] must be less than or equal to 10" }
func ValidationError(errs validation.Errors) Response {
	return Response{Error: errs.Error()}
}
