package student

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aanand-mishra/students-api/internal/storage"
	"github.com/aanand-mishra/students-api/internal/utils/response"
	"github.com/aanand-mishra/students-api/internal/validation"
)

var errInvalidID = errors.New("invalid id")

// pathID returns the {id} path value, writing a 400 if it is not a valid
// ObjectID. The store is never called with a malformed id.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if !storage.IsValidID(id) {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errInvalidID))
		return "", false
	}
	return id, true
}

var (
	errEmptyBody    = errors.New("request body is empty")
	errTrailingData = errors.New("request body must contain a single JSON value")
)

// decodeAndValidate reads the JSON body into v and runs v.Validate. On any
// failure it writes the error response and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v validation.Validatable) bool {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			err = errEmptyBody
		}
		writeDecodeError(w, err)
		return false
	}

	// Anything but whitespace after the first value is rejected.
	if err := dec.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		var maxErr *http.MaxBytesError
		if !errors.As(err, &maxErr) {
			err = errTrailingData
		}
		writeDecodeError(w, err)
		return false
	}

	if err := v.Validate(); err != nil {
		var verrs validation.Errors
		if errors.As(err, &verrs) {
			response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(verrs))
		} else {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		}
		return false
	}

	return true
}

// writeDecodeError answers 413 when the body hit the size limit and 400 for
// anything else.
func writeDecodeError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		response.WriteJSON(w, http.StatusRequestEntityTooLarge,
			response.GeneralError(fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)))
		return
	}
	response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
}
