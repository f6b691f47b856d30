package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/aanand-mishra/students-api/internal/utils/response"
	"github.com/rs/zerolog"
)

// Recover turns a handler panic into a 500 JSON error instead of a dropped
// connection.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			// net/http uses this sentinel to abort a response on purpose
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			zerolog.Ctx(r.Context()).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("recovered from panic")

			response.WriteJSON(w, http.StatusInternalServerError,
				response.GeneralError(errors.New("internal server error")))
		}()

		next.ServeHTTP(w, r)
	})
}
