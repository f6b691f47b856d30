// Package system holds the non-resource endpoints: the root probe, the
// readiness check and the JSON 404 for unmatched routes.
package system

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aanand-mishra/students-api/internal/utils/response"
	"github.com/rs/zerolog"
)

// healthTimeout bounds the store ping done by Health.
const healthTimeout = 2 * time.Second

// Pinger is the part of storage.Storage the readiness check needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Message is the root probe body.
type Message struct {
	Msg string `json:"msg"`
}

// HealthStatus is the readiness check body.
type HealthStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Root handles GET /.
func Root() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, Message{Msg: "API running"})
	}
}

// Health handles GET /healthz: 200 when the store answers a ping, 503
// otherwise.
func Health(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		start := time.Now()
		if err := store.Ping(ctx); err != nil {
			zerolog.Ctx(r.Context()).Error().
				Err(err).
				Dur("response_time", time.Since(start)).
				Msg("database health check failed")

			response.WriteJSON(w, http.StatusServiceUnavailable,
				HealthStatus{Status: "unavailable", Error: err.Error()})
			return
		}

		response.WriteJSON(w, http.StatusOK, HealthStatus{Status: "ok"})
	}
}

// NotFound answers every unmatched route with a JSON 404.
func NotFound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusNotFound,
			response.GeneralError(errors.New("route not found")))
	}
}
