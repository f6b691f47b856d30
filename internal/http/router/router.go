// Package router wires handlers and middleware into one http.Handler.
//
// Route table:
//
//	GET    /                 root probe
//	GET    /healthz          readiness (store ping)
//	POST   /students         create a student
//	GET    /students         list all students
//	GET    /students/{id}    get one student
//	PUT    /students/{id}    replace a student
//	PATCH  /students/{id}    partially update a student
//	DELETE /students/{id}    delete a student
package router

import (
	"net/http"

	"github.com/aanand-mishra/students-api/internal/config"
	"github.com/aanand-mishra/students-api/internal/http/handlers/student"
	"github.com/aanand-mishra/students-api/internal/http/handlers/system"
	"github.com/aanand-mishra/students-api/internal/http/middleware"
	"github.com/aanand-mishra/students-api/internal/storage"
	"github.com/rs/zerolog"
)

// New returns the fully wrapped handler for the server.
func New(cfg *config.Config, storage storage.Storage, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", system.Root())
	mux.HandleFunc("GET /healthz", system.Health(storage))

	mux.HandleFunc("POST /students", student.New(storage))
	mux.HandleFunc("GET /students", student.GetList(storage))
	mux.HandleFunc("GET /students/{id}", student.GetByID(storage))
	mux.HandleFunc("PUT /students/{id}", student.Update(storage))
	mux.HandleFunc("PATCH /students/{id}", student.Patch(storage))
	mux.HandleFunc("DELETE /students/{id}", student.Delete(storage))

	// anything else, including unknown methods on "/"
	mux.HandleFunc("/", system.NotFound())

	return middleware.Chain(mux,
		middleware.RequestID,
		middleware.Logger(log),
		middleware.Recover,
		middleware.CORS(cfg.HTTPServer.CORSAllowedOrigins),
		middleware.LimitBody(cfg.HTTPServer.MaxBodyBytes),
	)
}
