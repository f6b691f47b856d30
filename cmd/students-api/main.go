// main is the entry point of the Students API application.
//
// STARTUP SEQUENCE:
//  1. Load configuration (.env, optional YAML file, environment)
//  2. Initialise the logger
//  3. Open the configured store and wait until it answers a ping
//  4. Register all HTTP routes
//  5. Start the HTTP server in a separate goroutine
//  6. Block until an OS signal (Ctrl+C / kill) arrives
//  7. Gracefully shut down: finish in-flight requests, close the store
//
// RUNNING THE SERVER:
//
//	MONGODB_URI=mongodb://localhost:27017 PORT=3000 go run ./cmd/students-api
//
// or with a config file:
//
//	go run ./cmd/students-api --config=config/local.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aanand-mishra/students-api/internal/config"
	"github.com/aanand-mishra/students-api/internal/http/router"
	"github.com/aanand-mishra/students-api/internal/logger"
	"github.com/aanand-mishra/students-api/internal/storage"
	"github.com/aanand-mishra/students-api/internal/storage/mongodb"
	"github.com/aanand-mishra/students-api/internal/storage/sqlite"
)

const version = "1.0.0"

func main() {
	cfg := config.MustLoad()

	log := logger.New(cfg)
	log.Info().
		Str("env", cfg.Env).
		Str("version", version).
		Str("storage", cfg.Storage.Driver).
		Msg("starting students-api")

	ctx := context.Background()

	store, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise storage")
	}

	// Requests are not accepted until the store is confirmed reachable.
	pingCtx, cancelPing := context.WithTimeout(ctx, cfg.Storage.ConnectTimeout)
	err = store.Ping(pingCtx)
	cancelPing()
	if err != nil {
		log.Fatal().Err(err).Msg("storage is not reachable")
	}
	log.Info().Msg("storage initialised")

	server := &http.Server{
		Addr:         cfg.HTTPServer.Addr(),
		Handler:      router.New(cfg, store, log),
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info().Str("address", server.Addr).Msg("server started")

		// ErrServerClosed is the expected result of Shutdown.
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server encountered an error")
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	log.Info().Msg("shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.HTTPServer.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown server gracefully")
	}

	if err := store.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to close storage")
	}

	log.Info().Msg("server stopped gracefully")
}

// openStorage returns the backend selected by cfg.Storage.Driver.
func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverMongo:
		return mongodb.New(ctx, cfg)
	case config.DriverSQLite:
		return sqlite.New(cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
