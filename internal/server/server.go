// Package server exposes an engine over HTTP.
//
// Routes:
//
//	GET    /healthz
//	GET    /functions
//	GET    /datasets
//	POST   /datasets                   {"path": "..."}
//	GET    /datasets/{name}
//	DELETE /datasets/{name}
//	GET    /datasets/{name}/comment
//	PUT    /datasets/{name}/comment    {"comment": "..."}
//	POST   /expressions/validate       {"expression": "..."}
//	POST   /expressions/evaluate       {"expression": "...", "anchor": "D1"}
//
// Failures are returned as a JSON body carrying the error kind.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/leapstack-labs/dataviz/internal/engine"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Server serves one engine. Datasets loaded through the API are shared by
// every client.
type Server struct {
	eng      *engine.Engine
	logger   *slog.Logger
	validate *validator.Validate
	router   chi.Router
}

// New creates a server for eng. A nil logger discards output.
func New(eng *engine.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		eng:      eng,
		logger:   logger.With(slog.String("component", "server")),
		validate: newValidator(),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(recoverer(s.logger))
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.fail(w, r, newRequestError(http.StatusNotFound, "route_not_found", "no route for "+r.Method+" "+r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.fail(w, r, newRequestError(http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" is not allowed on "+r.URL.Path))
	})

	r.Get("/healthz", s.health)
	r.Get("/functions", s.listFunctions)

	r.Route("/datasets", func(r chi.Router) {
		r.Get("/", s.listDatasets)
		r.Post("/", s.loadDataset)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", s.getDataset)
			r.Delete("/", s.deleteDataset)
			r.Get("/comment", s.getComment)
			r.Put("/comment", s.putComment)
		})
	})

	r.Route("/expressions", func(r chi.Router) {
		r.Post("/validate", s.validateExpression)
		r.Post("/evaluate", s.evaluateExpression)
	})

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
