// Package api exposes the resolution engine over HTTP for tooling that
// cannot link the library directly (web UIs, editor integrations).
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/launchforge/forgekit/pkg/catalog"
	"github.com/launchforge/forgekit/pkg/resolve"
)

// Catalog is the read surface the API serves. *catalog.Memory satisfies
// it.
type Catalog interface {
	catalog.Provider
	catalog.BundleSource
	Services() []*catalog.Service
}

// Server serves the resolution API.
type Server struct {
	resolver *resolve.Resolver
	catalog  Catalog
	logger   *log.Logger
}

// NewServer creates an API server around a resolver and its catalog.
func NewServer(resolver *resolve.Resolver, cat Catalog, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{resolver: resolver, catalog: cat, logger: logger}
}

// Router builds the chi router with all routes registered.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/resolve", s.handleResolve)
		r.Post("/validate", s.handleValidate)
		r.Post("/suggest", s.handleSuggest)
		r.Post("/order", s.handleOrder)
		r.Post("/cycles", s.handleCycles)
		r.Get("/services", s.handleListServices)
		r.Get("/bundles", s.handleListBundles)
		r.Get("/bundles/{id}", s.handleGetBundle)
		r.Delete("/cache", s.handleClearCache)
	})

	return r
}

// ListenAndServe runs the server until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// logRequests logs one line per request with method, path, status, and
// latency.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Millisecond),
		)
	})
}
