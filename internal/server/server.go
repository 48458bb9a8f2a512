// Package server exposes the EDGAR client over HTTP: health and metrics
// endpoints plus read-only JSON routes that go through the shared request
// budget and cache.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/sec-edgar-client/pkg/client"
	"github.com/Sternrassler/sec-edgar-client/pkg/facts"
	"github.com/Sternrassler/sec-edgar-client/pkg/filing"
	"github.com/Sternrassler/sec-edgar-client/pkg/logging"
	"github.com/Sternrassler/sec-edgar-client/pkg/metrics"
	"github.com/Sternrassler/sec-edgar-client/pkg/pagination"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Service is the part of the EDGAR client the routes use.
type Service interface {
	Submissions(ctx context.Context, company string, paginate bool) (*pagination.Document, error)
	CompanyFacts(ctx context.Context, company string) (*facts.Document, error)
	CompanyConcept(ctx context.Context, company, taxonomy, tag string) (json.RawMessage, error)
}

// Server is the HTTP server.
type Server struct {
	router  *chi.Mux
	service Service
	addr    string
	logger  zerolog.Logger
}

// New creates a server for service listening on addr.
func New(service Service, addr string) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		service: service,
		addr:    addr,
		logger:  logging.NewLogger("server"),
	}

	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/submissions/{company}", s.handleSubmissions)
		r.Get("/facts/{company}", s.handleFacts)
		r.Get("/concept/{company}/{taxonomy}/{tag}", s.handleConcept)
	})
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully within
// shutdownTimeout.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSubmissions(w http.ResponseWriter, r *http.Request) {
	paginate, _ := strconv.ParseBool(r.URL.Query().Get("paginate"))
	doc, err := s.service.Submissions(r.Context(), chi.URLParam(r, "company"), paginate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleFacts(w http.ResponseWriter, r *http.Request) {
	doc, err := s.service.CompanyFacts(r.Context(), chi.URLParam(r, "company"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleConcept(w http.ResponseWriter, r *http.Request) {
	raw, err := s.service.CompanyConcept(r.Context(),
		chi.URLParam(r, "company"), chi.URLParam(r, "taxonomy"), chi.URLParam(r, "tag"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, raw)
}

// statusOf maps client errors onto the status returned to the caller.
func statusOf(err error) int {
	var verr *filing.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest
	}
	var terr *client.TransportError
	if errors.As(err, &terr) && terr.StatusCode == http.StatusNotFound {
		return http.StatusNotFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, client.ErrContextCancelled) {
		return 499
	}
	return http.StatusBadGateway
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	s.logger.Warn().
		Err(err).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("Request failed")
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Str("request_id", middleware.GetReqID(r.Context())).
			Dur("duration", time.Since(start)).
			Msg("Request served")
	})
}
