package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/bousai-map/internal/domain"
	"github.com/couchcryptid/bousai-map/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DatasetBuilder produces a fresh shelter dataset per call.
type DatasetBuilder interface {
	Build(ctx context.Context) (domain.Dataset, error)
}

// Server exposes the shelter API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	builder    DatasetBuilder
	logger     *slog.Logger
	metrics    *observability.Metrics
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewServer creates an HTTP server with /api/shelters, /healthz, /readyz, and /metrics routes.
func NewServer(
	addr string,
	builder DatasetBuilder,
	ready sharedobs.ReadinessChecker,
	allowedOrigins []string,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Server {
	r := mux.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		builder: builder,
		logger:  logger,
		metrics: metrics,
	}

	r.Use(requestIDMiddleware, corsMiddleware(allowedOrigins), s.instrument)

	r.HandleFunc("/api/shelters", s.handleShelters).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/healthz", sharedobs.LivenessHandler()).Methods(http.MethodGet)
	r.HandleFunc("/readyz", sharedobs.ReadinessHandler(ready)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handleShelters rebuilds the dataset from the source and returns
// {"geoJson": FeatureCollection, "districts": [...]}. The optional district
// query narrows geoJson; districts always lists every option.
func (s *Server) handleShelters(w http.ResponseWriter, r *http.Request) {
	ds, err := s.builder.Build(r.Context())
	if err != nil {
		s.writeBuildError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, ds.FilterByDistrict(r.URL.Query().Get("district")))
}

// writeBuildError maps a fatal build error to 404 (source missing) or 500.
func (s *Server) writeBuildError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "failed to process data: " + err.Error()

	var srcErr *domain.SourceError
	if errors.As(err, &srcErr) {
		msg = srcErr.Error()
	}
	if errors.Is(err, domain.ErrSourceNotFound) {
		status = http.StatusNotFound
	}

	s.logger.Error("dataset build failed",
		"error", err,
		"status", status,
		"request_id", RequestIDFromContext(r.Context()),
	)
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
