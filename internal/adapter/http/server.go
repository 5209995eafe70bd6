package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/couchcryptid/weather-forecast-client/internal/domain"
	"github.com/couchcryptid/weather-forecast-client/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// AllReady combines checkers; it is ready only when every checker is.
func AllReady(checkers ...ReadinessChecker) ReadinessChecker {
	return readinessGroup(checkers)
}

type readinessGroup []ReadinessChecker

func (g readinessGroup) CheckReadiness(ctx context.Context) error {
	var errs []error
	for _, c := range g {
		if err := c.CheckReadiness(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LatestForecast provides the most recent live forecast snapshot.
type LatestForecast interface {
	Latest() *pipeline.Snapshot
}

// Server exposes health, readiness, metrics, and latest forecast HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// /v1/forecast/latest routes.
func NewServer(addr string, ready ReadinessChecker, latest LatestForecast, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/forecast/latest", handleLatest(latest))

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

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// latestResponse is the JSON form of a snapshot. Values are indexed
// [validity time][location][feature]; missing cells are null.
type latestResponse struct {
	ReceivedAt    time.Time                `json:"received_at"`
	Shape         [3]int                   `json:"shape"`
	ValidityTimes []time.Time              `json:"validity_times"`
	Locations     []domain.Location        `json:"locations"`
	Features      []domain.ForecastFeature `json:"features"`
	Values        [][][]*float64           `json:"values"`
}

func handleLatest(latest LatestForecast) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		snap := latest.Latest()
		if snap == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"status": "no live forecast received yet"})
			return
		}
		writeJSON(w, http.StatusOK, newLatestResponse(snap))
	}
}

func newLatestResponse(snap *pipeline.Snapshot) latestResponse {
	arr := snap.Array
	values := make([][][]*float64, arr.T)
	for t := range values {
		values[t] = make([][]*float64, arr.L)
		for l := range values[t] {
			row := make([]*float64, arr.F)
			for f := range row {
				if v := arr.At(t, l, f); !math.IsNaN(v) {
					row[f] = &v
				}
			}
			values[t][l] = row
		}
	}
	return latestResponse{
		ReceivedAt:    snap.ReceivedAt,
		Shape:         arr.Shape(),
		ValidityTimes: snap.ValidityTimes,
		Locations:     snap.Locations,
		Features:      snap.Features,
		Values:        values,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort health response
}
