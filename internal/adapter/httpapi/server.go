// Package httpapi exposes the service over HTTP: health and metrics
// endpoints plus a small JSON API for conditions, hurricane tracks, and
// per-session monitoring control.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ambakkou/stormwatch/internal/domain"
	"github.com/ambakkou/stormwatch/internal/notify"
)

// Evaluator produces weather conditions for a coordinate.
type Evaluator interface {
	Evaluate(ctx context.Context, lat, lng float64) (*domain.WeatherCondition, error)
	Hurricanes(ctx context.Context) []domain.HurricaneTrack
}

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes the HTTP surface.
type Server struct {
	httpServer *http.Server
	evaluator  Evaluator
	monitor    *notify.Monitor
	store      notify.Store
	logger     *slog.Logger
}

// NewServer wires the routes. /healthz, /readyz, and /metrics follow the
// operational conventions; everything else lives under /v1.
func NewServer(addr string, evaluator Evaluator, ready ReadinessChecker, monitor *notify.Monitor, store notify.Store, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		evaluator: evaluator,
		monitor:   monitor,
		store:     store,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/condition", s.handleCondition)
	mux.HandleFunc("GET /v1/hurricanes", s.handleHurricanes)
	mux.HandleFunc("POST /v1/monitor", s.handleMonitorStart)
	mux.HandleFunc("DELETE /v1/monitor", s.handleMonitorStop)
	mux.HandleFunc("GET /v1/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /v1/settings", s.handlePutSettings)
	mux.HandleFunc("POST /v1/alerts/dismiss", s.handleDismiss)

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

func (s *Server) handleCondition(w http.ResponseWriter, r *http.Request) {
	lat, lng, ok := coordinates(w, r)
	if !ok {
		return
	}

	cond, err := s.evaluator.Evaluate(r.Context(), lat, lng)
	if err != nil {
		s.logger.Error("evaluation failed", "error", err)
		writeError(w, http.StatusBadGateway, "evaluation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"condition": cond})
}

func (s *Server) handleHurricanes(w http.ResponseWriter, r *http.Request) {
	tracks := s.evaluator.Hurricanes(r.Context())
	if tracks == nil {
		tracks = []domain.HurricaneTrack{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"hurricanes": tracks})
}

func (s *Server) handleMonitorStart(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionID(w, r)
	if !ok {
		return
	}
	lat, lng, ok := coordinates(w, r)
	if !ok {
		return
	}

	// The loop outlives the request, so it runs on the server's context.
	s.monitor.Start(context.Background(), sessionID, lat, lng)
	writeJSON(w, http.StatusOK, map[string]string{"status": "monitoring"})
}

func (s *Server) handleMonitorStop(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionID(w, r)
	if !ok {
		return
	}
	s.monitor.Stop(sessionID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionID(w, r)
	if !ok {
		return
	}

	settings, err := s.store.LoadSettings(r.Context(), sessionID)
	if err != nil {
		s.logger.Error("loading settings failed", "session", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "loading settings failed")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionID(w, r)
	if !ok {
		return
	}

	var settings notify.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid settings payload")
		return
	}
	if err := s.monitor.UpdateSettings(r.Context(), sessionID, settings); err != nil {
		s.logger.Error("saving settings failed", "session", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "saving settings failed")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionID(w, r)
	if !ok {
		return
	}
	alertID := r.URL.Query().Get("alert")
	if alertID == "" {
		writeError(w, http.StatusBadRequest, "missing alert parameter")
		return
	}

	if err := s.monitor.Dismiss(r.Context(), sessionID, alertID); err != nil {
		s.logger.Error("dismissing alert failed", "session", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "dismissing alert failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "dismissed"})
}

func coordinates(w http.ResponseWriter, r *http.Request) (lat, lng float64, ok bool) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if errLat != nil || errLng != nil || !domain.ValidCoordinates(lat, lng) {
		writeError(w, http.StatusBadRequest, "invalid lat/lng parameters")
		return 0, 0, false
	}
	return lat, lng, true
}

func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.URL.Query().Get("session")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing session parameter")
		return "", false
	}
	return id, true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
