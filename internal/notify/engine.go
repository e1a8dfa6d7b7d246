// Package notify decides when a weather condition becomes a delivered
// notification. The Engine evaluates conditions for a coordinate; the Monitor
// runs that evaluation on a schedule per session and applies the suppression
// rules before handing urgent conditions to the sink.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/ambakkou/stormwatch/internal/aggregate"
	"github.com/ambakkou/stormwatch/internal/domain"
	"github.com/ambakkou/stormwatch/internal/observability"
)

// Store persists per-session preferences and dismissals.
type Store interface {
	LoadSettings(ctx context.Context, sessionID string) (Settings, error)
	SaveSettings(ctx context.Context, sessionID string, s Settings) error
	LoadDismissed(ctx context.Context, sessionID string) (map[string]bool, error)
	DismissAlert(ctx context.Context, sessionID, alertID string) error
}

// Notifier delivers an urgent condition to an external sink.
type Notifier interface {
	Notify(ctx context.Context, sessionID string, cond domain.WeatherCondition) error
}

// Engine turns a coordinate into at most one weather condition per
// evaluation.
type Engine struct {
	agg      *aggregate.Aggregator
	analyzer *domain.Analyzer
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool
}

func NewEngine(agg *aggregate.Aggregator, analyzer *domain.Analyzer, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{agg: agg, analyzer: analyzer, logger: logger, metrics: metrics}
}

// Evaluate fetches all capabilities for the coordinate and runs the analyzer.
// A nil condition with nil error means nothing noteworthy is happening.
func (e *Engine) Evaluate(ctx context.Context, lat, lng float64) (*domain.WeatherCondition, error) {
	if !domain.ValidCoordinates(lat, lng) {
		e.metrics.EvaluationErrors.Inc()
		return nil, fmt.Errorf("invalid coordinates: %.4f,%.4f", lat, lng)
	}

	timer := e.metrics.EvaluationDuration
	start := domain.Now()
	snap := e.agg.FetchAll(ctx, lat, lng)
	e.ready.Store(true)

	var readings []domain.Reading
	if snap.Reading.Source != aggregate.SourceNoData {
		readings = append(readings, snap.Reading)
	}

	cond := e.analyzer.Analyze(readings, snap.Alerts, snap.Tracks, snap.Forecast, lat, lng)
	e.metrics.Evaluations.Inc()
	timer.Observe(domain.Now().Sub(start).Seconds())

	if cond != nil {
		e.logger.Info("condition detected",
			"type", cond.Type, "severity", cond.Severity,
			"source", cond.Source, "data_source", cond.DataSource)
	}
	return cond, nil
}

// Hurricanes exposes the raw track list for the API surface.
func (e *Engine) Hurricanes(ctx context.Context) []domain.HurricaneTrack {
	return e.agg.Hurricanes(ctx)
}

// CheckReadiness fails until at least one evaluation has completed.
func (e *Engine) CheckReadiness(_ context.Context) error {
	if !e.ready.Load() {
		return errors.New("no evaluation completed yet")
	}
	return nil
}
