// Package aggregate fans weather requests out across prioritized source
// adapters. Within one capability sources are tried strictly in priority
// order and the first success wins; later sources are never contacted once
// one has answered. Across capabilities the fetches run concurrently.
package aggregate

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ambakkou/stormwatch/internal/domain"
	"github.com/ambakkou/stormwatch/internal/observability"
)

// SourceNoData marks a result synthesized because every source failed.
const SourceNoData = "No Data Available"

// Aggregator holds the per-capability priority lists.
type Aggregator struct {
	current   []domain.CurrentProvider
	forecast  []domain.ForecastProvider
	alerts    []domain.AlertProvider
	hurricane []domain.HurricaneProvider

	logger  *slog.Logger
	metrics *observability.Metrics
}

func New(logger *slog.Logger, metrics *observability.Metrics) *Aggregator {
	return &Aggregator{logger: logger, metrics: metrics}
}

// AddCurrent appends a current-conditions source at the lowest priority.
func (a *Aggregator) AddCurrent(p domain.CurrentProvider) { a.current = append(a.current, p) }

func (a *Aggregator) AddForecast(p domain.ForecastProvider) { a.forecast = append(a.forecast, p) }

func (a *Aggregator) AddAlerts(p domain.AlertProvider) { a.alerts = append(a.alerts, p) }

func (a *Aggregator) AddHurricanes(p domain.HurricaneProvider) {
	a.hurricane = append(a.hurricane, p)
}

// Current returns conditions from the first source that answers. When every
// source fails the sentinel reading is returned instead of an error; the
// pipeline keeps running on degraded data.
func (a *Aggregator) Current(ctx context.Context, lat, lng float64) domain.Reading {
	for depth, p := range a.current {
		r, err := p.FetchCurrent(ctx, lat, lng)
		if err != nil {
			a.sourceFailed(p.Name(), "current", err)
			continue
		}
		a.sourceServed(p.Name(), "current", depth)
		return r
	}
	a.exhausted("current", len(a.current))
	return domain.Reading{
		Source:        SourceNoData,
		DataSource:    domain.DataSourceNone,
		ConditionText: SourceNoData,
		ObservedAt:    domain.Now().UTC(),
	}
}

// Forecast returns the first non-empty forecast. A source that succeeds with
// zero days is treated as having no data and the next source is tried.
func (a *Aggregator) Forecast(ctx context.Context, lat, lng float64) []domain.ForecastDay {
	for depth, p := range a.forecast {
		days, err := p.FetchForecast(ctx, lat, lng)
		if err != nil {
			a.sourceFailed(p.Name(), "forecast", err)
			continue
		}
		if len(days) == 0 {
			a.logger.Debug("source returned empty forecast", "source", p.Name())
			a.metrics.AdapterRequests.WithLabelValues(p.Name(), "forecast", "empty").Inc()
			continue
		}
		a.sourceServed(p.Name(), "forecast", depth)
		return days
	}
	a.exhausted("forecast", len(a.forecast))
	return nil
}

// Alerts returns the first successful alert response. An empty alert list is
// a valid answer (no active alerts), distinct from a failed fetch.
func (a *Aggregator) Alerts(ctx context.Context, lat, lng float64) []domain.Alert {
	for depth, p := range a.alerts {
		alerts, err := p.FetchAlerts(ctx, lat, lng)
		if err != nil {
			a.sourceFailed(p.Name(), "alerts", err)
			continue
		}
		a.sourceServed(p.Name(), "alerts", depth)
		return alerts
	}
	a.exhausted("alerts", len(a.alerts))
	return nil
}

// Hurricanes returns the first successful track response. As with alerts, an
// empty list means a quiet basin, not a failure.
func (a *Aggregator) Hurricanes(ctx context.Context) []domain.HurricaneTrack {
	for depth, p := range a.hurricane {
		tracks, err := p.FetchHurricanes(ctx)
		if err != nil {
			a.sourceFailed(p.Name(), "hurricanes", err)
			continue
		}
		a.sourceServed(p.Name(), "hurricanes", depth)
		return tracks
	}
	a.exhausted("hurricanes", len(a.hurricane))
	return nil
}

// Snapshot bundles one full fan-out for a coordinate.
type Snapshot struct {
	Reading  domain.Reading
	Forecast []domain.ForecastDay
	Alerts   []domain.Alert
	Tracks   []domain.HurricaneTrack
}

// FetchAll runs all four capabilities concurrently and waits for every one to
// settle. A capability failing only degrades its own slot.
func (a *Aggregator) FetchAll(ctx context.Context, lat, lng float64) Snapshot {
	var snap Snapshot
	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		snap.Reading = a.Current(ctx, lat, lng)
	}()
	go func() {
		defer wg.Done()
		snap.Forecast = a.Forecast(ctx, lat, lng)
	}()
	go func() {
		defer wg.Done()
		snap.Alerts = a.Alerts(ctx, lat, lng)
	}()
	go func() {
		defer wg.Done()
		snap.Tracks = a.Hurricanes(ctx)
	}()
	wg.Wait()
	return snap
}

func (a *Aggregator) sourceFailed(source, capability string, err error) {
	a.logger.Warn("source failed, trying next",
		"source", source, "capability", capability, "error", err)
	a.metrics.AdapterRequests.WithLabelValues(source, capability, "error").Inc()
}

func (a *Aggregator) sourceServed(source, capability string, depth int) {
	a.metrics.AdapterRequests.WithLabelValues(source, capability, "success").Inc()
	a.metrics.FallbackDepth.WithLabelValues(capability).Observe(float64(depth))
}

func (a *Aggregator) exhausted(capability string, sources int) {
	a.logger.Error("all sources failed", "capability", capability, "sources", sources)
	a.metrics.FallbackDepth.WithLabelValues(capability).Observe(float64(sources))
}
