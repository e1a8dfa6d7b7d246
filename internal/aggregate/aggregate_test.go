package aggregate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambakkou/stormwatch/internal/domain"
	"github.com/ambakkou/stormwatch/internal/observability"
)

type fakeSource struct {
	name    string
	reading domain.Reading
	days    []domain.ForecastDay
	alerts  []domain.Alert
	tracks  []domain.HurricaneTrack
	err     error
	calls   atomic.Int64
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) FetchCurrent(context.Context, float64, float64) (domain.Reading, error) {
	f.calls.Add(1)
	return f.reading, f.err
}

func (f *fakeSource) FetchForecast(context.Context, float64, float64) ([]domain.ForecastDay, error) {
	f.calls.Add(1)
	return f.days, f.err
}

func (f *fakeSource) FetchAlerts(context.Context, float64, float64) ([]domain.Alert, error) {
	f.calls.Add(1)
	return f.alerts, f.err
}

func (f *fakeSource) FetchHurricanes(context.Context) ([]domain.HurricaneTrack, error) {
	f.calls.Add(1)
	return f.tracks, f.err
}

func testAggregator() *Aggregator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(logger, observability.NewMetricsForTesting())
}

func TestCurrent_FirstSourceWins(t *testing.T) {
	a := testAggregator()
	first := &fakeSource{name: "A", reading: domain.Reading{Source: "A", TemperatureC: 20}}
	second := &fakeSource{name: "B", reading: domain.Reading{Source: "B", TemperatureC: 30}}
	a.AddCurrent(first)
	a.AddCurrent(second)

	r := a.Current(context.Background(), 25.77, -80.19)
	assert.Equal(t, "A", r.Source)
	assert.Equal(t, int64(0), second.calls.Load())
}

func TestCurrent_FallsThroughOnError(t *testing.T) {
	a := testAggregator()
	first := &fakeSource{name: "A", err: errors.New("down")}
	second := &fakeSource{name: "B", reading: domain.Reading{Source: "B"}}
	third := &fakeSource{name: "C", reading: domain.Reading{Source: "C"}}
	a.AddCurrent(first)
	a.AddCurrent(second)
	a.AddCurrent(third)

	r := a.Current(context.Background(), 25.77, -80.19)
	assert.Equal(t, "B", r.Source)
	assert.Equal(t, int64(1), first.calls.Load())
	assert.Equal(t, int64(0), third.calls.Load())
}

func TestCurrent_AllFailYieldsSentinel(t *testing.T) {
	a := testAggregator()
	a.AddCurrent(&fakeSource{name: "A", err: errors.New("down")})
	a.AddCurrent(&fakeSource{name: "B", err: errors.New("down")})

	r := a.Current(context.Background(), 25.77, -80.19)
	assert.Equal(t, SourceNoData, r.Source)
	assert.Equal(t, SourceNoData, r.ConditionText)
	// The sentinel is synthesized, so it never claims to be real data.
	assert.Equal(t, domain.DataSourceNone, r.DataSource)
	assert.False(t, r.ObservedAt.IsZero())
}

func TestCurrent_NoSourcesYieldsSentinel(t *testing.T) {
	a := testAggregator()
	r := a.Current(context.Background(), 25.77, -80.19)
	assert.Equal(t, SourceNoData, r.Source)
}

func TestForecast_EmptyResultFallsThrough(t *testing.T) {
	a := testAggregator()
	first := &fakeSource{name: "A"} // succeeds with zero days
	second := &fakeSource{name: "B", days: []domain.ForecastDay{{Source: "B"}}}
	a.AddForecast(first)
	a.AddForecast(second)

	days := a.Forecast(context.Background(), 25.77, -80.19)
	require.Len(t, days, 1)
	assert.Equal(t, "B", days[0].Source)
}

func TestForecast_AllFailYieldsNil(t *testing.T) {
	a := testAggregator()
	a.AddForecast(&fakeSource{name: "A", err: errors.New("down")})

	assert.Nil(t, a.Forecast(context.Background(), 25.77, -80.19))
}

func TestAlerts_EmptyListIsAValidAnswer(t *testing.T) {
	a := testAggregator()
	first := &fakeSource{name: "A"} // no active alerts
	second := &fakeSource{name: "B", alerts: []domain.Alert{{ID: "x"}}}
	a.AddAlerts(first)
	a.AddAlerts(second)

	alerts := a.Alerts(context.Background(), 25.77, -80.19)
	assert.Empty(t, alerts)
	assert.Equal(t, int64(0), second.calls.Load())
}

func TestHurricanes_FallsThroughOnError(t *testing.T) {
	a := testAggregator()
	first := &fakeSource{name: "A", err: errors.New("down")}
	second := &fakeSource{name: "B", tracks: []domain.HurricaneTrack{{ID: "al092026"}}}
	a.AddHurricanes(first)
	a.AddHurricanes(second)

	tracks := a.Hurricanes(context.Background())
	require.Len(t, tracks, 1)
	assert.Equal(t, "al092026", tracks[0].ID)
}

func TestFetchAll_CapabilitiesAreIndependent(t *testing.T) {
	a := testAggregator()
	a.AddCurrent(&fakeSource{name: "A", err: errors.New("down")})
	a.AddForecast(&fakeSource{name: "A", days: []domain.ForecastDay{{Source: "A"}}})
	a.AddAlerts(&fakeSource{name: "A", alerts: []domain.Alert{{ID: "x"}}})
	a.AddHurricanes(&fakeSource{name: "A", tracks: []domain.HurricaneTrack{{ID: "y"}}})

	snap := a.FetchAll(context.Background(), 25.77, -80.19)
	assert.Equal(t, SourceNoData, snap.Reading.Source)
	assert.Len(t, snap.Forecast, 1)
	assert.Len(t, snap.Alerts, 1)
	assert.Len(t, snap.Tracks, 1)
}
