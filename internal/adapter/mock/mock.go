// Package mock provides deterministic in-process sources for test mode.
// Values derive from the requested coordinate so runs are reproducible, and
// every result is tagged as mock data so downstream consumers can tell it
// apart from live readings.
package mock

import (
	"context"
	"math"
	"time"

	"github.com/ambakkou/stormwatch/internal/domain"
)

const sourceName = "Mock"

// Scenario selects the kind of weather the mock sources fabricate.
type Scenario string

const (
	ScenarioCalm      Scenario = "calm"
	ScenarioStorm     Scenario = "storm"
	ScenarioHurricane Scenario = "hurricane"
)

// Adapter implements every provider capability with synthetic data.
type Adapter struct {
	scenario Scenario
}

func New(scenario Scenario) *Adapter {
	if scenario == "" {
		scenario = ScenarioCalm
	}
	return &Adapter{scenario: scenario}
}

func (a *Adapter) Name() string { return sourceName }

func (a *Adapter) FetchCurrent(_ context.Context, lat, _ float64) (domain.Reading, error) {
	r := domain.Reading{
		Source:        sourceName,
		DataSource:    domain.DataSourceMock,
		TemperatureC:  22 + 8*math.Sin(lat*math.Pi/180),
		WindSpeedMph:  8,
		HumidityPct:   60,
		PressureMb:    1015,
		PrecipMm:      0,
		ConditionText: "Partly cloudy",
		ObservedAt:    domain.Now().UTC(),
	}
	switch a.scenario {
	case ScenarioStorm:
		r.WindSpeedMph = 32
		r.HumidityPct = 88
		r.PressureMb = 1002
		r.PrecipMm = 4.5
		r.ConditionText = "Thunderstorm"
	case ScenarioHurricane:
		r.WindSpeedMph = 85
		r.HumidityPct = 95
		r.PressureMb = 968
		r.PrecipMm = 22
		r.ConditionText = "Hurricane conditions"
	}
	return r, nil
}

func (a *Adapter) FetchForecast(_ context.Context, _, _ float64) ([]domain.ForecastDay, error) {
	base := domain.Now().UTC().Truncate(24 * time.Hour)
	days := make([]domain.ForecastDay, 0, 5)
	for i := 0; i < 5; i++ {
		day := domain.ForecastDay{
			Date:          base.AddDate(0, 0, i),
			HighTempC:     26 + float64(i%3),
			LowTempC:      19 + float64(i%2),
			WindSpeedMph:  10,
			ConditionText: "Partly cloudy",
			Source:        sourceName,
			DataSource:    domain.DataSourceMock,
		}
		if a.scenario != ScenarioCalm {
			day.PrecipProbability = 80
			day.PrecipMm = 6
			day.WindSpeedMph = 35
			day.ConditionText = "Thunderstorm"
		}
		days = append(days, day)
	}
	return days, nil
}

func (a *Adapter) FetchAlerts(_ context.Context, _, _ float64) ([]domain.Alert, error) {
	if a.scenario != ScenarioHurricane {
		return nil, nil
	}
	now := domain.Now().UTC()
	return []domain.Alert{{
		ID:          domain.ConditionID("alert", "mock", "hurricane-warning"),
		Event:       "Hurricane Warning",
		Headline:    "Simulated hurricane warning",
		Description: "Synthetic alert for rehearsal runs.",
		Severity:    domain.SeverityExtreme,
		Onset:       now,
		Expires:     now.Add(24 * time.Hour),
		Source:      sourceName,
		DataSource:  domain.DataSourceMock,
	}}, nil
}

func (a *Adapter) FetchHurricanes(_ context.Context) ([]domain.HurricaneTrack, error) {
	if a.scenario != ScenarioHurricane {
		return nil, nil
	}
	now := domain.Now().UTC()
	track := domain.HurricaneTrack{
		ID:     "mock-al992026",
		Name:   "Rehearsal",
		Status: domain.StormActive,
		CurrentPosition: domain.HurricanePosition{
			Lat:          23.5,
			Lng:          -78.5,
			Timestamp:    now,
			WindSpeedMph: 120,
		},
		HistoricalPositions: []domain.HurricanePosition{{
			Lat:          22.0,
			Lng:          -76.0,
			Timestamp:    now.Add(-12 * time.Hour),
			WindSpeedMph: 105,
		}},
		Source:     sourceName,
		DataSource: domain.DataSourceMock,
	}
	return []domain.HurricaneTrack{domain.NormalizeTrack(track)}, nil
}
