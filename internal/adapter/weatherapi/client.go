// Package weatherapi adapts the WeatherAPI.com REST API. The payload shape
// varies between plan tiers and partially between responses, so every numeric
// field is extracted through an ordered list of candidate paths with a final
// hardcoded default.
package weatherapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/ambakkou/stormwatch/internal/domain"
	"github.com/ambakkou/stormwatch/internal/throttle"
)

const (
	sourceName     = "WeatherAPI"
	sourceKey      = "weatherapi"
	defaultBaseURL = "https://api.weatherapi.com/v1"
	forecastDays   = 5
)

// ErrNotConfigured marks the adapter as permanently failing when no API key
// is set. The aggregator treats it like any other upstream failure.
var ErrNotConfigured = errors.New("weatherapi: api key not configured")

// Adapter implements current, forecast, and alert capabilities.
type Adapter struct {
	key     string
	baseURL string
	http    *throttle.Client
	logger  *slog.Logger
}

// New creates the adapter. An empty key is allowed; every fetch then returns
// ErrNotConfigured.
func New(key string, client *throttle.Client, logger *slog.Logger) *Adapter {
	return &Adapter{key: key, baseURL: defaultBaseURL, http: client, logger: logger}
}

func (a *Adapter) Name() string { return sourceName }

// FetchCurrent returns normalized current conditions.
func (a *Adapter) FetchCurrent(ctx context.Context, lat, lng float64) (domain.Reading, error) {
	doc, err := a.get(ctx, "current.json", lat, lng, "current",
		throttle.CoordKey(sourceKey, "current", lat, lng), throttle.TTLCurrent, nil)
	if err != nil {
		return domain.Reading{}, err
	}
	return a.parseCurrent(doc), nil
}

func (a *Adapter) parseCurrent(doc map[string]any) domain.Reading {
	return domain.Reading{
		Source:       sourceName,
		DataSource:   domain.DataSourceReal,
		TemperatureC: domain.ExtractFloat(doc, 0, "current.temp_c", "current.feelslike_c"),
		WindSpeedMph: domain.ExtractFloat(doc, 0, "current.wind_mph", "current.gust_mph"),
		HumidityPct:  domain.ExtractFloat(doc, 0, "current.humidity"),
		PressureMb:   domain.ExtractFloat(doc, 1013, "current.pressure_mb"),
		PrecipMm:     domain.ExtractFloat(doc, 0, "current.precip_mm"),
		ConditionText: domain.ExtractString(doc, "",
			"current.condition.text", "current.condition"),
		ObservedAt: a.observedAt(doc),
	}
}

func (a *Adapter) observedAt(doc map[string]any) time.Time {
	epoch := domain.ExtractFloat(doc, 0, "current.last_updated_epoch", "location.localtime_epoch")
	if epoch > 0 {
		return time.Unix(int64(epoch), 0).UTC()
	}
	return domain.Now()
}

// FetchForecast returns a fixed-length forecast. A single malformed day
// degrades to a default-filled record rather than aborting the batch, so the
// result always has forecastDays entries.
func (a *Adapter) FetchForecast(ctx context.Context, lat, lng float64) ([]domain.ForecastDay, error) {
	doc, err := a.get(ctx, "forecast.json", lat, lng, "forecast",
		throttle.CoordKey(sourceKey, "forecast", lat, lng), throttle.TTLForecast,
		url.Values{"days": {fmt.Sprint(forecastDays)}})
	if err != nil {
		return nil, err
	}

	days := make([]domain.ForecastDay, 0, forecastDays)
	rawDays, _ := lookupSlice(doc, "forecast", "forecastday")
	for i := 0; i < forecastDays; i++ {
		date := domain.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, i)
		if i < len(rawDays) {
			if m, ok := rawDays[i].(map[string]any); ok {
				days = append(days, a.parseForecastDay(m, date))
				continue
			}
			a.logger.Warn("malformed forecast day, using defaults", "index", i)
		}
		days = append(days, defaultForecastDay(date))
	}
	return days, nil
}

func (a *Adapter) parseForecastDay(m map[string]any, fallbackDate time.Time) domain.ForecastDay {
	day := defaultForecastDay(fallbackDate)
	if epoch := domain.ExtractFloat(m, 0, "date_epoch"); epoch > 0 {
		day.Date = time.Unix(int64(epoch), 0).UTC()
	}
	day.HighTempC = domain.ExtractFloat(m, day.HighTempC, "day.maxtemp_c", "day.avgtemp_c")
	day.LowTempC = domain.ExtractFloat(m, day.LowTempC, "day.mintemp_c", "day.avgtemp_c")
	day.PrecipProbability = domain.ExtractFloat(m, day.PrecipProbability,
		"day.daily_chance_of_rain", "day.daily_chance_of_snow")
	day.PrecipMm = domain.ExtractFloat(m, day.PrecipMm, "day.totalprecip_mm")
	day.WindSpeedMph = domain.ExtractFloat(m, day.WindSpeedMph, "day.maxwind_mph")
	day.ConditionText = domain.ExtractString(m, day.ConditionText,
		"day.condition.text", "day.condition")
	return day
}

// defaultForecastDay is the documented stand-in for a malformed or missing
// forecast record: mild temperatures, no precipitation.
func defaultForecastDay(date time.Time) domain.ForecastDay {
	return domain.ForecastDay{
		Date:              date,
		HighTempC:         22,
		LowTempC:          15,
		PrecipProbability: 0,
		PrecipMm:          0,
		WindSpeedMph:      5,
		ConditionText:     "Unknown",
		Source:            sourceName,
		DataSource:        domain.DataSourceReal,
	}
}

// FetchAlerts returns active alerts for the coordinate. Alerts ride along on
// the forecast endpoint.
func (a *Adapter) FetchAlerts(ctx context.Context, lat, lng float64) ([]domain.Alert, error) {
	doc, err := a.get(ctx, "forecast.json", lat, lng, "alerts",
		throttle.CoordKey(sourceKey, "alerts", lat, lng), throttle.TTLAlerts,
		url.Values{"days": {"1"}, "alerts": {"yes"}})
	if err != nil {
		return nil, err
	}

	rawAlerts, _ := lookupSlice(doc, "alerts", "alert")
	alerts := make([]domain.Alert, 0, len(rawAlerts))
	for _, raw := range rawAlerts {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		event := domain.ExtractString(m, "Weather Alert", "event", "headline")
		alerts = append(alerts, domain.Alert{
			ID:          domain.ConditionID("alert", sourceKey, event, domain.ExtractString(m, "", "effective")),
			Event:       event,
			Headline:    domain.ExtractString(m, "", "headline", "desc"),
			Description: domain.ExtractString(m, "", "desc", "instruction"),
			Severity:    mapSeverity(domain.ExtractString(m, "", "severity", "urgency")),
			Onset:       parseTime(domain.ExtractString(m, "", "effective", "onset")),
			Expires:     parseTime(domain.ExtractString(m, "", "expires")),
			Source:      sourceName,
			DataSource:  domain.DataSourceReal,
		})
	}
	return alerts, nil
}

func (a *Adapter) get(ctx context.Context, endpoint string, lat, lng float64, capability, cacheKey string, ttl time.Duration, extra url.Values) (map[string]any, error) {
	if a.key == "" {
		return nil, ErrNotConfigured
	}

	params := url.Values{
		"key": {a.key},
		"q":   {fmt.Sprintf("%.4f,%.4f", lat, lng)},
	}
	for k, vs := range extra {
		for _, v := range vs {
			params.Add(k, v)
		}
	}

	fullURL := fmt.Sprintf("%s/%s?%s", a.baseURL, endpoint, params.Encode())
	body, err := a.http.GetJSON(ctx, sourceKey, fullURL, cacheKey, ttl)
	if err != nil {
		return nil, fmt.Errorf("weatherapi %s: %w", capability, err)
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("weatherapi %s: decode: %w", capability, err)
	}
	return doc, nil
}

// lookupSlice fetches doc[outer][inner] as a slice, tolerating either level
// being absent or mistyped.
func lookupSlice(doc map[string]any, outer, inner string) ([]any, bool) {
	o, ok := doc[outer].(map[string]any)
	if !ok {
		return nil, false
	}
	s, ok := o[inner].([]any)
	return s, ok
}

func mapSeverity(s string) domain.Severity {
	switch s {
	case "Extreme", "extreme":
		return domain.SeverityExtreme
	case "Severe", "severe":
		return domain.SeveritySevere
	case "Moderate", "moderate", "Expected":
		return domain.SeverityModerate
	default:
		return domain.SeverityMinor
	}
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-07:00", "2006-01-02 15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
