// Package openmeteo adapts the Open-Meteo forecast API through the omgo
// client. Open-Meteo needs no API key and serves as the primary source for
// current conditions and forecasts.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/hectormalot/omgo"

	"github.com/ambakkou/stormwatch/internal/domain"
	"github.com/ambakkou/stormwatch/internal/throttle"
)

const (
	sourceName = "OpenMeteo"
	sourceKey  = "openmeteo"

	forecastDays = 5
)

var hourlyMetrics = []string{
	"temperature_2m", "relative_humidity_2m", "pressure_msl",
	"precipitation", "precipitation_probability", "wind_speed_10m", "weather_code",
}

type forecaster interface {
	Forecast(ctx context.Context, loc omgo.Location, opts *omgo.Options) (*omgo.Forecast, error)
}

// Adapter implements the current and forecast capabilities.
type Adapter struct {
	client forecaster
	cache  *throttle.Cache
	logger *slog.Logger
}

func New(cache *throttle.Cache, logger *slog.Logger) (*Adapter, error) {
	client, err := omgo.NewClient()
	if err != nil {
		return nil, fmt.Errorf("openmeteo: create client: %w", err)
	}
	return &Adapter{client: &client, cache: cache, logger: logger}, nil
}

func (a *Adapter) Name() string { return sourceName }

// FetchCurrent returns current conditions, with humidity, pressure, and
// precipitation filled from the hourly series at the observation hour.
func (a *Adapter) FetchCurrent(ctx context.Context, lat, lng float64) (domain.Reading, error) {
	key := throttle.CoordKey(sourceKey, "current", lat, lng)
	if cached, ok := a.cache.Get(key, throttle.TTLCurrent); ok {
		var r domain.Reading
		if err := json.Unmarshal(cached, &r); err == nil {
			return r, nil
		}
	}

	fc, err := a.forecast(ctx, lat, lng)
	if err != nil {
		return domain.Reading{}, err
	}

	r := convertCurrent(fc.CurrentWeather, newHourlySeries(fc))
	if buf, err := json.Marshal(r); err == nil {
		a.cache.Put(key, buf)
	}
	return r, nil
}

// FetchForecast returns a daily forecast aggregated from the hourly series.
func (a *Adapter) FetchForecast(ctx context.Context, lat, lng float64) ([]domain.ForecastDay, error) {
	key := throttle.CoordKey(sourceKey, "forecast", lat, lng)
	if cached, ok := a.cache.Get(key, throttle.TTLForecast); ok {
		var days []domain.ForecastDay
		if err := json.Unmarshal(cached, &days); err == nil {
			return days, nil
		}
	}

	fc, err := a.forecast(ctx, lat, lng)
	if err != nil {
		return nil, err
	}

	days := convertForecast(newHourlySeries(fc))
	if buf, err := json.Marshal(days); err == nil {
		a.cache.Put(key, buf)
	}
	return days, nil
}

func (a *Adapter) forecast(ctx context.Context, lat, lng float64) (*omgo.Forecast, error) {
	loc, err := omgo.NewLocation(lat, lng)
	if err != nil {
		return nil, fmt.Errorf("openmeteo: location: %w", err)
	}

	opts := &omgo.Options{
		Timezone:          "UTC",
		TemperatureUnit:   "celsius",
		WindspeedUnit:     "mph",
		PrecipitationUnit: "mm",
		HourlyMetrics:     hourlyMetrics,
	}
	fc, err := a.client.Forecast(ctx, loc, opts)
	if err != nil {
		return nil, fmt.Errorf("openmeteo: forecast: %w", err)
	}
	return fc, nil
}

// hourlySeries is the hourly payload lifted out of the omgo response so the
// conversion logic can be exercised without a live client.
type hourlySeries struct {
	times   []time.Time
	metrics map[string][]float64
}

func newHourlySeries(fc *omgo.Forecast) hourlySeries {
	times := make([]time.Time, len(fc.HourlyTimes))
	for i, t := range fc.HourlyTimes {
		times[i] = t
	}
	return hourlySeries{times: times, metrics: fc.HourlyMetrics}
}

// at returns the metric value for the hour containing ts, or def when the
// series does not cover it.
func (h hourlySeries) at(metric string, ts time.Time, def float64) float64 {
	values, ok := h.metrics[metric]
	if !ok {
		return def
	}
	hour := ts.UTC().Truncate(time.Hour)
	for i, t := range h.times {
		if i < len(values) && t.UTC().Equal(hour) {
			return values[i]
		}
	}
	return def
}

func convertCurrent(cw omgo.CurrentWeather, hourly hourlySeries) domain.Reading {
	observed := cw.Time.Time
	if observed.IsZero() {
		observed = domain.Now()
	}
	return domain.Reading{
		Source:        sourceName,
		DataSource:    domain.DataSourceReal,
		TemperatureC:  cw.Temperature,
		WindSpeedMph:  cw.WindSpeed,
		HumidityPct:   hourly.at("relative_humidity_2m", observed, 0),
		PressureMb:    hourly.at("pressure_msl", observed, 1013),
		PrecipMm:      hourly.at("precipitation", observed, 0),
		ConditionText: wmoText(int(cw.WeatherCode)),
		ObservedAt:    observed.UTC(),
	}
}

// convertForecast folds the hourly series into per-day records: max/min
// temperature, max wind, summed precipitation, and the day's peak
// precipitation probability.
func convertForecast(hourly hourlySeries) []domain.ForecastDay {
	type acc struct {
		high, low, wind, precip, prob float64
		worstCode                     int
		n                             int
	}
	byDay := make(map[time.Time]*acc)
	for i, ts := range hourly.times {
		day := ts.UTC().Truncate(24 * time.Hour)
		bucket, ok := byDay[day]
		if !ok {
			bucket = &acc{high: math.Inf(-1), low: math.Inf(1)}
			byDay[day] = bucket
		}
		bucket.n++
		if v, ok := metricAt(hourly.metrics, "temperature_2m", i); ok {
			bucket.high = math.Max(bucket.high, v)
			bucket.low = math.Min(bucket.low, v)
		}
		if v, ok := metricAt(hourly.metrics, "wind_speed_10m", i); ok {
			bucket.wind = math.Max(bucket.wind, v)
		}
		if v, ok := metricAt(hourly.metrics, "precipitation", i); ok {
			bucket.precip += v
		}
		if v, ok := metricAt(hourly.metrics, "precipitation_probability", i); ok {
			bucket.prob = math.Max(bucket.prob, v)
		}
		if v, ok := metricAt(hourly.metrics, "weather_code", i); ok && int(v) > bucket.worstCode {
			bucket.worstCode = int(v)
		}
	}

	dates := make([]time.Time, 0, len(byDay))
	for d := range byDay {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	if len(dates) > forecastDays {
		dates = dates[:forecastDays]
	}

	days := make([]domain.ForecastDay, 0, len(dates))
	for _, d := range dates {
		bucket := byDay[d]
		high, low := bucket.high, bucket.low
		if math.IsInf(high, -1) {
			high, low = 0, 0
		}
		days = append(days, domain.ForecastDay{
			Date:              d,
			HighTempC:         high,
			LowTempC:          low,
			PrecipProbability: bucket.prob,
			PrecipMm:          bucket.precip,
			WindSpeedMph:      bucket.wind,
			ConditionText:     wmoText(bucket.worstCode),
			Source:            sourceName,
			DataSource:        domain.DataSourceReal,
		})
	}
	return days
}

func metricAt(metrics map[string][]float64, name string, i int) (float64, bool) {
	values, ok := metrics[name]
	if !ok || i >= len(values) {
		return 0, false
	}
	return values[i], true
}

// wmoText translates a WMO weather interpretation code to a short label.
func wmoText(code int) string {
	if text, ok := wmoCodes[code]; ok {
		return text
	}
	return "Unknown"
}

var wmoCodes = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	56: "Light freezing drizzle",
	57: "Dense freezing drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	66: "Light freezing rain",
	67: "Heavy freezing rain",
	71: "Slight snow fall",
	73: "Moderate snow fall",
	75: "Heavy snow fall",
	77: "Snow grains",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	85: "Slight snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}
