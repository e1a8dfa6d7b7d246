package domain

import "time"

// Reading is a normalized current-conditions observation from one provider.
// Units are fixed at the adapter boundary: wind in mph, pressure in
// millibars, precipitation in millimeters, temperature in Celsius.
type Reading struct {
	Source        string     `json:"source"`
	DataSource    DataSource `json:"data_source"`
	TemperatureC  float64    `json:"temperature_c"`
	WindSpeedMph  float64    `json:"wind_speed_mph"`
	HumidityPct   float64    `json:"humidity_pct"`
	PressureMb    float64    `json:"pressure_mb"`
	PrecipMm      float64    `json:"precip_mm"`
	ConditionText string     `json:"condition_text"`
	ObservedAt    time.Time  `json:"observed_at"`
}

// ForecastDay is one normalized day of a multi-day forecast.
type ForecastDay struct {
	Date              time.Time  `json:"date"`
	HighTempC         float64    `json:"high_temp_c"`
	LowTempC          float64    `json:"low_temp_c"`
	PrecipProbability float64    `json:"precip_probability"` // 0-100
	PrecipMm          float64    `json:"precip_mm"`
	WindSpeedMph      float64    `json:"wind_speed_mph"`
	ConditionText     string     `json:"condition_text"`
	Source            string     `json:"source"`
	DataSource        DataSource `json:"data_source"`
}

// Alert is a normalized active weather alert from a government or commercial
// source.
type Alert struct {
	ID          string     `json:"id"`
	Event       string     `json:"event"` // e.g. "Hurricane Warning"
	Headline    string     `json:"headline"`
	Description string     `json:"description"`
	Severity    Severity   `json:"severity"`
	Onset       time.Time  `json:"onset"`
	Expires     time.Time  `json:"expires"`
	Source      string     `json:"source"`
	DataSource  DataSource `json:"data_source"`
}
