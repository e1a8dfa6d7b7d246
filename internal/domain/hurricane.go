package domain

import (
	"sort"
	"time"
)

// StormStatus describes the lifecycle state of a tracked storm.
type StormStatus string

const (
	StormActive       StormStatus = "active"
	StormDissipated   StormStatus = "dissipated"
	StormPostTropical StormStatus = "post-tropical"
)

// Basin is one of the six standard tropical-cyclone ocean regions.
type Basin string

const (
	BasinAtlantic       Basin = "atlantic"
	BasinEasternPacific Basin = "eastern_pacific"
	BasinCentralPacific Basin = "central_pacific"
	BasinWesternPacific Basin = "western_pacific"
	BasinIndian         Basin = "indian"
	BasinSouthern       Basin = "southern_hemisphere"
)

// HurricanePosition is a single fix along a storm track.
type HurricanePosition struct {
	Lat          float64   `json:"lat"`
	Lng          float64   `json:"lng"`
	Timestamp    time.Time `json:"timestamp"`
	WindSpeedMph float64   `json:"wind_speed_mph"`
	PressureMb   *float64  `json:"pressure_mb,omitempty"`
	Category     int       `json:"category"` // Saffir-Simpson, 0 = below hurricane strength
}

// HurricaneTrack is a single storm with its past, current, and forecast fixes.
type HurricaneTrack struct {
	ID                  string              `json:"id"`
	Name                string              `json:"name"`
	Basin               Basin               `json:"basin"`
	Status              StormStatus         `json:"status"`
	CurrentPosition     HurricanePosition   `json:"current_position"`
	HistoricalPositions []HurricanePosition `json:"historical_positions,omitempty"`
	ForecastPositions   []HurricanePosition `json:"forecast_positions,omitempty"`
	Source              string              `json:"source"`
	DataSource          DataSource          `json:"data_source"`
}

// CategoryForWindSpeed maps a sustained wind speed in mph to a Saffir-Simpson
// category. Total and monotonic: every windSpeed >= 0 maps to 0..5, boundaries
// at exactly 74, 96, 111, 130, and 157 mph.
func CategoryForWindSpeed(windMph float64) int {
	switch {
	case windMph >= 157:
		return 5
	case windMph >= 130:
		return 4
	case windMph >= 111:
		return 3
	case windMph >= 96:
		return 2
	case windMph >= 74:
		return 1
	default:
		return 0
	}
}

// BasinForCoordinates infers the tropical-cyclone basin from a storm position.
// Used when the upstream source does not supply one.
func BasinForCoordinates(lat, lng float64) Basin {
	if lat < 0 {
		return BasinSouthern
	}
	switch {
	case lng >= -100 && lng < 20:
		return BasinAtlantic
	case lng >= -140 && lng < -100:
		return BasinEasternPacific
	case lng >= -180 && lng < -140:
		return BasinCentralPacific
	case lng >= 100 && lng <= 180:
		return BasinWesternPacific
	case lng >= 20 && lng < 100:
		return BasinIndian
	default:
		return BasinAtlantic
	}
}

// NormalizeTrack enforces the track invariants regardless of what the adapter
// reported: categories are rederived from wind speed, the basin is inferred
// when missing, and positions are sorted chronologically with historical fixes
// strictly before and forecast fixes strictly after the current timestamp.
// Fixes that coincide with the current timestamp are dropped as duplicates.
func NormalizeTrack(t HurricaneTrack) HurricaneTrack {
	t.CurrentPosition.Category = CategoryForWindSpeed(t.CurrentPosition.WindSpeedMph)
	if t.Basin == "" {
		t.Basin = BasinForCoordinates(t.CurrentPosition.Lat, t.CurrentPosition.Lng)
	}
	if t.Status == "" {
		t.Status = StormActive
	}

	now := t.CurrentPosition.Timestamp
	all := make([]HurricanePosition, 0, len(t.HistoricalPositions)+len(t.ForecastPositions))
	all = append(all, t.HistoricalPositions...)
	all = append(all, t.ForecastPositions...)

	var history, forecast []HurricanePosition
	for _, p := range all {
		p.Category = CategoryForWindSpeed(p.WindSpeedMph)
		switch {
		case p.Timestamp.Before(now):
			history = append(history, p)
		case p.Timestamp.After(now):
			forecast = append(forecast, p)
		}
	}
	sortByTime(history)
	sortByTime(forecast)
	t.HistoricalPositions = history
	t.ForecastPositions = forecast
	return t
}

func sortByTime(positions []HurricanePosition) {
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Timestamp.Before(positions[j].Timestamp)
	})
}

// ForwardSpeedKmh estimates the storm's speed of advance from its most recent
// historical fix. Returns the fallback default of 25 km/h when there is no
// usable history, which is a typical translation speed for tropical cyclones.
func (t HurricaneTrack) ForwardSpeedKmh() float64 {
	const defaultSpeed = 25.0
	if len(t.HistoricalPositions) == 0 {
		return defaultSpeed
	}
	prev := t.HistoricalPositions[len(t.HistoricalPositions)-1]
	hours := t.CurrentPosition.Timestamp.Sub(prev.Timestamp).Hours()
	if hours <= 0 {
		return defaultSpeed
	}
	dist := HaversineKm(prev.Lat, prev.Lng, t.CurrentPosition.Lat, t.CurrentPosition.Lng)
	speed := dist / hours
	if speed <= 1 {
		return defaultSpeed
	}
	return speed
}
