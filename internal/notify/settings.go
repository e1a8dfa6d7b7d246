package notify

import (
	"time"

	"github.com/ambakkou/stormwatch/internal/domain"
)

// Frequency controls how often a monitored location is re-evaluated.
type Frequency string

const (
	FrequencyImmediate Frequency = "immediate"
	FrequencyHourly    Frequency = "hourly"
	FrequencyDaily     Frequency = "daily"
)

// Settings are the per-session notification preferences.
type Settings struct {
	Enabled         bool      `json:"enabled"`
	StormAlerts     bool      `json:"storm_alerts"`
	RainAlerts      bool      `json:"rain_alerts"`
	HurricaneAlerts bool      `json:"hurricane_alerts"`
	FloodAlerts     bool      `json:"flood_alerts"`
	Frequency       Frequency `json:"frequency"`
	TestMode        bool      `json:"test_mode"`
}

// DefaultSettings enables everything at the immediate cadence.
func DefaultSettings() Settings {
	return Settings{
		Enabled:         true,
		StormAlerts:     true,
		RainAlerts:      true,
		HurricaneAlerts: true,
		FloodAlerts:     true,
		Frequency:       FrequencyImmediate,
	}
}

// allows reports whether the category toggle for the condition type is on.
// The master switch is checked separately.
func (s Settings) allows(ct domain.ConditionType) bool {
	switch ct {
	case domain.ConditionHurricane:
		return s.HurricaneAlerts
	case domain.ConditionFlood:
		return s.FloodAlerts
	case domain.ConditionRain:
		return s.RainAlerts
	default:
		return s.StormAlerts
	}
}

// Interval derives the evaluation cadence. Test mode always runs the fast
// loop regardless of frequency.
func (s Settings) Interval() time.Duration {
	if s.TestMode {
		return 30 * time.Second
	}
	switch s.Frequency {
	case FrequencyHourly:
		return time.Hour
	case FrequencyDaily:
		return 24 * time.Hour
	default:
		return 5 * time.Minute
	}
}
