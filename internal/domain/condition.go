package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ConditionType classifies a synthesized weather assessment.
type ConditionType string

const (
	ConditionRain        ConditionType = "rain"
	ConditionStorm       ConditionType = "storm"
	ConditionSevereStorm ConditionType = "severe_storm"
	ConditionHurricane   ConditionType = "hurricane"
	ConditionFlood       ConditionType = "flood"
	ConditionModerate    ConditionType = "moderate"
	ConditionSevere      ConditionType = "severe"
	ConditionClear       ConditionType = "clear"
)

// Severity is the ordered urgency classification.
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
	SeverityExtreme  Severity = "extreme"
)

// Rank returns the position of the severity in the total order
// minor < moderate < severe < extreme. Unknown values rank below minor.
func (s Severity) Rank() int {
	switch s {
	case SeverityMinor:
		return 0
	case SeverityModerate:
		return 1
	case SeveritySevere:
		return 2
	case SeverityExtreme:
		return 3
	default:
		return -1
	}
}

// AtLeast reports whether s is as urgent as other or more.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// DataSource distinguishes real upstream data from explicitly requested
// mock data. Production paths must never substitute mock data silently;
// every condition carries this tag so callers and tests can tell them apart.
type DataSource string

const (
	DataSourceReal DataSource = "real"
	DataSourceMock DataSource = "mock"
	// DataSourceNone marks synthesized placeholder records, like the
	// aggregator's no-data sentinel. Neither real nor fabricated weather.
	DataSourceNone DataSource = "none"
)

// WeatherCondition is a single synthesized, ranked weather assessment for a
// location at a point in time. It is the contract exposed to consumers.
type WeatherCondition struct {
	ID             string        `json:"id"`
	Type           ConditionType `json:"type"`
	Severity       Severity      `json:"severity"`
	Probability    int           `json:"probability"` // 0-100, the adapter's own estimate
	Confidence     int           `json:"confidence"`  // 0-100, source trust
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Recommendation string        `json:"recommendation"`
	DistanceKm     *float64      `json:"distance_km,omitempty"` // hurricane proximity only
	ETAHours       *float64      `json:"eta_hours,omitempty"`   // hurricane proximity only
	Source         string        `json:"source"`
	DataSource     DataSource    `json:"data_source"`
	LastUpdated    time.Time     `json:"last_updated"`
}

// Urgent reports whether the condition warrants an immediate platform
// notification in addition to the regular callback delivery.
func (c WeatherCondition) Urgent() bool {
	return c.Severity.AtLeast(SeveritySevere)
}

// ConditionID produces a deterministic, source-prefixed identifier from the
// condition's key fields. Two conditions sharing an ID are treated as the same
// real-world event by the notification cache, so the inputs must be stable
// across re-fetches of the same event.
func ConditionID(source string, parts ...string) string {
	input := source
	for _, p := range parts {
		input += "|" + p
	}
	hash := sha256.Sum256([]byte(input))
	short := hex.EncodeToString(hash[:8])
	if source == "" {
		return short
	}
	return source + "-" + short
}

// RecommendationFor maps a (type, severity) pair to its advisory text.
// Pure function: the same pair always yields the same recommendation.
func RecommendationFor(t ConditionType, s Severity) string {
	switch t {
	case ConditionHurricane:
		if s == SeverityExtreme {
			return "Evacuate if instructed. Move to your nearest shelter immediately and follow official guidance."
		}
		return "Review your evacuation plan, stock supplies, and monitor official hurricane advisories."
	case ConditionFlood:
		if s.AtLeast(SeveritySevere) {
			return "Move to higher ground now. Never drive or walk through flood water."
		}
		return "Avoid low-lying areas and monitor local flood advisories."
	case ConditionSevereStorm:
		return "Stay indoors away from windows. Charge devices and prepare for power outages."
	case ConditionStorm:
		return "Postpone outdoor activities and secure loose objects outside."
	case ConditionRain:
		return "Carry rain protection and allow extra travel time."
	case ConditionSevere:
		return "Follow official guidance for your area and stay alert for updates."
	case ConditionModerate:
		return "Monitor conditions; no immediate action required."
	default:
		return "No action needed."
	}
}

// severityLabel is used when composing titles, e.g. "Severe Storm Warning".
func severityLabel(s Severity) string {
	switch s {
	case SeverityExtreme:
		return "Extreme"
	case SeveritySevere:
		return "Severe"
	case SeverityModerate:
		return "Moderate"
	default:
		return "Minor"
	}
}

// fmtKm renders a distance for human-readable descriptions.
func fmtKm(km float64) string {
	return fmt.Sprintf("%.0f km", km)
}
