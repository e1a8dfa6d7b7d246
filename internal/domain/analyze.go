package domain

import (
	"fmt"
	"strings"
)

// Proximity cutoffs for hurricane classification, in kilometers.
const (
	DangerRadiusKm = 500.0  // imminent-hurricane condition
	WatchRadiusKm  = 1000.0 // early-warning condition
)

// Government alert sources are trusted at a fixed high confidence.
const alertConfidence = 90

// Analyzer synthesizes a single ranked WeatherCondition from the aggregated
// inputs for one location. It holds no state between calls.
type Analyzer struct {
	dangerKm float64
	watchKm  float64
}

// NewAnalyzer returns an Analyzer with the standard proximity thresholds.
func NewAnalyzer() *Analyzer {
	return &Analyzer{dangerKm: DangerRadiusKm, watchKm: WatchRadiusKm}
}

// Analyze applies the fixed decision order, first match wins:
//
//  1. an active severe or extreme alert
//  2. a hurricane within the danger radius
//  3. a hurricane within the watch radius
//  4. storm/rain classification from averaged readings and forecast
//
// Returns nil when nothing notification-worthy is present.
func (a *Analyzer) Analyze(readings []Reading, alerts []Alert, tracks []HurricaneTrack, forecast []ForecastDay, lat, lng float64) *WeatherCondition {
	if c := a.fromAlerts(alerts); c != nil {
		return c
	}
	if c := a.fromHurricanes(tracks, lat, lng); c != nil {
		return c
	}
	return a.fromReadings(readings, forecast, lat, lng)
}

// fromAlerts selects the most urgent severe-or-worse alert. Earlier alerts win
// rank ties.
func (a *Analyzer) fromAlerts(alerts []Alert) *WeatherCondition {
	var best *Alert
	for i := range alerts {
		if !alerts[i].Severity.AtLeast(SeveritySevere) {
			continue
		}
		if best == nil || alerts[i].Severity.Rank() > best.Severity.Rank() {
			best = &alerts[i]
		}
	}
	if best == nil {
		return nil
	}

	condType := conditionTypeForAlert(best.Event)
	description := best.Headline
	if description == "" {
		description = best.Description
	}
	return &WeatherCondition{
		ID:             ConditionID("alert", best.Source, best.ID),
		Type:           condType,
		Severity:       best.Severity,
		Probability:    90,
		Confidence:     alertConfidence,
		Title:          best.Event,
		Description:    description,
		Recommendation: RecommendationFor(condType, best.Severity),
		Source:         best.Source,
		DataSource:     best.DataSource,
		LastUpdated:    clock.Now(),
	}
}

// fromHurricanes classifies the nearest active storm against the danger and
// watch radii. Storms beyond the watch radius are excluded entirely.
func (a *Analyzer) fromHurricanes(tracks []HurricaneTrack, lat, lng float64) *WeatherCondition {
	var nearest *HurricaneTrack
	nearestKm := 0.0
	for i := range tracks {
		if tracks[i].Status == StormDissipated {
			continue
		}
		pos := tracks[i].CurrentPosition
		d := HaversineKm(lat, lng, pos.Lat, pos.Lng)
		if nearest == nil || d < nearestKm {
			nearest = &tracks[i]
			nearestKm = d
		}
	}
	if nearest == nil || nearestKm > a.watchKm {
		return nil
	}

	distance := nearestKm
	eta := distance / nearest.ForwardSpeedKmh()
	category := nearest.CurrentPosition.Category

	c := &WeatherCondition{
		ID:          ConditionID("hurricane", nearest.Source, nearest.ID),
		Type:        ConditionHurricane,
		DistanceKm:  &distance,
		ETAHours:    &eta,
		Source:      nearest.Source,
		DataSource:  nearest.DataSource,
		LastUpdated: clock.Now(),
	}
	if nearestKm <= a.dangerKm {
		c.Severity = SeverityExtreme
		c.Probability = 95
		c.Confidence = 85
		c.Title = fmt.Sprintf("HURRICANE ALERT: %s", nearest.Name)
		c.Description = fmt.Sprintf("Hurricane %s (Category %d) is %s away and approaching.",
			nearest.Name, category, fmtKm(distance))
	} else {
		c.Severity = SeveritySevere
		c.Probability = 70
		c.Confidence = 80
		c.Title = fmt.Sprintf("Hurricane Watch: %s", nearest.Name)
		c.Description = fmt.Sprintf("Hurricane %s (Category %d) is %s away. Monitor its track.",
			nearest.Name, category, fmtKm(distance))
	}
	c.Recommendation = RecommendationFor(ConditionHurricane, c.Severity)
	return c
}

// Fixed numeric thresholds for deriving a condition from observations.
const (
	severeStormWindMph = 40.0
	stormWindMph       = 25.0
	rainHumidityPct    = 85.0
	rainWindFloorMph   = 15.0
	rainForecastMm     = 0.5
)

// fromReadings derives a condition from averaged current readings and the
// forecast. Numeric fields are averaged arithmetically across all successful
// readings, without confidence weighting.
func (a *Analyzer) fromReadings(readings []Reading, forecast []ForecastDay, lat, lng float64) *WeatherCondition {
	if len(readings) == 0 {
		return nil
	}

	var wind, humidity float64
	var texts []string
	source := readings[0].Source
	dataSource := DataSourceReal
	for _, r := range readings {
		wind += r.WindSpeedMph
		humidity += r.HumidityPct
		if r.ConditionText != "" {
			texts = append(texts, strings.ToLower(r.ConditionText))
		}
		if r.DataSource == DataSourceMock {
			dataSource = DataSourceMock
		}
	}
	wind /= float64(len(readings))
	humidity /= float64(len(readings))

	var forecastPrecip float64
	if len(forecast) > 0 {
		for _, d := range forecast {
			forecastPrecip += d.PrecipMm
		}
		forecastPrecip /= float64(len(forecast))
	}

	text := strings.Join(texts, " ")
	locKey := fmt.Sprintf("%.2f,%.2f", lat, lng)

	build := func(t ConditionType, s Severity, probability, confidence int, title, description string) *WeatherCondition {
		return &WeatherCondition{
			ID:             ConditionID("derived", string(t), locKey),
			Type:           t,
			Severity:       s,
			Probability:    probability,
			Confidence:     confidence,
			Title:          title,
			Description:    description,
			Recommendation: RecommendationFor(t, s),
			Source:         source,
			DataSource:     dataSource,
			LastUpdated:    clock.Now(),
		}
	}

	switch {
	case wind > severeStormWindMph:
		return build(ConditionSevereStorm, SeveritySevere, 80, 75,
			"Severe Storm Warning",
			fmt.Sprintf("Sustained winds of %.0f mph observed nearby.", wind))
	case wind > stormWindMph || containsAny(text, "storm", "thunder"):
		return build(ConditionStorm, SeverityModerate, 70, 70,
			"Storm Advisory",
			fmt.Sprintf("Storm conditions with winds around %.0f mph.", wind))
	case containsAny(text, "rain", "shower", "drizzle"),
		humidity > rainHumidityPct && wind > rainWindFloorMph,
		forecastPrecip > rainForecastMm:
		return build(ConditionRain, SeverityMinor, 60, 65,
			"Rain Expected",
			"Rain is occurring or likely in your area.")
	default:
		return nil
	}
}

// conditionTypeForAlert maps a provider alert event name to a condition type.
func conditionTypeForAlert(event string) ConditionType {
	e := strings.ToLower(event)
	switch {
	case containsAny(e, "hurricane", "tropical"):
		return ConditionHurricane
	case containsAny(e, "flood"):
		return ConditionFlood
	case containsAny(e, "tornado", "storm", "thunder"):
		return ConditionSevereStorm
	default:
		return ConditionSevere
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
