// Package nws adapts the National Weather Service alerts API
// (api.weather.gov). The alert feed is GeoJSON with a stable schema, so it is
// decoded into typed structs rather than through path extraction.
package nws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ambakkou/stormwatch/internal/domain"
	"github.com/ambakkou/stormwatch/internal/throttle"
)

const (
	sourceName     = "NWS"
	sourceKey      = "nws"
	defaultBaseURL = "https://api.weather.gov"
)

// Adapter implements the alert capability for US coordinates.
type Adapter struct {
	baseURL string
	http    *throttle.Client
	logger  *slog.Logger
}

func New(client *throttle.Client, logger *slog.Logger) *Adapter {
	return &Adapter{baseURL: defaultBaseURL, http: client, logger: logger}
}

func (a *Adapter) Name() string { return sourceName }

type alertCollection struct {
	Features []struct {
		Properties alertProperties `json:"properties"`
	} `json:"features"`
}

type alertProperties struct {
	ID          string `json:"id"`
	Event       string `json:"event"`
	Headline    string `json:"headline"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Urgency     string `json:"urgency"`
	Onset       string `json:"onset"`
	Expires     string `json:"expires"`
	Status      string `json:"status"`
	MessageType string `json:"messageType"`
}

// FetchAlerts returns active alerts covering the point. Test and cancellation
// messages are dropped.
func (a *Adapter) FetchAlerts(ctx context.Context, lat, lng float64) ([]domain.Alert, error) {
	u := fmt.Sprintf("%s/alerts/active?point=%.4f,%.4f", a.baseURL, lat, lng)
	body, err := a.http.GetJSON(ctx, sourceKey, u,
		throttle.CoordKey(sourceKey, "alerts", lat, lng), throttle.TTLAlerts)
	if err != nil {
		return nil, fmt.Errorf("nws alerts: %w", err)
	}

	var coll alertCollection
	if err := json.Unmarshal(body, &coll); err != nil {
		return nil, fmt.Errorf("nws alerts: decode: %w", err)
	}

	alerts := make([]domain.Alert, 0, len(coll.Features))
	for _, f := range coll.Features {
		p := f.Properties
		if strings.EqualFold(p.Status, "Test") || strings.EqualFold(p.MessageType, "Cancel") {
			continue
		}
		id := p.ID
		if id == "" {
			id = domain.ConditionID("alert", sourceKey, p.Event, p.Onset)
		}
		alerts = append(alerts, domain.Alert{
			ID:          id,
			Event:       p.Event,
			Headline:    p.Headline,
			Description: p.Description,
			Severity:    mapSeverity(p.Severity, p.Urgency),
			Onset:       parseTime(p.Onset),
			Expires:     parseTime(p.Expires),
			Source:      sourceName,
			DataSource:  domain.DataSourceReal,
		})
	}
	return alerts, nil
}

// mapSeverity folds the NWS severity/urgency pair into the internal ladder.
// "Immediate" urgency promotes a Severe alert to Extreme.
func mapSeverity(severity, urgency string) domain.Severity {
	switch severity {
	case "Extreme":
		return domain.SeverityExtreme
	case "Severe":
		if urgency == "Immediate" {
			return domain.SeverityExtreme
		}
		return domain.SeveritySevere
	case "Moderate":
		return domain.SeverityModerate
	default:
		return domain.SeverityMinor
	}
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
