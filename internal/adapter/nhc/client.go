// Package nhc adapts the National Hurricane Center feeds. The primary source
// is the CurrentStorms.json summary; when that is unreachable the adapter
// falls back to the Atlantic basin RSS feed, preferring the structured
// nhc:Cyclone extension and dropping back to free-text scraping per item.
package nhc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ambakkou/stormwatch/internal/domain"
	"github.com/ambakkou/stormwatch/internal/throttle"
)

const (
	sourceName = "NHC"
	sourceKey  = "nhc"

	defaultStormsURL = "https://www.nhc.noaa.gov/CurrentStorms.json"
	defaultRSSURL    = "https://www.nhc.noaa.gov/index-at.xml"

	knotsToMph = 1.15078
)

// Adapter implements the hurricane capability.
type Adapter struct {
	stormsURL string
	rssURL    string
	http      *throttle.Client
	logger    *slog.Logger
}

func New(client *throttle.Client, logger *slog.Logger) *Adapter {
	return &Adapter{stormsURL: defaultStormsURL, rssURL: defaultRSSURL, http: client, logger: logger}
}

func (a *Adapter) Name() string { return sourceName }

// FetchHurricanes returns currently tracked cyclones. The JSON summary is
// authoritative; the RSS fallback only runs when the summary is unreachable,
// not when it is merely empty (an empty summary means a quiet basin).
func (a *Adapter) FetchHurricanes(ctx context.Context) ([]domain.HurricaneTrack, error) {
	tracks, err := a.fetchSummary(ctx)
	if err == nil {
		return tracks, nil
	}
	a.logger.Warn("storm summary unavailable, falling back to rss", "error", err)

	tracks, rssErr := a.fetchRSS(ctx)
	if rssErr != nil {
		return nil, fmt.Errorf("nhc: summary: %v; rss: %w", err, rssErr)
	}
	return tracks, nil
}

type currentStorms struct {
	ActiveStorms []activeStorm `json:"activeStorms"`
}

type activeStorm struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Classification string `json:"classification"`
	Intensity      string `json:"intensity"`
	Pressure       string `json:"pressure"`
	Latitude       string `json:"latitude"`
	Longitude      string `json:"longitude"`
	LastUpdate     string `json:"lastUpdate"`
}

func (a *Adapter) fetchSummary(ctx context.Context) ([]domain.HurricaneTrack, error) {
	body, err := a.http.GetJSON(ctx, sourceKey, a.stormsURL,
		throttle.StaticKey(sourceKey, "storms"), throttle.TTLHurricanes)
	if err != nil {
		return nil, err
	}

	var doc currentStorms
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode storm summary: %w", err)
	}

	tracks := make([]domain.HurricaneTrack, 0, len(doc.ActiveStorms))
	for _, s := range doc.ActiveStorms {
		lat, okLat := parseCoordinate(s.Latitude)
		lng, okLng := parseCoordinate(s.Longitude)
		if !okLat || !okLng {
			a.logger.Warn("skipping storm with unparseable position",
				"storm", s.Name, "lat", s.Latitude, "lng", s.Longitude)
			continue
		}

		windMph := 0.0
		if kt, err := strconv.ParseFloat(strings.TrimSpace(s.Intensity), 64); err == nil {
			windMph = kt * knotsToMph
		}

		pos := domain.HurricanePosition{
			Lat:          lat,
			Lng:          lng,
			Timestamp:    parseUpdate(s.LastUpdate),
			WindSpeedMph: windMph,
		}
		if mb, err := strconv.ParseFloat(strings.TrimSpace(s.Pressure), 64); err == nil && mb > 0 {
			pos.PressureMb = &mb
		}

		track := domain.HurricaneTrack{
			ID:              stormID(s.ID, s.Name),
			Name:            s.Name,
			Status:          statusForClassification(s.Classification),
			CurrentPosition: pos,
			Source:          sourceName,
			DataSource:      domain.DataSourceReal,
		}
		tracks = append(tracks, domain.NormalizeTrack(track))
	}
	return tracks, nil
}

// stormID prefers the ATCF identifier (e.g. "al092026") and derives a stable
// one from the name otherwise, so a storm keeps its identity across polls.
func stormID(atcf, name string) string {
	if atcf != "" {
		return strings.ToLower(atcf)
	}
	return domain.ConditionID("storm", sourceKey, strings.ToLower(name))
}

// parseCoordinate handles NHC's hemisphere-suffixed form ("20.1N", "85.3W")
// and plain signed decimals.
func parseCoordinate(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	sign := 1.0
	last := s[len(s)-1]
	switch last {
	case 'N', 'n', 'E', 'e':
		s = s[:len(s)-1]
	case 'S', 's', 'W', 'w':
		sign = -1.0
		s = s[:len(s)-1]
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return sign * v, true
}

func statusForClassification(class string) domain.StormStatus {
	c := strings.ToUpper(strings.TrimSpace(class))
	switch {
	case strings.HasPrefix(c, "PT"), strings.Contains(c, "POST"):
		return domain.StormPostTropical
	case c == "DB", strings.Contains(c, "REMNANT"):
		return domain.StormDissipated
	default:
		return domain.StormActive
	}
}

func parseUpdate(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "200601021504", "2006-01-02 15:04"} {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t.UTC()
		}
	}
	return domain.Now().UTC()
}

var (
	reLocation = regexp.MustCompile(`(?i)LOCATION\.{3}\s*([\d.]+)\s*([NS])\s+([\d.]+)\s*([EW])`)
	reMaxWind  = regexp.MustCompile(`(?i)MAXIMUM SUSTAINED WINDS\.{3}\s*([\d.]+)\s*MPH`)
	rePressure = regexp.MustCompile(`(?i)MINIMUM CENTRAL PRESSURE\.{3}\s*([\d.]+)\s*MB`)
)

func (a *Adapter) fetchRSS(ctx context.Context) ([]domain.HurricaneTrack, error) {
	body, err := a.http.GetJSON(ctx, sourceKey, a.rssURL,
		throttle.StaticKey(sourceKey, "rss"), throttle.TTLHurricanes)
	if err != nil {
		return nil, err
	}

	items, err := parseFeed(body)
	if err != nil {
		return nil, fmt.Errorf("decode rss feed: %w", err)
	}

	seen := make(map[string]bool)
	var tracks []domain.HurricaneTrack
	for _, item := range items {
		track, ok := a.trackFromItem(item)
		if !ok || seen[track.ID] {
			continue
		}
		seen[track.ID] = true
		tracks = append(tracks, domain.NormalizeTrack(track))
	}
	return tracks, nil
}

// trackFromItem tries the structured nhc:Cyclone block first and scrapes the
// advisory text otherwise. Items that yield neither are skipped, never
// fabricated.
func (a *Adapter) trackFromItem(item feedItem) (domain.HurricaneTrack, bool) {
	if c := item.Cyclone; c != nil && c.Name != "" {
		latRaw, lngRaw := splitCenter(c.Center)
		lat, okLat := parseCoordinate(latRaw)
		lng, okLng := parseCoordinate(lngRaw)
		if okLat && okLng {
			pos := domain.HurricanePosition{
				Lat:          lat,
				Lng:          lng,
				Timestamp:    parseUpdate(c.Datetime),
				WindSpeedMph: parseLeadingFloat(c.Wind),
			}
			if mb := parseLeadingFloat(c.Pressure); mb > 0 {
				pos.PressureMb = &mb
			}
			return domain.HurricaneTrack{
				ID:              stormID(c.ATCF, c.Name),
				Name:            c.Name,
				Status:          statusForClassification(c.Type),
				CurrentPosition: pos,
				Source:          sourceName,
				DataSource:      domain.DataSourceReal,
			}, true
		}
	}

	return a.trackFromText(item)
}

func (a *Adapter) trackFromText(item feedItem) (domain.HurricaneTrack, bool) {
	text := item.Description
	loc := reLocation.FindStringSubmatch(text)
	if loc == nil {
		return domain.HurricaneTrack{}, false
	}
	lat, okLat := parseCoordinate(loc[1] + loc[2])
	lng, okLng := parseCoordinate(loc[3] + loc[4])
	if !okLat || !okLng {
		return domain.HurricaneTrack{}, false
	}

	name := nameFromTitle(item.Title)
	if name == "" {
		a.logger.Warn("advisory item without a storm name, skipping", "title", item.Title)
		return domain.HurricaneTrack{}, false
	}

	pos := domain.HurricanePosition{
		Lat:       lat,
		Lng:       lng,
		Timestamp: parsePubDate(item.PubDate),
	}
	if m := reMaxWind.FindStringSubmatch(text); m != nil {
		pos.WindSpeedMph = parseLeadingFloat(m[1])
	}
	if m := rePressure.FindStringSubmatch(text); m != nil {
		if mb := parseLeadingFloat(m[1]); mb > 0 {
			pos.PressureMb = &mb
		}
	}

	return domain.HurricaneTrack{
		ID:              stormID("", name),
		Name:            name,
		Status:          domain.StormActive,
		CurrentPosition: pos,
		Source:          sourceName,
		DataSource:      domain.DataSourceReal,
	}, true
}

// nameFromTitle extracts the storm name from titles like
// "Hurricane Fiona Public Advisory Number 12".
var reTitleName = regexp.MustCompile(`(?i)^(?:Hurricane|Tropical Storm|Tropical Depression|Post-Tropical Cyclone)\s+([A-Za-z-]+)`)

func nameFromTitle(title string) string {
	m := reTitleName.FindStringSubmatch(strings.TrimSpace(title))
	if m == nil {
		return ""
	}
	return m[1]
}

// splitCenter handles the live feed's comma-separated center
// ("24.5, -80.2") as well as the hemisphere-suffixed space form
// ("24.5N 80.2W").
func splitCenter(center string) (lat, lng string) {
	var parts []string
	if strings.Contains(center, ",") {
		parts = strings.Split(center, ",")
	} else {
		parts = strings.Fields(center)
	}
	if len(parts) < 2 {
		return "", ""
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}

func parseLeadingFloat(s string) float64 {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0
	}
	return v
}

func parsePubDate(s string) time.Time {
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC3339} {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t.UTC()
		}
	}
	return domain.Now().UTC()
}
