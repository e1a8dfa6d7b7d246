package nhc

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambakkou/stormwatch/internal/domain"
	"github.com/ambakkou/stormwatch/internal/observability"
	"github.com/ambakkou/stormwatch/internal/throttle"
)

func testAdapter(t *testing.T, storms, rss http.HandlerFunc) *Adapter {
	t.Helper()
	mux := http.NewServeMux()
	if storms != nil {
		mux.HandleFunc("/CurrentStorms.json", storms)
	}
	if rss != nil {
		mux.HandleFunc("/index-at.xml", rss)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()
	limiter := throttle.NewLimiter(time.Millisecond, time.Millisecond, 5*time.Second, logger, metrics)
	client := throttle.NewClient(limiter, throttle.NewCache(16, nil), logger, metrics)

	a := New(client, logger)
	a.stormsURL = srv.URL + "/CurrentStorms.json"
	a.rssURL = srv.URL + "/index-at.xml"
	return a
}

const stormsPayload = `{
	"activeStorms": [
		{
			"id": "AL092026",
			"name": "Fiona",
			"classification": "HU",
			"intensity": "115",
			"pressure": "948",
			"latitude": "24.5N",
			"longitude": "80.2W",
			"lastUpdate": "2026-08-31T09:00:00Z"
		},
		{
			"id": "EP072026",
			"name": "Gil",
			"classification": "TS",
			"intensity": "50",
			"pressure": "997",
			"latitude": "15.3N",
			"longitude": "112.8W",
			"lastUpdate": "2026-08-31T09:00:00Z"
		},
		{
			"id": "AL102026",
			"name": "Broken",
			"classification": "TD",
			"intensity": "30",
			"pressure": "1006",
			"latitude": "garbage",
			"longitude": "40.0W",
			"lastUpdate": "2026-08-31T09:00:00Z"
		}
	]
}`

func TestFetchHurricanes_Summary(t *testing.T) {
	a := testAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(stormsPayload))
	}, nil)

	tracks, err := a.FetchHurricanes(context.Background())
	require.NoError(t, err)
	require.Len(t, tracks, 2) // the unparseable storm is skipped

	fiona := tracks[0]
	assert.Equal(t, "al092026", fiona.ID)
	assert.Equal(t, "Fiona", fiona.Name)
	assert.Equal(t, domain.StormActive, fiona.Status)
	assert.Equal(t, domain.BasinAtlantic, fiona.Basin)
	assert.InDelta(t, 24.5, fiona.CurrentPosition.Lat, 0.01)
	assert.InDelta(t, -80.2, fiona.CurrentPosition.Lng, 0.01)
	assert.InDelta(t, 115*knotsToMph, fiona.CurrentPosition.WindSpeedMph, 0.01)
	assert.Equal(t, 4, fiona.CurrentPosition.Category) // 132 mph
	require.NotNil(t, fiona.CurrentPosition.PressureMb)
	assert.InDelta(t, 948, *fiona.CurrentPosition.PressureMb, 0.01)
	assert.Equal(t, domain.DataSourceReal, fiona.DataSource)

	gil := tracks[1]
	assert.Equal(t, domain.BasinEasternPacific, gil.Basin)
	assert.Equal(t, 0, gil.CurrentPosition.Category)
}

func TestFetchHurricanes_QuietBasin(t *testing.T) {
	a := testAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"activeStorms": []}`))
	}, func(w http.ResponseWriter, r *http.Request) {
		t.Error("rss fallback must not run when the summary succeeds")
	})

	tracks, err := a.FetchHurricanes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tracks)
}

const rssPayload = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:nhc="https://www.nhc.noaa.gov">
<channel>
<item>
<title>Summary for Hurricane Fiona (AT2/AL092026)</title>
<pubDate>Mon, 31 Aug 2026 09:00:00 GMT</pubDate>
<description>...Fiona moving northwest...</description>
<nhc:Cyclone>
<nhc:center>24.5, -80.2</nhc:center>
<nhc:type>HURRICANE</nhc:type>
<nhc:name>Fiona</nhc:name>
<nhc:atcf>AL092026</nhc:atcf>
<nhc:datetime>2026-08-31T09:00:00Z</nhc:datetime>
<nhc:movement>NW at 12 mph</nhc:movement>
<nhc:pressure>948 mb</nhc:pressure>
<nhc:wind>130 mph</nhc:wind>
<nhc:headline>Fiona approaching the Florida Straits</nhc:headline>
</nhc:Cyclone>
</item>
<item>
<title>Tropical Storm Gert Public Advisory Number 4</title>
<pubDate>Mon, 31 Aug 2026 09:00:00 GMT</pubDate>
<description>LOCATION...18.2N 55.7W MAXIMUM SUSTAINED WINDS...65 MPH MINIMUM CENTRAL PRESSURE...994 MB</description>
</item>
<item>
<title>Atlantic Tropical Weather Outlook</title>
<pubDate>Mon, 31 Aug 2026 09:00:00 GMT</pubDate>
<description>Tropical cyclone formation is not expected during the next 7 days.</description>
</item>
</channel>
</rss>`

func TestFetchHurricanes_RSSFallback(t *testing.T) {
	a := testAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssPayload))
	})

	tracks, err := a.FetchHurricanes(context.Background())
	require.NoError(t, err)
	require.Len(t, tracks, 2) // the outlook item has no position and is skipped

	// The comma-separated center must parse on the structured path; a
	// free-text fallback would lose the ATCF identifier.
	fiona := tracks[0]
	assert.Equal(t, "al092026", fiona.ID)
	assert.InDelta(t, 24.5, fiona.CurrentPosition.Lat, 0.01)
	assert.InDelta(t, -80.2, fiona.CurrentPosition.Lng, 0.01)
	assert.InDelta(t, 130, fiona.CurrentPosition.WindSpeedMph, 0.01)
	assert.Equal(t, 4, fiona.CurrentPosition.Category)

	gert := tracks[1]
	assert.Equal(t, "Gert", gert.Name)
	assert.InDelta(t, 18.2, gert.CurrentPosition.Lat, 0.01)
	assert.InDelta(t, -55.7, gert.CurrentPosition.Lng, 0.01)
	assert.InDelta(t, 65, gert.CurrentPosition.WindSpeedMph, 0.01)
	require.NotNil(t, gert.CurrentPosition.PressureMb)
	assert.InDelta(t, 994, *gert.CurrentPosition.PressureMb, 0.01)
}

func TestFetchHurricanes_BothSourcesDown(t *testing.T) {
	a := testAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := a.FetchHurricanes(context.Background())
	assert.Error(t, err)
}

func TestParseCoordinate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"24.5N", 24.5, true},
		{"80.2W", -80.2, true},
		{"12.0S", -12.0, true},
		{"140.0E", 140.0, true},
		{"-80.2", -80.2, true},
		{" 24.5 N", 24.5, true},
		{"", 0, false},
		{"garbage", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseCoordinate(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		if ok {
			assert.InDelta(t, tt.want, got, 0.001, "input %q", tt.in)
		}
	}
}

func TestSplitCenter(t *testing.T) {
	tests := []struct {
		in       string
		lat, lng string
	}{
		{"24.5, -80.2", "24.5", "-80.2"},
		{"24.5,-80.2", "24.5", "-80.2"},
		{"24.5N 80.2W", "24.5N", "80.2W"},
		{"24.5", "", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		lat, lng := splitCenter(tt.in)
		assert.Equal(t, tt.lat, lat, "input %q", tt.in)
		assert.Equal(t, tt.lng, lng, "input %q", tt.in)
	}
}

func TestStatusForClassification(t *testing.T) {
	assert.Equal(t, domain.StormActive, statusForClassification("HU"))
	assert.Equal(t, domain.StormActive, statusForClassification("TS"))
	assert.Equal(t, domain.StormPostTropical, statusForClassification("PTC"))
	assert.Equal(t, domain.StormDissipated, statusForClassification("DB"))
}

func TestNameFromTitle(t *testing.T) {
	assert.Equal(t, "Fiona", nameFromTitle("Hurricane Fiona Public Advisory Number 12"))
	assert.Equal(t, "Gert", nameFromTitle("Tropical Storm Gert Public Advisory Number 4"))
	assert.Equal(t, "", nameFromTitle("Atlantic Tropical Weather Outlook"))
}
