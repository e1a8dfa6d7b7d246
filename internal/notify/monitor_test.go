package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambakkou/stormwatch/internal/aggregate"
	"github.com/ambakkou/stormwatch/internal/domain"
	"github.com/ambakkou/stormwatch/internal/observability"
)

type memStore struct {
	mu        sync.Mutex
	settings  map[string]Settings
	dismissed map[string]map[string]bool
	loadErr   error
}

func newMemStore() *memStore {
	return &memStore{
		settings:  make(map[string]Settings),
		dismissed: make(map[string]map[string]bool),
	}
}

func (s *memStore) LoadSettings(_ context.Context, sessionID string) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return Settings{}, s.loadErr
	}
	if st, ok := s.settings[sessionID]; ok {
		return st, nil
	}
	return DefaultSettings(), nil
}

func (s *memStore) SaveSettings(_ context.Context, sessionID string, st Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[sessionID] = st
	return nil
}

func (s *memStore) LoadDismissed(_ context.Context, sessionID string) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dismissed[sessionID], nil
}

func (s *memStore) DismissAlert(_ context.Context, sessionID, alertID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dismissed[sessionID] == nil {
		s.dismissed[sessionID] = make(map[string]bool)
	}
	s.dismissed[sessionID][alertID] = true
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.WeatherCondition
	fail bool
}

func (n *recordingNotifier) Notify(_ context.Context, _ string, cond domain.WeatherCondition) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("sink down")
	}
	n.sent = append(n.sent, cond)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func testMonitor(t *testing.T) (*Monitor, *memStore, *recordingNotifier, *clockwork.FakeClock) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()
	store := newMemStore()
	notifier := &recordingNotifier{}
	clock := clockwork.NewFakeClockAt(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))

	agg := aggregate.New(logger, metrics)
	engine := NewEngine(agg, domain.NewAnalyzer(), logger, metrics)
	return NewMonitor(engine, store, notifier, logger, metrics, clock), store, notifier, clock
}

func cond(id string, sev domain.Severity) *domain.WeatherCondition {
	return &domain.WeatherCondition{
		ID:       id,
		Type:     domain.ConditionHurricane,
		Severity: sev,
		Source:   "NHC",
	}
}

func TestMaybeNotify_DeliversUrgent(t *testing.T) {
	m, _, notifier, _ := testMonitor(t)

	m.maybeNotify(context.Background(), "s1", DefaultSettings(), cond("c1", domain.SeverityExtreme))
	assert.Equal(t, 1, notifier.count())
}

func TestMaybeNotify_IgnoresNil(t *testing.T) {
	m, _, notifier, _ := testMonitor(t)

	m.maybeNotify(context.Background(), "s1", DefaultSettings(), nil)
	assert.Zero(t, notifier.count())
}

// Severity tags the delivery, it never gates it. A quiet drizzle still
// reaches the sink when its category toggle is on.
func TestMaybeNotify_DeliversAllSeverities(t *testing.T) {
	m, _, notifier, clock := testMonitor(t)
	ctx := context.Background()

	storm := cond("c1", domain.SeverityModerate)
	storm.Type = domain.ConditionStorm
	m.maybeNotify(ctx, "s1", DefaultSettings(), storm)
	assert.Equal(t, 1, notifier.count())

	clock.Advance(2 * time.Minute)
	rain := cond("c2", domain.SeverityMinor)
	rain.Type = domain.ConditionRain
	m.maybeNotify(ctx, "s1", DefaultSettings(), rain)
	assert.Equal(t, 2, notifier.count())
}

func TestMaybeNotify_RainToggle(t *testing.T) {
	m, _, notifier, _ := testMonitor(t)
	settings := DefaultSettings()
	settings.RainAlerts = false

	rain := cond("c1", domain.SeverityMinor)
	rain.Type = domain.ConditionRain
	m.maybeNotify(context.Background(), "s1", settings, rain)
	assert.Zero(t, notifier.count())

	settings.RainAlerts = true
	m.maybeNotify(context.Background(), "s1", settings, rain)
	assert.Equal(t, 1, notifier.count())
}

func TestMaybeNotify_MasterSwitchOff(t *testing.T) {
	m, _, notifier, _ := testMonitor(t)
	settings := DefaultSettings()
	settings.Enabled = false

	m.maybeNotify(context.Background(), "s1", settings, cond("c1", domain.SeverityExtreme))
	assert.Zero(t, notifier.count())
}

func TestMaybeNotify_CategoryToggle(t *testing.T) {
	m, _, notifier, _ := testMonitor(t)
	settings := DefaultSettings()
	settings.HurricaneAlerts = false

	m.maybeNotify(context.Background(), "s1", settings, cond("c1", domain.SeverityExtreme))
	assert.Zero(t, notifier.count())

	// Other categories are unaffected.
	c := cond("c2", domain.SeveritySevere)
	c.Type = domain.ConditionFlood
	m.maybeNotify(context.Background(), "s1", settings, c)
	assert.Equal(t, 1, notifier.count())
}

func TestMaybeNotify_Dismissed(t *testing.T) {
	m, store, notifier, _ := testMonitor(t)
	require.NoError(t, store.DismissAlert(context.Background(), "s1", "c1"))

	m.maybeNotify(context.Background(), "s1", DefaultSettings(), cond("c1", domain.SeverityExtreme))
	assert.Zero(t, notifier.count())
}

func TestMaybeNotify_SameIDCooldown(t *testing.T) {
	m, _, notifier, clock := testMonitor(t)
	ctx := context.Background()

	m.maybeNotify(ctx, "s1", DefaultSettings(), cond("c1", domain.SeveritySevere))
	assert.Equal(t, 1, notifier.count())

	// Same condition inside the cooldown window stays quiet.
	clock.Advance(2 * time.Minute)
	m.maybeNotify(ctx, "s1", DefaultSettings(), cond("c1", domain.SeveritySevere))
	assert.Equal(t, 1, notifier.count())

	// After the window it notifies again.
	clock.Advance(4 * time.Minute)
	m.maybeNotify(ctx, "s1", DefaultSettings(), cond("c1", domain.SeveritySevere))
	assert.Equal(t, 2, notifier.count())
}

func TestMaybeNotify_EscalationBypassesCooldown(t *testing.T) {
	m, _, notifier, clock := testMonitor(t)
	ctx := context.Background()

	m.maybeNotify(ctx, "s1", DefaultSettings(), cond("c1", domain.SeveritySevere))
	assert.Equal(t, 1, notifier.count())

	clock.Advance(90 * time.Second)
	m.maybeNotify(ctx, "s1", DefaultSettings(), cond("c1", domain.SeverityExtreme))
	assert.Equal(t, 2, notifier.count())
}

func TestMaybeNotify_GlobalSpacing(t *testing.T) {
	m, _, notifier, clock := testMonitor(t)
	ctx := context.Background()

	m.maybeNotify(ctx, "s1", DefaultSettings(), cond("c1", domain.SeverityExtreme))
	assert.Equal(t, 1, notifier.count())

	// A different condition right away is spaced out.
	clock.Advance(30 * time.Second)
	m.maybeNotify(ctx, "s1", DefaultSettings(), cond("c2", domain.SeverityExtreme))
	assert.Equal(t, 1, notifier.count())

	clock.Advance(31 * time.Second)
	m.maybeNotify(ctx, "s1", DefaultSettings(), cond("c2", domain.SeverityExtreme))
	assert.Equal(t, 2, notifier.count())
}

func TestMaybeNotify_SinkFailureIsRetriedNextCycle(t *testing.T) {
	m, _, notifier, _ := testMonitor(t)
	ctx := context.Background()

	notifier.fail = true
	m.maybeNotify(ctx, "s1", DefaultSettings(), cond("c1", domain.SeverityExtreme))
	assert.Zero(t, notifier.count())

	// State did not advance, so the next cycle delivers immediately.
	notifier.fail = false
	m.maybeNotify(ctx, "s1", DefaultSettings(), cond("c1", domain.SeverityExtreme))
	assert.Equal(t, 1, notifier.count())
}

func TestSettingsInterval(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		want     time.Duration
	}{
		{"immediate", Settings{Frequency: FrequencyImmediate}, 5 * time.Minute},
		{"hourly", Settings{Frequency: FrequencyHourly}, time.Hour},
		{"daily", Settings{Frequency: FrequencyDaily}, 24 * time.Hour},
		{"unset defaults to immediate", Settings{}, 5 * time.Minute},
		{"test mode overrides frequency", Settings{Frequency: FrequencyDaily, TestMode: true}, 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.settings.Interval())
		})
	}
}

func TestClampInterval(t *testing.T) {
	// Test mode's 30s cadence clears the relaxed test-mode floor.
	assert.Equal(t, 30*time.Second, clampInterval(Settings{TestMode: true}))
	// A normal cadence never drops below the floor.
	assert.Equal(t, 5*time.Minute, clampInterval(Settings{Frequency: FrequencyImmediate}))
}

func TestStartStop(t *testing.T) {
	m, _, _, _ := testMonitor(t)
	ctx := context.Background()

	m.Start(ctx, "s1", 25.77, -80.19)
	assert.True(t, m.Active("s1"))

	// Restarting the same session keeps a single loop.
	m.Start(ctx, "s1", 26.0, -80.0)
	assert.True(t, m.Active("s1"))

	m.Stop("s1")
	assert.False(t, m.Active("s1"))

	// Stopping again is a no-op.
	m.Stop("s1")
}

func TestStopAll(t *testing.T) {
	m, _, _, _ := testMonitor(t)
	ctx := context.Background()

	m.Start(ctx, "s1", 25.77, -80.19)
	m.Start(ctx, "s2", 29.95, -90.07)
	m.StopAll()
	assert.False(t, m.Active("s1"))
	assert.False(t, m.Active("s2"))
}

func TestDismissPersists(t *testing.T) {
	m, store, _, _ := testMonitor(t)
	ctx := context.Background()

	require.NoError(t, m.Dismiss(ctx, "s1", "alert-1"))
	dismissed, err := store.LoadDismissed(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, dismissed["alert-1"])
}

func TestUpdateSettingsPersists(t *testing.T) {
	m, store, _, _ := testMonitor(t)
	ctx := context.Background()

	s := DefaultSettings()
	s.Frequency = FrequencyHourly
	require.NoError(t, m.UpdateSettings(ctx, "s1", s))

	got, err := store.LoadSettings(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, FrequencyHourly, got.Frequency)
}
