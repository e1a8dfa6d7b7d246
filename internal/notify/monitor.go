package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ambakkou/stormwatch/internal/domain"
	"github.com/ambakkou/stormwatch/internal/observability"
)

const (
	// sameIDCooldown suppresses repeat deliveries of one condition unless
	// its severity has increased in the meantime.
	sameIDCooldown = 5 * time.Minute
	// globalSpacing is the minimum gap between any two deliveries.
	globalSpacing = time.Minute
	// minEvaluationGap floors the evaluation cadence; test mode gets a
	// shorter floor so rehearsal runs stay fast.
	minEvaluationGap = 2 * time.Minute
	testModeGapFloor = 15 * time.Second

	maxSeenConditions = 256
)

type seenEntry struct {
	at   time.Time
	rank int
}

type session struct {
	id       string
	lat, lng float64
	cancel   context.CancelFunc
}

// Monitor schedules evaluations per session and applies the suppression
// rules before delivering conditions to the notifier.
type Monitor struct {
	engine   *Engine
	store    Store
	notifier Notifier
	logger   *slog.Logger
	metrics  *observability.Metrics
	clock    clockwork.Clock

	mu            sync.Mutex
	sessions      map[string]*session
	lastDelivered time.Time
	seen          map[string]seenEntry
	seenOrder     []string
}

func NewMonitor(engine *Engine, store Store, notifier Notifier, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Monitor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Monitor{
		engine:   engine,
		store:    store,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
		clock:    clock,
		sessions: make(map[string]*session),
		seen:     make(map[string]seenEntry),
	}
}

// Start begins monitoring a coordinate for the session. Starting an already
// monitored session restarts it with the new coordinate.
func (m *Monitor) Start(ctx context.Context, sessionID string, lat, lng float64) {
	m.mu.Lock()
	if prev, ok := m.sessions[sessionID]; ok {
		prev.cancel()
	} else {
		m.metrics.MonitorsActive.Inc()
	}

	loopCtx, cancel := context.WithCancel(ctx)
	sess := &session{id: sessionID, lat: lat, lng: lng, cancel: cancel}
	m.sessions[sessionID] = sess
	m.mu.Unlock()

	m.logger.Info("monitoring started", "session", sessionID, "lat", lat, "lng", lng)
	go m.loop(loopCtx, sess)
}

// Stop ends monitoring for the session. Stopping an unknown session is a
// no-op.
func (m *Monitor) Stop(sessionID string) {
	m.mu.Lock()
	sess, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
		m.metrics.MonitorsActive.Dec()
	}
	m.mu.Unlock()

	if ok {
		sess.cancel()
		m.logger.Info("monitoring stopped", "session", sessionID)
	}
}

// StopAll ends every session, for shutdown.
func (m *Monitor) StopAll() {
	m.mu.Lock()
	sessions := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*session)
	m.metrics.MonitorsActive.Set(0)
	m.mu.Unlock()

	for _, s := range sessions {
		s.cancel()
	}
}

// Active reports whether the session is currently monitored.
func (m *Monitor) Active(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[sessionID]
	return ok
}

func (m *Monitor) loop(ctx context.Context, sess *session) {
	for {
		interval := m.evaluateCycle(ctx, sess)
		select {
		case <-ctx.Done():
			return
		case <-m.clock.After(interval):
		}
	}
}

// evaluateCycle runs one evaluation and returns the wait until the next. A
// panicking adapter must not kill the session loop.
func (m *Monitor) evaluateCycle(ctx context.Context, sess *session) (interval time.Duration) {
	settings := m.settingsFor(ctx, sess.id)
	interval = clampInterval(settings)

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("evaluation panicked", "session", sess.id, "panic", r)
			m.metrics.EvaluationErrors.Inc()
		}
	}()

	cond, err := m.engine.Evaluate(ctx, sess.lat, sess.lng)
	if err != nil {
		m.logger.Error("evaluation failed", "session", sess.id, "error", err)
		return interval
	}
	m.maybeNotify(ctx, sess.id, settings, cond)
	return interval
}

func (m *Monitor) settingsFor(ctx context.Context, sessionID string) Settings {
	settings, err := m.store.LoadSettings(ctx, sessionID)
	if err != nil {
		m.logger.Warn("loading settings failed, using defaults",
			"session", sessionID, "error", err)
		return DefaultSettings()
	}
	return settings
}

func clampInterval(s Settings) time.Duration {
	floor := minEvaluationGap
	if s.TestMode {
		floor = testModeGapFloor
	}
	interval := s.Interval()
	if interval < floor {
		return floor
	}
	return interval
}

// maybeNotify applies the suppression ladder and delivers when every rule
// passes. Every candidate condition goes through the ladder; urgency is a
// tag for downstream sinks, not a delivery gate. Delivery state only
// advances on a successful send, so a failing sink is retried on the next
// cycle.
func (m *Monitor) maybeNotify(ctx context.Context, sessionID string, settings Settings, cond *domain.WeatherCondition) {
	if cond == nil {
		return
	}

	if !settings.Enabled {
		m.suppress(sessionID, cond, "disabled")
		return
	}
	if !settings.allows(cond.Type) {
		m.suppress(sessionID, cond, "category_disabled")
		return
	}

	dismissed, err := m.store.LoadDismissed(ctx, sessionID)
	if err != nil {
		m.logger.Warn("loading dismissals failed, treating none as dismissed",
			"session", sessionID, "error", err)
	}
	if dismissed[cond.ID] {
		m.suppress(sessionID, cond, "dismissed")
		return
	}

	now := m.clock.Now()

	m.mu.Lock()
	entry, seenBefore := m.seen[cond.ID]
	rank := cond.Severity.Rank()
	if seenBefore && now.Sub(entry.at) < sameIDCooldown && rank <= entry.rank {
		m.mu.Unlock()
		m.suppress(sessionID, cond, "cooldown")
		return
	}
	if !m.lastDelivered.IsZero() && now.Sub(m.lastDelivered) < globalSpacing {
		m.mu.Unlock()
		m.suppress(sessionID, cond, "global_spacing")
		return
	}
	m.mu.Unlock()

	if err := m.notifier.Notify(ctx, sessionID, *cond); err != nil {
		m.logger.Error("notification delivery failed",
			"session", sessionID, "condition", cond.ID, "error", err)
		m.metrics.NotificationSinkFailures.Inc()
		return
	}

	m.mu.Lock()
	m.lastDelivered = now
	m.remember(cond.ID, seenEntry{at: now, rank: rank})
	m.mu.Unlock()

	m.metrics.NotificationsDelivered.Inc()
	m.logger.Info("notification delivered",
		"session", sessionID, "condition", cond.ID,
		"type", cond.Type, "severity", cond.Severity, "urgent", cond.Urgent())
}

func (m *Monitor) suppress(sessionID string, cond *domain.WeatherCondition, reason string) {
	m.metrics.NotificationsSuppressed.WithLabelValues(reason).Inc()
	m.logger.Debug("notification suppressed",
		"session", sessionID, "condition", cond.ID, "reason", reason)
}

// remember records a delivery, evicting the oldest entries past the cap.
// Caller holds m.mu.
func (m *Monitor) remember(id string, e seenEntry) {
	if _, ok := m.seen[id]; !ok {
		m.seenOrder = append(m.seenOrder, id)
	}
	m.seen[id] = e
	for len(m.seenOrder) > maxSeenConditions {
		oldest := m.seenOrder[0]
		m.seenOrder = m.seenOrder[1:]
		delete(m.seen, oldest)
	}
}

// Dismiss marks an alert so it never notifies this session again.
func (m *Monitor) Dismiss(ctx context.Context, sessionID, alertID string) error {
	return m.store.DismissAlert(ctx, sessionID, alertID)
}

// UpdateSettings persists new preferences. The running loop picks them up on
// its next cycle.
func (m *Monitor) UpdateSettings(ctx context.Context, sessionID string, s Settings) error {
	return m.store.SaveSettings(ctx, sessionID, s)
}
