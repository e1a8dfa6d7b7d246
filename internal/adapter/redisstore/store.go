// Package redisstore persists notification preferences and dismissals in
// Redis so they survive restarts and are shared across instances.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"

	"github.com/ambakkou/stormwatch/internal/notify"
)

const keyPrefix = "stormwatch"

// Store implements notify.Store on a Redis client.
type Store struct {
	client *redis.Client
	logger *slog.Logger
}

func New(addr, password string, db int, logger *slog.Logger) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Store{client: client, logger: logger}
}

// NewWithClient wraps an existing client, for tests.
func NewWithClient(client *redis.Client, logger *slog.Logger) *Store {
	return &Store{client: client, logger: logger}
}

// Ping verifies connectivity at startup.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.client.Close() }

func settingsKey(sessionID string) string {
	return fmt.Sprintf("%s:settings:%s", keyPrefix, sessionID)
}

func dismissedKey(sessionID string) string {
	return fmt.Sprintf("%s:dismissed:%s", keyPrefix, sessionID)
}

// LoadSettings returns the session's preferences, or the defaults when the
// session has never saved any.
func (s *Store) LoadSettings(ctx context.Context, sessionID string) (notify.Settings, error) {
	raw, err := s.client.Get(ctx, settingsKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return notify.DefaultSettings(), nil
	}
	if err != nil {
		return notify.Settings{}, fmt.Errorf("load settings for %s: %w", sessionID, err)
	}

	var settings notify.Settings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		s.logger.Warn("corrupt settings entry, using defaults",
			"session", sessionID, "error", err)
		return notify.DefaultSettings(), nil
	}
	return settings, nil
}

func (s *Store) SaveSettings(ctx context.Context, sessionID string, settings notify.Settings) error {
	buf, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := s.client.Set(ctx, settingsKey(sessionID), buf, 0).Err(); err != nil {
		return fmt.Errorf("save settings for %s: %w", sessionID, err)
	}
	return nil
}

func (s *Store) LoadDismissed(ctx context.Context, sessionID string) (map[string]bool, error) {
	members, err := s.client.SMembers(ctx, dismissedKey(sessionID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load dismissed for %s: %w", sessionID, err)
	}

	dismissed := make(map[string]bool, len(members))
	for _, m := range members {
		dismissed[m] = true
	}
	return dismissed, nil
}

func (s *Store) DismissAlert(ctx context.Context, sessionID, alertID string) error {
	if err := s.client.SAdd(ctx, dismissedKey(sessionID), alertID).Err(); err != nil {
		return fmt.Errorf("dismiss %s for %s: %w", alertID, sessionID, err)
	}
	return nil
}
