package throttle

import (
	"context"
	"log/slog"
	"time"

	"github.com/ambakkou/stormwatch/internal/observability"
)

// Cache TTLs per data kind, reflecting how fast each value goes stale.
const (
	TTLLocation   = 24 * time.Hour   // city/coordinate lookups are nearly static
	TTLCurrent    = 5 * time.Minute  // live observations
	TTLForecast   = 15 * time.Minute // multi-day forecasts
	TTLAlerts     = 2 * time.Minute  // active alerts
	TTLHurricanes = 10 * time.Minute // storm tracks
)

// Client is the cache-fronted, rate-limited HTTP entry point every adapter
// uses for its outbound calls.
type Client struct {
	limiter *Limiter
	cache   *Cache
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewClient wires a Limiter and Cache together.
func NewClient(limiter *Limiter, cache *Cache, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{limiter: limiter, cache: cache, logger: logger, metrics: metrics}
}

// GetJSON returns the payload for url, served from cache when a fresh entry
// exists under cacheKey, otherwise via the source's throttled queue. Fresh
// cache hits never enqueue a network call.
func (c *Client) GetJSON(ctx context.Context, source, url, cacheKey string, ttl time.Duration) ([]byte, error) {
	if body, ok := c.cache.Get(cacheKey, ttl); ok {
		c.metrics.CacheLookups.WithLabelValues(source, "hit").Inc()
		return body, nil
	}
	c.metrics.CacheLookups.WithLabelValues(source, "miss").Inc()

	body, err := c.limiter.Do(ctx, source, url)
	if err != nil {
		return nil, err
	}
	c.cache.Put(cacheKey, body)
	return body, nil
}
