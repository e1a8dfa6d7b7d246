package throttle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ambakkou/stormwatch/internal/observability"
)

// Limiter serializes outbound requests per upstream source. Each source gets
// its own FIFO queue drained by a single worker with a fixed inter-request
// delay, so concurrent callers cannot exceed a provider's rate limit. On an
// HTTP 429 the worker pauses the whole queue for a cool-down and retries the
// request once before propagating the failure.
type Limiter struct {
	delay    time.Duration
	cooldown time.Duration
	client   *http.Client
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu     sync.Mutex
	queues map[string]chan *job
}

type job struct {
	ctx    context.Context
	url    string
	result chan result
}

type result struct {
	body []byte
	err  error
}

// NewLimiter creates a Limiter. timeout bounds each individual HTTP request
// so a hung upstream cannot stall the queue indefinitely.
func NewLimiter(delay, cooldown, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Limiter {
	return &Limiter{
		delay:    delay,
		cooldown: cooldown,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
		metrics:  metrics,
		queues:   make(map[string]chan *job),
	}
}

// Do enqueues a GET for the source's queue and blocks until the worker has
// executed it (or ctx is cancelled while waiting).
func (l *Limiter) Do(ctx context.Context, source, url string) ([]byte, error) {
	j := &job{ctx: ctx, url: url, result: make(chan result, 1)}

	select {
	case l.queue(source) <- j:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-j.result:
		return r.body, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// queue returns the source's job queue, starting its worker on first use.
// Workers live for the process lifetime; the queue and cache are process-wide
// singletons shared by every adapter.
func (l *Limiter) queue(source string) chan *job {
	l.mu.Lock()
	defer l.mu.Unlock()

	q, ok := l.queues[source]
	if !ok {
		q = make(chan *job, 64)
		l.queues[source] = q
		go l.worker(source, q)
	}
	return q
}

func (l *Limiter) worker(source string, q chan *job) {
	for j := range q {
		if j.ctx.Err() != nil {
			j.result <- result{err: j.ctx.Err()}
			continue
		}

		body, status, err := l.fetch(j.ctx, j.url)
		if status == http.StatusTooManyRequests {
			l.metrics.RateLimitHits.Inc()
			l.logger.Warn("rate limited, pausing queue",
				"source", source, "cooldown", l.cooldown)
			l.sleep(j.ctx, l.cooldown)
			body, status, err = l.fetch(j.ctx, j.url)
			if status == http.StatusTooManyRequests {
				err = fmt.Errorf("still rate limited after cooldown: %s", j.url)
			}
		}
		j.result <- result{body: body, err: err}

		l.sleep(context.Background(), l.delay)
	}
}

func (l *Limiter) fetch(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/xml;q=0.9, */*;q=0.8")
	req.Header.Set("User-Agent", "stormwatch/1.0")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, resp.StatusCode, fmt.Errorf("rate limited: %s", url)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, fmt.Errorf("upstream status %d: %s", resp.StatusCode, url)
	}
	return body, resp.StatusCode, nil
}

func (l *Limiter) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
