package throttle

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ambakkou/stormwatch/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLimiter(delay, cooldown time.Duration) *Limiter {
	return NewLimiter(delay, cooldown, 5*time.Second,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		observability.NewMetricsForTesting())
}

func TestLimiter_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	l := testLimiter(0, 0)
	body, err := l.Do(context.Background(), "test", srv.URL)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestLimiter_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	l := testLimiter(0, 0)
	_, err := l.Do(context.Background(), "test", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestLimiter_RateLimitRetryOnce(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	l := testLimiter(0, 10*time.Millisecond)
	body, err := l.Do(context.Background(), "test", srv.URL)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, int64(2), calls.Load())
}

func TestLimiter_RateLimitTwicePropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	l := testLimiter(0, 10*time.Millisecond)
	_, err := l.Do(context.Background(), "test", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestLimiter_FIFOPerSource(t *testing.T) {
	var order []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, r.URL.Query().Get("n")) // serialized by the single worker
		_, _ = w.Write([]byte("{}"))
	}))
	defer srv.Close()

	l := testLimiter(time.Millisecond, 0)
	for _, n := range []string{"1", "2", "3"} {
		_, err := l.Do(context.Background(), "test", srv.URL+"?n="+n)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"1", "2", "3"}, order)
}

func TestLimiter_ContextCancelledWhileQueued(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := testLimiter(0, 0)
	_, err := l.Do(ctx, "test", "http://unreachable.invalid/")
	require.Error(t, err)
}

func TestClient_CacheAvoidsNetwork(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"n":1}`))
	}))
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()
	c := NewClient(testLimiter(0, 0), NewCache(10, nil), logger, metrics)

	key := CoordKey("test", "current", 25.77, -80.19)
	for i := 0; i < 3; i++ {
		body, err := c.GetJSON(context.Background(), "test", srv.URL, key, time.Minute)
		require.NoError(t, err)
		assert.JSONEq(t, `{"n":1}`, string(body))
	}
	assert.Equal(t, int64(1), calls.Load(), "fresh cache hits must not reach the network")
}

func TestClient_ErrorNotCached(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"n":2}`))
	}))
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewClient(testLimiter(0, 0), NewCache(10, nil), logger, observability.NewMetricsForTesting())

	key := StaticKey("test", "hurricanes")
	_, err := c.GetJSON(context.Background(), "test", srv.URL, key, time.Minute)
	require.Error(t, err)

	body, err := c.GetJSON(context.Background(), "test", srv.URL, key, time.Minute)
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":2}`, string(body))
}
