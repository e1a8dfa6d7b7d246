package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ambakkou/stormwatch/internal/adapter/httpapi"
	kafkaadapter "github.com/ambakkou/stormwatch/internal/adapter/kafka"
	"github.com/ambakkou/stormwatch/internal/adapter/mock"
	"github.com/ambakkou/stormwatch/internal/adapter/nhc"
	"github.com/ambakkou/stormwatch/internal/adapter/nws"
	"github.com/ambakkou/stormwatch/internal/adapter/openmeteo"
	"github.com/ambakkou/stormwatch/internal/adapter/redisstore"
	"github.com/ambakkou/stormwatch/internal/adapter/weatherapi"
	"github.com/ambakkou/stormwatch/internal/aggregate"
	"github.com/ambakkou/stormwatch/internal/config"
	"github.com/ambakkou/stormwatch/internal/domain"
	"github.com/ambakkou/stormwatch/internal/notify"
	"github.com/ambakkou/stormwatch/internal/observability"
	"github.com/ambakkou/stormwatch/internal/throttle"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	limiter := throttle.NewLimiter(cfg.ThrottleDelay, cfg.RateLimitCooldown, cfg.RequestTimeout, logger, metrics)
	cache := throttle.NewCache(cfg.CacheMaxEntries, nil)
	client := throttle.NewClient(limiter, cache, logger, metrics)

	agg := aggregate.New(logger, metrics)

	// Test mode puts the deterministic mock at the top of every chain.
	if cfg.TestMode {
		m := mock.New(mock.Scenario(cfg.MockScenario))
		agg.AddCurrent(m)
		agg.AddForecast(m)
		agg.AddAlerts(m)
		agg.AddHurricanes(m)
		logger.Warn("test mode enabled, mock source active", "scenario", cfg.MockScenario)
	}

	if cfg.OpenMeteoEnabled {
		om, err := openmeteo.New(cache, logger)
		if err != nil {
			logger.Error("failed to create open-meteo adapter", "error", err)
			os.Exit(1)
		}
		agg.AddCurrent(om)
		agg.AddForecast(om)
	} else {
		logger.Info("open-meteo adapter disabled")
	}

	// Government feeds are the authoritative alert and hurricane sources;
	// they go ahead of the commercial fallbacks.
	agg.AddAlerts(nws.New(client, logger))
	agg.AddHurricanes(nhc.New(client, logger))

	if cfg.WeatherAPIKey != "" {
		wapi := weatherapi.New(cfg.WeatherAPIKey, client, logger)
		agg.AddCurrent(wapi)
		agg.AddForecast(wapi)
		agg.AddAlerts(wapi)
	} else {
		logger.Info("weatherapi adapter disabled, no api key")
	}

	engine := notify.NewEngine(agg, domain.NewAnalyzer(), logger, metrics)

	var store notify.Store = notify.NewMemoryStore()
	var redisStore *redisstore.Store
	if cfg.RedisEnabled {
		redisStore = redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err := redisStore.Ping(context.Background()); err != nil {
			logger.Error("redis unavailable", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		store = redisStore
		logger.Info("redis settings store enabled", "addr", cfg.RedisAddr)
	}

	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	var kafkaWriter *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		kafkaWriter = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaAlertTopic, logger)
		notifier = kafkaWriter
		logger.Info("kafka notification sink enabled",
			"brokers", cfg.KafkaBrokers, "topic", cfg.KafkaAlertTopic)
	}

	monitor := notify.NewMonitor(engine, store, notifier, logger, metrics, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startConfiguredLocations(ctx, cfg, monitor, logger)

	srv := httpapi.NewServer(cfg.HTTPAddr, engine, engine, monitor, store, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	monitor.StopAll()
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if redisStore != nil {
		if err := redisStore.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// startConfiguredLocations begins monitoring every location in the optional
// locations file. A missing file just means no pre-configured sessions.
func startConfiguredLocations(ctx context.Context, cfg *config.Config, monitor *notify.Monitor, logger *slog.Logger) {
	locations, err := config.LoadLocations(cfg.LocationsFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("no locations file, waiting for api-driven sessions", "path", cfg.LocationsFile)
			return
		}
		logger.Error("failed to load locations", "path", cfg.LocationsFile, "error", err)
		os.Exit(1)
	}

	for _, loc := range locations {
		monitor.Start(ctx, loc.SessionID, loc.Latitude, loc.Longitude)
		logger.Info("monitoring configured location",
			"name", loc.Name, "session", loc.SessionID,
			"lat", loc.Latitude, "lng", loc.Longitude)
	}
}
