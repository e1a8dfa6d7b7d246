// checkonce evaluates weather conditions for a single coordinate and prints
// the result as JSON, for smoke-testing source wiring without running the
// full service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ambakkou/stormwatch/internal/adapter/mock"
	"github.com/ambakkou/stormwatch/internal/adapter/nhc"
	"github.com/ambakkou/stormwatch/internal/adapter/nws"
	"github.com/ambakkou/stormwatch/internal/adapter/openmeteo"
	"github.com/ambakkou/stormwatch/internal/adapter/weatherapi"
	"github.com/ambakkou/stormwatch/internal/aggregate"
	"github.com/ambakkou/stormwatch/internal/config"
	"github.com/ambakkou/stormwatch/internal/domain"
	"github.com/ambakkou/stormwatch/internal/notify"
	"github.com/ambakkou/stormwatch/internal/observability"
	"github.com/ambakkou/stormwatch/internal/throttle"
)

func main() {
	lat := flag.Float64("lat", 25.774, "latitude to evaluate")
	lng := flag.Float64("lng", -80.193, "longitude to evaluate")
	timeout := flag.Duration("timeout", 60*time.Second, "overall evaluation timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, "text")
	metrics := observability.NewMetrics()

	limiter := throttle.NewLimiter(cfg.ThrottleDelay, cfg.RateLimitCooldown, cfg.RequestTimeout, logger, metrics)
	cache := throttle.NewCache(cfg.CacheMaxEntries, nil)
	client := throttle.NewClient(limiter, cache, logger, metrics)

	agg := aggregate.New(logger, metrics)
	if cfg.TestMode {
		m := mock.New(mock.Scenario(cfg.MockScenario))
		agg.AddCurrent(m)
		agg.AddForecast(m)
		agg.AddAlerts(m)
		agg.AddHurricanes(m)
	}
	if cfg.OpenMeteoEnabled {
		om, err := openmeteo.New(cache, logger)
		if err != nil {
			logger.Error("failed to create open-meteo adapter", "error", err)
			os.Exit(1)
		}
		agg.AddCurrent(om)
		agg.AddForecast(om)
	}
	agg.AddAlerts(nws.New(client, logger))
	agg.AddHurricanes(nhc.New(client, logger))
	if cfg.WeatherAPIKey != "" {
		wapi := weatherapi.New(cfg.WeatherAPIKey, client, logger)
		agg.AddCurrent(wapi)
		agg.AddForecast(wapi)
		agg.AddAlerts(wapi)
	}

	engine := notify.NewEngine(agg, domain.NewAnalyzer(), logger, metrics)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cond, err := engine.Evaluate(ctx, *lat, *lng)
	if err != nil {
		logger.Error("evaluation failed", "error", err)
		os.Exit(1)
	}

	out := struct {
		Latitude  float64                  `json:"latitude"`
		Longitude float64                  `json:"longitude"`
		Condition *domain.WeatherCondition `json:"condition"`
	}{Latitude: *lat, Longitude: *lng, Condition: cond}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintln(os.Stderr, "encode result:", err)
		os.Exit(1)
	}
}
