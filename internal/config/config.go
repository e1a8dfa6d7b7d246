package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	LocationsFile string

	// Upstream request policy.
	RequestTimeout    time.Duration
	ThrottleDelay     time.Duration
	RateLimitCooldown time.Duration
	CacheMaxEntries   int

	// Source adapters. An adapter without its key is treated as permanently
	// failing, never fatal.
	WeatherAPIKey    string
	OpenMeteoEnabled bool

	// TestMode wires the deterministic mock provider into the fallback
	// chains and shortens notification intervals. MockScenario picks the
	// weather the mock fabricates: calm, storm, or hurricane.
	TestMode     bool
	MockScenario string

	// Kafka notification sink (optional).
	KafkaBrokers    []string
	KafkaAlertTopic string
	KafkaEnabled    bool

	// Redis settings persistence (optional).
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisEnabled  bool
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	requestTimeout, err := parseDurationEnv("REQUEST_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	throttleDelay, err := parseDurationEnv("THROTTLE_DELAY", time.Second)
	if err != nil {
		return nil, err
	}
	cooldown, err := parseDurationEnv("RATE_LIMIT_COOLDOWN", 60*time.Second)
	if err != nil {
		return nil, err
	}
	cacheMaxEntries, err := parseIntEnv("CACHE_MAX_ENTRIES", 1000, 1, 1_000_000)
	if err != nil {
		return nil, err
	}
	redisDB, err := parseIntEnv("REDIS_DB", 0, 0, 15)
	if err != nil {
		return nil, err
	}

	kafkaBrokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(kafkaBrokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	redisEnabled := redisAddr != ""
	if v := os.Getenv("REDIS_ENABLED"); v != "" {
		redisEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		LocationsFile: envOrDefault("LOCATIONS_FILE", "locations.yaml"),

		RequestTimeout:    requestTimeout,
		ThrottleDelay:     throttleDelay,
		RateLimitCooldown: cooldown,
		CacheMaxEntries:   cacheMaxEntries,

		WeatherAPIKey:    os.Getenv("WEATHERAPI_KEY"),
		OpenMeteoEnabled: envOrDefault("OPENMETEO_ENABLED", "true") == "true",
		TestMode:         os.Getenv("TEST_MODE") == "true",
		MockScenario:     envOrDefault("MOCK_SCENARIO", "calm"),

		KafkaBrokers:    kafkaBrokers,
		KafkaAlertTopic: envOrDefault("KAFKA_ALERT_TOPIC", "weather-alerts"),
		KafkaEnabled:    kafkaEnabled,

		RedisAddr:     redisAddr,
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
		RedisEnabled:  redisEnabled,
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaAlertTopic == "" {
		return nil, errors.New("KAFKA_ALERT_TOPIC is required when Kafka is enabled")
	}
	if cfg.RedisEnabled && cfg.RedisAddr == "" {
		return nil, errors.New("REDIS_ENABLED is true but REDIS_ADDR is not set")
	}
	switch cfg.MockScenario {
	case "calm", "storm", "hurricane":
	default:
		return nil, fmt.Errorf("invalid MOCK_SCENARIO: %q (must be calm, storm, or hurricane)", cfg.MockScenario)
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseIntEnv(key string, def, min, max int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < min || n > max {
		return 0, fmt.Errorf("invalid %s: %q (must be %d-%d)", key, s, min, max)
	}
	return n, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
