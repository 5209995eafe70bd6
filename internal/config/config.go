package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/weather-forecast-client/internal/domain"
	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	WeatherServiceAddr string
	HTTPAddr           string
	LogLevel           string
	LogFormat          string
	ShutdownTimeout    time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	// Forecast selection shared by the exporter and the live monitor.
	Locations []domain.Location
	Features  []domain.ForecastFeature

	ExportInterval time.Duration
	ExportWindow   time.Duration
	RequestTimeout time.Duration
	PageSize       int

	BreakerMaxFailures int
	BreakerTimeout     time.Duration

	// Page cache. Redis is used when RedisAddr is set, otherwise an
	// in-process LRU of CacheSize entries.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
	CacheSize     int

	StreamBuffer int
}

// Load reads configuration from environment variables, applying defaults where
// unset. Variables from a .env file in the working directory are applied first
// without overriding the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var errs []error
	duration := func(name, def string) time.Duration {
		d, err := parseDuration(name, def)
		errs = append(errs, err)
		return d
	}
	positive := func(name string, def, limit int) int {
		n, err := parsePositiveInt(name, def, limit)
		errs = append(errs, err)
		return n
	}

	cfg := &Config{
		WeatherServiceAddr: envOrDefault("WEATHER_SERVICE_ADDR", "localhost:50051"),
		HTTPAddr:           envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		LogFormat:          envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    duration("SHUTDOWN_TIMEOUT", "10s"),

		KafkaBrokers: parseList(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "weather-forecast-records"),

		ExportInterval: duration("EXPORT_INTERVAL", "15m"),
		ExportWindow:   duration("EXPORT_WINDOW", "24h"),
		RequestTimeout: duration("REQUEST_TIMEOUT", "30s"),
		PageSize:       positive("PAGE_SIZE", 100, 10000),

		BreakerMaxFailures: positive("BREAKER_MAX_FAILURES", 5, 1000),
		BreakerTimeout:     duration("BREAKER_TIMEOUT", "30s"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		CacheTTL:      duration("CACHE_TTL", "1h"),
		CacheSize:     positive("CACHE_SIZE", 256, 1_000_000),

		StreamBuffer: positive("STREAM_BUFFER", 50, 10000),
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	var err error
	if cfg.RedisDB, err = parseRedisDB(); err != nil {
		return nil, err
	}
	if cfg.Locations, err = parseLocations(envOrDefault("FORECAST_LOCATIONS", "52.52:13.405:DE")); err != nil {
		return nil, err
	}
	if cfg.Features, err = parseFeatures(envOrDefault("FORECAST_FEATURES", "TEMPERATURE_2_METRE,SURFACE_SOLAR_RADIATION_DOWNWARDS")); err != nil {
		return nil, err
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required")
	}
	if cfg.WeatherServiceAddr == "" {
		return nil, errors.New("WEATHER_SERVICE_ADDR is required")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// parseList splits a comma-separated value, dropping blanks.
func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDuration(name, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(name, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", name)
	}
	return d, nil
}

func parsePositiveInt(name string, def, limit int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > limit {
		return 0, fmt.Errorf("invalid %s: must be between 1 and %d", name, limit)
	}
	return n, nil
}

func parseRedisDB() (int, error) {
	s := os.Getenv("REDIS_DB")
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New("invalid REDIS_DB: must be a non-negative integer")
	}
	return n, nil
}

func parseLocations(s string) ([]domain.Location, error) {
	parts := parseList(s)
	if len(parts) == 0 {
		return nil, errors.New("FORECAST_LOCATIONS is required")
	}
	out := make([]domain.Location, 0, len(parts))
	for _, p := range parts {
		loc, err := domain.ParseLocation(p)
		if err != nil {
			return nil, fmt.Errorf("invalid FORECAST_LOCATIONS: %w", err)
		}
		out = append(out, loc)
	}
	return out, nil
}

func parseFeatures(s string) ([]domain.ForecastFeature, error) {
	parts := parseList(s)
	if len(parts) == 0 {
		return nil, errors.New("FORECAST_FEATURES is required")
	}
	out := make([]domain.ForecastFeature, 0, len(parts))
	for _, p := range parts {
		f, err := domain.ParseFeature(p)
		if err != nil {
			return nil, fmt.Errorf("invalid FORECAST_FEATURES: %w", err)
		}
		out = append(out, f)
	}
	return out, nil
}
