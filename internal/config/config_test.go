package config

import (
	"testing"
	"time"

	"github.com/couchcryptid/weather-forecast-client/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost:50051", cfg.WeatherServiceAddr)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "weather-forecast-records", cfg.KafkaTopic)
	assert.Equal(t, []domain.Location{{Latitude: 52.52, Longitude: 13.405, CountryCode: "DE"}}, cfg.Locations)
	assert.Equal(t, []domain.ForecastFeature{
		domain.FeatureTemperature2Metre,
		domain.FeatureSurfaceSolarRadiationDownwards,
	}, cfg.Features)
	assert.Equal(t, 15*time.Minute, cfg.ExportInterval)
	assert.Equal(t, 24*time.Hour, cfg.ExportWindow)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 100, cfg.PageSize)
	assert.Equal(t, 5, cfg.BreakerMaxFailures)
	assert.Equal(t, 30*time.Second, cfg.BreakerTimeout)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, 256, cfg.CacheSize)
	assert.Equal(t, 50, cfg.StreamBuffer)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("WEATHER_SERVICE_ADDR", "weather:443")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_TOPIC", "custom-sink")
	t.Setenv("FORECAST_LOCATIONS", "52.52:13.405:de,59.91:10.75:NO")
	t.Setenv("FORECAST_FEATURES", "u_wind_component_100_metre")
	t.Setenv("EXPORT_INTERVAL", "1h")
	t.Setenv("EXPORT_WINDOW", "6h")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("PAGE_SIZE", "500")
	t.Setenv("BREAKER_MAX_FAILURES", "3")
	t.Setenv("BREAKER_TIMEOUT", "1m")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_PASSWORD", "secret")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("CACHE_TTL", "10m")
	t.Setenv("CACHE_SIZE", "64")
	t.Setenv("STREAM_BUFFER", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "weather:443", cfg.WeatherServiceAddr)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-sink", cfg.KafkaTopic)
	require.Len(t, cfg.Locations, 2)
	assert.Equal(t, "DE", cfg.Locations[0].CountryCode)
	assert.InDelta(t, 59.91, cfg.Locations[1].Latitude, 1e-9)
	assert.Equal(t, []domain.ForecastFeature{domain.FeatureUWindComponent100Metre}, cfg.Features)
	assert.Equal(t, time.Hour, cfg.ExportInterval)
	assert.Equal(t, 6*time.Hour, cfg.ExportWindow)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 500, cfg.PageSize)
	assert.Equal(t, 3, cfg.BreakerMaxFailures)
	assert.Equal(t, time.Minute, cfg.BreakerTimeout)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, "secret", cfg.RedisPassword)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 64, cfg.CacheSize)
	assert.Equal(t, 8, cfg.StreamBuffer)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"shutdown timeout not a duration", "SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"negative shutdown timeout", "SHUTDOWN_TIMEOUT", "-1s"},
		{"zero export interval", "EXPORT_INTERVAL", "0s"},
		{"bad export window", "EXPORT_WINDOW", "yesterday"},
		{"zero page size", "PAGE_SIZE", "0"},
		{"page size too large", "PAGE_SIZE", "99999"},
		{"breaker failures not a number", "BREAKER_MAX_FAILURES", "many"},
		{"negative redis db", "REDIS_DB", "-1"},
		{"malformed location", "FORECAST_LOCATIONS", "52.52:13.405"},
		{"latitude out of range", "FORECAST_LOCATIONS", "91:0:XX"},
		{"unknown feature", "FORECAST_FEATURES", "HUMIDITY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_BlankListsAreRejected(t *testing.T) {
	t.Setenv("FORECAST_FEATURES", " , ")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FORECAST_FEATURES is required")
}

func TestLoad_MultipleErrorsAreJoined(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "bad")
	t.Setenv("CACHE_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
	assert.Contains(t, err.Error(), "CACHE_SIZE")
}
