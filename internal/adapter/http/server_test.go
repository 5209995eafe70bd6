package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/weather-forecast-client/internal/adapter/http"
	"github.com/couchcryptid/weather-forecast-client/internal/domain"
	"github.com/couchcryptid/weather-forecast-client/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockLatest struct {
	snap *pipeline.Snapshot
}

func (m *mockLatest) Latest() *pipeline.Snapshot { return m.snap }

func newTestServer(readyErr error, snap *pipeline.Snapshot) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, &mockLatest{snap: snap}, slog.Default())
}

func get(srv *httpadapter.Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(newTestServer(nil, nil), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(newTestServer(nil, nil), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(newTestServer(fmt.Errorf("not ready yet"), nil), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(newTestServer(nil, nil), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestLatestReturns404BeforeFirstForecast(t *testing.T) {
	rec := get(newTestServer(nil, nil), "/v1/forecast/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLatestRendersSnapshot(t *testing.T) {
	at := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	arr := domain.NewArray3D(2, 1, 2)
	arr.Set(0, 0, 0, 21.5)
	arr.Set(0, 0, 1, 0)
	arr.Set(1, 0, 0, 22)
	snap := &pipeline.Snapshot{
		ReceivedAt:    at,
		ValidityTimes: []time.Time{at, at.Add(time.Hour)},
		Locations:     []domain.Location{{Latitude: 52.5, Longitude: 13.25, CountryCode: "DE"}},
		Features:      []domain.ForecastFeature{domain.FeatureTemperature2Metre, domain.FeatureSurfaceNetSolarRadiation},
		Array:         arr,
	}

	rec := get(newTestServer(nil, snap), "/v1/forecast/latest")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.JSONEq(t, `{
		"received_at": "2024-06-01T12:00:00Z",
		"shape": [2, 1, 2],
		"validity_times": ["2024-06-01T12:00:00Z", "2024-06-01T13:00:00Z"],
		"locations": [{"latitude": 52.5, "longitude": 13.25, "country_code": "DE"}],
		"features": ["TEMPERATURE_2_METRE", "SURFACE_NET_SOLAR_RADIATION"],
		"values": [[[21.5, 0]], [[22, null]]]
	}`, rec.Body.String())
	assert.True(t, math.IsNaN(arr.At(1, 0, 1)))
}

func TestReadyzRequiresEveryChecker(t *testing.T) {
	ready := httpadapter.AllReady(&mockReadiness{}, &mockReadiness{err: fmt.Errorf("redis page cache: connection refused")})
	srv := httpadapter.NewServer(":0", ready, &mockLatest{}, slog.Default())

	rec := get(srv, "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "redis page cache: connection refused", body["error"])
}

func TestAllReady(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, httpadapter.AllReady().CheckReadiness(ctx))
	assert.NoError(t, httpadapter.AllReady(&mockReadiness{}, &mockReadiness{}).CheckReadiness(ctx))

	err := httpadapter.AllReady(&mockReadiness{err: fmt.Errorf("a")}, &mockReadiness{err: fmt.Errorf("b")}).CheckReadiness(ctx)
	require.Error(t, err)
	assert.Equal(t, "a\nb", err.Error())
}
