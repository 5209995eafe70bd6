package domain

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/couchcryptid/weather-forecast-client/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocation_WireRoundTrip(t *testing.T) {
	cases := []Location{
		{Latitude: 52.52, Longitude: 13.405, CountryCode: "DE"},
		{Latitude: -33.868820, Longitude: 151.209296, CountryCode: "AU"},
		{Latitude: 0, Longitude: 0, CountryCode: ""},
		{Latitude: 89.999999999, Longitude: -179.123456789, CountryCode: "AQ"},
	}
	for _, loc := range cases {
		t.Run(loc.String(), func(t *testing.T) {
			assert.Equal(t, loc, LocationFromWire(loc.ToWire()))
		})
	}
}

func TestLocationFromWire_Nil(t *testing.T) {
	assert.Equal(t, Location{}, LocationFromWire(nil))
}

func TestParseLocation(t *testing.T) {
	loc, err := ParseLocation(" 52.52:13.405:de ")
	require.NoError(t, err)
	assert.Equal(t, Location{Latitude: 52.52, Longitude: 13.405, CountryCode: "DE"}, loc)

	parsed, err := ParseLocation(loc.String())
	require.NoError(t, err)
	assert.Equal(t, loc, parsed)

	for _, bad := range []string{"", "52.52:13.405", "x:13:DE", "91:0:DE", "0:181:DE"} {
		_, err := ParseLocation(bad)
		assert.Error(t, err, bad)
	}
}

func TestFeatureFromWire(t *testing.T) {
	rec := &recorder{}
	for code := int32(0); code <= 7; code++ {
		assert.Equal(t, ForecastFeature(code), FeatureFromWire(code, rec))
	}
	assert.Empty(t, rec.warnings)

	for _, code := range []int32{-1, 8, 1 << 20} {
		assert.Equal(t, FeatureUnspecified, FeatureFromWire(code, rec))
	}
	assert.Len(t, rec.warnings, 3)
}

func TestFeatureFromWire_NilDiagnostics(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.Equal(t, FeatureUnspecified, FeatureFromWire(99, nil))
	})
}

func TestParseFeature(t *testing.T) {
	f, err := ParseFeature("temperature_2_metre")
	require.NoError(t, err)
	assert.Equal(t, FeatureTemperature2Metre, f)

	f, err = ParseFeature("FORECAST_FEATURE_SURFACE_NET_SOLAR_RADIATION")
	require.NoError(t, err)
	assert.Equal(t, FeatureSurfaceNetSolarRadiation, f)

	_, err = ParseFeature("humidity")
	assert.Error(t, err)
}

func TestForecastFeature_JSON(t *testing.T) {
	data, err := json.Marshal(ForecastRecord{Feature: FeatureUWindComponent100Metre})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"feature":"U_WIND_COMPONENT_100_METRE"`)

	var rec ForecastRecord
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, FeatureUWindComponent100Metre, rec.Feature)

	assert.Equal(t, "ForecastFeature(42)", fmt.Sprint(ForecastFeature(42)))
}

func TestLocation_WireRoundedMatchesDecodedPayload(t *testing.T) {
	loc := Location{Latitude: 52.52, Longitude: 13.405, CountryCode: "DE"}

	b, err := (&wire.ReceiveLiveWeatherForecastRequest{Locations: []*wire.Location{loc.ToWire()}}).MarshalWire()
	require.NoError(t, err)
	var decoded wire.ReceiveLiveWeatherForecastRequest
	require.NoError(t, decoded.UnmarshalWire(b))

	echoed := LocationFromWire(decoded.Locations[0])
	assert.NotEqual(t, loc, echoed)
	assert.Equal(t, loc.WireRounded(), echoed)
}
