package domain

import (
	"fmt"
	"strings"

	"github.com/couchcryptid/weather-forecast-client/internal/wire"
)

// ForecastFeature identifies a forecast quantity.
type ForecastFeature int32

const (
	FeatureUnspecified                    = ForecastFeature(wire.FeatureUnspecified)
	FeatureTemperature2Metre              = ForecastFeature(wire.FeatureTemperature2Metre)
	FeatureUWindComponent100Metre         = ForecastFeature(wire.FeatureUWindComponent100Metre)
	FeatureVWindComponent100Metre         = ForecastFeature(wire.FeatureVWindComponent100Metre)
	FeatureUWindComponent10Metre          = ForecastFeature(wire.FeatureUWindComponent10Metre)
	FeatureVWindComponent10Metre          = ForecastFeature(wire.FeatureVWindComponent10Metre)
	FeatureSurfaceSolarRadiationDownwards = ForecastFeature(wire.FeatureSurfaceSolarRadiationDownwards)
	FeatureSurfaceNetSolarRadiation       = ForecastFeature(wire.FeatureSurfaceNetSolarRadiation)
)

var featureNames = map[ForecastFeature]string{
	FeatureUnspecified:                    "UNSPECIFIED",
	FeatureTemperature2Metre:              "TEMPERATURE_2_METRE",
	FeatureUWindComponent100Metre:         "U_WIND_COMPONENT_100_METRE",
	FeatureVWindComponent100Metre:         "V_WIND_COMPONENT_100_METRE",
	FeatureUWindComponent10Metre:          "U_WIND_COMPONENT_10_METRE",
	FeatureVWindComponent10Metre:          "V_WIND_COMPONENT_10_METRE",
	FeatureSurfaceSolarRadiationDownwards: "SURFACE_SOLAR_RADIATION_DOWNWARDS",
	FeatureSurfaceNetSolarRadiation:       "SURFACE_NET_SOLAR_RADIATION",
}

// FeatureFromWire maps a wire code to a feature. Unknown codes map to
// FeatureUnspecified and are reported to diag.
func FeatureFromWire(code int32, diag Diagnostics) ForecastFeature {
	f := ForecastFeature(code)
	if _, ok := featureNames[f]; !ok {
		diagnostics(diag).Warn("unknown forecast feature, returning UNSPECIFIED", "code", code)
		return FeatureUnspecified
	}
	return f
}

// ToWire returns the wire code of the feature.
func (f ForecastFeature) ToWire() int32 {
	return int32(f)
}

func (f ForecastFeature) String() string {
	if name, ok := featureNames[f]; ok {
		return name
	}
	return fmt.Sprintf("ForecastFeature(%d)", int32(f))
}

// ParseFeature parses a feature name such as "TEMPERATURE_2_METRE". Matching
// ignores case and an optional "FORECAST_FEATURE_" prefix.
func ParseFeature(name string) (ForecastFeature, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	n = strings.TrimPrefix(n, "FORECAST_FEATURE_")
	for f, s := range featureNames {
		if s == n {
			return f, nil
		}
	}
	return FeatureUnspecified, fmt.Errorf("unknown forecast feature %q", name)
}

// MarshalText encodes the feature by name.
func (f ForecastFeature) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText decodes a feature name.
func (f *ForecastFeature) UnmarshalText(text []byte) error {
	parsed, err := ParseFeature(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

func featuresToWire(features []ForecastFeature) []int32 {
	if len(features) == 0 {
		return nil
	}
	codes := make([]int32, len(features))
	for i, f := range features {
		codes[i] = f.ToWire()
	}
	return codes
}
