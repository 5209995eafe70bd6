package domain

import (
	"time"

	"github.com/couchcryptid/weather-forecast-client/internal/wire"
)

// Forecasts is one live stream message. It is a read-only snapshot; nothing in
// this package mutates the wrapped payload.
type Forecasts struct {
	pb *wire.ReceiveLiveWeatherForecastResponse
}

// ForecastsFromWire wraps a live forecast response as-is.
func ForecastsFromWire(pb *wire.ReceiveLiveWeatherForecastResponse) Forecasts {
	return Forecasts{pb: pb}
}

func (f Forecasts) payload() []*wire.LocationForecast {
	if f.pb == nil {
		return nil
	}
	return f.pb.LocationForecasts
}

// Len returns the number of location forecasts.
func (f Forecasts) Len() int { return len(f.payload()) }

// Locations returns the location of every entry in payload order.
func (f Forecasts) Locations() []Location { return locationsOf(f.payload()) }

// ValidityTimes returns the time axis template.
func (f Forecasts) ValidityTimes() []time.Time { return validityTimesOf(f.payload()) }

// Features returns the feature axis template.
func (f Forecasts) Features(diag Diagnostics) []ForecastFeature {
	return featuresOf(f.payload(), diag)
}

// ToArray materializes the payload as a dense (time, location, feature) array.
// See the package documentation for filter semantics.
func (f Forecasts) ToArray(filter Filter, diag Diagnostics) (*Array3D, error) {
	return materialize(f.payload(), filter, diag)
}

// HistoricalForecasts is one page of a historical forecast query.
type HistoricalForecasts struct {
	pb *wire.GetHistoricalWeatherForecastResponse
}

// HistoricalForecastsFromWire wraps a historical forecast response as-is.
func HistoricalForecastsFromWire(pb *wire.GetHistoricalWeatherForecastResponse) HistoricalForecasts {
	return HistoricalForecasts{pb: pb}
}

func (h HistoricalForecasts) payload() []*wire.LocationForecast {
	if h.pb == nil {
		return nil
	}
	return h.pb.LocationForecasts
}

// Len returns the number of location forecasts.
func (h HistoricalForecasts) Len() int { return len(h.payload()) }

// Locations returns the location of every entry in payload order.
func (h HistoricalForecasts) Locations() []Location { return locationsOf(h.payload()) }

// ValidityTimes returns the time axis template.
func (h HistoricalForecasts) ValidityTimes() []time.Time { return validityTimesOf(h.payload()) }

// Features returns the feature axis template.
func (h HistoricalForecasts) Features(diag Diagnostics) []ForecastFeature {
	return featuresOf(h.payload(), diag)
}

// ToArray materializes the page the same way Forecasts.ToArray does.
func (h HistoricalForecasts) ToArray(filter Filter, diag Diagnostics) (*Array3D, error) {
	return materialize(h.payload(), filter, diag)
}

// Flatten returns one record per present cell. See ForecastRecord.
func (h HistoricalForecasts) Flatten(diag Diagnostics) ([]ForecastRecord, error) {
	return flatten(h.payload(), diag)
}

// --- axis templates ---

func locationsOf(lfs []*wire.LocationForecast) []Location {
	locs := make([]Location, len(lfs))
	for i, lf := range lfs {
		if lf != nil {
			locs[i] = LocationFromWire(lf.Location)
		}
	}
	return locs
}

func validityTimesOf(lfs []*wire.LocationForecast) []time.Time {
	if len(lfs) == 0 || lfs[0] == nil {
		return nil
	}
	times := make([]time.Time, len(lfs[0].Forecasts))
	for i, fc := range lfs[0].Forecasts {
		if fc != nil {
			times[i] = fc.ValidAtTs.AsTime()
		}
	}
	return times
}

func featuresOf(lfs []*wire.LocationForecast, diag Diagnostics) []ForecastFeature {
	if len(lfs) == 0 || lfs[0] == nil || len(lfs[0].Forecasts) == 0 || lfs[0].Forecasts[0] == nil {
		return nil
	}
	ffs := lfs[0].Forecasts[0].Features
	features := make([]ForecastFeature, len(ffs))
	for i, ff := range ffs {
		if ff != nil {
			features[i] = FeatureFromWire(ff.Feature, diag)
		}
	}
	return features
}
