package domain

import (
	"time"

	"github.com/couchcryptid/weather-forecast-client/internal/wire"
)

// ForecastRecord is one flattened forecast cell.
type ForecastRecord struct {
	CreatedAt time.Time       `json:"creation_ts"`
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	ValidAt   time.Time       `json:"valid_at_ts"`
	Feature   ForecastFeature `json:"feature"`
	Value     float64         `json:"value"`
}

func flatten(lfs []*wire.LocationForecast, diag Diagnostics) ([]ForecastRecord, error) {
	if len(lfs) == 0 {
		return nil, ErrEmptyPayload
	}
	diag = diagnostics(diag)

	var records []ForecastRecord
	for _, lf := range lfs {
		if lf == nil {
			continue
		}
		loc := LocationFromWire(lf.Location)
		created := lf.CreationTs.AsTime()

		for _, fc := range lf.Forecasts {
			if fc == nil {
				continue
			}
			validAt := fc.ValidAtTs.AsTime()

			for _, ff := range fc.Features {
				if ff == nil {
					continue
				}
				records = append(records, ForecastRecord{
					CreatedAt: created,
					Latitude:  loc.Latitude,
					Longitude: loc.Longitude,
					ValidAt:   validAt,
					Feature:   FeatureFromWire(ff.Feature, diag),
					Value:     ff.Value,
				})
			}
		}
	}
	return records, nil
}
