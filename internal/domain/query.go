package domain

import (
	"errors"
	"time"

	"github.com/couchcryptid/weather-forecast-client/internal/wire"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// HistoricalQuery selects stored forecasts for a set of locations and features
// over the half-open validity window [Start, End).
type HistoricalQuery struct {
	Locations []Location
	Features  []ForecastFeature
	Start     time.Time
	End       time.Time
}

// Validate reports queries the service would reject.
func (q HistoricalQuery) Validate() error {
	switch {
	case len(q.Locations) == 0:
		return errors.New("historical query: at least one location is required")
	case len(q.Features) == 0:
		return errors.New("historical query: at least one feature is required")
	case q.Start.IsZero() || q.End.IsZero():
		return errors.New("historical query: start and end are required")
	case !q.End.After(q.Start):
		return errors.New("historical query: end must be after start")
	}
	return nil
}

// ToWire builds the request for one page.
func (q HistoricalQuery) ToWire(pageSize uint32, pageToken string) *wire.GetHistoricalWeatherForecastRequest {
	req := &wire.GetHistoricalWeatherForecastRequest{
		Locations: locationsToWire(q.Locations),
		Features:  featuresToWire(q.Features),
		StartTs:   timestamppb.New(q.Start),
		EndTs:     timestamppb.New(q.End),
	}
	if pageSize > 0 || pageToken != "" {
		req.PaginationParams = &wire.PaginationParams{PageSize: pageSize, PageToken: pageToken}
	}
	return req
}

// LiveRequest builds the request that opens a live stream.
func LiveRequest(locations []Location, features []ForecastFeature) *wire.ReceiveLiveWeatherForecastRequest {
	return &wire.ReceiveLiveWeatherForecastRequest{
		Locations: locationsToWire(locations),
		Features:  featuresToWire(features),
	}
}

func locationsToWire(locations []Location) []*wire.Location {
	if len(locations) == 0 {
		return nil
	}
	out := make([]*wire.Location, len(locations))
	for i, l := range locations {
		out[i] = l.ToWire()
	}
	return out
}
