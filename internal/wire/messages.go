// Package wire holds the message types of the Weather Forecast API and their
// protobuf binary encoding.
//
// The types mirror frequenz.api.weather.v1 and frequenz.api.common.v1. They are
// encoded field by field with protowire so the client speaks the service's
// binary format without generated stubs. Timestamps are the well-known
// google.protobuf.Timestamp type.
package wire

import "google.golang.org/protobuf/types/known/timestamppb"

// gRPC service and method names.
const (
	ServiceName = "frequenz.api.weather.WeatherForecastService"

	ReceiveLiveWeatherForecastMethod   = "ReceiveLiveWeatherForecast"
	GetHistoricalWeatherForecastMethod = "GetHistoricalWeatherForecast"

	FullReceiveLiveWeatherForecastMethod   = "/" + ServiceName + "/" + ReceiveLiveWeatherForecastMethod
	FullGetHistoricalWeatherForecastMethod = "/" + ServiceName + "/" + GetHistoricalWeatherForecastMethod
)

// Feature codes as defined by the ForecastFeature enum of the API.
const (
	FeatureUnspecified                    int32 = 0
	FeatureTemperature2Metre              int32 = 1
	FeatureUWindComponent100Metre         int32 = 2
	FeatureVWindComponent100Metre         int32 = 3
	FeatureUWindComponent10Metre          int32 = 4
	FeatureVWindComponent10Metre          int32 = 5
	FeatureSurfaceSolarRadiationDownwards int32 = 6
	FeatureSurfaceNetSolarRadiation       int32 = 7
)

// Location is frequenz.api.common.v1.location.Location.
type Location struct {
	Latitude    float64 // field 1, float
	Longitude   float64 // field 2, float
	CountryCode string  // field 3
}

// FeatureForecast is a single (feature, value) pair.
type FeatureForecast struct {
	Feature int32   // field 1, enum
	Value   float64 // field 2, float
}

// Forecast holds every feature forecast for one validity time.
type Forecast struct {
	ValidAtTs *timestamppb.Timestamp // field 1
	Features  []*FeatureForecast     // field 2
}

// LocationForecast holds the forecasts of one location, ordered by validity time.
type LocationForecast struct {
	Forecasts  []*Forecast            // field 1
	Location   *Location              // field 2
	CreationTs *timestamppb.Timestamp // field 3
}

// ReceiveLiveWeatherForecastRequest opens a live forecast stream.
type ReceiveLiveWeatherForecastRequest struct {
	Locations []*Location // field 1
	Features  []int32     // field 2, packed enum
}

// ReceiveLiveWeatherForecastResponse is one message of the live stream.
type ReceiveLiveWeatherForecastResponse struct {
	LocationForecasts []*LocationForecast // field 1
}

// PaginationParams is frequenz.api.common.v1.pagination.PaginationParams.
type PaginationParams struct {
	PageSize  uint32 // field 1
	PageToken string // field 2
}

// PaginationInfo is frequenz.api.common.v1.pagination.PaginationInfo.
type PaginationInfo struct {
	TotalItems    uint32 // field 1
	NextPageToken string // field 2
}

// GetHistoricalWeatherForecastRequest queries stored forecasts.
type GetHistoricalWeatherForecastRequest struct {
	Locations        []*Location            // field 1
	Features         []int32                // field 2, packed enum
	StartTs          *timestamppb.Timestamp // field 3
	EndTs            *timestamppb.Timestamp // field 4
	PaginationParams *PaginationParams      // field 5
}

// GetHistoricalWeatherForecastResponse is one page of stored forecasts.
type GetHistoricalWeatherForecastResponse struct {
	LocationForecasts []*LocationForecast // field 1
	PaginationInfo    *PaginationInfo     // field 2
}

// NextPageToken returns the token of the following page, or "" on the last page.
func (r *GetHistoricalWeatherForecastResponse) NextPageToken() string {
	if r == nil || r.PaginationInfo == nil {
		return ""
	}
	return r.PaginationInfo.NextPageToken
}
