package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/couchcryptid/weather-forecast-client/internal/wire"
)

// Location is a point on the globe with its ISO 3166-1 alpha-2 country code.
// Locations are comparable; two are equal when all three fields are.
type Location struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	CountryCode string  `json:"country_code"`
}

// LocationFromWire converts a wire location. A nil message yields the zero Location.
func LocationFromWire(pb *wire.Location) Location {
	if pb == nil {
		return Location{}
	}
	return Location{
		Latitude:    pb.Latitude,
		Longitude:   pb.Longitude,
		CountryCode: pb.CountryCode,
	}
}

// ToWire converts the location to its wire message.
func (l Location) ToWire() *wire.Location {
	return &wire.Location{
		Latitude:    l.Latitude,
		Longitude:   l.Longitude,
		CountryCode: l.CountryCode,
	}
}

// String formats the location as "lat:lon:CC", the format ParseLocation reads.
func (l Location) String() string {
	return strconv.FormatFloat(l.Latitude, 'g', -1, 64) + ":" +
		strconv.FormatFloat(l.Longitude, 'g', -1, 64) + ":" +
		l.CountryCode
}

// ParseLocation parses "lat:lon:CC", e.g. "52.52:13.405:DE".
func ParseLocation(s string) (Location, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return Location{}, fmt.Errorf("parse location %q: want lat:lon:country", s)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || lat < -90 || lat > 90 {
		return Location{}, fmt.Errorf("parse location %q: invalid latitude", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || lon < -180 || lon > 180 {
		return Location{}, fmt.Errorf("parse location %q: invalid longitude", s)
	}

	return Location{
		Latitude:    lat,
		Longitude:   lon,
		CountryCode: strings.ToUpper(strings.TrimSpace(parts[2])),
	}, nil
}

// WireRounded returns l with its coordinates rounded to the float32 precision
// they are transmitted with. Locations echoed back by the service compare
// equal to the rounded form of the request.
func (l Location) WireRounded() Location {
	l.Latitude = float64(float32(l.Latitude))
	l.Longitude = float64(float32(l.Longitude))
	return l
}
