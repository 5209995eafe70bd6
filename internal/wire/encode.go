package wire

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// MarshalWire encodes the request in protobuf binary format.
func (m *ReceiveLiveWeatherForecastRequest) MarshalWire() ([]byte, error) {
	return m.appendWire(nil)
}

// MarshalWire encodes the response in protobuf binary format.
func (m *ReceiveLiveWeatherForecastResponse) MarshalWire() ([]byte, error) {
	return m.appendWire(nil)
}

// MarshalWire encodes the request in protobuf binary format.
func (m *GetHistoricalWeatherForecastRequest) MarshalWire() ([]byte, error) {
	return m.appendWire(nil)
}

// MarshalWire encodes the response in protobuf binary format.
func (m *GetHistoricalWeatherForecastResponse) MarshalWire() ([]byte, error) {
	return m.appendWire(nil)
}

func (m *Location) appendWire(b []byte) ([]byte, error) {
	b = appendFloat(b, 1, m.Latitude)
	b = appendFloat(b, 2, m.Longitude)
	b = appendString(b, 3, m.CountryCode)
	return b, nil
}

func (m *FeatureForecast) appendWire(b []byte) ([]byte, error) {
	b = appendVarint(b, 1, uint64(int64(m.Feature)))
	b = appendFloat(b, 2, m.Value)
	return b, nil
}

func (m *Forecast) appendWire(b []byte) ([]byte, error) {
	b, err := appendTimestamp(b, 1, m.ValidAtTs)
	if err != nil {
		return nil, err
	}
	for _, f := range m.Features {
		if b, err = appendMessage(b, 2, f); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (m *LocationForecast) appendWire(b []byte) ([]byte, error) {
	var err error
	for _, f := range m.Forecasts {
		if b, err = appendMessage(b, 1, f); err != nil {
			return nil, err
		}
	}
	if m.Location != nil {
		if b, err = appendMessage(b, 2, m.Location); err != nil {
			return nil, err
		}
	}
	return appendTimestamp(b, 3, m.CreationTs)
}

func (m *ReceiveLiveWeatherForecastRequest) appendWire(b []byte) ([]byte, error) {
	var err error
	for _, l := range m.Locations {
		if b, err = appendMessage(b, 1, l); err != nil {
			return nil, err
		}
	}
	return appendPackedEnums(b, 2, m.Features), nil
}

func (m *ReceiveLiveWeatherForecastResponse) appendWire(b []byte) ([]byte, error) {
	var err error
	for _, lf := range m.LocationForecasts {
		if b, err = appendMessage(b, 1, lf); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (m *PaginationParams) appendWire(b []byte) ([]byte, error) {
	b = appendVarint(b, 1, uint64(m.PageSize))
	b = appendString(b, 2, m.PageToken)
	return b, nil
}

func (m *PaginationInfo) appendWire(b []byte) ([]byte, error) {
	b = appendVarint(b, 1, uint64(m.TotalItems))
	b = appendString(b, 2, m.NextPageToken)
	return b, nil
}

func (m *GetHistoricalWeatherForecastRequest) appendWire(b []byte) ([]byte, error) {
	var err error
	for _, l := range m.Locations {
		if b, err = appendMessage(b, 1, l); err != nil {
			return nil, err
		}
	}
	b = appendPackedEnums(b, 2, m.Features)
	if b, err = appendTimestamp(b, 3, m.StartTs); err != nil {
		return nil, err
	}
	if b, err = appendTimestamp(b, 4, m.EndTs); err != nil {
		return nil, err
	}
	if m.PaginationParams != nil {
		if b, err = appendMessage(b, 5, m.PaginationParams); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (m *GetHistoricalWeatherForecastResponse) appendWire(b []byte) ([]byte, error) {
	var err error
	for _, lf := range m.LocationForecasts {
		if b, err = appendMessage(b, 1, lf); err != nil {
			return nil, err
		}
	}
	if m.PaginationInfo != nil {
		if b, err = appendMessage(b, 2, m.PaginationInfo); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// --- field encoders ---
// Scalars equal to their zero value are omitted, as proto3 does.

type appender interface {
	appendWire(b []byte) ([]byte, error)
}

func appendMessage(b []byte, num protowire.Number, m appender) ([]byte, error) {
	body, err := m.appendWire(nil)
	if err != nil {
		return nil, err
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, body), nil
}

func appendTimestamp(b []byte, num protowire.Number, ts *timestamppb.Timestamp) ([]byte, error) {
	if ts == nil {
		return b, nil
	}
	body, err := proto.Marshal(ts)
	if err != nil {
		return nil, err
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, body), nil
}

func appendFloat(b []byte, num protowire.Number, v float64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, math.Float32bits(float32(v)))
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendPackedEnums(b []byte, num protowire.Number, vs []int32) []byte {
	if len(vs) == 0 {
		return b
	}
	var packed []byte
	for _, v := range vs {
		packed = protowire.AppendVarint(packed, uint64(int64(v)))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}
