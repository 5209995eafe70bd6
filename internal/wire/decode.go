package wire

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// UnmarshalWire decodes the request from protobuf binary format.
func (m *ReceiveLiveWeatherForecastRequest) UnmarshalWire(b []byte) error {
	*m = ReceiveLiveWeatherForecastRequest{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			l := &Location{}
			m.Locations = append(m.Locations, l)
			return consumeMessage(typ, b, l.unmarshalWire)
		case 2:
			return consumeEnums(typ, b, &m.Features), nil
		}
		return 0, nil
	})
}

// UnmarshalWire decodes the response from protobuf binary format.
func (m *ReceiveLiveWeatherForecastResponse) UnmarshalWire(b []byte) error {
	*m = ReceiveLiveWeatherForecastResponse{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			lf := &LocationForecast{}
			m.LocationForecasts = append(m.LocationForecasts, lf)
			return consumeMessage(typ, b, lf.unmarshalWire)
		}
		return 0, nil
	})
}

// UnmarshalWire decodes the request from protobuf binary format.
func (m *GetHistoricalWeatherForecastRequest) UnmarshalWire(b []byte) error {
	*m = GetHistoricalWeatherForecastRequest{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			l := &Location{}
			m.Locations = append(m.Locations, l)
			return consumeMessage(typ, b, l.unmarshalWire)
		case 2:
			return consumeEnums(typ, b, &m.Features), nil
		case 3:
			return consumeTimestamp(typ, b, &m.StartTs)
		case 4:
			return consumeTimestamp(typ, b, &m.EndTs)
		case 5:
			m.PaginationParams = &PaginationParams{}
			return consumeMessage(typ, b, m.PaginationParams.unmarshalWire)
		}
		return 0, nil
	})
}

// UnmarshalWire decodes the response from protobuf binary format.
func (m *GetHistoricalWeatherForecastResponse) UnmarshalWire(b []byte) error {
	*m = GetHistoricalWeatherForecastResponse{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			lf := &LocationForecast{}
			m.LocationForecasts = append(m.LocationForecasts, lf)
			return consumeMessage(typ, b, lf.unmarshalWire)
		case 2:
			m.PaginationInfo = &PaginationInfo{}
			return consumeMessage(typ, b, m.PaginationInfo.unmarshalWire)
		}
		return 0, nil
	})
}

func (m *Location) unmarshalWire(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n := consumeFloat(typ, b)
			m.Latitude = v
			return n, nil
		case 2:
			v, n := consumeFloat(typ, b)
			m.Longitude = v
			return n, nil
		case 3:
			if typ != protowire.BytesType {
				return 0, nil
			}
			v, n := protowire.ConsumeString(b)
			m.CountryCode = v
			return n, nil
		}
		return 0, nil
	})
}

func (m *FeatureForecast) unmarshalWire(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			if typ != protowire.VarintType {
				return 0, nil
			}
			v, n := protowire.ConsumeVarint(b)
			m.Feature = int32(v)
			return n, nil
		case 2:
			v, n := consumeFloat(typ, b)
			m.Value = v
			return n, nil
		}
		return 0, nil
	})
}

func (m *Forecast) unmarshalWire(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeTimestamp(typ, b, &m.ValidAtTs)
		case 2:
			f := &FeatureForecast{}
			m.Features = append(m.Features, f)
			return consumeMessage(typ, b, f.unmarshalWire)
		}
		return 0, nil
	})
}

func (m *LocationForecast) unmarshalWire(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			f := &Forecast{}
			m.Forecasts = append(m.Forecasts, f)
			return consumeMessage(typ, b, f.unmarshalWire)
		case 2:
			if m.Location == nil {
				m.Location = &Location{}
			}
			return consumeMessage(typ, b, m.Location.unmarshalWire)
		case 3:
			return consumeTimestamp(typ, b, &m.CreationTs)
		}
		return 0, nil
	})
}

func (m *PaginationParams) unmarshalWire(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			if typ != protowire.VarintType {
				return 0, nil
			}
			v, n := protowire.ConsumeVarint(b)
			m.PageSize = uint32(v)
			return n, nil
		case 2:
			if typ != protowire.BytesType {
				return 0, nil
			}
			v, n := protowire.ConsumeString(b)
			m.PageToken = v
			return n, nil
		}
		return 0, nil
	})
}

func (m *PaginationInfo) unmarshalWire(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			if typ != protowire.VarintType {
				return 0, nil
			}
			v, n := protowire.ConsumeVarint(b)
			m.TotalItems = uint32(v)
			return n, nil
		case 2:
			if typ != protowire.BytesType {
				return 0, nil
			}
			v, n := protowire.ConsumeString(b)
			m.NextPageToken = v
			return n, nil
		}
		return 0, nil
	})
}

// --- field decoders ---

// fieldFunc decodes the value of one field from the front of b and returns the
// number of bytes consumed. Returning 0 skips the field; a negative count is a
// protowire parse error.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

func walk(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("decode tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		m, err := fn(num, typ, b)
		if err != nil {
			return fmt.Errorf("decode field %d: %w", num, err)
		}
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return fmt.Errorf("decode field %d: %w", num, protowire.ParseError(m))
		}
		b = b[m:]
	}
	return nil
}

func consumeMessage(typ protowire.Type, b []byte, unmarshal func([]byte) error) (int, error) {
	if typ != protowire.BytesType {
		return 0, nil
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n, nil
	}
	return n, unmarshal(v)
}

func consumeTimestamp(typ protowire.Type, b []byte, dst **timestamppb.Timestamp) (int, error) {
	return consumeMessage(typ, b, func(v []byte) error {
		ts := &timestamppb.Timestamp{}
		if err := proto.Unmarshal(v, ts); err != nil {
			return err
		}
		*dst = ts
		return nil
	})
}

// consumeFloat accepts both float and double encodings.
func consumeFloat(typ protowire.Type, b []byte) (float64, int) {
	switch typ {
	case protowire.Fixed32Type:
		v, n := protowire.ConsumeFixed32(b)
		return float64(math.Float32frombits(v)), n
	case protowire.Fixed64Type:
		v, n := protowire.ConsumeFixed64(b)
		return math.Float64frombits(v), n
	}
	return 0, 0
}

// consumeEnums accepts packed and unpacked repeated enums.
func consumeEnums(typ protowire.Type, b []byte, dst *[]int32) int {
	switch typ {
	case protowire.VarintType:
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return n
		}
		*dst = append(*dst, int32(v))
		return n
	case protowire.BytesType:
		packed, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return n
		}
		for len(packed) > 0 {
			v, m := protowire.ConsumeVarint(packed)
			if m < 0 {
				return m
			}
			*dst = append(*dst, int32(v))
			packed = packed[m:]
		}
		return n
	}
	return 0
}
