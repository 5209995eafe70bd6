package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/couchcryptid/weather-forecast-client/internal/wire"
)

// Filter narrows the axes of a materialized array. A nil or empty slice keeps
// the whole axis in payload order.
type Filter struct {
	ValidityTimes []time.Time
	Locations     []Location
	Features      []ForecastFeature
}

// Array3D is a dense float64 array with axes (validity time, location, feature)
// stored in row-major order. Missing cells hold NaN.
type Array3D struct {
	T, L, F int
	Data    []float64
}

// NewArray3D allocates a t×l×f array with every cell set to NaN.
func NewArray3D(t, l, f int) *Array3D {
	data := make([]float64, t*l*f)
	for i := range data {
		data[i] = math.NaN()
	}
	return &Array3D{T: t, L: l, F: f, Data: data}
}

// Shape returns (T, L, F).
func (a *Array3D) Shape() [3]int {
	return [3]int{a.T, a.L, a.F}
}

// At returns the cell at (t, l, f). It panics when an index is out of range.
func (a *Array3D) At(t, l, f int) float64 {
	return a.Data[a.offset(t, l, f)]
}

// Set stores v at (t, l, f). It panics when an index is out of range.
func (a *Array3D) Set(t, l, f int, v float64) {
	a.Data[a.offset(t, l, f)] = v
}

// MissingCount returns the number of NaN cells.
func (a *Array3D) MissingCount() int {
	n := 0
	for _, v := range a.Data {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}

func (a *Array3D) offset(t, l, f int) int {
	if t < 0 || t >= a.T || l < 0 || l >= a.L || f < 0 || f >= a.F {
		panic(fmt.Sprintf("array index (%d, %d, %d) out of range for shape (%d, %d, %d)", t, l, f, a.T, a.L, a.F))
	}
	return (t*a.L+l)*a.F + f
}

func materialize(lfs []*wire.LocationForecast, filter Filter, diag Diagnostics) (*Array3D, error) {
	if len(lfs) == 0 {
		return nil, ErrEmptyPayload
	}
	diag = diagnostics(diag)

	template := lfs[0]
	if template == nil || len(template.Forecasts) == 0 || template.Forecasts[0] == nil {
		return nil, &ForecastProcessingError{
			Op:  "resolve axes",
			Err: fmt.Errorf("%w: first location has no validity times", ErrMalformedPayload),
		}
	}

	locIdx := resolve(filter.Locations, locationsOf(lfs), func(a, b Location) bool { return a == b })
	timeIdx := resolve(filter.ValidityTimes, validityTimesOf(lfs), time.Time.Equal)
	featIdx := resolve(filter.Features, featuresOf(lfs, diag), func(a, b ForecastFeature) bool { return a == b })

	arr := NewArray3D(len(timeIdx), len(locIdx), len(featIdx))

	for al, l := range locIdx {
		lf := lfs[l]
		if lf == nil {
			continue
		}
		for at, t := range timeIdx {
			if t >= len(lf.Forecasts) || lf.Forecasts[t] == nil {
				continue
			}
			ffs := lf.Forecasts[t].Features
			for af, f := range featIdx {
				if f >= len(ffs) || ffs[f] == nil {
					continue
				}
				arr.Set(at, al, af, ffs[f].Value)
			}
		}
	}

	warnMismatch(diag, "validity_time", filter.ValidityTimes != nil, len(filter.ValidityTimes), arr.T)
	warnMismatch(diag, "location", filter.Locations != nil, len(filter.Locations), arr.L)
	warnMismatch(diag, "feature", filter.Features != nil, len(filter.Features), arr.F)

	return arr, nil
}

// resolve maps requested values to the index of their first match on axis.
// Values with no match are skipped. An empty request selects the whole axis.
func resolve[T any](requested, axis []T, equal func(a, b T) bool) []int {
	if len(requested) == 0 {
		idx := make([]int, len(axis))
		for i := range idx {
			idx[i] = i
		}
		return idx
	}

	idx := make([]int, 0, len(requested))
	for _, want := range requested {
		for i, have := range axis {
			if equal(want, have) {
				idx = append(idx, i)
				break
			}
		}
	}
	return idx
}

func warnMismatch(diag Diagnostics, axis string, explicit bool, requested, resolved int) {
	if !explicit || requested == resolved {
		return
	}
	diag.Warn("forecast array axis does not match filter",
		"axis", axis,
		"requested", requested,
		"resolved", resolved,
	)
}
