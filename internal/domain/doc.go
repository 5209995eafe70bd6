// Package domain models Weather Forecast API payloads and reshapes them for
// analysis.
//
// # Payload Shape
//
// Live stream messages and historical query pages share one nested layout:
//
//	location forecasts (ordered)
//	  └─ location, creation timestamp
//	  └─ forecasts (ordered by validity time)
//	       └─ validity timestamp
//	       └─ feature forecasts (ordered): (feature code, value)
//
// Every location in a payload is expected to expose the same validity times
// and the same features in the same order. The first location acts as the
// axis template: its validity times define the time axis and the features of
// its first validity time define the feature axis. Nothing validates this;
// non-uniform payloads produce best-effort output.
//
// # Dense Arrays
//
// [Forecasts.ToArray] produces an [Array3D] indexed (validity time, location,
// feature). Each axis can be narrowed with a [Filter]. A requested value is
// resolved to the first matching template entry; values that match nothing
// are dropped and reported as a warning through [Diagnostics]. Cells with no
// source value hold NaN, which is distinct from a real zero.
//
// Filter slices follow truthiness: a nil or empty slice selects the whole
// axis. A non-nil empty slice still counts as an explicit request for the
// mismatch warning, so it is reported as zero requested values against a full
// axis.
//
// # Records
//
// [HistoricalForecasts.Flatten] projects a payload to one [ForecastRecord] per
// present (location, validity time, feature) cell in payload order. Missing
// cells are absent from the output, never padded.
//
// # Feature Codes
//
// Wire feature codes map to [ForecastFeature] through [FeatureFromWire], which
// never fails: unknown codes become [FeatureUnspecified] with a warning.
package domain
