package domain

import (
	"errors"
	"log/slog"
)

var (
	// ErrEmptyPayload is returned when a payload holds no location forecasts.
	ErrEmptyPayload = errors.New("forecast data is missing or invalid: no locations")

	// ErrMalformedPayload marks payloads whose structure cannot serve as an
	// axis template.
	ErrMalformedPayload = errors.New("malformed forecast payload")
)

// ForecastProcessingError wraps any failure while reshaping a non-empty payload.
type ForecastProcessingError struct {
	Op  string
	Err error
}

func (e *ForecastProcessingError) Error() string {
	return "error processing forecast data: " + e.Op + ": " + e.Err.Error()
}

func (e *ForecastProcessingError) Unwrap() error {
	return e.Err
}

// Diagnostics receives non-fatal warnings. *slog.Logger satisfies it.
type Diagnostics interface {
	Warn(msg string, args ...any)
}

func diagnostics(d Diagnostics) Diagnostics {
	if d == nil {
		return slog.Default()
	}
	return d
}
