// Package pipeline moves forecasts from the weather service to downstream
// consumers. The Exporter periodically flattens a window of historical
// forecasts into records for a sink; the Monitor keeps the latest live
// forecast materialized as a dense array.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/couchcryptid/weather-forecast-client/internal/domain"
	"github.com/couchcryptid/weather-forecast-client/internal/stream"
)

// HistoricalSource fetches every page of a historical query.
type HistoricalSource interface {
	GetHistoricalForecast(ctx context.Context, q domain.HistoricalQuery) ([]domain.HistoricalForecasts, error)
}

// LiveSource subscribes to live forecasts.
type LiveSource interface {
	StreamLiveForecast(ctx context.Context, locations []domain.Location, features []domain.ForecastFeature) (*stream.Receiver[domain.Forecasts], error)
}

// BatchLoader writes forecast records to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, records []domain.ForecastRecord) error
}

// Permanent marks err as a load failure that retrying cannot fix.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err, or any error it wraps, was marked with
// Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
