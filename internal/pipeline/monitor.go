package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/weather-forecast-client/internal/domain"
	"github.com/couchcryptid/weather-forecast-client/internal/observability"
	"github.com/jonboulle/clockwork"
)

// ErrStreamEnded is returned by Monitor.Run when the service closes the live
// stream. Streams are not reopened.
var ErrStreamEnded = errors.New("live forecast stream ended")

// Snapshot is the most recent live forecast, materialized with axis labels.
type Snapshot struct {
	ReceivedAt    time.Time
	ValidityTimes []time.Time
	Locations     []domain.Location
	Features      []domain.ForecastFeature
	Array         *domain.Array3D
}

// Monitor keeps the latest live forecast for a fixed selection of locations
// and features.
type Monitor struct {
	source    LiveSource
	locations []domain.Location
	features  []domain.ForecastFeature
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics

	mu     sync.RWMutex
	latest *Snapshot
}

// NewMonitor creates a Monitor. An empty locations or features list selects
// whatever the service sends on that axis.
func NewMonitor(source LiveSource, locations []domain.Location, features []domain.ForecastFeature, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Monitor {
	rounded := make([]domain.Location, len(locations))
	for i, l := range locations {
		rounded[i] = l.WireRounded()
	}
	return &Monitor{
		source:    source,
		locations: rounded,
		features:  features,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run consumes the live stream until ctx is cancelled or the stream ends.
func (m *Monitor) Run(ctx context.Context) error {
	r, err := m.source.StreamLiveForecast(ctx, m.locations, m.features)
	if err != nil {
		return fmt.Errorf("subscribe to live forecasts: %w", err)
	}
	defer r.Close()

	m.logger.Info("live forecast monitor started",
		"locations", len(m.locations),
		"features", len(m.features),
	)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("live forecast monitor stopping", "reason", ctx.Err())
			return nil
		case f, ok := <-r.C():
			if !ok {
				return ErrStreamEnded
			}
			m.handle(f)
		}
	}
}

// Latest returns the most recent snapshot, or nil before the first forecast.
func (m *Monitor) Latest() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

func (m *Monitor) handle(f domain.Forecasts) {
	m.metrics.ForecastsReceived.Inc()

	arr, err := f.ToArray(domain.Filter{Locations: m.locations, Features: m.features}, m.logger)
	if err != nil {
		m.metrics.ProcessingErrors.WithLabelValues("live").Inc()
		m.logger.Warn("dropping live forecast", "error", err)
		return
	}

	locations := m.locations
	if len(locations) == 0 {
		locations = f.Locations()
	}
	features := m.features
	if len(features) == 0 {
		features = f.Features(m.logger)
	}
	if arr.L != len(locations) || arr.F != len(features) {
		m.metrics.ProcessingErrors.WithLabelValues("live").Inc()
		m.logger.Warn("dropping live forecast that does not cover the selection",
			"locations", arr.L,
			"features", arr.F,
		)
		return
	}

	m.metrics.MissingCells.Add(float64(arr.MissingCount()))

	snap := &Snapshot{
		ReceivedAt:    m.clock.Now(),
		ValidityTimes: f.ValidityTimes(),
		Locations:     locations,
		Features:      features,
		Array:         arr,
	}
	m.mu.Lock()
	m.latest = snap
	m.mu.Unlock()
}
