package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/weather-forecast-client/internal/domain"
	"github.com/couchcryptid/weather-forecast-client/internal/observability"
	"github.com/jonboulle/clockwork"
)

// ExportConfig selects what an Exporter fetches.
type ExportConfig struct {
	Locations []domain.Location
	Features  []domain.ForecastFeature

	// Window is the length of the validity window ending at the run time.
	Window time.Duration
	// Align truncates the window end to a multiple of Align, so runs within
	// one interval issue identical queries. Zero disables alignment.
	Align time.Duration
	// RequestTimeout bounds fetching all pages. Zero means no timeout.
	RequestTimeout time.Duration

	// LoadAttempts is the number of LoadBatch attempts per run (default 3).
	LoadAttempts int
	// InitialBackoff is the wait after the first failed load (default 200ms).
	InitialBackoff time.Duration
	// MaxBackoff caps the wait between load attempts (default 5s).
	MaxBackoff time.Duration
}

// Exporter flattens a window of historical forecasts and publishes the records.
type Exporter struct {
	source  HistoricalSource
	loader  BatchLoader
	cfg     ExportConfig
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
}

// NewExporter creates an Exporter reading from source and writing to loader.
func NewExporter(source HistoricalSource, loader BatchLoader, cfg ExportConfig, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Exporter {
	if cfg.LoadAttempts <= 0 {
		cfg.LoadAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	return &Exporter{
		source:  source,
		loader:  loader,
		cfg:     cfg,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once an export run has completed.
func (e *Exporter) CheckReadiness(_ context.Context) error {
	if !e.ready.Load() {
		return errors.New("no forecast export has completed yet")
	}
	return nil
}

// Query returns the historical query for a run at now.
func (e *Exporter) Query(now time.Time) domain.HistoricalQuery {
	end := now.UTC()
	if e.cfg.Align > 0 {
		end = end.Truncate(e.cfg.Align)
	}
	return domain.HistoricalQuery{
		Locations: e.cfg.Locations,
		Features:  e.cfg.Features,
		Start:     end.Add(-e.cfg.Window),
		End:       end,
	}
}

// RunOnce exports the window ending now.
func (e *Exporter) RunOnce(ctx context.Context) error {
	start := e.clock.Now()
	e.metrics.ExportRunning.Set(1)
	defer e.metrics.ExportRunning.Set(0)

	q := e.Query(e.clock.Now())
	log := e.logger.With("start", q.Start, "end", q.End)

	pages, err := e.fetch(ctx, q)
	if err != nil {
		e.metrics.ProcessingErrors.WithLabelValues("fetch").Inc()
		return fmt.Errorf("export forecasts: %w", err)
	}

	records, err := e.flatten(pages)
	if err != nil {
		e.metrics.ProcessingErrors.WithLabelValues("flatten").Inc()
		return fmt.Errorf("export forecasts: %w", err)
	}

	if len(records) > 0 {
		if err := e.load(ctx, records); err != nil {
			e.metrics.ProcessingErrors.WithLabelValues("load").Inc()
			return fmt.Errorf("export forecasts: %w", err)
		}
		e.metrics.RecordsProduced.Add(float64(len(records)))
	}

	e.metrics.ExportDuration.Observe(e.clock.Since(start).Seconds())
	e.ready.Store(true)
	log.Info("forecast export complete", "pages", len(pages), "records", len(records))
	return nil
}

func (e *Exporter) fetch(ctx context.Context, q domain.HistoricalQuery) ([]domain.HistoricalForecasts, error) {
	if e.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.RequestTimeout)
		defer cancel()
	}
	return e.source.GetHistoricalForecast(ctx, q)
}

func (e *Exporter) flatten(pages []domain.HistoricalForecasts) ([]domain.ForecastRecord, error) {
	var records []domain.ForecastRecord
	for i, page := range pages {
		recs, err := page.Flatten(e.logger)
		if errors.Is(err, domain.ErrEmptyPayload) {
			e.logger.Warn("skipping empty historical page", "page", i)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("flatten page %d: %w", i, err)
		}
		records = append(records, recs...)
	}
	return records, nil
}

// load publishes records, retrying with exponential backoff unless the
// loader reports a permanent failure.
func (e *Exporter) load(ctx context.Context, records []domain.ForecastRecord) error {
	backoff := e.cfg.InitialBackoff
	var err error
	for attempt := 1; ; attempt++ {
		if err = e.loader.LoadBatch(ctx, records); err == nil {
			return nil
		}
		if IsPermanent(err) || attempt >= e.cfg.LoadAttempts || ctx.Err() != nil {
			break
		}
		e.logger.Warn("load batch failed, retrying",
			"error", err,
			"attempt", attempt,
			"backoff", backoff,
			"records", len(records),
		)
		if !sleepWithContext(ctx, backoff) {
			break
		}
		backoff = nextBackoff(backoff, e.cfg.MaxBackoff)
	}
	return fmt.Errorf("load %d records: %w", len(records), err)
}
