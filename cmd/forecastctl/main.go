// Command forecastctl queries the weather forecast service from the shell.
//
// Historical mode prints every flattened record of a time range as CSV:
//
//	go run ./cmd/forecastctl -addr localhost:50051 \
//	  -locations 52.52:13.405:DE -features TEMPERATURE_2_METRE \
//	  -start 2024-06-01T00:00:00Z -end 2024-06-02T00:00:00Z
//
// Live mode subscribes to the live stream and prints the array shape and
// missing cell count of the next -count payloads:
//
//	go run ./cmd/forecastctl -mode live -locations 52.52:13.405:DE -count 3
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/couchcryptid/weather-forecast-client/internal/client"
	"github.com/couchcryptid/weather-forecast-client/internal/domain"
	"github.com/couchcryptid/weather-forecast-client/internal/observability"
	"github.com/couchcryptid/weather-forecast-client/internal/pipeline"
)

type options struct {
	addr      string
	mode      string
	locations []domain.Location
	features  []domain.ForecastFeature
	start     time.Time
	end       time.Time
	count     int
	pageSize  uint
	timeout   time.Duration
	logLevel  string
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("forecastctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	var locations, features, start, end string
	fs.StringVar(&opts.addr, "addr", "localhost:50051", "weather service address")
	fs.StringVar(&opts.mode, "mode", "historical", "historical or live")
	fs.StringVar(&locations, "locations", "", "comma-separated lat:lon:CC locations")
	fs.StringVar(&features, "features", "TEMPERATURE_2_METRE", "comma-separated feature names")
	fs.StringVar(&start, "start", "", "historical range start (RFC 3339)")
	fs.StringVar(&end, "end", "", "historical range end (RFC 3339)")
	fs.IntVar(&opts.count, "count", 1, "live payloads to print")
	fs.UintVar(&opts.pageSize, "page-size", 100, "historical page size")
	fs.DurationVar(&opts.timeout, "timeout", time.Minute, "overall timeout")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	var err error
	if opts.locations, err = splitParse(locations, domain.ParseLocation); err != nil {
		return options{}, fmt.Errorf("-locations: %w", err)
	}
	if len(opts.locations) == 0 {
		return options{}, errors.New("-locations is required")
	}
	if opts.features, err = splitParse(features, domain.ParseFeature); err != nil {
		return options{}, fmt.Errorf("-features: %w", err)
	}

	switch opts.mode {
	case "historical":
		if opts.start, err = time.Parse(time.RFC3339, start); err != nil {
			return options{}, fmt.Errorf("-start: %w", err)
		}
		if opts.end, err = time.Parse(time.RFC3339, end); err != nil {
			return options{}, fmt.Errorf("-end: %w", err)
		}
	case "live":
		if opts.count <= 0 {
			return options{}, errors.New("-count must be positive")
		}
	default:
		return options{}, fmt.Errorf("unknown -mode %q", opts.mode)
	}
	return opts, nil
}

func splitParse[T any](s string, parse func(string) (T, error)) ([]T, error) {
	var out []T
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		v, err := parse(part)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func run(ctx context.Context, opts options, out io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	logger := observability.NewLogger(opts.logLevel, "text")
	conn, err := client.Dial(opts.addr)
	if err != nil {
		return err
	}
	defer conn.Close() //nolint:errcheck // best-effort on exit

	wc := client.New(conn, logger, observability.NewUnregisteredMetrics(),
		client.WithPageSize(uint32(opts.pageSize)), //nolint:gosec // page sizes fit in uint32
	)
	defer wc.Close()

	if opts.mode == "live" {
		return printLive(ctx, wc, opts, out, logger)
	}
	return printHistorical(ctx, wc, opts, out, logger)
}

func printHistorical(ctx context.Context, src pipeline.HistoricalSource, opts options, out io.Writer, diag domain.Diagnostics) error {
	pages, err := src.GetHistoricalForecast(ctx, domain.HistoricalQuery{
		Locations: opts.locations,
		Features:  opts.features,
		Start:     opts.start,
		End:       opts.end,
	})
	if err != nil {
		return err
	}

	var records []domain.ForecastRecord
	for _, page := range pages {
		recs, err := page.Flatten(diag)
		if errors.Is(err, domain.ErrEmptyPayload) {
			continue
		}
		if err != nil {
			return err
		}
		records = append(records, recs...)
	}
	return writeRecordsCSV(out, records)
}

var csvHeader = []string{"creation_ts", "latitude", "longitude", "valid_at_ts", "feature", "value"}

func writeRecordsCSV(out io.Writer, records []domain.ForecastRecord) error {
	w := csv.NewWriter(out)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.CreatedAt.UTC().Format(time.RFC3339),
			strconv.FormatFloat(r.Latitude, 'f', -1, 64),
			strconv.FormatFloat(r.Longitude, 'f', -1, 64),
			r.ValidAt.UTC().Format(time.RFC3339),
			r.Feature.String(),
			strconv.FormatFloat(r.Value, 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func printLive(ctx context.Context, src pipeline.LiveSource, opts options, out io.Writer, logger *slog.Logger) error {
	r, err := src.StreamLiveForecast(ctx, opts.locations, opts.features)
	if err != nil {
		return err
	}
	defer r.Close()

	for printed := 0; printed < opts.count; {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-r.C():
			if !ok {
				return pipeline.ErrStreamEnded
			}
			arr, err := f.ToArray(domain.Filter{}, logger)
			if err != nil {
				logger.Warn("skipping live forecast", "error", err)
				continue
			}
			shape := arr.Shape()
			fmt.Fprintf(out, "shape=(%d, %d, %d) missing=%d\n", shape[0], shape[1], shape[2], arr.MissingCount())
			printed++
		}
	}
	return nil
}
