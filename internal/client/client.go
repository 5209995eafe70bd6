// Package client talks to the weather forecast service over gRPC.
//
// Live forecasts arrive on a server stream shared between all callers that ask
// for the same locations and features. Historical forecasts are fetched page by
// page through a circuit breaker and an optional page cache.
package client

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/weather-forecast-client/internal/domain"
	"github.com/couchcryptid/weather-forecast-client/internal/observability"
	"github.com/couchcryptid/weather-forecast-client/internal/stream"
	"github.com/couchcryptid/weather-forecast-client/internal/wire"
	"github.com/sony/gobreaker"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	defaultPageSize     = 100
	defaultStreamBuffer = 50
	defaultMaxFailures  = 5
	defaultOpenTimeout  = 30 * time.Second
)

// Cache stores encoded historical response pages.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Option configures a Client.
type Option func(*Client)

// WithCache serves repeated historical page requests from c.
func WithCache(c Cache) Option {
	return func(cl *Client) { cl.cache = c }
}

// WithPageSize sets the page size requested from the historical endpoint.
func WithPageSize(n uint32) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.pageSize = n
		}
	}
}

// WithStreamBuffer sets the per-receiver buffer of live streams.
func WithStreamBuffer(n int) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.streamBuffer = n
		}
	}
}

// WithBreaker opens the historical circuit after maxFailures consecutive
// failures and probes again after openTimeout.
func WithBreaker(maxFailures uint32, openTimeout time.Duration) Option {
	return func(cl *Client) {
		if maxFailures > 0 {
			cl.maxFailures = maxFailures
		}
		if openTimeout > 0 {
			cl.openTimeout = openTimeout
		}
	}
}

// Client is a weather forecast service client. It is safe for concurrent use.
type Client struct {
	conn    grpc.ClientConnInterface
	logger  *slog.Logger
	metrics *observability.Metrics

	live    *stream.Hub[*wire.ReceiveLiveWeatherForecastResponse, domain.Forecasts]
	breaker *gobreaker.CircuitBreaker
	cache   Cache

	pageSize     uint32
	streamBuffer int
	maxFailures  uint32
	openTimeout  time.Duration
}

// Dial creates a plaintext connection to the service at addr.
func Dial(addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial weather service %s: %w", addr, err)
	}
	return conn, nil
}

// New creates a Client over conn. The caller keeps ownership of conn.
func New(conn grpc.ClientConnInterface, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Client {
	c := &Client{
		conn:         conn,
		logger:       logger,
		metrics:      metrics,
		pageSize:     defaultPageSize,
		streamBuffer: defaultStreamBuffer,
		maxFailures:  defaultMaxFailures,
		openTimeout:  defaultOpenTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.live = stream.NewHub(domain.ForecastsFromWire, stream.Config{
		Buffer:           c.streamBuffer,
		OnStreamsChanged: func(n int) { metrics.LiveStreams.Set(float64(n)) },
	}, logger)

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "historical-forecast",
		Timeout: c.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			metrics.BreakerState.Set(float64(to))
		},
	})
	return c
}

// StreamLiveForecast subscribes to live forecasts for the given locations and
// features. Callers asking for the same set share one upstream stream. The
// receiver channel closes when the stream ends; it is not reopened.
func (c *Client) StreamLiveForecast(ctx context.Context, locations []domain.Location, features []domain.ForecastFeature) (*stream.Receiver[domain.Forecasts], error) {
	req := domain.LiveRequest(locations, features)
	open := func(ctx context.Context) (stream.Source[*wire.ReceiveLiveWeatherForecastResponse], error) {
		cs, err := c.conn.NewStream(ctx, &liveStreamDesc, wire.FullReceiveLiveWeatherForecastMethod, grpc.ForceCodec(wire.Codec{}))
		if err != nil {
			return nil, fmt.Errorf("open live forecast stream: %w", err)
		}
		if err := cs.SendMsg(req); err != nil {
			return nil, fmt.Errorf("send live forecast request: %w", err)
		}
		if err := cs.CloseSend(); err != nil {
			return nil, fmt.Errorf("close live forecast request: %w", err)
		}
		return liveSource{cs: cs}, nil
	}
	return c.live.Subscribe(ctx, streamKey(locations, features), open)
}

var liveStreamDesc = grpc.StreamDesc{
	StreamName:    wire.ReceiveLiveWeatherForecastMethod,
	ServerStreams: true,
}

type liveSource struct {
	cs grpc.ClientStream
}

func (s liveSource) Recv() (*wire.ReceiveLiveWeatherForecastResponse, error) {
	msg := &wire.ReceiveLiveWeatherForecastResponse{}
	if err := s.cs.RecvMsg(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func streamKey(locations []domain.Location, features []domain.ForecastFeature) string {
	var sb strings.Builder
	for i, l := range locations {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(l.String())
	}
	sb.WriteByte('|')
	for i, f := range features {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(f.String())
	}
	return sb.String()
}

// errPageLoop is returned when the service hands back a page token it already
// returned for the same query.
var errPageLoop = errors.New("historical forecast: page token repeated")

// GetHistoricalForecast fetches every page of q.
func (c *Client) GetHistoricalForecast(ctx context.Context, q domain.HistoricalQuery) ([]domain.HistoricalForecasts, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var pages []domain.HistoricalForecasts
	seen := make(map[string]bool)
	token := ""
	for {
		resp, err := c.historicalPage(ctx, q.ToWire(c.pageSize, token))
		if err != nil {
			return nil, err
		}
		pages = append(pages, domain.HistoricalForecastsFromWire(resp))

		token = resp.NextPageToken()
		if token == "" {
			return pages, nil
		}
		if seen[token] {
			return nil, fmt.Errorf("%w: %q", errPageLoop, token)
		}
		seen[token] = true
	}
}

func (c *Client) historicalPage(ctx context.Context, req *wire.GetHistoricalWeatherForecastRequest) (*wire.GetHistoricalWeatherForecastResponse, error) {
	key := pageKey(req)
	if resp, ok := c.cachedPage(ctx, key); ok {
		c.metrics.HistoricalPages.WithLabelValues("cache").Inc()
		return resp, nil
	}

	start := time.Now()
	out, err := c.breaker.Execute(func() (interface{}, error) {
		resp := &wire.GetHistoricalWeatherForecastResponse{}
		if err := c.conn.Invoke(ctx, wire.FullGetHistoricalWeatherForecastMethod, req, resp, grpc.ForceCodec(wire.Codec{})); err != nil {
			return nil, err
		}
		return resp, nil
	})
	c.metrics.HistoricalRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("get historical forecast: %w", err)
	}

	resp := out.(*wire.GetHistoricalWeatherForecastResponse)
	c.metrics.HistoricalPages.WithLabelValues("remote").Inc()
	c.storePage(ctx, key, resp)
	return resp, nil
}

// pageKey identifies a page request by the hash of its encoding. It returns
// "" when the request cannot be encoded, which disables caching for it.
func pageKey(req *wire.GetHistoricalWeatherForecastRequest) string {
	b, err := req.MarshalWire()
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return "historical:" + hex.EncodeToString(sum[:])
}

func (c *Client) cachedPage(ctx context.Context, key string) (*wire.GetHistoricalWeatherForecastResponse, bool) {
	if c.cache == nil || key == "" {
		return nil, false
	}
	b, ok, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		c.metrics.CacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("page cache lookup failed", "error", err)
		return nil, false
	case !ok:
		c.metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	resp := &wire.GetHistoricalWeatherForecastResponse{}
	if err := resp.UnmarshalWire(b); err != nil {
		c.metrics.CacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("discarding unreadable cached page", "error", err)
		return nil, false
	}
	c.metrics.CacheLookups.WithLabelValues("hit").Inc()
	return resp, true
}

func (c *Client) storePage(ctx context.Context, key string, resp *wire.GetHistoricalWeatherForecastResponse) {
	if c.cache == nil || key == "" {
		return
	}
	b, err := resp.MarshalWire()
	if err != nil {
		c.logger.Warn("encode page for cache", "error", err)
		return
	}
	if err := c.cache.Set(ctx, key, b); err != nil {
		c.logger.Warn("page cache store failed", "error", err)
	}
}

// Close ends every live stream. It does not close the underlying connection.
func (c *Client) Close() {
	c.live.Close()
}
