//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkaadapter "github.com/couchcryptid/weather-forecast-client/internal/adapter/kafka"
	redisadapter "github.com/couchcryptid/weather-forecast-client/internal/adapter/redis"
	"github.com/couchcryptid/weather-forecast-client/internal/client"
	"github.com/couchcryptid/weather-forecast-client/internal/config"
	"github.com/couchcryptid/weather-forecast-client/internal/domain"
	"github.com/couchcryptid/weather-forecast-client/internal/observability"
	"github.com/couchcryptid/weather-forecast-client/internal/pipeline"
	"github.com/couchcryptid/weather-forecast-client/internal/wire"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const testTopic = "test-forecast-records"

var (
	runAt  = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	berlin = domain.Location{Latitude: 52.5, Longitude: 13.25, CountryCode: "DE"}
)

// --- containers ---

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("forecast-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func startRedis(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err, "start redis container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	return endpoint
}

// --- fake weather service ---

type historicalService struct {
	calls int
}

func (s *historicalService) page(req *wire.GetHistoricalWeatherForecastRequest) *wire.GetHistoricalWeatherForecastResponse {
	s.calls++
	lf := &wire.LocationForecast{Location: req.Locations[0], CreationTs: req.StartTs}
	for h := range 3 {
		lf.Forecasts = append(lf.Forecasts, &wire.Forecast{
			ValidAtTs: timestamppb.New(req.StartTs.AsTime().Add(time.Duration(h) * time.Hour)),
			Features:  []*wire.FeatureForecast{{Feature: wire.FeatureTemperature2Metre, Value: 20 + float64(h)}},
		})
	}
	return &wire.GetHistoricalWeatherForecastResponse{LocationForecasts: []*wire.LocationForecast{lf}}
}

func startWeatherService(t *testing.T, svc *historicalService) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.ForceServerCodec(wire.Codec{}))
	srv.RegisterService(&grpc.ServiceDesc{
		ServiceName: wire.ServiceName,
		HandlerType: (*any)(nil),
		Methods: []grpc.MethodDesc{{
			MethodName: wire.GetHistoricalWeatherForecastMethod,
			Handler: func(srv any, _ context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
				req := &wire.GetHistoricalWeatherForecastRequest{}
				if err := dec(req); err != nil {
					return nil, err
				}
				return srv.(*historicalService).page(req), nil
			},
		}},
	}, svc)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := client.Dial("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// --- tests ---

// TestExportEndToEnd runs one export from a fake weather service through the
// Redis page cache into Kafka and reads the records back.
func TestExportEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)
	redisAddr := startRedis(ctx, t)

	logger := slog.Default()
	metrics := observability.NewUnregisteredMetrics()

	cache, err := redisadapter.New(ctx, redisadapter.Options{Addr: redisAddr, TTL: time.Minute}, logger)
	require.NoError(t, err)
	defer cache.Close()

	svc := &historicalService{}
	wc := client.New(startWeatherService(t, svc), logger, metrics, client.WithCache(cache))
	defer wc.Close()

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}
	writer := kafkaadapter.NewWriter(cfg, logger)
	defer writer.Close()

	exporter := pipeline.NewExporter(wc, writer, pipeline.ExportConfig{
		Locations: []domain.Location{berlin},
		Features:  []domain.ForecastFeature{domain.FeatureTemperature2Metre},
		Window:    3 * time.Hour,
		Align:     time.Hour,
	}, clockwork.NewFakeClockAt(runAt), logger, metrics)

	require.NoError(t, exporter.RunOnce(ctx))
	// A second run inside the same interval is served from the cache.
	require.NoError(t, exporter.RunOnce(ctx))
	assert.Equal(t, 1, svc.calls)

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  1 << 20,
	})
	defer reader.Close()

	for h := range 6 {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := reader.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read record %d", h)

		var rec domain.ForecastRecord
		require.NoError(t, json.Unmarshal(msg.Value, &rec))
		assert.Equal(t, "52.5000,13.2500", string(msg.Key))
		assert.Equal(t, domain.FeatureTemperature2Metre, rec.Feature)
		assert.InDelta(t, 20+float64(h%3), rec.Value, 1e-6)
		assert.True(t, rec.ValidAt.Equal(runAt.Add(time.Duration(h%3-3)*time.Hour)))
	}
}
