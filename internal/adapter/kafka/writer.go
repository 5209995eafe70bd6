package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/couchcryptid/weather-forecast-client/internal/config"
	"github.com/couchcryptid/weather-forecast-client/internal/domain"
	"github.com/couchcryptid/weather-forecast-client/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces flattened forecast records to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured record topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, topic: cfg.KafkaTopic, logger: logger}
}

// LoadBatch serializes and publishes forecast records in a single
// WriteMessages call. Serialization failures are permanent and are not
// worth retrying.
func (w *Writer) LoadBatch(ctx context.Context, records []domain.ForecastRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i])
		if err != nil {
			return pipeline.Permanent(err)
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d forecast records: %w", len(msgs), err)
	}
	w.logger.Debug("forecast records written", "count", len(msgs), "topic", w.topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// recordPayload is the message body. Value is null for NaN and infinite
// values, which JSON cannot carry.
type recordPayload struct {
	CreatedAt time.Time              `json:"creation_ts"`
	Latitude  float64                `json:"latitude"`
	Longitude float64                `json:"longitude"`
	ValidAt   time.Time              `json:"valid_at_ts"`
	Feature   domain.ForecastFeature `json:"feature"`
	Value     *float64               `json:"value"`
}

func newRecordPayload(r domain.ForecastRecord) recordPayload {
	p := recordPayload{
		CreatedAt: r.CreatedAt,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		ValidAt:   r.ValidAt,
		Feature:   r.Feature,
	}
	if !math.IsNaN(r.Value) && !math.IsInf(r.Value, 0) {
		v := r.Value
		p.Value = &v
	}
	return p
}

// recordKey groups all records of one location on one partition.
func recordKey(r domain.ForecastRecord) string {
	return fmt.Sprintf("%.4f,%.4f", r.Latitude, r.Longitude)
}

// serializeToMessage marshals a ForecastRecord into a Kafka message.
func serializeToMessage(r domain.ForecastRecord) (kafkago.Message, error) {
	data, err := json.Marshal(newRecordPayload(r))
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize forecast record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(recordKey(r)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "feature", Value: []byte(r.Feature.String())},
			{Key: "valid_at", Value: []byte(r.ValidAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
