package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/mpls-liquor-etl/internal/config"
	"github.com/couchcryptid/mpls-liquor-etl/internal/domain"
	"github.com/couchcryptid/mpls-liquor-etl/internal/observability"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the part of kafkago.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes derived licenses to a Kafka topic, one message per record.
// It implements pipeline.DatasetLoader.
type Writer struct {
	writer  messageWriter
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, metrics: metrics, logger: logger}
}

// LoadDataset serializes every license and publishes them in a single
// WriteMessages call. Messages are keyed by License.Key so a record always
// lands on the same partition.
func (w *Writer) LoadDataset(ctx context.Context, ds domain.Dataset) error {
	if len(ds.Licenses) == 0 {
		return nil
	}
	processedAt := domain.Now()
	msgs := make([]kafkago.Message, len(ds.Licenses))
	for i := range ds.Licenses {
		msg, err := serializeToMessage(ds.Licenses[i], processedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish licenses: %w", err)
	}
	w.metrics.RecordsPublished.Add(float64(len(msgs)))
	w.logger.Info("licenses published", "records", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a License into a Kafka message.
func serializeToMessage(l domain.License, processedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(l)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize license: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(l.Key()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "ward", Value: []byte(strconv.Itoa(l.Ward))},
			{Key: "processed_at", Value: []byte(processedAt.Format(time.RFC3339))},
		},
	}, nil
}
