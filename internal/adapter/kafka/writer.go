package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nwstraits/survey-etl/internal/config"
	"github.com/nwstraits/survey-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of kafkago.Writer used by Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes survey records to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSinkTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes the surveys and publishes them in a single
// WriteMessages call, keyed by submission uuid.
func (w *Writer) LoadBatch(ctx context.Context, surveys []domain.Survey) error {
	if len(surveys) == 0 {
		return nil
	}
	processedAt := domain.Now()
	msgs := make([]kafkago.Message, len(surveys))
	for i, s := range surveys {
		msg, err := serializeToMessage(s, processedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d surveys: %w", len(msgs), err)
	}
	w.logger.Debug("surveys published", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a survey document into a Kafka message.
func serializeToMessage(s domain.Survey, processedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(s.Document())
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize survey %s: %w", s.ID(), err)
	}
	return kafkago.Message{
		Key:   []byte(s.ID()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "survey_kind", Value: []byte(s.Kind())},
			{Key: "processed_at", Value: []byte(processedAt.Format(time.RFC3339))},
		},
	}, nil
}
