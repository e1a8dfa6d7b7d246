package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/ambakkou/stormwatch/internal/domain"
)

// Writer publishes weather notifications to a Kafka topic.
// It implements notify.Notifier.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the alert topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Notify publishes one condition keyed by its ID, so consumers that compact
// the topic keep only the latest state per condition.
func (w *Writer) Notify(ctx context.Context, sessionID string, cond domain.WeatherCondition) error {
	msg, err := serializeToMessage(sessionID, cond)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish notification %s: %w", cond.ID, err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a condition into a Kafka message.
func serializeToMessage(sessionID string, cond domain.WeatherCondition) (kafkago.Message, error) {
	payload := struct {
		SessionID string                  `json:"session_id"`
		Condition domain.WeatherCondition `json:"condition"`
	}{SessionID: sessionID, Condition: cond}

	data, err := json.Marshal(payload)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize notification: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(cond.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "condition_type", Value: []byte(cond.Type)},
			{Key: "severity", Value: []byte(cond.Severity)},
			// Platform sinks fire the immediate OS notification only for
			// urgent conditions; everything delivered still lands on the
			// topic.
			{Key: "urgent", Value: []byte(strconv.FormatBool(cond.Urgent()))},
			{Key: "data_source", Value: []byte(cond.DataSource)},
			{Key: "delivered_at", Value: []byte(domain.Now().UTC().Format(time.RFC3339))},
		},
	}, nil
}
