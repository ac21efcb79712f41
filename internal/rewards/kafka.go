package rewards

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/retroarena/eventengine/internal/domain"
)

// MessageWriter is the subset of *kafka.Writer used by KafkaEmitter.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEmitter publishes grants as JSON, keyed by user id so one user's
// grants stay ordered on one partition.
type KafkaEmitter struct {
	writer MessageWriter
	topic  string
	logger *slog.Logger
}

// NewKafkaEmitter creates a writer for topic on brokers.
func NewKafkaEmitter(brokers []string, topic string, logger *slog.Logger) *KafkaEmitter {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           50 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
		AllowAutoTopicCreation: true,
	}
	return NewKafkaEmitterWithWriter(w, topic, logger)
}

// NewKafkaEmitterWithWriter wraps an existing writer.
func NewKafkaEmitterWithWriter(w MessageWriter, topic string, logger *slog.Logger) *KafkaEmitter {
	return &KafkaEmitter{
		writer: w,
		topic:  topic,
		logger: logger.With("component", "kafka", "topic", topic),
	}
}

func (e *KafkaEmitter) Emit(ctx context.Context, g domain.RewardGrant) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal grant: %w", err)
	}

	err = e.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(g.UserID),
		Value: data,
		Time:  g.IssuedAt,
		Headers: []kafka.Header{
			{Key: "reason", Value: []byte(g.Reason)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish grant %s: %w", g.ID, err)
	}

	e.logger.Debug("grant published", "grant_id", g.ID, "user_id", g.UserID)
	return nil
}

// Close flushes pending messages.
func (e *KafkaEmitter) Close() error {
	return e.writer.Close()
}
