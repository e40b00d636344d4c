// Package producers publishes user and operator notifications to Kafka.
// Delivery mechanics (push, email) are the consumer's responsibility; the
// ledger core only emits events.
package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/investment-ledger-core/internal/config"
	"github.com/segmentio/kafka-go"
)

// Notification categories
const (
	CategoryTransaction = "transaction"
	CategoryInvestment  = "investment"
	CategoryCompliance  = "compliance"
)

// operatorAudience is the key used for broadcasts to every operator
const operatorAudience = "operators"

// NotificationEvent is the wire format published to the notification topic
type NotificationEvent struct {
	UserID    string    `json:"user_id,omitempty"`
	Audience  string    `json:"audience,omitempty"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NotificationProducer publishes notification events to Kafka
type NotificationProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewNotificationProducer creates the producer and ensures the notification
// topic exists
func NewNotificationProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*NotificationProducer, error) {
	if cfg.NotificationTopic == "" {
		return nil, fmt.Errorf("kafka notification topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for notification producer: %w", err)
	}
	defer conn.Close()

	if err := createKafkaTopicIfNotExists(conn, cfg.NotificationTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure notification topic %s exists: %w", cfg.NotificationTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.NotificationTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true, // Notifications are fire-and-forget
		WriteTimeout: cfg.WriteTimeout,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write notification messages", "topic", cfg.NotificationTopic, "error", err, "count", len(messages))
			}
		},
	}

	return &NotificationProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.NotificationTopic,
	}, nil
}

// Notify publishes a notification addressed to a single user
func (p *NotificationProducer) Notify(ctx context.Context, userID uuid.UUID, title, message, category string) error {
	event := NotificationEvent{
		UserID:    userID.String(),
		Title:     title,
		Message:   message,
		Category:  category,
		CreatedAt: time.Now(),
	}
	return p.publish(ctx, userID.String(), event)
}

// NotifyOperators publishes a broadcast addressed to every operator, used
// for consolidated compliance alerts
func (p *NotificationProducer) NotifyOperators(ctx context.Context, title, message string) error {
	event := NotificationEvent{
		Audience:  operatorAudience,
		Title:     title,
		Message:   message,
		Category:  CategoryCompliance,
		CreatedAt: time.Now(),
	}
	return p.publish(ctx, operatorAudience, event)
}

func (p *NotificationProducer) publish(ctx context.Context, key string, event NotificationEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal notification event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish notification",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish notification to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published notification", "topic", p.topic, "key", key, "category", event.Category)
	return nil
}

// Close flushes and closes the underlying writer
func (p *NotificationProducer) Close() error {
	return p.writer.Close()
}
