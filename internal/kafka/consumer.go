package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Domenick1991/cohortseat/config"
	"github.com/Domenick1991/cohortseat/internal/domain"
	"github.com/Domenick1991/cohortseat/internal/notify"
	"github.com/segmentio/kafka-go"
)

// MessageHandler processes one message. A returned error stops the consumer
// and leaves the message uncommitted, so it is redelivered after a restart.
type MessageHandler func(ctx context.Context, msg kafka.Message) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads one topic of a consumer group with at-least-once delivery:
// offsets are committed only after the handler returns.
type Consumer struct {
	reader messageReader
	topic  string
}

func NewConsumer(cfg config.KafkaConfig, topic string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           cfg.Brokers,
			GroupID:           cfg.GroupID,
			Topic:             topic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
		topic: topic,
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Consume runs handler for every message until ctx is cancelled, which is
// reported as a nil error.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("fetch from %s: %w", c.topic, err)
		}

		if err := handler(ctx, msg); err != nil {
			return fmt.Errorf("handle %s offset %d: %w", c.topic, msg.Offset, err)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("commit %s offset %d: %w", c.topic, msg.Offset, err)
		}
	}
}

// NotificationHandler delivers messages from the notifications topic through
// sender. Undecodable messages and delivery failures are logged and skipped;
// notifications are best effort.
func NotificationHandler(sender notify.Notifier) MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var n domain.Notification
		if err := json.Unmarshal(msg.Value, &n); err != nil {
			log.Printf("decode notification error: %v", err)
			return nil
		}
		if err := sender.Send(ctx, n); err != nil {
			log.Printf("send %s notification to %s error: %v", n.Template, n.UserID, err)
		}
		return nil
	}
}
