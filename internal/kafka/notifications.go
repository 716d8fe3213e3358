package kafka

import (
	"context"

	"github.com/Domenick1991/cohortseat/internal/domain"
)

const publishRetries = 3

type publisher interface {
	PublishWithRetry(ctx context.Context, topic, key string, payload any, maxRetries int) error
}

// NotificationPublisher hands notifications to the notifications topic,
// keyed by user so one learner's messages stay ordered.
type NotificationPublisher struct {
	producer publisher
	topic    string
}

func NewNotificationPublisher(producer publisher, topic string) *NotificationPublisher {
	return &NotificationPublisher{producer: producer, topic: topic}
}

func (p *NotificationPublisher) Send(ctx context.Context, n domain.Notification) error {
	return p.producer.PublishWithRetry(ctx, p.topic, n.UserID, n, publishRetries)
}
