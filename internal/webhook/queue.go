package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Domenick1991/cohortseat/internal/domain"
	kafkaGo "github.com/segmentio/kafka-go"
)

var ErrQueueClosed = errors.New("webhook queue is closed")

type Queue interface {
	Enqueue(ctx context.Context, event domain.PaymentEvent) error
}

type publisher interface {
	Publish(ctx context.Context, topic, key string, payload any) error
}

// KafkaQueue publishes deliveries to the payment events topic; the worker
// consumes them with HandleMessage.
type KafkaQueue struct {
	producer publisher
	topic    string
	now      func() time.Time
}

func NewKafkaQueue(producer publisher, topic string) *KafkaQueue {
	return &KafkaQueue{producer: producer, topic: topic, now: time.Now}
}

func (q *KafkaQueue) Enqueue(ctx context.Context, event domain.PaymentEvent) error {
	env, err := Wrap(event, q.now())
	if err != nil {
		return err
	}
	return q.producer.Publish(ctx, q.topic, string(event.Provider()), env)
}

// HandleMessage is the consumer callback for the payment events topic.
// Undecodable messages are dropped so they cannot block the partition.
func HandleMessage(p *Processor) func(context.Context, kafkaGo.Message) error {
	return func(ctx context.Context, msg kafkaGo.Message) error {
		var env Envelope
		if err := json.Unmarshal(msg.Value, &env); err != nil {
			log.Printf("decode payment event error: %v", err)
			return nil
		}
		event, err := env.Event()
		if err != nil {
			log.Printf("decode payment event error: %v", err)
			return nil
		}
		p.Process(ctx, event)
		return nil
	}
}

// LocalQueue processes deliveries on in-process workers.
type LocalQueue struct {
	processor *Processor
	events    chan domain.PaymentEvent
	wg        sync.WaitGroup

	// mu guards closed; senders hold the read lock so Close never closes
	// the channel under an in-flight send.
	mu     sync.RWMutex
	closed bool
}

func NewLocalQueue(processor *Processor, workers, buffer int) *LocalQueue {
	if workers < 1 {
		workers = 1
	}
	q := &LocalQueue{processor: processor, events: make(chan domain.PaymentEvent, buffer)}
	q.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go q.work()
	}
	return q
}

func (q *LocalQueue) work() {
	defer q.wg.Done()
	for event := range q.events {
		q.processor.Process(context.Background(), event)
	}
}

func (q *LocalQueue) Enqueue(ctx context.Context, event domain.PaymentEvent) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return fmt.Errorf("enqueue %s event: %w", event.Provider(), ErrQueueClosed)
	}
	select {
	case q.events <- event:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("enqueue %s event: %w", event.Provider(), ctx.Err())
	}
}

// Close stops accepting events and waits for queued ones to finish. Later
// Enqueue calls return ErrQueueClosed.
func (q *LocalQueue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.events)
	}
	q.mu.Unlock()
	q.wg.Wait()
}
