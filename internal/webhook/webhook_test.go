package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/cohortseat/internal/domain"
	"github.com/Domenick1991/cohortseat/internal/service/payment"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Моки

type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) Reconcile(ctx context.Context, event domain.PaymentEvent) (payment.Result, error) {
	args := m.Called(ctx, event)
	return args.Get(0).(payment.Result), args.Error(1)
}

type MockDeduper struct {
	mock.Mock
}

func (m *MockDeduper) MarkDelivery(ctx context.Context, provider domain.PaymentProvider, deliveryID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, provider, deliveryID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockDeduper) ForgetDelivery(ctx context.Context, provider domain.PaymentProvider, deliveryID string) error {
	args := m.Called(ctx, provider, deliveryID)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic, key string, payload any) error {
	args := m.Called(ctx, topic, key, payload)
	return args.Error(0)
}

var eventA = domain.ProviderAEvent{EventID: "evt_1", EventType: "payment.updated", PaymentID: "a_1", OrderReference: "reg-1"}

// ============ Envelope ============

func TestEnvelope_RestoresEventType(t *testing.T) {
	events := []domain.PaymentEvent{
		eventA,
		domain.ProviderBEvent{Token: "header.payload.sig"},
		domain.CardEvent{ProviderPaymentID: "pi_1"},
	}
	for _, ev := range events {
		env, err := Wrap(ev, time.Now())
		require.NoError(t, err)

		raw, err := json.Marshal(env)
		require.NoError(t, err)
		var decoded Envelope
		require.NoError(t, json.Unmarshal(raw, &decoded))

		got, err := decoded.Event()
		require.NoError(t, err)
		assert.Equal(t, ev, got)
	}
}

func TestEnvelope_UnknownProvider(t *testing.T) {
	_, err := Envelope{Provider: "PAYPAL", Body: []byte(`{}`)}.Event()
	assert.ErrorIs(t, err, domain.ErrUnsupportedProvider)
}

// ============ Processor ============

func TestProcessor_SkipsSeenDelivery(t *testing.T) {
	ctx := context.Background()
	rec := &MockReconciler{}
	dedupe := &MockDeduper{}
	dedupe.On("MarkDelivery", ctx, domain.ProviderBNPLA, "evt_1", time.Hour).Return(false, nil).Once()

	NewProcessor(rec, WithDeduper(dedupe, time.Hour)).Process(ctx, eventA)

	rec.AssertNotCalled(t, "Reconcile", mock.Anything, mock.Anything)
	dedupe.AssertExpectations(t)
}

func TestProcessor_DedupeOutageStillReconciles(t *testing.T) {
	ctx := context.Background()
	rec := &MockReconciler{}
	dedupe := &MockDeduper{}
	dedupe.On("MarkDelivery", ctx, domain.ProviderBNPLA, "evt_1", time.Hour).Return(false, errors.New("redis down")).Once()
	rec.On("Reconcile", ctx, eventA).Return(payment.ResultConfirmed, nil).Once()

	NewProcessor(rec, WithDeduper(dedupe, time.Hour)).Process(ctx, eventA)

	rec.AssertExpectations(t)
}

func TestProcessor_RetriesProviderOutage(t *testing.T) {
	ctx := context.Background()
	rec := &MockReconciler{}
	dedupe := &MockDeduper{}
	unavailable := &domain.ProviderError{Provider: domain.ProviderBNPLA, Op: "GET /payments/a_1", StatusCode: 503}

	dedupe.On("MarkDelivery", ctx, domain.ProviderBNPLA, "evt_1", time.Hour).Return(true, nil).Once()
	rec.On("Reconcile", ctx, eventA).Return(payment.Result(""), unavailable).Times(3)
	dedupe.On("ForgetDelivery", ctx, domain.ProviderBNPLA, "evt_1").Return(nil).Once()

	NewProcessor(rec, WithDeduper(dedupe, time.Hour), WithRetry(3, time.Millisecond)).Process(ctx, eventA)

	rec.AssertExpectations(t)
	dedupe.AssertExpectations(t)
}

func TestProcessor_DoesNotRetryRejectedEvent(t *testing.T) {
	ctx := context.Background()
	rec := &MockReconciler{}
	ev := domain.ProviderBEvent{Token: "forged"}
	rec.On("Reconcile", ctx, ev).Return(payment.Result(""), domain.ErrInvalidSignature).Once()

	NewProcessor(rec, WithRetry(3, time.Millisecond)).Process(ctx, ev)

	rec.AssertNumberOfCalls(t, "Reconcile", 1)
}

// ============ Queues ============

func TestKafkaQueue_Enqueue(t *testing.T) {
	ctx := context.Background()
	pub := &MockPublisher{}
	pub.On("Publish", ctx, "payment-events", "BNPL_A", mock.MatchedBy(func(env Envelope) bool {
		ev, err := env.Event()
		return err == nil && ev == eventA
	})).Return(nil).Once()

	require.NoError(t, NewKafkaQueue(pub, "payment-events").Enqueue(ctx, eventA))
	pub.AssertExpectations(t)
}

func TestHandleMessage(t *testing.T) {
	ctx := context.Background()
	rec := &MockReconciler{}
	rec.On("Reconcile", ctx, eventA).Return(payment.ResultPending, nil).Once()
	handle := HandleMessage(NewProcessor(rec))

	env, err := Wrap(eventA, time.Now())
	require.NoError(t, err)
	raw, err := json.Marshal(env)
	require.NoError(t, err)

	assert.NoError(t, handle(ctx, kafkaGo.Message{Value: raw}))
	assert.NoError(t, handle(ctx, kafkaGo.Message{Value: []byte("not json")}))
	rec.AssertExpectations(t)
}

type countingReconciler struct {
	mu   sync.Mutex
	seen []domain.PaymentEvent
}

func (c *countingReconciler) Reconcile(_ context.Context, event domain.PaymentEvent) (payment.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, event)
	return payment.ResultPending, nil
}

func TestLocalQueue_ProcessesEverything(t *testing.T) {
	rec := &countingReconciler{}
	q := NewLocalQueue(NewProcessor(rec), 4, 8)

	for i := 0; i < 20; i++ {
		require.NoError(t, q.Enqueue(context.Background(), domain.CardEvent{ProviderPaymentID: "pi"}))
	}
	q.Close()

	assert.Len(t, rec.seen, 20)
}

func TestLocalQueue_EnqueueAfterClose(t *testing.T) {
	rec := &countingReconciler{}
	q := NewLocalQueue(NewProcessor(rec), 2, 4)
	require.NoError(t, q.Enqueue(context.Background(), domain.CardEvent{ProviderPaymentID: "pi_1"}))
	q.Close()

	// A handler still running after shutdown must not panic.
	err := q.Enqueue(context.Background(), domain.CardEvent{ProviderPaymentID: "pi_2"})
	assert.ErrorIs(t, err, ErrQueueClosed)
	assert.NotPanics(t, q.Close)
	assert.Len(t, rec.seen, 1)
}

func TestLocalQueue_ConcurrentEnqueueAndClose(t *testing.T) {
	rec := &countingReconciler{}
	q := NewLocalQueue(NewProcessor(rec), 2, 1)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := q.Enqueue(context.Background(), domain.CardEvent{ProviderPaymentID: "pi"})
			if err != nil {
				assert.ErrorIs(t, err, ErrQueueClosed)
			}
		}()
	}
	q.Close()
	wg.Wait()
}
