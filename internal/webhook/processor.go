// Package webhook queues provider deliveries and reconciles them off the
// request path.
package webhook

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Domenick1991/cohortseat/internal/domain"
	"github.com/Domenick1991/cohortseat/internal/service/payment"
)

const (
	defaultAttempts = 3
	defaultBackoff  = time.Second
)

type Reconciler interface {
	Reconcile(ctx context.Context, event domain.PaymentEvent) (payment.Result, error)
}

// Deduper remembers delivery ids. It only short-cuts replays; reconciliation
// stays idempotent without it.
type Deduper interface {
	MarkDelivery(ctx context.Context, provider domain.PaymentProvider, deliveryID string, ttl time.Duration) (bool, error)
	ForgetDelivery(ctx context.Context, provider domain.PaymentProvider, deliveryID string) error
}

type Processor struct {
	reconciler Reconciler
	dedupe     Deduper
	dedupeTTL  time.Duration
	attempts   int
	backoff    time.Duration
}

type ProcessorOption func(*Processor)

func WithDeduper(d Deduper, ttl time.Duration) ProcessorOption {
	return func(p *Processor) {
		p.dedupe = d
		p.dedupeTTL = ttl
	}
}

func WithRetry(attempts int, backoff time.Duration) ProcessorOption {
	return func(p *Processor) {
		p.attempts = attempts
		p.backoff = backoff
	}
}

func NewProcessor(reconciler Reconciler, opts ...ProcessorOption) *Processor {
	p := &Processor{reconciler: reconciler, attempts: defaultAttempts, backoff: defaultBackoff}
	for _, opt := range opts {
		opt(p)
	}
	if p.attempts < 1 {
		p.attempts = 1
	}
	return p
}

// Process reconciles one delivery. Errors are logged, never returned: the
// provider has already been acknowledged.
func (p *Processor) Process(ctx context.Context, event domain.PaymentEvent) {
	id := event.DeliveryID()
	if id != "" && p.dedupe != nil {
		fresh, err := p.dedupe.MarkDelivery(ctx, event.Provider(), id, p.dedupeTTL)
		if err != nil {
			log.Printf("WARNING: delivery dedupe unavailable: %v", err)
		} else if !fresh {
			log.Printf("skip duplicate %s delivery %s", event.Provider(), id)
			return
		}
	}

	result, err := p.reconcile(ctx, event)
	if err != nil {
		log.Printf("reconcile %s delivery %q error: %v", event.Provider(), id, err)
		if id != "" && p.dedupe != nil && errors.Is(err, domain.ErrProviderUnavailable) {
			if err := p.dedupe.ForgetDelivery(ctx, event.Provider(), id); err != nil {
				log.Printf("WARNING: forget delivery %s: %v", id, err)
			}
		}
		return
	}
	log.Printf("reconciled %s delivery %q: %s", event.Provider(), id, result)
}

// reconcile retries while the provider is unreachable.
func (p *Processor) reconcile(ctx context.Context, event domain.PaymentEvent) (payment.Result, error) {
	var (
		result payment.Result
		err    error
	)
	for i := 0; i < p.attempts; i++ {
		result, err = p.reconciler.Reconcile(ctx, event)
		if err == nil || !errors.Is(err, domain.ErrProviderUnavailable) {
			return result, err
		}
		if i < p.attempts-1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(i+1) * p.backoff):
			}
		}
	}
	return result, err
}
