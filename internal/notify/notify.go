// Package notify collects learner notifications inside a transaction and
// hands them to a Notifier once the transaction has committed.
package notify

import (
	"context"
	"log"

	"github.com/Domenick1991/cohortseat/internal/domain"
)

type Notifier interface {
	Send(ctx context.Context, n domain.Notification) error
}

// Outbox buffers notifications raised while a transaction is open. A rolled
// back transaction simply drops its outbox.
type Outbox struct {
	items []domain.Notification
}

func (o *Outbox) Add(n domain.Notification) {
	o.items = append(o.items, n)
}

func (o *Outbox) Len() int {
	return len(o.items)
}

// Flush sends every buffered notification. Failures are logged and never
// returned: the state change they describe has already committed.
func (o *Outbox) Flush(ctx context.Context, n Notifier) {
	items := o.items
	o.items = nil
	if n == nil {
		return
	}
	for _, item := range items {
		if err := n.Send(ctx, item); err != nil {
			log.Printf("WARNING: failed to send %s notification to user %s: %v", item.Template, item.UserID, err)
		}
	}
}
