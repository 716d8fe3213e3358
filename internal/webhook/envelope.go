package webhook

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Domenick1991/cohortseat/internal/domain"
)

// Envelope is the queued form of a provider delivery.
type Envelope struct {
	Provider   domain.PaymentProvider `json:"provider"`
	Body       json.RawMessage        `json:"body"`
	ReceivedAt time.Time              `json:"received_at"`
}

func Wrap(event domain.PaymentEvent, receivedAt time.Time) (Envelope, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s event: %w", event.Provider(), err)
	}
	return Envelope{Provider: event.Provider(), Body: body, ReceivedAt: receivedAt}, nil
}

// Event decodes the body back into the provider's event type.
func (e Envelope) Event() (domain.PaymentEvent, error) {
	switch e.Provider {
	case domain.ProviderBNPLA:
		var ev domain.ProviderAEvent
		if err := json.Unmarshal(e.Body, &ev); err != nil {
			return nil, fmt.Errorf("decode %s event: %w", e.Provider, err)
		}
		return ev, nil
	case domain.ProviderBNPLB:
		var ev domain.ProviderBEvent
		if err := json.Unmarshal(e.Body, &ev); err != nil {
			return nil, fmt.Errorf("decode %s event: %w", e.Provider, err)
		}
		return ev, nil
	case domain.ProviderCard:
		var ev domain.CardEvent
		if err := json.Unmarshal(e.Body, &ev); err != nil {
			return nil, fmt.Errorf("decode %s event: %w", e.Provider, err)
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("%q: %w", e.Provider, domain.ErrUnsupportedProvider)
	}
}
