package email

import (
	"context"
	"testing"

	"github.com/Domenick1991/cohortseat/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "A seat opened up for you", Subject(domain.TemplateWaitlistPromoted))
	assert.Equal(t, "custom", Subject("custom"))
}

func TestBody_SortedKeys(t *testing.T) {
	n := domain.Notification{Data: map[string]string{"cohort_id": "c1", "amount": "100", "expires_at": "soon"}}
	assert.Equal(t, "amount=100 cohort_id=c1 expires_at=soon", Body(n))
}

func TestSender_Send(t *testing.T) {
	s := NewSender()
	assert.NoError(t, s.Send(context.Background(), domain.Notification{UserID: "u1", Email: "a@b.c", Template: domain.TemplateHoldExpired}))
	assert.NoError(t, s.Send(context.Background(), domain.Notification{UserID: "u1"}))
}
