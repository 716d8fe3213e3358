package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/Domenick1991/cohortseat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, n domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func TestOutbox_FlushSendsAllAndSwallowsErrors(t *testing.T) {
	ctx := context.Background()
	n := &MockNotifier{}
	first := domain.Notification{UserID: "u1", Template: domain.TemplateRegistrationPending}
	second := domain.Notification{UserID: "u2", Template: domain.TemplateWaitlistPromoted}
	n.On("Send", ctx, first).Return(errors.New("broker down")).Once()
	n.On("Send", ctx, second).Return(nil).Once()

	var out Outbox
	out.Add(first)
	out.Add(second)
	assert.Equal(t, 2, out.Len())

	out.Flush(ctx, n)

	assert.Equal(t, 0, out.Len())
	n.AssertExpectations(t)
}

func TestOutbox_FlushWithoutNotifier(t *testing.T) {
	var out Outbox
	out.Add(domain.Notification{UserID: "u1"})
	out.Flush(context.Background(), nil)
	assert.Equal(t, 0, out.Len())
}
