package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Domenick1991/cohortseat/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func rawContext(body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/webhooks", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func TestWebhookHandler_providerA(t *testing.T) {
	queue := &MockQueue{}
	handler := NewWebhookHandler(queue)

	c, w := rawContext(`{"event_id":"evt_1","event_type":"payment.updated","payment_id":"a_1","order_reference":"reg-1"}`)
	queue.On("Enqueue", c.Request.Context(), domain.ProviderAEvent{EventID: "evt_1", EventType: "payment.updated", PaymentID: "a_1", OrderReference: "reg-1"}).Return(nil)

	handler.providerA(c)

	assert.Equal(t, http.StatusOK, w.Code)
	queue.AssertExpectations(t)
}

func TestWebhookHandler_providerB_Forms(t *testing.T) {
	for _, body := range []string{`{"token":"h.p.s"}`, "h.p.s\n"} {
		queue := &MockQueue{}
		handler := NewWebhookHandler(queue)

		c, w := rawContext(body)
		queue.On("Enqueue", c.Request.Context(), domain.ProviderBEvent{Token: "h.p.s"}).Return(nil)

		handler.providerB(c)

		assert.Equal(t, http.StatusOK, w.Code)
		queue.AssertExpectations(t)
	}
}

// Providers always get a 200, whatever happens on our side.
func TestWebhookHandler_AlwaysAcknowledges(t *testing.T) {
	queue := &MockQueue{}
	handler := NewWebhookHandler(queue)

	c, w := rawContext(`not json`)
	handler.providerA(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = rawContext(``)
	handler.providerB(c)
	assert.Equal(t, http.StatusOK, w.Code)

	queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)

	c, w = rawContext(`{"event_id":"evt_2","payment_id":"a_2"}`)
	queue.On("Enqueue", c.Request.Context(), mock.Anything).Return(errors.New("broker down"))
	handler.providerA(c)
	assert.Equal(t, http.StatusOK, w.Code)
}
