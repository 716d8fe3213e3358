package api

import (
	"net/http"
	"testing"

	"github.com/Domenick1991/cohortseat/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestPromoHandler_quote(t *testing.T) {
	mockService := &MockPromoUseCase{}
	handler := NewPromoHandler(mockService)

	c, w := newTestContext("POST", "/promos/quote", map[string]string{"code": "TENOFF", "cohort_id": "c1"})
	mockService.On("Quote", c.Request.Context(), "TENOFF", "c1").Return(domain.Quote{BaseCents: 30000, DiscountCents: 3000, TotalCents: 27000, Currency: "EUR", PromoCode: "TENOFF"}, nil)

	handler.quote(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(27000), decode[quoteResponse](t, w).TotalCents)
}

func TestPromoHandler_quote_Errors(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{err: domain.ErrPromoNotFound, status: http.StatusNotFound},
		{err: domain.ErrPromoInactive, status: http.StatusBadRequest},
		{err: domain.ErrPromoExhausted, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			mockService := &MockPromoUseCase{}
			handler := NewPromoHandler(mockService)

			c, w := newTestContext("POST", "/promos/quote", map[string]string{"code": "X", "cohort_id": "c1"})
			mockService.On("Quote", c.Request.Context(), "X", "c1").Return(domain.Quote{}, tt.err)

			handler.quote(c)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}
