package api

import (
	"net/http"

	"github.com/Domenick1991/cohortseat/internal/service/promo"
	"github.com/gin-gonic/gin"
)

type PromoHandler struct {
	service promo.PromoUseCase
}

type quoteRequest struct {
	Code     string `json:"code"`
	CohortID string `json:"cohort_id" binding:"required"`
}

func NewPromoHandler(service promo.PromoUseCase) *PromoHandler {
	return &PromoHandler{service: service}
}

func (h *PromoHandler) Register(router *gin.RouterGroup) {
	router.POST("/quote", h.quote)
}

func (h *PromoHandler) quote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	q, err := h.service.Quote(c.Request.Context(), req.Code, req.CohortID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quoteResponse{
		BaseCents:     q.BaseCents,
		DiscountCents: q.DiscountCents,
		TotalCents:    q.TotalCents,
		Currency:      q.Currency,
		PromoCode:     q.PromoCode,
	})
}
