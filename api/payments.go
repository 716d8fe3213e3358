package api

import (
	"net/http"

	"github.com/Domenick1991/cohortseat/internal/domain"
	"github.com/Domenick1991/cohortseat/internal/service/payment"
	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	service payment.PaymentUseCase
}

type initiatePaymentRequest struct {
	RegistrationID string `json:"registration_id" binding:"required"`
	Provider       string `json:"provider" binding:"required"`
	PromoCode      string `json:"promo_code"`
}

type cardConfirmRequest struct {
	ProviderPaymentID string `json:"provider_payment_id" binding:"required"`
}

type refundRequest struct {
	AmountCents *int64 `json:"amount_cents"`
	Reason      string `json:"reason"`
}

func NewPaymentHandler(service payment.PaymentUseCase) *PaymentHandler {
	return &PaymentHandler{service: service}
}

func (h *PaymentHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.initiate)
	router.GET("/:id", h.poll)
	router.POST("/card/confirm", h.cardConfirm)
	router.POST("/:id/refunds", h.refund)
}

func (h *PaymentHandler) initiate(c *gin.Context) {
	var req initiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	p, err := h.service.Initiate(c.Request.Context(), payment.InitiateInput{
		RegistrationID: req.RegistrationID,
		Provider:       domain.PaymentProvider(req.Provider),
		PromoCode:      req.PromoCode,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPaymentResponse(p))
}

// poll re-checks a pending payment with its provider before answering.
func (h *PaymentHandler) poll(c *gin.Context) {
	p, err := h.service.Poll(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaymentResponse(p))
}

// cardConfirm is called by the client after the card checkout returns.
func (h *PaymentHandler) cardConfirm(c *gin.Context) {
	var req cardConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.service.Reconcile(c.Request.Context(), domain.CardEvent{ProviderPaymentID: req.ProviderPaymentID})
	if err != nil {
		writeError(c, err)
		return
	}
	if result == payment.ResultUnknownPayment {
		writeError(c, domain.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

func (h *PaymentHandler) refund(c *gin.Context) {
	var req refundRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	refund, err := h.service.Refund(c.Request.Context(), c.Param("id"), req.AmountCents, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toRefundResponse(refund))
}
