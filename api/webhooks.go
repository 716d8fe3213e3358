package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/Domenick1991/cohortseat/internal/domain"
	"github.com/Domenick1991/cohortseat/internal/webhook"
	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 64 << 10

// WebhookHandler acknowledges provider callbacks immediately and leaves the
// work to the queue. Providers never see a processing error.
type WebhookHandler struct {
	queue webhook.Queue
}

func NewWebhookHandler(queue webhook.Queue) *WebhookHandler {
	return &WebhookHandler{queue: queue}
}

func (h *WebhookHandler) Register(router *gin.RouterGroup) {
	router.POST("/bnpl-a", h.providerA)
	router.POST("/bnpl-b", h.providerB)
}

func (h *WebhookHandler) providerA(c *gin.Context) {
	var event domain.ProviderAEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		log.Printf("WARNING: malformed bnpl_a webhook: %v", err)
		c.Status(http.StatusOK)
		return
	}
	h.enqueue(c, event)
}

// providerB accepts either {"token": "..."} or the bare token as the body.
func (h *WebhookHandler) providerB(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		log.Printf("WARNING: read bnpl_b webhook: %v", err)
		c.Status(http.StatusOK)
		return
	}

	var event domain.ProviderBEvent
	body := strings.TrimSpace(string(raw))
	if strings.HasPrefix(body, "{") {
		if err := json.Unmarshal(raw, &event); err != nil {
			log.Printf("WARNING: malformed bnpl_b webhook: %v", err)
			c.Status(http.StatusOK)
			return
		}
	} else {
		event.Token = body
	}
	if event.Token == "" {
		log.Printf("WARNING: bnpl_b webhook without token")
		c.Status(http.StatusOK)
		return
	}
	h.enqueue(c, event)
}

func (h *WebhookHandler) enqueue(c *gin.Context, event domain.PaymentEvent) {
	if err := h.queue.Enqueue(c.Request.Context(), event); err != nil {
		log.Printf("WARNING: enqueue %s webhook: %v", event.Provider(), err)
	}
	c.Status(http.StatusOK)
}
