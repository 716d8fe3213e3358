package api

import (
	"net/http"

	"github.com/Domenick1991/cohortseat/internal/service/waitlist"
	"github.com/gin-gonic/gin"
)

type WaitlistHandler struct {
	service waitlist.WaitlistUseCase
}

type joinWaitlistRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Email  string `json:"email"`
}

func NewWaitlistHandler(service waitlist.WaitlistUseCase) *WaitlistHandler {
	return &WaitlistHandler{service: service}
}

// Register mounts the waitlist under a cohort group.
func (h *WaitlistHandler) Register(router *gin.RouterGroup) {
	router.POST("/:id/waitlist", h.join)
	router.GET("/:id/waitlist/:user_id", h.position)
	router.DELETE("/:id/waitlist/:user_id", h.leave)
	router.POST("/:id/waitlist/promote", h.promote)
}

func (h *WaitlistHandler) join(c *gin.Context) {
	var req joinWaitlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	entry, err := h.service.Join(c.Request.Context(), waitlist.JoinInput{
		UserID:   req.UserID,
		Email:    req.Email,
		CohortID: c.Param("id"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toWaitlistResponse(entry))
}

func (h *WaitlistHandler) position(c *gin.Context) {
	entry, err := h.service.Position(c.Request.Context(), c.Param("user_id"), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toWaitlistResponse(entry))
}

func (h *WaitlistHandler) leave(c *gin.Context) {
	if err := h.service.Leave(c.Request.Context(), c.Param("user_id"), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *WaitlistHandler) promote(c *gin.Context) {
	entry, err := h.service.PromoteNext(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if entry == nil {
		c.JSON(http.StatusOK, gin.H{"promoted": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"promoted": toWaitlistResponse(entry)})
}
