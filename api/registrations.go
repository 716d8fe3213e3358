package api

import (
	"net/http"

	"github.com/Domenick1991/cohortseat/internal/domain"
	"github.com/Domenick1991/cohortseat/internal/service/registration"
	"github.com/gin-gonic/gin"
)

type RegistrationHandler struct {
	service registration.RegistrationUseCase
}

type initiateRegistrationRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Email    string `json:"email"`
	CohortID string `json:"cohort_id" binding:"required"`
}

type cancelRegistrationRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

func NewRegistrationHandler(service registration.RegistrationUseCase) *RegistrationHandler {
	return &RegistrationHandler{service: service}
}

func (h *RegistrationHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.initiate)
	router.GET("/:id", h.get)
	router.POST("/:id/confirm", h.confirm)
	router.POST("/:id/cancel", h.cancel)
}

// initiate answers 201 for a new hold and 200 when the caller already holds one.
func (h *RegistrationHandler) initiate(c *gin.Context) {
	var req initiateRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	reg, created, err := h.service.Initiate(c.Request.Context(), registration.InitiateInput{
		UserID:   req.UserID,
		Email:    req.Email,
		CohortID: req.CohortID,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, toRegistrationResponse(reg))
}

func (h *RegistrationHandler) get(c *gin.Context) {
	reg, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRegistrationResponse(reg))
}

func (h *RegistrationHandler) confirm(c *gin.Context) {
	reg, err := h.service.Confirm(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRegistrationResponse(reg))
}

func (h *RegistrationHandler) cancel(c *gin.Context) {
	var req cancelRegistrationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	actor := domain.ActorUser
	if req.Actor != "" {
		actor = domain.Actor(req.Actor)
	}
	if !actor.Valid() {
		badRequest(c, domain.Invalid("unknown actor "+req.Actor))
		return
	}

	reg, err := h.service.Cancel(c.Request.Context(), c.Param("id"), actor, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRegistrationResponse(reg))
}
