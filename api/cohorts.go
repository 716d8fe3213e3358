package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/cohortseat/internal/domain"
	"github.com/Domenick1991/cohortseat/internal/service/cohorts"
	"github.com/gin-gonic/gin"
)

type CohortHandler struct {
	service cohorts.CohortUseCase
}

type createCohortRequest struct {
	ProgramID           string     `json:"program_id" binding:"required"`
	Title               string     `json:"title"`
	Capacity            int        `json:"capacity" binding:"required"`
	Status              string     `json:"status"`
	RegistrationStartAt *time.Time `json:"registration_start_at"`
	RegistrationEndAt   *time.Time `json:"registration_end_at"`
	PriceCents          int64      `json:"price_cents"`
	Currency            string     `json:"currency"`
}

func NewCohortHandler(service cohorts.CohortUseCase) *CohortHandler {
	return &CohortHandler{service: service}
}

func (h *CohortHandler) Register(router *gin.RouterGroup) {
	router.GET("/", h.list)
	router.GET("/:id", h.get)
	router.POST("/", h.create)
}

func (h *CohortHandler) list(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	resp := make([]cohortResponse, 0, len(list))
	for _, cohort := range list {
		resp = append(resp, toCohortResponse(cohort))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CohortHandler) get(c *gin.Context) {
	view, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCohortView(view))
}

func (h *CohortHandler) create(c *gin.Context) {
	var req createCohortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	input := cohorts.CreateInput{
		ProgramID:  req.ProgramID,
		Title:      req.Title,
		Capacity:   req.Capacity,
		Status:     domain.CohortStatus(req.Status),
		PriceCents: req.PriceCents,
		Currency:   req.Currency,
	}
	if req.RegistrationStartAt != nil {
		input.RegistrationStartAt = *req.RegistrationStartAt
	}
	if req.RegistrationEndAt != nil {
		input.RegistrationEndAt = *req.RegistrationEndAt
	}

	cohort, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCohortResponse(*cohort))
}
