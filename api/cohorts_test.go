package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Domenick1991/cohortseat/internal/domain"
	"github.com/Domenick1991/cohortseat/internal/service/cohorts"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestCohortHandler_list(t *testing.T) {
	mockService := &MockCohortUseCase{}
	handler := NewCohortHandler(mockService)

	c, w := newTestContext("GET", "/cohorts/", nil)
	mockService.On("List", c.Request.Context()).Return([]domain.Cohort{{ID: "c1", ProgramID: "go-101", Capacity: 20, Status: domain.CohortStatusOpen}}, nil)

	handler.list(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode[[]cohortResponse](t, w)
	assert.Len(t, resp, 1)
	assert.Nil(t, resp[0].Available)
}

func TestCohortHandler_get_Availability(t *testing.T) {
	mockService := &MockCohortUseCase{}
	handler := NewCohortHandler(mockService)

	c, w := newTestContext("GET", "/cohorts/c1", nil)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	view := &cohorts.CohortView{
		Cohort:    domain.Cohort{ID: "c1", Capacity: 5, EnrolledCount: 3, Status: domain.CohortStatusOpen},
		Occupancy: domain.Occupancy{Capacity: 5, Confirmed: 3, Held: 1},
	}
	mockService.On("Get", c.Request.Context(), "c1").Return(view, nil)

	handler.get(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode[cohortResponse](t, w)
	assert.Equal(t, 1, *resp.Held)
	assert.Equal(t, 1, *resp.Available)
}

func TestCohortHandler_get_NotFound(t *testing.T) {
	mockService := &MockCohortUseCase{}
	handler := NewCohortHandler(mockService)

	c, w := newTestContext("GET", "/cohorts/nope", nil)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}
	mockService.On("Get", c.Request.Context(), "nope").Return(nil, domain.ErrNotFound)

	handler.get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCohortHandler_create(t *testing.T) {
	mockService := &MockCohortUseCase{}
	handler := NewCohortHandler(mockService)

	c, w := newTestContext("POST", "/cohorts/", map[string]any{"program_id": "go-101", "capacity": 20, "price_cents": 30000, "currency": "EUR"})
	mockService.On("Create", c.Request.Context(), cohorts.CreateInput{ProgramID: "go-101", Capacity: 20, PriceCents: 30000, Currency: "EUR"}).
		Return(&domain.Cohort{ID: "c9", ProgramID: "go-101", Capacity: 20, Status: domain.CohortStatusOpen, PriceCents: 30000, Currency: "EUR"}, nil)

	handler.create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "c9", decode[cohortResponse](t, w).ID)
}

// Cohort and waitlist routes share the /cohorts group.
func TestRoutes_CohortAndWaitlistCoexist(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cohortService := &MockCohortUseCase{}
	waitlistService := &MockWaitlistUseCase{}

	router := gin.New()
	group := router.Group("/cohorts")
	NewCohortHandler(cohortService).Register(group)
	NewWaitlistHandler(waitlistService).Register(group)

	cohortService.On("Get", mock.Anything, "c1").Return(&cohorts.CohortView{Cohort: domain.Cohort{ID: "c1"}}, nil)
	waitlistService.On("PromoteNext", mock.Anything, "c1").Return(nil, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/cohorts/c1", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/cohorts/c1/waitlist/promote", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
