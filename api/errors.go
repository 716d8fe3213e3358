package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/Domenick1991/cohortseat/internal/domain"
	"github.com/gin-gonic/gin"
)

func statusFor(err error) int {
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrVerificationFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrProviderUnavailable):
		return http.StatusBadGateway
	case domain.IsConflict(err):
		return http.StatusConflict
	case domain.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s error: %v", c.Request.Method, c.Request.URL.Path, err)
	}

	body := gin.H{"error": err.Error()}
	if errors.Is(err, domain.ErrCapacityExceeded) {
		body["waitlist_available"] = true
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
