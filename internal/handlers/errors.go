package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"shopify-pricing-service/internal/services"
)

// respondError maps service errors onto HTTP status codes
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInvalidCampaign):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrAlreadyReverted):
		status = http.StatusConflict
	case errors.Is(err, services.ErrUpstreamUnavailable):
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
