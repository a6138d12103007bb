package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shopify-pricing-service/internal/services"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	sem *services.ShopSemaphore
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(sem *services.ShopSemaphore) *HealthHandler {
	return &HealthHandler{sem: sem}
}

// Health handles the health check endpoint
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "shopify-pricing-service",
	})
}

// Ready handles the readiness check endpoint
func (h *HealthHandler) Ready(c *gin.Context) {
	resp := gin.H{
		"status":  "ready",
		"service": "shopify-pricing-service",
	}
	if h.sem != nil {
		resp["concurrency"] = h.sem.Stats()
	}
	c.JSON(http.StatusOK, resp)
}
