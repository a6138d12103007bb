package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"shopify-pricing-service/internal/middleware"
	"shopify-pricing-service/internal/services"
)

// AuditHandler handles audit log HTTP requests
type AuditHandler struct {
	auditService *services.AuditService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// GetAuditLogs retrieves audit logs for a shop with filters
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	shopDomain := middleware.GetShopDomain(c)

	opts := &services.AuditLogOptions{
		Action:       c.Query("action"),
		ResourceType: c.Query("resourceType"),
		ResourceID:   c.Query("resourceId"),
	}

	if startDate := c.Query("startDate"); startDate != "" {
		parsed, err := time.Parse(time.RFC3339, startDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid startDate format"})
			return
		}
		opts.StartDate = parsed
	}
	if endDate := c.Query("endDate"); endDate != "" {
		parsed, err := time.Parse(time.RFC3339, endDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid endDate format"})
			return
		}
		opts.EndDate = parsed
	}

	opts.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	opts.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), shopDomain, opts)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":   logs,
		"total":  total,
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}
