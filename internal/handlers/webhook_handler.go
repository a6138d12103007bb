package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"shopify-pricing-service/internal/clients/shopify"
	"shopify-pricing-service/internal/services"
)

// WebhookHandler receives Shopify webhooks. Every request is verified
// against the app secret before the payload is trusted.
type WebhookHandler struct {
	inventoryService *services.InventoryService
	apiSecret        string
	logger           *logrus.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(inventoryService *services.InventoryService, apiSecret string, logger *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{
		inventoryService: inventoryService,
		apiSecret:        apiSecret,
		logger:           logger,
	}
}

// Receive verifies and dispatches one webhook delivery. Shopify retries
// non-2xx responses, so unprocessable payloads are acknowledged rather
// than bounced.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	signature := c.GetHeader("X-Shopify-Hmac-Sha256")
	if err := shopify.VerifyWebhook(body, signature, h.apiSecret); err != nil {
		h.logger.WithError(err).Warn("webhook signature rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook signature"})
		return
	}

	shopDomain := c.GetHeader("X-Shopify-Shop-Domain")
	topic := c.GetHeader("X-Shopify-Topic")
	if shopDomain == "" || topic == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing webhook headers"})
		return
	}

	switch topic {
	case "products/create", "products/update":
		if err := h.inventoryService.ApplyProductWebhook(c.Request.Context(), shopDomain, body); err != nil {
			h.logger.WithFields(logrus.Fields{
				"shopDomain": shopDomain,
				"topic":      topic,
			}).WithError(err).Error("webhook processing failed")
		}
	default:
		h.logger.WithFields(logrus.Fields{
			"shopDomain": shopDomain,
			"topic":      topic,
		}).Debug("ignoring webhook topic")
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
