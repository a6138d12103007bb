package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shopify-pricing-service/internal/services"
)

// OAuthHandler handles the Shopify app installation flow
type OAuthHandler struct {
	shopService *services.ShopService
}

// NewOAuthHandler creates a new OAuth handler
func NewOAuthHandler(shopService *services.ShopService) *OAuthHandler {
	return &OAuthHandler{shopService: shopService}
}

// Install starts the OAuth flow by redirecting the merchant to Shopify's
// authorize page.
// @Summary Begin app installation
// @Tags oauth
// @Param shop query string true "Shop domain (*.myshopify.com)"
// @Success 302
// @Router /oauth/install [get]
func (h *OAuthHandler) Install(c *gin.Context) {
	shopDomain := c.Query("shop")
	if shopDomain == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "shop query parameter required"})
		return
	}

	authURL, err := h.shopService.InstallURL(c.Request.Context(), shopDomain, c.Query("return_url"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Redirect(http.StatusFound, authURL)
}

// Callback completes the OAuth flow: validates the state nonce, exchanges
// the code and persists the shop.
// @Summary OAuth callback
// @Tags oauth
// @Param shop query string true "Shop domain"
// @Param code query string true "Authorization code"
// @Param state query string true "State nonce"
// @Router /oauth/callback [get]
func (h *OAuthHandler) Callback(c *gin.Context) {
	shopDomain := c.Query("shop")
	code := c.Query("code")
	state := c.Query("state")
	if shopDomain == "" || code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "shop, code and state are required"})
		return
	}

	shop, returnURL, err := h.shopService.HandleCallback(c.Request.Context(), shopDomain, code, state)
	if err != nil {
		respondError(c, err)
		return
	}

	if returnURL != "" {
		c.Redirect(http.StatusFound, returnURL)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "installed",
		"shop":   shop,
	})
}
