package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// SecurityHeaders adds security headers to responses
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Next()
	}
}

// CORS handles Cross-Origin Resource Sharing
func CORS(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		// Check if origin is allowed
		allowed := false
		for _, o := range allowedOrigins {
			if o == origin || strings.HasSuffix(origin, strings.TrimPrefix(o, "https://*")) {
				allowed = true
				break
			}
		}

		if allowed {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Shop-Domain")
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// ShopMiddleware extracts the shop domain from the X-Shop-Domain header or
// the shop query parameter.
func ShopMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		shopDomain := c.GetHeader("X-Shop-Domain")
		if shopDomain == "" {
			shopDomain = c.Query("shop")
		}
		if shopDomain != "" {
			c.Set("shopDomain", shopDomain)
		}
		c.Next()
	}
}

// RequireShopDomain ensures a shop domain is present
func RequireShopDomain() gin.HandlerFunc {
	return func(c *gin.Context) {
		shopDomain := c.GetString("shopDomain")
		if shopDomain == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "shop domain is required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetShopDomain retrieves the shop domain from the context
func GetShopDomain(c *gin.Context) string {
	return c.GetString("shopDomain")
}
