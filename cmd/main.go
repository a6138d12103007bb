package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"shopify-pricing-service/internal/clients"
	"shopify-pricing-service/internal/clients/shopify"
	"shopify-pricing-service/internal/config"
	"shopify-pricing-service/internal/database"
	"shopify-pricing-service/internal/handlers"
	"shopify-pricing-service/internal/middleware"
	"shopify-pricing-service/internal/models"
	"shopify-pricing-service/internal/repository"
	"shopify-pricing-service/internal/services"
)

func main() {
	// Local development convenience, production injects real env vars
	_ = godotenv.Load()

	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "development" {
		logger.SetLevel(logrus.DebugLevel)
	}

	db, err := database.Connect(cfg.DatabaseURL, cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Shop{},
		&models.OAuthState{},
		&models.InventoryItem{},
		&models.InventoryAlert{},
		&models.BulkAction{},
		&models.BulkActionItem{},
		&models.AuditLog{},
	); err != nil {
		log.Printf("Warning: Auto-migration failed: %v", err)
	}
	log.Println("Database models migrated")

	// Redis is optional, the service runs uncached without it
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Printf("Warning: invalid REDIS_URL, caching disabled: %v", err)
		} else {
			redisClient = redis.NewClient(opts)
			if err := redisClient.Ping(context.Background()).Err(); err != nil {
				log.Printf("Warning: redis unreachable, caching disabled: %v", err)
				redisClient = nil
			}
		}
	}

	// Repositories
	shopRepo := repository.NewShopRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db, redisClient)
	actionRepo := repository.NewBulkActionRepository(db)

	// Services
	clientFor := func(shop *models.Shop) clients.CommerceClient {
		return shopify.NewClient(shop.ShopDomain, shop.AccessToken)
	}
	exchange := func(ctx context.Context, shopDomain, code string) (*clients.TokenResult, error) {
		return shopify.ExchangeAccessToken(ctx, shopDomain, cfg.ShopifyAPIKey, cfg.ShopifyAPISecret, code)
	}

	sem := services.NewShopSemaphore(&services.ShopConcurrencyConfig{
		MaxConcurrentJobs: cfg.MaxConcurrentJobs,
		QueueTimeout:      cfg.JobQueueTimeout,
	})
	auditService := services.NewAuditService(db)
	resolver := services.NewScopeResolver(inventoryRepo, logger)
	pricingService := services.NewPricingService(
		actionRepo, inventoryRepo, shopRepo, resolver, clientFor,
		auditService, sem, logger,
		cfg.MutationConcurrency, cfg.MutationTimeout,
	)
	inventoryService := services.NewInventoryService(inventoryRepo, shopRepo, clientFor, auditService, sem, logger)
	shopService := services.NewShopService(shopRepo, clientFor, exchange, auditService, logger, cfg.ShopifyAPIKey, cfg.AppBaseURL)

	// Handlers
	healthHandler := handlers.NewHealthHandler(sem)
	pricingHandler := handlers.NewPricingHandler(pricingService)
	inventoryHandler := handlers.NewInventoryHandler(inventoryService)
	oauthHandler := handlers.NewOAuthHandler(shopService)
	webhookHandler := handlers.NewWebhookHandler(inventoryService, cfg.ShopifyAPISecret, logger)
	auditHandler := handlers.NewAuditHandler(auditService)

	router := setupRouter(cfg, healthHandler, pricingHandler, inventoryHandler, oauthHandler, webhookHandler, auditHandler)

	log.Printf("Shopify Pricing Service starting on port %s (env: %s)", cfg.Port, cfg.Environment)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRouter configures the HTTP router
func setupRouter(
	cfg *config.Config,
	healthHandler *handlers.HealthHandler,
	pricingHandler *handlers.PricingHandler,
	inventoryHandler *handlers.InventoryHandler,
	oauthHandler *handlers.OAuthHandler,
	webhookHandler *handlers.WebhookHandler,
	auditHandler *handlers.AuditHandler,
) *gin.Engine {
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(middleware.ShopMiddleware())

	// Health check
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API docs
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// OAuth installation flow - public
	oauth := router.Group("/oauth")
	{
		oauth.GET("/install", oauthHandler.Install)
		oauth.GET("/callback", oauthHandler.Callback)
	}

	// Webhooks - public but signature-verified
	webhooks := router.Group("/webhooks")
	{
		webhooks.POST("/shopify", webhookHandler.Receive)
	}

	// API routes - require a shop domain
	v1 := router.Group("/api/v1")
	v1.Use(middleware.RequireShopDomain())
	{
		// Inventory
		inventory := v1.Group("/inventory")
		{
			inventory.GET("", inventoryHandler.ListInventory)
			inventory.GET("/low-stock", inventoryHandler.ListLowStock)
			inventory.GET("/alerts", inventoryHandler.ListAlerts)
			inventory.POST("/sync", inventoryHandler.SyncInventory)
			inventory.PATCH("/:id/threshold", inventoryHandler.UpdateThreshold)
			inventory.PUT("/:id/prices", inventoryHandler.UpdateItemPrices)
		}

		// Bulk pricing actions
		bulkActions := v1.Group("/bulk-actions")
		{
			bulkActions.GET("", pricingHandler.ListBulkActions)
			bulkActions.POST("", pricingHandler.CreateUniformCampaign)
			bulkActions.POST("/calculated", pricingHandler.CreateCalculatedCampaign)
			bulkActions.GET("/:id", pricingHandler.GetBulkAction)
			bulkActions.GET("/:id/items", pricingHandler.GetBulkActionItems)
			bulkActions.POST("/:id/revert", pricingHandler.RevertBulkAction)
		}

		// Rule-based campaigns
		v1.POST("/campaigns", pricingHandler.CreateRuleCampaign)

		// Collections for scope building
		collections := v1.Group("/collections")
		{
			collections.GET("", pricingHandler.ListCollections)
			collections.GET("/:id/products", pricingHandler.GetCollectionItems)
		}

		// Audit trail
		v1.GET("/audit-logs", auditHandler.GetAuditLogs)
	}

	return router
}
