package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"shopify-pricing-service/internal/secrets"
)

// Config holds all configuration for the pricing service
type Config struct {
	// Server
	Port        string
	Environment string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// GCP
	GCPProjectID string

	// Shopify app credentials
	ShopifyAPIKey    string
	ShopifyAPISecret string

	// Public base URL of this service, used for the OAuth redirect
	AppBaseURL string

	// CORS
	AllowedOrigins []string

	// Bulk mutation settings
	MutationConcurrency int
	MutationTimeout     time.Duration

	// Per-shop job limits
	MaxConcurrentJobs int
	JobQueueTimeout   time.Duration
}

// Load loads configuration from environment variables, falling back to GCP
// Secret Manager for the app credentials when they are not set directly.
func Load() *Config {
	databaseURL := getEnv("DATABASE_URL", "")
	if databaseURL == "" {
		dbHost := getEnv("DB_HOST", "localhost")
		dbPort := getEnv("DB_PORT", "5432")
		dbUser := getEnv("DB_USER", "postgres")
		dbPassword := getEnv("DB_PASSWORD", "postgres")
		dbName := getEnv("DB_NAME", "shopify_pricing")
		dbSSLMode := getEnv("DB_SSLMODE", "disable")

		databaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			dbUser, dbPassword, dbHost, dbPort, dbName, dbSSLMode)
	}

	config := &Config{
		Port:        getEnv("PORT", "8099"),
		Environment: getEnv("ENVIRONMENT", "development"),
		DatabaseURL: databaseURL,

		RedisURL: getEnv("REDIS_URL", ""),

		GCPProjectID: getEnv("GCP_PROJECT_ID", ""),

		ShopifyAPIKey:    getEnv("SHOPIFY_API_KEY", ""),
		ShopifyAPISecret: getEnv("SHOPIFY_API_SECRET", ""),

		AppBaseURL: getEnv("APP_BASE_URL", "http://localhost:8099"),

		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "https://admin.shopify.com")),

		MutationConcurrency: getEnvAsInt("MUTATION_CONCURRENCY", 4),
		MutationTimeout:     getEnvAsDuration("MUTATION_TIMEOUT", 15*time.Second),

		MaxConcurrentJobs: getEnvAsInt("MAX_CONCURRENT_JOBS", 2),
		JobQueueTimeout:   getEnvAsDuration("JOB_QUEUE_TIMEOUT", 30*time.Second),
	}

	// App credentials fall back to Secret Manager when the project is set
	if (config.ShopifyAPIKey == "" || config.ShopifyAPISecret == "") && config.GCPProjectID != "" {
		loadAppCredentialsFromGCP(config)
	}

	if config.ShopifyAPIKey == "" || config.ShopifyAPISecret == "" {
		log.Fatal("SHOPIFY_API_KEY and SHOPIFY_API_SECRET are required")
	}

	return config
}

func loadAppCredentialsFromGCP(config *Config) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sm, err := secrets.NewGCPSecretManager(ctx, config.GCPProjectID)
	if err != nil {
		log.Printf("Warning: secret manager unavailable: %v", err)
		return
	}
	defer sm.Close()

	secretID := getEnv("SHOPIFY_APP_SECRET_ID", "shopify-app-credentials")
	creds, err := sm.GetAppCredentials(ctx, secretID)
	if err != nil {
		log.Printf("Warning: failed to load app credentials from secret manager: %v", err)
		return
	}
	config.ShopifyAPIKey = creds.APIKey
	config.ShopifyAPISecret = creds.APISecret
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
