package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// AppCredentials holds the Shopify app's API key pair as stored in GCP
// Secret Manager. The secret value is a JSON document.
type AppCredentials struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
}

// cacheEntry represents a cached secret with expiration
type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

// GCPSecretManager reads secrets from Google Cloud Secret Manager with a
// short in-process cache.
type GCPSecretManager struct {
	client    *secretmanager.Client
	projectID string
	cache     map[string]*cacheEntry
	cacheMu   sync.RWMutex
	cacheTTL  time.Duration
}

// NewGCPSecretManager creates a new GCP Secret Manager client
func NewGCPSecretManager(ctx context.Context, projectID string) (*GCPSecretManager, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}

	return &GCPSecretManager{
		client:    client,
		projectID: projectID,
		cache:     make(map[string]*cacheEntry),
		cacheTTL:  5 * time.Minute,
	}, nil
}

// Close closes the Secret Manager client
func (sm *GCPSecretManager) Close() error {
	if sm.client != nil {
		return sm.client.Close()
	}
	return nil
}

// secretName constructs the fully qualified name for a secret ID
func (sm *GCPSecretManager) secretName(secretID string) string {
	return fmt.Sprintf("projects/%s/secrets/%s", sm.projectID, sanitizeSecretID(secretID))
}

// GetSecretBytes retrieves the latest version of a secret
func (sm *GCPSecretManager) GetSecretBytes(ctx context.Context, secretID string) ([]byte, error) {
	name := sm.secretName(secretID)

	sm.cacheMu.RLock()
	if entry, ok := sm.cache[name]; ok && time.Now().Before(entry.expiresAt) {
		sm.cacheMu.RUnlock()
		return entry.data, nil
	}
	sm.cacheMu.RUnlock()

	accessRequest := &secretmanagerpb.AccessSecretVersionRequest{
		Name: name + "/versions/latest",
	}
	result, err := sm.client.AccessSecretVersion(ctx, accessRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to access secret %s: %w", secretID, err)
	}

	sm.cacheMu.Lock()
	sm.cache[name] = &cacheEntry{
		data:      result.Payload.Data,
		expiresAt: time.Now().Add(sm.cacheTTL),
	}
	sm.cacheMu.Unlock()

	return result.Payload.Data, nil
}

// GetString retrieves a secret as a trimmed string
func (sm *GCPSecretManager) GetString(ctx context.Context, secretID string) (string, error) {
	data, err := sm.GetSecretBytes(ctx, secretID)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// GetAppCredentials retrieves the Shopify app credentials secret
func (sm *GCPSecretManager) GetAppCredentials(ctx context.Context, secretID string) (*AppCredentials, error) {
	data, err := sm.GetSecretBytes(ctx, secretID)
	if err != nil {
		return nil, err
	}

	var creds AppCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal app credentials: %w", err)
	}
	if creds.APIKey == "" || creds.APISecret == "" {
		return nil, fmt.Errorf("app credentials secret %s is incomplete", secretID)
	}
	return &creds, nil
}

// InvalidateCache removes a secret from the cache
func (sm *GCPSecretManager) InvalidateCache(secretID string) {
	sm.cacheMu.Lock()
	delete(sm.cache, sm.secretName(secretID))
	sm.cacheMu.Unlock()
}

// sanitizeSecretID removes or replaces invalid characters for GCP secret IDs
// Secret IDs can only contain alphanumeric characters, hyphens, and underscores
func sanitizeSecretID(input string) string {
	var result strings.Builder
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			result.WriteRune(r)
		} else {
			result.WriteRune('-')
		}
	}
	return result.String()
}
