package repository

import (
	"context"

	"gorm.io/gorm"

	"shopify-pricing-service/internal/models"
)

// ShopRepositoryInterface defines shop and OAuth state persistence
type ShopRepositoryInterface interface {
	GetByDomain(ctx context.Context, shopDomain string) (*models.Shop, error)
	Upsert(ctx context.Context, shop *models.Shop) error
	CreateOAuthState(ctx context.Context, state *models.OAuthState) error
	ConsumeOAuthState(ctx context.Context, state string) (*models.OAuthState, error)
}

// ShopRepository handles shop-related database operations
type ShopRepository struct {
	db *gorm.DB
}

var _ ShopRepositoryInterface = (*ShopRepository)(nil)

// NewShopRepository creates a new shop repository
func NewShopRepository(db *gorm.DB) *ShopRepository {
	return &ShopRepository{db: db}
}

// GetByDomain retrieves a shop by its myshopify domain
func (r *ShopRepository) GetByDomain(ctx context.Context, shopDomain string) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.WithContext(ctx).Where("shop_domain = ?", shopDomain).First(&shop).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

// Upsert creates or refreshes a shop record keyed by domain. Reinstalls
// replace the stored access token.
func (r *ShopRepository) Upsert(ctx context.Context, shop *models.Shop) error {
	return r.db.WithContext(ctx).
		Where("shop_domain = ?", shop.ShopDomain).
		Assign(map[string]interface{}{
			"access_token": shop.AccessToken,
			"shop_name":    shop.ShopName,
			"email":        shop.Email,
		}).
		FirstOrCreate(shop).Error
}

// CreateOAuthState stores a single-use OAuth nonce
func (r *ShopRepository) CreateOAuthState(ctx context.Context, state *models.OAuthState) error {
	return r.db.WithContext(ctx).Create(state).Error
}

// ConsumeOAuthState looks up a nonce and deletes it so it cannot be replayed
func (r *ShopRepository) ConsumeOAuthState(ctx context.Context, state string) (*models.OAuthState, error) {
	var record models.OAuthState
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("state = ?", state).First(&record).Error; err != nil {
			return err
		}
		return tx.Delete(&record).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}
