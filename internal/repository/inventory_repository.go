package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"shopify-pricing-service/internal/models"
)

// Cache TTL constants
const (
	// Item lists change on every sync and price mutation, keep the TTL short
	inventoryListCacheTTL = 2 * time.Minute
)

// ListOptions contains common pagination options
type ListOptions struct {
	Limit  int
	Offset int
}

// InventoryRepositoryInterface defines inventory item persistence
type InventoryRepositoryInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	GetByIDs(ctx context.Context, shopDomain string, ids []uuid.UUID) ([]models.InventoryItem, error)
	ListByShop(ctx context.Context, shopDomain string, opts ListOptions) ([]models.InventoryItem, int64, error)
	ListAllByShop(ctx context.Context, shopDomain string) ([]models.InventoryItem, error)
	ListByProductIDs(ctx context.Context, shopDomain string, productIDs []int64) ([]models.InventoryItem, error)
	ListLowStock(ctx context.Context, shopDomain string) ([]models.InventoryItem, error)
	Upsert(ctx context.Context, item *models.InventoryItem) error
	UpdatePrices(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	UpdateThreshold(ctx context.Context, shopDomain string, id uuid.UUID, threshold *int) error
	CreateAlert(ctx context.Context, alert *models.InventoryAlert) error
	ListAlerts(ctx context.Context, shopDomain string, opts ListOptions) ([]models.InventoryAlert, int64, error)
}

// InventoryRepository handles inventory item database operations with an
// optional Redis read cache for shop listings.
type InventoryRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

var _ InventoryRepositoryInterface = (*InventoryRepository)(nil)

// NewInventoryRepository creates a new inventory repository. A nil redis
// client disables caching.
func NewInventoryRepository(db *gorm.DB, redisClient *redis.Client) *InventoryRepository {
	return &InventoryRepository{db: db, redis: redisClient}
}

func listCacheKey(shopDomain string, opts ListOptions) string {
	return fmt.Sprintf("inventory:list:%s:%d:%d", shopDomain, opts.Limit, opts.Offset)
}

// invalidateShopCaches drops all cached listings for a shop after a write
func (r *InventoryRepository) invalidateShopCaches(ctx context.Context, shopDomain string) {
	if r.redis == nil {
		return
	}
	pattern := fmt.Sprintf("inventory:list:%s:*", shopDomain)
	iter := r.redis.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		_ = r.redis.Del(ctx, iter.Val()).Err()
	}
}

// GetByID retrieves an inventory item by ID
func (r *InventoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// GetByIDs retrieves the subset of the given IDs that exist for the shop.
// Unknown IDs are silently absent from the result.
func (r *InventoryRepository) GetByIDs(ctx context.Context, shopDomain string, ids []uuid.UUID) ([]models.InventoryItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []models.InventoryItem
	if err := r.db.WithContext(ctx).
		Where("shop_domain = ? AND id IN ?", shopDomain, ids).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListByShop retrieves inventory items for a shop with pagination
func (r *InventoryRepository) ListByShop(ctx context.Context, shopDomain string, opts ListOptions) ([]models.InventoryItem, int64, error) {
	type cachedList struct {
		Items []models.InventoryItem `json:"items"`
		Total int64                  `json:"total"`
	}

	cacheKey := listCacheKey(shopDomain, opts)
	if r.redis != nil {
		if val, err := r.redis.Get(ctx, cacheKey).Result(); err == nil {
			var cached cachedList
			if json.Unmarshal([]byte(val), &cached) == nil {
				return cached.Items, cached.Total, nil
			}
		}
	}

	var items []models.InventoryItem
	var total int64

	query := r.db.WithContext(ctx).Model(&models.InventoryItem{}).Where("shop_domain = ?", shopDomain)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit).Offset(opts.Offset)
	}
	if err := query.Order("title ASC").Find(&items).Error; err != nil {
		return nil, 0, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(cachedList{Items: items, Total: total}); err == nil {
			_ = r.redis.Set(ctx, cacheKey, data, inventoryListCacheTTL).Err()
		}
	}

	return items, total, nil
}

// ListAllByShop retrieves every inventory item for a shop, unpaginated.
// Scope resolution needs the full set.
func (r *InventoryRepository) ListAllByShop(ctx context.Context, shopDomain string) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	if err := r.db.WithContext(ctx).
		Where("shop_domain = ?", shopDomain).
		Order("title ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListByProductIDs retrieves items whose Shopify product ID is in the set
func (r *InventoryRepository) ListByProductIDs(ctx context.Context, shopDomain string, productIDs []int64) ([]models.InventoryItem, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	var items []models.InventoryItem
	if err := r.db.WithContext(ctx).
		Where("shop_domain = ? AND shopify_product_id IN ?", shopDomain, productIDs).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListLowStock retrieves items at or below their low-stock threshold
func (r *InventoryRepository) ListLowStock(ctx context.Context, shopDomain string) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	if err := r.db.WithContext(ctx).
		Where("shop_domain = ? AND low_stock_threshold IS NOT NULL AND inventory_quantity <= low_stock_threshold", shopDomain).
		Order("inventory_quantity ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Upsert creates or updates an item keyed by (shop_domain, shopify_variant_id)
func (r *InventoryRepository) Upsert(ctx context.Context, item *models.InventoryItem) error {
	err := r.db.WithContext(ctx).
		Where("shop_domain = ? AND shopify_variant_id = ?", item.ShopDomain, item.ShopifyVariantID).
		Assign(map[string]interface{}{
			"title":              item.Title,
			"sku":                item.SKU,
			"vendor":             item.Vendor,
			"price":              item.Price,
			"compare_at_price":   item.CompareAtPrice,
			"inventory_quantity": item.InventoryQuantity,
			"status":             item.Status,
			"shopify_product_id": item.ShopifyProductID,
			"shop_id":            item.ShopID,
			"updated_at":         time.Now(),
		}).
		FirstOrCreate(item).Error
	if err != nil {
		return err
	}
	r.invalidateShopCaches(ctx, item.ShopDomain)
	return nil
}

// UpdatePrices applies a partial price update to one item. fields uses
// column names; nil values write SQL NULL.
func (r *InventoryRepository) UpdatePrices(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now()

	var item models.InventoryItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Model(&models.InventoryItem{}).
		Where("id = ?", id).
		Updates(fields).Error; err != nil {
		return err
	}
	r.invalidateShopCaches(ctx, item.ShopDomain)
	return nil
}

// UpdateThreshold sets or clears an item's low-stock threshold
func (r *InventoryRepository) UpdateThreshold(ctx context.Context, shopDomain string, id uuid.UUID, threshold *int) error {
	result := r.db.WithContext(ctx).Model(&models.InventoryItem{}).
		Where("id = ? AND shop_domain = ?", id, shopDomain).
		Updates(map[string]interface{}{
			"low_stock_threshold": threshold,
			"updated_at":          time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	r.invalidateShopCaches(ctx, shopDomain)
	return nil
}

// CreateAlert records an inventory alert
func (r *InventoryRepository) CreateAlert(ctx context.Context, alert *models.InventoryAlert) error {
	return r.db.WithContext(ctx).Create(alert).Error
}

// ListAlerts retrieves alerts for a shop, newest first
func (r *InventoryRepository) ListAlerts(ctx context.Context, shopDomain string, opts ListOptions) ([]models.InventoryAlert, int64, error) {
	var alerts []models.InventoryAlert
	var total int64

	query := r.db.WithContext(ctx).Model(&models.InventoryAlert{}).Where("shop_domain = ?", shopDomain)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit).Offset(opts.Offset)
	}
	if err := query.Order("sent_at DESC").Find(&alerts).Error; err != nil {
		return nil, 0, err
	}

	return alerts, total, nil
}
