package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"shopify-pricing-service/internal/models"
)

// AuditService records an audit trail for pricing and inventory changes
type AuditService struct {
	db *gorm.DB
}

// NewAuditService creates a new audit service
func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// LogAction logs an audit action
func (s *AuditService) LogAction(ctx context.Context, log *models.AuditLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	return s.db.WithContext(ctx).Create(log).Error
}

// LogCampaignApply logs a bulk action application
func (s *AuditService) LogCampaignApply(ctx context.Context, shopDomain string, action *models.BulkAction, succeeded, failed int) error {
	actorID := "merchant"
	actorType := models.ActorMerchant
	if action.CreatedBy != nil && *action.CreatedBy != "" {
		actorID = *action.CreatedBy
	}

	log := models.NewAuditLog(shopDomain, models.ActionCampaignApply, models.ResourceBulkAction).
		WithActor(actorType, actorID, nil).
		WithResource(action.ID.String()).
		WithChanges(nil, models.JSONB{
			"actionName":        action.ActionName,
			"actionType":        action.ActionType,
			"newPrice":          action.NewPrice,
			"newCompareAtPrice": action.NewCompareAtPrice,
			"productCount":      action.ProductCount,
		}).
		WithMetadata(models.JSONB{
			"succeeded": succeeded,
			"failed":    failed,
		}).
		Build()

	return s.LogAction(ctx, log)
}

// LogCampaignRevert logs a bulk action revert
func (s *AuditService) LogCampaignRevert(ctx context.Context, shopDomain string, action *models.BulkAction, restored int) error {
	log := models.NewAuditLog(shopDomain, models.ActionCampaignRevert, models.ResourceBulkAction).
		WithActor(models.ActorMerchant, "merchant", nil).
		WithResource(action.ID.String()).
		WithMetadata(models.JSONB{
			"actionName": action.ActionName,
			"restored":   restored,
		}).
		Build()

	return s.LogAction(ctx, log)
}

// LogInventorySync logs a catalog sync run
func (s *AuditService) LogInventorySync(ctx context.Context, shopDomain string, itemCount int) error {
	log := models.NewAuditLog(shopDomain, models.ActionInventorySync, models.ResourceInventoryItem).
		WithActor(models.ActorSystem, "sync-worker", nil).
		WithMetadata(models.JSONB{"itemCount": itemCount}).
		Build()

	return s.LogAction(ctx, log)
}

// LogThresholdUpdate logs a low-stock threshold change
func (s *AuditService) LogThresholdUpdate(ctx context.Context, shopDomain string, itemID uuid.UUID, oldThreshold, newThreshold *int) error {
	log := models.NewAuditLog(shopDomain, models.ActionThresholdUpdate, models.ResourceInventoryItem).
		WithActor(models.ActorMerchant, "merchant", nil).
		WithResource(itemID.String()).
		WithChanges(
			models.JSONB{"lowStockThreshold": oldThreshold},
			models.JSONB{"lowStockThreshold": newThreshold},
		).
		Build()

	return s.LogAction(ctx, log)
}

// LogPriceUpdate logs a single-item price change
func (s *AuditService) LogPriceUpdate(ctx context.Context, shopDomain string, itemID uuid.UUID, oldValues, newValues models.JSONB) error {
	log := models.NewAuditLog(shopDomain, models.ActionPriceUpdate, models.ResourceInventoryItem).
		WithActor(models.ActorMerchant, "merchant", nil).
		WithResource(itemID.String()).
		WithChanges(oldValues, newValues).
		Build()

	return s.LogAction(ctx, log)
}

// LogShopInstall logs an app installation or reinstall
func (s *AuditService) LogShopInstall(ctx context.Context, shop *models.Shop, reinstall bool) error {
	action := models.ActionShopInstall
	if reinstall {
		action = models.ActionShopReinstall
	}

	log := models.NewAuditLog(shop.ShopDomain, action, models.ResourceShop).
		WithActor(models.ActorSystem, "oauth-callback", nil).
		WithResource(shop.ID.String()).
		Build()

	return s.LogAction(ctx, log)
}

// AuditLogOptions contains options for querying audit logs
type AuditLogOptions struct {
	Action       string
	ResourceType string
	ResourceID   string
	StartDate    time.Time
	EndDate      time.Time
	Limit        int
	Offset       int
}

// GetAuditLogs retrieves audit logs for a shop with filters
func (s *AuditService) GetAuditLogs(ctx context.Context, shopDomain string, opts *AuditLogOptions) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	query := s.db.WithContext(ctx).Model(&models.AuditLog{}).Where("shop_domain = ?", shopDomain)

	if opts != nil {
		if opts.Action != "" {
			query = query.Where("action = ?", opts.Action)
		}
		if opts.ResourceType != "" {
			query = query.Where("resource_type = ?", opts.ResourceType)
		}
		if opts.ResourceID != "" {
			query = query.Where("resource_id = ?", opts.ResourceID)
		}
		if !opts.StartDate.IsZero() {
			query = query.Where("created_at >= ?", opts.StartDate)
		}
		if !opts.EndDate.IsZero() {
			query = query.Where("created_at <= ?", opts.EndDate)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if opts != nil && opts.Limit > 0 {
		query = query.Limit(opts.Limit).Offset(opts.Offset)
	}

	if err := query.Order("created_at DESC").Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
