package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"shopify-pricing-service/internal/models"
)

// BulkActionRepositoryInterface defines persistence for the bulk action
// ledger. Implementations must guarantee that CreateWithItems is atomic:
// either the action and all of its item snapshots are stored, or nothing is.
type BulkActionRepositoryInterface interface {
	CreateWithItems(ctx context.Context, action *models.BulkAction, items []models.BulkActionItem) error
	GetByID(ctx context.Context, shopDomain string, id uuid.UUID) (*models.BulkAction, error)
	List(ctx context.Context, shopDomain string, opts ListOptions) ([]models.BulkAction, int64, error)
	GetItems(ctx context.Context, actionID uuid.UUID) ([]models.BulkActionItem, error)
	MarkReverted(ctx context.Context, id uuid.UUID, revertedAt time.Time) (bool, error)
	WithTransaction(ctx context.Context, fn func(txRepo BulkActionRepositoryInterface) error) error
}

// BulkActionRepository handles bulk action ledger database operations
type BulkActionRepository struct {
	db *gorm.DB
}

var _ BulkActionRepositoryInterface = (*BulkActionRepository)(nil)

// NewBulkActionRepository creates a new bulk action repository
func NewBulkActionRepository(db *gorm.DB) *BulkActionRepository {
	return &BulkActionRepository{db: db}
}

// CreateWithItems stores the action header and all item snapshots in one
// transaction.
func (r *BulkActionRepository) CreateWithItems(ctx context.Context, action *models.BulkAction, items []models.BulkActionItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(action).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].BulkActionID = action.ID
		}
		if len(items) > 0 {
			if err := tx.CreateInBatches(items, 500).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByID retrieves a bulk action scoped to a shop
func (r *BulkActionRepository) GetByID(ctx context.Context, shopDomain string, id uuid.UUID) (*models.BulkAction, error) {
	var action models.BulkAction
	if err := r.db.WithContext(ctx).
		Where("id = ? AND shop_domain = ?", id, shopDomain).
		First(&action).Error; err != nil {
		return nil, err
	}
	return &action, nil
}

// List retrieves a shop's bulk actions, newest first
func (r *BulkActionRepository) List(ctx context.Context, shopDomain string, opts ListOptions) ([]models.BulkAction, int64, error) {
	var actions []models.BulkAction
	var total int64

	query := r.db.WithContext(ctx).Model(&models.BulkAction{}).Where("shop_domain = ?", shopDomain)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit).Offset(opts.Offset)
	}
	if err := query.Order("created_at DESC").Find(&actions).Error; err != nil {
		return nil, 0, err
	}

	return actions, total, nil
}

// GetItems retrieves all item snapshots for an action
func (r *BulkActionRepository) GetItems(ctx context.Context, actionID uuid.UUID) ([]models.BulkActionItem, error) {
	var items []models.BulkActionItem
	if err := r.db.WithContext(ctx).
		Where("bulk_action_id = ?", actionID).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// MarkReverted stamps reverted_at, guarded so an already-reverted action is
// never stamped twice. Returns false when the guard lost (someone reverted
// first) without an error.
func (r *BulkActionRepository) MarkReverted(ctx context.Context, id uuid.UUID, revertedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.BulkAction{}).
		Where("id = ? AND reverted_at IS NULL", id).
		Update("reverted_at", revertedAt)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// WithTransaction runs fn against a repository bound to one transaction
func (r *BulkActionRepository) WithTransaction(ctx context.Context, fn func(txRepo BulkActionRepositoryInterface) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&BulkActionRepository{db: tx})
	})
}
