package models

import (
	"time"

	"github.com/google/uuid"
)

// ActionType represents how a bulk action's target prices were produced
type ActionType string

const (
	// ActionTypeUniform applies the same price/compare-at to every item
	ActionTypeUniform ActionType = "uniform"
	// ActionTypeCalculated carries per-item precomputed targets
	ActionTypeCalculated ActionType = "calculated"
	// ActionTypeRule derives targets from an adjustment rule over a scope
	ActionTypeRule ActionType = "rule"
)

// BulkAction is the ledger header for one bulk price update. NewPrice and
// NewCompareAtPrice are populated for uniform actions only; per-item targets
// live on the items. RevertedAt is terminal: once set the action can never
// be applied or reverted again.
type BulkAction struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ShopID     *uuid.UUID `gorm:"type:uuid;index:idx_bulk_actions_shop" json:"shopId,omitempty"`
	ShopDomain string     `gorm:"type:varchar(255);not null;index:idx_bulk_actions_domain" json:"shopDomain"`

	ActionName string     `gorm:"type:varchar(255);not null" json:"actionName"`
	ActionType ActionType `gorm:"type:varchar(50);not null;default:'uniform'" json:"actionType"`
	CreatedBy  *string    `gorm:"type:varchar(255)" json:"createdBy,omitempty"`

	NewPrice          *float64 `gorm:"type:decimal(12,2)" json:"newPrice,omitempty"`
	NewCompareAtPrice *float64 `gorm:"type:decimal(12,2)" json:"newCompareAtPrice,omitempty"`

	ProductCount int `gorm:"default:0" json:"productCount"`

	CreatedAt  time.Time  `gorm:"default:CURRENT_TIMESTAMP;index:idx_bulk_actions_created" json:"createdAt"`
	RevertedAt *time.Time `json:"revertedAt,omitempty"`

	Items []BulkActionItem `gorm:"foreignKey:BulkActionID" json:"items,omitempty"`
}

// TableName specifies the table name for BulkAction
func (BulkAction) TableName() string {
	return "bulk_actions"
}

// IsReverted reports whether the action has already been reverted
func (a *BulkAction) IsReverted() bool {
	return a.RevertedAt != nil
}

// BulkActionItem snapshots one item's prices before and after a bulk action.
// Original values are what revert restores; rows are immutable once written.
type BulkActionItem struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	BulkActionID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bulk_action_items_pair,priority:1" json:"bulkActionId"`
	InventoryItemID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bulk_action_items_pair,priority:2" json:"inventoryItemId"`

	OriginalPrice          *float64 `gorm:"type:decimal(12,2)" json:"originalPrice,omitempty"`
	OriginalCompareAtPrice *float64 `gorm:"type:decimal(12,2)" json:"originalCompareAtPrice,omitempty"`
	NewPrice               *float64 `gorm:"type:decimal(12,2)" json:"newPrice,omitempty"`
	NewCompareAtPrice      *float64 `gorm:"type:decimal(12,2)" json:"newCompareAtPrice,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`

	InventoryItem *InventoryItem `gorm:"foreignKey:InventoryItemID" json:"inventoryItem,omitempty"`
}

// TableName specifies the table name for BulkActionItem
func (BulkActionItem) TableName() string {
	return "bulk_action_items"
}

// AdjustmentType represents how a rule's magnitude is interpreted
type AdjustmentType string

const (
	AdjustmentFixed      AdjustmentType = "fixed"
	AdjustmentPercentage AdjustmentType = "percentage"
)

// AdjustmentDirection represents whether a rule raises or lowers prices
type AdjustmentDirection string

const (
	DirectionIncrease AdjustmentDirection = "increase"
	DirectionDecrease AdjustmentDirection = "decrease"
)

// AdjustmentTarget selects which price fields a rule touches
type AdjustmentTarget string

const (
	TargetPrice          AdjustmentTarget = "price"
	TargetCompareAtPrice AdjustmentTarget = "compare_at_price"
	TargetBoth           AdjustmentTarget = "both"
)

// AdjustmentRule describes a relative price change: fixed amount or
// percentage, applied upward or downward, against one or both price fields.
type AdjustmentRule struct {
	Type      AdjustmentType      `json:"type" binding:"required,oneof=fixed percentage"`
	Direction AdjustmentDirection `json:"direction" binding:"required,oneof=increase decrease"`
	Magnitude float64             `json:"magnitude" binding:"required,gt=0"`
	Target    AdjustmentTarget    `json:"target" binding:"required,oneof=price compare_at_price both"`
}

// ScopeMode selects how a campaign's item set is determined
type ScopeMode string

const (
	ScopeAll        ScopeMode = "all"
	ScopeExplicit   ScopeMode = "explicit"
	ScopeCollection ScopeMode = "collection"
	ScopeVendor     ScopeMode = "vendor"
)

// ScopeSpec describes which inventory items a campaign targets
type ScopeSpec struct {
	Mode          ScopeMode   `json:"mode" binding:"required,oneof=all explicit collection vendor"`
	ItemIDs       []uuid.UUID `json:"itemIds,omitempty"`
	CollectionIDs []string    `json:"collectionIds,omitempty"`
	Vendor        string      `json:"vendor,omitempty"`
}
