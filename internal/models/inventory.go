package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ItemStatus represents the status of an inventory item
type ItemStatus string

const (
	ItemStatusActive   ItemStatus = "active"
	ItemStatusDraft    ItemStatus = "draft"
	ItemStatusArchived ItemStatus = "archived"
)

// InventoryItem is the local mirror of a Shopify product variant. Rows are
// upserted by (shop, shopify_variant_id) during sync and webhook processing;
// prices are kept in sync after every successful remote mutation.
type InventoryItem struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ShopID     *uuid.UUID `gorm:"type:uuid;index:idx_inventory_items_shop" json:"shopId,omitempty"`
	ShopDomain string     `gorm:"type:varchar(255);not null;index:idx_inventory_items_domain;uniqueIndex:idx_inventory_items_variant,priority:1" json:"shopDomain"`

	Title  string  `gorm:"type:varchar(500);not null" json:"title"`
	SKU    *string `gorm:"type:varchar(255)" json:"sku,omitempty"`
	Vendor *string `gorm:"type:varchar(255);index:idx_inventory_items_vendor" json:"vendor,omitempty"`

	// Pricing
	Price          *float64 `gorm:"type:decimal(12,2)" json:"price,omitempty"`
	CompareAtPrice *float64 `gorm:"type:decimal(12,2)" json:"compareAtPrice,omitempty"`

	// Stock
	InventoryQuantity *int `gorm:"default:0" json:"inventoryQuantity,omitempty"`
	LowStockThreshold *int `json:"lowStockThreshold,omitempty"`

	Status *string `gorm:"type:varchar(50);default:'active'" json:"status,omitempty"`

	// Shopify identifiers
	ShopifyProductID *int64 `gorm:"index:idx_inventory_items_product" json:"shopifyProductId,omitempty"`
	ShopifyVariantID *int64 `gorm:"uniqueIndex:idx_inventory_items_variant,priority:2" json:"shopifyVariantId,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName specifies the table name for InventoryItem
func (InventoryItem) TableName() string {
	return "inventory_items"
}

// VendorLabel returns the vendor for scope matching. Items synced before the
// vendor column existed fall back to the "Vendor - Title" naming convention.
func (i *InventoryItem) VendorLabel() string {
	if i.Vendor != nil && *i.Vendor != "" {
		return *i.Vendor
	}
	if idx := strings.Index(i.Title, " - "); idx > 0 {
		return i.Title[:idx]
	}
	return ""
}

// IsLowStock reports whether the item's quantity is at or below its
// low-stock threshold. Items without a threshold never alert.
func (i *InventoryItem) IsLowStock() bool {
	if i.LowStockThreshold == nil || i.InventoryQuantity == nil {
		return false
	}
	return *i.InventoryQuantity <= *i.LowStockThreshold
}

// AlertType represents the kind of inventory alert
type AlertType string

const (
	AlertLowStock   AlertType = "low_stock"
	AlertOutOfStock AlertType = "out_of_stock"
)

// InventoryAlert records a stock-level notification for an item
type InventoryAlert struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ShopDomain      string    `gorm:"type:varchar(255);not null;index:idx_inventory_alerts_domain" json:"shopDomain"`
	InventoryItemID uuid.UUID `gorm:"type:uuid;not null;index:idx_inventory_alerts_item" json:"inventoryItemId"`

	AlertType AlertType `gorm:"type:varchar(50);not null" json:"alertType"`
	Message   string    `gorm:"type:text;not null" json:"message"`

	SentAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"sentAt"`

	InventoryItem *InventoryItem `gorm:"foreignKey:InventoryItemID" json:"inventoryItem,omitempty"`
}

// TableName specifies the table name for InventoryAlert
func (InventoryAlert) TableName() string {
	return "inventory_alerts"
}
