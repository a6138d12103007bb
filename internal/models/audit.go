package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JSONB custom type for PostgreSQL JSONB
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

func (j JSONB) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}(j))
}

func (j *JSONB) UnmarshalJSON(data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*j = JSONB(m)
	return nil
}

// ActorType represents the type of actor performing an action
type ActorType string

const (
	ActorMerchant ActorType = "MERCHANT"
	ActorSystem   ActorType = "SYSTEM"
	ActorWebhook  ActorType = "WEBHOOK"
)

// AuditAction represents common audit actions
type AuditAction string

const (
	// Campaign actions
	ActionCampaignApply  AuditAction = "CAMPAIGN_APPLY"
	ActionCampaignRevert AuditAction = "CAMPAIGN_REVERT"

	// Inventory actions
	ActionInventorySync   AuditAction = "INVENTORY_SYNC"
	ActionThresholdUpdate AuditAction = "THRESHOLD_UPDATE"
	ActionPriceUpdate     AuditAction = "PRICE_UPDATE"

	// Shop lifecycle actions
	ActionShopInstall   AuditAction = "SHOP_INSTALL"
	ActionShopReinstall AuditAction = "SHOP_REINSTALL"
)

// ResourceType represents the type of resource being audited
type ResourceType string

const (
	ResourceBulkAction    ResourceType = "BULK_ACTION"
	ResourceInventoryItem ResourceType = "INVENTORY_ITEM"
	ResourceShop          ResourceType = "SHOP"
)

// AuditLog represents an audit trail entry for pricing and inventory changes
type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ShopDomain string    `gorm:"type:varchar(255);not null;index:idx_audit_logs_domain" json:"shopDomain"`

	// Actor
	ActorType ActorType `gorm:"type:varchar(50);not null" json:"actorType"`
	ActorID   string    `gorm:"type:varchar(255);not null" json:"actorId"`
	ActorIP   *string   `gorm:"type:varchar(45)" json:"actorIp,omitempty"`

	// Action
	Action       AuditAction  `gorm:"type:varchar(100);not null;index:idx_audit_logs_action" json:"action"`
	ResourceType ResourceType `gorm:"type:varchar(100);not null" json:"resourceType"`
	ResourceID   *string      `gorm:"type:varchar(255)" json:"resourceId,omitempty"`

	// Details
	OldValue JSONB `gorm:"type:jsonb" json:"oldValue,omitempty"`
	NewValue JSONB `gorm:"type:jsonb" json:"newValue,omitempty"`
	Metadata JSONB `gorm:"type:jsonb;default:'{}'" json:"metadata,omitempty"`

	// Request context
	RequestID *string `gorm:"type:varchar(255)" json:"requestId,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_logs_created" json:"createdAt"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "pricing_audit_logs"
}

// AuditLogBuilder helps construct audit log entries
type AuditLogBuilder struct {
	log *AuditLog
}

// NewAuditLog creates a new audit log builder
func NewAuditLog(shopDomain string, action AuditAction, resourceType ResourceType) *AuditLogBuilder {
	return &AuditLogBuilder{
		log: &AuditLog{
			ID:           uuid.New(),
			ShopDomain:   shopDomain,
			Action:       action,
			ResourceType: resourceType,
			ActorType:    ActorSystem,
			ActorID:      "system",
			CreatedAt:    time.Now(),
		},
	}
}

// WithActor sets the actor information
func (b *AuditLogBuilder) WithActor(actorType ActorType, actorID string, actorIP *string) *AuditLogBuilder {
	b.log.ActorType = actorType
	b.log.ActorID = actorID
	b.log.ActorIP = actorIP
	return b
}

// WithResource sets the resource ID
func (b *AuditLogBuilder) WithResource(resourceID string) *AuditLogBuilder {
	b.log.ResourceID = &resourceID
	return b
}

// WithChanges sets the old and new values
func (b *AuditLogBuilder) WithChanges(oldValue, newValue JSONB) *AuditLogBuilder {
	b.log.OldValue = oldValue
	b.log.NewValue = newValue
	return b
}

// WithMetadata sets additional metadata
func (b *AuditLogBuilder) WithMetadata(metadata JSONB) *AuditLogBuilder {
	b.log.Metadata = metadata
	return b
}

// WithRequestID sets the request context
func (b *AuditLogBuilder) WithRequestID(requestID *string) *AuditLogBuilder {
	b.log.RequestID = requestID
	return b
}

// Build returns the constructed audit log
func (b *AuditLogBuilder) Build() *AuditLog {
	return b.log
}
