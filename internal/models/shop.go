package models

import (
	"time"

	"github.com/google/uuid"
)

// Shop represents a Shopify store that installed the app. The access token
// is obtained during OAuth and used for all Admin API calls on the shop's
// behalf.
type Shop struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ShopDomain string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_shops_domain" json:"shopDomain"`

	ShopName *string `gorm:"type:varchar(255)" json:"shopName,omitempty"`
	Email    *string `gorm:"type:varchar(255)" json:"email,omitempty"`

	// Admin API access token, never exposed over the API
	AccessToken string `gorm:"type:varchar(500);not null" json:"-"`

	InstalledAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"installedAt"`
	UpdatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName specifies the table name for Shop
func (Shop) TableName() string {
	return "shops"
}

// OAuthState is a single-use nonce issued at install time and consumed on
// the OAuth callback to guard against forged redirects.
type OAuthState struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	State      string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_oauth_states_state" json:"state"`
	ShopDomain string    `gorm:"type:varchar(255);not null" json:"shopDomain"`
	ReturnURL  *string   `gorm:"type:varchar(1000)" json:"returnUrl,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName specifies the table name for OAuthState
func (OAuthState) TableName() string {
	return "oauth_states"
}
