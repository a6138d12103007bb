package clients

import (
	"context"
	"time"
)

// CommerceClient defines the operations the service needs from a shop's
// commerce platform. The Shopify Admin API client implements it; tests
// substitute mocks.
type CommerceClient interface {
	// TestConnection verifies the access token is still valid
	TestConnection(ctx context.Context) error

	// Products
	GetProducts(ctx context.Context, opts *ListOptions) (*ProductsResult, error)

	// Pricing
	UpdateVariantPrice(ctx context.Context, variantID int64, update VariantPriceUpdate) error

	// Collections
	GetCollections(ctx context.Context) ([]ExternalCollection, error)
	GetCollectionProductIDs(ctx context.Context, collectionID string) ([]int64, error)

	// Shop
	GetShopInfo(ctx context.Context) (*ShopInfo, error)
}

// PriceMutator is the narrow slice of CommerceClient the pricing engine
// needs to push price changes upstream.
type PriceMutator interface {
	UpdateVariantPrice(ctx context.Context, variantID int64, update VariantPriceUpdate) error
}

// VariantPriceUpdate describes a remote price mutation. A nil Price leaves
// the price untouched. CompareAtPrice is only considered when SetCompareAt
// is true; nil with SetCompareAt clears the compare-at price upstream.
type VariantPriceUpdate struct {
	Price          *float64
	CompareAtPrice *float64
	SetCompareAt   bool
}

// ListOptions contains pagination options for product listing
type ListOptions struct {
	Limit  int
	Cursor string
	Status string
}

// ProductsResult contains one page of products
type ProductsResult struct {
	Products   []ExternalProduct
	NextCursor string
	HasMore    bool
}

// ExternalProduct represents a product fetched from the commerce platform
type ExternalProduct struct {
	ID        int64             `json:"id"`
	Title     string            `json:"title"`
	Vendor    string            `json:"vendor,omitempty"`
	Status    string            `json:"status"`
	Variants  []ExternalVariant `json:"variants"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// ExternalVariant represents one variant of an external product
type ExternalVariant struct {
	ID                int64    `json:"id"`
	ProductID         int64    `json:"productId"`
	Title             string   `json:"title"`
	SKU               string   `json:"sku,omitempty"`
	Price             float64  `json:"price"`
	CompareAtPrice    *float64 `json:"compareAtPrice,omitempty"`
	InventoryQuantity int      `json:"inventoryQuantity"`
}

// ExternalCollection represents a product collection on the platform
type ExternalCollection struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Handle        string `json:"handle,omitempty"`
	ProductsCount int    `json:"productsCount"`
}

// ShopInfo holds the shop profile returned after OAuth
type ShopInfo struct {
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Domain string `json:"domain,omitempty"`
}

// TokenResult contains the result of an OAuth code exchange
type TokenResult struct {
	AccessToken string
	Scope       string
}
