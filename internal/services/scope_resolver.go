package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"shopify-pricing-service/internal/clients"
	"shopify-pricing-service/internal/models"
	"shopify-pricing-service/internal/repository"
)

// ScopeResolver turns a campaign scope into the concrete set of inventory
// items it targets.
type ScopeResolver struct {
	inventoryRepo repository.InventoryRepositoryInterface
	logger        *logrus.Logger
}

// NewScopeResolver creates a new scope resolver
func NewScopeResolver(inventoryRepo repository.InventoryRepositoryInterface, logger *logrus.Logger) *ScopeResolver {
	return &ScopeResolver{inventoryRepo: inventoryRepo, logger: logger}
}

// Resolve returns the deduplicated items a scope selects for one shop.
// Explicit IDs that do not exist for the shop are silently dropped; a
// collection that cannot be queried upstream aborts the whole resolution.
func (r *ScopeResolver) Resolve(ctx context.Context, shopDomain string, client clients.CommerceClient, spec models.ScopeSpec) ([]models.InventoryItem, error) {
	switch spec.Mode {
	case models.ScopeAll:
		return r.inventoryRepo.ListAllByShop(ctx, shopDomain)

	case models.ScopeExplicit:
		if len(spec.ItemIDs) == 0 {
			return nil, fmt.Errorf("%w: explicit scope requires item ids", ErrInvalidCampaign)
		}
		return r.inventoryRepo.GetByIDs(ctx, shopDomain, spec.ItemIDs)

	case models.ScopeCollection:
		if len(spec.CollectionIDs) == 0 {
			return nil, fmt.Errorf("%w: collection scope requires collection ids", ErrInvalidCampaign)
		}
		return r.resolveCollections(ctx, shopDomain, client, spec.CollectionIDs)

	case models.ScopeVendor:
		if spec.Vendor == "" {
			return nil, fmt.Errorf("%w: vendor scope requires a vendor", ErrInvalidCampaign)
		}
		return r.resolveVendor(ctx, shopDomain, spec.Vendor)

	default:
		return nil, fmt.Errorf("%w: unknown scope mode %q", ErrInvalidCampaign, spec.Mode)
	}
}

// resolveCollections unions the membership of every collection, then
// correlates the remote product IDs back to local items.
func (r *ScopeResolver) resolveCollections(ctx context.Context, shopDomain string, client clients.CommerceClient, collectionIDs []string) ([]models.InventoryItem, error) {
	productIDSet := make(map[int64]struct{})
	for _, collectionID := range collectionIDs {
		ids, err := client.GetCollectionProductIDs(ctx, collectionID)
		if err != nil {
			r.logger.WithFields(logrus.Fields{
				"shopDomain":   shopDomain,
				"collectionId": collectionID,
			}).WithError(err).Error("collection membership query failed")
			return nil, fmt.Errorf("%w: collection %s: %v", ErrUpstreamUnavailable, collectionID, err)
		}
		for _, id := range ids {
			productIDSet[id] = struct{}{}
		}
	}

	productIDs := make([]int64, 0, len(productIDSet))
	for id := range productIDSet {
		productIDs = append(productIDs, id)
	}

	items, err := r.inventoryRepo.ListByProductIDs(ctx, shopDomain, productIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection items: %w", err)
	}
	return dedupeItems(items), nil
}

// resolveVendor matches on the item's vendor label, exact and
// case-sensitive.
func (r *ScopeResolver) resolveVendor(ctx context.Context, shopDomain, vendor string) ([]models.InventoryItem, error) {
	all, err := r.inventoryRepo.ListAllByShop(ctx, shopDomain)
	if err != nil {
		return nil, fmt.Errorf("failed to load shop items: %w", err)
	}

	var items []models.InventoryItem
	for _, item := range all {
		if item.VendorLabel() == vendor {
			items = append(items, item)
		}
	}
	return items, nil
}

func dedupeItems(items []models.InventoryItem) []models.InventoryItem {
	seen := make(map[uuid.UUID]struct{}, len(items))
	result := items[:0]
	for _, item := range items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		result = append(result, item)
	}
	return result
}
