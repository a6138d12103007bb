package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"shopify-pricing-service/internal/clients"
	"shopify-pricing-service/internal/models"
	"shopify-pricing-service/internal/repository"
)

// InventoryService keeps the local catalog mirror in sync with Shopify and
// manages stock thresholds and alerts.
type InventoryService struct {
	inventoryRepo repository.InventoryRepositoryInterface
	shopRepo      repository.ShopRepositoryInterface
	clientFor     ClientFactory
	audit         *AuditService
	sem           *ShopSemaphore
	logger        *logrus.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(
	inventoryRepo repository.InventoryRepositoryInterface,
	shopRepo repository.ShopRepositoryInterface,
	clientFor ClientFactory,
	audit *AuditService,
	sem *ShopSemaphore,
	logger *logrus.Logger,
) *InventoryService {
	return &InventoryService{
		inventoryRepo: inventoryRepo,
		shopRepo:      shopRepo,
		clientFor:     clientFor,
		audit:         audit,
		sem:           sem,
		logger:        logger,
	}
}

// SyncFromShopify pulls every product page from the Admin API and upserts
// one inventory item per variant. Returns the number of variants synced.
func (s *InventoryService) SyncFromShopify(ctx context.Context, shopDomain string) (int, error) {
	shop, err := s.shopRepo.GetByDomain(ctx, shopDomain)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("%w: shop %s is not installed", ErrNotFound, shopDomain)
		}
		return 0, fmt.Errorf("failed to load shop: %w", err)
	}
	client := s.clientFor(shop)

	release, err := s.sem.Acquire(ctx, shopDomain)
	if err != nil {
		return 0, err
	}
	defer release()

	synced := 0
	cursor := ""
	for {
		page, err := client.GetProducts(ctx, &clients.ListOptions{Cursor: cursor})
		if err != nil {
			return synced, fmt.Errorf("%w: product fetch: %v", ErrUpstreamUnavailable, err)
		}

		for _, product := range page.Products {
			for _, variant := range product.Variants {
				item := externalVariantToItem(shop, product, variant)
				if err := s.inventoryRepo.Upsert(ctx, item); err != nil {
					s.logger.WithFields(logrus.Fields{
						"shopDomain": shopDomain,
						"variantId":  variant.ID,
					}).WithError(err).Error("variant upsert failed")
					continue
				}
				s.maybeAlert(ctx, item)
				synced++
			}
		}

		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}

	s.logger.WithFields(logrus.Fields{
		"shopDomain": shopDomain,
		"synced":     synced,
	}).Info("inventory sync complete")

	if s.audit != nil {
		_ = s.audit.LogInventorySync(ctx, shopDomain, synced)
	}

	return synced, nil
}

// webhookProduct mirrors the products/create and products/update payloads
type webhookProduct struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Vendor   string `json:"vendor"`
	Status   string `json:"status"`
	Variants []struct {
		ID                int64   `json:"id"`
		Title             string  `json:"title"`
		SKU               string  `json:"sku"`
		Price             string  `json:"price"`
		CompareAtPrice    *string `json:"compare_at_price"`
		InventoryQuantity int     `json:"inventory_quantity"`
	} `json:"variants"`
}

// ApplyProductWebhook upserts the variants carried by a product webhook
func (s *InventoryService) ApplyProductWebhook(ctx context.Context, shopDomain string, payload []byte) error {
	var product webhookProduct
	if err := json.Unmarshal(payload, &product); err != nil {
		return fmt.Errorf("failed to parse product webhook: %w", err)
	}

	shop, err := s.shopRepo.GetByDomain(ctx, shopDomain)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: shop %s is not installed", ErrNotFound, shopDomain)
		}
		return fmt.Errorf("failed to load shop: %w", err)
	}

	for _, v := range product.Variants {
		external := clients.ExternalVariant{
			ID:                v.ID,
			ProductID:         product.ID,
			Title:             v.Title,
			SKU:               v.SKU,
			InventoryQuantity: v.InventoryQuantity,
		}
		external.Price, _ = strconv.ParseFloat(v.Price, 64)
		if v.CompareAtPrice != nil && *v.CompareAtPrice != "" {
			compareAt, _ := strconv.ParseFloat(*v.CompareAtPrice, 64)
			external.CompareAtPrice = &compareAt
		}

		item := externalVariantToItem(shop, clients.ExternalProduct{
			ID:     product.ID,
			Title:  product.Title,
			Vendor: product.Vendor,
			Status: product.Status,
		}, external)
		if err := s.inventoryRepo.Upsert(ctx, item); err != nil {
			return fmt.Errorf("failed to upsert variant %d: %w", v.ID, err)
		}
		s.maybeAlert(ctx, item)
	}

	return nil
}

// maybeAlert records a stock alert when an item sits at or below its
// threshold after an update.
func (s *InventoryService) maybeAlert(ctx context.Context, item *models.InventoryItem) {
	if !item.IsLowStock() {
		return
	}

	alertType := models.AlertLowStock
	message := fmt.Sprintf("%s is low on stock: %d remaining (threshold %d)",
		item.Title, *item.InventoryQuantity, *item.LowStockThreshold)
	if *item.InventoryQuantity <= 0 {
		alertType = models.AlertOutOfStock
		message = fmt.Sprintf("%s is out of stock", item.Title)
	}

	alert := &models.InventoryAlert{
		ShopDomain:      item.ShopDomain,
		InventoryItemID: item.ID,
		AlertType:       alertType,
		Message:         message,
	}
	if err := s.inventoryRepo.CreateAlert(ctx, alert); err != nil {
		s.logger.WithField("itemId", item.ID).WithError(err).Warn("failed to record stock alert")
	}
}

// UpdatePricesRequest changes one item's prices, remotely and locally
type UpdatePricesRequest struct {
	Price               *float64 `json:"price,omitempty"`
	CompareAtPrice      *float64 `json:"compareAtPrice,omitempty"`
	ClearCompareAtPrice bool     `json:"clearCompareAtPrice,omitempty"`
}

// UpdateItemPrices pushes a single item's price change upstream, then
// mirrors it locally.
func (s *InventoryService) UpdateItemPrices(ctx context.Context, shopDomain string, id uuid.UUID, req *UpdatePricesRequest) (*models.InventoryItem, error) {
	if req.Price == nil && req.CompareAtPrice == nil && !req.ClearCompareAtPrice {
		return nil, fmt.Errorf("%w: no price fields to update", ErrInvalidCampaign)
	}

	shop, err := s.shopRepo.GetByDomain(ctx, shopDomain)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: shop %s is not installed", ErrNotFound, shopDomain)
		}
		return nil, fmt.Errorf("failed to load shop: %w", err)
	}

	item, err := s.inventoryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: inventory item %s", ErrNotFound, id)
		}
		return nil, err
	}
	if item.ShopDomain != shopDomain {
		return nil, fmt.Errorf("%w: inventory item %s", ErrNotFound, id)
	}
	if item.ShopifyVariantID == nil {
		return nil, fmt.Errorf("%w: item has no variant mapping", ErrInvalidCampaign)
	}

	update := clients.VariantPriceUpdate{Price: roundPtr(req.Price)}
	if req.ClearCompareAtPrice {
		update.SetCompareAt = true
	} else if req.CompareAtPrice != nil {
		update.CompareAtPrice = roundPtr(req.CompareAtPrice)
		update.SetCompareAt = true
	}

	client := s.clientFor(shop)
	if err := client.UpdateVariantPrice(ctx, *item.ShopifyVariantID, update); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	oldValues := models.JSONB{"price": item.Price, "compareAtPrice": item.CompareAtPrice}

	fields := map[string]interface{}{}
	if req.Price != nil {
		fields["price"] = roundPtr(req.Price)
	}
	if req.ClearCompareAtPrice {
		fields["compare_at_price"] = nil
	} else if req.CompareAtPrice != nil {
		fields["compare_at_price"] = roundPtr(req.CompareAtPrice)
	}
	if err := s.inventoryRepo.UpdatePrices(ctx, item.ID, fields); err != nil {
		return nil, fmt.Errorf("failed to mirror price update: %w", err)
	}

	updated, err := s.inventoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		newValues := models.JSONB{"price": updated.Price, "compareAtPrice": updated.CompareAtPrice}
		_ = s.audit.LogPriceUpdate(ctx, shopDomain, item.ID, oldValues, newValues)
	}

	return updated, nil
}

// UpdateThreshold sets or clears an item's low-stock threshold
func (s *InventoryService) UpdateThreshold(ctx context.Context, shopDomain string, id uuid.UUID, threshold *int) error {
	item, err := s.inventoryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: inventory item %s", ErrNotFound, id)
		}
		return err
	}

	if err := s.inventoryRepo.UpdateThreshold(ctx, shopDomain, id, threshold); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: inventory item %s", ErrNotFound, id)
		}
		return err
	}

	if s.audit != nil {
		_ = s.audit.LogThresholdUpdate(ctx, shopDomain, id, item.LowStockThreshold, threshold)
	}
	return nil
}

// List returns a shop's inventory items with pagination
func (s *InventoryService) List(ctx context.Context, shopDomain string, opts repository.ListOptions) ([]models.InventoryItem, int64, error) {
	return s.inventoryRepo.ListByShop(ctx, shopDomain, opts)
}

// ListLowStock returns items at or below their threshold
func (s *InventoryService) ListLowStock(ctx context.Context, shopDomain string) ([]models.InventoryItem, error) {
	return s.inventoryRepo.ListLowStock(ctx, shopDomain)
}

// ListAlerts returns a shop's stock alerts, newest first
func (s *InventoryService) ListAlerts(ctx context.Context, shopDomain string, opts repository.ListOptions) ([]models.InventoryAlert, int64, error) {
	return s.inventoryRepo.ListAlerts(ctx, shopDomain, opts)
}

// externalVariantToItem maps one remote variant onto the local mirror row.
// The display title carries the variant suffix unless Shopify's placeholder
// default is the only variant.
func externalVariantToItem(shop *models.Shop, product clients.ExternalProduct, variant clients.ExternalVariant) *models.InventoryItem {
	title := product.Title
	if variant.Title != "" && variant.Title != "Default Title" {
		title = fmt.Sprintf("%s - %s", product.Title, variant.Title)
	}

	price := variant.Price
	quantity := variant.InventoryQuantity
	productID := product.ID
	variantID := variant.ID

	item := &models.InventoryItem{
		ShopID:            &shop.ID,
		ShopDomain:        shop.ShopDomain,
		Title:             title,
		Price:             &price,
		CompareAtPrice:    variant.CompareAtPrice,
		InventoryQuantity: &quantity,
		ShopifyProductID:  &productID,
		ShopifyVariantID:  &variantID,
	}
	if variant.SKU != "" {
		sku := variant.SKU
		item.SKU = &sku
	}
	if product.Vendor != "" {
		vendor := product.Vendor
		item.Vendor = &vendor
	}
	if product.Status != "" {
		status := product.Status
		item.Status = &status
	}
	return item
}
