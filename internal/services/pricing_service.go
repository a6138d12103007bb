package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"shopify-pricing-service/internal/clients"
	"shopify-pricing-service/internal/models"
	"shopify-pricing-service/internal/repository"
)

// ClientFactory builds an Admin API client for one shop. Tests substitute
// factories returning mocks.
type ClientFactory func(shop *models.Shop) clients.CommerceClient

// PricingService runs bulk price campaigns: it resolves the target set,
// writes the ledger snapshot, pushes mutations upstream, and reverts
// campaigns from their snapshots.
//
// The ledger write is a strict barrier: no remote mutation happens before
// the action and every item snapshot are durable.
type PricingService struct {
	actions       repository.BulkActionRepositoryInterface
	inventoryRepo repository.InventoryRepositoryInterface
	shopRepo      repository.ShopRepositoryInterface
	resolver      *ScopeResolver
	clientFor     ClientFactory
	audit         *AuditService
	sem           *ShopSemaphore
	logger        *logrus.Logger

	mutationConcurrency int
	mutationTimeout     time.Duration
}

// NewPricingService creates a new pricing service
func NewPricingService(
	actions repository.BulkActionRepositoryInterface,
	inventoryRepo repository.InventoryRepositoryInterface,
	shopRepo repository.ShopRepositoryInterface,
	resolver *ScopeResolver,
	clientFor ClientFactory,
	audit *AuditService,
	sem *ShopSemaphore,
	logger *logrus.Logger,
	mutationConcurrency int,
	mutationTimeout time.Duration,
) *PricingService {
	if mutationConcurrency <= 0 {
		mutationConcurrency = 4
	}
	if mutationTimeout <= 0 {
		mutationTimeout = 15 * time.Second
	}
	return &PricingService{
		actions:             actions,
		inventoryRepo:       inventoryRepo,
		shopRepo:            shopRepo,
		resolver:            resolver,
		clientFor:           clientFor,
		audit:               audit,
		sem:                 sem,
		logger:              logger,
		mutationConcurrency: mutationConcurrency,
		mutationTimeout:     mutationTimeout,
	}
}

// UniformCampaignRequest applies the same target prices to selected items
type UniformCampaignRequest struct {
	ActionName      string      `json:"actionName" binding:"required"`
	ProductIDs      []uuid.UUID `json:"productIds" binding:"required,min=1"`
	NewPrice        *float64    `json:"newPrice,omitempty"`
	NewComparePrice *float64    `json:"newComparePrice,omitempty"`
	CreatedBy       *string     `json:"createdBy,omitempty"`
}

// CalculatedUpdate carries one item's precomputed target prices
type CalculatedUpdate struct {
	ID                uuid.UUID `json:"id" binding:"required"`
	NewPrice          *float64  `json:"newPrice,omitempty"`
	NewCompareAtPrice *float64  `json:"newCompareAtPrice,omitempty"`
}

// CalculatedCampaignRequest applies per-item precomputed targets
type CalculatedCampaignRequest struct {
	ActionName string             `json:"actionName" binding:"required"`
	Updates    []CalculatedUpdate `json:"priceUpdates" binding:"required,min=1,dive"`
	CreatedBy  *string            `json:"createdBy,omitempty"`
}

// RuleCampaignRequest derives targets from an adjustment rule over a scope
type RuleCampaignRequest struct {
	ActionName string                `json:"actionName" binding:"required"`
	Scope      models.ScopeSpec      `json:"scope" binding:"required"`
	Rule       models.AdjustmentRule `json:"rule" binding:"required"`
	CreatedBy  *string               `json:"createdBy,omitempty"`
}

// ItemFailure describes one item whose remote mutation failed
type ItemFailure struct {
	InventoryItemID uuid.UUID `json:"inventoryItemId"`
	VariantID       *int64    `json:"variantId,omitempty"`
	Error           string    `json:"error"`
}

// CampaignResult reports the outcome of applying or reverting a campaign.
// Failed items keep their ledger snapshot, a later revert restores whatever
// state they are actually in.
type CampaignResult struct {
	Action    *models.BulkAction `json:"action"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
	Skipped   int                `json:"skipped"`
	Failures  []ItemFailure      `json:"failures,omitempty"`
}

// itemTarget pairs an inventory item with the price fields a campaign sets
type itemTarget struct {
	item       models.InventoryItem
	newPrice   *float64
	newCompare *float64
	setPrice   bool
	setCompare bool
}

func (t itemTarget) touchesAnything() bool {
	return t.setPrice || t.setCompare
}

// ApplyUniformCampaign runs a campaign that writes the same price and/or
// compare-at price to every selected item.
func (s *PricingService) ApplyUniformCampaign(ctx context.Context, shopDomain string, req *UniformCampaignRequest) (*CampaignResult, error) {
	if req.NewPrice == nil && req.NewComparePrice == nil {
		return nil, fmt.Errorf("%w: at least one price is required", ErrInvalidCampaign)
	}

	shop, client, err := s.shopClient(ctx, shopDomain)
	if err != nil {
		return nil, err
	}

	items, err := s.inventoryRepo.GetByIDs(ctx, shopDomain, req.ProductIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}

	targets := make([]itemTarget, 0, len(items))
	for _, item := range items {
		targets = append(targets, itemTarget{
			item:       item,
			newPrice:   roundPtr(req.NewPrice),
			newCompare: roundPtr(req.NewComparePrice),
			setPrice:   req.NewPrice != nil,
			setCompare: req.NewComparePrice != nil,
		})
	}

	action := &models.BulkAction{
		ShopID:            &shop.ID,
		ShopDomain:        shopDomain,
		ActionName:        strings.TrimSpace(req.ActionName),
		ActionType:        models.ActionTypeUniform,
		NewPrice:          roundPtr(req.NewPrice),
		NewCompareAtPrice: roundPtr(req.NewComparePrice),
		CreatedBy:         req.CreatedBy,
	}
	return s.execute(ctx, shopDomain, client, action, targets)
}

// ApplyCalculatedCampaign runs a campaign with per-item precomputed targets.
// Updates referencing unknown items are dropped.
func (s *PricingService) ApplyCalculatedCampaign(ctx context.Context, shopDomain string, req *CalculatedCampaignRequest) (*CampaignResult, error) {
	shop, client, err := s.shopClient(ctx, shopDomain)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(req.Updates))
	updateByID := make(map[uuid.UUID]CalculatedUpdate, len(req.Updates))
	for _, u := range req.Updates {
		ids = append(ids, u.ID)
		updateByID[u.ID] = u
	}

	items, err := s.inventoryRepo.GetByIDs(ctx, shopDomain, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}

	targets := make([]itemTarget, 0, len(items))
	for _, item := range items {
		u := updateByID[item.ID]
		if u.NewPrice == nil && u.NewCompareAtPrice == nil {
			continue
		}
		targets = append(targets, itemTarget{
			item:       item,
			newPrice:   roundPtr(u.NewPrice),
			newCompare: roundPtr(u.NewCompareAtPrice),
			setPrice:   u.NewPrice != nil,
			setCompare: u.NewCompareAtPrice != nil,
		})
	}

	action := &models.BulkAction{
		ShopID:     &shop.ID,
		ShopDomain: shopDomain,
		ActionName: strings.TrimSpace(req.ActionName),
		ActionType: models.ActionTypeCalculated,
		CreatedBy:  req.CreatedBy,
	}
	return s.execute(ctx, shopDomain, client, action, targets)
}

// ApplyRuleCampaign resolves a scope, derives each item's targets from the
// adjustment rule, and runs the campaign.
func (s *PricingService) ApplyRuleCampaign(ctx context.Context, shopDomain string, req *RuleCampaignRequest) (*CampaignResult, error) {
	if err := ValidateRule(req.Rule); err != nil {
		return nil, fmt.Errorf("%w: bad adjustment rule", ErrInvalidCampaign)
	}

	shop, client, err := s.shopClient(ctx, shopDomain)
	if err != nil {
		return nil, err
	}

	items, err := s.resolver.Resolve(ctx, shopDomain, client, req.Scope)
	if err != nil {
		return nil, err
	}

	targets := make([]itemTarget, 0, len(items))
	for i := range items {
		newPrice, newCompare := ApplyRule(&items[i], req.Rule)
		// Items without a value for the targeted field have nothing to adjust
		if newPrice == nil && newCompare == nil {
			continue
		}
		targets = append(targets, itemTarget{
			item:       items[i],
			newPrice:   roundPtr(newPrice),
			newCompare: roundPtr(newCompare),
			setPrice:   newPrice != nil,
			setCompare: newCompare != nil,
		})
	}

	action := &models.BulkAction{
		ShopID:     &shop.ID,
		ShopDomain: shopDomain,
		ActionName: strings.TrimSpace(req.ActionName),
		ActionType: models.ActionTypeRule,
		CreatedBy:  req.CreatedBy,
	}
	return s.execute(ctx, shopDomain, client, action, targets)
}

// execute writes the ledger and fans the mutations out. Validation happens
// before the ledger write: a rejected campaign leaves no trace.
func (s *PricingService) execute(ctx context.Context, shopDomain string, client clients.CommerceClient, action *models.BulkAction, targets []itemTarget) (*CampaignResult, error) {
	if action.ActionName == "" {
		return nil, fmt.Errorf("%w: action name is required", ErrInvalidCampaign)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: no items in scope", ErrInvalidCampaign)
	}

	release, err := s.sem.Acquire(ctx, shopDomain)
	if err != nil {
		return nil, err
	}
	defer release()

	action.ProductCount = len(targets)

	snapshots := make([]models.BulkActionItem, 0, len(targets))
	for _, t := range targets {
		snapshots = append(snapshots, models.BulkActionItem{
			InventoryItemID:        t.item.ID,
			OriginalPrice:          t.item.Price,
			OriginalCompareAtPrice: t.item.CompareAtPrice,
			NewPrice:               t.newPrice,
			NewCompareAtPrice:      t.newCompare,
		})
	}

	// Snapshot barrier: the ledger must be durable before the first
	// remote mutation.
	if err := s.actions.CreateWithItems(ctx, action, snapshots); err != nil {
		return nil, fmt.Errorf("failed to create bulk action: %w", err)
	}

	result := &CampaignResult{Action: action}
	s.mutate(ctx, client, targets, result, func(t itemTarget) clients.VariantPriceUpdate {
		update := clients.VariantPriceUpdate{}
		if t.setPrice {
			update.Price = t.newPrice
		}
		if t.setCompare {
			update.CompareAtPrice = t.newCompare
			update.SetCompareAt = true
		}
		return update
	}, func(t itemTarget) map[string]interface{} {
		fields := map[string]interface{}{}
		if t.setPrice {
			fields["price"] = t.newPrice
		}
		if t.setCompare {
			fields["compare_at_price"] = t.newCompare
		}
		return fields
	})

	s.logger.WithFields(logrus.Fields{
		"shopDomain": shopDomain,
		"actionId":   action.ID,
		"actionType": action.ActionType,
		"succeeded":  result.Succeeded,
		"failed":     result.Failed,
		"skipped":    result.Skipped,
	}).Info("bulk action applied")

	if s.audit != nil {
		_ = s.audit.LogCampaignApply(ctx, shopDomain, action, result.Succeeded, result.Failed)
	}

	return result, nil
}

// RevertBulkAction restores every item of an action to its snapshot. The
// action is stamped reverted only after all restores succeed, a partial
// failure leaves it revertable so the merchant can retry.
func (s *PricingService) RevertBulkAction(ctx context.Context, shopDomain string, actionID uuid.UUID) (*CampaignResult, error) {
	_, client, err := s.shopClient(ctx, shopDomain)
	if err != nil {
		return nil, err
	}

	action, err := s.actions.GetByID(ctx, shopDomain, actionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: bulk action %s", ErrNotFound, actionID)
		}
		return nil, fmt.Errorf("failed to load bulk action: %w", err)
	}
	if action.IsReverted() {
		return nil, ErrAlreadyReverted
	}

	snapshots, err := s.actions.GetItems(ctx, actionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load action items: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(snapshots))
	for _, snap := range snapshots {
		ids = append(ids, snap.InventoryItemID)
	}
	items, err := s.inventoryRepo.GetByIDs(ctx, shopDomain, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}
	itemByID := make(map[uuid.UUID]models.InventoryItem, len(items))
	for _, item := range items {
		itemByID[item.ID] = item
	}

	release, err := s.sem.Acquire(ctx, shopDomain)
	if err != nil {
		return nil, err
	}
	defer release()

	targets := make([]itemTarget, 0, len(snapshots))
	skippedMissing := 0
	for _, snap := range snapshots {
		item, ok := itemByID[snap.InventoryItemID]
		if !ok {
			// Item deleted since the action ran, nothing to restore
			skippedMissing++
			continue
		}
		targets = append(targets, itemTarget{
			item:       item,
			newPrice:   snap.OriginalPrice,
			newCompare: snap.OriginalCompareAtPrice,
			setPrice:   true,
			setCompare: true,
		})
	}

	result := &CampaignResult{Action: action, Skipped: skippedMissing}
	s.mutate(ctx, client, targets, result, func(t itemTarget) clients.VariantPriceUpdate {
		// The Admin API requires a price, a snapshot without one restores
		// to zero. A nil compare-at snapshot clears the field.
		price := 0.0
		if t.newPrice != nil {
			price = *t.newPrice
		}
		return clients.VariantPriceUpdate{
			Price:          &price,
			CompareAtPrice: t.newCompare,
			SetCompareAt:   true,
		}
	}, func(t itemTarget) map[string]interface{} {
		return map[string]interface{}{
			"price":            t.newPrice,
			"compare_at_price": t.newCompare,
		}
	})

	if result.Failed > 0 {
		s.logger.WithFields(logrus.Fields{
			"shopDomain": shopDomain,
			"actionId":   actionID,
			"failed":     result.Failed,
		}).Warn("revert incomplete, action left revertable")
		return result, fmt.Errorf("%w: %d of %d items failed to restore", ErrUpstreamUnavailable, result.Failed, len(targets))
	}

	// Stamped last so a retried revert after a crash is still possible
	now := time.Now()
	stamped, err := s.actions.MarkReverted(ctx, actionID, now)
	if err != nil {
		return result, fmt.Errorf("failed to mark action reverted: %w", err)
	}
	if !stamped {
		return result, ErrAlreadyReverted
	}
	action.RevertedAt = &now

	s.logger.WithFields(logrus.Fields{
		"shopDomain": shopDomain,
		"actionId":   actionID,
		"restored":   result.Succeeded,
	}).Info("bulk action reverted")

	if s.audit != nil {
		_ = s.audit.LogCampaignRevert(ctx, shopDomain, action, result.Succeeded)
	}

	return result, nil
}

// mutate fans remote price mutations out over a bounded worker pool. Each
// mutation carries its own timeout; a failure is recorded and the batch
// continues. Successful mutations are mirrored into the local item row.
func (s *PricingService) mutate(
	ctx context.Context,
	client clients.CommerceClient,
	targets []itemTarget,
	result *CampaignResult,
	buildUpdate func(itemTarget) clients.VariantPriceUpdate,
	buildLocalFields func(itemTarget) map[string]interface{},
) {
	sem := make(chan struct{}, s.mutationConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, t := range targets {
		if !t.touchesAnything() || t.item.ShopifyVariantID == nil {
			mu.Lock()
			result.Skipped++
			mu.Unlock()
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(t itemTarget) {
			defer wg.Done()
			defer func() { <-sem }()

			mctx, cancel := context.WithTimeout(ctx, s.mutationTimeout)
			defer cancel()

			err := client.UpdateVariantPrice(mctx, *t.item.ShopifyVariantID, buildUpdate(t))
			if err != nil {
				s.logger.WithFields(logrus.Fields{
					"shopDomain": t.item.ShopDomain,
					"itemId":     t.item.ID,
					"variantId":  *t.item.ShopifyVariantID,
				}).WithError(err).Error("variant price mutation failed")

				mu.Lock()
				result.Failed++
				result.Failures = append(result.Failures, ItemFailure{
					InventoryItemID: t.item.ID,
					VariantID:       t.item.ShopifyVariantID,
					Error:           err.Error(),
				})
				mu.Unlock()
				return
			}

			if err := s.inventoryRepo.UpdatePrices(ctx, t.item.ID, buildLocalFields(t)); err != nil {
				s.logger.WithFields(logrus.Fields{
					"itemId": t.item.ID,
				}).WithError(err).Error("local price mirror update failed")
			}

			mu.Lock()
			result.Succeeded++
			mu.Unlock()
		}(t)
	}

	wg.Wait()
}

// ListBulkActions returns a shop's campaigns, newest first
func (s *PricingService) ListBulkActions(ctx context.Context, shopDomain string, opts repository.ListOptions) ([]models.BulkAction, int64, error) {
	return s.actions.List(ctx, shopDomain, opts)
}

// GetBulkAction returns one campaign scoped to the shop
func (s *PricingService) GetBulkAction(ctx context.Context, shopDomain string, id uuid.UUID) (*models.BulkAction, error) {
	action, err := s.actions.GetByID(ctx, shopDomain, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: bulk action %s", ErrNotFound, id)
		}
		return nil, err
	}
	return action, nil
}

// GetBulkActionItems returns the snapshot rows of one campaign
func (s *PricingService) GetBulkActionItems(ctx context.Context, shopDomain string, id uuid.UUID) ([]models.BulkActionItem, error) {
	if _, err := s.GetBulkAction(ctx, shopDomain, id); err != nil {
		return nil, err
	}
	return s.actions.GetItems(ctx, id)
}

// GetCollections lists the shop's collections for scope building
func (s *PricingService) GetCollections(ctx context.Context, shopDomain string) ([]clients.ExternalCollection, error) {
	_, client, err := s.shopClient(ctx, shopDomain)
	if err != nil {
		return nil, err
	}
	collections, err := client.GetCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return collections, nil
}

// GetCollectionItems returns the local items belonging to one collection
func (s *PricingService) GetCollectionItems(ctx context.Context, shopDomain, collectionID string) ([]models.InventoryItem, error) {
	_, client, err := s.shopClient(ctx, shopDomain)
	if err != nil {
		return nil, err
	}
	return s.resolver.resolveCollections(ctx, shopDomain, client, []string{collectionID})
}

func (s *PricingService) shopClient(ctx context.Context, shopDomain string) (*models.Shop, clients.CommerceClient, error) {
	shop, err := s.shopRepo.GetByDomain(ctx, shopDomain)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: shop %s is not installed", ErrNotFound, shopDomain)
		}
		return nil, nil, fmt.Errorf("failed to load shop: %w", err)
	}
	return shop, s.clientFor(shop), nil
}

func roundPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	rounded := RoundPrice(*v)
	return &rounded
}
