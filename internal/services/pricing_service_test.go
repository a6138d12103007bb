package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"shopify-pricing-service/internal/clients"
	"shopify-pricing-service/internal/models"
)

type pricingFixture struct {
	actions       *MockBulkActionRepository
	inventoryRepo *MockInventoryRepository
	shopRepo      *MockShopRepository
	client        *MockCommerceClient
	service       *PricingService
}

func newPricingFixture() *pricingFixture {
	f := &pricingFixture{
		actions:       new(MockBulkActionRepository),
		inventoryRepo: new(MockInventoryRepository),
		shopRepo:      new(MockShopRepository),
		client:        new(MockCommerceClient),
	}

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	shop := &models.Shop{ID: uuid.New(), ShopDomain: testShopDomain, AccessToken: "token"}
	f.shopRepo.On("GetByDomain", mock.Anything, testShopDomain).Return(shop, nil).Maybe()

	clientFor := func(*models.Shop) clients.CommerceClient { return f.client }
	resolver := NewScopeResolver(f.inventoryRepo, logger)
	sem := NewShopSemaphore(nil)

	f.service = NewPricingService(
		f.actions, f.inventoryRepo, f.shopRepo, resolver, clientFor,
		nil, sem, logger, 1, time.Second,
	)
	return f
}

func newVariantItem(price, compareAt *float64, variantID int64) models.InventoryItem {
	vid := variantID
	return models.InventoryItem{
		ID:               uuid.New(),
		ShopDomain:       testShopDomain,
		Title:            "Widget",
		Price:            price,
		CompareAtPrice:   compareAt,
		ShopifyVariantID: &vid,
	}
}

func TestApplyUniformCampaign_SnapshotsAndMutates(t *testing.T) {
	f := newPricingFixture()

	item := newVariantItem(floatPtr(10), floatPtr(15), 111)
	f.inventoryRepo.On("GetByIDs", mock.Anything, testShopDomain, []uuid.UUID{item.ID}).
		Return([]models.InventoryItem{item}, nil)

	var snapshots []models.BulkActionItem
	f.actions.On("CreateWithItems", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			snapshots = args.Get(2).([]models.BulkActionItem)
		}).Return(nil)

	f.client.On("UpdateVariantPrice", mock.Anything, int64(111), clients.VariantPriceUpdate{
		Price: floatPtr(12.5),
	}).Return(nil)
	f.inventoryRepo.On("UpdatePrices", mock.Anything, item.ID, mock.Anything).Return(nil)

	result, err := f.service.ApplyUniformCampaign(context.Background(), testShopDomain, &UniformCampaignRequest{
		ActionName: "Summer sale",
		ProductIDs: []uuid.UUID{item.ID},
		NewPrice:   floatPtr(12.5),
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, models.ActionTypeUniform, result.Action.ActionType)
	assert.Equal(t, 1, result.Action.ProductCount)

	// Snapshot must capture the pre-campaign state
	assert.Len(t, snapshots, 1)
	assert.Equal(t, item.ID, snapshots[0].InventoryItemID)
	assert.Equal(t, 10.0, *snapshots[0].OriginalPrice)
	assert.Equal(t, 15.0, *snapshots[0].OriginalCompareAtPrice)
	assert.Equal(t, 12.5, *snapshots[0].NewPrice)
	assert.Nil(t, snapshots[0].NewCompareAtPrice)

	f.actions.AssertExpectations(t)
	f.client.AssertExpectations(t)
}

func TestApplyUniformCampaign_BothPricesNil(t *testing.T) {
	f := newPricingFixture()

	_, err := f.service.ApplyUniformCampaign(context.Background(), testShopDomain, &UniformCampaignRequest{
		ActionName: "Nothing",
		ProductIDs: []uuid.UUID{uuid.New()},
	})

	assert.ErrorIs(t, err, ErrInvalidCampaign)
	f.actions.AssertNotCalled(t, "CreateWithItems", mock.Anything, mock.Anything, mock.Anything)
}

func TestApplyUniformCampaign_EmptyScopeLeavesNoLedgerRow(t *testing.T) {
	f := newPricingFixture()

	unknown := uuid.New()
	f.inventoryRepo.On("GetByIDs", mock.Anything, testShopDomain, []uuid.UUID{unknown}).
		Return([]models.InventoryItem{}, nil)

	_, err := f.service.ApplyUniformCampaign(context.Background(), testShopDomain, &UniformCampaignRequest{
		ActionName: "Ghost",
		ProductIDs: []uuid.UUID{unknown},
		NewPrice:   floatPtr(9.99),
	})

	assert.ErrorIs(t, err, ErrInvalidCampaign)
	f.actions.AssertNotCalled(t, "CreateWithItems", mock.Anything, mock.Anything, mock.Anything)
	f.client.AssertNotCalled(t, "UpdateVariantPrice", mock.Anything, mock.Anything, mock.Anything)
}

func TestApplyUniformCampaign_LedgerFailureBlocksMutations(t *testing.T) {
	f := newPricingFixture()

	item := newVariantItem(floatPtr(10), nil, 111)
	f.inventoryRepo.On("GetByIDs", mock.Anything, testShopDomain, mock.Anything).
		Return([]models.InventoryItem{item}, nil)
	f.actions.On("CreateWithItems", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("db down"))

	_, err := f.service.ApplyUniformCampaign(context.Background(), testShopDomain, &UniformCampaignRequest{
		ActionName: "Sale",
		ProductIDs: []uuid.UUID{item.ID},
		NewPrice:   floatPtr(8),
	})

	assert.Error(t, err)
	f.client.AssertNotCalled(t, "UpdateVariantPrice", mock.Anything, mock.Anything, mock.Anything)
}

func TestApplyUniformCampaign_PartialFailure(t *testing.T) {
	f := newPricingFixture()

	good := newVariantItem(floatPtr(10), nil, 111)
	bad := newVariantItem(floatPtr(20), nil, 222)
	f.inventoryRepo.On("GetByIDs", mock.Anything, testShopDomain, mock.Anything).
		Return([]models.InventoryItem{good, bad}, nil)
	f.actions.On("CreateWithItems", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	f.client.On("UpdateVariantPrice", mock.Anything, int64(111), mock.Anything).Return(nil)
	f.client.On("UpdateVariantPrice", mock.Anything, int64(222), mock.Anything).
		Return(errors.New("429 too many requests"))
	f.inventoryRepo.On("UpdatePrices", mock.Anything, good.ID, mock.Anything).Return(nil)

	result, err := f.service.ApplyUniformCampaign(context.Background(), testShopDomain, &UniformCampaignRequest{
		ActionName: "Sale",
		ProductIDs: []uuid.UUID{good.ID, bad.ID},
		NewPrice:   floatPtr(5),
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Len(t, result.Failures, 1)
	assert.Equal(t, bad.ID, result.Failures[0].InventoryItemID)

	// The failed item keeps its local mirror untouched
	f.inventoryRepo.AssertNotCalled(t, "UpdatePrices", mock.Anything, bad.ID, mock.Anything)
}

func TestApplyRuleCampaign_SkipsItemsWithNothingToAdjust(t *testing.T) {
	f := newPricingFixture()

	// Only compare-at is targeted and the second item has none
	withCompare := newVariantItem(floatPtr(10), floatPtr(20), 111)
	withoutCompare := newVariantItem(floatPtr(10), nil, 222)
	f.inventoryRepo.On("ListAllByShop", mock.Anything, testShopDomain).
		Return([]models.InventoryItem{withCompare, withoutCompare}, nil)

	var snapshots []models.BulkActionItem
	f.actions.On("CreateWithItems", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			snapshots = args.Get(2).([]models.BulkActionItem)
		}).Return(nil)

	f.client.On("UpdateVariantPrice", mock.Anything, int64(111), clients.VariantPriceUpdate{
		CompareAtPrice: floatPtr(22),
		SetCompareAt:   true,
	}).Return(nil)
	f.inventoryRepo.On("UpdatePrices", mock.Anything, withCompare.ID, mock.Anything).Return(nil)

	result, err := f.service.ApplyRuleCampaign(context.Background(), testShopDomain, &RuleCampaignRequest{
		ActionName: "Markup",
		Scope:      models.ScopeSpec{Mode: models.ScopeAll},
		Rule: models.AdjustmentRule{
			Type:      models.AdjustmentPercentage,
			Direction: models.DirectionIncrease,
			Magnitude: 10,
			Target:    models.TargetCompareAtPrice,
		},
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.Len(t, snapshots, 1)
	assert.Equal(t, withCompare.ID, snapshots[0].InventoryItemID)
	f.client.AssertNotCalled(t, "UpdateVariantPrice", mock.Anything, int64(222), mock.Anything)
}

func TestApplyRuleCampaign_RoundsDerivedPrices(t *testing.T) {
	f := newPricingFixture()

	item := newVariantItem(floatPtr(9.99), nil, 111)
	f.inventoryRepo.On("ListAllByShop", mock.Anything, testShopDomain).
		Return([]models.InventoryItem{item}, nil)
	f.actions.On("CreateWithItems", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	// 9.99 * 1.15 = 11.4885, persisted and sent as 11.49
	f.client.On("UpdateVariantPrice", mock.Anything, int64(111), clients.VariantPriceUpdate{
		Price: floatPtr(11.49),
	}).Return(nil)
	f.inventoryRepo.On("UpdatePrices", mock.Anything, item.ID, mock.Anything).Return(nil)

	result, err := f.service.ApplyRuleCampaign(context.Background(), testShopDomain, &RuleCampaignRequest{
		ActionName: "Markup",
		Scope:      models.ScopeSpec{Mode: models.ScopeAll},
		Rule: models.AdjustmentRule{
			Type:      models.AdjustmentPercentage,
			Direction: models.DirectionIncrease,
			Magnitude: 15,
			Target:    models.TargetPrice,
		},
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	f.client.AssertExpectations(t)
}

func TestApplyRuleCampaign_InvalidRule(t *testing.T) {
	f := newPricingFixture()

	_, err := f.service.ApplyRuleCampaign(context.Background(), testShopDomain, &RuleCampaignRequest{
		ActionName: "Bad",
		Scope:      models.ScopeSpec{Mode: models.ScopeAll},
		Rule: models.AdjustmentRule{
			Type:      models.AdjustmentPercentage,
			Direction: models.DirectionDecrease,
			Magnitude: -10,
			Target:    models.TargetPrice,
		},
	})

	assert.ErrorIs(t, err, ErrInvalidCampaign)
	f.actions.AssertNotCalled(t, "CreateWithItems", mock.Anything, mock.Anything, mock.Anything)
}

func TestApplyCalculatedCampaign_DropsUnknownItems(t *testing.T) {
	f := newPricingFixture()

	known := newVariantItem(floatPtr(10), nil, 111)
	unknownID := uuid.New()
	f.inventoryRepo.On("GetByIDs", mock.Anything, testShopDomain, mock.Anything).
		Return([]models.InventoryItem{known}, nil)
	f.actions.On("CreateWithItems", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.client.On("UpdateVariantPrice", mock.Anything, int64(111), mock.Anything).Return(nil)
	f.inventoryRepo.On("UpdatePrices", mock.Anything, known.ID, mock.Anything).Return(nil)

	result, err := f.service.ApplyCalculatedCampaign(context.Background(), testShopDomain, &CalculatedCampaignRequest{
		ActionName: "Spreadsheet import",
		Updates: []CalculatedUpdate{
			{ID: known.ID, NewPrice: floatPtr(12)},
			{ID: unknownID, NewPrice: floatPtr(99)},
		},
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Action.ProductCount)
}

func TestRevertBulkAction_RestoresSnapshots(t *testing.T) {
	f := newPricingFixture()

	item := newVariantItem(floatPtr(12.5), nil, 111)
	actionID := uuid.New()
	action := &models.BulkAction{ID: actionID, ShopDomain: testShopDomain, ActionName: "Sale"}

	f.actions.On("GetByID", mock.Anything, testShopDomain, actionID).Return(action, nil)
	f.actions.On("GetItems", mock.Anything, actionID).Return([]models.BulkActionItem{
		{
			BulkActionID:           actionID,
			InventoryItemID:        item.ID,
			OriginalPrice:          floatPtr(10),
			OriginalCompareAtPrice: floatPtr(15),
			NewPrice:               floatPtr(12.5),
		},
	}, nil)
	f.inventoryRepo.On("GetByIDs", mock.Anything, testShopDomain, []uuid.UUID{item.ID}).
		Return([]models.InventoryItem{item}, nil)

	f.client.On("UpdateVariantPrice", mock.Anything, int64(111), clients.VariantPriceUpdate{
		Price:          floatPtr(10),
		CompareAtPrice: floatPtr(15),
		SetCompareAt:   true,
	}).Return(nil)
	f.inventoryRepo.On("UpdatePrices", mock.Anything, item.ID, mock.Anything).Return(nil)
	f.actions.On("MarkReverted", mock.Anything, actionID, mock.Anything).Return(true, nil)

	result, err := f.service.RevertBulkAction(context.Background(), testShopDomain, actionID)

	assert.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.NotNil(t, result.Action.RevertedAt)
	f.actions.AssertExpectations(t)
	f.client.AssertExpectations(t)
}

func TestRevertBulkAction_NilSnapshotsRestoreZeroAndClear(t *testing.T) {
	f := newPricingFixture()

	item := newVariantItem(floatPtr(12.5), floatPtr(20), 111)
	actionID := uuid.New()
	action := &models.BulkAction{ID: actionID, ShopDomain: testShopDomain, ActionName: "Sale"}

	f.actions.On("GetByID", mock.Anything, testShopDomain, actionID).Return(action, nil)
	// The item had no price and no compare-at before the campaign
	f.actions.On("GetItems", mock.Anything, actionID).Return([]models.BulkActionItem{
		{BulkActionID: actionID, InventoryItemID: item.ID, NewPrice: floatPtr(12.5)},
	}, nil)
	f.inventoryRepo.On("GetByIDs", mock.Anything, testShopDomain, mock.Anything).
		Return([]models.InventoryItem{item}, nil)

	// Price falls back to zero, compare-at is cleared with an explicit null
	f.client.On("UpdateVariantPrice", mock.Anything, int64(111), clients.VariantPriceUpdate{
		Price:        floatPtr(0),
		SetCompareAt: true,
	}).Return(nil)
	f.inventoryRepo.On("UpdatePrices", mock.Anything, item.ID, mock.Anything).Return(nil)
	f.actions.On("MarkReverted", mock.Anything, actionID, mock.Anything).Return(true, nil)

	result, err := f.service.RevertBulkAction(context.Background(), testShopDomain, actionID)

	assert.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	f.client.AssertExpectations(t)
}

func TestRevertBulkAction_AlreadyReverted(t *testing.T) {
	f := newPricingFixture()

	actionID := uuid.New()
	revertedAt := time.Now()
	action := &models.BulkAction{
		ID:         actionID,
		ShopDomain: testShopDomain,
		ActionName: "Sale",
		RevertedAt: &revertedAt,
	}
	f.actions.On("GetByID", mock.Anything, testShopDomain, actionID).Return(action, nil)

	_, err := f.service.RevertBulkAction(context.Background(), testShopDomain, actionID)

	assert.ErrorIs(t, err, ErrAlreadyReverted)
	f.client.AssertNotCalled(t, "UpdateVariantPrice", mock.Anything, mock.Anything, mock.Anything)
}

func TestRevertBulkAction_NotFound(t *testing.T) {
	f := newPricingFixture()

	actionID := uuid.New()
	f.actions.On("GetByID", mock.Anything, testShopDomain, actionID).
		Return(nil, gorm.ErrRecordNotFound)

	_, err := f.service.RevertBulkAction(context.Background(), testShopDomain, actionID)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRevertBulkAction_PartialFailureLeavesActionRevertable(t *testing.T) {
	f := newPricingFixture()

	good := newVariantItem(floatPtr(5), nil, 111)
	bad := newVariantItem(floatPtr(5), nil, 222)
	actionID := uuid.New()
	action := &models.BulkAction{ID: actionID, ShopDomain: testShopDomain, ActionName: "Sale"}

	f.actions.On("GetByID", mock.Anything, testShopDomain, actionID).Return(action, nil)
	f.actions.On("GetItems", mock.Anything, actionID).Return([]models.BulkActionItem{
		{BulkActionID: actionID, InventoryItemID: good.ID, OriginalPrice: floatPtr(10)},
		{BulkActionID: actionID, InventoryItemID: bad.ID, OriginalPrice: floatPtr(20)},
	}, nil)
	f.inventoryRepo.On("GetByIDs", mock.Anything, testShopDomain, mock.Anything).
		Return([]models.InventoryItem{good, bad}, nil)

	f.client.On("UpdateVariantPrice", mock.Anything, int64(111), mock.Anything).Return(nil)
	f.client.On("UpdateVariantPrice", mock.Anything, int64(222), mock.Anything).
		Return(errors.New("503 service unavailable"))
	f.inventoryRepo.On("UpdatePrices", mock.Anything, good.ID, mock.Anything).Return(nil)

	result, err := f.service.RevertBulkAction(context.Background(), testShopDomain, actionID)

	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)

	// The action stays revertable for a retry
	f.actions.AssertNotCalled(t, "MarkReverted", mock.Anything, mock.Anything, mock.Anything)
}

func TestRevertBulkAction_MissingLocalItemSkipped(t *testing.T) {
	f := newPricingFixture()

	actionID := uuid.New()
	action := &models.BulkAction{ID: actionID, ShopDomain: testShopDomain, ActionName: "Sale"}
	deletedItemID := uuid.New()

	f.actions.On("GetByID", mock.Anything, testShopDomain, actionID).Return(action, nil)
	f.actions.On("GetItems", mock.Anything, actionID).Return([]models.BulkActionItem{
		{BulkActionID: actionID, InventoryItemID: deletedItemID, OriginalPrice: floatPtr(10)},
	}, nil)
	f.inventoryRepo.On("GetByIDs", mock.Anything, testShopDomain, mock.Anything).
		Return([]models.InventoryItem{}, nil)
	f.actions.On("MarkReverted", mock.Anything, actionID, mock.Anything).Return(true, nil)

	result, err := f.service.RevertBulkAction(context.Background(), testShopDomain, actionID)

	assert.NoError(t, err)
	assert.Equal(t, 0, result.Succeeded)
	assert.Equal(t, 1, result.Skipped)
	f.client.AssertNotCalled(t, "UpdateVariantPrice", mock.Anything, mock.Anything, mock.Anything)
}

func TestRevertBulkAction_LostStampRace(t *testing.T) {
	f := newPricingFixture()

	item := newVariantItem(floatPtr(12.5), nil, 111)
	actionID := uuid.New()
	action := &models.BulkAction{ID: actionID, ShopDomain: testShopDomain, ActionName: "Sale"}

	f.actions.On("GetByID", mock.Anything, testShopDomain, actionID).Return(action, nil)
	f.actions.On("GetItems", mock.Anything, actionID).Return([]models.BulkActionItem{
		{BulkActionID: actionID, InventoryItemID: item.ID, OriginalPrice: floatPtr(10)},
	}, nil)
	f.inventoryRepo.On("GetByIDs", mock.Anything, testShopDomain, mock.Anything).
		Return([]models.InventoryItem{item}, nil)
	f.client.On("UpdateVariantPrice", mock.Anything, int64(111), mock.Anything).Return(nil)
	f.inventoryRepo.On("UpdatePrices", mock.Anything, item.ID, mock.Anything).Return(nil)
	f.actions.On("MarkReverted", mock.Anything, actionID, mock.Anything).Return(false, nil)

	_, err := f.service.RevertBulkAction(context.Background(), testShopDomain, actionID)

	assert.ErrorIs(t, err, ErrAlreadyReverted)
}

func TestApplyUniformCampaign_ShopNotInstalled(t *testing.T) {
	f := newPricingFixture()

	f.shopRepo.ExpectedCalls = nil
	f.shopRepo.On("GetByDomain", mock.Anything, "ghost.myshopify.com").
		Return(nil, gorm.ErrRecordNotFound)

	_, err := f.service.ApplyUniformCampaign(context.Background(), "ghost.myshopify.com", &UniformCampaignRequest{
		ActionName: "Sale",
		ProductIDs: []uuid.UUID{uuid.New()},
		NewPrice:   floatPtr(1),
	})

	assert.ErrorIs(t, err, ErrNotFound)
}
