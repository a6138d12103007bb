package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"shopify-pricing-service/internal/models"
)

const testShopDomain = "acme-store.myshopify.com"

func newTestItem(title string, vendor *string, productID int64, price float64) models.InventoryItem {
	pid := productID
	return models.InventoryItem{
		ID:               uuid.New(),
		ShopDomain:       testShopDomain,
		Title:            title,
		Vendor:           vendor,
		Price:            floatPtr(price),
		ShopifyProductID: &pid,
	}
}

func newResolver(inventoryRepo *MockInventoryRepository) *ScopeResolver {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewScopeResolver(inventoryRepo, logger)
}

func TestResolve_AllScope(t *testing.T) {
	inventoryRepo := new(MockInventoryRepository)
	items := []models.InventoryItem{
		newTestItem("Widget", nil, 1, 10),
		newTestItem("Gadget", nil, 2, 20),
	}
	inventoryRepo.On("ListAllByShop", mock.Anything, testShopDomain).Return(items, nil)

	resolved, err := newResolver(inventoryRepo).Resolve(context.Background(), testShopDomain, nil, models.ScopeSpec{
		Mode: models.ScopeAll,
	})

	assert.NoError(t, err)
	assert.Len(t, resolved, 2)
	inventoryRepo.AssertExpectations(t)
}

func TestResolve_ExplicitScope(t *testing.T) {
	inventoryRepo := new(MockInventoryRepository)
	item := newTestItem("Widget", nil, 1, 10)
	ids := []uuid.UUID{item.ID, uuid.New()}

	// The unknown second ID is silently absent from the result
	inventoryRepo.On("GetByIDs", mock.Anything, testShopDomain, ids).
		Return([]models.InventoryItem{item}, nil)

	resolved, err := newResolver(inventoryRepo).Resolve(context.Background(), testShopDomain, nil, models.ScopeSpec{
		Mode:    models.ScopeExplicit,
		ItemIDs: ids,
	})

	assert.NoError(t, err)
	assert.Len(t, resolved, 1)
	assert.Equal(t, item.ID, resolved[0].ID)
}

func TestResolve_ExplicitScopeWithoutIDs(t *testing.T) {
	inventoryRepo := new(MockInventoryRepository)

	_, err := newResolver(inventoryRepo).Resolve(context.Background(), testShopDomain, nil, models.ScopeSpec{
		Mode: models.ScopeExplicit,
	})

	assert.ErrorIs(t, err, ErrInvalidCampaign)
}

func TestResolve_CollectionScope_Union(t *testing.T) {
	inventoryRepo := new(MockInventoryRepository)
	client := new(MockCommerceClient)

	itemA := newTestItem("Widget", nil, 100, 10)
	itemB := newTestItem("Gadget", nil, 200, 20)

	// Product 100 belongs to both collections, the union must not double it
	client.On("GetCollectionProductIDs", mock.Anything, "col-1").Return([]int64{100}, nil)
	client.On("GetCollectionProductIDs", mock.Anything, "col-2").Return([]int64{100, 200}, nil)
	inventoryRepo.On("ListByProductIDs", mock.Anything, testShopDomain, mock.MatchedBy(func(ids []int64) bool {
		return len(ids) == 2
	})).Return([]models.InventoryItem{itemA, itemB}, nil)

	resolved, err := newResolver(inventoryRepo).Resolve(context.Background(), testShopDomain, client, models.ScopeSpec{
		Mode:          models.ScopeCollection,
		CollectionIDs: []string{"col-1", "col-2"},
	})

	assert.NoError(t, err)
	assert.Len(t, resolved, 2)
	client.AssertExpectations(t)
}

func TestResolve_CollectionScope_UpstreamFailureAborts(t *testing.T) {
	inventoryRepo := new(MockInventoryRepository)
	client := new(MockCommerceClient)

	client.On("GetCollectionProductIDs", mock.Anything, "col-1").
		Return(nil, errors.New("rate limited"))

	_, err := newResolver(inventoryRepo).Resolve(context.Background(), testShopDomain, client, models.ScopeSpec{
		Mode:          models.ScopeCollection,
		CollectionIDs: []string{"col-1"},
	})

	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	inventoryRepo.AssertNotCalled(t, "ListByProductIDs", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolve_VendorScope(t *testing.T) {
	inventoryRepo := new(MockInventoryRepository)
	acme := "Acme"
	items := []models.InventoryItem{
		newTestItem("Acme - Widget", &acme, 1, 10),
		newTestItem("Other - Gadget", nil, 2, 20),
		// No vendor column, the title prefix convention still matches
		newTestItem("Acme - Bolt", nil, 3, 5),
	}
	inventoryRepo.On("ListAllByShop", mock.Anything, testShopDomain).Return(items, nil)

	resolved, err := newResolver(inventoryRepo).Resolve(context.Background(), testShopDomain, nil, models.ScopeSpec{
		Mode:   models.ScopeVendor,
		Vendor: "Acme",
	})

	assert.NoError(t, err)
	assert.Len(t, resolved, 2)
}

func TestResolve_VendorScope_CaseSensitive(t *testing.T) {
	inventoryRepo := new(MockInventoryRepository)
	acme := "Acme"
	items := []models.InventoryItem{
		newTestItem("Acme - Widget", &acme, 1, 10),
	}
	inventoryRepo.On("ListAllByShop", mock.Anything, testShopDomain).Return(items, nil)

	resolved, err := newResolver(inventoryRepo).Resolve(context.Background(), testShopDomain, nil, models.ScopeSpec{
		Mode:   models.ScopeVendor,
		Vendor: "acme",
	})

	assert.NoError(t, err)
	assert.Empty(t, resolved)
}

func TestResolve_UnknownMode(t *testing.T) {
	inventoryRepo := new(MockInventoryRepository)

	_, err := newResolver(inventoryRepo).Resolve(context.Background(), testShopDomain, nil, models.ScopeSpec{
		Mode: "category",
	})

	assert.ErrorIs(t, err, ErrInvalidCampaign)
}
