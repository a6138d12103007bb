package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"shopify-pricing-service/internal/clients"
	"shopify-pricing-service/internal/models"
	"shopify-pricing-service/internal/repository"
)

// MockInventoryRepository is a mock implementation of InventoryRepositoryInterface
type MockInventoryRepository struct {
	mock.Mock
}

var _ repository.InventoryRepositoryInterface = (*MockInventoryRepository)(nil)

func (m *MockInventoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InventoryItem), args.Error(1)
}

func (m *MockInventoryRepository) GetByIDs(ctx context.Context, shopDomain string, ids []uuid.UUID) ([]models.InventoryItem, error) {
	args := m.Called(ctx, shopDomain, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.InventoryItem), args.Error(1)
}

func (m *MockInventoryRepository) ListByShop(ctx context.Context, shopDomain string, opts repository.ListOptions) ([]models.InventoryItem, int64, error) {
	args := m.Called(ctx, shopDomain, opts)
	return args.Get(0).([]models.InventoryItem), args.Get(1).(int64), args.Error(2)
}

func (m *MockInventoryRepository) ListAllByShop(ctx context.Context, shopDomain string) ([]models.InventoryItem, error) {
	args := m.Called(ctx, shopDomain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.InventoryItem), args.Error(1)
}

func (m *MockInventoryRepository) ListByProductIDs(ctx context.Context, shopDomain string, productIDs []int64) ([]models.InventoryItem, error) {
	args := m.Called(ctx, shopDomain, productIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.InventoryItem), args.Error(1)
}

func (m *MockInventoryRepository) ListLowStock(ctx context.Context, shopDomain string) ([]models.InventoryItem, error) {
	args := m.Called(ctx, shopDomain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.InventoryItem), args.Error(1)
}

func (m *MockInventoryRepository) Upsert(ctx context.Context, item *models.InventoryItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockInventoryRepository) UpdatePrices(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

func (m *MockInventoryRepository) UpdateThreshold(ctx context.Context, shopDomain string, id uuid.UUID, threshold *int) error {
	args := m.Called(ctx, shopDomain, id, threshold)
	return args.Error(0)
}

func (m *MockInventoryRepository) CreateAlert(ctx context.Context, alert *models.InventoryAlert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func (m *MockInventoryRepository) ListAlerts(ctx context.Context, shopDomain string, opts repository.ListOptions) ([]models.InventoryAlert, int64, error) {
	args := m.Called(ctx, shopDomain, opts)
	return args.Get(0).([]models.InventoryAlert), args.Get(1).(int64), args.Error(2)
}

// MockShopRepository is a mock implementation of ShopRepositoryInterface
type MockShopRepository struct {
	mock.Mock
}

var _ repository.ShopRepositoryInterface = (*MockShopRepository)(nil)

func (m *MockShopRepository) GetByDomain(ctx context.Context, shopDomain string) (*models.Shop, error) {
	args := m.Called(ctx, shopDomain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Shop), args.Error(1)
}

func (m *MockShopRepository) Upsert(ctx context.Context, shop *models.Shop) error {
	args := m.Called(ctx, shop)
	return args.Error(0)
}

func (m *MockShopRepository) CreateOAuthState(ctx context.Context, state *models.OAuthState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *MockShopRepository) ConsumeOAuthState(ctx context.Context, state string) (*models.OAuthState, error) {
	args := m.Called(ctx, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OAuthState), args.Error(1)
}

// MockBulkActionRepository is a mock implementation of BulkActionRepositoryInterface
type MockBulkActionRepository struct {
	mock.Mock
}

var _ repository.BulkActionRepositoryInterface = (*MockBulkActionRepository)(nil)

func (m *MockBulkActionRepository) CreateWithItems(ctx context.Context, action *models.BulkAction, items []models.BulkActionItem) error {
	args := m.Called(ctx, action, items)
	if args.Error(0) == nil && action.ID == uuid.Nil {
		action.ID = uuid.New()
		action.CreatedAt = time.Now()
	}
	return args.Error(0)
}

func (m *MockBulkActionRepository) GetByID(ctx context.Context, shopDomain string, id uuid.UUID) (*models.BulkAction, error) {
	args := m.Called(ctx, shopDomain, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BulkAction), args.Error(1)
}

func (m *MockBulkActionRepository) List(ctx context.Context, shopDomain string, opts repository.ListOptions) ([]models.BulkAction, int64, error) {
	args := m.Called(ctx, shopDomain, opts)
	return args.Get(0).([]models.BulkAction), args.Get(1).(int64), args.Error(2)
}

func (m *MockBulkActionRepository) GetItems(ctx context.Context, actionID uuid.UUID) ([]models.BulkActionItem, error) {
	args := m.Called(ctx, actionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BulkActionItem), args.Error(1)
}

func (m *MockBulkActionRepository) MarkReverted(ctx context.Context, id uuid.UUID, revertedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, revertedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockBulkActionRepository) WithTransaction(ctx context.Context, fn func(txRepo repository.BulkActionRepositoryInterface) error) error {
	return fn(m)
}

// MockCommerceClient is a mock implementation of clients.CommerceClient
type MockCommerceClient struct {
	mock.Mock
}

var _ clients.CommerceClient = (*MockCommerceClient)(nil)

func (m *MockCommerceClient) TestConnection(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockCommerceClient) GetProducts(ctx context.Context, opts *clients.ListOptions) (*clients.ProductsResult, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clients.ProductsResult), args.Error(1)
}

func (m *MockCommerceClient) UpdateVariantPrice(ctx context.Context, variantID int64, update clients.VariantPriceUpdate) error {
	args := m.Called(ctx, variantID, update)
	return args.Error(0)
}

func (m *MockCommerceClient) GetCollections(ctx context.Context) ([]clients.ExternalCollection, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]clients.ExternalCollection), args.Error(1)
}

func (m *MockCommerceClient) GetCollectionProductIDs(ctx context.Context, collectionID string) ([]int64, error) {
	args := m.Called(ctx, collectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockCommerceClient) GetShopInfo(ctx context.Context) (*clients.ShopInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clients.ShopInfo), args.Error(1)
}
