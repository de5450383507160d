package integration

import (
	"context"
	"time"

	"github.com/channelsync/backend/internal/domain/integration"
	"github.com/stretchr/testify/mock"
)

// MockSourcePlatform is a mock implementation of integration.SourcePlatform
type MockSourcePlatform struct {
	mock.Mock
}

func (m *MockSourcePlatform) Name() string {
	return "source-mock"
}

func (m *MockSourcePlatform) ListProducts(ctx context.Context, cursor string, limit int) (integration.ProductPage, error) {
	args := m.Called(ctx, cursor, limit)
	return args.Get(0).(integration.ProductPage), args.Error(1)
}

func (m *MockSourcePlatform) ListInventory(ctx context.Context, cursor string, limit int) (integration.InventoryPage, error) {
	args := m.Called(ctx, cursor, limit)
	return args.Get(0).(integration.InventoryPage), args.Error(1)
}

func (m *MockSourcePlatform) ListOrders(ctx context.Context, createdAfter time.Time, cursor string, limit int) (integration.OrderPage, error) {
	args := m.Called(ctx, createdAfter, cursor, limit)
	return args.Get(0).(integration.OrderPage), args.Error(1)
}

func (m *MockSourcePlatform) RegisterWebhooks(ctx context.Context, callbackURL string, topics []string) error {
	args := m.Called(ctx, callbackURL, topics)
	return args.Error(0)
}

// MockTargetPlatform is a mock implementation of integration.TargetPlatform
type MockTargetPlatform struct {
	mock.Mock
}

func (m *MockTargetPlatform) Name() string {
	return "target-mock"
}

func (m *MockTargetPlatform) ProductByExternalID(ctx context.Context, externalID string) (*integration.TargetProduct, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.TargetProduct), args.Error(1)
}

func (m *MockTargetPlatform) CreateProduct(ctx context.Context, draft integration.ProductDraft) (*integration.TargetProduct, error) {
	args := m.Called(ctx, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.TargetProduct), args.Error(1)
}

func (m *MockTargetPlatform) UpdateProduct(ctx context.Context, id string, draft integration.ProductDraft) (*integration.TargetProduct, error) {
	args := m.Called(ctx, id, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.TargetProduct), args.Error(1)
}

func (m *MockTargetPlatform) DeleteProduct(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTargetPlatform) ListInventory(ctx context.Context, cursor string, limit int) (integration.InventoryPage, error) {
	args := m.Called(ctx, cursor, limit)
	return args.Get(0).(integration.InventoryPage), args.Error(1)
}

func (m *MockTargetPlatform) VariantBySKU(ctx context.Context, sku string) (*integration.TargetVariant, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.TargetVariant), args.Error(1)
}

func (m *MockTargetPlatform) UpdateVariantQuantity(ctx context.Context, variantID string, quantity int) error {
	args := m.Called(ctx, variantID, quantity)
	return args.Error(0)
}

func (m *MockTargetPlatform) OrderByExternalID(ctx context.Context, externalID string) (*integration.TargetOrder, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.TargetOrder), args.Error(1)
}

func (m *MockTargetPlatform) CreateOrder(ctx context.Context, draft integration.OrderDraft) (*integration.TargetOrder, error) {
	args := m.Called(ctx, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.TargetOrder), args.Error(1)
}

func (m *MockTargetPlatform) UpdateOrder(ctx context.Context, id string, draft integration.OrderDraft) error {
	args := m.Called(ctx, id, draft)
	return args.Error(0)
}

// MockMappingSource is a mock implementation of integration.MappingSource
type MockMappingSource struct {
	mock.Mock
}

func (m *MockMappingSource) Load(ctx context.Context) ([]integration.AttributeMapping, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.AttributeMapping), args.Error(1)
}

// MockStateStore is a mock implementation of integration.StateStore
type MockStateStore struct {
	mock.Mock
}

func (m *MockStateStore) LastSyncTime(ctx context.Context, flow integration.Flow) (*time.Time, error) {
	args := m.Called(ctx, flow)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *MockStateStore) SetLastSyncTime(ctx context.Context, flow integration.Flow, t time.Time) error {
	args := m.Called(ctx, flow, t)
	return args.Error(0)
}

func (m *MockStateStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// fastRetry keeps test backoffs out of the wall clock.
func fastRetry() integration.RetryPolicy {
	return integration.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}
}

var _ integration.SourcePlatform = (*MockSourcePlatform)(nil)
var _ integration.TargetPlatform = (*MockTargetPlatform)(nil)
var _ integration.MappingSource = (*MockMappingSource)(nil)
var _ integration.StateStore = (*MockStateStore)(nil)
