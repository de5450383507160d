package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/channelsync/backend/internal/domain/integration"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testLookback        = 15 * time.Minute
	testInitialLookback = 24 * time.Hour
)

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

func TestOrderSyncService_Run_FirstRunUsesInitialLookback(t *testing.T) {
	source := new(MockSourcePlatform)
	target := new(MockTargetPlatform)
	state := new(MockStateStore)

	state.On("LastSyncTime", mock.Anything, integration.FlowOrders).Return(nil, nil)
	source.On("ListOrders", mock.Anything, mock.MatchedBy(func(since time.Time) bool {
		drift := time.Since(since.Add(testInitialLookback))
		return drift >= 0 && drift < 5*time.Second
	}), "", 50).Return(integration.OrderPage{
		Orders: []integration.Order{sourceOrder("ord-1", integration.SourceOrderStatusPaid)},
	}, nil)
	target.On("OrderByExternalID", mock.Anything, "ord-1").
		Return(nil, integration.ErrOrderNotFound)
	target.On("CreateOrder", mock.Anything, mock.MatchedBy(func(d integration.OrderDraft) bool {
		return d.ExternalID == "ord-1" && d.Status == integration.TargetOrderStatusPaid
	})).Return(&integration.TargetOrder{ID: "no-1"}, nil)
	state.On("SetLastSyncTime", mock.Anything, integration.FlowOrders, mock.Anything).Return(nil)

	svc := newOrderService(source, target, state)
	result, err := svc.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, integration.SyncStatusSuccess, result.Status)
	assert.Equal(t, 1, result.CreatedCount)
	source.AssertExpectations(t)
	state.AssertExpectations(t)
}

func TestOrderSyncService_Run_WindowStartsBeforeStoredCursor(t *testing.T) {
	source := new(MockSourcePlatform)
	target := new(MockTargetPlatform)
	state := new(MockStateStore)

	last := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	state.On("LastSyncTime", mock.Anything, integration.FlowOrders).Return(&last, nil)
	source.On("ListOrders", mock.Anything, last.Add(-testLookback), "", 50).
		Return(integration.OrderPage{}, nil)
	state.On("SetLastSyncTime", mock.Anything, integration.FlowOrders, mock.Anything).Return(nil)

	svc := newOrderService(source, target, state)
	result, err := svc.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalCount)
	source.AssertExpectations(t)
}

func TestOrderSyncService_Run_AdvancesCursorToRunStart(t *testing.T) {
	source := new(MockSourcePlatform)
	target := new(MockTargetPlatform)
	state := new(MockStateStore)

	last := time.Now().Add(-time.Hour)
	state.On("LastSyncTime", mock.Anything, integration.FlowOrders).Return(&last, nil)
	source.On("ListOrders", mock.Anything, mock.Anything, "", 50).
		Return(integration.OrderPage{}, nil)
	state.On("SetLastSyncTime", mock.Anything, integration.FlowOrders,
		mock.MatchedBy(func(ts time.Time) bool {
			return ts.After(last)
		})).Return(nil)

	svc := newOrderService(source, target, state)
	_, err := svc.Run(context.Background())

	require.NoError(t, err)
	state.AssertExpectations(t)
}

func TestOrderSyncService_Run_CursorWriteFailureIsNotFatal(t *testing.T) {
	source := new(MockSourcePlatform)
	target := new(MockTargetPlatform)
	state := new(MockStateStore)

	last := time.Now().Add(-time.Hour)
	state.On("LastSyncTime", mock.Anything, integration.FlowOrders).Return(&last, nil)
	source.On("ListOrders", mock.Anything, mock.Anything, "", 50).
		Return(integration.OrderPage{}, nil)
	state.On("SetLastSyncTime", mock.Anything, integration.FlowOrders, mock.Anything).
		Return(errors.New("redis: connection refused"))

	svc := newOrderService(source, target, state)
	result, err := svc.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, integration.SyncStatusSuccess, result.Status)
}

func TestOrderSyncService_Run_CursorReadFailureAborts(t *testing.T) {
	source := new(MockSourcePlatform)
	target := new(MockTargetPlatform)
	state := new(MockStateStore)

	state.On("LastSyncTime", mock.Anything, integration.FlowOrders).
		Return(nil, errors.New("redis: connection refused"))

	svc := newOrderService(source, target, state)
	_, err := svc.Run(context.Background())

	require.Error(t, err)
	source.AssertNotCalled(t, "ListOrders", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderSyncService_Run_ContinuesAfterItemFailure(t *testing.T) {
	source := new(MockSourcePlatform)
	target := new(MockTargetPlatform)
	state := new(MockStateStore)

	last := time.Now().Add(-time.Hour)
	state.On("LastSyncTime", mock.Anything, integration.FlowOrders).Return(&last, nil)
	source.On("ListOrders", mock.Anything, mock.Anything, "", 50).Return(integration.OrderPage{
		Orders: []integration.Order{
			sourceOrder("ord-1", integration.SourceOrderStatusPaid),
			sourceOrder("ord-2", integration.SourceOrderStatusPaid),
		},
	}, nil)
	target.On("OrderByExternalID", mock.Anything, "ord-1").
		Return(nil, integration.ErrOrderNotFound)
	target.On("CreateOrder", mock.Anything, mock.MatchedBy(func(d integration.OrderDraft) bool {
		return d.ExternalID == "ord-1"
	})).Return(nil, &integration.ValidationError{Platform: "nautical", Operation: "orderCreate"})
	target.On("OrderByExternalID", mock.Anything, "ord-2").
		Return(nil, integration.ErrOrderNotFound)
	target.On("CreateOrder", mock.Anything, mock.Anything).
		Return(&integration.TargetOrder{ID: "no-2"}, nil)
	state.On("SetLastSyncTime", mock.Anything, integration.FlowOrders, mock.Anything).Return(nil)

	svc := newOrderService(source, target, state)
	result, err := svc.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, integration.SyncStatusPartial, result.Status)
	assert.Equal(t, 1, result.CreatedCount)
	assert.Equal(t, 1, result.FailedCount)
	require.Len(t, result.FailedItems, 1)
	assert.Equal(t, "ord-1", result.FailedItems[0].ItemID)
}

// ---------------------------------------------------------------------------
// ReconcileOne
// ---------------------------------------------------------------------------

func TestOrderSyncService_ReconcileOne_CreatesAbsentOrder(t *testing.T) {
	target := new(MockTargetPlatform)
	target.On("OrderByExternalID", mock.Anything, "ord-1").
		Return(nil, integration.ErrOrderNotFound)
	target.On("CreateOrder", mock.Anything, mock.Anything).
		Return(&integration.TargetOrder{ID: "no-1"}, nil)

	svc := newOrderService(new(MockSourcePlatform), target, new(MockStateStore))
	action, err := svc.ReconcileOne(context.Background(), sourceOrder("ord-1", integration.SourceOrderStatusPending))

	require.NoError(t, err)
	assert.Equal(t, integration.OrderActionCreate, action)
	target.AssertExpectations(t)
}

func TestOrderSyncService_ReconcileOne_UpdatesStaleStatus(t *testing.T) {
	target := new(MockTargetPlatform)
	target.On("OrderByExternalID", mock.Anything, "ord-1").
		Return(&integration.TargetOrder{ID: "no-1", Status: integration.TargetOrderStatusPending}, nil)
	target.On("UpdateOrder", mock.Anything, "no-1", mock.MatchedBy(func(d integration.OrderDraft) bool {
		return d.Status == integration.TargetOrderStatusPaid
	})).Return(nil)

	svc := newOrderService(new(MockSourcePlatform), target, new(MockStateStore))
	action, err := svc.ReconcileOne(context.Background(), sourceOrder("ord-1", integration.SourceOrderStatusPaid))

	require.NoError(t, err)
	assert.Equal(t, integration.OrderActionUpdate, action)
	target.AssertExpectations(t)
}

func TestOrderSyncService_ReconcileOne_RedeliveryPerformsNoSecondWrite(t *testing.T) {
	target := new(MockTargetPlatform)
	target.On("OrderByExternalID", mock.Anything, "ord-1").
		Return(&integration.TargetOrder{ID: "no-1", Status: integration.TargetOrderStatusPaid}, nil)

	svc := newOrderService(new(MockSourcePlatform), target, new(MockStateStore))
	action, err := svc.ReconcileOne(context.Background(), sourceOrder("ord-1", integration.SourceOrderStatusPaid))

	require.NoError(t, err)
	assert.Equal(t, integration.OrderActionSkip, action)
	target.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
	target.AssertNotCalled(t, "UpdateOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderSyncService_ReconcileOne_LookupFailurePropagates(t *testing.T) {
	target := new(MockTargetPlatform)
	target.On("OrderByExternalID", mock.Anything, "ord-1").
		Return(nil, integration.ErrPlatformUnavailable)

	svc := newOrderService(new(MockSourcePlatform), target, new(MockStateStore))
	action, err := svc.ReconcileOne(context.Background(), sourceOrder("ord-1", integration.SourceOrderStatusPaid))

	require.ErrorIs(t, err, integration.ErrPlatformUnavailable)
	assert.Equal(t, integration.OrderActionSkip, action)
	target.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func newOrderService(source *MockSourcePlatform, target *MockTargetPlatform, state *MockStateStore) *OrderSyncService {
	return NewOrderSyncService(source, target, state, integration.NopMonitor{}, fastRetry(), 0, testLookback, testInitialLookback)
}

func sourceOrder(externalID string, status integration.SourceOrderStatus) integration.Order {
	return integration.Order{
		ExternalID:      externalID,
		OrderNumber:     "#1001",
		CustomerEmail:   "buyer@example.com",
		FinancialStatus: status,
		Currency:        "USD",
		TotalPrice:      decimal.NewFromFloat(21.98),
		LineItems: []integration.OrderLineItem{
			{SKU: "COFFEE-01", VariantID: "sv-1", Name: "Espresso Cups", Quantity: 2, LinePrice: decimal.NewFromFloat(21.98)},
		},
		CreatedAt: time.Now().Add(-time.Hour),
	}
}
