// End-to-end coverage for the three bulk flows, driven through the manual
// trigger endpoints.
package integration

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channelsync/backend/internal/domain/integration"
)

func TestProductImportFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ts := NewTestServer(t)

	// Five products across a page size of two exercises the cursor loop
	products := make([]integration.Product, 5)
	for i := range products {
		products[i] = ts.Fixtures.SourceProduct(2)
	}
	ts.Source.SetProducts(products)

	t.Run("Initial import creates every product", func(t *testing.T) {
		w := ts.Request(http.MethodPost, "/api/v1/sync/products/run", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		resp := DecodeResponse(t, w)
		assert.True(t, resp.Success)

		result := RunResult(t, resp)
		assert.Equal(t, "SUCCESS", result["status"])
		assert.Equal(t, float64(5), result["total_count"])
		assert.Equal(t, float64(5), result["created_count"])
		assert.Len(t, ts.Target.Products(), 5)
	})

	t.Run("Variant quantities carry into the target", func(t *testing.T) {
		created, ok := ts.Target.Product(products[0].ExternalID)
		require.True(t, ok)
		require.Len(t, created.Variants, 2)
		assert.Equal(t, products[0].Variants[0].SKU, created.Variants[0].SKU)
		assert.Equal(t, products[0].Variants[0].InventoryQuantity, created.Variants[0].Quantity)
	})

	t.Run("Second pass updates instead of duplicating", func(t *testing.T) {
		w := ts.Request(http.MethodPost, "/api/v1/sync/products/run", nil)
		require.Equal(t, http.StatusOK, w.Code)

		result := RunResult(t, DecodeResponse(t, w))
		assert.Equal(t, "SUCCESS", result["status"])
		assert.Equal(t, float64(0), result["created_count"])
		assert.Equal(t, float64(5), result["updated_count"])
		assert.Len(t, ts.Target.Products(), 5)
	})
}

func TestProductImportFlow_PartialFailure(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ts := NewTestServer(t)

	products := []integration.Product{
		ts.Fixtures.SourceProduct(1),
		ts.Fixtures.SourceProduct(1),
		ts.Fixtures.SourceProduct(1),
	}
	ts.Source.SetProducts(products[:1])

	w := ts.Request(http.MethodPost, "/api/v1/sync/products/run", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// The two new products fail to create; the existing one still updates
	ts.Source.SetProducts(products)
	ts.Target.SetError("createProduct", errors.New("marketplace draft rejected"))

	w = ts.Request(http.MethodPost, "/api/v1/sync/products/run", nil)
	require.Equal(t, http.StatusOK, w.Code)

	result := RunResult(t, DecodeResponse(t, w))
	assert.Equal(t, "PARTIAL", result["status"])
	assert.Equal(t, float64(1), result["updated_count"])
	assert.Equal(t, float64(2), result["failed_count"])

	failed, ok := result["failed_items"].([]interface{})
	require.True(t, ok)
	assert.Len(t, failed, 2)
	first, ok := failed[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, products[1].ExternalID, first["item_id"])
	assert.Equal(t, "SYNC_FAILED", first["error_code"])

	// Once the platform recovers, the next pass heals the catalog
	ts.Target.SetError("createProduct", nil)

	w = ts.Request(http.MethodPost, "/api/v1/sync/products/run", nil)
	require.Equal(t, http.StatusOK, w.Code)

	result = RunResult(t, DecodeResponse(t, w))
	assert.Equal(t, "SUCCESS", result["status"])
	assert.Len(t, ts.Target.Products(), 3)
}

func TestInventorySyncFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ts := NewTestServer(t)

	product := ts.Fixtures.SourceProduct(2)
	product.Variants[0].InventoryQuantity = 10
	product.Variants[1].InventoryQuantity = 5
	ts.Source.SetProducts([]integration.Product{product})

	w := ts.Request(http.MethodPost, "/api/v1/sync/products/run", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Variant one dropped to 4 on the storefront; variant two rose to 9,
	// which the lower-wins rule must not propagate upward.
	ts.Source.SetInventory([]integration.InventoryItem{
		{
			SKU:       product.Variants[0].SKU,
			VariantID: product.Variants[0].ExternalID,
			Levels: []integration.InventoryLevel{
				{LocationID: "gid://shopify/Location/1", Available: 1},
				{LocationID: "gid://shopify/Location/2", Available: 3},
			},
		},
		{
			SKU:       product.Variants[1].SKU,
			VariantID: product.Variants[1].ExternalID,
			Levels: []integration.InventoryLevel{
				{LocationID: "gid://shopify/Location/1", Available: 9},
			},
		},
		{
			SKU:       "SKU-GHOST",
			VariantID: "gid://shopify/ProductVariant/0",
			Levels: []integration.InventoryLevel{
				{LocationID: "gid://shopify/Location/1", Available: 2},
			},
		},
	})

	w = ts.Request(http.MethodPost, "/api/v1/sync/inventory/run", nil)
	require.Equal(t, http.StatusOK, w.Code)

	result := RunResult(t, DecodeResponse(t, w))
	assert.Equal(t, "SUCCESS", result["status"])
	assert.Equal(t, float64(1), result["updated_count"])
	assert.Equal(t, float64(1), result["skipped_count"])
	// The SKU the target does not carry stays out of the report entirely
	assert.Equal(t, float64(2), result["total_count"])

	ctx := context.Background()

	lowered, err := ts.Target.VariantBySKU(ctx, product.Variants[0].SKU)
	require.NoError(t, err)
	assert.Equal(t, 4, lowered.Quantity)

	untouched, err := ts.Target.VariantBySKU(ctx, product.Variants[1].SKU)
	require.NoError(t, err)
	assert.Equal(t, 5, untouched.Quantity)
}

func TestOrderSyncFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ts := NewTestServer(t)
	now := time.Now().UTC()

	paid := ts.Fixtures.SourceOrder(1)
	paid.FinancialStatus = integration.SourceOrderStatusPaid
	paid.CreatedAt = now.Add(-2 * time.Hour)

	pending := ts.Fixtures.SourceOrder(2)
	pending.FinancialStatus = integration.SourceOrderStatusPending
	pending.CreatedAt = now.Add(-1 * time.Hour)

	ts.Source.SetOrders([]integration.Order{paid, pending})

	t.Run("Initial pass creates both orders", func(t *testing.T) {
		w := ts.Request(http.MethodPost, "/api/v1/sync/orders/run", nil)
		require.Equal(t, http.StatusOK, w.Code)

		result := RunResult(t, DecodeResponse(t, w))
		assert.Equal(t, "SUCCESS", result["status"])
		assert.Equal(t, float64(2), result["created_count"])

		orders := ts.Target.Orders()
		require.Len(t, orders, 2)
		assert.Equal(t, integration.TargetOrderStatusPaid, orders[paid.ExternalID].Status)
		assert.Equal(t, integration.TargetOrderStatusPending, orders[pending.ExternalID].Status)
	})

	t.Run("Advanced cursor narrows the next window", func(t *testing.T) {
		w := ts.Request(http.MethodPost, "/api/v1/sync/orders/run", nil)
		require.Equal(t, http.StatusOK, w.Code)

		result := RunResult(t, DecodeResponse(t, w))
		assert.Equal(t, float64(0), result["total_count"])
	})

	t.Run("Status change propagates, unchanged redelivery skips", func(t *testing.T) {
		refunded := pending
		refunded.FinancialStatus = integration.SourceOrderStatusRefunded
		refunded.CreatedAt = time.Now().UTC()

		unchanged := paid
		unchanged.CreatedAt = time.Now().UTC()

		ts.Source.AddOrder(refunded)
		ts.Source.AddOrder(unchanged)

		w := ts.Request(http.MethodPost, "/api/v1/sync/orders/run", nil)
		require.Equal(t, http.StatusOK, w.Code)

		result := RunResult(t, DecodeResponse(t, w))
		assert.Equal(t, float64(1), result["updated_count"])
		assert.Equal(t, float64(1), result["skipped_count"])

		orders := ts.Target.Orders()
		assert.Equal(t, integration.TargetOrderStatusRefunded, orders[pending.ExternalID].Status)
		assert.Len(t, orders, 2)
	})
}

func TestOrderSyncFlow_SourceOutage(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ts := NewTestServer(t)
	ts.Source.SetListError(integration.ErrPlatformUnavailable)

	w := ts.Request(http.MethodPost, "/api/v1/sync/orders/run", nil)

	// A flow-level failure surfaces as an upstream error, not a 200
	require.Equal(t, http.StatusBadGateway, w.Code, w.Body.String())
	resp := DecodeResponse(t, w)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ERR_UPSTREAM_UNAVAILABLE", resp.Error.Code)

	// The cursor must not advance past the failed window
	last, err := ts.State.LastSyncTime(context.Background(), integration.FlowOrders)
	require.NoError(t, err)
	assert.Nil(t, last)
}
