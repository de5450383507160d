// End-to-end coverage for the webhook intake path: signature verification,
// topic routing, and the writes each event family performs on the target.
package integration

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channelsync/backend/internal/domain/integration"
	"github.com/channelsync/backend/internal/interfaces/http/handler"
)

func TestWebhookDelivery_ProductLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ts := NewTestServer(t)
	product := ts.Fixtures.SourceProduct(1)

	var internalID string

	t.Run("Create event lands the product on the target", func(t *testing.T) {
		body := ts.Fixtures.ProductWebhookBody(t, product)
		w := ts.WebhookRequest("products/create", "evt-1", body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		resp := DecodeResponse(t, w)
		assert.True(t, resp.Success)
		data := DataObject(t, resp)
		assert.Equal(t, "evt-1", data["event_id"])
		assert.Equal(t, "UPSERTED", data["state"])
		assert.Equal(t, "created", data["action"])

		created, ok := ts.Target.Product(product.ExternalID)
		require.True(t, ok)
		assert.Equal(t, product.Name, created.Name)
		internalID = created.ID
	})

	t.Run("Update event rewrites fields, not identity", func(t *testing.T) {
		product.Name = product.Name + " (Restocked)"
		body := ts.Fixtures.ProductWebhookBody(t, product)
		w := ts.WebhookRequest("products/update", "evt-2", body)
		require.Equal(t, http.StatusOK, w.Code)

		data := DataObject(t, DecodeResponse(t, w))
		assert.Equal(t, "updated", data["action"])

		updated, ok := ts.Target.Product(product.ExternalID)
		require.True(t, ok)
		assert.Equal(t, product.Name, updated.Name)
		assert.Equal(t, internalID, updated.ID)
	})

	t.Run("Delete event removes the product", func(t *testing.T) {
		body := ts.Fixtures.DeleteWebhookBody(t, product.ExternalID)
		w := ts.WebhookRequest("products/delete", "evt-3", body)
		require.Equal(t, http.StatusOK, w.Code)

		data := DataObject(t, DecodeResponse(t, w))
		assert.Equal(t, "DELETED", data["state"])
		assert.Equal(t, "deleted", data["action"])

		_, ok := ts.Target.Product(product.ExternalID)
		assert.False(t, ok)
	})

	t.Run("Redelivered delete acknowledges without a write", func(t *testing.T) {
		body := ts.Fixtures.DeleteWebhookBody(t, product.ExternalID)
		w := ts.WebhookRequest("products/delete", "evt-4", body)
		require.Equal(t, http.StatusOK, w.Code)

		data := DataObject(t, DecodeResponse(t, w))
		assert.Equal(t, "DELETED", data["state"])
		assert.Equal(t, "skipped", data["action"])
		assert.Equal(t, "Product not found", data["message"])
	})
}

func TestWebhookDelivery_Orders(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ts := NewTestServer(t)
	order := ts.Fixtures.SourceOrder(2)
	order.FinancialStatus = integration.SourceOrderStatusPaid

	body := ts.Fixtures.OrderWebhookBody(t, order)

	w := ts.WebhookRequest("orders/create", "evt-10", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := DataObject(t, DecodeResponse(t, w))
	assert.Equal(t, "UPSERTED", data["state"])
	assert.Equal(t, "create", data["action"])

	orders := ts.Target.Orders()
	require.Contains(t, orders, order.ExternalID)
	assert.Equal(t, integration.TargetOrderStatusPaid, orders[order.ExternalID].Status)

	// Redelivery of the same payload needs no second write
	w = ts.WebhookRequest("orders/create", "evt-11", body)
	require.Equal(t, http.StatusOK, w.Code)
	data = DataObject(t, DecodeResponse(t, w))
	assert.Equal(t, "skip", data["action"])

	// A status change rides in on orders/updated
	order.FinancialStatus = integration.SourceOrderStatusRefunded
	w = ts.WebhookRequest("orders/updated", "evt-12", ts.Fixtures.OrderWebhookBody(t, order))
	require.Equal(t, http.StatusOK, w.Code)
	data = DataObject(t, DecodeResponse(t, w))
	assert.Equal(t, "update", data["action"])

	orders = ts.Target.Orders()
	assert.Equal(t, integration.TargetOrderStatusRefunded, orders[order.ExternalID].Status)
}

func TestWebhookDelivery_Inventory(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ts := NewTestServer(t)

	product := ts.Fixtures.SourceProduct(1)
	product.Variants[0].InventoryQuantity = 12
	sku := product.Variants[0].SKU

	w := ts.WebhookRequest("products/create", "evt-20", ts.Fixtures.ProductWebhookBody(t, product))
	require.Equal(t, http.StatusOK, w.Code)

	t.Run("Lower storefront stock propagates", func(t *testing.T) {
		levels := []integration.InventoryLevel{
			{LocationID: "gid://shopify/Location/1", Available: 3},
			{LocationID: "gid://shopify/Location/2", Available: 4},
		}
		w := ts.WebhookRequest("inventory_levels/update", "evt-21", ts.Fixtures.InventoryWebhookBody(t, sku, levels))
		require.Equal(t, http.StatusOK, w.Code)

		data := DataObject(t, DecodeResponse(t, w))
		assert.Equal(t, "updated", data["action"])

		variant, err := ts.Target.VariantBySKU(context.Background(), sku)
		require.NoError(t, err)
		assert.Equal(t, 7, variant.Quantity)
	})

	t.Run("Higher storefront stock is not propagated", func(t *testing.T) {
		levels := []integration.InventoryLevel{
			{LocationID: "gid://shopify/Location/1", Available: 50},
		}
		w := ts.WebhookRequest("inventory_levels/update", "evt-22", ts.Fixtures.InventoryWebhookBody(t, sku, levels))
		require.Equal(t, http.StatusOK, w.Code)

		data := DataObject(t, DecodeResponse(t, w))
		assert.Equal(t, "skipped", data["action"])

		variant, err := ts.Target.VariantBySKU(context.Background(), sku)
		require.NoError(t, err)
		assert.Equal(t, 7, variant.Quantity)
	})

	t.Run("Unknown SKU is acknowledged and skipped", func(t *testing.T) {
		levels := []integration.InventoryLevel{
			{LocationID: "gid://shopify/Location/1", Available: 1},
		}
		w := ts.WebhookRequest("inventory_levels/update", "evt-23", ts.Fixtures.InventoryWebhookBody(t, "SKU-GHOST", levels))
		require.Equal(t, http.StatusOK, w.Code)

		data := DataObject(t, DecodeResponse(t, w))
		assert.Equal(t, "skipped", data["action"])
	})
}

func TestWebhookDelivery_Intake(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ts := NewTestServer(t)
	body := ts.Fixtures.ProductWebhookBody(t, ts.Fixtures.SourceProduct(1))

	t.Run("Tampered signature is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/shopify", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(handler.ShopifyTopicHeader, "products/create")
		req.Header.Set(handler.ShopifyHmacHeader, SignPayload("wrong-secret", body))

		w := httptest.NewRecorder()
		ts.Engine.ServeHTTP(w, req)

		require.Equal(t, http.StatusUnauthorized, w.Code)
		resp := DecodeResponse(t, w)
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "ERR_WEBHOOK_SIGNATURE", resp.Error.Code)
		assert.Empty(t, ts.Target.Products())
	})

	t.Run("Missing signature is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/shopify", bytes.NewReader(body))
		req.Header.Set(handler.ShopifyTopicHeader, "products/create")

		w := httptest.NewRecorder()
		ts.Engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Unknown topic is acknowledged, not rejected", func(t *testing.T) {
		w := ts.WebhookRequest("customers/create", "evt-30", body)
		require.Equal(t, http.StatusOK, w.Code)

		data := DataObject(t, DecodeResponse(t, w))
		assert.Equal(t, "IGNORED", data["state"])
		assert.Equal(t, "Topic not handled", data["message"])
	})

	t.Run("Topic casing is normalized", func(t *testing.T) {
		w := ts.WebhookRequest("Products/Create", "evt-31", body)
		require.Equal(t, http.StatusOK, w.Code)

		data := DataObject(t, DecodeResponse(t, w))
		assert.Equal(t, "UPSERTED", data["state"])
	})

	t.Run("Missing event id gets one assigned", func(t *testing.T) {
		w := ts.WebhookRequest("products/update", "", body)
		require.Equal(t, http.StatusOK, w.Code)

		data := DataObject(t, DecodeResponse(t, w))
		assert.NotEmpty(t, data["event_id"])
	})

	t.Run("Malformed body errors so the source redelivers", func(t *testing.T) {
		broken := []byte(`{"data": {`)
		w := ts.WebhookRequest("products/create", "evt-32", broken)

		require.Equal(t, http.StatusInternalServerError, w.Code)
		resp := DecodeResponse(t, w)
		assert.False(t, resp.Success)
	})
}
