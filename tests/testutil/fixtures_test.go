package testutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixtures_SourceProduct(t *testing.T) {
	fx := NewFixtures(42)

	p := fx.SourceProduct(3)

	assert.NotEmpty(t, p.ExternalID)
	assert.NotEmpty(t, p.Name)
	assert.Len(t, p.Variants, 3)
	assert.Contains(t, p.Attributes, "tags")
	assert.Contains(t, p.Attributes, "barcode")

	for i, v := range p.Variants {
		assert.NotEmpty(t, v.SKU)
		assert.True(t, v.Price.IsPositive())
		assert.Equal(t, i+1, v.Position)
	}
}

func TestFixtures_SourceProduct_Deterministic(t *testing.T) {
	a := NewFixtures(7).SourceProduct(2)
	b := NewFixtures(7).SourceProduct(2)

	// Same seed yields the same identifiers and faker output
	assert.Equal(t, a.ExternalID, b.ExternalID)
	assert.Equal(t, a.Name, b.Name)
	assert.Equal(t, a.Variants[0].SKU, b.Variants[0].SKU)
	assert.True(t, a.Variants[0].Price.Equal(b.Variants[0].Price))
}

func TestFixtures_SourceProduct_UniqueIDs(t *testing.T) {
	fx := NewFixtures(1)

	a := fx.SourceProduct(1)
	b := fx.SourceProduct(1)

	assert.NotEqual(t, a.ExternalID, b.ExternalID)
	assert.NotEqual(t, a.Variants[0].SKU, b.Variants[0].SKU)
}

func TestFixtures_SourceOrder(t *testing.T) {
	fx := NewFixtures(42)

	o := fx.SourceOrder(2)

	assert.NotEmpty(t, o.ExternalID)
	assert.NotEmpty(t, o.OrderNumber)
	assert.Len(t, o.LineItems, 2)
	require.NotNil(t, o.ShippingAddress)

	// Order total matches the sum of the line totals
	total := o.LineItems[0].LinePrice.Add(o.LineItems[1].LinePrice)
	assert.True(t, o.TotalPrice.Equal(total))
}

func TestFixtures_InventoryItem(t *testing.T) {
	fx := NewFixtures(42)

	item := fx.InventoryItem(3)

	assert.NotEmpty(t, item.SKU)
	require.Len(t, item.Levels, 3)

	sum := 0
	for _, l := range item.Levels {
		assert.NotEmpty(t, l.LocationID)
		sum += l.Available
	}
	assert.Equal(t, sum, item.TotalAvailable())
}

func TestStandardMappings(t *testing.T) {
	mappings := StandardMappings()

	require.NotEmpty(t, mappings)

	sources := make([]string, 0, len(mappings))
	for _, m := range mappings {
		assert.NotEmpty(t, m.SourceField)
		assert.NotEmpty(t, m.TargetField)
		sources = append(sources, m.SourceField)
	}
	assert.Contains(t, sources, "tags")
	assert.Contains(t, sources, "barcode")
}

func TestFixtures_ProductWebhookBody(t *testing.T) {
	fx := NewFixtures(42)
	p := fx.SourceProduct(2)

	body := fx.ProductWebhookBody(t, p)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(body, &envelope))

	data, ok := envelope["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, p.ExternalID, data["id"])
	assert.Equal(t, p.Name, data["name"])

	variants, ok := data["variants"].([]any)
	require.True(t, ok)
	require.Len(t, variants, 2)

	first, ok := variants[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, p.Variants[0].SKU, first["sku"])

	// Prices travel as strings on the wire
	assert.Equal(t, p.Variants[0].Price.String(), first["price"])
}

func TestFixtures_DeleteWebhookBody(t *testing.T) {
	fx := NewFixtures(42)

	body := fx.DeleteWebhookBody(t, "gid://shopify/Product/123")

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(body, &envelope))

	data, ok := envelope["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "gid://shopify/Product/123", data["id"])
}

func TestFixtures_OrderWebhookBody(t *testing.T) {
	fx := NewFixtures(42)
	o := fx.SourceOrder(1)

	body := fx.OrderWebhookBody(t, o)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(body, &envelope))

	data, ok := envelope["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, o.ExternalID, data["id"])
	assert.Equal(t, o.TotalPrice.String(), data["totalPrice"])

	shipping, ok := data["shippingAddress"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, o.ShippingAddress.Region, shipping["province"])
}

func TestFixtures_InventoryWebhookBody(t *testing.T) {
	fx := NewFixtures(42)
	item := fx.InventoryItem(2)

	body := fx.InventoryWebhookBody(t, item.SKU, item.Levels)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(body, &envelope))

	data, ok := envelope["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, item.SKU, data["sku"])

	levels, ok := data["levels"].([]any)
	require.True(t, ok)
	require.Len(t, levels, 2)

	first, ok := levels[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, item.Levels[0].LocationID, first["locationId"])
	assert.Equal(t, float64(item.Levels[0].Available), first["available"])
}
