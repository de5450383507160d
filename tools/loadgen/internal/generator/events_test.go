package generator

import (
	"encoding/json"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channelsync/tools/loadgen/internal/pool"
)

func newTestGenerator(t *testing.T) (*Generator, *pool.Pool) {
	t.Helper()

	cfg := pool.DefaultConfig()
	cfg.SweepInterval = 0
	p := pool.New(cfg)
	t.Cleanup(func() { p.Close() })

	g, err := New(7, p, nil)
	require.NoError(t, err)
	return g, p
}

// decodeData unwraps the {"data": ...} envelope.
func decodeData(t *testing.T, body []byte) map[string]any {
	t.Helper()

	var env struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &env))
	require.NotNil(t, env.Data, "delivery body has no data envelope")
	return env.Data
}

func priceCents(t *testing.T, s string) int64 {
	t.Helper()

	parts := strings.SplitN(s, ".", 2)
	require.Len(t, parts, 2, "price %q is not a decimal string", s)
	whole, err := strconv.ParseInt(parts[0], 10, 64)
	require.NoError(t, err)
	frac, err := strconv.ParseInt(parts[1], 10, 64)
	require.NoError(t, err)
	return whole*100 + frac
}

func TestParseMix(t *testing.T) {
	mix, err := ParseMix("products/create:4, orders/create:2")
	require.NoError(t, err)
	require.Len(t, mix, 2)
	assert.Equal(t, TopicWeight{Topic: TopicProductsCreate, Weight: 4}, mix[0])
	assert.Equal(t, TopicWeight{Topic: TopicOrdersCreate, Weight: 2}, mix[1])

	// A bare topic counts as weight 1.
	mix, err = ParseMix("inventory_levels/update")
	require.NoError(t, err)
	require.Len(t, mix, 1)
	assert.Equal(t, 1, mix[0].Weight)

	_, err = ParseMix("customers/create:3")
	assert.ErrorContains(t, err, "unknown topic")

	_, err = ParseMix("products/create:0")
	assert.ErrorContains(t, err, "must be positive")

	_, err = ParseMix("products/create:x")
	assert.ErrorContains(t, err, "invalid weight")

	_, err = ParseMix("")
	assert.ErrorContains(t, err, "no topics")
}

func TestDefaultMixCoversAllTopics(t *testing.T) {
	seen := make(map[string]bool)
	for _, tw := range DefaultMix() {
		assert.Greater(t, tw.Weight, 0)
		seen[tw.Topic] = true
	}
	for _, topic := range AllTopics() {
		assert.True(t, seen[topic], "topic %s missing from default mix", topic)
	}
}

func TestNew_RequiresPool(t *testing.T) {
	_, err := New(0, nil, nil)
	assert.ErrorContains(t, err, "pool is required")
}

func TestProductCreate(t *testing.T) {
	g, p := newTestGenerator(t)

	evt, err := g.ProductCreate()
	require.NoError(t, err)

	assert.Equal(t, TopicProductsCreate, evt.Topic)
	assert.NotEmpty(t, evt.EventID)

	data := decodeData(t, evt.Body)
	id, _ := data["id"].(string)
	assert.True(t, strings.HasPrefix(id, "gid://shopify/Product/"), "id = %q", id)
	assert.NotEmpty(t, data["name"])
	assert.NotEmpty(t, data["vendor"])
	assert.Contains(t, []string{"ACTIVE", "DRAFT"}, data["status"])

	variants, _ := data["variants"].([]any)
	require.NotEmpty(t, variants)
	for i, raw := range variants {
		v := raw.(map[string]any)
		sku, _ := v["sku"].(string)
		assert.True(t, strings.HasPrefix(sku, "SKU-"), "sku = %q", sku)
		assert.Positive(t, priceCents(t, v["price"].(string)))
		assert.Equal(t, float64(i+1), v["position"])
		assert.Contains(t, v, "inventoryQuantity")
	}

	// The new identifiers are available for later traffic.
	assert.Equal(t, 1, p.Count(pool.SemanticTypeProductID))
	assert.Equal(t, len(variants), p.Count(pool.SemanticTypeVariantSKU))
}

func TestProductUpdate_ReusesCreatedID(t *testing.T) {
	g, p := newTestGenerator(t)

	created, err := g.ProductCreate()
	require.NoError(t, err)
	createdID := decodeData(t, created.Body)["id"]

	updated, err := g.ProductUpdate()
	require.NoError(t, err)

	assert.Equal(t, TopicProductsUpdate, updated.Topic)
	assert.Equal(t, createdID, decodeData(t, updated.Body)["id"])

	// The update must not duplicate the id in the pool.
	assert.Equal(t, 1, p.Count(pool.SemanticTypeProductID))
}

func TestProductUpdate_EmptyPoolFallsBack(t *testing.T) {
	g, p := newTestGenerator(t)

	evt, err := g.ProductUpdate()
	require.NoError(t, err)

	id, _ := decodeData(t, evt.Body)["id"].(string)
	assert.True(t, strings.HasPrefix(id, "gid://shopify/Product/"))

	// The fresh id joins the pool so follow-up traffic can reference it.
	assert.Equal(t, 1, p.Count(pool.SemanticTypeProductID))
}

func TestProductDelete_RetiresID(t *testing.T) {
	g, p := newTestGenerator(t)

	created, err := g.ProductCreate()
	require.NoError(t, err)
	createdID := decodeData(t, created.Body)["id"]

	deleted, err := g.ProductDelete()
	require.NoError(t, err)

	assert.Equal(t, TopicProductsDelete, deleted.Topic)
	assert.Equal(t, createdID, decodeData(t, deleted.Body)["id"])

	assert.Equal(t, 0, p.Count(pool.SemanticTypeProductID),
		"deleted id should be retired from the pool")

	// With nothing left to delete the builder makes up an id.
	again, err := g.ProductDelete()
	require.NoError(t, err)
	assert.NotEmpty(t, decodeData(t, again.Body)["id"])
}

func TestOrderCreate(t *testing.T) {
	g, p := newTestGenerator(t)

	// Seed the pool so line items can reference known variants.
	created, err := g.ProductCreate()
	require.NoError(t, err)
	knownSKUs := make(map[string]bool)
	for _, raw := range decodeData(t, created.Body)["variants"].([]any) {
		knownSKUs[raw.(map[string]any)["sku"].(string)] = true
	}

	evt, err := g.OrderCreate()
	require.NoError(t, err)

	assert.Equal(t, TopicOrdersCreate, evt.Topic)
	data := decodeData(t, evt.Body)

	id, _ := data["id"].(string)
	assert.True(t, strings.HasPrefix(id, "gid://shopify/Order/"), "id = %q", id)
	number, _ := data["orderNumber"].(string)
	assert.True(t, strings.HasPrefix(number, "#"), "orderNumber = %q", number)
	assert.Contains(t, []string{"PENDING", "PAID"}, data["financialStatus"])
	assert.Equal(t, "USD", data["currency"])

	shipping := data["shippingAddress"].(map[string]any)
	assert.NotEmpty(t, shipping["province"])

	lines, _ := data["lineItems"].([]any)
	require.NotEmpty(t, lines)
	total := int64(0)
	for _, raw := range lines {
		line := raw.(map[string]any)
		assert.True(t, knownSKUs[line["sku"].(string)], "line sku %v should come from the pool", line["sku"])
		assert.NotEmpty(t, line["variantId"])
		total += priceCents(t, line["price"].(string))
	}
	assert.Equal(t, total, priceCents(t, data["totalPrice"].(string)))

	assert.Equal(t, 1, p.Count(pool.SemanticTypeOrderID))
	assert.Equal(t, 1, p.Count(pool.SemanticTypeOrderNumber))
}

func TestOrderUpdate_ReusesOrderID(t *testing.T) {
	g, _ := newTestGenerator(t)

	created, err := g.OrderCreate()
	require.NoError(t, err)
	createdID := decodeData(t, created.Body)["id"]

	updated, err := g.OrderUpdate()
	require.NoError(t, err)

	assert.Equal(t, TopicOrdersUpdated, updated.Topic)
	data := decodeData(t, updated.Body)
	assert.Equal(t, createdID, data["id"])
	assert.Contains(t,
		[]string{"PAID", "PARTIALLY_REFUNDED", "REFUNDED", "VOIDED"},
		data["financialStatus"])
}

func TestInventoryUpdate(t *testing.T) {
	g, _ := newTestGenerator(t)

	created, err := g.ProductCreate()
	require.NoError(t, err)
	knownSKUs := make(map[string]bool)
	for _, raw := range decodeData(t, created.Body)["variants"].([]any) {
		knownSKUs[raw.(map[string]any)["sku"].(string)] = true
	}

	evt, err := g.InventoryUpdate()
	require.NoError(t, err)

	assert.Equal(t, TopicInventoryLevelsUpdate, evt.Topic)
	data := decodeData(t, evt.Body)
	assert.True(t, knownSKUs[data["sku"].(string)], "sku %v should come from the pool", data["sku"])

	levels, _ := data["levels"].([]any)
	require.Len(t, levels, 3)
	for _, raw := range levels {
		level := raw.(map[string]any)
		loc, _ := level["locationId"].(string)
		assert.True(t, strings.HasPrefix(loc, "gid://shopify/Location/"), "locationId = %q", loc)
		available := level["available"].(float64)
		assert.GreaterOrEqual(t, available, float64(0))
		assert.LessOrEqual(t, available, float64(120))
	}
}

func TestNext_RespectsMix(t *testing.T) {
	cfg := pool.DefaultConfig()
	cfg.SweepInterval = 0
	p := pool.New(cfg)
	t.Cleanup(func() { p.Close() })

	g, err := New(7, p, []TopicWeight{{Topic: TopicProductsCreate, Weight: 1}})
	require.NoError(t, err)

	for range 10 {
		evt, err := g.Next()
		require.NoError(t, err)
		assert.Equal(t, TopicProductsCreate, evt.Topic)
	}
}

func TestBuild_UnknownTopic(t *testing.T) {
	g, _ := newTestGenerator(t)

	_, err := g.Build("customers/create")
	assert.ErrorContains(t, err, "unknown topic")
}

func TestGenerator_DeterministicWithSeed(t *testing.T) {
	build := func() map[string]any {
		cfg := pool.DefaultConfig()
		cfg.SweepInterval = 0
		p := pool.New(cfg)
		defer p.Close()

		g, err := New(1234, p, nil)
		require.NoError(t, err)
		evt, err := g.ProductCreate()
		require.NoError(t, err)
		return decodeData(t, evt.Body)
	}

	first := build()
	second := build()

	assert.Equal(t, first["id"], second["id"])
	assert.Equal(t, first["name"], second["name"])
	assert.Equal(t, first["vendor"], second["vendor"])
}
