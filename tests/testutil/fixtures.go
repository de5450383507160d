package testutil

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/channelsync/backend/internal/domain/integration"
)

// Fixtures generates realistic storefront entities for tests. The same seed
// produces the same sequence of entities, so failures reproduce.
type Fixtures struct {
	faker *gofakeit.Faker
	seq   atomic.Int64
}

// NewFixtures creates a fixture generator. Seed 0 randomizes.
func NewFixtures(seed uint64) *Fixtures {
	return &Fixtures{faker: gofakeit.New(seed)}
}

func (fx *Fixtures) next() int64 {
	return fx.seq.Add(1)
}

// SourceProduct builds a storefront product with the given number of
// variants. Variants get sequential positions and unique SKUs.
func (fx *Fixtures) SourceProduct(variants int) integration.Product {
	id := fx.next()
	now := time.Now().UTC().Truncate(time.Second)

	p := integration.Product{
		ExternalID:  fmt.Sprintf("gid://shopify/Product/%d", 7000000+id),
		Name:        fx.faker.ProductName(),
		Description: fx.faker.Sentence(8),
		ProductType: fx.faker.ProductCategory(),
		Vendor:      fx.faker.Company(),
		Status:      integration.SourceProductStatusActive,
		Attributes: map[string]string{
			"tags":    fx.faker.ProductFeature(),
			"barcode": fmt.Sprintf("0%d", 400000000000+id),
		},
		CreatedAt: now.Add(-24 * time.Hour),
		UpdatedAt: now,
	}

	for i := 0; i < variants; i++ {
		p.Variants = append(p.Variants, fx.Variant(i+1))
	}
	return p
}

// Variant builds one sellable variant at the given position.
func (fx *Fixtures) Variant(position int) integration.Variant {
	id := fx.next()
	v := integration.Variant{
		ExternalID:        fmt.Sprintf("gid://shopify/ProductVariant/%d", 9000000+id),
		SKU:               fmt.Sprintf("SKU-%05d", id),
		Price:             decimal.NewFromFloat(fx.faker.Price(5, 500)).Round(2),
		InventoryQuantity: fx.faker.Number(0, 200),
		Position:          position,
		OptionValues: map[string]string{
			"Size":  fx.faker.RandomString([]string{"XS", "S", "M", "L", "XL"}),
			"Color": fx.faker.Color(),
		},
	}
	if fx.faker.Bool() {
		compare := v.Price.Add(decimal.NewFromInt(int64(fx.faker.Number(5, 50))))
		v.CompareAtPrice = &compare
	}
	return v
}

// SourceOrder builds a storefront order with the given number of line items.
// TotalPrice is the sum of the line prices.
func (fx *Fixtures) SourceOrder(lines int) integration.Order {
	id := fx.next()
	total := decimal.Zero

	o := integration.Order{
		ExternalID:      fmt.Sprintf("gid://shopify/Order/%d", 5000000+id),
		OrderNumber:     fmt.Sprintf("#%d", 1000+id),
		CustomerEmail:   fx.faker.Email(),
		CustomerPhone:   fx.faker.Phone(),
		FinancialStatus: integration.SourceOrderStatusPaid,
		Currency:        "USD",
		ShippingAddress: fx.Address(),
		BillingAddress:  fx.Address(),
		CreatedAt:       time.Now().UTC().Truncate(time.Second),
	}

	for i := 0; i < lines; i++ {
		lineID := fx.next()
		qty := fx.faker.Number(1, 5)
		unit := decimal.NewFromFloat(fx.faker.Price(5, 200)).Round(2)
		line := integration.OrderLineItem{
			SKU:       fmt.Sprintf("SKU-%05d", lineID),
			VariantID: fmt.Sprintf("gid://shopify/ProductVariant/%d", 9000000+lineID),
			Name:      fx.faker.ProductName(),
			Quantity:  qty,
			LinePrice: unit.Mul(decimal.NewFromInt(int64(qty))),
		}
		o.LineItems = append(o.LineItems, line)
		total = total.Add(line.LinePrice)
	}
	o.TotalPrice = total
	return o
}

// Address builds a storefront postal address.
func (fx *Fixtures) Address() *integration.Address {
	return &integration.Address{
		FirstName: fx.faker.FirstName(),
		LastName:  fx.faker.LastName(),
		Company:   fx.faker.Company(),
		Address1:  fx.faker.Street(),
		City:      fx.faker.City(),
		Region:    fx.faker.StateAbr(),
		Country:   "United States",
		Zip:       fx.faker.Zip(),
		Phone:     fx.faker.Phone(),
	}
}

// InventoryItem builds a source-side stock picture spread over the given
// number of locations.
func (fx *Fixtures) InventoryItem(locations int) integration.InventoryItem {
	id := fx.next()
	item := integration.InventoryItem{
		SKU:       fmt.Sprintf("SKU-%05d", id),
		VariantID: fmt.Sprintf("gid://shopify/ProductVariant/%d", 9000000+id),
	}
	for i := 0; i < locations; i++ {
		item.Levels = append(item.Levels, integration.InventoryLevel{
			LocationID: fmt.Sprintf("gid://shopify/Location/%d", 100+i),
			Available:  fx.faker.Number(0, 80),
		})
	}
	return item
}

// StandardMappings returns the attribute mapping table most tests use.
func StandardMappings() []integration.AttributeMapping {
	return []integration.AttributeMapping{
		{SourceField: "tags", TargetField: "keywords", Description: "free-form labels"},
		{SourceField: "barcode", TargetField: "gtin", Description: "scannable code"},
		{SourceField: "Color", TargetField: "colour"},
		{SourceField: "Size", TargetField: "size"},
	}
}

// ---------------------------------------------------------------------------
// Webhook delivery bodies
// ---------------------------------------------------------------------------

// The builders below emit the `{"data": ...}` envelope the webhook intake
// decodes, with prices serialized as strings.

// ProductWebhookBody encodes a product create/update delivery.
func (fx *Fixtures) ProductWebhookBody(t *testing.T, p integration.Product) []byte {
	t.Helper()

	variants := make([]map[string]any, 0, len(p.Variants))
	for _, v := range p.Variants {
		variant := map[string]any{
			"id":                v.ExternalID,
			"sku":               v.SKU,
			"price":             v.Price.String(),
			"inventoryQuantity": v.InventoryQuantity,
			"position":          v.Position,
			"options":           v.OptionValues,
		}
		if v.CompareAtPrice != nil {
			variant["compareAtPrice"] = v.CompareAtPrice.String()
		}
		variants = append(variants, variant)
	}

	return mustEnvelope(t, map[string]any{
		"id":          p.ExternalID,
		"name":        p.Name,
		"description": p.Description,
		"productType": p.ProductType,
		"vendor":      p.Vendor,
		"status":      string(p.Status),
		"attributes":  p.Attributes,
		"variants":    variants,
		"createdAt":   p.CreatedAt.Format(time.RFC3339),
		"updatedAt":   p.UpdatedAt.Format(time.RFC3339),
	})
}

// DeleteWebhookBody encodes a products/delete delivery.
func (fx *Fixtures) DeleteWebhookBody(t *testing.T, externalID string) []byte {
	t.Helper()
	return mustEnvelope(t, map[string]any{"id": externalID})
}

// OrderWebhookBody encodes an orders/create or orders/updated delivery.
func (fx *Fixtures) OrderWebhookBody(t *testing.T, o integration.Order) []byte {
	t.Helper()

	lines := make([]map[string]any, 0, len(o.LineItems))
	for _, li := range o.LineItems {
		lines = append(lines, map[string]any{
			"sku":       li.SKU,
			"variantId": li.VariantID,
			"name":      li.Name,
			"quantity":  li.Quantity,
			"price":     li.LinePrice.String(),
		})
	}

	return mustEnvelope(t, map[string]any{
		"id":              o.ExternalID,
		"orderNumber":     o.OrderNumber,
		"email":           o.CustomerEmail,
		"phone":           o.CustomerPhone,
		"financialStatus": string(o.FinancialStatus),
		"currency":        o.Currency,
		"totalPrice":      o.TotalPrice.String(),
		"lineItems":       lines,
		"shippingAddress": addressBody(o.ShippingAddress),
		"billingAddress":  addressBody(o.BillingAddress),
		"createdAt":       o.CreatedAt.Format(time.RFC3339),
	})
}

// InventoryWebhookBody encodes an inventory_levels/update delivery.
func (fx *Fixtures) InventoryWebhookBody(t *testing.T, sku string, levels []integration.InventoryLevel) []byte {
	t.Helper()

	body := make([]map[string]any, 0, len(levels))
	for _, l := range levels {
		body = append(body, map[string]any{
			"locationId": l.LocationID,
			"available":  l.Available,
		})
	}
	return mustEnvelope(t, map[string]any{"sku": sku, "levels": body})
}

func addressBody(a *integration.Address) map[string]any {
	if a == nil {
		return nil
	}
	return map[string]any{
		"firstName": a.FirstName,
		"lastName":  a.LastName,
		"company":   a.Company,
		"address1":  a.Address1,
		"address2":  a.Address2,
		"city":      a.City,
		"province":  a.Region,
		"country":   a.Country,
		"zip":       a.Zip,
		"phone":     a.Phone,
	}
}

func mustEnvelope(t *testing.T, data map[string]any) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"data": data})
	require.NoError(t, err, "Failed to marshal webhook body")
	return raw
}
