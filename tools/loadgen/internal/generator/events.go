// Package generator builds synthetic webhook deliveries for the sync backend.
// Identifiers extracted from create deliveries are recycled through the
// parameter pool so that update, delete and inventory traffic references
// entities earlier deliveries already introduced.
package generator

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"github.com/channelsync/tools/loadgen/internal/pool"
)

// Webhook topics the sync backend subscribes to.
const (
	TopicProductsCreate        = "products/create"
	TopicProductsUpdate        = "products/update"
	TopicProductsDelete        = "products/delete"
	TopicOrdersCreate          = "orders/create"
	TopicOrdersUpdated         = "orders/updated"
	TopicInventoryLevelsUpdate = "inventory_levels/update"
)

// AllTopics returns every topic the generator can emit, in a stable order.
func AllTopics() []string {
	return []string{
		TopicProductsCreate,
		TopicProductsUpdate,
		TopicProductsDelete,
		TopicOrdersCreate,
		TopicOrdersUpdated,
		TopicInventoryLevelsUpdate,
	}
}

// Event is one webhook delivery ready to be sent.
type Event struct {
	// Topic is the webhook topic header value.
	Topic string
	// EventID is the delivery identifier used for deduplication.
	EventID string
	// Body is the JSON request body, entity wrapped in a data envelope.
	Body []byte
}

// TopicWeight assigns a relative weight to one topic in the traffic mix.
type TopicWeight struct {
	Topic  string
	Weight int
}

// DefaultMix approximates storefront traffic: catalog edits and inventory
// movements dominate, orders arrive steadily, deletes are rare.
func DefaultMix() []TopicWeight {
	return []TopicWeight{
		{Topic: TopicProductsCreate, Weight: 15},
		{Topic: TopicProductsUpdate, Weight: 25},
		{Topic: TopicProductsDelete, Weight: 5},
		{Topic: TopicOrdersCreate, Weight: 20},
		{Topic: TopicOrdersUpdated, Weight: 10},
		{Topic: TopicInventoryLevelsUpdate, Weight: 25},
	}
}

// ParseMix parses a CLI mix expression of the form
// "products/create:4,orders/create:2". A topic without a weight counts as
// weight 1. Unknown topics and non-positive weights are rejected.
func ParseMix(s string) ([]TopicWeight, error) {
	known := make(map[string]bool, len(AllTopics()))
	for _, t := range AllTopics() {
		known[t] = true
	}

	var mix []TopicWeight
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		topic := part
		weight := 1
		if idx := strings.LastIndex(part, ":"); idx >= 0 {
			topic = strings.TrimSpace(part[:idx])
			if _, err := fmt.Sscanf(part[idx+1:], "%d", &weight); err != nil {
				return nil, fmt.Errorf("invalid weight in %q", part)
			}
		}
		if !known[topic] {
			return nil, fmt.Errorf("unknown topic %q", topic)
		}
		if weight <= 0 {
			return nil, fmt.Errorf("weight for %q must be positive", topic)
		}
		mix = append(mix, TopicWeight{Topic: topic, Weight: weight})
	}

	if len(mix) == 0 {
		return nil, fmt.Errorf("mix %q contains no topics", s)
	}
	return mix, nil
}

// Generator builds webhook deliveries according to a weighted topic mix.
// Safe for concurrent use.
type Generator struct {
	mu        sync.Mutex
	faker     *gofakeit.Faker
	pool      *pool.Pool
	mix       []TopicWeight
	total     int
	locations []string
	seq       atomic.Int64
}

// New creates a generator drawing recycled identifiers from p. Seed 0
// randomizes, any other seed reproduces the same entity sequence. A nil or
// empty mix falls back to DefaultMix.
func New(seed uint64, p *pool.Pool, mix []TopicWeight) (*Generator, error) {
	if p == nil {
		return nil, fmt.Errorf("generator: parameter pool is required")
	}
	if len(mix) == 0 {
		mix = DefaultMix()
	}

	total := 0
	for _, tw := range mix {
		if tw.Weight <= 0 {
			return nil, fmt.Errorf("generator: weight for %q must be positive", tw.Topic)
		}
		total += tw.Weight
	}

	g := &Generator{
		faker: gofakeit.New(seed),
		pool:  p,
		mix:   mix,
		total: total,
	}
	for i := range 3 {
		g.locations = append(g.locations, fmt.Sprintf("gid://shopify/Location/%d", 101+i))
	}
	return g, nil
}

// Mix returns the weighted topic mix in effect.
func (g *Generator) Mix() []TopicWeight {
	out := make([]TopicWeight, len(g.mix))
	copy(out, g.mix)
	return out
}

// Next builds one delivery, choosing the topic by weighted random selection.
func (g *Generator) Next() (Event, error) {
	g.mu.Lock()
	roll := g.faker.Number(1, g.total)
	g.mu.Unlock()

	topic := g.mix[len(g.mix)-1].Topic
	for _, tw := range g.mix {
		roll -= tw.Weight
		if roll <= 0 {
			topic = tw.Topic
			break
		}
	}
	return g.Build(topic)
}

// Build builds one delivery for the given topic.
func (g *Generator) Build(topic string) (Event, error) {
	switch topic {
	case TopicProductsCreate:
		return g.ProductCreate()
	case TopicProductsUpdate:
		return g.ProductUpdate()
	case TopicProductsDelete:
		return g.ProductDelete()
	case TopicOrdersCreate:
		return g.OrderCreate()
	case TopicOrdersUpdated:
		return g.OrderUpdate()
	case TopicInventoryLevelsUpdate:
		return g.InventoryUpdate()
	default:
		return Event{}, fmt.Errorf("generator: unknown topic %q", topic)
	}
}

// ---------------------------------------------------------------------------
// Payload shapes
// ---------------------------------------------------------------------------

type envelope struct {
	Data any `json:"data"`
}

type productBody struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	ProductType string            `json:"productType"`
	Vendor      string            `json:"vendor"`
	Status      string            `json:"status"`
	Attributes  map[string]string `json:"attributes"`
	Variants    []variantBody     `json:"variants"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

type variantBody struct {
	ID                string            `json:"id"`
	SKU               string            `json:"sku"`
	Price             string            `json:"price"`
	CompareAtPrice    string            `json:"compareAtPrice,omitempty"`
	InventoryQuantity int               `json:"inventoryQuantity"`
	Position          int               `json:"position"`
	Options           map[string]string `json:"options"`
}

type deleteBody struct {
	ID string `json:"id"`
}

type orderBody struct {
	ID              string         `json:"id"`
	OrderNumber     string         `json:"orderNumber"`
	Email           string         `json:"email"`
	Phone           string         `json:"phone"`
	FinancialStatus string         `json:"financialStatus"`
	Currency        string         `json:"currency"`
	TotalPrice      string         `json:"totalPrice"`
	LineItems       []lineItemBody `json:"lineItems"`
	ShippingAddress *addressBody   `json:"shippingAddress"`
	BillingAddress  *addressBody   `json:"billingAddress"`
	CreatedAt       time.Time      `json:"createdAt"`
}

type lineItemBody struct {
	SKU       string `json:"sku"`
	VariantID string `json:"variantId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

type addressBody struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Company   string `json:"company"`
	Address1  string `json:"address1"`
	City      string `json:"city"`
	Province  string `json:"province"`
	Country   string `json:"country"`
	Zip       string `json:"zip"`
	Phone     string `json:"phone"`
}

type inventoryBody struct {
	SKU    string               `json:"sku"`
	Levels []inventoryLevelBody `json:"levels"`
}

type inventoryLevelBody struct {
	LocationID string `json:"locationId"`
	Available  int    `json:"available"`
}

// ---------------------------------------------------------------------------
// Topic builders
// ---------------------------------------------------------------------------

// ProductCreate builds a products/create delivery and feeds the new product
// and variant identifiers into the pool.
func (g *Generator) ProductCreate() (Event, error) {
	body := g.newProduct()
	if err := g.recycleProductID(TopicProductsCreate, body.ID); err != nil {
		return Event{}, err
	}
	if err := g.recycleVariants(TopicProductsCreate, body.Variants); err != nil {
		return Event{}, err
	}
	return g.seal(TopicProductsCreate, body)
}

// ProductUpdate builds a products/update delivery against a product id from
// the pool. With an empty pool it falls back to a fresh id, which the backend
// treats as a late create.
func (g *Generator) ProductUpdate() (Event, error) {
	body := g.newProduct()

	pv, err := g.pool.GetRandom(pool.SemanticTypeProductID)
	if err != nil {
		return Event{}, fmt.Errorf("generator: draw product id: %w", err)
	}
	if pv != nil {
		body.ID = fmt.Sprintf("%v", pv.Value)
	} else if err := g.recycleProductID(TopicProductsUpdate, body.ID); err != nil {
		return Event{}, err
	}
	body.UpdatedAt = time.Now().UTC()

	// The update replaces the variant set, so the new SKUs join the pool.
	if err := g.recycleVariants(TopicProductsUpdate, body.Variants); err != nil {
		return Event{}, err
	}
	return g.seal(TopicProductsUpdate, body)
}

// ProductDelete builds a products/delete delivery. The deleted id is retired
// from the pool so later catalog traffic stops referencing it.
func (g *Generator) ProductDelete() (Event, error) {
	var id string

	pv, err := g.pool.GetRandom(pool.SemanticTypeProductID)
	if err != nil {
		return Event{}, fmt.Errorf("generator: draw product id: %w", err)
	}
	if pv != nil {
		id = fmt.Sprintf("%v", pv.Value)
		g.pool.Remove(pv)
	} else {
		id = g.productID()
	}

	return g.seal(TopicProductsDelete, deleteBody{ID: id})
}

// OrderCreate builds an orders/create delivery. Line items reference variant
// SKUs from the pool when available. The order id and number are fed back
// into the pool for later orders/updated traffic.
func (g *Generator) OrderCreate() (Event, error) {
	body, err := g.newOrder()
	if err != nil {
		return Event{}, err
	}

	idVal := pool.NewParameterValue(body.ID, pool.SemanticTypeOrderID).
		WithSource(TopicOrdersCreate, "data.id")
	if err := g.pool.Add(idVal); err != nil {
		return Event{}, fmt.Errorf("generator: recycle order id: %w", err)
	}
	numVal := pool.NewParameterValue(body.OrderNumber, pool.SemanticTypeOrderNumber).
		WithSource(TopicOrdersCreate, "data.orderNumber")
	if err := g.pool.Add(numVal); err != nil {
		return Event{}, fmt.Errorf("generator: recycle order number: %w", err)
	}

	return g.seal(TopicOrdersCreate, body)
}

// OrderUpdate builds an orders/updated delivery moving a known order to a
// later financial status. With an empty pool the update carries a fresh id,
// which the backend reconciles as a create.
func (g *Generator) OrderUpdate() (Event, error) {
	body, err := g.newOrder()
	if err != nil {
		return Event{}, err
	}

	pv, err := g.pool.GetRandom(pool.SemanticTypeOrderID)
	if err != nil {
		return Event{}, fmt.Errorf("generator: draw order id: %w", err)
	}
	if pv != nil {
		body.ID = fmt.Sprintf("%v", pv.Value)
	}

	g.mu.Lock()
	body.FinancialStatus = g.faker.RandomString([]string{
		"PAID", "PARTIALLY_REFUNDED", "REFUNDED", "VOIDED",
	})
	g.mu.Unlock()

	return g.seal(TopicOrdersUpdated, body)
}

// InventoryUpdate builds an inventory_levels/update delivery for a variant
// SKU from the pool, spreading stock over the store's locations.
func (g *Generator) InventoryUpdate() (Event, error) {
	var sku string

	pv, err := g.pool.GetRandom(pool.SemanticTypeVariantSKU)
	if err != nil {
		return Event{}, fmt.Errorf("generator: draw variant sku: %w", err)
	}
	if pv != nil {
		sku = fmt.Sprintf("%v", pv.Value)
	} else {
		sku = g.skuFor(g.seq.Add(1))
	}

	g.mu.Lock()
	levels := make([]inventoryLevelBody, 0, len(g.locations))
	for _, loc := range g.locations {
		levels = append(levels, inventoryLevelBody{
			LocationID: loc,
			Available:  g.faker.Number(0, 120),
		})
	}
	g.mu.Unlock()

	return g.seal(TopicInventoryLevelsUpdate, inventoryBody{SKU: sku, Levels: levels})
}

// ---------------------------------------------------------------------------
// Entity construction
// ---------------------------------------------------------------------------

func (g *Generator) productID() string {
	return fmt.Sprintf("gid://shopify/Product/%d", 7000000+g.seq.Add(1))
}

func (g *Generator) skuFor(n int64) string {
	return fmt.Sprintf("SKU-%05d", n)
}

func (g *Generator) newProduct() productBody {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now().UTC()
	body := productBody{
		ID:          fmt.Sprintf("gid://shopify/Product/%d", 7000000+g.seq.Add(1)),
		Name:        g.faker.ProductName(),
		Description: g.faker.Sentence(8),
		ProductType: g.faker.ProductCategory(),
		Vendor:      g.faker.Company(),
		Status:      g.faker.RandomString([]string{"ACTIVE", "ACTIVE", "ACTIVE", "DRAFT"}),
		Attributes: map[string]string{
			"tags":    g.faker.ProductFeature(),
			"barcode": fmt.Sprintf("0%d", 400000000000+g.seq.Add(1)),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	variants := g.faker.Number(1, 3)
	for i := range variants {
		id := g.seq.Add(1)
		v := variantBody{
			ID:                fmt.Sprintf("gid://shopify/ProductVariant/%d", 9000000+id),
			SKU:               g.skuFor(id),
			Price:             fmt.Sprintf("%.2f", g.faker.Price(5, 500)),
			InventoryQuantity: g.faker.Number(0, 200),
			Position:          i + 1,
			Options: map[string]string{
				"Size":  g.faker.RandomString([]string{"XS", "S", "M", "L", "XL"}),
				"Color": g.faker.Color(),
			},
		}
		if g.faker.Bool() {
			v.CompareAtPrice = fmt.Sprintf("%.2f", g.faker.Price(500, 600))
		}
		body.Variants = append(body.Variants, v)
	}
	return body
}

// recycleProductID feeds a delivery's product id back into the pool.
func (g *Generator) recycleProductID(topic, id string) error {
	idVal := pool.NewParameterValue(id, pool.SemanticTypeProductID).
		WithSource(topic, "data.id")
	if err := g.pool.Add(idVal); err != nil {
		return fmt.Errorf("generator: recycle product id: %w", err)
	}
	return nil
}

// recycleVariants feeds a delivery's variant identifiers back into the pool.
func (g *Generator) recycleVariants(topic string, variants []variantBody) error {
	for _, v := range variants {
		vidVal := pool.NewParameterValue(v.ID, pool.SemanticTypeVariantID).
			WithSource(topic, "data.variants[*].id")
		if err := g.pool.Add(vidVal); err != nil {
			return fmt.Errorf("generator: recycle variant id: %w", err)
		}
		skuVal := pool.NewParameterValue(v.SKU, pool.SemanticTypeVariantSKU).
			WithSource(topic, "data.variants[*].sku")
		if err := g.pool.Add(skuVal); err != nil {
			return fmt.Errorf("generator: recycle variant sku: %w", err)
		}
	}
	return nil
}

func (g *Generator) newOrder() (orderBody, error) {
	g.mu.Lock()
	id := g.seq.Add(1)
	body := orderBody{
		ID:              fmt.Sprintf("gid://shopify/Order/%d", 5000000+id),
		OrderNumber:     fmt.Sprintf("#%d", 1000+id),
		Email:           g.faker.Email(),
		Phone:           g.faker.Phone(),
		FinancialStatus: g.faker.RandomString([]string{"PENDING", "PAID", "PAID"}),
		Currency:        "USD",
		ShippingAddress: g.newAddress(),
		BillingAddress:  g.newAddress(),
		CreatedAt:       time.Now().UTC(),
	}
	lines := g.faker.Number(1, 4)
	g.mu.Unlock()

	totalCents := int64(0)
	for range lines {
		item, cents, err := g.newLineItem()
		if err != nil {
			return orderBody{}, err
		}
		body.LineItems = append(body.LineItems, item)
		totalCents += cents
	}
	body.TotalPrice = formatCents(totalCents)
	return body, nil
}

func (g *Generator) newLineItem() (lineItemBody, int64, error) {
	skuPV, err := g.pool.GetRandom(pool.SemanticTypeVariantSKU)
	if err != nil {
		return lineItemBody{}, 0, fmt.Errorf("generator: draw variant sku: %w", err)
	}
	vidPV, err := g.pool.GetRandom(pool.SemanticTypeVariantID)
	if err != nil {
		return lineItemBody{}, 0, fmt.Errorf("generator: draw variant id: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	item := lineItemBody{
		Name:     g.faker.ProductName(),
		Quantity: g.faker.Number(1, 5),
	}
	if skuPV != nil {
		item.SKU = fmt.Sprintf("%v", skuPV.Value)
	} else {
		item.SKU = g.skuFor(g.seq.Add(1))
	}
	if vidPV != nil {
		item.VariantID = fmt.Sprintf("%v", vidPV.Value)
	} else {
		item.VariantID = fmt.Sprintf("gid://shopify/ProductVariant/%d", 9000000+g.seq.Add(1))
	}

	unitCents := int64(g.faker.Price(5, 200) * 100)
	lineCents := unitCents * int64(item.Quantity)
	item.Price = formatCents(lineCents)
	return item, lineCents, nil
}

func formatCents(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

func (g *Generator) newAddress() *addressBody {
	return &addressBody{
		FirstName: g.faker.FirstName(),
		LastName:  g.faker.LastName(),
		Company:   g.faker.Company(),
		Address1:  g.faker.Street(),
		City:      g.faker.City(),
		Province:  g.faker.StateAbr(),
		Country:   "United States",
		Zip:       g.faker.Zip(),
		Phone:     g.faker.Phone(),
	}
}

// seal wraps the body in the data envelope and stamps a delivery id.
func (g *Generator) seal(topic string, body any) (Event, error) {
	raw, err := json.Marshal(envelope{Data: body})
	if err != nil {
		return Event{}, fmt.Errorf("generator: marshal %s body: %w", topic, err)
	}
	return Event{
		Topic:   topic,
		EventID: uuid.NewString(),
		Body:    raw,
	}, nil
}
