package testutil

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/channelsync/backend/internal/domain/integration"
)

var (
	_ integration.SourcePlatform = (*FakeSourcePlatform)(nil)
	_ integration.TargetPlatform = (*FakeTargetPlatform)(nil)
)

// ---------------------------------------------------------------------------
// FakeSourcePlatform
// ---------------------------------------------------------------------------

// FakeSourcePlatform is an in-memory storefront. Tests seed it with entities
// and the listing operations page through them with offset cursors. All
// methods are safe for concurrent use.
type FakeSourcePlatform struct {
	mu        sync.RWMutex
	products  []integration.Product
	inventory []integration.InventoryItem
	orders    []integration.Order

	callbackURL string
	topics      []string

	listErr error
}

// NewFakeSourcePlatform creates an empty fake storefront.
func NewFakeSourcePlatform() *FakeSourcePlatform {
	return &FakeSourcePlatform{}
}

// Name identifies the platform in logs and errors.
func (f *FakeSourcePlatform) Name() string { return "fake-storefront" }

// SetProducts replaces the product catalog.
func (f *FakeSourcePlatform) SetProducts(products []integration.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products = append([]integration.Product(nil), products...)
}

// SetInventory replaces the stock picture.
func (f *FakeSourcePlatform) SetInventory(items []integration.InventoryItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inventory = append([]integration.InventoryItem(nil), items...)
}

// SetOrders replaces the order history.
func (f *FakeSourcePlatform) SetOrders(orders []integration.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append([]integration.Order(nil), orders...)
}

// AddOrder appends one order.
func (f *FakeSourcePlatform) AddOrder(order integration.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, order)
}

// SetListError makes every listing operation fail with err until cleared
// with nil.
func (f *FakeSourcePlatform) SetListError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

// ListProducts pages through the seeded catalog.
func (f *FakeSourcePlatform) ListProducts(ctx context.Context, cursor string, limit int) (integration.ProductPage, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.listErr != nil {
		return integration.ProductPage{}, f.listErr
	}
	start, end, next, hasNext, err := paginate(len(f.products), cursor, limit)
	if err != nil {
		return integration.ProductPage{}, err
	}
	return integration.ProductPage{
		Products:    append([]integration.Product(nil), f.products[start:end]...),
		HasNextPage: hasNext,
		EndCursor:   next,
	}, nil
}

// ListInventory pages through the seeded stock picture.
func (f *FakeSourcePlatform) ListInventory(ctx context.Context, cursor string, limit int) (integration.InventoryPage, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.listErr != nil {
		return integration.InventoryPage{}, f.listErr
	}
	start, end, next, hasNext, err := paginate(len(f.inventory), cursor, limit)
	if err != nil {
		return integration.InventoryPage{}, err
	}
	return integration.InventoryPage{
		Items:       append([]integration.InventoryItem(nil), f.inventory[start:end]...),
		HasNextPage: hasNext,
		EndCursor:   next,
	}, nil
}

// ListOrders pages through orders created strictly after createdAfter.
func (f *FakeSourcePlatform) ListOrders(ctx context.Context, createdAfter time.Time, cursor string, limit int) (integration.OrderPage, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.listErr != nil {
		return integration.OrderPage{}, f.listErr
	}

	matched := make([]integration.Order, 0, len(f.orders))
	for _, o := range f.orders {
		if o.CreatedAt.After(createdAfter) {
			matched = append(matched, o)
		}
	}

	start, end, next, hasNext, err := paginate(len(matched), cursor, limit)
	if err != nil {
		return integration.OrderPage{}, err
	}
	return integration.OrderPage{
		Orders:      matched[start:end],
		HasNextPage: hasNext,
		EndCursor:   next,
	}, nil
}

// RegisterWebhooks records the subscription request.
func (f *FakeSourcePlatform) RegisterWebhooks(ctx context.Context, callbackURL string, topics []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callbackURL = callbackURL
	f.topics = append([]string(nil), topics...)
	return nil
}

// RegisteredCallback returns the callback URL from the last registration.
func (f *FakeSourcePlatform) RegisteredCallback() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.callbackURL
}

// RegisteredTopics returns the topics from the last registration.
func (f *FakeSourcePlatform) RegisteredTopics() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.topics...)
}

// paginate resolves an offset cursor against a collection length.
func paginate(total int, cursor string, limit int) (start, end int, next string, hasNext bool, err error) {
	if cursor != "" {
		start, err = strconv.Atoi(cursor)
		if err != nil || start < 0 {
			return 0, 0, "", false, fmt.Errorf("invalid cursor %q", cursor)
		}
	}
	if start > total {
		start = total
	}
	if limit <= 0 {
		limit = total
	}
	end = start + limit
	if end > total {
		end = total
	}
	hasNext = end < total
	if hasNext {
		next = strconv.Itoa(end)
	}
	return start, end, next, hasNext, nil
}

// ---------------------------------------------------------------------------
// FakeTargetPlatform
// ---------------------------------------------------------------------------

// FakeTargetPlatform is an in-memory marketplace backend. Mutations assign
// sequential internal IDs and the not-found cases return the same sentinel
// errors the real adapter maps to. All methods are safe for concurrent use.
type FakeTargetPlatform struct {
	mu     sync.RWMutex
	nextID int

	products     map[string]*integration.TargetProduct
	productOrder []string
	orders       map[string]*integration.TargetOrder

	opErrors map[string]error
	opCounts map[string]int
}

// NewFakeTargetPlatform creates an empty fake marketplace.
func NewFakeTargetPlatform() *FakeTargetPlatform {
	return &FakeTargetPlatform{
		products: make(map[string]*integration.TargetProduct),
		orders:   make(map[string]*integration.TargetOrder),
		opErrors: make(map[string]error),
		opCounts: make(map[string]int),
	}
}

// Name identifies the platform in logs and errors.
func (f *FakeTargetPlatform) Name() string { return "fake-marketplace" }

// SetError makes the named operation fail with err until cleared with nil.
// Operation names match the method names in lower camel case, e.g.
// "createProduct", "updateVariantQuantity".
func (f *FakeTargetPlatform) SetError(operation string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.opErrors, operation)
		return
	}
	f.opErrors[operation] = err
}

// Calls returns how many times the named operation ran (including failed
// runs).
func (f *FakeTargetPlatform) Calls(operation string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.opCounts[operation]
}

// Products returns the stored products in creation order.
func (f *FakeTargetPlatform) Products() []integration.TargetProduct {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]integration.TargetProduct, 0, len(f.productOrder))
	for _, externalID := range f.productOrder {
		if p, ok := f.products[externalID]; ok {
			out = append(out, *p)
		}
	}
	return out
}

// Product returns the stored product for a storefront external ID.
func (f *FakeTargetPlatform) Product(externalID string) (integration.TargetProduct, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.products[externalID]
	if !ok {
		return integration.TargetProduct{}, false
	}
	return *p, true
}

// Orders returns the stored orders keyed by storefront external ID.
func (f *FakeTargetPlatform) Orders() map[string]integration.TargetOrder {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]integration.TargetOrder, len(f.orders))
	for id, o := range f.orders {
		out[id] = *o
	}
	return out
}

func (f *FakeTargetPlatform) begin(operation string) error {
	f.opCounts[operation]++
	return f.opErrors[operation]
}

// ProductByExternalID finds a product by its storefront ID.
func (f *FakeTargetPlatform) ProductByExternalID(ctx context.Context, externalID string) (*integration.TargetProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("productByExternalID"); err != nil {
		return nil, err
	}
	p, ok := f.products[externalID]
	if !ok {
		return nil, integration.ErrProductNotFound
	}
	clone := *p
	return &clone, nil
}

// CreateProduct stores a new product and assigns internal IDs.
func (f *FakeTargetPlatform) CreateProduct(ctx context.Context, draft integration.ProductDraft) (*integration.TargetProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("createProduct"); err != nil {
		return nil, err
	}

	f.nextID++
	p := &integration.TargetProduct{
		ID:         fmt.Sprintf("P-%d", f.nextID),
		ExternalID: draft.ExternalID,
		Name:       draft.Name,
		Status:     draft.Status,
	}
	for _, v := range draft.Variants {
		f.nextID++
		p.Variants = append(p.Variants, integration.TargetVariant{
			ID:       fmt.Sprintf("V-%d", f.nextID),
			SKU:      v.SKU,
			Quantity: v.InventoryQuantity,
		})
	}
	f.products[draft.ExternalID] = p
	f.productOrder = append(f.productOrder, draft.ExternalID)

	clone := *p
	return &clone, nil
}

// UpdateProduct replaces a stored product's fields, keeping variant IDs for
// SKUs that survive the update.
func (f *FakeTargetPlatform) UpdateProduct(ctx context.Context, id string, draft integration.ProductDraft) (*integration.TargetProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("updateProduct"); err != nil {
		return nil, err
	}

	p := f.productByInternalID(id)
	if p == nil {
		return nil, integration.ErrProductNotFound
	}

	existingVariants := make(map[string]string, len(p.Variants))
	for _, v := range p.Variants {
		existingVariants[v.SKU] = v.ID
	}

	p.Name = draft.Name
	p.Status = draft.Status
	p.Variants = nil
	for _, v := range draft.Variants {
		variantID, ok := existingVariants[v.SKU]
		if !ok {
			f.nextID++
			variantID = fmt.Sprintf("V-%d", f.nextID)
		}
		p.Variants = append(p.Variants, integration.TargetVariant{
			ID:       variantID,
			SKU:      v.SKU,
			Quantity: v.InventoryQuantity,
		})
	}

	clone := *p
	return &clone, nil
}

// DeleteProduct removes a product by internal ID.
func (f *FakeTargetPlatform) DeleteProduct(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("deleteProduct"); err != nil {
		return err
	}

	p := f.productByInternalID(id)
	if p == nil {
		return integration.ErrProductNotFound
	}
	delete(f.products, p.ExternalID)
	for i, externalID := range f.productOrder {
		if externalID == p.ExternalID {
			f.productOrder = append(f.productOrder[:i], f.productOrder[i+1:]...)
			break
		}
	}
	return nil
}

// ListInventory pages through every stored variant's recorded quantity.
func (f *FakeTargetPlatform) ListInventory(ctx context.Context, cursor string, limit int) (integration.InventoryPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("listInventory"); err != nil {
		return integration.InventoryPage{}, err
	}

	items := make([]integration.InventoryItem, 0)
	for _, externalID := range f.productOrder {
		p, ok := f.products[externalID]
		if !ok {
			continue
		}
		for _, v := range p.Variants {
			items = append(items, integration.InventoryItem{
				SKU:       v.SKU,
				VariantID: v.ID,
				Quantity:  v.Quantity,
			})
		}
	}

	start, end, next, hasNext, err := paginate(len(items), cursor, limit)
	if err != nil {
		return integration.InventoryPage{}, err
	}
	return integration.InventoryPage{
		Items:       items[start:end],
		HasNextPage: hasNext,
		EndCursor:   next,
	}, nil
}

// VariantBySKU finds a variant across all stored products.
func (f *FakeTargetPlatform) VariantBySKU(ctx context.Context, sku string) (*integration.TargetVariant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("variantBySKU"); err != nil {
		return nil, err
	}
	for _, p := range f.products {
		for _, v := range p.Variants {
			if v.SKU == sku {
				clone := v
				return &clone, nil
			}
		}
	}
	return nil, integration.ErrVariantNotFound
}

// UpdateVariantQuantity sets a variant's recorded quantity.
func (f *FakeTargetPlatform) UpdateVariantQuantity(ctx context.Context, variantID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("updateVariantQuantity"); err != nil {
		return err
	}
	for _, p := range f.products {
		for i := range p.Variants {
			if p.Variants[i].ID == variantID {
				p.Variants[i].Quantity = quantity
				return nil
			}
		}
	}
	return integration.ErrVariantNotFound
}

// OrderByExternalID finds an order by its storefront ID.
func (f *FakeTargetPlatform) OrderByExternalID(ctx context.Context, externalID string) (*integration.TargetOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("orderByExternalID"); err != nil {
		return nil, err
	}
	o, ok := f.orders[externalID]
	if !ok {
		return nil, integration.ErrOrderNotFound
	}
	clone := *o
	return &clone, nil
}

// CreateOrder stores a new order.
func (f *FakeTargetPlatform) CreateOrder(ctx context.Context, draft integration.OrderDraft) (*integration.TargetOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("createOrder"); err != nil {
		return nil, err
	}

	f.nextID++
	o := &integration.TargetOrder{
		ID:         fmt.Sprintf("O-%d", f.nextID),
		ExternalID: draft.ExternalID,
		Number:     draft.Number,
		Status:     draft.Status,
	}
	f.orders[draft.ExternalID] = o
	clone := *o
	return &clone, nil
}

// UpdateOrder replaces a stored order's mutable fields by internal ID.
func (f *FakeTargetPlatform) UpdateOrder(ctx context.Context, id string, draft integration.OrderDraft) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("updateOrder"); err != nil {
		return err
	}
	for _, o := range f.orders {
		if o.ID == id {
			o.Status = draft.Status
			o.Number = draft.Number
			return nil
		}
	}
	return integration.ErrOrderNotFound
}

func (f *FakeTargetPlatform) productByInternalID(id string) *integration.TargetProduct {
	for _, p := range f.products {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// StaticMappingSource
// ---------------------------------------------------------------------------

// StaticMappingSource serves a fixed attribute mapping table.
type StaticMappingSource struct {
	Mappings []integration.AttributeMapping
	Err      error
}

var _ integration.MappingSource = (*StaticMappingSource)(nil)

// Load returns the configured table, or Err when set.
func (s *StaticMappingSource) Load(ctx context.Context) ([]integration.AttributeMapping, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]integration.AttributeMapping(nil), s.Mappings...), nil
}
