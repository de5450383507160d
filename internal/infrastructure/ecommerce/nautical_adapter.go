package ecommerce

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/channelsync/backend/internal/domain/integration"
)

// platformNautical is the platform name reported in logs and errors
const platformNautical = "nautical"

// GraphQL documents for the Nautical Commerce API.
const (
	nauticalProductByExternalIDQuery = `
		query ProductByExternalId($externalId: String!) {
			products(filter: { externalReference: $externalId }, first: 1) {
				edges { node {
					id externalReference name status
					variants { id sku quantityAvailable }
				} }
			}
		}`

	nauticalProductCreateMutation = `
		mutation ProductCreate($input: ProductCreateInput!) {
			productCreate(input: $input) {
				product {
					id externalReference name status
					variants { id sku quantityAvailable }
				}
				userErrors { field message }
			}
		}`

	nauticalProductUpdateMutation = `
		mutation ProductUpdate($id: ID!, $input: ProductInput!) {
			productUpdate(id: $id, input: $input) {
				product {
					id externalReference name status
					variants { id sku quantityAvailable }
				}
				userErrors { field message }
			}
		}`

	nauticalProductDeleteMutation = `
		mutation ProductDelete($id: ID!) {
			productDelete(id: $id) {
				userErrors { field message }
			}
		}`

	nauticalListVariantsQuery = `
		query ListVariants($first: Int!, $after: String) {
			productVariants(first: $first, after: $after) {
				pageInfo { hasNextPage endCursor }
				edges { node { id sku quantityAvailable } }
			}
		}`

	nauticalVariantBySKUQuery = `
		query VariantBySku($sku: String!) {
			productVariants(filter: { sku: $sku }, first: 1) {
				edges { node { id sku quantityAvailable } }
			}
		}`

	nauticalStocksUpdateMutation = `
		mutation StocksUpdate($variantId: ID!, $quantity: Int!) {
			productVariantStocksUpdate(variantId: $variantId, quantity: $quantity) {
				userErrors { field message }
			}
		}`

	nauticalOrderByExternalIDQuery = `
		query OrderByExternalId($externalId: String!) {
			orders(filter: { externalReference: $externalId }, first: 1) {
				edges { node { id externalReference number status } }
			}
		}`

	nauticalOrderCreateMutation = `
		mutation OrderCreate($input: OrderCreateInput!) {
			orderCreate(input: $input) {
				order { id externalReference number status }
				userErrors { field message }
			}
		}`

	nauticalOrderUpdateMutation = `
		mutation OrderUpdate($id: ID!, $input: OrderUpdateInput!) {
			orderUpdate(id: $id, input: $input) {
				order { id externalReference number status }
				userErrors { field message }
			}
		}`
)

// NauticalAdapter implements the TargetPlatform port against the Nautical
// Commerce GraphQL API. Every request carries the tenant header and bearer
// token; mutation userErrors surface as ValidationError.
type NauticalAdapter struct {
	config *NauticalConfig
	client *graphQLClient
}

// NewNauticalAdapter creates a new Nautical adapter with the given configuration
func NewNauticalAdapter(config *NauticalConfig) (*NauticalAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &NauticalAdapter{
		config: config,
		client: newGraphQLClient(
			platformNautical,
			config.APIURL,
			time.Duration(config.TimeoutSeconds)*time.Second,
			config.MaxRequestsPerSecond,
			map[string]string{
				"Authorization":     "Bearer " + config.APIToken,
				"X-Nautical-Tenant": config.TenantID,
			},
		),
	}, nil
}

// Name returns the platform name this adapter handles
func (a *NauticalAdapter) Name() string {
	return platformNautical
}

// ---------------------------------------------------------------------------
// Product Operations
// ---------------------------------------------------------------------------

// ProductByExternalID looks up the product carrying the source platform's id.
func (a *NauticalAdapter) ProductByExternalID(ctx context.Context, externalID string) (*integration.TargetProduct, error) {
	var data nauticalProductsData
	err := a.client.execute(ctx, nauticalProductByExternalIDQuery,
		map[string]any{"externalId": externalID}, &data)
	if err != nil {
		return nil, err
	}
	if len(data.Products.Edges) == 0 {
		return nil, integration.ErrProductNotFound
	}
	return convertNauticalProduct(data.Products.Edges[0].Node), nil
}

// CreateProduct creates a product from the draft.
func (a *NauticalAdapter) CreateProduct(ctx context.Context, draft integration.ProductDraft) (*integration.TargetProduct, error) {
	var data nauticalProductCreateData
	err := a.client.execute(ctx, nauticalProductCreateMutation,
		map[string]any{"input": productInput(draft)}, &data)
	if err != nil {
		return nil, err
	}
	if err := userErrorsToValidation(platformNautical, "productCreate", data.ProductCreate.UserErrors); err != nil {
		return nil, err
	}
	if data.ProductCreate.Product == nil {
		return nil, fmt.Errorf("%w: productCreate returned no product", integration.ErrInvalidResponse)
	}
	return convertNauticalProduct(*data.ProductCreate.Product), nil
}

// UpdateProduct overwrites the product's synchronized fields with the draft.
func (a *NauticalAdapter) UpdateProduct(ctx context.Context, id string, draft integration.ProductDraft) (*integration.TargetProduct, error) {
	var data nauticalProductUpdateData
	err := a.client.execute(ctx, nauticalProductUpdateMutation,
		map[string]any{"id": id, "input": productInput(draft)}, &data)
	if err != nil {
		return nil, err
	}
	if err := userErrorsToValidation(platformNautical, "productUpdate", data.ProductUpdate.UserErrors); err != nil {
		return nil, err
	}
	if data.ProductUpdate.Product == nil {
		return nil, fmt.Errorf("%w: productUpdate returned no product", integration.ErrInvalidResponse)
	}
	return convertNauticalProduct(*data.ProductUpdate.Product), nil
}

// DeleteProduct removes the product.
func (a *NauticalAdapter) DeleteProduct(ctx context.Context, id string) error {
	var data nauticalProductDeleteData
	err := a.client.execute(ctx, nauticalProductDeleteMutation,
		map[string]any{"id": id}, &data)
	if err != nil {
		return err
	}
	return userErrorsToValidation(platformNautical, "productDelete", data.ProductDelete.UserErrors)
}

// ---------------------------------------------------------------------------
// Inventory Operations
// ---------------------------------------------------------------------------

// ListInventory fetches one page of per-variant stock quantities.
func (a *NauticalAdapter) ListInventory(ctx context.Context, cursor string, limit int) (integration.InventoryPage, error) {
	var data nauticalVariantsData
	if err := a.client.execute(ctx, nauticalListVariantsQuery, pageVariables(cursor, limit), &data); err != nil {
		return integration.InventoryPage{}, err
	}

	items := make([]integration.InventoryItem, 0, len(data.ProductVariants.Edges))
	for _, node := range data.ProductVariants.nodes() {
		items = append(items, integration.InventoryItem{
			SKU:       node.SKU,
			VariantID: node.ID,
			Quantity:  node.QuantityAvailable,
		})
	}

	return integration.InventoryPage{
		Items:       items,
		HasNextPage: data.ProductVariants.PageInfo.HasNextPage,
		EndCursor:   data.ProductVariants.PageInfo.EndCursor,
	}, nil
}

// VariantBySKU looks up a single variant by its SKU.
func (a *NauticalAdapter) VariantBySKU(ctx context.Context, sku string) (*integration.TargetVariant, error) {
	var data nauticalVariantsData
	err := a.client.execute(ctx, nauticalVariantBySKUQuery,
		map[string]any{"sku": sku}, &data)
	if err != nil {
		return nil, err
	}
	if len(data.ProductVariants.Edges) == 0 {
		return nil, integration.ErrVariantNotFound
	}
	node := data.ProductVariants.Edges[0].Node
	return &integration.TargetVariant{
		ID:       node.ID,
		SKU:      node.SKU,
		Quantity: node.QuantityAvailable,
	}, nil
}

// UpdateVariantQuantity sets the variant's recorded stock quantity.
func (a *NauticalAdapter) UpdateVariantQuantity(ctx context.Context, variantID string, quantity int) error {
	var data nauticalStocksUpdateData
	err := a.client.execute(ctx, nauticalStocksUpdateMutation,
		map[string]any{"variantId": variantID, "quantity": quantity}, &data)
	if err != nil {
		return err
	}
	return userErrorsToValidation(platformNautical, "productVariantStocksUpdate", data.ProductVariantStocksUpdate.UserErrors)
}

// ---------------------------------------------------------------------------
// Order Operations
// ---------------------------------------------------------------------------

// OrderByExternalID looks up the order carrying the source platform's id.
func (a *NauticalAdapter) OrderByExternalID(ctx context.Context, externalID string) (*integration.TargetOrder, error) {
	var data nauticalOrdersData
	err := a.client.execute(ctx, nauticalOrderByExternalIDQuery,
		map[string]any{"externalId": externalID}, &data)
	if err != nil {
		return nil, err
	}
	if len(data.Orders.Edges) == 0 {
		return nil, integration.ErrOrderNotFound
	}
	return convertNauticalOrder(data.Orders.Edges[0].Node), nil
}

// CreateOrder creates an order from the draft.
func (a *NauticalAdapter) CreateOrder(ctx context.Context, draft integration.OrderDraft) (*integration.TargetOrder, error) {
	var data nauticalOrderCreateData
	err := a.client.execute(ctx, nauticalOrderCreateMutation,
		map[string]any{"input": orderInput(draft)}, &data)
	if err != nil {
		return nil, err
	}
	if err := userErrorsToValidation(platformNautical, "orderCreate", data.OrderCreate.UserErrors); err != nil {
		return nil, err
	}
	if data.OrderCreate.Order == nil {
		return nil, fmt.Errorf("%w: orderCreate returned no order", integration.ErrInvalidResponse)
	}
	return convertNauticalOrder(*data.OrderCreate.Order), nil
}

// UpdateOrder overwrites the order's synchronized fields with the draft.
func (a *NauticalAdapter) UpdateOrder(ctx context.Context, id string, draft integration.OrderDraft) error {
	var data nauticalOrderUpdateData
	err := a.client.execute(ctx, nauticalOrderUpdateMutation,
		map[string]any{"id": id, "input": orderInput(draft)}, &data)
	if err != nil {
		return err
	}
	return userErrorsToValidation(platformNautical, "orderUpdate", data.OrderUpdate.UserErrors)
}

// ---------------------------------------------------------------------------
// Input builders
// ---------------------------------------------------------------------------

// productInput serializes a draft into the mutation input. Attribute keys
// are sorted so identical drafts produce identical requests.
func productInput(draft integration.ProductDraft) map[string]any {
	input := map[string]any{
		"externalReference": draft.ExternalID,
		"name":              draft.Name,
		"description":       draft.Description,
		"productType":       draft.ProductType,
		"vendor":            draft.Vendor,
		"status":            draft.Status.String(),
	}
	if attrs := attributeList(draft.Attributes); attrs != nil {
		input["attributes"] = attrs
	}

	if len(draft.Variants) > 0 {
		variants := make([]map[string]any, 0, len(draft.Variants))
		for _, v := range draft.Variants {
			variant := map[string]any{
				"externalReference": v.ExternalID,
				"sku":               v.SKU,
				"price":             v.Price.String(),
				"quantity":          v.InventoryQuantity,
				"position":          v.Position,
			}
			if v.CompareAtPrice != nil {
				variant["compareAtPrice"] = v.CompareAtPrice.String()
			}
			if attrs := attributeList(v.Attributes); attrs != nil {
				variant["attributes"] = attrs
			}
			variants = append(variants, variant)
		}
		input["variants"] = variants
	}
	return input
}

// orderInput serializes a draft into the mutation input.
func orderInput(draft integration.OrderDraft) map[string]any {
	input := map[string]any{
		"externalReference": draft.ExternalID,
		"number":            draft.Number,
		"email":             draft.CustomerEmail,
		"status":            draft.Status.String(),
		"currency":          draft.Currency,
		"total":             draft.Total.String(),
	}
	if draft.CustomerPhone != "" {
		input["phone"] = draft.CustomerPhone
	}

	if len(draft.Lines) > 0 {
		lines := make([]map[string]any, 0, len(draft.Lines))
		for _, line := range draft.Lines {
			lines = append(lines, map[string]any{
				"sku":       line.SKU,
				"variantId": line.VariantID,
				"name":      line.Name,
				"quantity":  line.Quantity,
				"unitPrice": line.UnitPrice.String(),
			})
		}
		input["lines"] = lines
	}

	if addr := addressInput(draft.ShippingAddress); addr != nil {
		input["shippingAddress"] = addr
	}
	if addr := addressInput(draft.BillingAddress); addr != nil {
		input["billingAddress"] = addr
	}
	return input
}

func addressInput(addr *integration.TargetAddress) map[string]any {
	if addr == nil {
		return nil
	}
	return map[string]any{
		"firstName":  addr.FirstName,
		"lastName":   addr.LastName,
		"company":    addr.Company,
		"address1":   addr.Address1,
		"address2":   addr.Address2,
		"city":       addr.City,
		"region":     addr.Region,
		"country":    addr.Country,
		"postalCode": addr.PostalCode,
		"phone":      addr.Phone,
	}
}

func attributeList(attrs map[string]string) []map[string]any {
	if len(attrs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	list := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		list = append(list, map[string]any{"key": k, "value": attrs[k]})
	}
	return list
}

// ---------------------------------------------------------------------------
// Conversion
// ---------------------------------------------------------------------------

func convertNauticalProduct(node nauticalProductPayload) *integration.TargetProduct {
	product := &integration.TargetProduct{
		ID:         node.ID,
		ExternalID: node.ExternalReference,
		Name:       node.Name,
		Status:     integration.TargetProductStatus(node.Status),
	}
	for _, v := range node.Variants {
		product.Variants = append(product.Variants, integration.TargetVariant{
			ID:       v.ID,
			SKU:      v.SKU,
			Quantity: v.QuantityAvailable,
		})
	}
	return product
}

func convertNauticalOrder(node nauticalOrderPayload) *integration.TargetOrder {
	return &integration.TargetOrder{
		ID:         node.ID,
		ExternalID: node.ExternalReference,
		Number:     node.Number,
		Status:     integration.TargetOrderStatus(node.Status),
	}
}

// Ensure NauticalAdapter implements the TargetPlatform interface
var _ integration.TargetPlatform = (*NauticalAdapter)(nil)
