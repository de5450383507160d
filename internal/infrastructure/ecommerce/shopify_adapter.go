package ecommerce

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/channelsync/backend/internal/domain/integration"
)

// platformShopify is the platform name reported in logs and errors
const platformShopify = "shopify"

// GraphQL documents for the Shopify Admin API.
const (
	shopifyListProductsQuery = `
		query ListProducts($first: Int!, $after: String) {
			products(first: $first, after: $after, sortKey: UPDATED_AT) {
				pageInfo { hasNextPage endCursor }
				edges { node {
					id title descriptionHtml productType vendor status createdAt updatedAt
					metafields(first: 50) { edges { node { key value } } }
					variants(first: 100) { edges { node {
						id sku price compareAtPrice inventoryQuantity position
						selectedOptions { name value }
					} } }
				} }
			}
		}`

	shopifyListInventoryQuery = `
		query ListInventory($first: Int!, $after: String) {
			productVariants(first: $first, after: $after) {
				pageInfo { hasNextPage endCursor }
				edges { node {
					id sku
					inventoryItem {
						inventoryLevels(first: 50) { edges { node { available location { id } } } }
					}
				} }
			}
		}`

	shopifyListOrdersQuery = `
		query ListOrders($first: Int!, $after: String, $query: String) {
			orders(first: $first, after: $after, query: $query, sortKey: CREATED_AT) {
				pageInfo { hasNextPage endCursor }
				edges { node {
					id name email phone displayFinancialStatus currencyCode createdAt
					totalPriceSet { shopMoney { amount } }
					shippingAddress { firstName lastName company address1 address2 city province country zip phone }
					billingAddress { firstName lastName company address1 address2 city province country zip phone }
					lineItems(first: 100) { edges { node {
						sku name quantity
						variant { id }
						originalTotalSet { shopMoney { amount } }
					} } }
				} }
			}
		}`

	shopifyWebhookCreateMutation = `
		mutation RegisterWebhook($topic: WebhookSubscriptionTopic!, $webhookSubscription: WebhookSubscriptionInput!) {
			webhookSubscriptionCreate(topic: $topic, webhookSubscription: $webhookSubscription) {
				webhookSubscription { id }
				userErrors { field message }
			}
		}`
)

// ShopifyAdapter implements the SourcePlatform port against the Shopify
// Admin GraphQL API. The storefront is read-only for the engine; the only
// mutation issued is webhook registration.
type ShopifyAdapter struct {
	config *ShopifyConfig
	client *graphQLClient
}

// NewShopifyAdapter creates a new Shopify adapter with the given configuration
func NewShopifyAdapter(config *ShopifyConfig) (*ShopifyAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &ShopifyAdapter{
		config: config,
		client: newGraphQLClient(
			platformShopify,
			config.EndpointURL(),
			time.Duration(config.TimeoutSeconds)*time.Second,
			config.MaxRequestsPerSecond,
			map[string]string{"X-Shopify-Access-Token": config.AccessToken},
		),
	}, nil
}

// Name returns the platform name this adapter handles
func (a *ShopifyAdapter) Name() string {
	return platformShopify
}

// ---------------------------------------------------------------------------
// Product Operations
// ---------------------------------------------------------------------------

// ListProducts fetches one page of the product catalog.
func (a *ShopifyAdapter) ListProducts(ctx context.Context, cursor string, limit int) (integration.ProductPage, error) {
	var data shopifyProductsData
	if err := a.client.execute(ctx, shopifyListProductsQuery, pageVariables(cursor, limit), &data); err != nil {
		return integration.ProductPage{}, err
	}

	products := make([]integration.Product, 0, len(data.Products.Edges))
	for _, node := range data.Products.nodes() {
		product, err := convertShopifyProduct(node)
		if err != nil {
			return integration.ProductPage{}, err
		}
		products = append(products, product)
	}

	return integration.ProductPage{
		Products:    products,
		HasNextPage: data.Products.PageInfo.HasNextPage,
		EndCursor:   data.Products.PageInfo.EndCursor,
	}, nil
}

// ---------------------------------------------------------------------------
// Inventory Operations
// ---------------------------------------------------------------------------

// ListInventory fetches one page of per-variant stock levels.
func (a *ShopifyAdapter) ListInventory(ctx context.Context, cursor string, limit int) (integration.InventoryPage, error) {
	var data shopifyVariantsData
	if err := a.client.execute(ctx, shopifyListInventoryQuery, pageVariables(cursor, limit), &data); err != nil {
		return integration.InventoryPage{}, err
	}

	items := make([]integration.InventoryItem, 0, len(data.ProductVariants.Edges))
	for _, node := range data.ProductVariants.nodes() {
		items = append(items, convertShopifyInventory(node))
	}

	return integration.InventoryPage{
		Items:       items,
		HasNextPage: data.ProductVariants.PageInfo.HasNextPage,
		EndCursor:   data.ProductVariants.PageInfo.EndCursor,
	}, nil
}

// ---------------------------------------------------------------------------
// Order Operations
// ---------------------------------------------------------------------------

// ListOrders fetches one page of orders created at or after the given time.
func (a *ShopifyAdapter) ListOrders(ctx context.Context, createdAfter time.Time, cursor string, limit int) (integration.OrderPage, error) {
	variables := pageVariables(cursor, limit)
	variables["query"] = fmt.Sprintf("created_at:>='%s'", createdAfter.UTC().Format(time.RFC3339))

	var data shopifyOrdersData
	if err := a.client.execute(ctx, shopifyListOrdersQuery, variables, &data); err != nil {
		return integration.OrderPage{}, err
	}

	orders := make([]integration.Order, 0, len(data.Orders.Edges))
	for _, node := range data.Orders.nodes() {
		order, err := convertShopifyOrder(node)
		if err != nil {
			return integration.OrderPage{}, err
		}
		orders = append(orders, order)
	}

	return integration.OrderPage{
		Orders:      orders,
		HasNextPage: data.Orders.PageInfo.HasNextPage,
		EndCursor:   data.Orders.PageInfo.EndCursor,
	}, nil
}

// ---------------------------------------------------------------------------
// Webhook Registration
// ---------------------------------------------------------------------------

// RegisterWebhooks subscribes the callback URL to each topic. Already
// existing subscriptions surface as userErrors from the API and are treated
// as success for that topic.
func (a *ShopifyAdapter) RegisterWebhooks(ctx context.Context, callbackURL string, topics []string) error {
	for _, topic := range topics {
		variables := map[string]any{
			"topic": shopifyWebhookTopic(topic),
			"webhookSubscription": map[string]any{
				"callbackUrl": callbackURL,
				"format":      "JSON",
			},
		}

		var data shopifyWebhookCreateData
		if err := a.client.execute(ctx, shopifyWebhookCreateMutation, variables, &data); err != nil {
			return fmt.Errorf("register webhook %s: %w", topic, err)
		}

		userErrors := data.WebhookSubscriptionCreate.UserErrors
		if alreadySubscribed(userErrors) {
			continue
		}
		if err := userErrorsToValidation(platformShopify, "webhookSubscriptionCreate", userErrors); err != nil {
			return fmt.Errorf("register webhook %s: %w", topic, err)
		}
	}
	return nil
}

// alreadySubscribed reports whether the only failure is a duplicate
// subscription, which re-registration on every startup produces routinely.
func alreadySubscribed(errs []graphQLUserError) bool {
	if len(errs) == 0 {
		return false
	}
	for _, e := range errs {
		if !strings.Contains(strings.ToLower(e.Message), "already") {
			return false
		}
	}
	return true
}

// shopifyWebhookTopic converts a "resource/event" topic to the API's enum
// form, e.g. "products/create" to PRODUCTS_CREATE.
func shopifyWebhookTopic(topic string) string {
	return strings.ToUpper(strings.ReplaceAll(topic, "/", "_"))
}

// ---------------------------------------------------------------------------
// Conversion
// ---------------------------------------------------------------------------

func convertShopifyProduct(node shopifyProductPayload) (integration.Product, error) {
	product := integration.Product{
		ExternalID:  node.ID,
		Name:        node.Title,
		Description: node.DescriptionHTML,
		ProductType: node.ProductType,
		Vendor:      node.Vendor,
		Status:      integration.SourceProductStatus(node.Status),
		CreatedAt:   node.CreatedAt,
		UpdatedAt:   node.UpdatedAt,
	}

	if len(node.Metafields.Edges) > 0 {
		product.Attributes = make(map[string]string, len(node.Metafields.Edges))
		for _, mf := range node.Metafields.nodes() {
			product.Attributes[mf.Key] = mf.Value
		}
	}

	for _, v := range node.Variants.nodes() {
		variant, err := convertShopifyVariant(v)
		if err != nil {
			return integration.Product{}, fmt.Errorf("product %s: %w", node.ID, err)
		}
		product.Variants = append(product.Variants, variant)
	}
	return product, nil
}

func convertShopifyVariant(node shopifyVariantPayload) (integration.Variant, error) {
	price, err := parseAmount("price", node.Price)
	if err != nil {
		return integration.Variant{}, err
	}

	variant := integration.Variant{
		ExternalID:        node.ID,
		SKU:               node.SKU,
		Price:             price,
		InventoryQuantity: node.InventoryQuantity,
		Position:          node.Position,
	}

	if node.CompareAtPrice != "" {
		compareAt, err := parseAmount("compareAtPrice", node.CompareAtPrice)
		if err != nil {
			return integration.Variant{}, err
		}
		variant.CompareAtPrice = &compareAt
	}

	if len(node.SelectedOptions) > 0 {
		variant.OptionValues = make(map[string]string, len(node.SelectedOptions))
		for _, opt := range node.SelectedOptions {
			variant.OptionValues[opt.Name] = opt.Value
		}
	}
	return variant, nil
}

func convertShopifyInventory(node shopifyInventoryVariantPayload) integration.InventoryItem {
	item := integration.InventoryItem{
		SKU:       node.SKU,
		VariantID: node.ID,
	}
	for _, level := range node.InventoryItem.InventoryLevels.nodes() {
		item.Levels = append(item.Levels, integration.InventoryLevel{
			LocationID: level.Location.ID,
			Available:  level.Available,
		})
	}
	item.Quantity = item.TotalAvailable()
	return item
}

func convertShopifyOrder(node shopifyOrderPayload) (integration.Order, error) {
	total, err := parseAmount("totalPrice", node.TotalPriceSet.ShopMoney.Amount)
	if err != nil {
		return integration.Order{}, fmt.Errorf("order %s: %w", node.ID, err)
	}

	order := integration.Order{
		ExternalID:      node.ID,
		OrderNumber:     node.Name,
		CustomerEmail:   node.Email,
		CustomerPhone:   node.Phone,
		FinancialStatus: integration.SourceOrderStatus(node.DisplayFinancialStatus),
		Currency:        node.CurrencyCode,
		TotalPrice:      total,
		ShippingAddress: convertShopifyAddress(node.ShippingAddress),
		BillingAddress:  convertShopifyAddress(node.BillingAddress),
		CreatedAt:       node.CreatedAt,
	}

	for _, line := range node.LineItems.nodes() {
		linePrice, err := parseAmount("lineItem price", line.OriginalTotalSet.ShopMoney.Amount)
		if err != nil {
			return integration.Order{}, fmt.Errorf("order %s: %w", node.ID, err)
		}
		item := integration.OrderLineItem{
			SKU:       line.SKU,
			Name:      line.Name,
			Quantity:  line.Quantity,
			LinePrice: linePrice,
		}
		if line.Variant != nil {
			item.VariantID = line.Variant.ID
		}
		order.LineItems = append(order.LineItems, item)
	}
	return order, nil
}

func convertShopifyAddress(node *shopifyAddressPayload) *integration.Address {
	if node == nil {
		return nil
	}
	return &integration.Address{
		FirstName: node.FirstName,
		LastName:  node.LastName,
		Company:   node.Company,
		Address1:  node.Address1,
		Address2:  node.Address2,
		City:      node.City,
		Region:    node.Province,
		Country:   node.Country,
		Zip:       node.Zip,
		Phone:     node.Phone,
	}
}

// Ensure ShopifyAdapter implements the SourcePlatform interface
var _ integration.SourcePlatform = (*ShopifyAdapter)(nil)
