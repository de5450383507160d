package ecommerce

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/channelsync/backend/internal/domain/integration"
)

// Response payloads for the Shopify Admin GraphQL API. Field names follow the
// API's camelCase schema.

// shopifyProductsData is the data payload of the product listing query.
type shopifyProductsData struct {
	Products connectionPayload[shopifyProductPayload] `json:"products"`
}

// shopifyVariantsData is the data payload of the inventory listing query.
type shopifyVariantsData struct {
	ProductVariants connectionPayload[shopifyInventoryVariantPayload] `json:"productVariants"`
}

// shopifyOrdersData is the data payload of the order listing query.
type shopifyOrdersData struct {
	Orders connectionPayload[shopifyOrderPayload] `json:"orders"`
}

// shopifyWebhookCreateData is the data payload of webhookSubscriptionCreate.
type shopifyWebhookCreateData struct {
	WebhookSubscriptionCreate struct {
		WebhookSubscription *struct {
			ID string `json:"id"`
		} `json:"webhookSubscription"`
		UserErrors []graphQLUserError `json:"userErrors"`
	} `json:"webhookSubscriptionCreate"`
}

type shopifyProductPayload struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	DescriptionHTML string    `json:"descriptionHtml"`
	ProductType     string    `json:"productType"`
	Vendor          string    `json:"vendor"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`

	Metafields connectionPayload[shopifyMetafieldPayload] `json:"metafields"`
	Variants   connectionPayload[shopifyVariantPayload]   `json:"variants"`
}

type shopifyMetafieldPayload struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type shopifyVariantPayload struct {
	ID                string                         `json:"id"`
	SKU               string                         `json:"sku"`
	Price             string                         `json:"price"`
	CompareAtPrice    string                         `json:"compareAtPrice"`
	InventoryQuantity int                            `json:"inventoryQuantity"`
	Position          int                            `json:"position"`
	SelectedOptions   []shopifySelectedOptionPayload `json:"selectedOptions"`
}

type shopifySelectedOptionPayload struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type shopifyInventoryVariantPayload struct {
	ID            string `json:"id"`
	SKU           string `json:"sku"`
	InventoryItem struct {
		InventoryLevels connectionPayload[shopifyInventoryLevelPayload] `json:"inventoryLevels"`
	} `json:"inventoryItem"`
}

type shopifyInventoryLevelPayload struct {
	Available int `json:"available"`
	Location  struct {
		ID string `json:"id"`
	} `json:"location"`
}

type shopifyOrderPayload struct {
	ID                     string                 `json:"id"`
	Name                   string                 `json:"name"`
	Email                  string                 `json:"email"`
	Phone                  string                 `json:"phone"`
	DisplayFinancialStatus string                 `json:"displayFinancialStatus"`
	CurrencyCode           string                 `json:"currencyCode"`
	CreatedAt              time.Time              `json:"createdAt"`
	TotalPriceSet          shopifyMoneyBagPayload `json:"totalPriceSet"`
	ShippingAddress        *shopifyAddressPayload `json:"shippingAddress"`
	BillingAddress         *shopifyAddressPayload `json:"billingAddress"`

	LineItems connectionPayload[shopifyLineItemPayload] `json:"lineItems"`
}

type shopifyMoneyBagPayload struct {
	ShopMoney struct {
		Amount string `json:"amount"`
	} `json:"shopMoney"`
}

type shopifyLineItemPayload struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Variant  *struct {
		ID string `json:"id"`
	} `json:"variant"`
	OriginalTotalSet shopifyMoneyBagPayload `json:"originalTotalSet"`
}

type shopifyAddressPayload struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Company   string `json:"company"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	City      string `json:"city"`
	Province  string `json:"province"`
	Country   string `json:"country"`
	Zip       string `json:"zip"`
	Phone     string `json:"phone"`
}

// parseAmount converts a decimal amount string from either platform's wire
// format. Empty strings mean the field was absent and decode to zero.
func parseAmount(field, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %s %q: %v", integration.ErrInvalidResponse, field, value, err)
	}
	return d, nil
}
