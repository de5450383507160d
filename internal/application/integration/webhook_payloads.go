package integration

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/channelsync/backend/internal/domain/integration"
	"github.com/shopspring/decimal"
)

// Webhook bodies wrap the entity in a data envelope.
type webhookEnvelope struct {
	Data json.RawMessage `json:"data"`
}

type productPayload struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	ProductType string            `json:"productType"`
	Vendor      string            `json:"vendor"`
	Status      string            `json:"status"`
	Attributes  map[string]string `json:"attributes"`
	Variants    []variantPayload  `json:"variants"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

type variantPayload struct {
	ID                string            `json:"id"`
	SKU               string            `json:"sku"`
	Price             string            `json:"price"`
	CompareAtPrice    string            `json:"compareAtPrice"`
	InventoryQuantity int               `json:"inventoryQuantity"`
	Position          int               `json:"position"`
	Options           map[string]string `json:"options"`
}

type deletePayload struct {
	ID string `json:"id"`
}

type orderPayload struct {
	ID              string            `json:"id"`
	OrderNumber     string            `json:"orderNumber"`
	Email           string            `json:"email"`
	Phone           string            `json:"phone"`
	FinancialStatus string            `json:"financialStatus"`
	Currency        string            `json:"currency"`
	TotalPrice      string            `json:"totalPrice"`
	LineItems       []lineItemPayload `json:"lineItems"`
	ShippingAddress *addressPayload   `json:"shippingAddress"`
	BillingAddress  *addressPayload   `json:"billingAddress"`
	CreatedAt       time.Time         `json:"createdAt"`
}

type lineItemPayload struct {
	SKU       string `json:"sku"`
	VariantID string `json:"variantId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

type addressPayload struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Company   string `json:"company"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	City      string `json:"city"`
	Region    string `json:"province"`
	Country   string `json:"country"`
	Zip       string `json:"zip"`
	Phone     string `json:"phone"`
}

type inventoryPayload struct {
	SKU    string `json:"sku"`
	Levels []struct {
		LocationID string `json:"locationId"`
		Available  int    `json:"available"`
	} `json:"levels"`
}

func unwrapEnvelope(raw []byte) (json.RawMessage, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("webhook body is not valid JSON: %w", err)
	}
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("webhook body has no data field")
	}
	return env.Data, nil
}

func decodeProductPayload(raw []byte) (integration.Product, error) {
	data, err := unwrapEnvelope(raw)
	if err != nil {
		return integration.Product{}, err
	}
	var p productPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return integration.Product{}, fmt.Errorf("decode product payload: %w", err)
	}
	if p.ID == "" {
		return integration.Product{}, fmt.Errorf("product payload has no id")
	}

	product := integration.Product{
		ExternalID:  p.ID,
		Name:        p.Name,
		Description: p.Description,
		ProductType: p.ProductType,
		Vendor:      p.Vendor,
		Status:      integration.SourceProductStatus(p.Status),
		Attributes:  p.Attributes,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	for _, v := range p.Variants {
		price, err := parseMoney(v.Price)
		if err != nil {
			return integration.Product{}, fmt.Errorf("variant %s price: %w", v.SKU, err)
		}
		variant := integration.Variant{
			ExternalID:        v.ID,
			SKU:               v.SKU,
			Price:             price,
			InventoryQuantity: v.InventoryQuantity,
			Position:          v.Position,
			OptionValues:      v.Options,
		}
		if v.CompareAtPrice != "" {
			compareAt, err := parseMoney(v.CompareAtPrice)
			if err != nil {
				return integration.Product{}, fmt.Errorf("variant %s compareAtPrice: %w", v.SKU, err)
			}
			variant.CompareAtPrice = &compareAt
		}
		product.Variants = append(product.Variants, variant)
	}
	return product, nil
}

func decodeDeletePayload(raw []byte) (string, error) {
	data, err := unwrapEnvelope(raw)
	if err != nil {
		return "", err
	}
	var p deletePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return "", fmt.Errorf("decode delete payload: %w", err)
	}
	if p.ID == "" {
		return "", fmt.Errorf("delete payload has no id")
	}
	return p.ID, nil
}

func decodeOrderPayload(raw []byte) (integration.Order, error) {
	data, err := unwrapEnvelope(raw)
	if err != nil {
		return integration.Order{}, err
	}
	var p orderPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return integration.Order{}, fmt.Errorf("decode order payload: %w", err)
	}
	if p.ID == "" {
		return integration.Order{}, fmt.Errorf("order payload has no id")
	}

	total, err := parseMoney(p.TotalPrice)
	if err != nil {
		return integration.Order{}, fmt.Errorf("order %s totalPrice: %w", p.ID, err)
	}
	order := integration.Order{
		ExternalID:      p.ID,
		OrderNumber:     p.OrderNumber,
		CustomerEmail:   p.Email,
		CustomerPhone:   p.Phone,
		FinancialStatus: integration.SourceOrderStatus(p.FinancialStatus),
		Currency:        p.Currency,
		TotalPrice:      total,
		ShippingAddress: toAddress(p.ShippingAddress),
		BillingAddress:  toAddress(p.BillingAddress),
		CreatedAt:       p.CreatedAt,
	}
	for _, line := range p.LineItems {
		linePrice, err := parseMoney(line.Price)
		if err != nil {
			return integration.Order{}, fmt.Errorf("order %s line %s price: %w", p.ID, line.SKU, err)
		}
		order.LineItems = append(order.LineItems, integration.OrderLineItem{
			SKU:       line.SKU,
			VariantID: line.VariantID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			LinePrice: linePrice,
		})
	}
	return order, nil
}

func decodeInventoryPayload(raw []byte) (string, []integration.InventoryLevel, error) {
	data, err := unwrapEnvelope(raw)
	if err != nil {
		return "", nil, err
	}
	var p inventoryPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return "", nil, fmt.Errorf("decode inventory payload: %w", err)
	}
	if p.SKU == "" {
		return "", nil, fmt.Errorf("inventory payload has no sku")
	}

	levels := make([]integration.InventoryLevel, 0, len(p.Levels))
	for _, l := range p.Levels {
		levels = append(levels, integration.InventoryLevel{
			LocationID: l.LocationID,
			Available:  l.Available,
		})
	}
	return p.SKU, levels, nil
}

func toAddress(a *addressPayload) *integration.Address {
	if a == nil {
		return nil
	}
	return &integration.Address{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Company:   a.Company,
		Address1:  a.Address1,
		Address2:  a.Address2,
		City:      a.City,
		Region:    a.Region,
		Country:   a.Country,
		Zip:       a.Zip,
		Phone:     a.Phone,
	}
}

func parseMoney(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
