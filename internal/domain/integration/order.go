package integration

import (
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// SourceOrderStatus represents an order's financial status on the storefront
// ---------------------------------------------------------------------------

// SourceOrderStatus represents an order's financial status on the storefront
type SourceOrderStatus string

const (
	// SourceOrderStatusPending indicates payment has not completed
	SourceOrderStatusPending SourceOrderStatus = "PENDING"
	// SourceOrderStatusAuthorized indicates payment is authorized but not captured
	SourceOrderStatusAuthorized SourceOrderStatus = "AUTHORIZED"
	// SourceOrderStatusPaid indicates payment completed in full
	SourceOrderStatusPaid SourceOrderStatus = "PAID"
	// SourceOrderStatusPartiallyPaid indicates a partial capture
	SourceOrderStatusPartiallyPaid SourceOrderStatus = "PARTIALLY_PAID"
	// SourceOrderStatusPartiallyRefunded indicates a partial refund
	SourceOrderStatusPartiallyRefunded SourceOrderStatus = "PARTIALLY_REFUNDED"
	// SourceOrderStatusRefunded indicates a full refund
	SourceOrderStatusRefunded SourceOrderStatus = "REFUNDED"
	// SourceOrderStatusVoided indicates the authorization was voided
	SourceOrderStatusVoided SourceOrderStatus = "VOIDED"
)

// IsValid returns true if the status is part of the source vocabulary
func (s SourceOrderStatus) IsValid() bool {
	switch s {
	case SourceOrderStatusPending, SourceOrderStatusAuthorized, SourceOrderStatusPaid,
		SourceOrderStatusPartiallyPaid, SourceOrderStatusPartiallyRefunded,
		SourceOrderStatusRefunded, SourceOrderStatusVoided:
		return true
	default:
		return false
	}
}

// String returns the string representation of SourceOrderStatus
func (s SourceOrderStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// TargetOrderStatus represents an order's financial status on the marketplace
// ---------------------------------------------------------------------------

// TargetOrderStatus represents an order's financial status on the marketplace
type TargetOrderStatus string

const (
	// TargetOrderStatusPending indicates payment has not completed
	TargetOrderStatusPending TargetOrderStatus = "PENDING"
	// TargetOrderStatusAuthorized indicates payment is authorized but not captured
	TargetOrderStatusAuthorized TargetOrderStatus = "AUTHORIZED"
	// TargetOrderStatusPaid indicates payment completed in full
	TargetOrderStatusPaid TargetOrderStatus = "PAID"
	// TargetOrderStatusPartiallyPaid indicates a partial capture
	TargetOrderStatusPartiallyPaid TargetOrderStatus = "PARTIALLY_PAID"
	// TargetOrderStatusPartiallyRefunded indicates a partial refund
	TargetOrderStatusPartiallyRefunded TargetOrderStatus = "PARTIALLY_REFUNDED"
	// TargetOrderStatusRefunded indicates a full refund
	TargetOrderStatusRefunded TargetOrderStatus = "REFUNDED"
	// TargetOrderStatusVoided indicates the authorization was voided
	TargetOrderStatusVoided TargetOrderStatus = "VOIDED"
)

// IsValid returns true if the status is part of the target vocabulary
func (s TargetOrderStatus) IsValid() bool {
	switch s {
	case TargetOrderStatusPending, TargetOrderStatusAuthorized, TargetOrderStatusPaid,
		TargetOrderStatusPartiallyPaid, TargetOrderStatusPartiallyRefunded,
		TargetOrderStatusRefunded, TargetOrderStatusVoided:
		return true
	default:
		return false
	}
}

// String returns the string representation of TargetOrderStatus
func (s TargetOrderStatus) String() string {
	return string(s)
}

// orderStatusMappings is the fixed source→target financial-status table.
var orderStatusMappings = map[SourceOrderStatus]TargetOrderStatus{
	SourceOrderStatusPending:           TargetOrderStatusPending,
	SourceOrderStatusAuthorized:        TargetOrderStatusAuthorized,
	SourceOrderStatusPaid:              TargetOrderStatusPaid,
	SourceOrderStatusPartiallyPaid:     TargetOrderStatusPartiallyPaid,
	SourceOrderStatusPartiallyRefunded: TargetOrderStatusPartiallyRefunded,
	SourceOrderStatusRefunded:          TargetOrderStatusRefunded,
	SourceOrderStatusVoided:            TargetOrderStatusVoided,
}

// MapOrderStatus translates a storefront financial status into the
// marketplace vocabulary. Unrecognized statuses degrade to PENDING; an
// unknown status never fails an order flow.
func MapOrderStatus(s SourceOrderStatus) TargetOrderStatus {
	if mapped, ok := orderStatusMappings[s]; ok {
		return mapped
	}
	return TargetOrderStatusPending
}

// ---------------------------------------------------------------------------
// Order (source representation)
// ---------------------------------------------------------------------------

// Order is a storefront order as read from the source platform or carried in
// a webhook payload.
type Order struct {
	ExternalID      string
	OrderNumber     string
	CustomerEmail   string
	CustomerPhone   string
	FinancialStatus SourceOrderStatus
	Currency        string
	TotalPrice      decimal.Decimal
	LineItems       []OrderLineItem
	ShippingAddress *Address
	BillingAddress  *Address
	CreatedAt       time.Time
}

// OrderLineItem is one line of a storefront order. LinePrice is the line's
// aggregate price across the full quantity.
type OrderLineItem struct {
	SKU       string
	VariantID string
	Name      string
	Quantity  int
	LinePrice decimal.Decimal
}

// Address is a storefront postal address. Zip is the storefront's name for
// the postal code.
type Address struct {
	FirstName string
	LastName  string
	Company   string
	Address1  string
	Address2  string
	City      string
	Region    string
	Country   string
	Zip       string
	Phone     string
}

// ---------------------------------------------------------------------------
// TargetOrder (marketplace representation)
// ---------------------------------------------------------------------------

// TargetOrder is the marketplace's view of an order, as returned by the
// external-id finder query.
type TargetOrder struct {
	ID         string
	ExternalID string
	Number     string
	Status     TargetOrderStatus
}

// ---------------------------------------------------------------------------
// OrderDraft (payload for target mutations)
// ---------------------------------------------------------------------------

// OrderDraft is an order shaped for the target platform's schema.
type OrderDraft struct {
	ExternalID      string
	Number          string
	CustomerEmail   string
	CustomerPhone   string
	Status          TargetOrderStatus
	Currency        string
	Total           decimal.Decimal
	Lines           []OrderLineDraft
	ShippingAddress *TargetAddress
	BillingAddress  *TargetAddress
}

// OrderLineDraft is one order line shaped for the target platform's schema.
// UnitPrice is per unit; the target API does not accept aggregate line prices.
type OrderLineDraft struct {
	SKU       string
	VariantID string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// TargetAddress is a postal address in the target platform's field naming.
type TargetAddress struct {
	FirstName  string
	LastName   string
	Company    string
	Address1   string
	Address2   string
	City       string
	Region     string
	Country    string
	PostalCode string
	Phone      string
}

// BuildOrderDraft translates a storefront order into a draft shaped for the
// target platform. Pure; no I/O.
//
// Unit prices are derived by dividing each line's aggregate price by its
// quantity, which assumes uniform per-unit pricing within a line. Discounts
// and taxes spread across a line make this approximate; that simplification
// is accepted and documented rather than compensated for.
func BuildOrderDraft(source Order) OrderDraft {
	draft := OrderDraft{
		ExternalID:      source.ExternalID,
		Number:          source.OrderNumber,
		CustomerEmail:   source.CustomerEmail,
		CustomerPhone:   source.CustomerPhone,
		Status:          MapOrderStatus(source.FinancialStatus),
		Currency:        source.Currency,
		Total:           source.TotalPrice,
		ShippingAddress: buildTargetAddress(source.ShippingAddress),
		BillingAddress:  buildTargetAddress(source.BillingAddress),
	}
	if len(source.LineItems) == 0 {
		return draft
	}
	draft.Lines = make([]OrderLineDraft, 0, len(source.LineItems))
	for _, line := range source.LineItems {
		draft.Lines = append(draft.Lines, OrderLineDraft{
			SKU:       line.SKU,
			VariantID: line.VariantID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: unitPrice(line),
		})
	}
	return draft
}

func unitPrice(line OrderLineItem) decimal.Decimal {
	if line.Quantity <= 1 {
		return line.LinePrice
	}
	return line.LinePrice.Div(decimal.NewFromInt(int64(line.Quantity))).Round(2)
}

// buildTargetAddress renames zip to postalCode. A nil source address stays
// nil on the draft.
func buildTargetAddress(a *Address) *TargetAddress {
	if a == nil {
		return nil
	}
	return &TargetAddress{
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		Company:    a.Company,
		Address1:   a.Address1,
		Address2:   a.Address2,
		City:       a.City,
		Region:     a.Region,
		Country:    a.Country,
		PostalCode: a.Zip,
		Phone:      a.Phone,
	}
}

// ---------------------------------------------------------------------------
// OrderAction
// ---------------------------------------------------------------------------

// OrderAction is the reconciler's verdict for one incoming order.
type OrderAction string

const (
	// OrderActionCreate indicates the order is new on the target
	OrderActionCreate OrderAction = "CREATE"
	// OrderActionUpdate indicates the target order exists with a stale status
	OrderActionUpdate OrderAction = "UPDATE"
	// OrderActionSkip indicates the target order is already current
	OrderActionSkip OrderAction = "SKIP"
)

// String returns the string representation of OrderAction
func (a OrderAction) String() string {
	return string(a)
}

// DecideOrderAction picks the write (or non-write) for an incoming order
// given the target's current record, if any. A nil existing order means the
// order was not found on the target.
func DecideOrderAction(existing *TargetOrder, next TargetOrderStatus) OrderAction {
	switch {
	case existing == nil:
		return OrderActionCreate
	case existing.Status == next:
		return OrderActionSkip
	default:
		return OrderActionUpdate
	}
}
