package pool

import "time"

// SemanticType classifies what a recycled identifier is, e.g.
// entity.product.id or entity.variant.sku. Each type is kept in its own ring.
type SemanticType string

// Semantic types produced and consumed by synthetic webhook traffic
const (
	// Entity types
	SemanticTypeProductID  SemanticType = "entity.product.id"
	SemanticTypeVariantID  SemanticType = "entity.variant.id"
	SemanticTypeVariantSKU SemanticType = "entity.variant.sku"
	SemanticTypeLocationID SemanticType = "entity.location.id"

	// Order types
	SemanticTypeOrderID     SemanticType = "order.id"
	SemanticTypeOrderNumber SemanticType = "order.number"

	// Common types
	SemanticTypeEmail     SemanticType = "common.email"
	SemanticTypePhone     SemanticType = "common.phone"
	SemanticTypeTimestamp SemanticType = "common.timestamp"
	SemanticTypeUUID      SemanticType = "common.uuid"
)

// ParameterValue is one identifier recycled between deliveries, together
// with where in the traffic it came from.
type ParameterValue struct {
	// Value holds the identifier itself. Treated as immutable once pooled.
	Value any

	// SemanticType classifies the identifier.
	SemanticType SemanticType

	// SourceTopic is the webhook topic whose delivery minted this value
	// (e.g. "products/create").
	SourceTopic string

	// PayloadPath is the JSON path of the field inside the delivery payload
	// (e.g. "data.id").
	PayloadPath string

	// CreatedAt is when the value was minted.
	CreatedAt time.Time

	// ExpiresAt is when the value stops being drawable. The zero value
	// means no expiry; Pool.Add stamps the pool TTL onto it.
	ExpiresAt time.Time
}

// NewParameterValue creates a value carrying the given identifier.
func NewParameterValue(value any, semanticType SemanticType) *ParameterValue {
	return &ParameterValue{
		Value:        value,
		SemanticType: semanticType,
		CreatedAt:    time.Now(),
	}
}

// WithSource records the topic and payload field the value was taken from.
func (pv *ParameterValue) WithSource(topic, path string) *ParameterValue {
	pv.SourceTopic = topic
	pv.PayloadPath = path
	return pv
}

// IsExpired reports whether the value is past its expiry.
func (pv *ParameterValue) IsExpired() bool {
	return pv.expiredAt(time.Now())
}

func (pv *ParameterValue) expiredAt(now time.Time) bool {
	if pv.ExpiresAt.IsZero() {
		return false
	}
	return now.After(pv.ExpiresAt)
}
