package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewParameterValue(t *testing.T) {
	pv := NewParameterValue("gid://shopify/Product/42", SemanticTypeProductID)

	assert.Equal(t, "gid://shopify/Product/42", pv.Value)
	assert.Equal(t, SemanticTypeProductID, pv.SemanticType)
	assert.WithinDuration(t, time.Now(), pv.CreatedAt, time.Second)
	assert.True(t, pv.ExpiresAt.IsZero(), "expiry is left for the pool to stamp")
}

func TestParameterValueWithSource(t *testing.T) {
	pv := NewParameterValue("SKU-00001", SemanticTypeVariantSKU).
		WithSource("products/create", "data.variants[*].sku")

	assert.Equal(t, "products/create", pv.SourceTopic)
	assert.Equal(t, "data.variants[*].sku", pv.PayloadPath)
}

func TestParameterValueIsExpired(t *testing.T) {
	pv := NewParameterValue("gid://shopify/Order/1", SemanticTypeOrderID)
	assert.False(t, pv.IsExpired(), "no expiry means never expired")

	pv.ExpiresAt = time.Now().Add(time.Hour)
	assert.False(t, pv.IsExpired())

	pv.ExpiresAt = time.Now().Add(-time.Hour)
	assert.True(t, pv.IsExpired())
}
