package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// ParseMappingConfig Tests
// ---------------------------------------------------------------------------

func TestParseMappingConfig_ValidDocument(t *testing.T) {
	raw := []byte(`{
		"mappings": [
			{"shopifyAttribute": "tags", "nauticalAttribute": "keywords", "description": "free-form tags"},
			{"shopifyAttribute": "vendor", "nauticalAttribute": "brand"}
		]
	}`)

	mappings, err := ParseMappingConfig(raw)
	require.NoError(t, err)
	require.Len(t, mappings, 2)

	assert.Equal(t, "tags", mappings[0].SourceField)
	assert.Equal(t, "keywords", mappings[0].TargetField)
	assert.Equal(t, "free-form tags", mappings[0].Description)
	assert.Equal(t, "brand", mappings[1].TargetField)
	assert.Empty(t, mappings[1].Description)
}

func TestParseMappingConfig_EmptyMappingsList(t *testing.T) {
	mappings, err := ParseMappingConfig([]byte(`{"mappings": []}`))
	require.NoError(t, err)
	assert.Empty(t, mappings)
}

func TestParseMappingConfig_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"empty input", nil},
		{"truncated JSON", []byte(`{"mappings": [`)},
		{"plain text", []byte(`not json at all`)},
		{"entry missing target", []byte(`{"mappings": [{"shopifyAttribute": "tags"}]}`)},
		{"entry missing source", []byte(`{"mappings": [{"nauticalAttribute": "keywords"}]}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMappingConfig(tt.raw)

			var configErr *ConfigError
			require.ErrorAs(t, err, &configErr)
		})
	}
}
