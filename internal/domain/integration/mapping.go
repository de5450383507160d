package integration

import (
	"encoding/json"
	"fmt"
)

// ---------------------------------------------------------------------------
// AttributeMapping
// ---------------------------------------------------------------------------

// AttributeMapping is one row of the externally managed field-translation
// table. The table is authored outside this engine and consumed read-only;
// within a single flow run it is an immutable input.
type AttributeMapping struct {
	SourceField string
	TargetField string
	Description string
}

// mappingDocument mirrors the wire shape of the mapping table. The key names
// come from the platforms the table was authored against.
type mappingDocument struct {
	Mappings []mappingEntry `json:"mappings"`
}

type mappingEntry struct {
	SourceField string `json:"shopifyAttribute"`
	TargetField string `json:"nauticalAttribute"`
	Description string `json:"description"`
}

// ParseMappingConfig decodes the JSON mapping document. It is called once at
// flow entry; any malformed input surfaces as a *ConfigError so the flow
// aborts before touching either platform.
func ParseMappingConfig(raw []byte) ([]AttributeMapping, error) {
	if len(raw) == 0 {
		return nil, &ConfigError{Reason: "mapping document is empty"}
	}

	var doc mappingDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &ConfigError{Reason: "mapping document is not valid JSON", Err: err}
	}

	mappings := make([]AttributeMapping, 0, len(doc.Mappings))
	for i, entry := range doc.Mappings {
		if entry.SourceField == "" || entry.TargetField == "" {
			return nil, &ConfigError{
				Reason: fmt.Sprintf("mapping entry %d is missing shopifyAttribute or nauticalAttribute", i),
			}
		}
		mappings = append(mappings, AttributeMapping{
			SourceField: entry.SourceField,
			TargetField: entry.TargetField,
			Description: entry.Description,
		})
	}
	return mappings, nil
}
