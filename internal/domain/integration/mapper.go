package integration

import (
	"golang.org/x/text/cases"
)

// ---------------------------------------------------------------------------
// Field mapper
// ---------------------------------------------------------------------------

// MapProduct translates a source product into a draft shaped for the target
// platform. It is pure: no I/O, no clock, and the same inputs always produce
// the same draft.
//
// The mapping table only governs free-form attributes and variant option
// names. Structural fields (name, description, type, vendor, status, external
// id, variant pricing) always translate through the fixed transform below.
func MapProduct(source Product, mappings []AttributeMapping) ProductDraft {
	draft := ProductDraft{
		ExternalID:  source.ExternalID,
		Name:        source.Name,
		Description: source.Description,
		ProductType: source.ProductType,
		Vendor:      source.Vendor,
		Status:      MapProductStatus(source.Status),
	}

	if len(source.Attributes) > 0 {
		draft.Attributes = make(map[string]string)
		for _, m := range mappings {
			// Entries whose source field is absent are skipped silently.
			if v, ok := source.Attributes[m.SourceField]; ok {
				draft.Attributes[m.TargetField] = v
			}
		}
	}

	if len(source.Variants) == 0 {
		return draft
	}

	fold := cases.Fold()
	draft.Variants = make([]VariantDraft, 0, len(source.Variants))
	for _, v := range source.Variants {
		draft.Variants = append(draft.Variants, mapVariant(v, mappings, fold))
	}
	return draft
}

func mapVariant(v Variant, mappings []AttributeMapping, fold cases.Caser) VariantDraft {
	d := VariantDraft{
		ExternalID:        v.ExternalID,
		SKU:               v.SKU,
		Price:             v.Price,
		CompareAtPrice:    v.CompareAtPrice,
		InventoryQuantity: v.InventoryQuantity,
		Position:          v.Position,
	}
	if len(v.OptionValues) == 0 {
		return d
	}
	d.Attributes = make(map[string]string, len(v.OptionValues))
	for name, value := range v.OptionValues {
		// Unmapped option names fall back to their case-folded form. The
		// fallback is deliberate: new storefront options flow through without
		// a mapping entry instead of failing the product.
		key := fold.String(name)
		if mapped, ok := lookupTarget(mappings, name); ok {
			key = mapped
		}
		d.Attributes[key] = value
	}
	return d
}

func lookupTarget(mappings []AttributeMapping, sourceField string) (string, bool) {
	for _, m := range mappings {
		if m.SourceField == sourceField {
			return m.TargetField, true
		}
	}
	return "", false
}
