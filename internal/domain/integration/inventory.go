package integration

// ---------------------------------------------------------------------------
// Inventory entities
// ---------------------------------------------------------------------------

// InventoryLevel is the available quantity at one storefront location.
type InventoryLevel struct {
	LocationID string
	Available  int
}

// InventoryItem is one SKU's stock picture on either platform. Source items
// carry per-location Levels; target items carry the single recorded Quantity.
type InventoryItem struct {
	SKU       string
	VariantID string
	Levels    []InventoryLevel
	Quantity  int
}

// TotalAvailable sums the available quantity across all locations.
func (i InventoryItem) TotalAvailable() int {
	total := 0
	for _, l := range i.Levels {
		total += l.Available
	}
	return total
}

// InventoryUpdate is one quantity write the reconciler decided the target
// needs. ResolvedQuantity is what the target's variant will be set to.
type InventoryUpdate struct {
	SKU              string
	SourceVariantID  string
	TargetVariantID  string
	SourceQuantity   int
	TargetQuantity   int
	ResolvedQuantity int
}

// ---------------------------------------------------------------------------
// Inventory reconciler
// ---------------------------------------------------------------------------

// ComputeInventoryUpdates compares both platforms' stock pictures per SKU and
// returns the writes needed on the target. It is pure; callers apply each
// update independently.
//
// Resolution rule: the target holds a single quantity per variant and must
// never overstate available stock, so the resolved quantity is the minimum of
// the two sides. An update is emitted only when the target's recorded
// quantity differs from that resolution; writes that would re-assert the
// current value are skipped.
//
// SKUs present on only one side are skipped. Duplicate SKUs within one side
// resolve last-write-wins; output order follows the first occurrence of each
// SKU in the source listing.
func ComputeInventoryUpdates(source, target []InventoryItem) []InventoryUpdate {
	targetBySKU := make(map[string]InventoryItem, len(target))
	for _, item := range target {
		targetBySKU[item.SKU] = item
	}

	sourceBySKU := make(map[string]InventoryItem, len(source))
	order := make([]string, 0, len(source))
	for _, item := range source {
		if _, seen := sourceBySKU[item.SKU]; !seen {
			order = append(order, item.SKU)
		}
		sourceBySKU[item.SKU] = item
	}

	var updates []InventoryUpdate
	for _, sku := range order {
		sourceItem := sourceBySKU[sku]
		targetItem, ok := targetBySKU[sku]
		if !ok {
			continue
		}

		sourceQty := sourceItem.TotalAvailable()
		targetQty := targetItem.Quantity
		resolved := sourceQty
		if targetQty < resolved {
			resolved = targetQty
		}
		if targetQty == resolved {
			continue
		}

		updates = append(updates, InventoryUpdate{
			SKU:              sku,
			SourceVariantID:  sourceItem.VariantID,
			TargetVariantID:  targetItem.VariantID,
			SourceQuantity:   sourceQty,
			TargetQuantity:   targetQty,
			ResolvedQuantity: resolved,
		})
	}
	return updates
}
