package types

// ItemFragment is the part of a storage item that is visible in one slot row.
type ItemFragment struct {
	Item      StorageItem `json:"item"`
	TypeLabel string      `json:"typeLabel"`
	Color     string      `json:"color"`

	// Bytes is the full declared width of the item, Width the part drawn in this row.
	Bytes         uint64  `json:"bytes"`
	Width         uint64  `json:"width"`
	WidthPercent  float64 `json:"widthPercent"`
	OffsetPercent float64 `json:"offsetPercent"`

	// Continuation marks the carried tail of an item that started in a previous row.
	Continuation bool `json:"continuation,omitempty"`
}

// SlotRow holds the fragments occupying one slot, relative to the region base slot.
// A row without fragments is a gap.
type SlotRow struct {
	Index     uint64         `json:"index"`
	Fragments []ItemFragment `json:"fragments"`
}

// IsGap reports whether nothing is declared at this slot.
func (r SlotRow) IsGap() bool {
	return len(r.Fragments) == 0
}

// RenderableLayout is the reconstructed packing of one storage region.
type RenderableLayout struct {
	Name     string    `json:"name"`
	BaseSlot string    `json:"baseSlot"`
	Slots    []SlotRow `json:"slots"`
}

// IsEmpty reports a region without storage items.
func (l RenderableLayout) IsEmpty() bool {
	return len(l.Slots) == 0
}
