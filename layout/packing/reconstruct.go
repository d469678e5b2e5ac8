// Package packing rebuilds the byte-level packing of storage variables across 32-byte slots.
//
// The compiler emits one (slot, offset, type) triple per variable. Reconstruct turns such a
// list into one row per slot, from slot 0 to the highest occupied slot, and follows values
// that overflow into the next slots through a running carry of spilled bytes.
package packing

import (
	"cosmossdk.io/errors"

	"github.com/InjectiveLabs/slotlens/layout/types"
)

// DefaultMaxRows bounds the number of rows of one region.
const DefaultMaxRows uint64 = 1 << 16

const percentPerByte = 100.0 / types.SlotBytes

// Reconstructor rebuilds slot rows. The zero value is not usable, see NewReconstructor.
type Reconstructor struct {
	maxRows uint64
	colorOf ColorFunc
}

type Option func(r *Reconstructor)

// WithMaxRows changes the number of rows a region may expand to before
// ErrSlotRangeTooLarge is returned.
func WithMaxRows(n uint64) Option {
	return func(r *Reconstructor) {
		if n > 0 {
			r.maxRows = n
		}
	}
}

// WithColorFunc replaces the color derivation of fragments.
func WithColorFunc(fn ColorFunc) Option {
	return func(r *Reconstructor) {
		if fn != nil {
			r.colorOf = fn
		}
	}
}

func NewReconstructor(opts ...Option) *Reconstructor {
	r := &Reconstructor{
		maxRows: DefaultMaxRows,
		colorOf: itemColor,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

var defaultReconstructor = NewReconstructor()

// Reconstruct rebuilds the rows of one region with the default options.
func Reconstruct(items []types.StorageItem, table types.TypeTable, base types.Slot, isNamespace bool) ([]types.SlotRow, error) {
	return defaultReconstructor.Reconstruct(items, table, base, isNamespace)
}

type entry struct {
	item  types.StorageItem
	label string
	bytes uint64
	slot  uint64
}

// Reconstruct rebuilds the rows of one region. Root items declared relative to a non-zero
// base are re-based first; namespace items are already relative to their anchor. Items are
// expected in compiler order: only the last listed item may extend the row range.
func (r *Reconstructor) Reconstruct(
	items []types.StorageItem,
	table types.TypeTable,
	base types.Slot,
	isNamespace bool,
) ([]types.SlotRow, error) {
	if needsNormalization(base, isNamespace) {
		normalized, err := Normalize(items, base)
		if err != nil {
			return nil, err
		}
		items = normalized
	}

	if len(items) == 0 {
		return []types.SlotRow{}, nil
	}

	entries, maxSlot, err := r.resolve(items, table)
	if err != nil {
		return nil, err
	}

	return r.buildRows(entries, maxSlot), nil
}

// resolve looks up every item's width and computes the highest slot index to render.
func (r *Reconstructor) resolve(items []types.StorageItem, table types.TypeTable) ([]entry, uint64, error) {
	var (
		maxSlot types.Slot
		slots   = make([]types.Slot, len(items))
		entries = make([]entry, len(items))
	)

	for i, item := range items {
		info, err := table.Lookup(item.Type)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "item %s", item.Key())
		}

		size, err := info.Bytes()
		if err != nil {
			return nil, 0, errors.Wrapf(err, "item %s", item.Key())
		}

		if item.Offset >= types.SlotBytes {
			return nil, 0, errors.Wrapf(types.ErrInvalidStorageItem, "item %s: offset %d out of slot", item.Key(), item.Offset)
		}

		slot, err := item.ParsedSlot()
		if err != nil {
			return nil, 0, err
		}

		if i == 0 || slot.Cmp(maxSlot) > 0 {
			maxSlot = slot
		}

		slots[i] = slot
		entries[i] = entry{item: item, label: info.Label, bytes: size}
	}

	if !maxSlot.IsUint64() || maxSlot.Uint64() >= r.maxRows {
		return nil, 0, errors.Wrapf(types.ErrSlotRangeTooLarge, "highest slot %s, limit %d rows", maxSlot.String(), r.maxRows)
	}

	last := maxSlot.Uint64()

	// an aggregate declared last spans further slots that no other item points at
	if tail := entries[len(entries)-1].bytes; tail > types.SlotBytes {
		last += ceilDiv(tail, types.SlotBytes) - 1
	}

	if last >= r.maxRows {
		return nil, 0, errors.Wrapf(types.ErrSlotRangeTooLarge, "highest slot %d, limit %d rows", last, r.maxRows)
	}

	for i := range entries {
		entries[i].slot = slots[i].Uint64()
	}

	return entries, last, nil
}

func (r *Reconstructor) buildRows(entries []entry, maxSlot uint64) []types.SlotRow {
	bySlot := make(map[uint64][]*entry, len(entries))
	for i := range entries {
		e := &entries[i]
		bySlot[e.slot] = append(bySlot[e.slot], e)
	}

	var (
		rows     = make([]types.SlotRow, 0, maxSlot+1)
		carry    uint64
		previous *entry
	)

	for idx := uint64(0); idx <= maxSlot; idx++ {
		declared := bySlot[idx]

		var occupants []*entry
		if carry > 0 && previous != nil {
			occupants = append(occupants, previous)
		}
		occupants = append(occupants, declared...)

		used := carry
		for _, e := range declared {
			used += e.bytes
		}

		fragments := make([]types.ItemFragment, 0, len(occupants))
		for i, e := range occupants {
			continuation := i == 0 && carry > 0
			fragments = append(fragments, r.fragment(e, carry, continuation))
		}

		switch {
		case carry >= types.SlotBytes:
			carry -= types.SlotBytes
		case used >= types.SlotBytes:
			carry = used - types.SlotBytes
		default:
			carry = 0
		}

		previous = nil
		if len(occupants) > 0 {
			previous = occupants[len(occupants)-1]
		}

		rows = append(rows, types.SlotRow{
			Index:     idx,
			Fragments: fragments,
		})
	}

	return rows
}

func (r *Reconstructor) fragment(e *entry, carry uint64, continuation bool) types.ItemFragment {
	width := e.bytes
	if continuation {
		width = min(carry, types.SlotBytes)
	}

	width = min(width, types.SlotBytes)

	return types.ItemFragment{
		Item:          e.item,
		TypeLabel:     e.label,
		Color:         r.colorOf(e.item),
		Bytes:         e.bytes,
		Width:         width,
		WidthPercent:  float64(width) * percentPerByte,
		OffsetPercent: float64(e.item.Offset) * percentPerByte,
		Continuation:  continuation,
	}
}

func ceilDiv(n, d uint64) uint64 {
	return (n + d - 1) / d
}
