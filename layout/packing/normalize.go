package packing

import (
	"github.com/InjectiveLabs/slotlens/layout/types"
)

// Normalize re-bases the declared slots of root storage items onto base: every slot becomes
// (slot - base) mod 2^256, serialised back to decimal. The input is left untouched.
func Normalize(items []types.StorageItem, base types.Slot) ([]types.StorageItem, error) {
	out := make([]types.StorageItem, len(items))
	copy(out, items)

	if base.IsZero() {
		return out, nil
	}

	for i := range out {
		slot, err := out[i].ParsedSlot()
		if err != nil {
			return nil, err
		}

		out[i].Slot = slot.Sub(base).String()
	}

	return out, nil
}

// needsNormalization tells whether the declared slots are absolute and must be re-based.
// Namespace items are relative to their own anchor by construction.
func needsNormalization(base types.Slot, isNamespace bool) bool {
	return !isNamespace && !base.IsZero()
}
