package packing

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/InjectiveLabs/slotlens/layout/types"
)

// ColorFunc maps a storage item to a display color.
type ColorFunc func(item types.StorageItem) string

// ColorOf returns a stable #rrggbb color for a variable, keyed by "contract:label" so that
// same-named variables of different ancestors get different colors.
func ColorOf(contract, label string) string {
	h := crypto.Keccak256([]byte(contract + ":" + label))

	// keep channels in the upper range so labels stay readable on dark backgrounds
	return fmt.Sprintf("#%02x%02x%02x", pastel(h[0]), pastel(h[1]), pastel(h[2]))
}

func pastel(b byte) byte {
	return 0x60 + b%0xa0
}

func itemColor(item types.StorageItem) string {
	return ColorOf(item.Contract, item.Label)
}
