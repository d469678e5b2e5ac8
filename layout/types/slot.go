package types

import (
	"encoding/hex"
	"strings"

	"cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Slot is an unsigned 256-bit storage slot index. Arithmetic on it wraps modulo 2^256.
type Slot struct {
	n uint256.Int
}

// ZeroSlot is the anchor of the root storage region.
var ZeroSlot = Slot{}

// SlotFromUint64 returns the slot with the given index.
func SlotFromUint64(n uint64) Slot {
	var s Slot
	s.n.SetUint64(n)
	return s
}

// SlotFromBytes interprets b as a big-endian integer. Inputs longer than 32 bytes keep
// their low-order 32 bytes.
func SlotFromBytes(b []byte) Slot {
	var s Slot
	s.n.SetBytes(b)
	return s
}

// SlotFromHash interprets a 32-byte hash as a big-endian slot.
func SlotFromHash(h common.Hash) Slot {
	var s Slot
	s.n.SetBytes32(h[:])
	return s
}

// ParseSlot parses a decimal slot number as emitted by the compiler storage layout.
// A 0x-prefixed hex value is accepted too.
func ParseSlot(str string) (Slot, error) {
	str = strings.TrimSpace(str)
	if str == "" {
		return Slot{}, errors.Wrap(ErrInvalidStorageItem, "empty slot")
	}

	if strings.HasPrefix(str, "0x") || strings.HasPrefix(str, "0X") {
		raw := str[2:]
		if len(raw) == 0 || len(raw) > 64 {
			return Slot{}, errors.Wrapf(ErrInvalidStorageItem, "slot %q is not a 256-bit hex value", str)
		}
		if len(raw)%2 == 1 {
			raw = "0" + raw
		}

		b, err := hex.DecodeString(raw)
		if err != nil {
			return Slot{}, errors.Wrapf(ErrInvalidStorageItem, "slot %q: %s", str, err.Error())
		}

		return SlotFromBytes(b), nil
	}

	var s Slot
	if err := s.n.SetFromDecimal(str); err != nil {
		return Slot{}, errors.Wrapf(ErrInvalidStorageItem, "slot %q: %s", str, err.Error())
	}

	return s, nil
}

// ParseBaseSlot parses the wire format of a region anchor: 0x followed by exactly 64 hex digits.
func ParseBaseSlot(str string) (Slot, error) {
	str = strings.TrimSpace(str)
	if !strings.HasPrefix(str, "0x") && !strings.HasPrefix(str, "0X") {
		return Slot{}, errors.Wrapf(ErrMalformedBaseSlot, "%q has no 0x prefix", str)
	}

	raw := str[2:]
	if len(raw) != 2*SlotBytes {
		return Slot{}, errors.Wrapf(ErrMalformedBaseSlot, "%q must have %d hex digits, got %d", str, 2*SlotBytes, len(raw))
	}

	b, err := hex.DecodeString(raw)
	if err != nil {
		return Slot{}, errors.Wrapf(ErrMalformedBaseSlot, "%q: %s", str, err.Error())
	}

	return SlotFromBytes(b), nil
}

// IsZero reports whether s is slot zero.
func (s Slot) IsZero() bool {
	return s.n.IsZero()
}

// Cmp compares s and o and returns -1, 0 or +1.
func (s Slot) Cmp(o Slot) int {
	return s.n.Cmp(&o.n)
}

// Sub returns s - o modulo 2^256.
func (s Slot) Sub(o Slot) Slot {
	var r Slot
	r.n.Sub(&s.n, &o.n)
	return r
}

// IsUint64 reports whether s fits into an uint64.
func (s Slot) IsUint64() bool {
	return s.n.IsUint64()
}

// Uint64 returns the low 64 bits of s.
func (s Slot) Uint64() uint64 {
	return s.n.Uint64()
}

// Bytes32 returns the big-endian, zero-padded representation of s.
func (s Slot) Bytes32() [32]byte {
	return s.n.Bytes32()
}

// Hash returns s as a go-ethereum hash.
func (s Slot) Hash() common.Hash {
	return common.Hash(s.n.Bytes32())
}

// String returns the decimal representation used by compiler storage layouts.
func (s Slot) String() string {
	return s.n.Dec()
}

// Hex returns the 0x-prefixed, 64 digit representation used for base slots.
func (s Slot) Hex() string {
	return s.Hash().Hex()
}
