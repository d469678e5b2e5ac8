// Package erc7201 derives the base slot of ERC-7201 namespaced storage regions:
//
//	keccak256(abi.encode(uint256(keccak256(id)) - 1)) & ~bytes32(uint256(0xff))
package erc7201

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/InjectiveLabs/slotlens/layout/types"
)

var (
	lowByteMask = new(uint256.Int).Not(uint256.NewInt(0xff))

	memo sync.Map // namespace id -> types.Slot
)

// BaseSlot returns the anchor slot of the namespace with the given id. The id is hashed as
// is, pass it through NamespaceID first when holding a scheme-prefixed key.
func BaseSlot(id string) types.Slot {
	if v, ok := memo.Load(id); ok {
		return v.(types.Slot)
	}

	slot := derive(id)
	memo.Store(id, slot)

	return slot
}

func derive(id string) types.Slot {
	var v1 uint256.Int
	v1.SetBytes32(crypto.Keccak256([]byte(id)))
	v1.SubUint64(&v1, 1)

	b := v1.Bytes32()

	var v2 uint256.Int
	v2.SetBytes32(crypto.Keccak256(b[:]))
	v2.And(&v2, lowByteMask)

	return types.SlotFromHash(common.Hash(v2.Bytes32()))
}

// NamespaceID strips the scheme from a namespace key such as "erc7201:example.main".
// Only the part after the first colon is hashed; a key without a colon is returned unchanged.
func NamespaceID(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[i+1:]
	}
	return key
}

// BaseSlotOfKey derives the anchor of a scheme-prefixed namespace key.
func BaseSlotOfKey(key string) types.Slot {
	return BaseSlot(NamespaceID(key))
}

// Key builds the namespace key the compiler tooling uses for an ERC-7201 id.
func Key(id string) string {
	return types.NamespaceSchemeERC7201 + ":" + id
}

// Formula renders the derivation for display next to a namespace.
func Formula(id string) string {
	return fmt.Sprintf("keccak256(abi.encode(uint256(keccak256(%q)) - 1)) & ~bytes32(uint256(0xff))", id)
}
