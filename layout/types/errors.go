package types

// DONTCOVER

import (
	"cosmossdk.io/errors"
)

// layout sentinel errors
var (
	ErrMissingType         = errors.Register(ModuleName, 2, "storage item references an unknown type")
	ErrMalformedBaseSlot   = errors.Register(ModuleName, 3, "malformed base slot")
	ErrNamespaceNotFound   = errors.Register(ModuleName, 4, "namespace not found")
	ErrReportGeneration    = errors.Register(ModuleName, 5, "failed to generate compatibility report")
	ErrInvalidStorageItem  = errors.Register(ModuleName, 6, "invalid storage item")
	ErrSlotRangeTooLarge   = errors.Register(ModuleName, 7, "slot range exceeds the renderable limit")
	ErrInvalidLayout       = errors.Register(ModuleName, 8, "invalid storage layout")
	ErrLayoutNotCached     = errors.Register(ModuleName, 9, "storage layout not cached")
	ErrContractNotVerified = errors.Register(ModuleName, 10, "contract is not verified")
	ErrUnsupportedCompiler = errors.Register(ModuleName, 11, "unsupported compiler version")
	ErrInvalidAddress      = errors.Register(ModuleName, 12, "invalid contract address")
	ErrLayoutNotFound      = errors.Register(ModuleName, 13, "layout not found in workspace")
)
