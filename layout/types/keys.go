package types

const (
	// ModuleName is the codespace of every error registered by the layout packages.
	ModuleName = "layout"

	// SlotBytes is the width of one EVM storage slot.
	SlotBytes = 32

	// RootLayoutName names the root (non-namespaced) storage region.
	RootLayoutName = "root"

	// NamespaceSchemeERC7201 prefixes namespace keys produced for ERC-7201 regions.
	NamespaceSchemeERC7201 = "erc7201"
)
