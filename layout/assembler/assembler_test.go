package assembler

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InjectiveLabs/slotlens/layout/types"
)

const upgradeableToken = `{
  "storage": [
    {"contract": "Token", "label": "version", "type": "t_uint64", "slot": "0", "offset": 0},
    {"contract": "Token", "label": "paused", "type": "t_bool", "slot": "0", "offset": 8}
  ],
  "types": {
    "t_bool": {"label": "bool", "numberOfBytes": "1"},
    "t_uint64": {"label": "uint64", "numberOfBytes": "8"},
    "t_uint256": {"label": "uint256", "numberOfBytes": "32"},
    "t_string_storage": {"label": "string", "numberOfBytes": "32"},
    "t_mapping": {"label": "mapping(address => uint256)", "numberOfBytes": "32"}
  },
  "namespaces": {
    "erc7201:openzeppelin.storage.ERC20": [
      {"contract": "ERC20Upgradeable", "label": "_balances", "type": "t_mapping", "slot": "0", "offset": 0},
      {"contract": "ERC20Upgradeable", "label": "_allowances", "type": "t_mapping", "slot": "1", "offset": 0},
      {"contract": "ERC20Upgradeable", "label": "_totalSupply", "type": "t_uint256", "slot": "2", "offset": 0},
      {"contract": "ERC20Upgradeable", "label": "_name", "type": "t_string_storage", "slot": "3", "offset": 0},
      {"contract": "ERC20Upgradeable", "label": "_symbol", "type": "t_string_storage", "slot": "4", "offset": 0}
    ],
    "erc7201:example.main": [
      {"contract": "Token", "label": "x", "type": "t_uint256", "slot": "0", "offset": 0}
    ]
  }
}`

func loadLayout(t *testing.T, raw string) *types.StorageLayout {
	t.Helper()

	var layout types.StorageLayout
	require.NoError(t, json.Unmarshal([]byte(raw), &layout))
	return &layout
}

func TestAssembleRootThenNamespaces(t *testing.T) {
	layouts, err := New().Assemble(loadLayout(t, upgradeableToken))
	require.NoError(t, err)
	require.Len(t, layouts, 3)

	assert.Equal(t, types.RootLayoutName, layouts[0].Name)
	assert.Equal(t, types.ZeroSlot.Hex(), layouts[0].BaseSlot)
	require.Len(t, layouts[0].Slots, 1)
	assert.Len(t, layouts[0].Slots[0].Fragments, 2)

	assert.Equal(t, "erc7201:openzeppelin.storage.ERC20", layouts[1].Name)
	assert.Equal(t, "0x52c63247e1f47db19d5ce0460030c497f067ca4cebf71ba98eeadabe20bace00", layouts[1].BaseSlot)
	assert.Len(t, layouts[1].Slots, 5)

	assert.Equal(t, "erc7201:example.main", layouts[2].Name)
	assert.Equal(t, "0x183a6125c38840424c4a85fa12bab2ab606c4b6d0e7cc73c0c06ba5300eab500", layouts[2].BaseSlot)
	assert.Len(t, layouts[2].Slots, 1)
}

func TestAssembleRootWithCustomBaseSlot(t *testing.T) {
	layout := &types.StorageLayout{
		Storage: []types.StorageItem{
			{Contract: "C", Label: "a", Type: "t_uint256", Slot: "100", Offset: 0},
			{Contract: "C", Label: "b", Type: "t_uint256", Slot: "102", Offset: 0},
		},
		Types:    types.TypeTable{"t_uint256": {Label: "uint256", NumberOfBytes: "32"}},
		BaseSlot: "0x0000000000000000000000000000000000000000000000000000000000000064",
	}

	layouts, err := New(WithRootName("C")).Assemble(layout)
	require.NoError(t, err)
	require.Len(t, layouts, 1)
	assert.Equal(t, "C", layouts[0].Name)
	assert.Equal(t, layout.BaseSlot, layouts[0].BaseSlot)
	require.Len(t, layouts[0].Slots, 3)
	assert.True(t, layouts[0].Slots[1].IsGap())
}

func TestAssembleEmptyRoot(t *testing.T) {
	layouts, err := Assemble(&types.StorageLayout{Types: types.TypeTable{}})
	require.NoError(t, err)
	require.Len(t, layouts, 1)
	assert.True(t, layouts[0].IsEmpty())
}

func TestAssembleMalformedBaseSlot(t *testing.T) {
	layout := loadLayout(t, upgradeableToken)
	layout.BaseSlot = "0x1234"

	_, err := New().Assemble(layout)
	assert.ErrorIs(t, err, types.ErrMalformedBaseSlot)

	regions := New().AssembleRegions(context.Background(), layout)
	require.Len(t, regions, 3)
	assert.ErrorIs(t, regions[0].Err, types.ErrMalformedBaseSlot)
	assert.NoError(t, regions[1].Err)
	assert.NoError(t, regions[2].Err)
	assert.Len(t, regions.Layouts(), 2)
}

func TestAssembleMissingNamespaceType(t *testing.T) {
	layout := loadLayout(t, upgradeableToken)
	layout.Namespaces.Set("erc7201:broken", []types.StorageItem{
		{Contract: "Token", Label: "ghost", Type: "t_ghost", Slot: "0"},
	})

	_, err := New().Assemble(layout)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrMissingType)
	assert.Contains(t, err.Error(), "erc7201:broken")

	regions := New().AssembleRegions(context.Background(), layout)
	require.Len(t, regions, 4)
	assert.Equal(t, "erc7201:broken", regions[3].Name)
	assert.ErrorIs(t, regions[3].Err, types.ErrMissingType)
	assert.Nil(t, regions[3].Layout)
	assert.Len(t, regions.Layouts(), 3)
	assert.Error(t, regions.Err())
}

func TestAssembleRegionsMatchesAssemble(t *testing.T) {
	layout := loadLayout(t, upgradeableToken)

	want, err := New().Assemble(layout)
	require.NoError(t, err)

	regions := New().AssembleRegions(context.Background(), layout)
	require.NoError(t, regions.Err())
	assert.Equal(t, want, regions.Layouts())
}

func TestAssembleRegion(t *testing.T) {
	layout := loadLayout(t, upgradeableToken)

	region, err := New().AssembleRegion(layout, "erc7201:example.main")
	require.NoError(t, err)
	assert.Equal(t, "erc7201:example.main", region.Name)

	root, err := New().AssembleRegion(layout, types.RootLayoutName)
	require.NoError(t, err)
	assert.Equal(t, types.RootLayoutName, root.Name)

	_, err = New().AssembleRegion(layout, "erc7201:missing")
	assert.ErrorIs(t, err, types.ErrNamespaceNotFound)
}

func TestAssembleNilLayout(t *testing.T) {
	_, err := New().Assemble(nil)
	assert.ErrorIs(t, err, types.ErrInvalidLayout)
}
