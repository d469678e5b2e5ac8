package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InjectiveLabs/slotlens/cmd/slotlens/config"
	"github.com/InjectiveLabs/slotlens/layout/types"
)

const layoutJSON = `{
  "storage": [
    {"contract": "A.sol:A", "label": "owner", "type": "t_address", "slot": "0", "offset": 0},
    {"contract": "A.sol:A", "label": "paused", "type": "t_bool", "slot": "0", "offset": 20}
  ],
  "types": {
    "t_address": {"label": "address", "numberOfBytes": "20"},
    "t_bool": {"label": "bool", "numberOfBytes": "1"}
  },
  "namespaces": {
    "erc7201:example.main": [
      {"contract": "A.sol:A", "label": "x", "type": "t_bool", "slot": "0", "offset": 0}
    ]
  }
}`

const layoutYAML = `
storage:
  - contract: A.sol:A
    label: owner
    type: t_address
    slot: "0"
    offset: 0
types:
  t_address:
    label: address
    numberOfBytes: "20"
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadLayoutJSON(t *testing.T) {
	layout, err := loadLayout(writeFile(t, "layout.json", layoutJSON))
	require.NoError(t, err)

	require.Len(t, layout.Storage, 2)
	assert.Equal(t, "paused", layout.Storage[1].Label)
	assert.Equal(t, uint64(20), layout.Storage[1].Offset)
	assert.Equal(t, []string{"erc7201:example.main"}, layout.Namespaces.Keys())
}

func TestLoadLayoutYAML(t *testing.T) {
	layout, err := loadLayout(writeFile(t, "layout.yaml", layoutYAML))
	require.NoError(t, err)

	require.Len(t, layout.Storage, 1)
	assert.Equal(t, "owner", layout.Storage[0].Label)
	assert.Equal(t, "20", layout.Types["t_address"].NumberOfBytes)
}

func TestLoadLayoutErrors(t *testing.T) {
	_, err := loadLayout(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = loadLayout(writeFile(t, "broken.json", `{"storage": [`))
	assert.Error(t, err)

	_, err = loadLayout(writeFile(t, "untyped.json", `{"storage": [{"label": "a", "type": "t_bool", "slot": "0"}]}`))
	assert.ErrorIs(t, err, types.ErrInvalidLayout)
}

func TestToBool(t *testing.T) {
	assert.True(t, toBool("yes", false))
	assert.True(t, toBool("TRUE", false))
	assert.False(t, toBool("0", true))
	assert.True(t, toBool("", true))
	assert.False(t, toBool("maybe", false))
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, "a", orDefault("a", "b"))
	assert.Equal(t, "b", orDefault("", "b"))
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()

	store, err := newStore(ctx, config.CacheConfig{Backend: config.CacheBackendNone})
	require.NoError(t, err)
	assert.Nil(t, store)

	store, err = newStore(ctx, *config.DefaultCacheConfig())
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, "memory", store.Backend())
	assert.NoError(t, store.Close())

	_, err = newStore(ctx, config.CacheConfig{Backend: "etcd"})
	assert.Error(t, err)
}
