package sourcify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InjectiveLabs/slotlens/layout/types"
)

const (
	wethAddress = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"

	contractJSON = `{
  "match": "exact_match",
  "chainId": "1",
  "address": "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
  "storageLayout": {
    "storage": [
      {"astId": 3, "contract": "WETH9.sol:WETH9", "label": "name", "offset": 0, "slot": "0", "type": "t_string_storage"}
    ],
    "types": {
      "t_string_storage": {"encoding": "bytes", "label": "string", "numberOfBytes": "32"}
    }
  },
  "compilation": {"name": "WETH9", "compilerVersion": "v0.8.20+commit.a1b79de6", "fullyQualifiedName": "WETH9.sol:WETH9"}
}`
)

func testClient(url string) *Client {
	return NewClient(&Config{BaseURL: url, Attempts: 3, Delay: time.Millisecond})
}

func TestStorageLayout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/contract/1/"+wethAddress, r.URL.Path)
		assert.Equal(t, "storageLayout,compilation", r.URL.Query().Get("fields"))
		_, _ = w.Write([]byte(contractJSON))
	}))
	defer srv.Close()

	contract, err := testClient(srv.URL).StorageLayout(context.Background(), 1, "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")
	require.NoError(t, err)
	assert.Equal(t, "WETH9", contract.Name)
	assert.Equal(t, wethAddress, contract.Address)
	assert.Equal(t, "1", contract.ChainID)
	require.NotNil(t, contract.StorageLayout)
	require.Len(t, contract.StorageLayout.Storage, 1)
	assert.Equal(t, "name", contract.StorageLayout.Storage[0].Label)
}

func TestStorageLayoutNotVerified(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).StorageLayout(context.Background(), 1, wethAddress)
	assert.ErrorIs(t, err, types.ErrContractNotVerified)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestStorageLayoutOldCompiler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"match": "match", "storageLayout": null, "compilation": {"name": "Old", "compilerVersion": "v0.4.24+commit.e67f0147"}}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).StorageLayout(context.Background(), 1, wethAddress)
	assert.ErrorIs(t, err, types.ErrUnsupportedCompiler)
}

func TestStorageLayoutRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(contractJSON))
	}))
	defer srv.Close()

	contract, err := testClient(srv.URL).StorageLayout(context.Background(), 1, wethAddress)
	require.NoError(t, err)
	assert.Equal(t, "WETH9", contract.Name)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestStorageLayoutInvalidAddress(t *testing.T) {
	_, err := testClient("http://127.0.0.1:1").StorageLayout(context.Background(), 1, "0x1234")
	assert.ErrorIs(t, err, types.ErrInvalidAddress)
}

func TestChains(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chains", r.URL.Path)
		_, _ = w.Write([]byte(`[{"name": "Ethereum Mainnet", "chainId": 1, "supported": true}, {"name": "Sepolia", "chainId": 11155111, "supported": true}]`))
	}))
	defer srv.Close()

	chains, err := testClient(srv.URL).Chains(context.Background())
	require.NoError(t, err)
	require.Len(t, chains, 2)
	assert.Equal(t, int64(11155111), chains[1].ChainID)
}
