package solcbin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InjectiveLabs/slotlens/layout/types"
)

const listJSON = `{
  "builds": [],
  "releases": {
    "0.8.9": "soljson-v0.8.9+commit.e5eed63a.js",
    "0.8.20": "soljson-v0.8.20+commit.a1b79de6.js",
    "0.5.13": "soljson-v0.5.13+commit.5b0b510c.js",
    "0.4.26": "soljson-v0.4.26+commit.4563c3fc.js"
  },
  "latestRelease": "0.8.20"
}`

func TestReleases(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(listJSON))
	}))
	defer srv.Close()

	releases, err := NewClient(&Config{ListURL: srv.URL}).Releases(context.Background())
	require.NoError(t, err)
	assert.Len(t, releases, 4)
	assert.Equal(t, "soljson-v0.8.20+commit.a1b79de6.js", releases["0.8.20"])

	assert.Equal(t, []string{"0.8.20", "0.8.9", "0.5.13", "0.4.26"}, SortedVersions(releases))
}

func TestReleasesUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(&Config{ListURL: srv.URL}).Releases(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestVersionGates(t *testing.T) {
	assert.NoError(t, SupportsStorageLayout("v0.5.13+commit.5b0b510c"))
	assert.ErrorIs(t, SupportsStorageLayout("0.5.12"), types.ErrUnsupportedCompiler)

	assert.NoError(t, SupportsViaIR("0.8.13"))
	assert.ErrorIs(t, SupportsViaIR("0.8.12"), types.ErrUnsupportedCompiler)

	assert.NoError(t, SupportsNamespaces("soljson-v0.8.20+commit.a1b79de6.js"))
	assert.NoError(t, SupportsNamespaces("0.8.24-nightly.2024.1.1"))
	assert.ErrorIs(t, SupportsNamespaces("0.8.19"), types.ErrUnsupportedCompiler)

	assert.ErrorIs(t, SupportsStorageLayout("latest"), types.ErrUnsupportedCompiler)
}
