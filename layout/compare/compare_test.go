package compare

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InjectiveLabs/slotlens/layout/types"
)

var table = types.TypeTable{
	"t_uint256": {Label: "uint256", NumberOfBytes: "32"},
	"t_uint128": {Label: "uint128", NumberOfBytes: "16"},
	"t_address": {Label: "address", NumberOfBytes: "20"},
	"t_bool":    {Label: "bool", NumberOfBytes: "1"},
}

func item(label, typ, slot string, offset uint64) types.StorageItem {
	return types.StorageItem{Contract: "Vault", Label: label, Type: typ, Slot: slot, Offset: offset}
}

func layoutOf(items ...types.StorageItem) *types.StorageLayout {
	return &types.StorageLayout{Storage: items, Types: table}
}

func TestParseReport(t *testing.T) {
	text := "Deleted `owner`\n  > Keep the variable even if unused\n\n" +
		"Upgraded `total` to an incompatible type\n  > Bad upgrade from uint256 to uint128\n  \n" +
		"Renamed `a` to `b`"

	report := ParseReport(text)
	require.Len(t, report.Findings, 3)
	assert.False(t, report.OK())
	assert.Equal(t, text, report.Text)

	assert.Equal(t, "Deleted `owner`", report.Findings[0].Summary)
	assert.Equal(t, []string{"Keep the variable even if unused"}, report.Findings[0].Details)
	assert.Equal(t, []string{"Bad upgrade from uint256 to uint128"}, report.Findings[1].Details)
	assert.Empty(t, report.Findings[2].Details)

	assert.Contains(t, report.String(), "0 : Deleted `owner`")
	assert.Contains(t, report.String(), "   - Bad upgrade from uint256 to uint128")
}

func TestParseEmptyReport(t *testing.T) {
	for _, text := range []string{"", "  \n\n \n"} {
		report := ParseReport(text)
		assert.True(t, report.OK())
		assert.NotNil(t, report.Findings)
		assert.Equal(t, "No compatibility issues found.", report.String())
	}
}

func TestBuiltinAppendIsSafe(t *testing.T) {
	origin := layoutOf(item("owner", "t_address", "0", 0), item("total", "t_uint256", "1", 0))
	destination := layoutOf(
		item("owner", "t_address", "0", 0),
		item("paused", "t_bool", "0", 20),
		item("total", "t_uint256", "1", 0),
		item("fee", "t_uint128", "2", 0),
	)

	report, err := NewComparator(nil).Compare(context.Background(), origin, destination)
	require.NoError(t, err)
	assert.True(t, report.OK(), report.Text)
}

func TestBuiltinFindings(t *testing.T) {
	origin := layoutOf(
		item("owner", "t_address", "0", 0),
		item("total", "t_uint256", "1", 0),
		item("cap", "t_uint256", "2", 0),
		item("legacy", "t_bool", "3", 0),
		item("limit", "t_uint128", "4", 0),
	)
	destination := layoutOf(
		item("admin", "t_address", "0", 0),
		item("total", "t_uint128", "1", 0),
		item("limit", "t_uint128", "2", 0),
		item("cap", "t_uint256", "5", 0),
	)

	report, err := NewComparator(NewBuiltinAnalyzer()).Compare(context.Background(), origin, destination)
	require.NoError(t, err)

	summaries := make([]string, 0, len(report.Findings))
	for _, f := range report.Findings {
		summaries = append(summaries, f.Summary)
	}

	assert.Equal(t, []string{
		"Renamed `owner` to `admin`",
		"Upgraded `total` to an incompatible type",
		"Layout changed for `cap` (uint256)",
		"Deleted `legacy`",
		"Layout changed for `limit` (uint128)",
	}, summaries)

	assert.Equal(t, []string{"Bad upgrade from uint256 to uint128"}, report.Findings[1].Details)
	assert.Equal(t, []string{"Slot changed from 2 to 5"}, report.Findings[2].Details)
	assert.Equal(t, []string{"Keep the variable even if unused"}, report.Findings[3].Details)
}

func TestBuiltinNamespaces(t *testing.T) {
	origin := layoutOf()
	origin.Namespaces.Set("erc7201:example.main", []types.StorageItem{item("x", "t_uint256", "0", 0)})
	origin.Namespaces.Set("erc7201:example.old", []types.StorageItem{item("y", "t_uint256", "0", 0)})

	destination := layoutOf()
	destination.Namespaces.Set("erc7201:example.main", []types.StorageItem{
		item("x", "t_uint256", "1", 0),
	})

	report, err := NewComparator(nil).Compare(context.Background(), origin, destination)
	require.NoError(t, err)
	require.Len(t, report.Findings, 2)
	assert.Equal(t, "Layout changed for `x` in namespace `erc7201:example.main` (uint256)", report.Findings[0].Summary)
	assert.Equal(t, "Deleted namespace `erc7201:example.old`", report.Findings[1].Summary)
}

func TestBuiltinMissingTypeFailsReport(t *testing.T) {
	origin := layoutOf(item("ghost", "t_ghost", "0", 0))

	_, err := NewComparator(nil).Compare(context.Background(), origin, layoutOf())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrReportGeneration)
	assert.Contains(t, err.Error(), "t_ghost")
}

type failingAnalyzer struct{ err error }

func (a failingAnalyzer) Analyze(context.Context, *types.StorageLayout, *types.StorageLayout) (string, error) {
	return "", a.err
}

func TestComparatorFailureIsNotAnEmptyReport(t *testing.T) {
	c := NewComparator(failingAnalyzer{err: errors.New("New storage layout is incompatible due to the following changes")})

	report, err := c.Compare(context.Background(), layoutOf(), layoutOf())
	assert.Nil(t, report)
	assert.ErrorIs(t, err, types.ErrReportGeneration)
	assert.Contains(t, err.Error(), "New storage layout is incompatible due to the following changes")
}

func TestComparatorKeepsAnalyzerCause(t *testing.T) {
	c := NewComparator(failingAnalyzer{err: errors.Wrap(context.DeadlineExceeded, "upgrade-safety service")})

	_, err := c.Compare(context.Background(), layoutOf(), layoutOf())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrReportGeneration)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "upgrade-safety service")
}

func TestComparatorRequiresBothLayouts(t *testing.T) {
	_, err := NewComparator(nil).Compare(context.Background(), nil, layoutOf())
	assert.ErrorIs(t, err, types.ErrInvalidLayout)
}

func TestRemoteAnalyzer(t *testing.T) {
	var got reportRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"compatibilityReport": "Deleted `owner`\n  > Keep the variable even if unused",
		})
	}))
	defer srv.Close()

	c := NewComparator(NewRemoteAnalyzer(&RemoteConfig{URL: srv.URL}))
	report, err := c.Compare(context.Background(), layoutOf(item("owner", "t_address", "0", 0)), layoutOf())
	require.NoError(t, err)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, "Deleted `owner`", report.Findings[0].Summary)

	require.NotNil(t, got.OriginStorageLayout)
	require.NotNil(t, got.DestinationStorageLayout)
	assert.Equal(t, "owner", got.OriginStorageLayout.Storage[0].Label)
}

func TestRemoteAnalyzerMessageIsFinal(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Unknown type t_foo"})
	}))
	defer srv.Close()

	c := NewComparator(NewRemoteAnalyzer(&RemoteConfig{URL: srv.URL, Delay: time.Millisecond}))
	_, err := c.Compare(context.Background(), layoutOf(), layoutOf())
	assert.ErrorIs(t, err, types.ErrReportGeneration)
	assert.Contains(t, err.Error(), "Unknown type t_foo")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRemoteAnalyzerRetriesUnavailable(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"compatibilityReport": ""})
	}))
	defer srv.Close()

	c := NewComparator(NewRemoteAnalyzer(&RemoteConfig{URL: srv.URL, Attempts: 3, Delay: time.Millisecond}))
	report, err := c.Compare(context.Background(), layoutOf(), layoutOf())
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}
