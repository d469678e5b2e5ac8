// Package cache keeps the storage layouts of verified contracts, keyed by chain and address.
package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/InjectiveLabs/slotlens/layout/types"
)

const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Entry is what gets cached for one contract.
type Entry struct {
	StorageLayout *types.StorageLayout `json:"storageLayout"`
	ContractName  string               `json:"contractName"`
}

// Store is a layout cache. Get returns ErrLayoutNotCached on a miss.
type Store interface {
	Get(ctx context.Context, chainID uint64, address string) (*Entry, error)
	Set(ctx context.Context, chainID uint64, address string, entry *Entry) error
	Backend() string
	Close() error
}

var lookups = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "slotlens",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Layout cache lookups by backend and result",
	},
	[]string{"backend", "result"},
)

// Key is the cache key of a contract: "<chainID>:<lower-case address>".
func Key(chainID uint64, address string) string {
	return strconv.FormatUint(chainID, 10) + ":" + strings.ToLower(strings.TrimSpace(address))
}

func encode(entry *Entry) ([]byte, error) {
	if entry == nil || entry.StorageLayout == nil {
		return nil, errors.Wrap(types.ErrInvalidLayout, "cache entry without storage layout")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode cache entry")
	}
	return data, nil
}

func decode(key string, data []byte) (*Entry, error) {
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, errors.Wrapf(err, "failed to decode cache entry %s", key)
	}

	if entry.StorageLayout == nil {
		return nil, errors.Wrap(types.ErrLayoutNotCached, key)
	}

	return &entry, nil
}

func observe(backend string, err error) {
	switch {
	case err == nil:
		lookups.WithLabelValues(backend, "hit").Inc()
	case errors.Is(err, types.ErrLayoutNotCached):
		lookups.WithLabelValues(backend, "miss").Inc()
	default:
		lookups.WithLabelValues(backend, "error").Inc()
	}
}
