package cache

import (
	"context"
	"time"

	"cosmossdk.io/errors"
	"github.com/allegro/bigcache/v3"
	pkgerrors "github.com/pkg/errors"
	log "github.com/xlab/suplog"

	"github.com/InjectiveLabs/slotlens/layout/types"
)

type MemoryConfig struct {
	// LifeWindow is how long an entry stays cached.
	LifeWindow time.Duration
	// CleanWindow is the interval between evictions of expired entries.
	CleanWindow time.Duration
	// HardMaxCacheSize caps the cache size in MB, zero means unlimited.
	HardMaxCacheSize int
}

// MemoryStore caches layouts inside the process.
type MemoryStore struct {
	cache  *bigcache.BigCache
	logger log.Logger
}

func NewMemoryStore(ctx context.Context, cfg *MemoryConfig) (*MemoryStore, error) {
	if cfg == nil {
		cfg = &MemoryConfig{}
	}

	lifeWindow := cfg.LifeWindow
	if lifeWindow <= 0 {
		lifeWindow = 24 * time.Hour
	}

	bigCacheConfig := bigcache.DefaultConfig(lifeWindow)
	bigCacheConfig.Shards = 64
	bigCacheConfig.MaxEntrySize = 64 * 1024
	bigCacheConfig.HardMaxCacheSize = cfg.HardMaxCacheSize
	bigCacheConfig.Verbose = false

	if cfg.CleanWindow > 0 {
		bigCacheConfig.CleanWindow = cfg.CleanWindow
	} else {
		bigCacheConfig.CleanWindow = 5 * time.Minute
	}

	cache, err := bigcache.New(ctx, bigCacheConfig)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create in-memory cache")
	}

	return &MemoryStore{
		cache:  cache,
		logger: log.WithFields(log.Fields{"svc": "cache", "backend": BackendMemory}),
	}, nil
}

func (s *MemoryStore) Get(_ context.Context, chainID uint64, address string) (entry *Entry, err error) {
	defer func() { observe(BackendMemory, err) }()

	key := Key(chainID, address)

	data, err := s.cache.Get(key)
	if err == bigcache.ErrEntryNotFound {
		return nil, errors.Wrap(types.ErrLayoutNotCached, key)
	} else if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get %s", key)
	}

	return decode(key, data)
}

func (s *MemoryStore) Set(_ context.Context, chainID uint64, address string, entry *Entry) error {
	data, err := encode(entry)
	if err != nil {
		return err
	}

	key := Key(chainID, address)
	if err := s.cache.Set(key, data); err != nil {
		return pkgerrors.Wrapf(err, "failed to set %s", key)
	}

	s.logger.WithField("key", key).Debugln("cached storage layout")
	return nil
}

// Len returns the number of cached entries.
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}

func (s *MemoryStore) Backend() string {
	return BackendMemory
}

func (s *MemoryStore) Close() error {
	return s.cache.Close()
}
