package cache

import (
	"context"

	"github.com/InjectiveLabs/coretracer"
	"github.com/pkg/errors"
	log "github.com/xlab/suplog"

	"github.com/InjectiveLabs/slotlens/layout/types"
	"github.com/InjectiveLabs/slotlens/registry/sourcify"
)

// Registry resolves the storage layout of a verified contract.
type Registry interface {
	StorageLayout(ctx context.Context, chainID uint64, address string) (*sourcify.Contract, error)
}

// Fetcher reads layouts through the cache and fills it from the registry on a miss.
type Fetcher struct {
	store    Store
	registry Registry

	logger  log.Logger
	svcTags coretracer.Tags
}

// NewFetcher returns a read-through fetcher. A nil registry makes it serve cached layouts only.
func NewFetcher(store Store, registry Registry) *Fetcher {
	return &Fetcher{
		store:    store,
		registry: registry,

		logger:  log.WithField("svc", "fetcher"),
		svcTags: coretracer.NewTag("svc", "fetcher"),
	}
}

// Cached returns the cached layout only, ErrLayoutNotCached on a miss.
func (f *Fetcher) Cached(ctx context.Context, chainID uint64, address string) (*Entry, error) {
	if f.store == nil {
		return nil, errors.Wrap(types.ErrLayoutNotCached, "no cache configured")
	}
	return f.store.Get(ctx, chainID, address)
}

// Fetch returns the layout of a contract, from the cache when possible.
func (f *Fetcher) Fetch(ctx context.Context, chainID uint64, address string) (*Entry, error) {
	defer coretracer.Trace(&ctx, f.svcTags)()

	entry, err := f.Cached(ctx, chainID, address)
	if err == nil {
		return entry, nil
	} else if !errors.Is(err, types.ErrLayoutNotCached) {
		// cache failures fall through to the registry
		f.logger.WithError(err).Warningln("cache lookup failed")
	}

	if f.registry == nil {
		return nil, err
	}

	contract, err := f.registry.StorageLayout(ctx, chainID, address)
	if err != nil {
		coretracer.TraceError(ctx, err)
		return nil, err
	}

	entry = &Entry{
		StorageLayout: contract.StorageLayout,
		ContractName:  contract.Name,
	}

	if f.store != nil {
		if err := f.store.Set(ctx, chainID, address, entry); err != nil {
			f.logger.WithError(err).WithFields(log.Fields{
				"chain":   chainID,
				"address": address,
			}).Warningln("failed to cache storage layout")
		}
	}

	return entry, nil
}
