// Package workspace holds the layouts a user currently has on display. It is passed by
// handle to the components that need it.
package workspace

import (
	"context"
	"sync"
	"time"

	"cosmossdk.io/errors"
	"github.com/google/uuid"
	log "github.com/xlab/suplog"

	"github.com/InjectiveLabs/slotlens/layout/assembler"
	"github.com/InjectiveLabs/slotlens/layout/types"
)

// Region is the rendered state of one storage region.
type Region struct {
	Name   string                  `json:"name"`
	Layout *types.RenderableLayout `json:"layout,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

// Item is one displayed contract layout.
type Item struct {
	ID      string               `json:"id"`
	Name    string               `json:"name"`
	Source  string               `json:"source,omitempty"`
	AddedAt time.Time            `json:"addedAt"`
	Layout  *types.StorageLayout `json:"storageLayout"`
	Regions []Region             `json:"regions"`
}

type Workspace struct {
	mux   sync.RWMutex
	items []*Item

	assembler *assembler.Assembler
	logger    log.Logger
}

func New(a *assembler.Assembler) *Workspace {
	if a == nil {
		a = assembler.New()
	}

	return &Workspace{
		assembler: a,
		logger:    log.WithField("svc", "workspace"),
	}
}

// Add reconstructs the regions of layout and puts it on display. Regions that fail to
// reconstruct are kept with their error so that the others still show.
func (w *Workspace) Add(ctx context.Context, name, source string, layout *types.StorageLayout) (*Item, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	if name == "" {
		name = types.RootLayoutName
	}

	item := &Item{
		ID:      uuid.NewString(),
		Name:    name,
		Source:  source,
		AddedAt: time.Now().UTC(),
		Layout:  layout,
	}

	for _, region := range w.assembler.AssembleRegions(ctx, layout) {
		r := Region{Name: region.Name, Layout: region.Layout}
		if region.Err != nil {
			r.Error = region.Err.Error()
		}
		item.Regions = append(item.Regions, r)
	}

	w.mux.Lock()
	w.items = append(w.items, item)
	w.mux.Unlock()

	w.logger.WithFields(log.Fields{
		"id":      item.ID,
		"name":    name,
		"regions": len(item.Regions),
	}).Infoln("layout added to workspace")

	return item, nil
}

// List returns the displayed items in the order they were added.
func (w *Workspace) List() []*Item {
	w.mux.RLock()
	defer w.mux.RUnlock()

	out := make([]*Item, len(w.items))
	copy(out, w.items)
	return out
}

func (w *Workspace) Get(id string) (*Item, error) {
	w.mux.RLock()
	defer w.mux.RUnlock()

	for _, item := range w.items {
		if item.ID == id {
			return item, nil
		}
	}

	return nil, errors.Wrap(types.ErrLayoutNotFound, id)
}

func (w *Workspace) Remove(id string) error {
	w.mux.Lock()
	defer w.mux.Unlock()

	for i, item := range w.items {
		if item.ID == id {
			w.items = append(w.items[:i], w.items[i+1:]...)
			return nil
		}
	}

	return errors.Wrap(types.ErrLayoutNotFound, id)
}

// Len returns the number of displayed items.
func (w *Workspace) Len() int {
	w.mux.RLock()
	defer w.mux.RUnlock()

	return len(w.items)
}

// Clear removes every item.
func (w *Workspace) Clear() {
	w.mux.Lock()
	w.items = nil
	w.mux.Unlock()
}
