// Package assembler turns a compiler storage layout into one renderable layout per storage
// region: the root storage first, then every ERC-7201 namespace in declaration order.
package assembler

import (
	"context"
	"fmt"

	"cosmossdk.io/errors"
	"github.com/hashicorp/go-multierror"
	log "github.com/xlab/suplog"
	"golang.org/x/sync/errgroup"

	"github.com/InjectiveLabs/slotlens/layout/erc7201"
	"github.com/InjectiveLabs/slotlens/layout/packing"
	"github.com/InjectiveLabs/slotlens/layout/types"
)

type Assembler struct {
	reconstructor *packing.Reconstructor
	rootName      string
	logger        log.Logger
}

type Option func(a *Assembler)

// WithReconstructor overrides the packing options used for every region.
func WithReconstructor(r *packing.Reconstructor) Option {
	return func(a *Assembler) {
		if r != nil {
			a.reconstructor = r
		}
	}
}

// WithRootName names the root region, usually after the contract.
func WithRootName(name string) Option {
	return func(a *Assembler) {
		if name != "" {
			a.rootName = name
		}
	}
}

func New(opts ...Option) *Assembler {
	a := &Assembler{
		reconstructor: packing.NewReconstructor(),
		rootName:      types.RootLayoutName,
		logger:        log.WithField("svc", "assembler"),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Assemble reconstructs every region of the layout. It fails as a whole if any region fails;
// use AssembleRegions to isolate failures per region.
func (a *Assembler) Assemble(layout *types.StorageLayout) ([]types.RenderableLayout, error) {
	if layout == nil {
		return nil, errors.Wrap(types.ErrInvalidLayout, "layout is nil")
	}

	root, err := a.root(layout)
	if err != nil {
		return nil, err
	}

	out := make([]types.RenderableLayout, 0, 1+len(layout.Namespaces))
	out = append(out, root)

	for _, ns := range layout.Namespaces {
		rendered, err := a.namespace(ns, layout.Types)
		if err != nil {
			return nil, err
		}
		out = append(out, rendered)
	}

	return out, nil
}

// Region is the outcome of reconstructing a single storage region.
type Region struct {
	Name   string                  `json:"name"`
	Layout *types.RenderableLayout `json:"layout,omitempty"`
	Err    error                   `json:"-"`
}

// Regions lists region outcomes, root first.
type Regions []Region

// Layouts returns the regions that reconstructed successfully.
func (r Regions) Layouts() []types.RenderableLayout {
	out := make([]types.RenderableLayout, 0, len(r))
	for _, region := range r {
		if region.Err == nil && region.Layout != nil {
			out = append(out, *region.Layout)
		}
	}
	return out
}

// Err joins the failures of all regions, nil when every region succeeded.
func (r Regions) Err() error {
	var result *multierror.Error
	for _, region := range r {
		if region.Err != nil {
			result = multierror.Append(result, fmt.Errorf("region %s: %w", region.Name, region.Err))
		}
	}
	return result.ErrorOrNil()
}

// AssembleRegions reconstructs the regions concurrently. A failing region does not prevent
// the others from rendering; results keep the root-then-namespaces order.
func (a *Assembler) AssembleRegions(ctx context.Context, layout *types.StorageLayout) Regions {
	if layout == nil {
		return Regions{{Name: a.rootName, Err: errors.Wrap(types.ErrInvalidLayout, "layout is nil")}}
	}

	regions := make(Regions, 1+len(layout.Namespaces))
	regions[0].Name = a.rootName
	for i, ns := range layout.Namespaces {
		regions[i+1].Name = ns.ID
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			regions[0].Err = err
			return nil
		}

		root, err := a.root(layout)
		regions[0].Layout, regions[0].Err = ptrOrNil(root, err)
		return nil
	})

	for i, ns := range layout.Namespaces {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				regions[i+1].Err = err
				return nil
			}

			rendered, err := a.namespace(ns, layout.Types)
			regions[i+1].Layout, regions[i+1].Err = ptrOrNil(rendered, err)
			return nil
		})
	}

	_ = g.Wait()

	for _, region := range regions {
		if region.Err != nil {
			a.logger.WithError(region.Err).WithField("region", region.Name).Warningln("failed to reconstruct region")
		}
	}

	return regions
}

// AssembleRegion reconstructs a single region, selected by the root name or a namespace key.
func (a *Assembler) AssembleRegion(layout *types.StorageLayout, name string) (types.RenderableLayout, error) {
	if layout == nil {
		return types.RenderableLayout{}, errors.Wrap(types.ErrInvalidLayout, "layout is nil")
	}

	if name == a.rootName || name == types.RootLayoutName {
		return a.root(layout)
	}

	items, ok := layout.Namespaces.Get(name)
	if !ok {
		return types.RenderableLayout{}, errors.Wrapf(types.ErrNamespaceNotFound, "%s (known: %v)", name, layout.Namespaces.Keys())
	}

	return a.namespace(types.Namespace{ID: name, Items: items}, layout.Types)
}

func (a *Assembler) root(layout *types.StorageLayout) (types.RenderableLayout, error) {
	base := types.ZeroSlot
	if layout.BaseSlot != "" {
		parsed, err := types.ParseBaseSlot(layout.BaseSlot)
		if err != nil {
			return types.RenderableLayout{}, err
		}
		base = parsed
	}

	rows, err := a.reconstructor.Reconstruct(layout.Storage, layout.Types, base, false)
	if err != nil {
		return types.RenderableLayout{}, errors.Wrapf(err, "region %s", a.rootName)
	}

	return types.RenderableLayout{
		Name:     a.rootName,
		BaseSlot: base.Hex(),
		Slots:    rows,
	}, nil
}

func (a *Assembler) namespace(ns types.Namespace, table types.TypeTable) (types.RenderableLayout, error) {
	base := erc7201.BaseSlotOfKey(ns.ID)

	rows, err := a.reconstructor.Reconstruct(ns.Items, table, base, true)
	if err != nil {
		return types.RenderableLayout{}, errors.Wrapf(err, "region %s", ns.ID)
	}

	return types.RenderableLayout{
		Name:     ns.ID,
		BaseSlot: base.Hex(),
		Slots:    rows,
	}, nil
}

func ptrOrNil(l types.RenderableLayout, err error) (*types.RenderableLayout, error) {
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Assemble reconstructs all regions with default options.
func Assemble(layout *types.StorageLayout) ([]types.RenderableLayout, error) {
	return New().Assemble(layout)
}
