package compare

import (
	"context"
	"fmt"
	"strings"

	"github.com/InjectiveLabs/slotlens/layout/types"
)

// BuiltinAnalyzer is an offline structural check of two layouts. It reports deleted,
// renamed, moved and retyped variables as well as deleted namespaces, using the same
// explanation format as the upgrade-safety service.
type BuiltinAnalyzer struct{}

func NewBuiltinAnalyzer() *BuiltinAnalyzer {
	return &BuiltinAnalyzer{}
}

func (a *BuiltinAnalyzer) Analyze(ctx context.Context, origin, destination *types.StorageLayout) (string, error) {
	var findings []string

	root, err := compareRegion("", origin.Storage, destination.Storage, origin.Types, destination.Types)
	if err != nil {
		return "", err
	}
	findings = append(findings, root...)

	for _, ns := range origin.Namespaces {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		items, ok := destination.Namespaces.Get(ns.ID)
		if !ok {
			findings = append(findings, explain(
				fmt.Sprintf("Deleted namespace `%s`", ns.ID),
				"Keep the struct and annotation even if the namespace is no longer used",
			))
			continue
		}

		region, err := compareRegion(ns.ID, ns.Items, items, origin.Types, destination.Types)
		if err != nil {
			return "", err
		}
		findings = append(findings, region...)
	}

	return strings.Join(findings, "\n\n"), nil
}

type position struct {
	slot   string
	offset uint64
}

func positionOf(item types.StorageItem) (position, error) {
	slot, err := item.ParsedSlot()
	if err != nil {
		return position{}, err
	}
	return position{slot: slot.String(), offset: item.Offset}, nil
}

type resolved struct {
	item  types.StorageItem
	pos   position
	label string
	bytes uint64
}

func resolveAll(items []types.StorageItem, table types.TypeTable) ([]resolved, error) {
	out := make([]resolved, 0, len(items))
	for _, item := range items {
		info, err := table.Lookup(item.Type)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", item.Key(), err)
		}

		size, err := info.Bytes()
		if err != nil {
			return nil, err
		}

		pos, err := positionOf(item)
		if err != nil {
			return nil, err
		}

		out = append(out, resolved{item: item, pos: pos, label: info.Label, bytes: size})
	}
	return out, nil
}

func compareRegion(region string, origin, destination []types.StorageItem, originTypes, destinationTypes types.TypeTable) ([]string, error) {
	before, err := resolveAll(origin, originTypes)
	if err != nil {
		return nil, err
	}

	after, err := resolveAll(destination, destinationTypes)
	if err != nil {
		return nil, err
	}

	var (
		byKey   = make(map[string]*resolved, len(after))
		byLabel = make(map[string][]*resolved, len(after))
		byPos   = make(map[position]*resolved, len(after))
		matched = make(map[*resolved]bool, len(after))
	)

	for i := range after {
		r := &after[i]
		byKey[r.item.Key()] = r
		byLabel[r.item.Label] = append(byLabel[r.item.Label], r)
		byPos[r.pos] = r
	}

	lookup := func(o resolved) (*resolved, bool) {
		if r, ok := byKey[o.item.Key()]; ok && !matched[r] {
			return r, true
		}
		if candidates := byLabel[o.item.Label]; len(candidates) == 1 && !matched[candidates[0]] {
			return candidates[0], true
		}
		return nil, false
	}

	var findings []string
	for _, o := range before {
		d, ok := lookup(o)
		if !ok {
			if r, ok := byPos[o.pos]; ok && !matched[r] && sameType(o, *r) && !declared(before, r.item.Label) {
				matched[r] = true
				findings = append(findings, explain(
					fmt.Sprintf("Renamed `%s` to `%s`%s", o.item.Label, r.item.Label, in(region)),
				))
				continue
			}

			findings = append(findings, explain(
				fmt.Sprintf("Deleted `%s`%s", o.item.Label, in(region)),
				"Keep the variable even if unused",
			))
			continue
		}

		matched[d] = true

		if !sameType(o, *d) {
			findings = append(findings, explain(
				fmt.Sprintf("Upgraded `%s`%s to an incompatible type", o.item.Label, in(region)),
				fmt.Sprintf("Bad upgrade from %s to %s", o.label, d.label),
			))
			continue
		}

		if o.pos != d.pos {
			var details []string
			if o.pos.slot != d.pos.slot {
				details = append(details, fmt.Sprintf("Slot changed from %s to %s", o.pos.slot, d.pos.slot))
			}
			if o.pos.offset != d.pos.offset {
				details = append(details, fmt.Sprintf("Offset changed from %d to %d", o.pos.offset, d.pos.offset))
			}

			findings = append(findings, explain(
				fmt.Sprintf("Layout changed for `%s`%s (%s)", o.item.Label, in(region), o.label),
				details...,
			))
		}
	}

	return findings, nil
}

func sameType(a, b resolved) bool {
	return a.label == b.label && a.bytes == b.bytes
}

func declared(items []resolved, label string) bool {
	for _, r := range items {
		if r.item.Label == label {
			return true
		}
	}
	return false
}

func in(region string) string {
	if region == "" {
		return ""
	}
	return fmt.Sprintf(" in namespace `%s`", region)
}

func explain(summary string, details ...string) string {
	var b strings.Builder
	b.WriteString(summary)
	for _, d := range details {
		b.WriteString("\n  > ")
		b.WriteString(d)
	}
	return b.String()
}
