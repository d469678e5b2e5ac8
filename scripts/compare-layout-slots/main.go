// compare-layout-slots compares the reconstructed slot packing of two storage layouts.
// This tool is useful for reviewing an upgrade slot by slot, next to the compatibility report.
//
// Both layouts are reconstructed region by region. For every region present in either
// layout, each slot row is printed side by side with the variables it holds on both sides.
// Slots holding different variables are marked DIVERGENT, slots present on one side only
// are marked ONE MISSING.
//
// # Usage
//
//	compare-layout-slots -origin <file> -destination <file> [-diff]
//
// # Flags
//
//	-origin       Storage layout of the deployed implementation (required)
//	-destination  Storage layout of the new implementation (required)
//	-diff         Show only divergent slots (default: false)
//
// # Exit Codes
//
//	0 - All slots match, or the destination only appends
//	1 - Divergence detected in one or more slots
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/InjectiveLabs/slotlens/layout/assembler"
	"github.com/InjectiveLabs/slotlens/layout/render"
	"github.com/InjectiveLabs/slotlens/layout/types"
)

type regionRows struct {
	base string
	rows map[string]string
	keys []string
}

func main() {
	var (
		originFile      string
		destinationFile string
		diffOnly        bool
	)

	flag.StringVar(&originFile, "origin", "", "Storage layout of the deployed implementation (required)")
	flag.StringVar(&destinationFile, "destination", "", "Storage layout of the new implementation (required)")
	flag.BoolVar(&diffOnly, "diff", false, "Show only divergent slots")
	flag.Parse()

	if originFile == "" || destinationFile == "" {
		fmt.Fprintln(os.Stderr, "Error: -origin and -destination are required")
		fmt.Fprintln(os.Stderr, "Usage: compare-layout-slots -origin <file> -destination <file> [-diff]")
		os.Exit(1)
	}

	origin, originOrder, err := loadRegions(originFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	destination, destinationOrder, err := loadRegions(destinationFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	slotColWidth := 20
	varsColWidth := 48

	separator := strings.Repeat("-", slotColWidth+varsColWidth*2+10)

	var matching, appended, divergent, missing int

	for _, name := range mergeOrder(originOrder, destinationOrder) {
		o, d := origin[name], destination[name]

		fmt.Printf("\n%s\n", name)
		if o != nil && d != nil && o.base != d.base {
			fmt.Printf("base slot moved from %s to %s DIVERGENT\n", o.base, d.base)
			divergent++
		}

		fmt.Println(separator)
		fmt.Printf("| %-*s | %-*s | %-*s |\n",
			slotColWidth, "Slot",
			varsColWidth, "Origin",
			varsColWidth, "Destination")
		fmt.Println(separator)

		for _, slot := range mergeOrder(o.slots(), d.slots()) {
			originVars, inOrigin := o.get(slot)
			destinationVars, inDestination := d.get(slot)

			marker := ""
			switch {
			case inOrigin && inDestination && originVars == destinationVars:
				matching++
			case !inOrigin && inDestination && o != nil:
				// new slots past the end of the origin region
				appended++
			case inOrigin && inDestination:
				divergent++
				marker = " DIVERGENT"
			default:
				missing++
				marker = " ONE MISSING"
			}

			if diffOnly && marker == "" {
				continue
			}

			fmt.Printf("| %-*s | %-*s | %-*s |%s\n",
				slotColWidth, slot,
				varsColWidth, orDash(originVars),
				varsColWidth, orDash(destinationVars),
				marker)
		}

		fmt.Println(separator)
	}

	fmt.Println()
	fmt.Printf("Summary: %d matching, %d appended, %d divergent, %d one-side missing\n",
		matching, appended, divergent, missing)

	if divergent > 0 {
		fmt.Println("\nDIVERGENCE DETECTED!")
		os.Exit(1)
	} else if missing > 0 {
		fmt.Println("\nSome slots or regions exist in one layout only")
	} else {
		fmt.Println("\nAll slots match!")
	}
}

func loadRegions(path string) (map[string]*regionRows, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var layout types.StorageLayout
	if err := json.Unmarshal(data, &layout); err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	layouts, err := assembler.Assemble(&layout)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reconstruct %s: %w", path, err)
	}

	regions := make(map[string]*regionRows, len(layouts))
	order := make([]string, 0, len(layouts))

	for _, l := range layouts {
		r := &regionRows{
			base: l.BaseSlot,
			rows: make(map[string]string, len(l.Slots)),
		}

		for _, row := range l.Slots {
			if row.IsGap() {
				continue
			}
			slot := strconv.FormatUint(row.Index, 10)
			r.rows[slot] = render.Variables(row)
			r.keys = append(r.keys, slot)
		}

		regions[l.Name] = r
		order = append(order, l.Name)
	}

	return regions, order, nil
}

func (r *regionRows) slots() []string {
	if r == nil {
		return nil
	}
	return r.keys
}

func (r *regionRows) get(slot string) (string, bool) {
	if r == nil {
		return "", false
	}
	v, ok := r.rows[slot]
	return v, ok
}

// mergeOrder appends the entries of b missing from a, keeping the order of both.
func mergeOrder(a, b []string) []string {
	seen := make(map[string]struct{}, len(a))
	out := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, s := range b {
		if _, ok := seen[s]; !ok {
			out = append(out, s)
		}
	}

	return out
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
