// Package render prints reconstructed layouts as terminal tables, one row per slot with a
// colored bar of the 32 bytes of the slot.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	"github.com/InjectiveLabs/slotlens/layout/erc7201"
	"github.com/InjectiveLabs/slotlens/layout/types"
)

const (
	filledCell = "█"
	emptyCell  = "·"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#2E7D32")).
			Padding(0, 1)

	baseSlotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	gapStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type Renderer struct {
	out       io.Writer
	showEmpty bool
	gaps      bool
}

type Option func(r *Renderer)

// WithGaps prints rows that hold no variable. They are collapsed by default.
func WithGaps(show bool) Option {
	return func(r *Renderer) {
		r.gaps = show
	}
}

// WithEmptyRegions prints regions that declare no variable.
func WithEmptyRegions(show bool) Option {
	return func(r *Renderer) {
		r.showEmpty = show
	}
}

func New(out io.Writer, opts ...Option) *Renderer {
	r := &Renderer{
		out:       out,
		showEmpty: true,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Render prints every layout in order.
func (r *Renderer) Render(layouts []types.RenderableLayout) error {
	printed := false
	for _, l := range layouts {
		if l.IsEmpty() && !r.showEmpty {
			continue
		}

		if printed {
			if _, err := fmt.Fprintln(r.out); err != nil {
				return err
			}
		}
		printed = true

		if err := r.RenderLayout(l); err != nil {
			return err
		}
	}

	return nil
}

// RenderLayout prints the title of one region followed by its slot table.
func (r *Renderer) RenderLayout(l types.RenderableLayout) error {
	title := titleStyle.Render(l.Name)
	if strings.Contains(l.Name, ":") {
		title += " " + gapStyle.Render(erc7201.Formula(erc7201.NamespaceID(l.Name)))
	}

	if _, err := fmt.Fprintf(r.out, "%s\nbase slot %s\n", title, baseSlotStyle.Render(l.BaseSlot)); err != nil {
		return err
	}

	if l.IsEmpty() {
		_, err := fmt.Fprintln(r.out, gapStyle.Render("no storage variables"))
		return err
	}

	table := tablewriter.NewWriter(r.out)
	table.SetHeader([]string{"Slot", "Bytes", "Variables"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	skipped := 0
	for _, row := range l.Slots {
		if row.IsGap() && !r.gaps {
			skipped++
			continue
		}

		if skipped > 0 {
			table.Append([]string{"", gapStyle.Render(fmt.Sprintf("%d empty slots", skipped)), ""})
			skipped = 0
		}

		table.Append([]string{
			fmt.Sprintf("%d", row.Index),
			Bar(row),
			Variables(row),
		})
	}

	table.Render()
	return nil
}

// Bar draws the 32 bytes of a slot, one cell per byte, in the colors of the fragments
// covering them.
func Bar(row types.SlotRow) string {
	cells := make([]string, types.SlotBytes)
	for i := range cells {
		cells[i] = gapStyle.Render(emptyCell)
	}

	for _, f := range row.Fragments {
		start := fragmentStart(f)
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(f.Color))

		for b := start; b < start+f.Width && b < types.SlotBytes; b++ {
			cells[b] = style.Render(filledCell)
		}
	}

	return strings.Join(cells, "")
}

// Variables lists the fragments of a slot as "label type [offset+width]".
func Variables(row types.SlotRow) string {
	if row.IsGap() {
		return ""
	}

	lines := make([]string, 0, len(row.Fragments))
	for _, f := range row.Fragments {
		start := fragmentStart(f)
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(f.Color))

		line := fmt.Sprintf("%s %s [%d+%d]", style.Render(f.Item.Label), f.TypeLabel, start, f.Width)
		if f.Continuation {
			line += " (cont.)"
		}
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

func fragmentStart(f types.ItemFragment) uint64 {
	if f.Continuation {
		return 0
	}
	return f.Item.Offset
}
