// Package layout positions the nodes and connective paths of a lineage
// diagram.
//
// Input tables stack vertically on the left, each listing its full catalog
// column list; output columns form a single list on the right. Every resolved
// reference whose input column was laid out becomes a cubic path from the
// input anchor to the output anchor.
//
// Compute is a pure function: the same catalog, slice and config always give
// the same coordinates.
package layout

import (
	"fmt"

	"github.com/leapstack-labs/sorlineage/pkg/core"
)

// Point is a position on the canvas.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// InputColumn is a laid out input column node.
type InputColumn struct {
	Table  string `json:"table"`
	Column string `json:"column"`
	Y      int    `json:"y"`      // text baseline
	Anchor Point  `json:"anchor"` // path start
}

// Ref returns the column as a reference.
func (c InputColumn) Ref() core.Reference {
	return core.Reference{Table: c.Table, Column: c.Column}
}

// InputTable is one stacked input table block.
type InputTable struct {
	Name    string        `json:"name"`
	Top     int           `json:"top"` // baseline of the first column
	Height  int           `json:"height"`
	Columns []InputColumn `json:"columns"`
}

// OutputColumn is a laid out output column node.
type OutputColumn struct {
	Name   string `json:"name"`
	Y      int    `json:"y"`
	Anchor Point  `json:"anchor"`
}

// Path connects an input anchor to an output anchor.
// Both control points share the midpoint x so the curve leaves and enters
// horizontally.
type Path struct {
	OutputColumn string         `json:"output_column"`
	Input        core.Reference `json:"input"`
	From         Point          `json:"from"`
	Control1     Point          `json:"control1"`
	Control2     Point          `json:"control2"`
	To           Point          `json:"to"`
}

// D returns the SVG path data of the curve.
func (p Path) D() string {
	return fmt.Sprintf("M %d %d C %d %d, %d %d, %d %d",
		p.From.X, p.From.Y,
		p.Control1.X, p.Control1.Y,
		p.Control2.X, p.Control2.Y,
		p.To.X, p.To.Y)
}

// Layout is the geometry of one selection.
type Layout struct {
	Config  Config         `json:"config"`
	Tables  []InputTable   `json:"tables"`
	Outputs []OutputColumn `json:"outputs"`
	Paths   []Path         `json:"paths"`

	OutputHeight    int `json:"output_height"` // height of the output block
	RulePanelTop    int `json:"rule_panel_top"`
	ExamplePanelTop int `json:"example_panel_top"`
	Width           int `json:"width"`
	Height          int `json:"height"`
}

// Compute lays out a slice of the lineage index.
func Compute(catalog *core.Catalog, slice *core.Slice, cfg Config) *Layout {
	cfg = cfg.withDefaults()

	l := &Layout{Config: cfg}

	anchors := l.stackInputs(catalog, slice.ReferencedTables())
	l.listOutputs(slice)
	l.connect(slice, anchors)

	inputBottom := cfg.StartY
	if n := len(l.Tables); n > 0 {
		last := l.Tables[n-1]
		inputBottom = last.Top + last.Height + cfg.BlockGap
	}
	outputEnd := cfg.StartY + len(l.Outputs)*cfg.RowHeight
	outputBottom := outputEnd + cfg.PanelMargin

	l.RulePanelTop = outputEnd + cfg.RulePanelOffset
	l.ExamplePanelTop = outputEnd + cfg.ExamplePanelOffset

	l.Width = cfg.CanvasWidth
	l.Height = max(inputBottom, outputBottom) + cfg.TrailingMargin
	return l
}

// stackInputs places the referenced tables top to bottom and returns the
// anchor of every laid out input column keyed by Reference.AnchorKey.
func (l *Layout) stackInputs(catalog *core.Catalog, tables []string) map[string]Point {
	cfg := l.Config
	anchors := make(map[string]Point)
	top := cfg.StartY

	for _, name := range tables {
		cols, ok := catalog.Columns(name)
		if !ok {
			continue
		}

		block := InputTable{
			Name:    name,
			Top:     top,
			Height:  len(cols)*cfg.RowHeight + cfg.BlockPadding,
			Columns: make([]InputColumn, 0, len(cols)),
		}
		for i, col := range cols {
			y := top + i*cfg.RowHeight
			ic := InputColumn{
				Table:  name,
				Column: col,
				Y:      y,
				Anchor: Point{X: cfg.InputAnchorX(), Y: y},
			}
			block.Columns = append(block.Columns, ic)

			// A column listed twice anchors at its last row.
			anchors[ic.Ref().AnchorKey()] = ic.Anchor
		}

		l.Tables = append(l.Tables, block)
		top += block.Height + cfg.BlockGap
	}
	return anchors
}

// listOutputs places the output columns in slice order.
func (l *Layout) listOutputs(slice *core.Slice) {
	cfg := l.Config
	l.Outputs = make([]OutputColumn, 0, len(slice.Columns))
	for j, col := range slice.Columns {
		y := cfg.StartY + j*cfg.RowHeight
		l.Outputs = append(l.Outputs, OutputColumn{
			Name:   col.Name,
			Y:      y,
			Anchor: Point{X: cfg.OutputAnchorX(), Y: y},
		})
	}
	l.OutputHeight = len(slice.Columns)*cfg.RowHeight + cfg.BlockPadding
}

// connect builds a path for every reference with a known input anchor.
func (l *Layout) connect(slice *core.Slice, anchors map[string]Point) {
	l.Paths = []Path{}
	for j, col := range slice.Columns {
		to := l.Outputs[j].Anchor
		for _, ref := range col.References {
			from, ok := anchors[ref.AnchorKey()]
			if !ok {
				continue
			}
			cx := (from.X + to.X) / 2
			l.Paths = append(l.Paths, Path{
				OutputColumn: col.Name,
				Input:        ref,
				From:         from,
				Control1:     Point{X: cx, Y: from.Y},
				Control2:     Point{X: cx, Y: to.Y},
				To:           to,
			})
		}
	}
}

// InputAnchor returns the anchor of an input column, if it was laid out.
func (l *Layout) InputAnchor(ref core.Reference) (Point, bool) {
	k := ref.AnchorKey()
	var (
		anchor Point
		found  bool
	)
	for _, t := range l.Tables {
		for _, c := range t.Columns {
			if c.Ref().AnchorKey() == k {
				anchor, found = c.Anchor, true
			}
		}
	}
	return anchor, found
}

// PathsTo returns the paths ending at an output column.
func (l *Layout) PathsTo(output string) []Path {
	var out []Path
	for _, p := range l.Paths {
		if p.OutputColumn == output {
			out = append(out, p)
		}
	}
	return out
}
