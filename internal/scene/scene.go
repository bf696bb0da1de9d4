// Package scene turns a computed layout into a typed, renderer-agnostic
// scene graph.
//
// The scene carries everything a renderer needs: boxes, titles, column
// nodes with their label and copy positions, connective paths and the two
// auxiliary panel slots. Renderers never compute coordinates themselves.
package scene

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/sorlineage/internal/highlight"
	"github.com/leapstack-labs/sorlineage/internal/layout"
	"github.com/leapstack-labs/sorlineage/pkg/core"
)

// Node decoration offsets, relative to the block's left edge.
const (
	labelOffset      = 20
	copyOffset       = 220
	backgroundOffset = 10
	backgroundWidth  = 230
	backgroundHeight = 20
	boxTopMargin     = 30
	titleMargin      = 40
	copyRise         = 10
	backgroundRise   = 15
)

// Panel slot geometry.
const (
	PanelWidth     = 350
	PanelMaxHeight = 130
)

// Panel slot identifiers.
const (
	RulePanelID    = "ruleBox"
	ExamplePanelID = "exampleBox"
)

// Point is a canvas position.
type Point = layout.Point

// Rect is an axis-aligned rectangle.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Scene is the complete renderable diagram for one selection.
type Scene struct {
	Sheet        string       `json:"sheet"`
	RecordID     string       `json:"record_id"`
	Width        int          `json:"width"`
	Height       int          `json:"height"`
	Inputs       []InputBlock `json:"inputs"`
	Output       OutputBlock  `json:"output"`
	Paths        []Path       `json:"paths"`
	RulePanel    PanelSlot    `json:"rule_panel"`
	ExamplePanel PanelSlot    `json:"example_panel"`
}

// InputBlock is one input table box.
type InputBlock struct {
	Table    string      `json:"table"`
	Title    string      `json:"title"`
	Box      Rect        `json:"box"`
	TitlePos Point       `json:"title_pos"`
	Columns  []InputNode `json:"columns"`
}

// InputNode is one input column inside a block.
type InputNode struct {
	ID         string `json:"id"`
	Table      string `json:"table"`
	Column     string `json:"column"`
	Anchor     Point  `json:"anchor"`
	Label      Point  `json:"label"`
	Background Rect   `json:"background"`
	Copy       Point  `json:"copy"`
	CopyValue  string `json:"copy_value"`
}

// OutputBlock is the box listing the output columns of the selection.
type OutputBlock struct {
	Title    string       `json:"title"`
	Box      Rect         `json:"box"`
	TitlePos Point        `json:"title_pos"`
	Columns  []OutputNode `json:"columns"`
}

// OutputNode is one selectable output column.
type OutputNode struct {
	Name      string `json:"name"`
	Anchor    Point  `json:"anchor"`
	Label     Point  `json:"label"`
	Copy      Point  `json:"copy"`
	CopyValue string `json:"copy_value"`
	Rule      string `json:"rule,omitempty"`
	Example   string `json:"example,omitempty"`
}

// Path is a connective curve from an input node to an output node.
// Paths start hidden; a highlight view reveals them.
type Path struct {
	ID           string `json:"id"`
	OutputColumn string `json:"output_column"`
	InputID      string `json:"input_id"`
	D            string `json:"d"`
	Hidden       bool   `json:"hidden"`
}

// PanelSlot is the placement of an auxiliary text panel.
type PanelSlot struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Left      int    `json:"left"`
	Top       int    `json:"top"`
	Width     int    `json:"width"`
	MaxHeight int    `json:"max_height"`
}

// InputID returns the identifier shared by an input node and the paths
// leaving it. A column whose case-folded name repeats within its table gets
// its row index appended, so every node keeps a distinct id.
func InputID(ref core.Reference) string {
	return ref.AnchorKey()
}

func repeatedInputID(ref core.Reference, row int) string {
	return InputID(ref) + "#" + strconv.Itoa(row)
}

// Emit builds the scene of a layout. The slice supplies the rule and example
// text bound to each output column.
func Emit(l *layout.Layout, slice *core.Slice) *Scene {
	cfg := l.Config
	s := &Scene{
		Sheet:    slice.Sheet,
		RecordID: slice.RecordID,
		Width:    l.Width,
		Height:   l.Height,
		Inputs:   make([]InputBlock, 0, len(l.Tables)),
		Paths:    make([]Path, 0, len(l.Paths)),
	}

	// Paths anchor at the last row of a repeated column.
	anchorIDs := make(map[string]string)
	for _, t := range l.Tables {
		block := InputBlock{
			Table:    t.Name,
			Title:    Title(t.Name),
			Box:      Rect{X: cfg.InputX, Y: t.Top - boxTopMargin, Width: cfg.BoxWidth, Height: t.Height},
			TitlePos: Point{X: cfg.InputX + cfg.BoxWidth/2, Y: t.Top - titleMargin},
			Columns:  make([]InputNode, 0, len(t.Columns)),
		}
		for i, c := range t.Columns {
			key := c.Ref().AnchorKey()
			id := InputID(c.Ref())
			if _, dup := anchorIDs[key]; dup {
				id = repeatedInputID(c.Ref(), i)
			}
			anchorIDs[key] = id

			block.Columns = append(block.Columns, InputNode{
				ID:     id,
				Table:  c.Table,
				Column: c.Column,
				Anchor: c.Anchor,
				Label:  Point{X: cfg.InputX + labelOffset, Y: c.Y},
				Background: Rect{
					X:      cfg.InputX + backgroundOffset,
					Y:      c.Y - backgroundRise,
					Width:  backgroundWidth,
					Height: backgroundHeight,
				},
				Copy:      Point{X: cfg.InputX + copyOffset, Y: c.Y - copyRise},
				CopyValue: c.Column,
			})
		}
		s.Inputs = append(s.Inputs, block)
	}

	s.Output = OutputBlock{
		Title:    slice.Sheet,
		Box:      Rect{X: cfg.OutputX, Y: cfg.StartY - boxTopMargin, Width: cfg.BoxWidth, Height: l.OutputHeight},
		TitlePos: Point{X: cfg.OutputX + cfg.BoxWidth/2, Y: cfg.StartY - titleMargin},
		Columns:  make([]OutputNode, 0, len(l.Outputs)),
	}
	for _, o := range l.Outputs {
		node := OutputNode{
			Name:      o.Name,
			Anchor:    o.Anchor,
			Label:     Point{X: cfg.OutputX + labelOffset, Y: o.Y},
			Copy:      Point{X: cfg.OutputX + copyOffset, Y: o.Y - copyRise},
			CopyValue: o.Name,
		}
		if col, ok := slice.Column(o.Name); ok {
			node.Rule = col.Rule
			node.Example = col.Example
		}
		s.Output.Columns = append(s.Output.Columns, node)
	}

	seen := make(map[string]int, len(l.Paths))
	for _, p := range l.Paths {
		id := "line:" + p.Input.ID() + "->" + p.OutputColumn
		// Duplicate references draw one path each.
		if n := seen[id]; n > 0 {
			seen[id] = n + 1
			id += "#" + strconv.Itoa(n+1)
		} else {
			seen[id] = 1
		}
		s.Paths = append(s.Paths, Path{
			ID:           id,
			OutputColumn: p.OutputColumn,
			InputID:      anchorIDs[p.Input.AnchorKey()],
			D:            p.D(),
			Hidden:       true,
		})
	}

	s.RulePanel = PanelSlot{
		ID:        RulePanelID,
		Title:     "Transformation Rule",
		Left:      cfg.OutputX,
		Top:       l.RulePanelTop,
		Width:     PanelWidth,
		MaxHeight: PanelMaxHeight,
	}
	s.ExamplePanel = PanelSlot{
		ID:        ExamplePanelID,
		Title:     "Sample Example",
		Left:      cfg.OutputX,
		Top:       l.ExamplePanelTop,
		Width:     PanelWidth,
		MaxHeight: PanelMaxHeight,
	}
	return s
}

// Diagram returns the element inventory the highlight reducer derives its
// view from.
func (s *Scene) Diagram() highlight.Diagram {
	d := highlight.Diagram{
		Columns: make([]highlight.Column, 0, len(s.Output.Columns)),
		Paths:   make([]highlight.PathRef, 0, len(s.Paths)),
	}
	for _, c := range s.Output.Columns {
		d.Columns = append(d.Columns, highlight.Column{Name: c.Name, Rule: c.Rule, Example: c.Example})
	}
	for _, p := range s.Paths {
		d.Paths = append(d.Paths, highlight.PathRef{ID: p.ID, OutputColumn: p.OutputColumn, InputID: p.InputID})
	}
	return d
}

// HasOutput reports whether the scene lists an output column.
func (s *Scene) HasOutput(name string) bool {
	for _, c := range s.Output.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Title formats a table name for display. Every underscore separated word
// is capitalized.
func Title(name string) string {
	titler := cases.Title(language.Und)
	parts := strings.Split(name, "_")
	for i, p := range parts {
		parts[i] = titler.String(p)
	}
	return strings.Join(parts, "_")
}
