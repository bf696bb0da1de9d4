package highlight

import "strings"

// Neutral styling of elements not touched by any selection.
const (
	NeutralText = "#eee"
	NeutralLine = "#999"
	NeutralFill = "none"
)

// Palette is the ordered list of selection colors.
type Palette []string

// DefaultPalette is the standard six-color selection palette.
var DefaultPalette = Palette{"#66ff66", "#00ccff", "#ff66cc", "#ffcc00", "#cc66ff", "#ff6666"}

// Color returns the color of selection slot i.
func (p Palette) Color(i int) string {
	if len(p) == 0 {
		p = DefaultPalette
	}
	return p[i%len(p)]
}

// Diagram is what Derive needs to know about the rendered elements.
type Diagram struct {
	Columns []Column
	Paths   []PathRef
}

// Column is an output column present in the diagram.
type Column struct {
	Name    string
	Rule    string
	Example string
}

// PathRef is a connective path present in the diagram.
type PathRef struct {
	ID           string
	OutputColumn string
	InputID      string
}

// Panel is the derived content of an auxiliary text panel.
type Panel struct {
	Text    string `json:"text"`
	Visible bool   `json:"visible"`
}

// View is the complete visual state derived from a selection.
// Elements missing from the maps use neutral styling; paths missing from
// Paths are hidden.
type View struct {
	Selected     []string          `json:"selected"`
	Outputs      map[string]string `json:"outputs"` // output column -> color
	Paths        map[string]string `json:"paths"`   // path id -> color
	Inputs       map[string]string `json:"inputs"`  // input id -> color
	RulePanel    Panel             `json:"rule_panel"`
	ExamplePanel Panel             `json:"example_panel"`
}

// OutputColor returns the label color of an output column.
func (v View) OutputColor(column string) string {
	if c, ok := v.Outputs[column]; ok {
		return c
	}
	return NeutralText
}

// PathStyle returns the stroke color of a path and whether it is shown.
func (v View) PathStyle(id string) (string, bool) {
	if c, ok := v.Paths[id]; ok {
		return c, true
	}
	return NeutralLine, false
}

// InputStyle returns the background fill and text color of an input column.
func (v View) InputStyle(id string) (fill, text string) {
	if c, ok := v.Inputs[id]; ok {
		return c, c
	}
	return NeutralFill, NeutralText
}

// Derive computes the view for a state from scratch.
func Derive(s State, palette Palette, d Diagram) View {
	v := View{
		Selected: s.Selected(),
		Outputs:  make(map[string]string),
		Paths:    make(map[string]string),
		Inputs:   make(map[string]string),
	}
	if s.Empty() {
		return v
	}

	columns := make(map[string]Column, len(d.Columns))
	for _, c := range d.Columns {
		columns[c.Name] = c
	}

	var rules, examples []string
	for i, name := range s.selected {
		col, ok := columns[name]
		if !ok {
			// The slot keeps its color index even when the column is absent.
			continue
		}
		color := palette.Color(i)
		v.Outputs[name] = color

		for _, p := range d.Paths {
			if p.OutputColumn != name {
				continue
			}
			v.Paths[p.ID] = color
			if p.InputID != "" {
				v.Inputs[p.InputID] = color
			}
		}

		if col.Rule != "" {
			rules = append(rules, panelBlock(name, "Rule", col.Rule))
		}
		if col.Example != "" {
			examples = append(examples, panelBlock(name, "Example", col.Example))
		}
	}

	v.RulePanel = newPanel(rules)
	v.ExamplePanel = newPanel(examples)
	return v
}

func panelBlock(column, label, text string) string {
	return "🟡 Output Column: " + column + "\n- " + label + ": " + text
}

func newPanel(blocks []string) Panel {
	text := strings.TrimSpace(strings.Join(blocks, "\n\n"))
	return Panel{Text: text, Visible: text != ""}
}
