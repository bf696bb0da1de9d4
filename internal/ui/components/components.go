// Package components renders the lineage viewer markup as templ components.
// The *_templ.go files are generated from the .templ sources.
package components

//go:generate go run github.com/a-h/templ/cmd/templ generate

import (
	"strings"

	"github.com/leapstack-labs/sorlineage/internal/highlight"
	"github.com/leapstack-labs/sorlineage/internal/scene"
)

// inlineStyle wraps a stylesheet in a style element. Closing tags inside the
// sheet are broken up so they cannot end the element early.
func inlineStyle(css string) string {
	return "<style>" + strings.ReplaceAll(css, "</", `<\/`) + "</style>"
}

// reportRow is one output column of a report with the distinct input
// columns feeding it, in path order.
type reportRow struct {
	Name     string
	Selected bool
	Sources  []string
}

func reportRows(sc *scene.Scene, v highlight.View) []reportRow {
	inputs := make(map[string]string)
	for _, block := range sc.Inputs {
		for _, col := range block.Columns {
			inputs[col.ID] = col.Table + "." + col.Column
		}
	}

	rows := make([]reportRow, 0, len(sc.Output.Columns))
	for _, out := range sc.Output.Columns {
		_, selected := v.Outputs[out.Name]
		row := reportRow{Name: out.Name, Selected: selected}
		seen := make(map[string]bool)
		for _, p := range sc.Paths {
			name, ok := inputs[p.InputID]
			if p.OutputColumn != out.Name || !ok || seen[name] {
				continue
			}
			seen[name] = true
			row.Sources = append(row.Sources, name)
		}
		rows = append(rows, row)
	}
	return rows
}

func sourceSep(i int) string {
	if i == 0 {
		return "from "
	}
	return ", "
}
