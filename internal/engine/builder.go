package engine

import (
	"fmt"
	"slices"
	"time"

	"github.com/leapstack-labs/sorlineage/internal/highlight"
	"github.com/leapstack-labs/sorlineage/internal/layout"
	"github.com/leapstack-labs/sorlineage/internal/lineage"
	"github.com/leapstack-labs/sorlineage/internal/scene"
	"github.com/leapstack-labs/sorlineage/pkg/core"
)

// Build is one immutable lineage build. It is shared between goroutines
// and must not be modified after it is published.
type Build struct {
	Catalog     *core.Catalog
	Index       *core.Index
	Sheets      []string // every output table, including ones without valid rows
	Fingerprint string
	Origin      string // OriginSource or OriginState
	Location    string // source paths or stored source description
	Stats       lineage.Stats
	BuiltAt     time.Time
}

// HasSheet reports whether the build knows an output table.
func (b *Build) HasSheet(sheet string) bool {
	return slices.Contains(b.Sheets, sheet)
}

// RecordIDs returns the record ids of a sheet in first-seen order.
func (b *Build) RecordIDs(sheet string) []string {
	return b.Index.RecordIDs(sheet)
}

// Resolve completes and validates a selection. An empty sheet selects the
// first sheet; an empty record id selects the first record of the sheet.
// A sheet without records resolves to an empty record id.
func (b *Build) Resolve(sel core.Selection) (core.Selection, error) {
	if sel.Sheet == "" {
		if def, ok := b.Index.Default(); ok {
			return def, nil
		}
		if len(b.Sheets) > 0 {
			return core.Selection{Sheet: b.Sheets[0]}, nil
		}
		return sel, nil
	}

	if !b.HasSheet(sel.Sheet) {
		return sel, fmt.Errorf("%w: %s", core.ErrSheetNotFound, sel.Sheet)
	}

	ids := b.Index.RecordIDs(sel.Sheet)
	if sel.RecordID == "" {
		if len(ids) > 0 {
			sel.RecordID = ids[0]
		}
		return sel, nil
	}
	if !slices.Contains(ids, sel.RecordID) {
		return sel, fmt.Errorf("%w: %s in %s", core.ErrRecordNotFound, sel.RecordID, sel.Sheet)
	}
	return sel, nil
}

// View is a rendered selection: the scene and its highlight view.
type View struct {
	Selection core.Selection
	Slice     *core.Slice
	Layout    *layout.Layout
	Scene     *scene.Scene
	State     highlight.State
	Highlight highlight.View
}

// Render lays out a selection and derives the highlight view for st.
// Selected columns absent from the selection's output list keep their
// color slot but style nothing.
func (e *Engine) Render(sel core.Selection, st highlight.State) (*View, error) {
	b := e.current.Load()
	if b == nil {
		return nil, ErrNotLoaded
	}
	return b.Render(sel, st, e.layout, e.palette)
}

// Render lays out a selection of the build.
func (b *Build) Render(sel core.Selection, st highlight.State, cfg layout.Config, palette highlight.Palette) (*View, error) {
	sel, err := b.Resolve(sel)
	if err != nil {
		return nil, err
	}

	slice := b.Index.Slice(sel)
	l := layout.Compute(b.Catalog, slice, cfg)
	sc := scene.Emit(l, slice)

	return &View{
		Selection: sel,
		Slice:     slice,
		Layout:    l,
		Scene:     sc,
		State:     st,
		Highlight: highlight.Derive(st, palette, sc.Diagram()),
	}, nil
}
