// Package engine ties the lineage pipeline together.
// It loads a workbook source, builds the lineage index, keeps the latest
// build in memory and persists it to the state store on request.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leapstack-labs/sorlineage/internal/highlight"
	"github.com/leapstack-labs/sorlineage/internal/layout"
	"github.com/leapstack-labs/sorlineage/internal/lineage"
	"github.com/leapstack-labs/sorlineage/internal/loader"
	"github.com/leapstack-labs/sorlineage/internal/state"
)

// ErrNotLoaded is returned when no build is available yet.
var ErrNotLoaded = errors.New("lineage not loaded")

// Build origins.
const (
	OriginSource = "source"
	OriginState  = "state"
)

// Engine owns the current lineage build.
// Readers call Current concurrently with Reload; a reload swaps the build
// atomically.
type Engine struct {
	source  loader.Source
	store   state.Store
	layout  layout.Config
	palette highlight.Palette
	logger  *slog.Logger

	current  atomic.Pointer[Build]
	reloadMu sync.Mutex
}

// Config holds engine configuration.
type Config struct {
	// Source is the workbook source. Optional when builds only come from
	// the state store.
	Source loader.Source
	// Store persists snapshots (optional).
	Store state.Store
	// Layout holds the diagram metrics. Zero fields use defaults.
	Layout layout.Config
	// Palette is the highlight color palette. Empty uses the default.
	Palette highlight.Palette
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New creates an engine. Nothing is loaded until Reload or LoadFromState.
func New(cfg Config) (*Engine, error) {
	if cfg.Source == nil && cfg.Store == nil {
		return nil, fmt.Errorf("engine requires a lineage source or a state store")
	}
	if err := cfg.Layout.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layout: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	palette := cfg.Palette
	if len(palette) == 0 {
		palette = highlight.DefaultPalette
	}

	return &Engine{
		source:  cfg.Source,
		store:   cfg.Store,
		layout:  cfg.Layout,
		palette: palette,
		logger:  logger,
	}, nil
}

// Current returns the latest build, or nil before the first load.
func (e *Engine) Current() *Build {
	return e.current.Load()
}

// Palette returns the highlight palette in use.
func (e *Engine) Palette() highlight.Palette {
	return e.palette
}

// LayoutConfig returns the diagram metrics in use.
func (e *Engine) LayoutConfig() layout.Config {
	return e.layout
}

// Source returns the workbook source, or nil.
func (e *Engine) Source() loader.Source {
	return e.source
}

// Reload reads the source and rebuilds the index. When the workbook content
// is unchanged the current build is kept and changed is false.
func (e *Engine) Reload(ctx context.Context) (build *Build, changed bool, err error) {
	if e.source == nil {
		return nil, false, fmt.Errorf("no lineage source configured")
	}

	e.reloadMu.Lock()
	defer e.reloadMu.Unlock()

	start := time.Now()
	wb, err := e.source.Load(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load workbook: %w", err)
	}

	fp, err := loader.Fingerprint(wb)
	if err != nil {
		return nil, false, fmt.Errorf("failed to fingerprint workbook: %w", err)
	}
	fingerprint := loader.FormatFingerprint(fp)

	if cur := e.current.Load(); cur != nil && cur.Origin == OriginSource && cur.Fingerprint == fingerprint {
		e.logger.Debug("workbook unchanged, keeping build", "fingerprint", fingerprint)
		return cur, false, nil
	}

	catalog := wb.BuildCatalog()
	ix, stats := lineage.BuildWithOptions(catalog, wb.Records, lineage.Options{Logger: e.logger})

	b := &Build{
		Catalog:     catalog,
		Index:       ix,
		Sheets:      mergeSheets(wb.Sheets, ix.Sheets()),
		Fingerprint: fingerprint,
		Origin:      OriginSource,
		Location:    strings.Join(e.source.Paths(), ", "),
		Stats:       stats,
		BuiltAt:     time.Now().UTC(),
	}
	e.current.Store(b)

	e.logger.Debug("lineage index built",
		"tables", catalog.Len(),
		"sheets", len(b.Sheets),
		"rows", stats.Rows,
		"skipped", stats.Skipped,
		"entries", stats.Entries,
		"references", stats.References,
		"fingerprint", fingerprint,
		"duration", time.Since(start))
	return b, true, nil
}

// LoadFromState replaces the current build with the latest stored snapshot.
func (e *Engine) LoadFromState(ctx context.Context) (*Build, error) {
	if e.store == nil {
		return nil, fmt.Errorf("no state store configured")
	}

	snap, err := e.store.LatestSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	b := &Build{
		Catalog:     snap.Catalog,
		Index:       snap.Index,
		Sheets:      mergeSheets(snap.Sheets, snap.Index.Sheets()),
		Fingerprint: snap.Fingerprint,
		Origin:      OriginState,
		Location:    snap.Source,
		Stats: lineage.Stats{
			Entries: snap.Index.Len(),
		},
		BuiltAt: snap.CreatedAt,
	}
	e.current.Store(b)

	e.logger.Debug("lineage loaded from state", "snapshot", snap.ID, "fingerprint", snap.Fingerprint)
	return b, nil
}

// SaveResult reports what Save did.
type SaveResult struct {
	Saved       bool
	Fingerprint string
}

// Save persists the current build as the latest snapshot. Unless force is
// set, nothing is written when the stored fingerprint already matches.
func (e *Engine) Save(ctx context.Context, force bool) (SaveResult, error) {
	if e.store == nil {
		return SaveResult{}, fmt.Errorf("no state store configured")
	}
	b := e.current.Load()
	if b == nil {
		return SaveResult{}, ErrNotLoaded
	}

	res := SaveResult{Fingerprint: b.Fingerprint}
	if !force {
		stored, err := e.store.LatestFingerprint(ctx)
		switch {
		case err == nil && stored == b.Fingerprint:
			e.logger.Debug("snapshot up to date", "fingerprint", stored)
			return res, nil
		case err != nil && !errors.Is(err, state.ErrNoSnapshot):
			return res, fmt.Errorf("failed to read stored fingerprint: %w", err)
		}
	}

	snap := &state.Snapshot{
		Fingerprint: b.Fingerprint,
		Source:      b.Location,
		CreatedAt:   time.Now().UTC(),
		Sheets:      b.Sheets,
		Catalog:     b.Catalog,
		Index:       b.Index,
	}
	if err := e.store.SaveSnapshot(ctx, snap); err != nil {
		return res, fmt.Errorf("failed to save snapshot: %w", err)
	}
	res.Saved = true
	return res, nil
}

// Close releases the state store, if any.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// mergeSheets appends the index sheets missing from the declared ones.
func mergeSheets(declared, indexed []string) []string {
	out := make([]string, 0, len(declared)+len(indexed))
	seen := make(map[string]struct{}, len(declared))
	for _, list := range [][]string{declared, indexed} {
		for _, s := range list {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
