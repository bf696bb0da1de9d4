package lineage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/sorlineage/internal/engine"
	"github.com/leapstack-labs/sorlineage/internal/highlight"
	"github.com/leapstack-labs/sorlineage/internal/ui/components"
	"github.com/leapstack-labs/sorlineage/internal/ui/notifier"
	"github.com/leapstack-labs/sorlineage/pkg/core"
)

const notLoadedNotice = "Lineage is not loaded yet."

// Handlers provides HTTP handlers for the lineage viewer.
type Handlers struct {
	engine       *engine.Engine
	sessionStore sessions.Store
	notifier     *notifier.Notifier
	logger       *slog.Logger
	isDev        bool
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(eng *engine.Engine, sessionStore sessions.Store, notify *notifier.Notifier, logger *slog.Logger, isDev bool) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		engine:       eng,
		sessionStore: sessionStore,
		notifier:     notify,
		logger:       logger,
		isDev:        isDev,
	}
}

// Home redirects to the first sheet and record.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	target := "/lineage"
	if b := h.engine.Current(); b != nil {
		if sel, err := b.Resolve(core.Selection{}); err == nil && sel.Sheet != "" {
			target += "?" + selectionQuery(sel)
		}
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// LineagePage renders the full viewer page for the requested selection.
func (h *Handlers) LineagePage(w http.ResponseWriter, r *http.Request) {
	sel, err := readSelection(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	title := "Lineage"
	data := components.AppData{Notice: notLoadedNotice}

	if b := h.engine.Current(); b != nil {
		resolved, err := b.Resolve(sel)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, core.ErrSheetNotFound) || errors.Is(err, core.ErrRecordNotFound) {
				status = http.StatusNotFound
			}
			http.Error(w, err.Error(), status)
			return
		}

		data, err = h.appData(b, resolved, h.loadState(r, resolved), "")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if resolved.Sheet != "" {
			title = resolved.Sheet + " / " + resolved.RecordID
		}
	}

	if err := components.Page(title, h.isDev, data).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Updates is the long-lived SSE endpoint of the page. It announces every
// new build by patching the build signal; the page then posts a refresh.
func (h *Handlers) Updates(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	updates := h.notifier.Subscribe()
	defer h.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-updates:
			if !ok {
				return
			}
			// Only the build signal; the selection belongs to the client.
			if err := sse.MarshalAndPatchSignals(map[string]string{"build": ev.Fingerprint}); err != nil {
				h.logger.Debug("failed to announce build", "error", err)
				return
			}
		}
	}
}

// Select switches to another sheet or record. The highlight state resets.
func (h *Handlers) Select(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(highlight.State) highlight.State { return highlight.State{} }, true)
}

// Refresh re-renders the app from the current build, keeping the stored
// highlight state when the selection still exists.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(st highlight.State) highlight.State { return st }, true)
}

// Toggle flips one output column in the highlight selection.
func (h *Handlers) Toggle(w http.ResponseWriter, r *http.Request) {
	column := r.URL.Query().Get("column")
	if column == "" {
		http.Error(w, "missing column", http.StatusBadRequest)
		return
	}
	h.respond(w, r, func(st highlight.State) highlight.State {
		return highlight.Reduce(st, highlight.Toggle{Column: column})
	}, false)
}

// Clear empties the highlight selection.
func (h *Handlers) Clear(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(st highlight.State) highlight.State {
		return highlight.Reduce(st, highlight.Clear{})
	}, false)
}

// respond runs one interaction: it resolves the selection, applies next to
// the stored state, saves it and patches the page. Diagram-only updates
// patch the SVG and panels; everything else patches the whole app.
func (h *Handlers) respond(w http.ResponseWriter, r *http.Request, next func(highlight.State) highlight.State, whole bool) {
	sel, err := readSelection(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	b := h.engine.Current()
	if b == nil {
		http.Error(w, notLoadedNotice, http.StatusServiceUnavailable)
		return
	}

	resolved, notice := h.resolve(b, sel)
	if notice != "" {
		whole = true
	}
	st := next(h.loadState(r, resolved))

	data, err := h.appData(b, resolved, st, notice)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// The session cookie must be written before the SSE stream starts.
	if err := h.saveState(w, r, resolved, st); err != nil {
		h.logger.Error("failed to save highlight state", "error", err)
	}

	sse := datastar.NewSSE(w, r)
	if whole {
		if err := sse.PatchElementTempl(components.App(data)); err != nil {
			_ = sse.ConsoleError(err)
			return
		}
		signals := components.Signals{
			Sheet:  resolved.Sheet,
			Record: resolved.RecordID,
			Shown:  data.Fingerprint,
		}
		if err := sse.MarshalAndPatchSignals(signals); err != nil {
			_ = sse.ConsoleError(err)
		}
		return
	}

	if err := sse.PatchElementTempl(components.Diagram(data.Scene, data.View)); err != nil {
		_ = sse.ConsoleError(err)
		return
	}
	if err := sse.PatchElementTempl(components.Panels(data.Scene, data.View)); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// SceneJSON returns the scene and highlight view of a selection as JSON.
// Repeated select parameters are toggled in order.
func (h *Handlers) SceneJSON(w http.ResponseWriter, r *http.Request) {
	b := h.engine.Current()
	if b == nil {
		http.Error(w, notLoadedNotice, http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	sel := core.Selection{Sheet: q.Get("sheet"), RecordID: q.Get("sor_id")}
	view, err := b.Render(sel, highlight.NewState(q["select"]...), h.engine.LayoutConfig(), h.engine.Palette())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrSheetNotFound) || errors.Is(err, core.ErrRecordNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any{
		"selection":   view.Selection,
		"fingerprint": b.Fingerprint,
		"scene":       view.Scene,
		"view":        view.Highlight,
	}); err != nil {
		h.logger.Debug("failed to write scene", "error", err)
	}
}

// resolve validates sel against the build. A selection that no longer
// exists falls back to the default one with a notice.
func (h *Handlers) resolve(b *engine.Build, sel core.Selection) (core.Selection, string) {
	resolved, err := b.Resolve(sel)
	if err == nil {
		return resolved, ""
	}
	def, _ := b.Resolve(core.Selection{})
	return def, fmt.Sprintf("%s / %s is no longer available.", sel.Sheet, sel.RecordID)
}

// appData renders sel with st into the data the components need.
func (h *Handlers) appData(b *engine.Build, sel core.Selection, st highlight.State, notice string) (components.AppData, error) {
	view, err := b.Render(sel, st, h.engine.LayoutConfig(), h.engine.Palette())
	if err != nil {
		return components.AppData{}, err
	}
	return components.AppData{
		Sheets:      b.Sheets,
		RecordIDs:   b.RecordIDs(view.Selection.Sheet),
		Selection:   view.Selection,
		Fingerprint: b.Fingerprint,
		Scene:       view.Scene,
		View:        view.Highlight,
		Notice:      notice,
	}, nil
}

// readSelection reads the selection from the datastar signals, with sheet
// and sor_id query parameters taking precedence.
func readSelection(r *http.Request) (core.Selection, error) {
	var sig components.Signals
	q := r.URL.Query()

	hasSignals := r.Method == http.MethodGet && q.Has("datastar")
	if r.Method != http.MethodGet && r.ContentLength != 0 {
		hasSignals = true
	}
	if hasSignals {
		if err := datastar.ReadSignals(r, &sig); err != nil {
			return core.Selection{}, fmt.Errorf("invalid signals: %w", err)
		}
	}

	if v := q.Get("sheet"); v != "" {
		sig.Sheet = v
	}
	if v := q.Get("sor_id"); v != "" {
		sig.Record = v
	}
	return core.Selection{Sheet: sig.Sheet, RecordID: sig.Record}, nil
}

func selectionQuery(sel core.Selection) string {
	return url.Values{"sheet": {sel.Sheet}, "sor_id": {sel.RecordID}}.Encode()
}
