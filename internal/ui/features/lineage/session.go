package lineage

import (
	"encoding/json"
	"net/http"

	"github.com/leapstack-labs/sorlineage/internal/highlight"
	"github.com/leapstack-labs/sorlineage/pkg/core"
)

const (
	sessionName  = "sorlineage"
	highlightKey = "highlight"
)

// storedHighlight is the highlight state kept in the session cookie.
// It is bound to the selection it was made on.
type storedHighlight struct {
	Sheet    string   `json:"sheet"`
	RecordID string   `json:"record_id"`
	Selected []string `json:"selected"`
}

// loadState returns the stored highlight state for sel. A state stored for
// another selection, or an unreadable one, yields the empty state.
func (h *Handlers) loadState(r *http.Request, sel core.Selection) highlight.State {
	// A decode error still returns a fresh session.
	session, _ := h.sessionStore.Get(r, sessionName)
	raw, ok := session.Values[highlightKey].(string)
	if !ok {
		return highlight.State{}
	}

	var stored storedHighlight
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		h.logger.Debug("discarding unreadable highlight state", "error", err)
		return highlight.State{}
	}
	if stored.Sheet != sel.Sheet || stored.RecordID != sel.RecordID {
		return highlight.State{}
	}
	return highlight.NewState(stored.Selected...)
}

// saveState stores st for sel. It must run before any SSE output since it
// writes a cookie header.
func (h *Handlers) saveState(w http.ResponseWriter, r *http.Request, sel core.Selection, st highlight.State) error {
	session, _ := h.sessionStore.Get(r, sessionName)
	data, err := json.Marshal(storedHighlight{
		Sheet:    sel.Sheet,
		RecordID: sel.RecordID,
		Selected: st.Selected(),
	})
	if err != nil {
		return err
	}
	session.Values[highlightKey] = string(data)
	return session.Save(r, w)
}
