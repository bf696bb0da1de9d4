package components

import (
	"encoding/json"

	"github.com/leapstack-labs/sorlineage/internal/highlight"
	"github.com/leapstack-labs/sorlineage/internal/scene"
	"github.com/leapstack-labs/sorlineage/pkg/core"
)

// DatastarScript is the client bundle the page loads.
const DatastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"

// Signals is the client-side state shared with the server on every action.
// Build is the fingerprint of the newest server build and Shown the one on
// screen; when they differ the page asks for a refresh.
type Signals struct {
	Sheet  string `json:"sheet"`
	Record string `json:"record"`
	Build  string `json:"build,omitempty"`
	Shown  string `json:"shown,omitempty"`
}

// RefreshEffect re-renders the app once a newer build is announced.
const RefreshEffect = "$build != $shown && @post('/lineage/refresh')"

// AppData is everything the viewer renders for one selection.
type AppData struct {
	Sheets    []string
	RecordIDs []string
	Selection core.Selection
	// Fingerprint identifies the build the data was rendered from.
	Fingerprint string
	// Scene is nil when nothing is loaded.
	Scene *scene.Scene
	View  highlight.View
	// Notice is shown above the diagram when set.
	Notice string
}

// signals encodes the initial client state of a page.
func signals(data AppData) string {
	b, _ := json.Marshal(Signals{
		Sheet:  data.Selection.Sheet,
		Record: data.Selection.RecordID,
		Build:  data.Fingerprint,
		Shown:  data.Fingerprint,
	})
	return string(b)
}

// Select actions. Picking a sheet clears the record so the server falls back
// to the sheet's first one.
const (
	sheetChange  = "$sheet = evt.target.value; $record = ''; @post('/lineage/select')"
	recordChange = "$record = evt.target.value; @post('/lineage/select')"
)
