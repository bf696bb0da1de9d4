package lineage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sorlineage/internal/testutil"
	"github.com/leapstack-labs/sorlineage/internal/ui/features"
	"github.com/leapstack-labs/sorlineage/internal/ui/notifier"
)

// =============================================================================
// Test Setup Helpers
// =============================================================================

func setupTestHandlers(t *testing.T) (*Handlers, *features.TestFixture) {
	t.Helper()

	fixture := features.SetupTestFixture(t, "")
	handlers := NewHandlers(
		fixture.Engine,
		fixture.SessionStore,
		fixture.Notifier,
		testutil.NewTestLogger(t),
		false,
	)
	return handlers, fixture
}

// post runs a handler for a POST carrying the given cookies.
func post(h http.HandlerFunc, target string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

// =============================================================================
// Page Tests
// =============================================================================

func TestHome_RedirectsToDefaultSelection(t *testing.T) {
	h, _ := setupTestHandlers(t)

	rec := httptest.NewRecorder()
	h.Home(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/lineage?sheet=orders_out&sor_id=1", rec.Header().Get("Location"))
}

func TestHome_NotLoaded(t *testing.T) {
	fixture := features.SetupUnloadedFixture(t, filepath.Join(t.TempDir(), "missing.yaml"))
	h := NewHandlers(fixture.Engine, fixture.SessionStore, fixture.Notifier, nil, false)

	rec := httptest.NewRecorder()
	h.Home(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/lineage", rec.Header().Get("Location"))
}

func TestLineagePage(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantBody   []string
		notBody    []string
	}{
		{
			name:       "default selection",
			target:     "/lineage",
			wantStatus: http.StatusOK,
			wantBody: []string{
				"<!doctype html>",
				"<title>orders_out / 1 - sorlineage</title>",
				`data-init="@get(&#39;/lineage/updates&#39;)"`,
				`id="out:cust_name"`,
				`id="out:total"`,
				`id="in:customers.name"`,
			},
			notBody: []string{`id="out:cust_id"`},
		},
		{
			name:       "explicit record",
			target:     "/lineage?sheet=orders_out&sor_id=2",
			wantStatus: http.StatusOK,
			wantBody: []string{
				"<title>orders_out / 2 - sorlineage</title>",
				`id="out:cust_id"`,
			},
			notBody: []string{`id="out:cust_name"`},
		},
		{
			name:       "sheet without records",
			target:     "/lineage?sheet=empty_sheet",
			wantStatus: http.StatusOK,
			wantBody:   []string{`<option value="empty_sheet" selected>`},
		},
		{
			name:       "unknown sheet",
			target:     "/lineage?sheet=nope",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown record",
			target:     "/lineage?sheet=orders_out&sor_id=99",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := setupTestHandlers(t)

			rec := httptest.NewRecorder()
			h.LineagePage(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := rec.Body.String()
			for _, want := range tt.wantBody {
				assert.Contains(t, body, want)
			}
			for _, unwanted := range tt.notBody {
				assert.NotContains(t, body, unwanted)
			}
		})
	}
}

func TestLineagePage_NotLoaded(t *testing.T) {
	fixture := features.SetupUnloadedFixture(t, filepath.Join(t.TempDir(), "missing.yaml"))
	h := NewHandlers(fixture.Engine, fixture.SessionStore, fixture.Notifier, nil, false)

	rec := httptest.NewRecorder()
	h.LineagePage(rec, httptest.NewRequest(http.MethodGet, "/lineage", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), notLoadedNotice)
	assert.NotContains(t, rec.Body.String(), "<svg")
}

// =============================================================================
// Interaction Tests - SSE responses
// =============================================================================

func TestToggle(t *testing.T) {
	h, _ := setupTestHandlers(t)

	rec := post(h.Toggle, "/lineage/toggle?sheet=orders_out&sor_id=1&column=cust_name", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/event-stream")
	body := rec.Body.String()
	assert.Contains(t, body, "datastar-patch-elements")
	assert.Contains(t, body, `id="out:cust_name" style="fill:#66ff66"`)
	assert.Contains(t, body, "Output Column: cust_name")
	assert.Contains(t, body, "direct copy")
	assert.NotEmpty(t, rec.Result().Cookies(), "highlight state is stored in the session")
}

func TestToggle_StatePersistsAcrossRequests(t *testing.T) {
	h, _ := setupTestHandlers(t)
	target := "/lineage/toggle?sheet=orders_out&sor_id=1&column="

	first := post(h.Toggle, target+"cust_name", nil)
	require.Equal(t, http.StatusOK, first.Code)

	second := post(h.Toggle, target+"total", first.Result().Cookies())
	require.Equal(t, http.StatusOK, second.Code)

	body := second.Body.String()
	assert.Contains(t, body, `id="out:cust_name" style="fill:#66ff66"`)
	assert.Contains(t, body, `id="out:total" style="fill:#00ccff"`)
	assert.Contains(t, body, "sum of &lt;amount&gt;")

	// Toggling cust_name again removes it; total keeps its color slot.
	third := post(h.Toggle, target+"cust_name", second.Result().Cookies())
	body = third.Body.String()
	assert.Contains(t, body, `id="out:cust_name" style="fill:#eee"`)
	assert.Contains(t, body, `id="out:total" style="fill:#66ff66"`)
}

func TestToggle_MissingColumn(t *testing.T) {
	h, _ := setupTestHandlers(t)

	rec := post(h.Toggle, "/lineage/toggle?sheet=orders_out&sor_id=1", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToggle_NotLoaded(t *testing.T) {
	fixture := features.SetupUnloadedFixture(t, filepath.Join(t.TempDir(), "missing.yaml"))
	h := NewHandlers(fixture.Engine, fixture.SessionStore, fixture.Notifier, nil, false)

	rec := post(h.Toggle, "/lineage/toggle?column=x", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestClear(t *testing.T) {
	h, _ := setupTestHandlers(t)

	toggled := post(h.Toggle, "/lineage/toggle?sheet=orders_out&sor_id=1&column=cust_name", nil)
	require.Equal(t, http.StatusOK, toggled.Code)

	rec := post(h.Clear, "/lineage/clear?sheet=orders_out&sor_id=1", toggled.Result().Cookies())

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `id="out:cust_name" style="fill:#eee"`)
	assert.NotContains(t, body, "#66ff66")
}

func TestSelect_ResetsHighlight(t *testing.T) {
	h, _ := setupTestHandlers(t)

	toggled := post(h.Toggle, "/lineage/toggle?sheet=orders_out&sor_id=1&column=cust_name", nil)
	require.Equal(t, http.StatusOK, toggled.Code)

	rec := post(h.Select, "/lineage/select?sheet=orders_out&sor_id=1", toggled.Result().Cookies())

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `id="lineage-app"`)
	assert.Contains(t, body, `id="out:cust_name" style="fill:#eee"`)
	assert.Contains(t, body, "datastar-patch-signals")
}

func TestSelect_FromSignals(t *testing.T) {
	h, fixture := setupTestHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/lineage/select",
		strings.NewReader(`{"sheet":"orders_out","record":"2"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Select(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `id="out:cust_id"`)
	assert.Contains(t, body, `"record":"2"`)
	assert.Contains(t, body, `"shown":"`+fixture.Engine.Current().Fingerprint+`"`)
}

func TestRefresh_FallsBackWhenSelectionIsGone(t *testing.T) {
	h, _ := setupTestHandlers(t)

	rec := post(h.Refresh, "/lineage/refresh?sheet=gone&sor_id=7", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "gone / 7 is no longer available.")
	assert.Contains(t, body, `"sheet":"orders_out"`)
	assert.Contains(t, body, `id="out:cust_name"`)
}

func TestRefresh_KeepsHighlight(t *testing.T) {
	h, _ := setupTestHandlers(t)

	toggled := post(h.Toggle, "/lineage/toggle?sheet=orders_out&sor_id=1&column=total", nil)
	require.Equal(t, http.StatusOK, toggled.Code)

	rec := post(h.Refresh, "/lineage/refresh?sheet=orders_out&sor_id=1", toggled.Result().Cookies())

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="out:total" style="fill:#66ff66"`)
}

func TestUpdates_AnnouncesBuilds(t *testing.T) {
	h, fixture := setupTestHandlers(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/lineage/updates", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.Updates(rec, req)
		close(done)
	}()

	require.Eventually(t, func() bool { return fixture.Notifier.Len() == 1 },
		time.Second, 10*time.Millisecond)
	fixture.Notifier.Broadcast(notifier.Event{Fingerprint: "abc123"})

	// Give the handler a moment to write before stopping it.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Updates did not return after the request ended")
	}

	assert.Equal(t, 0, fixture.Notifier.Len())
	body := rec.Body.String()
	assert.Contains(t, body, "datastar-patch-signals")
	assert.Contains(t, body, `"build":"abc123"`)
}

// =============================================================================
// API Tests
// =============================================================================

func TestSceneJSON(t *testing.T) {
	h, fixture := setupTestHandlers(t)

	rec := httptest.NewRecorder()
	h.SceneJSON(rec, httptest.NewRequest(http.MethodGet,
		"/api/scene?sheet=orders_out&sor_id=1&select=total&select=cust_name", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got struct {
		Fingerprint string `json:"fingerprint"`
		View        struct {
			Selected []string          `json:"selected"`
			Outputs  map[string]string `json:"outputs"`
		} `json:"view"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, fixture.Engine.Current().Fingerprint, got.Fingerprint)
	assert.Equal(t, []string{"total", "cust_name"}, got.View.Selected)
	assert.Equal(t, "#66ff66", got.View.Outputs["total"])
	assert.Equal(t, "#00ccff", got.View.Outputs["cust_name"])
}

func TestSceneJSON_UnknownSheet(t *testing.T) {
	h, _ := setupTestHandlers(t)

	rec := httptest.NewRecorder()
	h.SceneJSON(rec, httptest.NewRequest(http.MethodGet, "/api/scene?sheet=nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
