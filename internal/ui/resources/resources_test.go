package resources

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_ServesStylesheet(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, StaticPath("lineage.css"), nil)
	rec := httptest.NewRecorder()

	Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ".tooltip-box")
	assert.NotEmpty(t, rec.Header().Get("Cache-Control"))
}

func TestHandler_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, StaticPath("nope.js"), nil)
	rec := httptest.NewRecorder()

	Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReadFile(t *testing.T) {
	css, err := ReadFile("lineage.css")
	require.NoError(t, err)
	assert.Contains(t, string(css), ".tooltip-box")

	_, err = ReadFile("nope.js")
	assert.Error(t, err)
}

func TestMinifyCSS(t *testing.T) {
	got, err := MinifyCSS("test.css", ".box {\n  color: #ffffff;\n  margin: 0px;\n}\n")
	require.NoError(t, err)
	assert.NotContains(t, got, "\n  ")
	assert.Contains(t, got, ".box{")
	assert.Contains(t, got, "color:#fff")
}

func TestInlineCSS(t *testing.T) {
	raw, err := ReadFile("lineage.css")
	require.NoError(t, err)

	got, err := InlineCSS("lineage.css")
	require.NoError(t, err)
	assert.Contains(t, got, ".tooltip-box")
	assert.Less(t, len(got), len(raw))

	_, err = InlineCSS("nope.css")
	assert.Error(t, err)
}
