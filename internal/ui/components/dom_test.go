package components

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/leapstack-labs/sorlineage/internal/highlight"
)

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// collect returns the element nodes matching keep, in document order.
func collect(root *html.Node, keep func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && keep(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func byID(root *html.Node, id string) *html.Node {
	found := collect(root, func(n *html.Node) bool { return attr(n, "id") == id })
	if len(found) == 0 {
		return nil
	}
	return found[0]
}

func TestDocument_Structure(t *testing.T) {
	sc := testScene(t)
	view := highlight.Derive(highlight.NewState("cust_name"), highlight.DefaultPalette, sc.Diagram())

	var buf bytes.Buffer
	require.NoError(t, Document("orders / 1", "", sc, view).Render(context.Background(), &buf))
	doc, err := html.Parse(&buf)
	require.NoError(t, err)

	svg := byID(doc, DiagramID)
	require.NotNil(t, svg)
	assert.Equal(t, "svg", svg.Data)
	assert.Equal(t, "svg", svg.Namespace)

	paths := collect(svg, func(n *html.Node) bool { return n.Data == "path" })
	require.Len(t, paths, len(sc.Paths))

	var shown []string
	for _, p := range paths {
		if !strings.Contains(attr(p, "class"), "hidden") {
			shown = append(shown, attr(p, "id"))
		}
	}
	assert.Equal(t, []string{"line:customers.name->cust_name"}, shown)

	outputs := collect(svg, func(n *html.Node) bool { return strings.Contains(attr(n, "class"), "out-col") })
	require.Len(t, outputs, 2)
	for _, o := range outputs {
		assert.True(t, strings.HasPrefix(attr(o, "data-on:click"), "@post('/lineage/toggle?column="))
	}

	copies := collect(svg, func(n *html.Node) bool { return attr(n, "data-copy") != "" })
	assert.Len(t, copies, 4)

	rule := byID(doc, "ruleBoxText")
	require.NotNil(t, rule)
	require.NotNil(t, rule.FirstChild)
	assert.Equal(t, "🟡 Output Column: cust_name\n- Rule: a < b", rule.FirstChild.Data)
}
