package components

import (
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/leapstack-labs/sorlineage/internal/highlight"
	"github.com/leapstack-labs/sorlineage/internal/scene"
)

// Element ids patched over SSE.
const (
	DiagramID = "lineage-diagram"
	AppID     = "lineage-app"
)

// ToggleAction is the datastar expression posted when an output column is
// clicked.
func ToggleAction(column string) string {
	return "@post('/lineage/toggle?column=" + url.QueryEscape(column) + "')"
}

// paint sets a single CSS property through the style attribute. It is
// spread rather than bound so the value is written as is.
func paint(property, color string) templ.Attributes {
	return templ.Attributes{"style": property + ":" + color}
}

func inputFill(v highlight.View, id string) string {
	fill, _ := v.InputStyle(id)
	return fill
}

func inputColor(v highlight.View, id string) string {
	_, color := v.InputStyle(id)
	return color
}

func pathColor(v highlight.View, id string) string {
	color, _ := v.PathStyle(id)
	return color
}

func pathShown(v highlight.View, id string) bool {
	_, shown := v.PathStyle(id)
	return shown
}

func panelStyle(slot scene.PanelSlot, visible bool) templ.Attributes {
	display := "none"
	if visible {
		display = "block"
	}
	return templ.Attributes{"style": "left:" + px(slot.Left) + "; top:" + px(slot.Top) +
		"; width:" + px(slot.Width) + "; max-height:" + px(slot.MaxHeight) + "; display:" + display + ";"}
}

func px(n int) string {
	return strconv.Itoa(n) + "px"
}
