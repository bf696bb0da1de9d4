package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sorlineage/internal/highlight"
	"github.com/leapstack-labs/sorlineage/internal/scene"
	"github.com/leapstack-labs/sorlineage/internal/ui/components"
	"github.com/leapstack-labs/sorlineage/internal/ui/resources"
	"github.com/leapstack-labs/sorlineage/pkg/core"
)

// Render formats.
const (
	FormatSVG  = "svg"
	FormatHTML = "html"
	FormatJSON = "json"
	FormatMD   = "markdown"
)

// RenderOptions holds options for the render command.
type RenderOptions struct {
	Format    string
	Select    []string
	Out       string
	FromState bool
}

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	opts := &RenderOptions{}

	cmd := &cobra.Command{
		Use:   "render <sheet> [sor_id]",
		Short: "Render the lineage diagram of one record",
		Long: `Render the lineage diagram of one record of an output table.

Formats:
  - svg:  the bare SVG diagram
  - html: a self-contained page with the diagram and the rule/example panels
  - json: the scene graph and highlight view
  - markdown: a text summary of the columns and the visible panels

Columns passed with --select are highlighted in order, as if clicked.`,
		Example: `  # Render record 1 of the orders sheet as HTML
  sorlineage render orders 1 --out orders-1.html

  # Highlight two output columns
  sorlineage render orders 1 --select total --select cust_name --format svg

  # Dump the scene graph
  sorlineage render orders 1 --format json

  # Summarize the rule of one column for a ticket
  sorlineage render orders 1 --select total --format markdown`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel := core.Selection{Sheet: args[0]}
			if len(args) > 1 {
				sel.RecordID = args[1]
			}
			return runRender(cmd, sel, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Format, "format", FormatHTML, "Output format (html|svg|json|markdown)")
	cmd.Flags().StringArrayVar(&opts.Select, "select", nil, "Output column to highlight (repeatable)")
	cmd.Flags().StringVar(&opts.Out, "out", "", "Write to file instead of stdout")
	cmd.Flags().BoolVar(&opts.FromState, "from-state", false, "Read the last indexed snapshot instead of the workbook")

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{FormatHTML, FormatSVG, FormatJSON, FormatMD}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runRender(cmd *cobra.Command, sel core.Selection, opts *RenderOptions) error {
	format := strings.ToLower(opts.Format)
	switch format {
	case "md":
		format = FormatMD
	case FormatHTML, FormatSVG, FormatJSON, FormatMD:
	default:
		return fmt.Errorf("unknown format %q (expected html, svg, json or markdown)", opts.Format)
	}

	cc, cleanup, err := NewCommandContext(cmd, EngineOptions{FromState: opts.FromState})
	if err != nil {
		return err
	}
	defer cleanup()

	st := highlight.State{}
	for _, column := range opts.Select {
		st = highlight.Reduce(st, highlight.Toggle{Column: column})
	}

	view, err := cc.Engine.Render(sel, st)
	if err != nil {
		return err
	}
	for _, column := range st.Selected() {
		if !view.Scene.HasOutput(column) {
			cc.Renderer.Warning(fmt.Sprintf("output column %q is not part of %s / %s", column, view.Selection.Sheet, view.Selection.RecordID))
		}
	}

	var buf bytes.Buffer
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		err = enc.Encode(map[string]any{
			"selection": view.Selection,
			"scene":     view.Scene,
			"view":      view.Highlight,
		})
	case FormatMD:
		var md string
		md, err = renderMarkdown(view.Selection, view.Scene, view.Highlight)
		buf.WriteString(md)
	case FormatSVG:
		err = components.StaticDiagram(view.Scene, view.Highlight).Render(context.Background(), &buf)
		buf.WriteString("\n")
	default:
		var css string
		css, err = resources.InlineCSS("lineage.css")
		if err != nil {
			return fmt.Errorf("failed to read stylesheet: %w", err)
		}
		title := view.Selection.Sheet + " / " + view.Selection.RecordID + " - sorlineage"
		err = components.Document(title, css, view.Scene, view.Highlight).Render(context.Background(), &buf)
		buf.WriteString("\n")
	}
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", format, err)
	}

	if opts.Out == "" {
		_, err = io.Copy(cc.Renderer.Writer(), &buf)
		return err
	}
	if err := os.WriteFile(opts.Out, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", opts.Out, err)
	}
	cc.Renderer.Success(fmt.Sprintf("Wrote %s", opts.Out))
	return nil
}

// renderMarkdown renders the HTML report of a diagram and converts it.
func renderMarkdown(sel core.Selection, sc *scene.Scene, v highlight.View) (string, error) {
	var html strings.Builder
	if err := components.Report(sel.Sheet+" / "+sel.RecordID, sc, v).Render(context.Background(), &html); err != nil {
		return "", err
	}
	md, err := htmltomarkdown.ConvertString(html.String())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(md) + "\n", nil
}
