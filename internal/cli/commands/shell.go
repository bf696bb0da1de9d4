package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sorlineage/internal/cli/output"
	"github.com/leapstack-labs/sorlineage/internal/engine"
	"github.com/leapstack-labs/sorlineage/internal/highlight"
	"github.com/leapstack-labs/sorlineage/pkg/core"
)

// ShellOptions holds options for the shell command.
type ShellOptions struct {
	FromState bool
}

// NewShellCommand creates the interactive lineage shell.
func NewShellCommand() *cobra.Command {
	opts := &ShellOptions{}

	cmd := &cobra.Command{
		Use:   "shell [sheet] [sor_id]",
		Short: "Browse lineage interactively in the terminal",
		Long: `Start an interactive shell over the lineage of the workbook.

Type an output column name to toggle its highlight, exactly like clicking
it in the viewer. Dot-commands switch records and manage the state:

  .sheets              List output tables and their records
  .use <sheet> [id]    Switch to another record
  .show                Show the current record
  .clear               Clear all highlights
  .reload              Re-read the workbook
  .quit                Exit`,
		Example: `  # Start on the first record of the first sheet
  sorlineage shell

  # Start on a given record
  sorlineage shell orders 1`,
		Args: cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var sel core.Selection
			if len(args) > 0 {
				sel.Sheet = args[0]
			}
			if len(args) > 1 {
				sel.RecordID = args[1]
			}
			return runShell(cmd, sel, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.FromState, "from-state", false, "Read the last indexed snapshot instead of the workbook")

	return cmd
}

func runShell(cmd *cobra.Command, sel core.Selection, opts *ShellOptions) error {
	cc, cleanup, err := NewCommandContext(cmd, EngineOptions{FromState: opts.FromState})
	if err != nil {
		return err
	}
	defer cleanup()

	sess, err := newShellSession(cmd.Context(), cc.Engine, cc.Renderer, sel)
	if err != nil {
		return err
	}

	// History lives next to the state database.
	historyFile := ""
	if dir := filepath.Dir(cc.Cfg.StatePath); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err == nil {
			historyFile = filepath.Join(dir, "shell_history")
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          sess.prompt(),
		HistoryFile:     historyFile,
		AutoComplete:    sess.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize shell: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "sorlineage shell (type .help for commands, .quit to exit)")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())
	sess.show()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if sess.exec(line) {
			return nil
		}
		rl.SetPrompt(sess.prompt())
	}
}

// shellSession is the state of one interactive shell: the current record
// and its highlight state.
type shellSession struct {
	ctx   context.Context
	eng   *engine.Engine
	r     *output.Renderer
	sel   core.Selection
	state highlight.State
}

func newShellSession(ctx context.Context, eng *engine.Engine, r *output.Renderer, sel core.Selection) (*shellSession, error) {
	b := eng.Current()
	if b == nil {
		return nil, engine.ErrNotLoaded
	}
	sel, err := b.Resolve(sel)
	if err != nil {
		return nil, err
	}
	return &shellSession{ctx: ctx, eng: eng, r: r, sel: sel}, nil
}

func (s *shellSession) prompt() string {
	if s.sel.Sheet == "" {
		return "sorlineage> "
	}
	if s.sel.RecordID == "" {
		return s.sel.Sheet + "> "
	}
	return s.sel.Sheet + "/" + s.sel.RecordID + "> "
}

// exec runs one input line and reports whether the shell should exit.
func (s *shellSession) exec(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	if !strings.HasPrefix(fields[0], ".") {
		s.toggle(fields)
		return false
	}

	switch command := strings.ToLower(fields[0]); command {
	case ".quit", ".exit":
		return true

	case ".help":
		printShellHelp(s.r.Writer())

	case ".sheets":
		s.sheets()

	case ".use":
		if len(fields) < 2 || len(fields) > 3 {
			s.r.Error("Usage: .use <sheet> [sor_id]")
			return false
		}
		sel := core.Selection{Sheet: fields[1]}
		if len(fields) == 3 {
			sel.RecordID = fields[2]
		}
		resolved, err := s.eng.Current().Resolve(sel)
		if err != nil {
			s.r.Error(err.Error())
			return false
		}
		s.sel = resolved
		s.state = highlight.State{}
		s.show()

	case ".show":
		s.show()

	case ".clear":
		s.state = highlight.Reduce(s.state, highlight.Clear{})
		s.show()

	case ".reload":
		s.reload()

	default:
		s.r.Error(fmt.Sprintf("Unknown command: %s (type .help for commands)", command))
	}
	return false
}

func (s *shellSession) toggle(columns []string) {
	b := s.eng.Current()
	slice := b.Index.Slice(s.sel)
	for _, column := range columns {
		if _, ok := slice.Column(column); !ok {
			s.r.Warning(fmt.Sprintf("output column %q is not part of %s / %s", column, s.sel.Sheet, s.sel.RecordID))
			continue
		}
		s.state = highlight.Reduce(s.state, highlight.Toggle{Column: column})
	}
	s.show()
}

func (s *shellSession) reload() {
	_, changed, err := s.eng.Reload(s.ctx)
	if err != nil {
		s.r.Error(err.Error())
		return
	}
	if !changed {
		s.r.Muted("Workbook unchanged.")
		return
	}

	b := s.eng.Current()
	s.r.Success("Reloaded (" + b.Fingerprint + ")")
	if _, err := b.Resolve(s.sel); err != nil {
		s.r.Warning(s.sel.Sheet + " / " + s.sel.RecordID + " is no longer available.")
		s.sel, _ = b.Resolve(core.Selection{})
		s.state = highlight.State{}
	}
	s.show()
}

func (s *shellSession) sheets() {
	b := s.eng.Current()
	rows := make([][]string, 0, len(b.Sheets))
	for _, sheet := range b.Sheets {
		rows = append(rows, []string{sheet, strings.Join(b.RecordIDs(sheet), ", ")})
	}
	s.r.Table([]string{"Sheet", "Records"}, rows)
}

// show prints the current record with its highlight colors and panels.
func (s *shellSession) show() {
	view, err := s.eng.Render(s.sel, s.state)
	if err != nil {
		s.r.Error(err.Error())
		return
	}

	s.r.Header(1, view.Selection.Sheet+" / "+view.Selection.RecordID)
	if len(view.Slice.Columns) == 0 {
		s.r.Muted("No lineage rows for this record.")
		return
	}

	rows := make([][]string, 0, len(view.Slice.Columns))
	for _, c := range view.Slice.Columns {
		ids := make([]string, 0, len(c.References))
		for _, ref := range c.References {
			ids = append(ids, ref.ID())
		}
		rows = append(rows, []string{c.Name, strings.Join(ids, ", "), view.Highlight.Outputs[c.Name]})
	}
	s.r.Table([]string{"Output column", "Inputs", "Highlight"}, rows)

	for _, panel := range []struct {
		title string
		p     highlight.Panel
	}{
		{view.Scene.RulePanel.Title, view.Highlight.RulePanel},
		{view.Scene.ExamplePanel.Title, view.Highlight.ExamplePanel},
	} {
		if !panel.p.Visible {
			continue
		}
		s.r.Println()
		s.r.Header(2, panel.title)
		s.r.Println(panel.p.Text)
	}
}

// completer offers dot-commands, sheet names after .use and the output
// columns of the current record.
func (s *shellSession) completer() *readline.PrefixCompleter {
	sheets := func(string) []string {
		return s.eng.Current().Sheets
	}
	columns := func(string) []string {
		slice := s.eng.Current().Index.Slice(s.sel)
		names := make([]string, 0, len(slice.Columns))
		for _, c := range slice.Columns {
			names = append(names, c.Name)
		}
		return names
	}

	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".sheets"),
		readline.PcItem(".use", readline.PcItemDynamic(sheets)),
		readline.PcItem(".show"),
		readline.PcItem(".clear"),
		readline.PcItem(".reload"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
		readline.PcItemDynamic(columns),
	)
}

func printShellHelp(w io.Writer) {
	help := `
Commands:
  <column> ...         Toggle the highlight of output columns
  .sheets              List output tables and their records
  .use <sheet> [id]    Switch to another record (clears highlights)
  .show                Show the current record
  .clear               Clear all highlights
  .reload              Re-read the workbook
  .help                Show this help message
  .quit / .exit        Exit the shell

Tips:
  - Tab completes commands, sheet names and output columns
  - Use arrow keys to navigate history
`
	_, _ = fmt.Fprintln(w, help)
}
