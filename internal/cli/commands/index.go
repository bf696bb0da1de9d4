package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sorlineage/internal/cli/output"
)

// IndexOptions holds options for the index command.
type IndexOptions struct {
	Force bool
}

// IndexOutput is the JSON shape of the index command.
type IndexOutput struct {
	Saved       bool   `json:"saved"`
	Fingerprint string `json:"fingerprint"`
	StatePath   string `json:"state_path"`
	Sheets      int    `json:"sheets"`
	Entries     int    `json:"entries"`
	Skipped     int    `json:"skipped_rows"`
}

// NewIndexCommand creates the index command.
func NewIndexCommand() *cobra.Command {
	opts := &IndexOptions{}

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the lineage index and save it to the state database",
		Long: `Read the workbook, build the lineage index and store it as the latest
snapshot in the state database. Commands run with --from-state read this
snapshot instead of the workbook.

Nothing is written when the workbook content is unchanged since the last
snapshot, unless --force is given.`,
		Example: `  # Index the configured workbook
  sorlineage index

  # Rewrite the snapshot even when unchanged
  sorlineage index --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "Save even when the stored snapshot is up to date")

	return cmd
}

func runIndex(cmd *cobra.Command, opts *IndexOptions) error {
	cc, cleanup, err := NewCommandContext(cmd, EngineOptions{WithStore: true})
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := cc.Engine.Save(cmd.Context(), opts.Force)
	if err != nil {
		return err
	}

	b := cc.Engine.Current()
	out := IndexOutput{
		Saved:       res.Saved,
		Fingerprint: res.Fingerprint,
		StatePath:   cc.Cfg.StatePath,
		Sheets:      len(b.Sheets),
		Entries:     b.Stats.Entries,
		Skipped:     b.Stats.Skipped,
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	if b.Stats.Skipped > 0 {
		r.Warning(fmt.Sprintf("%d malformed rows skipped (run with -v for details)", b.Stats.Skipped))
	}
	if res.Saved {
		r.Success(fmt.Sprintf("Indexed %d sheets, %d output columns into %s", out.Sheets, out.Entries, out.StatePath))
	} else {
		r.Muted("Snapshot up to date, nothing to save.")
	}
	r.Muted("fingerprint " + res.Fingerprint)
	return nil
}
