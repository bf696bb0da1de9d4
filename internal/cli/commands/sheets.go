package commands

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sorlineage/internal/cli/output"
)

// SheetsOptions holds options for the sheets command.
type SheetsOptions struct {
	FromState bool
}

// SheetInfo is one output table in the sheets listing.
type SheetInfo struct {
	Sheet     string   `json:"sheet"`
	RecordIDs []string `json:"record_ids"`
}

// SheetsOutput is the JSON shape of the sheets command.
type SheetsOutput struct {
	Fingerprint string      `json:"fingerprint"`
	Origin      string      `json:"origin"`
	Sheets      []SheetInfo `json:"sheets"`
}

// NewSheetsCommand creates the sheets command.
func NewSheetsCommand() *cobra.Command {
	opts := &SheetsOptions{}

	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "List output tables and their record ids",
		Long: `List every output table of the workbook together with the record ids
(Sor_id values) that have lineage rows.`,
		Example: `  # List sheets from the configured workbook
  sorlineage sheets

  # List sheets of the last indexed snapshot
  sorlineage sheets --from-state

  # Output as JSON
  sorlineage sheets -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSheets(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.FromState, "from-state", false, "Read the last indexed snapshot instead of the workbook")

	return cmd
}

func runSheets(cmd *cobra.Command, opts *SheetsOptions) error {
	cc, cleanup, err := NewCommandContext(cmd, EngineOptions{FromState: opts.FromState})
	if err != nil {
		return err
	}
	defer cleanup()

	b := cc.Engine.Current()
	out := SheetsOutput{
		Fingerprint: b.Fingerprint,
		Origin:      b.Origin,
		Sheets:      make([]SheetInfo, 0, len(b.Sheets)),
	}
	for _, sheet := range b.Sheets {
		ids := b.RecordIDs(sheet)
		if ids == nil {
			ids = []string{}
		}
		out.Sheets = append(out.Sheets, SheetInfo{Sheet: sheet, RecordIDs: ids})
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	r.Header(1, "Output tables")
	if len(out.Sheets) == 0 {
		r.Muted("No output tables found.")
		return nil
	}

	rows := make([][]string, 0, len(out.Sheets))
	for _, s := range out.Sheets {
		rows = append(rows, []string{s.Sheet, strconv.Itoa(len(s.RecordIDs)), strings.Join(s.RecordIDs, ", ")})
	}
	r.Table([]string{"Sheet", "Records", "Sor_id"}, rows)
	r.Println()
	r.Muted(b.Origin + ": " + b.Location)
	return nil
}
