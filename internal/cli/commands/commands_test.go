// Package commands_test provides tests for CLI command creation and execution.
package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sorlineage/internal/cli/config"
	"github.com/leapstack-labs/sorlineage/internal/cli/output"
	"github.com/leapstack-labs/sorlineage/internal/cli/testutil"
	"github.com/leapstack-labs/sorlineage/pkg/core"
)

const testWorkbook = `
inputs:
  customers: [id, name]
  orders: [order_id, amount]
outputs:
  orders_out:
    - Output_columns: cust_name
      Sor_id: 1
      Input_table_col_name: customers.name
      Tranformation_rule: direct copy
      Sample_examples: Alice
    - Output_columns: total
      Sor_id: 1
      Input_table_col_name: |
        orders.amount
        orders.order_id
    - Output_columns: cust_id
      Sor_id: 2
      Input_table_col_name: customers.id
  empty_sheet: []
`

// =============================================================================
// Test Setup Helpers
// =============================================================================

func setupProject(t *testing.T, mode output.Mode) string {
	t.Helper()
	return testutil.SetupTestProject(t, testWorkbook, mode)
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	out := new(bytes.Buffer)
	errOut := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// =============================================================================
// Command metadata
// =============================================================================

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		name  string
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{name: "sheets", cmd: NewSheetsCommand(), use: "sheets", flags: []string{"from-state"}},
		{name: "lineage", cmd: NewLineageCommand(), use: "lineage <sheet> [sor_id]", flags: []string{"from-state"}},
		{name: "render", cmd: NewRenderCommand(), use: "render <sheet> [sor_id]", flags: []string{"format", "select", "out", "from-state"}},
		{name: "shell", cmd: NewShellCommand(), use: "shell [sheet] [sor_id]", flags: []string{"from-state"}},
		{name: "index", cmd: NewIndexCommand(), use: "index", flags: []string{"force"}},
		{name: "ui", cmd: NewUICommand(), use: "ui", flags: []string{"port", "no-browser", "watch", "dev", "from-state"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, tt.cmd.Example, "Example should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

// =============================================================================
// sheets
// =============================================================================

func TestSheetsCommand_JSON(t *testing.T) {
	setupProject(t, output.ModeJSON)

	out, _, err := execute(t, NewSheetsCommand())
	require.NoError(t, err)

	var got SheetsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "source", got.Origin)
	assert.NotEmpty(t, got.Fingerprint)
	assert.Equal(t, []SheetInfo{
		{Sheet: "orders_out", RecordIDs: []string{"1", "2"}},
		{Sheet: "empty_sheet", RecordIDs: []string{}},
	}, got.Sheets)
}

func TestSheetsCommand_Markdown(t *testing.T) {
	setupProject(t, output.ModeMarkdown)

	out, _, err := execute(t, NewSheetsCommand())
	require.NoError(t, err)

	testutil.AssertNoANSI(t, out)
	assert.Contains(t, out, "# Output tables")
	assert.Contains(t, out, "orders_out")
	assert.Contains(t, out, "1, 2")
}

func TestSheetsCommand_MissingWorkbook(t *testing.T) {
	setupProject(t, output.ModeJSON)
	t.Setenv("SORLINEAGE_WORKBOOK", filepath.Join(t.TempDir(), "missing.yaml"))
	config.ResetConfig()

	_, _, err := execute(t, NewSheetsCommand())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

// =============================================================================
// lineage
// =============================================================================

func TestLineageCommand_JSON(t *testing.T) {
	setupProject(t, output.ModeJSON)

	out, _, err := execute(t, NewLineageCommand(), "orders_out", "1")
	require.NoError(t, err)

	var got LineageOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "orders_out", got.Sheet)
	assert.Equal(t, "1", got.RecordID)
	assert.Equal(t, []string{"customers", "orders"}, got.Tables)
	require.Len(t, got.Columns, 2)
	assert.Equal(t, LineageColumn{
		Name:       "cust_name",
		References: []core.Reference{{Table: "customers", Column: "name"}},
		Rule:       "direct copy",
		Example:    "Alice",
	}, got.Columns[0])
	assert.Equal(t, []core.Reference{
		{Table: "orders", Column: "amount"},
		{Table: "orders", Column: "order_id"},
	}, got.Columns[1].References)
}

func TestLineageCommand_DefaultRecord(t *testing.T) {
	setupProject(t, output.ModeJSON)

	out, _, err := execute(t, NewLineageCommand(), "orders_out")
	require.NoError(t, err)

	var got LineageOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "1", got.RecordID)
}

func TestLineageCommand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{name: "unknown sheet", args: []string{"nope", "1"}, wantErr: core.ErrSheetNotFound},
		{name: "unknown record", args: []string{"orders_out", "9"}, wantErr: core.ErrRecordNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupProject(t, output.ModeJSON)

			_, _, err := execute(t, NewLineageCommand(), tt.args...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestLineageCommand_Markdown(t *testing.T) {
	setupProject(t, output.ModeMarkdown)

	out, _, err := execute(t, NewLineageCommand(), "orders_out", "1")
	require.NoError(t, err)

	assert.Contains(t, out, "# Lineage for orders_out / 1")
	assert.Contains(t, out, "customers.name")
	assert.Contains(t, out, "Input tables: customers, orders")
}

// =============================================================================
// render
// =============================================================================

func TestRenderCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantOut  []string
		wantErr  string
		wantWarn string
	}{
		{
			name:    "svg with selection",
			args:    []string{"orders_out", "1", "--format", "svg", "--select", "total"},
			wantOut: []string{`<svg id="lineage-diagram"`, `id="out:total" style="fill:#66ff66"`},
		},
		{
			name:    "html document",
			args:    []string{"orders_out", "2"},
			wantOut: []string{"<!doctype html>", "<style>", `id="out:cust_id"`, "orders_out / 2 - sorlineage"},
		},
		{
			name:    "json scene",
			args:    []string{"orders_out", "1", "--format", "json", "--select", "cust_name"},
			wantOut: []string{`"selected": [`, `"cust_name"`, `"rule_panel"`},
		},
		{
			name:    "markdown summary",
			args:    []string{"orders_out", "1", "--format", "md", "--select", "cust_name"},
			wantOut: []string{`# orders\_out / 1`, "`customers.name`", "`orders.amount`", "Transformation Rule", "- Rule: direct copy"},
		},
		{
			name:     "unknown selected column warns",
			args:     []string{"orders_out", "1", "--format", "svg", "--select", "ghost"},
			wantOut:  []string{"<svg"},
			wantWarn: `output column "ghost" is not part of orders_out / 1`,
		},
		{
			name:    "bad format",
			args:    []string{"orders_out", "1", "--format", "png"},
			wantErr: "unknown format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupProject(t, output.ModeMarkdown)

			out, errOut, err := execute(t, NewRenderCommand(), tt.args...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			for _, want := range tt.wantOut {
				assert.Contains(t, out, want)
			}
			if tt.wantWarn != "" {
				assert.Contains(t, errOut, tt.wantWarn)
			}
		})
	}
}

func TestRenderCommand_MarkdownHeadings(t *testing.T) {
	setupProject(t, output.ModeMarkdown)

	out, _, err := execute(t, NewRenderCommand(), "orders_out", "2", "--format", "markdown", "--select", "cust_id")
	require.NoError(t, err)

	// Underscores in prose are escaped; code spans keep them verbatim.
	lines := strings.Split(out, "\n")
	require.NotEmpty(t, lines)
	assert.Equal(t, `# orders\_out / 2`, lines[0])
	assert.Contains(t, out, `## orders\_out`)
	assert.Contains(t, out, "`cust_id`")
	assert.Contains(t, out, "**", "the selected column is set in bold")
	assert.Contains(t, out, "`customers.id`")
	assert.NotContains(t, out, "<h1>")
}

func TestRenderCommand_StandaloneExportsHaveNoServerActions(t *testing.T) {
	for _, format := range []string{"html", "svg"} {
		t.Run(format, func(t *testing.T) {
			setupProject(t, output.ModeMarkdown)

			out, _, err := execute(t, NewRenderCommand(), "orders_out", "1", "--format", format)
			require.NoError(t, err)
			assert.Contains(t, out, `id="out:cust_name"`)
			assert.NotContains(t, out, "data-on:")
		})
	}
}

func TestRenderCommand_OutFile(t *testing.T) {
	dir := setupProject(t, output.ModeMarkdown)
	target := filepath.Join(dir, "diagram.svg")

	out, _, err := execute(t, NewRenderCommand(), "orders_out", "1", "--format", "svg", "--out", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")
}

// =============================================================================
// index and --from-state
// =============================================================================

func TestIndexCommand_SaveThenSkip(t *testing.T) {
	setupProject(t, output.ModeJSON)

	out, _, err := execute(t, NewIndexCommand())
	require.NoError(t, err)
	var first IndexOutput
	require.NoError(t, json.Unmarshal([]byte(out), &first))
	assert.True(t, first.Saved)
	assert.Equal(t, 2, first.Sheets)
	assert.Equal(t, 3, first.Entries)
	assert.FileExists(t, first.StatePath)

	out, _, err = execute(t, NewIndexCommand())
	require.NoError(t, err)
	var second IndexOutput
	require.NoError(t, json.Unmarshal([]byte(out), &second))
	assert.False(t, second.Saved)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)

	out, _, err = execute(t, NewIndexCommand(), "--force")
	require.NoError(t, err)
	var forced IndexOutput
	require.NoError(t, json.Unmarshal([]byte(out), &forced))
	assert.True(t, forced.Saved)
}

func TestFromState(t *testing.T) {
	dir := setupProject(t, output.ModeJSON)

	_, _, err := execute(t, NewIndexCommand())
	require.NoError(t, err)

	// The snapshot is served even after the workbook is gone.
	require.NoError(t, os.Remove(filepath.Join(dir, "lineage.yaml")))

	out, _, err := execute(t, NewSheetsCommand(), "--from-state")
	require.NoError(t, err)
	var sheets SheetsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &sheets))
	assert.Equal(t, "state", sheets.Origin)
	require.Len(t, sheets.Sheets, 2)
	assert.Equal(t, "orders_out", sheets.Sheets[0].Sheet)

	out, _, err = execute(t, NewLineageCommand(), "orders_out", "2", "--from-state")
	require.NoError(t, err)
	var lineage LineageOutput
	require.NoError(t, json.Unmarshal([]byte(out), &lineage))
	require.Len(t, lineage.Columns, 1)
	assert.Equal(t, "cust_id", lineage.Columns[0].Name)
}

func TestFromState_NoDatabase(t *testing.T) {
	setupProject(t, output.ModeJSON)

	_, _, err := execute(t, NewSheetsCommand(), "--from-state")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sorlineage index")
}
