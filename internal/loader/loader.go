// Package loader reads lineage workbooks into catalog and lineage records.
//
// A workbook has two halves: the input tables (one column list per table)
// and the output-table sheets (one row per output column per record id).
// Two sources are supported: a single YAML file and a pair of CSV
// directories read through DuckDB.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/sorlineage/pkg/core"
)

// Spreadsheet headers of an output-table sheet. "Tranformation_rule" is
// misspelled in every workbook produced so far and is matched as is.
const (
	HeaderInputColumns  = "Input_columns"
	HeaderOutputColumns = "Output_columns"
	HeaderRecordID      = "Sor_id"
	HeaderInputRefs     = "Input_table_col_name"
	HeaderRule          = "Tranformation_rule"
	HeaderExample       = "Sample_examples"
)

// Source kinds accepted by Open.
const (
	KindAuto = "auto"
	KindYAML = "yaml"
	KindCSV  = "csv"
)

// Workbook is the raw content of one lineage workbook.
type Workbook struct {
	Catalog []core.CatalogRecord `json:"catalog"`
	Records []core.LineageRecord `json:"records"`
	Sheets  []string             `json:"sheets"`
}

// Source loads a workbook.
type Source interface {
	Load(ctx context.Context) (*Workbook, error)
	// Paths returns the files and directories the source reads, for watching.
	Paths() []string
}

// Options selects a source.
type Options struct {
	Kind       string
	Workbook   string
	InputsDir  string
	OutputsDir string
}

// Open returns the source described by opts. With KindAuto a configured
// workbook file wins over the CSV directories.
func Open(opts Options) (Source, error) {
	kind := strings.ToLower(strings.TrimSpace(opts.Kind))
	if kind == "" || kind == KindAuto {
		switch {
		case opts.Workbook != "":
			kind = KindYAML
		case opts.InputsDir != "" && opts.OutputsDir != "":
			kind = KindCSV
		default:
			return nil, fmt.Errorf("no lineage source configured: set workbook or inputs_dir and outputs_dir")
		}
	}

	switch kind {
	case KindYAML:
		if opts.Workbook == "" {
			return nil, fmt.Errorf("yaml source requires a workbook path")
		}
		return &YAMLSource{Path: opts.Workbook}, nil
	case KindCSV:
		if opts.InputsDir == "" || opts.OutputsDir == "" {
			return nil, fmt.Errorf("csv source requires inputs_dir and outputs_dir")
		}
		return &CSVSource{InputsDir: opts.InputsDir, OutputsDir: opts.OutputsDir}, nil
	default:
		return nil, fmt.Errorf("unknown source kind %q (expected auto, yaml or csv)", opts.Kind)
	}
}

// BuildCatalog builds the core catalog of the workbook.
func (w *Workbook) BuildCatalog() *core.Catalog {
	return core.NewCatalog(w.Catalog)
}

// addSheet records a sheet name once, in first-seen order.
func (w *Workbook) addSheet(name string) {
	for _, s := range w.Sheets {
		if s == name {
			return
		}
	}
	w.Sheets = append(w.Sheets, name)
}

// recordFromRow maps a header-keyed row onto a lineage record.
func recordFromRow(sheet string, row map[string]string) core.LineageRecord {
	return core.LineageRecord{
		Sheet:        sheet,
		OutputColumn: row[HeaderOutputColumns],
		RecordID:     row[HeaderRecordID],
		InputRefs:    row[HeaderInputRefs],
		Rule:         row[HeaderRule],
		Example:      row[HeaderExample],
	}
}

// sheetName derives a sheet or table name from a file name.
func sheetName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func checkDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}
