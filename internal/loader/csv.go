package loader

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/leapstack-labs/sorlineage/pkg/core"
)

// CSVSource reads a workbook from two directories of CSV files. Every file
// in InputsDir is one input table with an Input_columns column; every file
// in OutputsDir is one output-table sheet. Table and sheet names are the
// file names without extension. Files are read in name order.
type CSVSource struct {
	InputsDir  string
	OutputsDir string
}

// Paths implements Source.
func (s *CSVSource) Paths() []string {
	return []string{s.InputsDir, s.OutputsDir}
}

// Load implements Source.
func (s *CSVSource) Load(ctx context.Context) (*Workbook, error) {
	for _, dir := range s.Paths() {
		if err := checkDir(dir); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	wb := &Workbook{}

	inputs, err := csvFiles(s.InputsDir)
	if err != nil {
		return nil, err
	}
	for _, path := range inputs {
		rows, err := readCSV(ctx, db, path)
		if err != nil {
			return nil, err
		}
		cols, err := inputColumns(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		wb.Catalog = append(wb.Catalog, core.CatalogRecord{TableName: sheetName(path), InputColumns: cols})
	}

	outputs, err := csvFiles(s.OutputsDir)
	if err != nil {
		return nil, err
	}
	for _, path := range outputs {
		sheet := sheetName(path)
		wb.addSheet(sheet)

		rows, err := readCSV(ctx, db, path)
		if err != nil {
			return nil, err
		}
		if err := requireHeaders(rows, HeaderOutputColumns, HeaderRecordID, HeaderInputRefs); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for _, row := range rows.values {
			wb.Records = append(wb.Records, recordFromRow(sheet, row))
		}
	}
	return wb, nil
}

// table is a CSV file read as strings. Empty cells are absent from the row.
type table struct {
	headers []string
	values  []map[string]string
}

func readCSV(ctx context.Context, db *sql.DB, path string) (*table, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	query := fmt.Sprintf("SELECT * FROM read_csv(%s, header=true, all_varchar=true)", quoteLiteral(abs))
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer func() { _ = rows.Close() }()

	headers, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read headers of %s: %w", path, err)
	}

	t := &table{headers: headers}
	cells := make([]sql.NullString, len(headers))
	dest := make([]any, len(headers))
	for i := range cells {
		dest[i] = &cells[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", path, err)
		}
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if cells[i].Valid && cells[i].String != "" {
				row[h] = cells[i].String
			}
		}
		t.values = append(t.values, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", path, err)
	}
	return t, nil
}

// inputColumns returns the non-empty Input_columns cells of an input table.
func inputColumns(t *table) ([]string, error) {
	if err := requireHeaders(t, HeaderInputColumns); err != nil {
		return nil, err
	}
	var cols []string
	for _, row := range t.values {
		if v, ok := row[HeaderInputColumns]; ok {
			cols = append(cols, v)
		}
	}
	return cols, nil
}

func requireHeaders(t *table, names ...string) error {
	var missing []string
	for _, n := range names {
		found := false
		for _, h := range t.headers {
			if h == n {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing column(s) %s", strings.Join(missing, ", "))
	}
	return nil
}

func csvFiles(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	sort.Strings(matches)
	return matches, nil
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
