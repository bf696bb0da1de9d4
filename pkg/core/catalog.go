package core

import "strings"

// CatalogRecord is one input table as delivered by a table reader.
type CatalogRecord struct {
	TableName    string   `json:"table_name" yaml:"table_name"`
	InputColumns []string `json:"input_columns" yaml:"input_columns"`
}

// Catalog holds the known input tables and their ordered column lists.
// Table names are matched case-insensitively and stored lowercased.
// A Catalog is immutable once built.
type Catalog struct {
	tables map[string][]string
	order  []string
}

// NewCatalog builds a catalog from table records.
// A table listed twice keeps the columns of its last record, matching how a
// spreadsheet reader keyed by sheet name would behave.
func NewCatalog(records []CatalogRecord) *Catalog {
	c := &Catalog{tables: make(map[string][]string, len(records))}
	for _, rec := range records {
		name := NormalizeTable(rec.TableName)
		if name == "" {
			continue
		}
		if _, seen := c.tables[name]; !seen {
			c.order = append(c.order, name)
		}
		cols := make([]string, 0, len(rec.InputColumns))
		for _, col := range rec.InputColumns {
			if col = strings.TrimSpace(col); col != "" {
				cols = append(cols, col)
			}
		}
		c.tables[name] = cols
	}
	return c
}

// NormalizeTable returns the catalog key for a table name.
func NormalizeTable(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Has reports whether the table is known.
func (c *Catalog) Has(table string) bool {
	if c == nil {
		return false
	}
	_, ok := c.tables[NormalizeTable(table)]
	return ok
}

// Columns returns the ordered columns of a table.
// The returned slice must not be modified.
func (c *Catalog) Columns(table string) ([]string, bool) {
	if c == nil {
		return nil, false
	}
	cols, ok := c.tables[NormalizeTable(table)]
	return cols, ok
}

// Tables returns table names in load order.
func (c *Catalog) Tables() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of tables.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

// Records converts the catalog back to table records, in load order.
func (c *Catalog) Records() []CatalogRecord {
	if c == nil {
		return nil
	}
	out := make([]CatalogRecord, 0, len(c.order))
	for _, name := range c.order {
		cols := make([]string, len(c.tables[name]))
		copy(cols, c.tables[name])
		out = append(out, CatalogRecord{TableName: name, InputColumns: cols})
	}
	return out
}
