package lineage

import (
	"log/slog"
	"strings"

	"github.com/leapstack-labs/sorlineage/pkg/core"
)

// Stats summarizes one index build.
type Stats struct {
	Rows       int // rows seen
	Skipped    int // malformed rows skipped
	Entries    int // distinct (sheet, record id, output column) keys
	References int // resolved references stored
}

// Options configures index construction.
type Options struct {
	Logger *slog.Logger // optional; malformed rows are logged at debug level
}

// Build constructs the lineage index from raw records.
func Build(catalog *core.Catalog, records []core.LineageRecord) *core.Index {
	ix, _ := BuildWithOptions(catalog, records, Options{})
	return ix
}

// BuildWithOptions constructs the lineage index and reports build statistics.
// It never fails: malformed rows are skipped and unresolvable references are
// dropped.
func BuildWithOptions(catalog *core.Catalog, records []core.LineageRecord, opts Options) (*core.Index, Stats) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ix := core.NewIndex()
	var stats Stats

	for i, rec := range records {
		stats.Rows++

		key, ok := rowKey(rec)
		if !ok {
			stats.Skipped++
			logger.Debug("skipping malformed lineage row",
				"row", i, "sheet", rec.Sheet, "output_column", rec.OutputColumn, "record_id", rec.RecordID)
			continue
		}

		refs := ParseReferences(rec.InputRefs, catalog)

		entry := ix.Ensure(key)
		entry.References = append(entry.References, refs...)
		// Rule and example are last-write-wins while references accumulate.
		entry.Rule = strings.TrimSpace(rec.Rule)
		entry.Example = strings.TrimSpace(rec.Example)

		stats.References += len(refs)
	}

	stats.Entries = ix.Len()
	return ix, stats
}

// rowKey extracts the composite key of a record.
// Output column and record id are trimmed but otherwise kept verbatim.
func rowKey(rec core.LineageRecord) (core.Key, bool) {
	key := core.Key{
		Sheet:        strings.TrimSpace(rec.Sheet),
		RecordID:     strings.TrimSpace(rec.RecordID),
		OutputColumn: strings.TrimSpace(rec.OutputColumn),
	}
	if key.Sheet == "" || key.RecordID == "" || key.OutputColumn == "" {
		return core.Key{}, false
	}
	return key, true
}

// ParseReferences splits a newline-delimited reference list and returns the
// references whose table is present in the catalog, in order. Duplicates are
// kept.
func ParseReferences(refs string, catalog *core.Catalog) []core.Reference {
	var out []core.Reference
	for _, token := range strings.Split(refs, "\n") {
		ref, ok := SplitToken(token)
		if !ok {
			continue
		}
		if !catalog.Has(ref.Table) {
			continue
		}
		out = append(out, ref)
	}
	return out
}

// SplitToken parses a single "table.column" token.
// The table part is lowercased; the column part is only trimmed.
// Tokens without a '.' are invalid.
func SplitToken(token string) (core.Reference, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return core.Reference{}, false
	}
	table, column, found := strings.Cut(token, ".")
	if !found {
		return core.Reference{}, false
	}
	return core.Reference{
		Table:  core.NormalizeTable(table),
		Column: strings.TrimSpace(column),
	}, true
}
