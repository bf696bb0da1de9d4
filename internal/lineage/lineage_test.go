package lineage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sorlineage/internal/testutil"
	"github.com/leapstack-labs/sorlineage/pkg/core"
)

// =============================================================================
// Test Helpers
// =============================================================================

func testCatalog() *core.Catalog {
	return core.NewCatalog([]core.CatalogRecord{
		{TableName: "customers", InputColumns: []string{"id", "name"}},
		{TableName: "Accounts", InputColumns: []string{"account_id", "balance"}},
	})
}

func refs(pairs ...string) []core.Reference {
	out := make([]core.Reference, 0, len(pairs))
	for _, p := range pairs {
		table, column, _ := strings.Cut(p, ".")
		out = append(out, core.Reference{Table: table, Column: column})
	}
	return out
}

func key(sheet, recordID, column string) core.Key {
	return core.Key{Sheet: sheet, RecordID: recordID, OutputColumn: column}
}

// =============================================================================
// Token Parsing
// =============================================================================

func TestSplitToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  core.Reference
		ok    bool
	}{
		{"simple", "customers.name", core.Reference{Table: "customers", Column: "name"}, true},
		{"table lowercased", "CUSTOMERS.Name", core.Reference{Table: "customers", Column: "Name"}, true},
		{"surrounding space", "  customers.id \r", core.Reference{Table: "customers", Column: "id"}, true},
		{"split on first dot", "customers.address.city", core.Reference{Table: "customers", Column: "address.city"}, true},
		{"no dot", "customers", core.Reference{}, false},
		{"empty", "   ", core.Reference{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SplitToken(tt.token)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseReferences(t *testing.T) {
	cat := testCatalog()

	tests := []struct {
		name string
		refs string
		want []core.Reference
	}{
		{"single", "customers.name", refs("customers.name")},
		{"unknown table dropped", "unknown_table.x\ncustomers.id", refs("customers.id")},
		{"token without dot dropped", "customers\ncustomers.id", refs("customers.id")},
		{"catalog match is case-insensitive", "accounts.balance\nACCOUNTS.account_id", refs("accounts.balance", "accounts.account_id")},
		{"duplicates kept", "customers.id\ncustomers.id", refs("customers.id", "customers.id")},
		{"blank lines ignored", "\n\ncustomers.id\n\n", refs("customers.id")},
		{"nothing resolvable", "a.b\nc", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseReferences(tt.refs, cat))
		})
	}
}

// =============================================================================
// Index Construction
// =============================================================================

func TestBuild_SingleRow(t *testing.T) {
	cat := core.NewCatalog([]core.CatalogRecord{{TableName: "customers", InputColumns: []string{"id", "name"}}})

	ix := Build(cat, []core.LineageRecord{{
		Sheet:        "orders",
		RecordID:     "1",
		OutputColumn: "cust_name",
		InputRefs:    "customers.name",
		Rule:         "direct copy",
		Example:      "'Alice'",
	}})

	entry, ok := ix.Entry(key("orders", "1", "cust_name"))
	require.True(t, ok)
	assert.Equal(t, refs("customers.name"), entry.References)
	assert.Equal(t, "direct copy", entry.Rule)
	assert.Equal(t, "'Alice'", entry.Example)
}

func TestBuild_UnresolvableReferenceDropped(t *testing.T) {
	ix := Build(testCatalog(), []core.LineageRecord{{
		Sheet: "orders", RecordID: "1", OutputColumn: "cid",
		InputRefs: "unknown_table.x\ncustomers.id",
	}})

	entry, ok := ix.Entry(key("orders", "1", "cid"))
	require.True(t, ok)
	assert.Len(t, entry.References, 1)
	assert.Equal(t, refs("customers.id"), entry.References)
}

func TestBuild_RepeatedRows(t *testing.T) {
	ix := Build(testCatalog(), []core.LineageRecord{
		{Sheet: "orders", RecordID: "1", OutputColumn: "total", InputRefs: "accounts.balance", Rule: "sum balances", Example: "10"},
		{Sheet: "orders", RecordID: "1", OutputColumn: "total", InputRefs: "customers.id", Rule: "count customers"},
	})

	entry, ok := ix.Entry(key("orders", "1", "total"))
	require.True(t, ok)
	assert.Equal(t, refs("accounts.balance", "customers.id"), entry.References, "references concatenate in row order")
	assert.Equal(t, "count customers", entry.Rule, "rule is last-write-wins")
	assert.Equal(t, "", entry.Example, "example is overwritten even when absent")
}

func TestBuild_EmptyReferenceListStillHasEntry(t *testing.T) {
	ix := Build(testCatalog(), []core.LineageRecord{
		{Sheet: "orders", RecordID: "1", OutputColumn: "constant", InputRefs: "nowhere.x\nliteral", Rule: "always 1"},
		{Sheet: "orders", RecordID: "1", OutputColumn: "blank"},
	})

	for _, col := range []string{"constant", "blank"} {
		entry, ok := ix.Entry(key("orders", "1", col))
		require.True(t, ok, "column %q should have an entry", col)
		assert.Empty(t, entry.References)
	}
}

func TestBuild_KeysAreTrimmedNotFolded(t *testing.T) {
	ix := Build(testCatalog(), []core.LineageRecord{
		{Sheet: "orders", RecordID: " 1 ", OutputColumn: " Cust_Name ", InputRefs: "customers.name"},
		{Sheet: "orders", RecordID: "1", OutputColumn: "cust_name", InputRefs: "customers.id"},
	})

	assert.Equal(t, 2, ix.Len())
	_, ok := ix.Entry(key("orders", "1", "Cust_Name"))
	assert.True(t, ok)
	_, ok = ix.Entry(key("orders", "1", "cust_name"))
	assert.True(t, ok)
}

func TestBuildWithOptions_SkipsMalformedRows(t *testing.T) {
	records := []core.LineageRecord{
		{Sheet: "orders", RecordID: "", OutputColumn: "a", InputRefs: "customers.id"},
		{Sheet: "orders", RecordID: "1", OutputColumn: "  ", InputRefs: "customers.id"},
		{Sheet: "", RecordID: "1", OutputColumn: "a", InputRefs: "customers.id"},
		{Sheet: "orders", RecordID: "1", OutputColumn: "ok", InputRefs: "customers.id\ncustomers.name\nbad"},
	}

	logger, logs := testutil.NewCapturingLogger(t)
	ix, stats := BuildWithOptions(testCatalog(), records, Options{Logger: logger})

	assert.Equal(t, Stats{Rows: 4, Skipped: 3, Entries: 1, References: 2}, stats)
	assert.Equal(t, []core.Key{key("orders", "1", "ok")}, ix.Keys())

	skipped := logs.Lines("skipping malformed lineage row")
	require.Len(t, skipped, 3)
	assert.Contains(t, skipped[0], "row=0")
	assert.Contains(t, skipped[2], "row=2")
}

func TestBuild_InsertionOrder(t *testing.T) {
	ix := Build(testCatalog(), []core.LineageRecord{
		{Sheet: "orders", RecordID: "2", OutputColumn: "b", InputRefs: "customers.id"},
		{Sheet: "payments", RecordID: "9", OutputColumn: "x", InputRefs: "accounts.balance"},
		{Sheet: "orders", RecordID: "1", OutputColumn: "a", InputRefs: "customers.id"},
		{Sheet: "orders", RecordID: "2", OutputColumn: "a", InputRefs: "customers.name"},
	})

	assert.Equal(t, []string{"orders", "payments"}, ix.Sheets())
	assert.Equal(t, []string{"2", "1"}, ix.RecordIDs("orders"))

	slice := ix.Slice(core.Selection{Sheet: "orders", RecordID: "2"})
	require.Len(t, slice.Columns, 2)
	assert.Equal(t, "b", slice.Columns[0].Name)
	assert.Equal(t, "a", slice.Columns[1].Name)
}

// =============================================================================
// Properties
// =============================================================================

func propertyRecords() []core.LineageRecord {
	return []core.LineageRecord{
		{Sheet: "orders", RecordID: "1", OutputColumn: "a", InputRefs: "customers.id\nnodot\nCustomers.Name\nx.y"},
		{Sheet: "orders", RecordID: "1", OutputColumn: "b", InputRefs: "accounts.balance\naccounts"},
		{Sheet: "orders", RecordID: "2", OutputColumn: "a", InputRefs: "ACCOUNTS.account_id\n\n"},
		{Sheet: "orders", RecordID: "1", OutputColumn: "a", InputRefs: "customers.id", Rule: "r2"},
	}
}

func TestBuild_ResolvedCountBoundedByDottedTokens(t *testing.T) {
	records := propertyRecords()
	ix := Build(testCatalog(), records)

	dotted := make(map[core.Key]int)
	for _, rec := range records {
		k, ok := rowKey(rec)
		require.True(t, ok)
		for _, tok := range strings.Split(rec.InputRefs, "\n") {
			if strings.Contains(tok, ".") {
				dotted[k]++
			}
		}
	}

	for _, k := range ix.Keys() {
		entry, _ := ix.Entry(k)
		assert.LessOrEqual(t, len(entry.References), dotted[k], "key %v", k)
	}
}

func TestBuild_ResolvedTablesAreInCatalog(t *testing.T) {
	cat := testCatalog()
	ix := Build(cat, propertyRecords())

	for _, k := range ix.Keys() {
		entry, _ := ix.Entry(k)
		for _, ref := range entry.References {
			assert.Equal(t, strings.ToLower(ref.Table), ref.Table)
			assert.True(t, cat.Has(ref.Table), "table %q must be in catalog", ref.Table)
		}
	}
}

func TestBuild_Idempotent(t *testing.T) {
	first := Build(testCatalog(), propertyRecords())
	second := Build(testCatalog(), propertyRecords())

	require.Equal(t, first.Keys(), second.Keys())
	for _, k := range first.Keys() {
		a, _ := first.Entry(k)
		b, _ := second.Entry(k)
		assert.Equal(t, a, b, "key %v", k)
	}
}
