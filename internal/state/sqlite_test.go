package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sorlineage/internal/lineage"
	"github.com/leapstack-labs/sorlineage/internal/testutil"
	"github.com/leapstack-labs/sorlineage/pkg/core"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(context.Background(), ":memory:"))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testSnapshot() *Snapshot {
	catalog := core.NewCatalog([]core.CatalogRecord{
		{TableName: "customers", InputColumns: []string{"id", "name"}},
		{TableName: "payments", InputColumns: []string{"amount"}},
		{TableName: "empty"},
	})
	ix := lineage.Build(catalog, []core.LineageRecord{
		{Sheet: "orders", RecordID: "1", OutputColumn: "total", InputRefs: "payments.amount\npayments.amount", Rule: "sum"},
		{Sheet: "orders", RecordID: "1", OutputColumn: "cust_name", InputRefs: "customers.name", Example: "'Alice'"},
		{Sheet: "orders", RecordID: "2", OutputColumn: "literal", InputRefs: "none"},
		{Sheet: "refunds", RecordID: "7", OutputColumn: "cust_id", InputRefs: "customers.id"},
	})
	return &Snapshot{
		Fingerprint: "00000000deadbeef",
		Source:      "lineage.yaml",
		Sheets:      []string{"orders", "refunds", "archive"},
		Catalog:     catalog,
		Index:       ix,
	}
}

func TestSQLiteStore_OpenClose(t *testing.T) {
	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(context.Background(), ":memory:"))

	version, err := store.MigrationVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	assert.NoError(t, store.Close())
}

func TestSQLiteStore_EmptyStore(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.LatestSnapshot(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)

	_, err = store.LatestFingerprint(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore(nil)
	ctx := context.Background()

	assert.Error(t, store.SaveSnapshot(ctx, testSnapshot()))
	_, err := store.LatestSnapshot(ctx)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSnapshot)
}

func TestSQLiteStore_SnapshotRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	want := testSnapshot()
	require.NoError(t, store.SaveSnapshot(ctx, want))
	assert.NotEmpty(t, want.ID, "id is generated")
	assert.False(t, want.CreatedAt.IsZero())

	got, err := store.LatestSnapshot(ctx)
	require.NoError(t, err)

	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Fingerprint, got.Fingerprint)
	assert.Equal(t, want.Source, got.Source)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, want.Sheets, got.Sheets)
	assert.Equal(t, want.Catalog.Records(), got.Catalog.Records())

	require.Equal(t, want.Index.Keys(), got.Index.Keys())
	for _, k := range want.Index.Keys() {
		we, _ := want.Index.Entry(k)
		ge, _ := got.Index.Entry(k)
		assert.Equal(t, we, ge, "entry %v", k)
	}

	literal, ok := got.Index.Entry(core.Key{Sheet: "orders", RecordID: "2", OutputColumn: "literal"})
	require.True(t, ok)
	assert.NotNil(t, literal.References)
	assert.Empty(t, literal.References)
}

func TestSQLiteStore_SaveReplacesPrevious(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first := testSnapshot()
	require.NoError(t, store.SaveSnapshot(ctx, first))

	second := testSnapshot()
	second.Fingerprint = "1111111111111111"
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, store.SaveSnapshot(ctx, second))

	fp, err := store.LatestFingerprint(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1111111111111111", fp)

	var snapshots, entries int
	require.NoError(t, store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&snapshots))
	require.NoError(t, store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshot_entries`).Scan(&entries))
	assert.Equal(t, 1, snapshots)
	assert.Equal(t, second.Index.Len(), entries, "older rows cascade away")
}

func TestSQLiteStore_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(ctx, path))
	require.NoError(t, store.SaveSnapshot(ctx, testSnapshot()))
	require.NoError(t, store.Close())

	reopened := NewSQLiteStore(nil)
	require.NoError(t, reopened.Open(ctx, path))
	defer func() { _ = reopened.Close() }()

	snap, err := reopened.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, path, reopened.Path())
	assert.Equal(t, 4, snap.Index.Len())
}
