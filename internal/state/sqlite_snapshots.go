package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/sorlineage/pkg/core"
)

// SaveSnapshot stores snap as the latest snapshot and drops older ones.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	if s.db == nil {
		return fmt.Errorf("database not open")
	}
	if snap.ID == "" {
		snap.ID = generateID()
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots`); err != nil {
		return fmt.Errorf("drop previous snapshots: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, fingerprint, source, created_at) VALUES (?, ?, ?, ?)`,
		snap.ID, snap.Fingerprint, snap.Source, snap.CreatedAt.Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	if err := insertCatalog(ctx, tx, snap.ID, snap.Catalog); err != nil {
		return err
	}
	if err := insertSheets(ctx, tx, snap.ID, snap.Sheets); err != nil {
		return err
	}
	if err := insertEntries(ctx, tx, snap.ID, snap.Index); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Debug("snapshot saved",
		slog.String("id", snap.ID),
		slog.String("fingerprint", snap.Fingerprint),
		slog.Int("entries", snap.Index.Len()))
	return nil
}

func insertCatalog(ctx context.Context, tx *sql.Tx, id string, catalog *core.Catalog) error {
	tableStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO snapshot_tables (snapshot_id, ordinal, table_name) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer func() { _ = tableStmt.Close() }()

	colStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO snapshot_columns (snapshot_id, table_name, ordinal, column_name) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer func() { _ = colStmt.Close() }()

	for i, rec := range catalog.Records() {
		if _, err := tableStmt.ExecContext(ctx, id, i, rec.TableName); err != nil {
			return fmt.Errorf("insert table %s: %w", rec.TableName, err)
		}
		for j, col := range rec.InputColumns {
			if _, err := colStmt.ExecContext(ctx, id, rec.TableName, j, col); err != nil {
				return fmt.Errorf("insert column %s.%s: %w", rec.TableName, col, err)
			}
		}
	}
	return nil
}

func insertSheets(ctx context.Context, tx *sql.Tx, id string, sheets []string) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO snapshot_sheets (snapshot_id, ordinal, name) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, name := range sheets {
		if _, err := stmt.ExecContext(ctx, id, i, name); err != nil {
			return fmt.Errorf("insert sheet %s: %w", name, err)
		}
	}
	return nil
}

func insertEntries(ctx context.Context, tx *sql.Tx, id string, ix *core.Index) error {
	entryStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshot_entries
		(snapshot_id, ordinal, sheet, record_id, output_column, rule, example)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer func() { _ = entryStmt.Close() }()

	refStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshot_references
		(snapshot_id, entry_ordinal, ordinal, table_name, column_name)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer func() { _ = refStmt.Close() }()

	for i, key := range ix.Keys() {
		entry, _ := ix.Entry(key)
		if _, err := entryStmt.ExecContext(ctx, id, i,
			key.Sheet, key.RecordID, key.OutputColumn, entry.Rule, entry.Example,
		); err != nil {
			return fmt.Errorf("insert entry %s/%s/%s: %w", key.Sheet, key.RecordID, key.OutputColumn, err)
		}
		for j, ref := range entry.References {
			if _, err := refStmt.ExecContext(ctx, id, i, j, ref.Table, ref.Column); err != nil {
				return fmt.Errorf("insert reference %s: %w", ref.ID(), err)
			}
		}
	}
	return nil
}

// LatestFingerprint returns the fingerprint of the stored snapshot.
func (s *SQLiteStore) LatestFingerprint(ctx context.Context) (string, error) {
	if s.db == nil {
		return "", fmt.Errorf("database not open")
	}

	var fp string
	err := s.db.QueryRowContext(ctx,
		`SELECT fingerprint FROM snapshots ORDER BY created_at DESC LIMIT 1`,
	).Scan(&fp)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoSnapshot
	}
	if err != nil {
		return "", fmt.Errorf("get latest fingerprint: %w", err)
	}
	return fp, nil
}

// LatestSnapshot loads the stored snapshot and rebuilds its index.
func (s *SQLiteStore) LatestSnapshot(ctx context.Context) (*Snapshot, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not open")
	}

	snap := &Snapshot{}
	var created string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, fingerprint, source, created_at FROM snapshots
		ORDER BY created_at DESC
		LIMIT 1
	`).Scan(&snap.ID, &snap.Fingerprint, &snap.Source, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}
	if snap.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("parse snapshot time: %w", err)
	}

	if snap.Catalog, err = s.loadCatalog(ctx, snap.ID); err != nil {
		return nil, err
	}
	if snap.Sheets, err = s.loadSheets(ctx, snap.ID); err != nil {
		return nil, err
	}
	if snap.Index, err = s.loadIndex(ctx, snap.ID); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *SQLiteStore) loadCatalog(ctx context.Context, id string) (*core.Catalog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.table_name, c.column_name
		FROM snapshot_tables t
		LEFT JOIN snapshot_columns c
			ON c.snapshot_id = t.snapshot_id AND c.table_name = t.table_name
		WHERE t.snapshot_id = ?
		ORDER BY t.ordinal, c.ordinal
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []core.CatalogRecord
	for rows.Next() {
		var table string
		var column sql.NullString
		if err := rows.Scan(&table, &column); err != nil {
			return nil, fmt.Errorf("scan catalog: %w", err)
		}
		if n := len(records); n == 0 || records[n-1].TableName != table {
			records = append(records, core.CatalogRecord{TableName: table})
		}
		if column.Valid {
			last := &records[len(records)-1]
			last.InputColumns = append(last.InputColumns, column.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog: %w", err)
	}
	return core.NewCatalog(records), nil
}

func (s *SQLiteStore) loadSheets(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM snapshot_sheets WHERE snapshot_id = ? ORDER BY ordinal`, id)
	if err != nil {
		return nil, fmt.Errorf("query sheets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sheets []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan sheet: %w", err)
		}
		sheets = append(sheets, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sheets: %w", err)
	}
	return sheets, nil
}

func (s *SQLiteStore) loadIndex(ctx context.Context, id string) (*core.Index, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.ordinal, e.sheet, e.record_id, e.output_column, e.rule, e.example,
		       r.table_name, r.column_name
		FROM snapshot_entries e
		LEFT JOIN snapshot_references r
			ON r.snapshot_id = e.snapshot_id AND r.entry_ordinal = e.ordinal
		WHERE e.snapshot_id = ?
		ORDER BY e.ordinal, r.ordinal
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ix := core.NewIndex()
	for rows.Next() {
		var (
			ordinal       int
			key           core.Key
			rule, example string
			table, column sql.NullString
		)
		if err := rows.Scan(&ordinal, &key.Sheet, &key.RecordID, &key.OutputColumn,
			&rule, &example, &table, &column); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entry := ix.Ensure(key)
		entry.Rule = rule
		entry.Example = example
		if table.Valid && column.Valid {
			entry.References = append(entry.References, core.Reference{Table: table.String, Column: column.String})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return ix, nil
}
