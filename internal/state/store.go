// Package state persists built lineage index snapshots in SQLite.
//
// A snapshot holds everything needed to serve lineage without re-reading
// the workbook: the catalog, the sheet list and every index entry with its
// ordered references. Only the most recent snapshot is kept.
package state

import (
	"context"
	"errors"
	"time"

	"github.com/leapstack-labs/sorlineage/pkg/core"
)

// ErrNoSnapshot is returned when the store holds no snapshot yet.
var ErrNoSnapshot = errors.New("no lineage snapshot stored")

// Snapshot is one persisted build of the lineage index.
type Snapshot struct {
	ID          string
	Fingerprint string
	Source      string
	CreatedAt   time.Time
	Sheets      []string
	Catalog     *core.Catalog
	Index       *core.Index
}

// Store persists lineage snapshots.
type Store interface {
	// SaveSnapshot stores snap as the latest snapshot, replacing older ones.
	// An empty ID is filled in.
	SaveSnapshot(ctx context.Context, snap *Snapshot) error
	// LatestSnapshot returns the most recent snapshot or ErrNoSnapshot.
	LatestSnapshot(ctx context.Context) (*Snapshot, error)
	// LatestFingerprint returns the fingerprint of the most recent snapshot
	// or ErrNoSnapshot.
	LatestFingerprint(ctx context.Context) (string, error)
	Close() error
}

var _ Store = (*SQLiteStore)(nil)
