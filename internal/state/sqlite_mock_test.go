package state

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_SaveSnapshotRollsBack(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		wantErr   string
	}{
		{
			name: "delete fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("DELETE FROM snapshots").WillReturnError(errors.New("locked"))
				mock.ExpectRollback()
			},
			wantErr: "drop previous snapshots: locked",
		},
		{
			name: "insert fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("DELETE FROM snapshots").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("INSERT INTO snapshots").WillReturnError(errors.New("disk full"))
				mock.ExpectRollback()
			},
			wantErr: "insert snapshot: disk full",
		},
		{
			name: "begin fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(errors.New("busy"))
			},
			wantErr: "begin transaction: busy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()

			tt.setupMock(mock)
			store := NewSQLiteStoreWithDB(db, nil)

			err = store.SaveSnapshot(context.Background(), testSnapshot())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSQLiteStore_LatestFingerprintErrors(t *testing.T) {
	t.Run("no rows", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery("SELECT fingerprint FROM snapshots").
			WillReturnRows(sqlmock.NewRows([]string{"fingerprint"}))

		_, err = NewSQLiteStoreWithDB(db, nil).LatestFingerprint(context.Background())
		assert.ErrorIs(t, err, ErrNoSnapshot)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery("SELECT fingerprint FROM snapshots").
			WillReturnError(errors.New("connection reset"))

		_, err = NewSQLiteStoreWithDB(db, nil).LatestFingerprint(context.Background())
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNoSnapshot)
		assert.Contains(t, err.Error(), "connection reset")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
