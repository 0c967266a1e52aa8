package metadata

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

const watermark = "lastSyncTime"

func openStore(t *testing.T) (*sql.DB, *SQLiteRepository) {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE metadata (key TEXT PRIMARY KEY, value BLOB)`)
	require.NoError(t, err)
	return db, NewSQLiteRepository(db)
}

func TestGetTime_AbsentMeansFirstSync(t *testing.T) {
	_, r := openStore(t)

	got, err := r.GetTime(context.Background(), watermark)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSetTime_StoresUTCMilliseconds(t *testing.T) {
	_, r := openStore(t)
	ctx := context.Background()

	at := time.Date(2024, 6, 1, 8, 30, 0, 987654321, time.FixedZone("X", 3600))
	require.NoError(t, r.SetTime(ctx, watermark, at))

	got, err := r.GetTime(ctx, watermark)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Equal(at.Truncate(time.Millisecond)))
	assert.Equal(t, time.UTC, got.Location())
}

func TestSetTime_Overwrites(t *testing.T) {
	db, r := openStore(t)
	ctx := context.Background()

	first := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, r.SetTime(ctx, watermark, first))
	require.NoError(t, r.SetTime(ctx, watermark, first.Add(time.Hour)))

	got, err := r.GetTime(ctx, watermark)
	require.NoError(t, err)
	assert.Equal(t, first.Add(time.Hour), *got)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM metadata`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestGetTime_NullAndGarbage(t *testing.T) {
	db, r := openStore(t)
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO metadata (key, value) VALUES ('empty', NULL), (?, 'yesterday')`, watermark)
	require.NoError(t, err)

	got, err := r.GetTime(ctx, "empty")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = r.GetTime(ctx, watermark)
	assert.ErrorContains(t, err, `failed to parse lastSyncTime "yesterday"`)
}

func TestClear_ForgetsWatermark(t *testing.T) {
	_, r := openStore(t)
	ctx := context.Background()

	require.NoError(t, r.SetTime(ctx, watermark, time.Now()))
	require.NoError(t, r.Clear(ctx))

	got, err := r.GetTime(ctx, watermark)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestErrorsAreWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT CAST\(value AS TEXT\) FROM metadata`).WillReturnError(sql.ErrConnDone)
	mock.ExpectExec(`INSERT INTO metadata`).WillReturnError(sql.ErrConnDone)
	mock.ExpectExec(`DELETE FROM metadata`).WillReturnError(sql.ErrConnDone)

	_, err = r.GetTime(ctx, watermark)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.ErrorContains(t, err, "failed to read lastSyncTime")

	err = r.SetTime(ctx, watermark, time.Now())
	assert.ErrorContains(t, err, "failed to write lastSyncTime")

	err = r.Clear(ctx)
	assert.ErrorContains(t, err, "failed to clear metadata")

	assert.NoError(t, mock.ExpectationsWereMet())
}
