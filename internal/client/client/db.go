package client

import (
	"context"
	"database/sql"

	"github.com/papersson/code-bot/internal/client/repositories/repomanager"
	"github.com/papersson/code-bot/internal/filex"

	_ "modernc.org/sqlite"
)

// InitDatabase opens the local SQLite store and migrates it. The store is
// used through a single connection so writers queue instead of failing
// with SQLITE_BUSY.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	if err := filex.EnsureDirFor(dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := repomanager.NewSQLiteRepositoryManager().RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
