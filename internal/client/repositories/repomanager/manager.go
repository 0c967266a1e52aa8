// Package repomanager vends the local SQLite repositories bound to either
// the database handle or an open transaction, and migrates the schema.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/papersson/code-bot/internal/client/migrations"
	"github.com/papersson/code-bot/internal/client/repositories/chats"
	"github.com/papersson/code-bot/internal/client/repositories/descriptions"
	"github.com/papersson/code-bot/internal/client/repositories/messages"
	"github.com/papersson/code-bot/internal/client/repositories/metadata"
	"github.com/papersson/code-bot/internal/client/repositories/projects"
	"github.com/papersson/code-bot/internal/dbx"
	"github.com/pressly/goose/v3"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Chats(db dbx.DBTX) chats.Repository
	Messages(db dbx.DBTX) messages.Repository
	Projects(db dbx.DBTX) projects.Repository
	Descriptions(db dbx.DBTX) descriptions.Repository
	Metadata(db dbx.DBTX) metadata.Repository
}

type SQLiteRepositoryManager struct{}

func NewSQLiteRepositoryManager() *SQLiteRepositoryManager {
	return &SQLiteRepositoryManager{}
}

func (m *SQLiteRepositoryManager) Chats(db dbx.DBTX) chats.Repository {
	return chats.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Messages(db dbx.DBTX) messages.Repository {
	return messages.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Projects(db dbx.DBTX) projects.Repository {
	return projects.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Descriptions(db dbx.DBTX) descriptions.Repository {
	return descriptions.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Metadata(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations with the sqlite3 dialect.
func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}
