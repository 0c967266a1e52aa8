package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/papersson/code-bot/internal/server/migrations"
	"github.com/papersson/code-bot/internal/server/repositories/chats"
	"github.com/papersson/code-bot/internal/server/repositories/descriptions"
	"github.com/papersson/code-bot/internal/server/repositories/messages"
	"github.com/papersson/code-bot/internal/server/repositories/projects"
	"github.com/pressly/goose/v3"
)

func newDB(t *testing.T) *sql.DB {
	t.Helper()
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestFactories_ReturnConcreteRepos(t *testing.T) {
	db := newDB(t)
	var m RepositoryManager = NewPostgresRepositoryManager()

	if _, ok := m.Chats(db).(*chats.PostgresRepository); !ok {
		t.Fatal("Chats() is not a postgres repository")
	}
	if _, ok := m.Messages(db).(*messages.PostgresRepository); !ok {
		t.Fatal("Messages() is not a postgres repository")
	}
	if _, ok := m.Projects(db).(*projects.PostgresRepository); !ok {
		t.Fatal("Projects() is not a postgres repository")
	}
	if _, ok := m.Descriptions(db).(*descriptions.PostgresRepository); !ok {
		t.Fatal("Descriptions() is not a postgres repository")
	}
}

func TestRunMigrations(t *testing.T) {
	db := newDB(t)

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}
	if err := NewPostgresRepositoryManager().RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
	if gotDir != "." {
		t.Fatalf("unexpected dir %q", gotDir)
	}

	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	if err := NewPostgresRepositoryManager().RunMigrations(context.Background(), db); err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestMigrationsAreEmbedded(t *testing.T) {
	data, err := fs.ReadFile(migrations.Migrations, "00001_init.sql")
	if err != nil {
		t.Fatalf("read embedded migration: %v", err)
	}
	for _, table := range []string{"projects", "project_descriptions", "chats", "chat_messages"} {
		if !strings.Contains(string(data), "CREATE TABLE "+table+" (") {
			t.Fatalf("migration does not create %s", table)
		}
	}
}
