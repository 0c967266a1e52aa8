package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/papersson/code-bot/internal/common"
	"github.com/papersson/code-bot/internal/dbx"
	"github.com/papersson/code-bot/internal/models"
	smodels "github.com/papersson/code-bot/internal/server/models"
	"github.com/papersson/code-bot/internal/server/repositories/chats"
	"github.com/papersson/code-bot/internal/server/repositories/descriptions"
	"github.com/papersson/code-bot/internal/server/repositories/messages"
	"github.com/papersson/code-bot/internal/server/repositories/projects"
	"github.com/stretchr/testify/require"
)

// memTable is an in-memory stand-in for one PostgreSQL table.
type memTable[T models.Record] struct {
	mu      sync.Mutex
	rows    map[string]T // user_id + "/" + id
	owners  map[string]string
	writes  int
	failGet error
}

func newMemTable[T models.Record]() *memTable[T] {
	return &memTable[T]{rows: map[string]T{}, owners: map[string]string{}}
}

func key(userID, id string) string { return userID + "/" + id }

func (m *memTable[T]) GetForUpdate(ctx context.Context, userID, id string) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero T
	if m.failGet != nil {
		return zero, m.failGet
	}
	rec, ok := m.rows[key(userID, id)]
	if !ok {
		return zero, common.ErrorNotFound
	}
	return clone(rec), nil
}

func (m *memTable[T]) Insert(ctx context.Context, userID string, rec T) error {
	return m.put(userID, rec)
}

func (m *memTable[T]) Update(ctx context.Context, userID string, rec T) error {
	return m.put(userID, rec)
}

func (m *memTable[T]) put(userID string, rec T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(userID, rec.Meta().ID)
	m.rows[k] = clone(rec)
	m.owners[k] = userID
	m.writes++
	return nil
}

func (m *memTable[T]) SelectChanged(ctx context.Context, userID string, since *time.Time) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []T
	for k, rec := range m.rows {
		if m.owners[k] != userID {
			continue
		}
		e := rec.Meta()
		if since == nil || e.UpdatedAt.After(*since) || (e.SyncedAt != nil && e.SyncedAt.After(*since)) {
			out = append(out, clone(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Meta().ID < out[j].Meta().ID })
	return out, nil
}

func (m *memTable[T]) PurgeTombstones(ctx context.Context, cutoff time.Time) ([]smodels.Tombstone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []smodels.Tombstone
	for k, rec := range m.rows {
		e := rec.Meta()
		if e.Deleted && e.SyncedAt != nil && e.SyncedAt.Before(cutoff) {
			out = append(out, smodels.NewTombstone(m.owners[k], rec))
			delete(m.rows, k)
			delete(m.owners, k)
		}
	}
	return out, nil
}

// seed stores rec for userID without counting it as a write.
func (m *memTable[T]) seed(userID string, rec T) {
	_ = m.put(userID, rec)
	m.writes--
}

func (m *memTable[T]) get(userID, id string) T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[key(userID, id)]
}

func clone[T models.Record](rec T) T {
	b, err := json.Marshal(rec)
	if err != nil {
		panic(err)
	}
	out := reflect.New(reflect.TypeOf(rec).Elem()).Interface().(T)
	if err := json.Unmarshal(b, out); err != nil {
		panic(err)
	}
	return out
}

type fakeRepos struct {
	chats        *memTable[*models.Chat]
	messages     *memTable[*models.ChatMessage]
	projects     *memTable[*models.Project]
	descriptions *memTable[*models.ProjectDescription]
}

func newFakeRepos() *fakeRepos {
	return &fakeRepos{
		chats:        newMemTable[*models.Chat](),
		messages:     newMemTable[*models.ChatMessage](),
		projects:     newMemTable[*models.Project](),
		descriptions: newMemTable[*models.ProjectDescription](),
	}
}

func (f *fakeRepos) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeRepos) Chats(dbx.DBTX) chats.Repository { return f.chats }
func (f *fakeRepos) Messages(dbx.DBTX) messages.Repository { return f.messages }
func (f *fakeRepos) Projects(dbx.DBTX) projects.Repository { return f.projects }
func (f *fakeRepos) Descriptions(dbx.DBTX) descriptions.Repository { return f.descriptions }

func (f *fakeRepos) writes() int {
	return f.chats.writes + f.messages.writes + f.projects.writes + f.descriptions.writes
}

// newMockDB returns a sqlmock database that only sees transaction control.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}
