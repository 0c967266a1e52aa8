package syncer

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/papersson/code-bot/internal/api"
	"github.com/papersson/code-bot/internal/client/client"
	"github.com/papersson/code-bot/internal/client/repositories/repomanager"
	"github.com/papersson/code-bot/internal/conflict"
	"github.com/papersson/code-bot/internal/models"
	"github.com/papersson/code-bot/internal/timex"
	"github.com/stretchr/testify/require"
)

// fakeServer keeps server tables in memory and answers like the real sync
// service: last-write-wins on push, then every row changed since lastSync
// plus the canonical row of each pushed record.
type fakeServer struct {
	mu    sync.Mutex
	clock timex.Clock

	chats    map[string]*models.Chat
	messages map[string]*models.ChatMessage
	projects map[string]*models.Project
	descs    map[string]*models.ProjectDescription

	requests []*api.SyncRequest
	err      error
	before   func(ctx context.Context)
	after    func(resp *api.SyncResponse)
	reject   []string
	// overlap widens the lastSync window like the real server does.
	overlap time.Duration
}

func newFakeServer(clock timex.Clock) *fakeServer {
	return &fakeServer{
		clock:    clock,
		chats:    map[string]*models.Chat{},
		messages: map[string]*models.ChatMessage{},
		projects: map[string]*models.Project{},
		descs:    map[string]*models.ProjectDescription{},
	}
}

func (f *fakeServer) Sync(ctx context.Context, req *api.SyncRequest) (*api.SyncResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	before, fail := f.before, f.err
	f.mu.Unlock()

	if before != nil {
		before(ctx)
	}
	if fail != nil {
		return nil, fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.clock.Now()
	since := req.LastSync
	if since != nil {
		s := since.Add(-f.overlap)
		since = &s
	}
	resp := &api.SyncResponse{
		ServerProjectsChanged:            serve(f.projects, req.LocalProjects, since, now, f.reject),
		ServerProjectDescriptionsChanged: serve(f.descs, req.LocalProjectDescriptions, since, now, f.reject),
		ServerChatsChanged:               serve(f.chats, req.LocalChats, since, now, f.reject),
		ServerMessagesChanged:            serve(f.messages, req.LocalMessages, since, now, f.reject),
		ServerTime:                       now,
		RejectedIDs:                      f.reject,
	}
	if f.after != nil {
		f.after(resp)
	}
	return resp, nil
}

func serve[T models.Record](table map[string]T, pushed []T, since *time.Time, now time.Time, reject []string) []T {
	out := map[string]T{}
	for _, p := range pushed {
		id := p.Meta().ID
		if contains(reject, id) {
			continue
		}
		cur, ok := table[id]
		if !ok || conflict.ResolveRecords(p, cur) == conflict.Local {
			cp := clone(p)
			at := now
			cp.Meta().SyncedAt = &at
			table[id] = cp
		}
		out[id] = table[id]
	}
	for id, r := range table {
		m := r.Meta()
		if since == nil || m.UpdatedAt.After(*since) || (m.SyncedAt != nil && m.SyncedAt.After(*since)) {
			out[id] = r
		}
	}
	result := make([]T, 0, len(out))
	for _, r := range out {
		result = append(result, clone(r))
	}
	return result
}

func clone[T models.Record](r T) T {
	var out models.Record
	switch v := any(r).(type) {
	case *models.Chat:
		cp := *v
		out = &cp
	case *models.ChatMessage:
		cp := *v
		out = &cp
	case *models.Project:
		cp := *v
		out = &cp
	case *models.ProjectDescription:
		cp := *v
		out = &cp
	}
	return out.(T)
}

func contains(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func (f *fakeServer) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeServer) lastRequest() *api.SyncRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

// replica is one client device: a local store plus its engine.
type replica struct {
	db     *sql.DB
	repos  *repomanager.SQLiteRepositoryManager
	engine *Engine
}

func newReplica(t *testing.T, server Transport, clock timex.Clock, opts ...Option) *replica {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repos := repomanager.NewSQLiteRepositoryManager()
	opts = append([]Option{WithClock(clock)}, opts...)
	return &replica{db: db, repos: repos, engine: NewEngine(db, repos, server, opts...)}
}

func (r *replica) putChat(t *testing.T, c *models.Chat) {
	t.Helper()
	require.NoError(t, r.repos.Chats(r.db).Upsert(context.Background(), c))
}

func (r *replica) chat(t *testing.T, id string) *models.Chat {
	t.Helper()
	c, err := r.repos.Chats(r.db).Get(context.Background(), id)
	require.NoError(t, err)
	return c
}

func (r *replica) watermark(t *testing.T) *time.Time {
	t.Helper()
	w, err := r.repos.Metadata(r.db).GetTime(context.Background(), "lastSyncTime")
	require.NoError(t, err)
	return w
}
