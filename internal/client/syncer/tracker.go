package syncer

import (
	"context"
	"time"

	"github.com/papersson/code-bot/internal/api"
	"github.com/papersson/code-bot/internal/client/repositories/repomanager"
	"github.com/papersson/code-bot/internal/dbx"
	"github.com/papersson/code-bot/internal/logging"
	"github.com/papersson/code-bot/internal/models"
	"golang.org/x/sync/errgroup"
)

// Batch is the set of dirty records collected for one pass.
type Batch struct {
	Projects     []*models.Project
	Descriptions []*models.ProjectDescription
	Chats        []*models.Chat
	Messages     []*models.ChatMessage

	// Skipped counts dirty records left out because they failed validation.
	Skipped int
}

// Len returns the number of records that will be pushed.
func (b *Batch) Len() int {
	return len(b.Projects) + len(b.Descriptions) + len(b.Chats) + len(b.Messages)
}

// Request builds the wire request for this batch.
func (b *Batch) Request(lastSync *time.Time) *api.SyncRequest {
	return &api.SyncRequest{
		LastSync:                 lastSync,
		LocalChats:               nonNil(b.Chats),
		LocalMessages:            nonNil(b.Messages),
		LocalProjects:            b.Projects,
		LocalProjectDescriptions: b.Descriptions,
	}
}

// Snapshot records the (id, updatedAt) of every collected record.
func (b *Batch) Snapshot() Snapshot {
	s := make(Snapshot, len(models.Kinds))
	addAll(s, models.KindProject, b.Projects)
	addAll(s, models.KindProjectDescription, b.Descriptions)
	addAll(s, models.KindChat, b.Chats)
	addAll(s, models.KindChatMessage, b.Messages)
	return s
}

// Snapshot maps each table to the record states pushed in a pass. Only
// these exact states may be marked synced when the pass commits.
type Snapshot map[models.Kind]map[string]time.Time

// Has reports whether the record state (id, updatedAt) was pushed.
func (s Snapshot) Has(kind models.Kind, id string, updatedAt time.Time) bool {
	at, ok := s[kind][id]
	return ok && at.Equal(updatedAt)
}

func addAll[T models.Record](s Snapshot, kind models.Kind, recs []T) {
	m := make(map[string]time.Time, len(recs))
	for _, r := range recs {
		m[r.Meta().ID] = r.Meta().UpdatedAt
	}
	s[kind] = m
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// ChangeTracker selects dirty records from the local store.
type ChangeTracker struct {
	repos repomanager.RepositoryManager
	log   logging.Logger
}

func NewChangeTracker(repos repomanager.RepositoryManager, log logging.Logger) *ChangeTracker {
	return &ChangeTracker{repos: repos, log: log}
}

// Collect reads every table's dirty records. Tables are scanned concurrently;
// records that fail validation are logged and left out, so they stay dirty.
func (t *ChangeTracker) Collect(ctx context.Context, db dbx.DBTX) (*Batch, error) {
	b := &Batch{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		b.Projects, err = t.repos.Projects(db).ListDirty(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		b.Descriptions, err = t.repos.Descriptions(db).ListDirty(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		b.Chats, err = t.repos.Chats(db).ListDirty(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		b.Messages, err = t.repos.Messages(db).ListDirty(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	b.Projects = keepValid(ctx, t.log, b.Projects, &b.Skipped)
	b.Descriptions = keepValid(ctx, t.log, b.Descriptions, &b.Skipped)
	b.Chats = keepValid(ctx, t.log, b.Chats, &b.Skipped)
	b.Messages = keepValid(ctx, t.log, b.Messages, &b.Skipped)
	return b, nil
}

func keepValid[T models.Record](ctx context.Context, log logging.Logger, recs []T, skipped *int) []T {
	out := recs[:0]
	for _, r := range recs {
		if err := r.Validate(); err != nil {
			log.Warn(ctx, "skipping invalid local record", "kind", r.Kind(), "id", r.Meta().ID, "error", err)
			*skipped++
			continue
		}
		out = append(out, r)
	}
	return out
}
