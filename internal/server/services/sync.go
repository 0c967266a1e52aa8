// Package services implements the server side of the sync exchange and the
// periodic tombstone reaper.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/papersson/code-bot/internal/api"
	"github.com/papersson/code-bot/internal/common"
	"github.com/papersson/code-bot/internal/conflict"
	"github.com/papersson/code-bot/internal/dbx"
	"github.com/papersson/code-bot/internal/logging"
	"github.com/papersson/code-bot/internal/models"
	"github.com/papersson/code-bot/internal/server/repositories/repomanager"
	"github.com/papersson/code-bot/internal/timex"
)

// DefaultOverlap is subtracted from the client watermark before selecting
// changed rows, so rows stamped by a writer whose clock lags ours are not
// missed. synced_at is taken when a pass starts, so a pass whose
// transaction runs longer than the overlap can still be missed by a
// concurrent reader; raise it with WithOverlap for such deployments.
const DefaultOverlap = 2 * time.Second

// SyncService applies pushed records with last-write-wins and returns what
// the client has to pull, all in one transaction.
type SyncService struct {
	db      *sql.DB
	repos   repomanager.RepositoryManager
	clock   timex.Clock
	overlap time.Duration
	log     logging.Logger
}

type SyncOption func(*SyncService)

func WithClock(c timex.Clock) SyncOption {
	return func(s *SyncService) { s.clock = c }
}

func WithOverlap(d time.Duration) SyncOption {
	return func(s *SyncService) { s.overlap = d }
}

func WithLogger(l logging.Logger) SyncOption {
	return func(s *SyncService) { s.log = l }
}

func NewSyncService(db *sql.DB, repos repomanager.RepositoryManager, opts ...SyncOption) *SyncService {
	s := &SyncService{
		db:      db,
		repos:   repos,
		clock:   timex.SystemClock{},
		overlap: DefaultOverlap,
		log:     logging.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("module", "sync_service")
	return s
}

// Sync runs one exchange for userID. Parents are applied before dependents.
// Invalid records are skipped and reported in RejectedIDs.
func (s *SyncService) Sync(ctx context.Context, userID string, req *api.SyncRequest) (*api.SyncResponse, error) {
	if userID == "" {
		return nil, common.ErrorUnauthorized
	}

	now := s.clock.Now()
	resp := &api.SyncResponse{ServerTime: now}

	var since *time.Time
	if req.LastSync != nil {
		t := timex.Trunc(*req.LastSync).Add(-s.overlap)
		since = &t
	}

	x := &exchange{userID: userID, since: since, now: now, log: s.log}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		if resp.ServerProjectsChanged, err = syncTable[*models.Project](ctx, x, s.repos.Projects(tx), req.LocalProjects); err != nil {
			return err
		}
		if resp.ServerProjectDescriptionsChanged, err = syncTable[*models.ProjectDescription](ctx, x, s.repos.Descriptions(tx), req.LocalProjectDescriptions); err != nil {
			return err
		}
		if resp.ServerChatsChanged, err = syncTable[*models.Chat](ctx, x, s.repos.Chats(tx), req.LocalChats); err != nil {
			return err
		}
		if resp.ServerMessagesChanged, err = syncTable[*models.ChatMessage](ctx, x, s.repos.Messages(tx), req.LocalMessages); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sync for %s: %w", userID, err)
	}

	resp.RejectedIDs = x.rejected
	s.log.Info(ctx, "sync served",
		"pushed", req.Count(),
		"applied", x.applied,
		"rejected", len(x.rejected),
		"returned", resp.Count())
	return resp, nil
}

// exchange is the state shared by every table of one Sync call.
type exchange struct {
	userID   string
	since    *time.Time
	now      time.Time
	log      logging.Logger
	applied  int
	rejected []string
}

// table is the part of a repository syncTable needs.
type table[T models.Record] interface {
	GetForUpdate(ctx context.Context, userID, id string) (T, error)
	Insert(ctx context.Context, userID string, rec T) error
	Update(ctx context.Context, userID string, rec T) error
	SelectChanged(ctx context.Context, userID string, since *time.Time) ([]T, error)
}

// syncTable applies pushed to t and returns the rows changed since the
// watermark plus the canonical row of every accepted pushed record.
func syncTable[T models.Record](ctx context.Context, x *exchange, t table[T], pushed []T) ([]T, error) {
	canonical := make(map[string]T, len(pushed))
	var order []string

	var null T
	for _, rec := range pushed {
		if any(rec) == any(null) {
			continue
		}
		if err := validate(x.userID, rec); err != nil {
			x.log.Warn(ctx, "rejected pushed record", "kind", rec.Kind(), "id", rec.Meta().ID, "error", err)
			x.rejected = append(x.rejected, rec.Meta().ID)
			continue
		}

		winner, err := apply(ctx, x, t, rec)
		if err != nil {
			return nil, err
		}
		id := rec.Meta().ID
		if _, seen := canonical[id]; !seen {
			order = append(order, id)
		}
		canonical[id] = winner
	}

	changed, err := t.SelectChanged(ctx, x.userID, x.since)
	if err != nil {
		return nil, err
	}

	result := make([]T, 0, len(changed)+len(order))
	returned := make(map[string]struct{}, len(changed))
	for _, rec := range changed {
		returned[rec.Meta().ID] = struct{}{}
		result = append(result, rec)
	}
	for _, id := range order {
		if _, ok := returned[id]; !ok {
			result = append(result, canonical[id])
		}
	}
	return result, nil
}

// apply writes rec when it is new or strictly newer than the stored row and
// returns whichever copy is canonical afterwards.
func apply[T models.Record](ctx context.Context, x *exchange, t table[T], rec T) (T, error) {
	m := rec.Meta()
	m.Normalize()
	m.SyncedAt = timex.Ptr(x.now)

	current, err := t.GetForUpdate(ctx, x.userID, m.ID)
	if errors.Is(err, common.ErrorNotFound) {
		if err := t.Insert(ctx, x.userID, rec); err != nil {
			return rec, err
		}
		x.applied++
		return rec, nil
	}
	if err != nil {
		return rec, err
	}

	if conflict.ResolveRecords(rec, current) != conflict.Local {
		return current, nil
	}
	if err := t.Update(ctx, x.userID, rec); err != nil {
		return rec, err
	}
	x.applied++
	return rec, nil
}

func validate(userID string, rec models.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if c, ok := rec.(*models.Chat); ok && c.UserID != userID {
		return fmt.Errorf("%w: chat %s belongs to another user", common.ErrValidation, c.ID)
	}
	return nil
}
