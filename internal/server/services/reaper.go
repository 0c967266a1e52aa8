package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/papersson/code-bot/internal/dbx"
	"github.com/papersson/code-bot/internal/logging"
	"github.com/papersson/code-bot/internal/server/archive"
	smodels "github.com/papersson/code-bot/internal/server/models"
	"github.com/papersson/code-bot/internal/server/repositories/repomanager"
	"github.com/papersson/code-bot/internal/timex"
)

// Reaper physically removes tombstones whose deletion every client has had
// TombstoneRetention to observe. With an archive configured the removed
// rows are stored first; a failed store keeps them in the database.
type Reaper struct {
	db        *sql.DB
	repos     repomanager.RepositoryManager
	archive   archive.Archiver
	retention time.Duration
	clock     timex.Clock
	log       logging.Logger
}

// NewReaper returns a reaper. arc may be nil to skip archiving.
func NewReaper(db *sql.DB, repos repomanager.RepositoryManager, arc archive.Archiver, retention time.Duration, l logging.Logger) *Reaper {
	return &Reaper{
		db:        db,
		repos:     repos,
		archive:   arc,
		retention: retention,
		clock:     timex.SystemClock{},
		log:       l.With("module", "reaper"),
	}
}

// ReapOnce removes every tombstone synced before now minus the retention
// and returns how many rows went away. Dependents go before parents.
func (r *Reaper) ReapOnce(ctx context.Context) (int, error) {
	now := r.clock.Now()
	arc := &smodels.Archive{ReapedAt: now, Cutoff: now.Add(-r.retention)}

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		purges := []func(context.Context, time.Time) ([]smodels.Tombstone, error){
			r.repos.Messages(tx).PurgeTombstones,
			r.repos.Chats(tx).PurgeTombstones,
			r.repos.Descriptions(tx).PurgeTombstones,
			r.repos.Projects(tx).PurgeTombstones,
		}
		for _, purge := range purges {
			removed, err := purge(ctx, arc.Cutoff)
			if err != nil {
				return err
			}
			arc.Tombstones = append(arc.Tombstones, removed...)
		}

		if r.archive == nil || len(arc.Tombstones) == 0 {
			return nil
		}
		return r.archive.Store(ctx, arc)
	})
	if err != nil {
		return 0, fmt.Errorf("reap tombstones: %w", err)
	}
	return len(arc.Tombstones), nil
}

// Run calls ReapOnce every interval until ctx is done. A non-positive
// interval disables reaping.
func (r *Reaper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		r.log.Info(ctx, "Tombstone reaper disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.ReapOnce(ctx)
			if err != nil {
				r.log.Error(ctx, "Reaping failed", "error", err)
				continue
			}
			if n > 0 {
				r.log.Info(ctx, "Reaped tombstones", "count", n, "archived", r.archive != nil)
			}
		}
	}
}
