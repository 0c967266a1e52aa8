// Package syncer reconciles the local SQLite store with the server.
//
// One pass collects dirty records, sends them with the watermark in a single
// POST /sync exchange, merges the server's answer and advances the watermark.
// The merge, the syncedAt stamps and the watermark are committed in one local
// transaction, so a failed or cancelled pass leaves the store untouched.
package syncer

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/papersson/code-bot/internal/api"
	"github.com/papersson/code-bot/internal/client/events"
	"github.com/papersson/code-bot/internal/client/repositories/repomanager"
	"github.com/papersson/code-bot/internal/common"
	"github.com/papersson/code-bot/internal/dbx"
	"github.com/papersson/code-bot/internal/logging"
	"github.com/papersson/code-bot/internal/models"
	"github.com/papersson/code-bot/internal/timex"
)

// Transport performs the sync exchange. client.Client implements it.
type Transport interface {
	Sync(ctx context.Context, req *api.SyncRequest) (*api.SyncResponse, error)
}

type Engine struct {
	db        *sql.DB
	repos     repomanager.RepositoryManager
	transport Transport
	tracker   *ChangeTracker
	bus       events.Bus
	clock     timex.Clock
	log       logging.Logger
	reap      bool

	// pass is held for the whole of a pass; TryLock failing means one is running.
	pass   sync.Mutex
	passes atomic.Int64

	mu     sync.RWMutex
	status Status
}

type Option func(*Engine)

func WithClock(c timex.Clock) Option { return func(e *Engine) { e.clock = c } }

func WithLogger(l logging.Logger) Option { return func(e *Engine) { e.log = l } }

func WithBus(b events.Bus) Option { return func(e *Engine) { e.bus = b } }

// WithTombstoneReaping purges confirmed tombstones after every successful pass.
func WithTombstoneReaping(on bool) Option { return func(e *Engine) { e.reap = on } }

func NewEngine(db *sql.DB, repos repomanager.RepositoryManager, transport Transport, opts ...Option) *Engine {
	e := &Engine{
		db:        db,
		repos:     repos,
		transport: transport,
		clock:     timex.SystemClock{},
		log:       logging.Nop(),
		status:    Status{State: StateIdle},
	}
	for _, o := range opts {
		o(e)
	}
	e.log = e.log.With("module", "sync")
	e.tracker = NewChangeTracker(repos, e.log)
	return e
}

// Status returns a copy of the current status.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.status.State = s
	e.mu.Unlock()
}

// Sync runs one pass. It returns common.ErrSyncInProgress without doing
// anything when another pass is running.
func (e *Engine) Sync(ctx context.Context) (*Result, error) {
	if !e.pass.TryLock() {
		return nil, common.ErrSyncInProgress
	}
	defer e.pass.Unlock()

	ctx = logging.ContextWith(ctx, "pass", e.passes.Add(1))
	res := &Result{StartedAt: e.clock.Now()}
	changed, err := e.run(ctx, res)
	res.CompletedAt = e.clock.Now()

	e.mu.Lock()
	if err != nil {
		e.status.State = StateFailed
		e.status.LastError = err
	} else {
		e.status.State = StateIdle
		e.status.LastError = nil
		e.status.LastSuccess = res.CompletedAt
		e.status.LastResult = res
	}
	e.mu.Unlock()

	if err != nil {
		e.log.Error(ctx, "sync failed", "error", err)
		e.publish(ctx, events.Event{Topic: events.SyncFailed, Err: err})
		return nil, err
	}

	e.log.Info(ctx, "sync finished",
		"pushed", res.Pushed, "pulled", res.Pulled, "applied", res.Applied,
		"kept_local", res.KeptLocal, "skipped", res.Skipped, "duration", res.Duration())
	e.publishChanges(ctx, changed)
	e.publish(ctx, events.Event{Topic: events.SyncCompleted})
	return res, nil
}

func (e *Engine) run(ctx context.Context, res *Result) (map[models.Kind][]string, error) {
	e.setState(StatePushing)

	lastSync, err := e.repos.Metadata(e.db).GetTime(ctx, common.LastSyncTimeKey)
	if err != nil {
		return nil, fmt.Errorf("read watermark: %w", err)
	}

	batch, err := e.tracker.Collect(ctx, e.db)
	if err != nil {
		return nil, fmt.Errorf("collect dirty records: %w", err)
	}
	res.Pushed = batch.Len()
	res.Skipped = batch.Skipped
	snapshot := batch.Snapshot()

	resp, err := e.transport.Sync(ctx, batch.Request(lastSync))
	if err != nil {
		return nil, fmt.Errorf("sync request: %w", err)
	}

	e.setState(StatePulling)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res.Pulled = resp.Count()
	res.Rejected = len(resp.RejectedIDs)
	for _, id := range resp.RejectedIDs {
		e.log.Warn(ctx, "server rejected record", "id", id)
	}

	e.setState(StateMerging)
	completed := e.clock.Now()
	watermark := completed
	if !resp.ServerTime.IsZero() {
		watermark = timex.Trunc(resp.ServerTime)
	}

	var changed map[models.Kind][]string
	err = dbx.WithTx(ctx, e.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		changed, err = e.merge(ctx, tx, resp, snapshot, completed, res)
		if err != nil {
			return err
		}
		return e.repos.Metadata(tx).SetTime(ctx, common.LastSyncTimeKey, watermark)
	})
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	res.Watermark = watermark

	if e.reap {
		n, err := e.reapTombstones(ctx)
		if err != nil {
			// the pass itself committed; a failed cleanup is retried next time
			e.log.Warn(ctx, "tombstone reaping failed", "error", err)
		}
		res.Reaped = n
	}
	return changed, nil
}

// merge applies the response table by table, parents first, and stamps
// every pushed record that was not edited meanwhile.
func (e *Engine) merge(ctx context.Context, tx dbx.DBTX, resp *api.SyncResponse, snap Snapshot, completed time.Time, res *Result) (map[models.Kind][]string, error) {
	rejected := make(map[string]struct{}, len(resp.RejectedIDs))
	for _, id := range resp.RejectedIDs {
		rejected[id] = struct{}{}
	}
	changed := make(map[models.Kind][]string, len(models.Kinds))

	pm := newMerger[*models.Project](models.KindProject, e.repos.Projects(tx), snap, completed, e.log, res)
	if err := pm.run(ctx, resp.ServerProjectsChanged, rejected, changed); err != nil {
		return nil, err
	}
	dm := newMerger[*models.ProjectDescription](models.KindProjectDescription, e.repos.Descriptions(tx), snap, completed, e.log, res)
	if err := dm.run(ctx, resp.ServerProjectDescriptionsChanged, rejected, changed); err != nil {
		return nil, err
	}
	cm := newMerger[*models.Chat](models.KindChat, e.repos.Chats(tx), snap, completed, e.log, res)
	if err := cm.run(ctx, resp.ServerChatsChanged, rejected, changed); err != nil {
		return nil, err
	}
	mm := newMerger[*models.ChatMessage](models.KindChatMessage, e.repos.Messages(tx), snap, completed, e.log, res)
	if err := mm.run(ctx, resp.ServerMessagesChanged, rejected, changed); err != nil {
		return nil, err
	}
	return changed, nil
}

// Reap removes tombstones the server has confirmed. It returns
// common.ErrSyncInProgress while a pass is running.
func (e *Engine) Reap(ctx context.Context) (int64, error) {
	if !e.pass.TryLock() {
		return 0, common.ErrSyncInProgress
	}
	defer e.pass.Unlock()
	return e.reapTombstones(ctx)
}

func (e *Engine) reapTombstones(ctx context.Context) (int64, error) {
	var total int64
	err := dbx.WithTx(ctx, e.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		purgers := []func(context.Context) (int64, error){
			e.repos.Messages(tx).PurgeTombstones,
			e.repos.Chats(tx).PurgeTombstones,
			e.repos.Descriptions(tx).PurgeTombstones,
			e.repos.Projects(tx).PurgeTombstones,
		}
		for _, purge := range purgers {
			n, err := purge(ctx)
			if err != nil {
				return err
			}
			total += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if total > 0 {
		e.log.Info(ctx, "reaped tombstones", "count", total)
	}
	return total, nil
}

func (e *Engine) publish(ctx context.Context, ev events.Event) {
	if e.bus != nil {
		e.bus.Publish(ctx, ev)
	}
}

func (e *Engine) publishChanges(ctx context.Context, changed map[models.Kind][]string) {
	if ids := changed[models.KindChat]; len(ids) > 0 {
		e.publish(ctx, events.Event{Topic: events.ChatUpdated, IDs: ids})
	}
	if ids := changed[models.KindChatMessage]; len(ids) > 0 {
		e.publish(ctx, events.Event{Topic: events.MessagesChanged, IDs: ids})
	}
	ids := append(append([]string{}, changed[models.KindProject]...), changed[models.KindProjectDescription]...)
	if len(ids) > 0 {
		e.publish(ctx, events.Event{Topic: events.ProjectsChanged, IDs: ids})
	}
}
