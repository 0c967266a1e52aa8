package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/papersson/code-bot/internal/common"
	"github.com/papersson/code-bot/internal/logging"
)

// Syncer runs one pass. *Engine implements it.
type Syncer interface {
	Sync(ctx context.Context) (*Result, error)
}

// Trigger reasons.
const (
	ReasonManual    = "manual"
	ReasonPeriodic  = "periodic"
	ReasonReconnect = "reconnect"
	ReasonStartup   = "startup"
)

const busyRetryDelay = 200 * time.Millisecond

// Scheduler serialises sync passes. Triggers that arrive while a pass runs
// collapse into a single follow-up pass.
type Scheduler struct {
	syncer   Syncer
	interval time.Duration
	log      logging.Logger
	pending  chan string
	done     chan struct{}
}

// NewScheduler creates a scheduler. A zero interval disables periodic passes.
func NewScheduler(s Syncer, interval time.Duration, log logging.Logger) *Scheduler {
	return &Scheduler{
		syncer:   s,
		interval: interval,
		log:      log.With("module", "sync_scheduler"),
		pending:  make(chan string, 1),
		done:     make(chan struct{}),
	}
}

// Trigger requests a pass without blocking. It reports false when a pass is
// already queued, in which case that queued pass will cover this request.
func (s *Scheduler) Trigger(reason string) bool {
	select {
	case s.pending <- reason:
		return true
	default:
		return false
	}
}

// Run processes triggers until ctx is cancelled. Failures are logged; the
// next trigger retries from scratch.
func (s *Scheduler) Run(ctx context.Context) {
	defer close(s.done)

	var tick <-chan time.Time
	if s.interval > 0 {
		t := time.NewTicker(s.interval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			s.runOnce(ctx, ReasonPeriodic)
		case reason := <-s.pending:
			s.runOnce(ctx, reason)
		}
	}
}

// Done is closed when Run returns.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

func (s *Scheduler) runOnce(ctx context.Context, reason string) {
	s.log.Debug(ctx, "sync triggered", "reason", reason)
	_, err := s.syncer.Sync(ctx)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrSyncInProgress):
		// a pass started outside the scheduler; queue a follow-up
		time.AfterFunc(busyRetryDelay, func() { s.Trigger(reason) })
	case ctx.Err() != nil:
	default:
		s.log.Warn(ctx, "sync pass failed", "reason", reason, "error", err)
	}
}
