// Package services holds the local-first mutations behind the CLI. Every
// write goes to the local store first, stamps the sync envelope, notifies
// subscribers and asks for a background sync pass.
package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/papersson/code-bot/internal/client/events"
	"github.com/papersson/code-bot/internal/client/repositories/repomanager"
	"github.com/papersson/code-bot/internal/logging"
	"github.com/papersson/code-bot/internal/timex"
)

// ReasonLocalEdit is passed to Trigger after a local mutation.
const ReasonLocalEdit = "local-edit"

// Trigger requests a sync pass without blocking. *syncer.Scheduler
// implements it.
type Trigger interface {
	Trigger(reason string) bool
}

type Option func(*base)

func WithClock(c timex.Clock) Option { return func(b *base) { b.clock = c } }

func WithBus(bus events.Bus) Option { return func(b *base) { b.bus = bus } }

func WithTrigger(t Trigger) Option { return func(b *base) { b.trigger = t } }

func WithLogger(l logging.Logger) Option { return func(b *base) { b.log = l } }

// base carries what every service shares.
type base struct {
	db      *sql.DB
	repos   repomanager.RepositoryManager
	clock   timex.Clock
	bus     events.Bus
	trigger Trigger
	log     logging.Logger
	newID   func() string
}

func newBase(db *sql.DB, repos repomanager.RepositoryManager, opts []Option) base {
	b := base{
		db:    db,
		repos: repos,
		clock: timex.SystemClock{},
		log:   logging.Nop(),
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(&b)
	}
	return b
}

// changed publishes a topic for the given ids and requests a sync pass.
func (b *base) changed(ctx context.Context, topic events.Topic, ids ...string) {
	if b.bus != nil {
		b.bus.Publish(ctx, events.Event{Topic: topic, IDs: ids})
	}
	if b.trigger != nil {
		b.trigger.Trigger(ReasonLocalEdit)
	}
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
