package services

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/papersson/code-bot/internal/client/client"
	"github.com/papersson/code-bot/internal/client/events"
	"github.com/papersson/code-bot/internal/client/repositories/repomanager"
	"github.com/papersson/code-bot/internal/timex"
	"github.com/stretchr/testify/require"
)

type countingTrigger struct {
	n atomic.Int32
}

func (c *countingTrigger) Trigger(string) bool {
	c.n.Add(1)
	return true
}

type fixture struct {
	db      *sql.DB
	repos   *repomanager.SQLiteRepositoryManager
	clock   *timex.ManualClock
	bus     *events.MemoryBus
	trigger *countingTrigger
	opts    []Option
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		db:      db,
		repos:   repomanager.NewSQLiteRepositoryManager(),
		clock:   timex.NewManualClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)),
		bus:     events.NewMemoryBus(),
		trigger: &countingTrigger{},
	}
	var seq atomic.Int32
	f.opts = []Option{
		WithClock(f.clock),
		WithBus(f.bus),
		WithTrigger(f.trigger),
		func(b *base) { b.newID = func() string { return fmt.Sprintf("id-%d", seq.Add(1)) } },
	}
	return f
}
