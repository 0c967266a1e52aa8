package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/papersson/code-bot/internal/client/client"
	"github.com/papersson/code-bot/internal/client/config"
	"github.com/papersson/code-bot/internal/client/events"
	"github.com/papersson/code-bot/internal/client/repositories/repomanager"
	"github.com/papersson/code-bot/internal/client/services"
	"github.com/papersson/code-bot/internal/client/syncer"
	"github.com/papersson/code-bot/internal/logging"

	_ "modernc.org/sqlite"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config    *config.Config
	db        *sql.DB
	repos     repomanager.RepositoryManager
	api       client.Client
	engine    *syncer.Engine
	scheduler *syncer.Scheduler
	trigger   services.Trigger
	chats     services.ChatService
	projects  services.ProjectService
	bus       *events.MemoryBus
	log       logging.Logger

	reader *bufio.Reader
	out    io.Writer

	mu      sync.Mutex
	mode    Mode
	current string
}

// NewApp opens the local store, connects the transport and wires the sync
// engine, its scheduler and the services. Call Close when done.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	log, err := logging.New(c.LogFormat, os.Stderr)
	if err != nil {
		return nil, err
	}

	db, err := client.InitDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	api, err := client.NewService(c.ServerEndpointAddr, c.HealthEndpointAddr,
		client.WithAccessToken(c.AccessToken),
		client.WithTimeout(c.RequestTimeout))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	repos := repomanager.NewSQLiteRepositoryManager()
	bus := events.NewMemoryBus()
	engine := syncer.NewEngine(db, repos, api,
		syncer.WithLogger(log),
		syncer.WithBus(bus),
		syncer.WithTombstoneReaping(c.ReapTombstones))
	scheduler := syncer.NewScheduler(engine, c.SyncInterval, log)

	opts := []services.Option{services.WithBus(bus), services.WithTrigger(scheduler), services.WithLogger(log)}
	return &App{
		config:    c,
		db:        db,
		repos:     repos,
		api:       api,
		engine:    engine,
		scheduler: scheduler,
		trigger:   scheduler,
		chats:     services.NewChatService(db, repos, opts...),
		projects:  services.NewProjectService(db, repos, opts...),
		bus:       bus,
		log:       log,
		reader:    bufio.NewReader(os.Stdin),
		out:       os.Stdout,
	}, nil
}

func (a *App) Close() error {
	return errors.Join(a.api.Close(), a.db.Close())
}

// Run starts background sync and the online watcher, then serves the REPL
// until the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.scheduler.Run(ctx)
	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	go a.watchEvents(ctx)
	a.trigger.Trigger(syncer.ReasonStartup)

	printlnFn("Chat sync client (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)

	cancel()
	<-a.scheduler.Done()
	return nil
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	a.mu.Lock()
	prev := a.mode
	a.mode = mode
	a.mu.Unlock()

	if prev == mode {
		return
	}
	a.log.Info(ctx, "connectivity changed", "mode", mode)
	if mode == ModeOnline && prev == ModeOffline {
		a.trigger.Trigger(syncer.ReasonReconnect)
	}
}

func (a *App) getStatus() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := string(a.mode)
	if a.current != "" {
		s += " chat:" + shortID(a.current)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// StartOnlineStatusWatcher probes the server every interval. Going from
// offline to online requests a sync pass.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		a.probe(ctx)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) probe(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := a.api.Ping(pctx)
	cancel()
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		a.setMode(ctx, ModeOffline)
		return
	}
	a.setMode(ctx, ModeOnline)
}

// watchEvents reports sync outcomes that affect what the user sees.
func (a *App) watchEvents(ctx context.Context) {
	ch, cancel := a.bus.Subscribe(16, events.SyncFailed, events.ChatUpdated, events.MessagesChanged)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ch:
			switch ev.Topic {
			case events.SyncFailed:
				a.log.Warn(ctx, "background sync failed", "error", ev.Err)
			default:
				a.log.Debug(ctx, "records changed", "topic", ev.Topic, "count", len(ev.IDs))
			}
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
