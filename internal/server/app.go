// Package server wires the sync server together: the PostgreSQL store, the
// HTTP sync API, the gRPC health service and the tombstone reaper, and runs
// them until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/papersson/code-bot/internal/logging"
	"github.com/papersson/code-bot/internal/server/archive"
	"github.com/papersson/code-bot/internal/server/config"
	"github.com/papersson/code-bot/internal/server/health"
	"github.com/papersson/code-bot/internal/server/httpapi"
	"github.com/papersson/code-bot/internal/server/repositories/repomanager"
	"github.com/papersson/code-bot/internal/server/services"
)

// Seams for tests.
var (
	openDB     = repomanager.OpenPostgres
	newArchive = func(ctx context.Context, cfg *config.Config) (archive.Archiver, error) {
		return archive.NewS3Archive(ctx, cfg)
	}
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	http   *httpapi.Server
	health *health.GRPCServer
	reaper *services.Reaper
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogFormat, os.Stdout)
	if err != nil {
		return nil, err
	}

	repos := repomanager.NewPostgresRepositoryManager()
	db, err := openDB(ctx, c.DatabaseDSN, repos)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	var arc archive.Archiver
	if c.ArchiveEnabled() {
		arc, err = newArchive(ctx, c)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("archive init error: %w", err)
		}
	}

	syncService := services.NewSyncService(db, repos,
		services.WithLogger(logger),
		services.WithOverlap(c.SyncOverlap),
	)
	router := httpapi.NewRouter(httpapi.RouterConfig{
		SyncHandler:    httpapi.NewSyncHandler(syncService, logger),
		AuthMiddleware: httpapi.NewAuthMiddleware(c.SecretKey, logger),
		AllowOrigins:   c.AllowOrigins,
		Logger:         logger,
	})

	return &App{
		config: c,
		logger: logger,
		db:     db,
		http:   httpapi.NewServer(c.EndpointAddrHTTP, router, logger),
		health: health.NewGRPCServer(c.EndpointAddrGRPC, db, c.HealthCheckInterval, logger),
		reaper: services.NewReaper(db, repos, arc, c.TombstoneRetention, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// runComponent runs one long-lived part; its failure stops the others.
func (app *App) runComponent(ctx context.Context, cancelFunc context.CancelFunc, name string, run func(context.Context) error) {
	if err := run(ctx); err != nil {
		app.logger.Error(ctx, "component failed", "component", name, "error", err)
		cancelFunc()
	}
}

// Run starts every component and blocks until ctx is cancelled, a signal
// arrives or one component fails. The database is closed on return.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.runComponent(ctx, cancelFunc, "http", app.http.Run)
	}()
	go func() {
		defer wg.Done()
		app.runComponent(ctx, cancelFunc, "grpc", app.health.Run)
	}()
	go func() {
		defer wg.Done()
		app.reaper.Run(ctx, app.config.ReapInterval)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing database", "error", err)
	}
	app.logger.Info(ctx, "Stopped")
}
