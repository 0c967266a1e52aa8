package server

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/papersson/code-bot/internal/server/archive"
	"github.com/papersson/code-bot/internal/server/config"
	smodels "github.com/papersson/code-bot/internal/server/models"
	"github.com/papersson/code-bot/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopArchive struct{}

func (nopArchive) Store(context.Context, *smodels.Archive) error { return nil }

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.EndpointAddrHTTP = "127.0.0.1:0"
	c.EndpointAddrGRPC = "127.0.0.1:0"
	c.LogFormat = "text"
	c.ReapInterval = 0
	c.HealthCheckInterval = 0
	return c
}

func stubDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	orig := openDB
	openDB = func(ctx context.Context, dsn string, m repomanager.RepositoryManager) (*sql.DB, error) {
		return db, nil
	}
	t.Cleanup(func() { openDB = orig })
	return mock
}

func TestNewApp_DBError(t *testing.T) {
	orig := openDB
	openDB = func(ctx context.Context, dsn string, m repomanager.RepositoryManager) (*sql.DB, error) {
		return nil, errors.New("connection refused")
	}
	t.Cleanup(func() { openDB = orig })

	_, err := NewApp(context.Background(), testConfig())
	assert.ErrorContains(t, err, "db init error")
}

func TestNewApp_UnknownLogFormat(t *testing.T) {
	c := testConfig()
	c.LogFormat = "xml"

	_, err := NewApp(context.Background(), c)
	assert.ErrorContains(t, err, "unknown log format")
}

func TestNewApp_ArchiveOnlyWhenBucketSet(t *testing.T) {
	stubDB(t)

	calls := 0
	orig := newArchive
	newArchive = func(ctx context.Context, cfg *config.Config) (archive.Archiver, error) {
		calls++
		return nopArchive{}, nil
	}
	t.Cleanup(func() { newArchive = orig })

	_, err := NewApp(context.Background(), testConfig())
	require.NoError(t, err)
	assert.Zero(t, calls)

	stubDB(t)
	c := testConfig()
	c.S3Bucket = "archive"
	_, err = NewApp(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestNewApp_ArchiveError(t *testing.T) {
	mock := stubDB(t)
	mock.ExpectClose()

	orig := newArchive
	newArchive = func(ctx context.Context, cfg *config.Config) (archive.Archiver, error) {
		return nil, errors.New("bad credentials")
	}
	t.Cleanup(func() { newArchive = orig })

	c := testConfig()
	c.S3Bucket = "archive"
	_, err := NewApp(context.Background(), c)
	assert.ErrorContains(t, err, "archive init error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_StopsOnCancelAndClosesDB(t *testing.T) {
	mock := stubDB(t)
	mock.ExpectPing()
	mock.ExpectClose()

	app, err := NewApp(context.Background(), testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}
