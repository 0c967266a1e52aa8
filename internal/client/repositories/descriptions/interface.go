// Package descriptions persists ProjectDescription records in the local
// SQLite store.
package descriptions

import (
	"context"
	"time"

	"github.com/papersson/code-bot/internal/models"
)

type Repository interface {
	Get(ctx context.Context, id string) (*models.ProjectDescription, error)
	Upsert(ctx context.Context, d *models.ProjectDescription) error
	ListDirty(ctx context.Context) ([]*models.ProjectDescription, error)
	MarkSynced(ctx context.Context, id string, updatedAt, syncedAt time.Time) (bool, error)
	PurgeTombstones(ctx context.Context) (int64, error)
	Clear(ctx context.Context) error

	List(ctx context.Context) ([]*models.ProjectDescription, error)
}
