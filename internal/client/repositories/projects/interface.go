// Package projects persists Project records in the local SQLite store.
package projects

import (
	"context"
	"time"

	"github.com/papersson/code-bot/internal/models"
)

type Repository interface {
	Get(ctx context.Context, id string) (*models.Project, error)
	Upsert(ctx context.Context, p *models.Project) error
	ListDirty(ctx context.Context) ([]*models.Project, error)
	MarkSynced(ctx context.Context, id string, updatedAt, syncedAt time.Time) (bool, error)
	PurgeTombstones(ctx context.Context) (int64, error)
	Clear(ctx context.Context) error

	// List returns live projects ordered by name.
	List(ctx context.Context) ([]*models.Project, error)
}
