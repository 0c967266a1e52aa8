// Package descriptions persists ProjectDescription rows in the server
// PostgreSQL store.
package descriptions

import (
	"context"
	"time"

	"github.com/papersson/code-bot/internal/models"
	smodels "github.com/papersson/code-bot/internal/server/models"
)

type Repository interface {
	GetForUpdate(ctx context.Context, userID, id string) (*models.ProjectDescription, error)
	Insert(ctx context.Context, userID string, d *models.ProjectDescription) error
	Update(ctx context.Context, userID string, d *models.ProjectDescription) error
	SelectChanged(ctx context.Context, userID string, since *time.Time) ([]*models.ProjectDescription, error)
	PurgeTombstones(ctx context.Context, cutoff time.Time) ([]smodels.Tombstone, error)
}
