// Package projects persists Project rows in the server PostgreSQL store.
package projects

import (
	"context"
	"time"

	"github.com/papersson/code-bot/internal/models"
	smodels "github.com/papersson/code-bot/internal/server/models"
)

type Repository interface {
	GetForUpdate(ctx context.Context, userID, id string) (*models.Project, error)
	Insert(ctx context.Context, userID string, p *models.Project) error
	Update(ctx context.Context, userID string, p *models.Project) error
	SelectChanged(ctx context.Context, userID string, since *time.Time) ([]*models.Project, error)
	PurgeTombstones(ctx context.Context, cutoff time.Time) ([]smodels.Tombstone, error)
}
