// Package messages persists ChatMessage rows in the server PostgreSQL
// store, partitioned by user id.
package messages

import (
	"context"
	"time"

	"github.com/papersson/code-bot/internal/models"
	smodels "github.com/papersson/code-bot/internal/server/models"
)

type Repository interface {
	// GetForUpdate returns common.ErrorNotFound when the user has no such message.
	GetForUpdate(ctx context.Context, userID, id string) (*models.ChatMessage, error)
	Insert(ctx context.Context, userID string, m *models.ChatMessage) error
	Update(ctx context.Context, userID string, m *models.ChatMessage) error
	SelectChanged(ctx context.Context, userID string, since *time.Time) ([]*models.ChatMessage, error)
	PurgeTombstones(ctx context.Context, cutoff time.Time) ([]smodels.Tombstone, error)
}
