// Package chats persists Chat rows in the server PostgreSQL store. Rows are
// partitioned by the owning user id.
package chats

import (
	"context"
	"time"

	"github.com/papersson/code-bot/internal/models"
	smodels "github.com/papersson/code-bot/internal/server/models"
)

type Repository interface {
	// GetForUpdate returns the user's chat and locks its row until the
	// transaction ends. common.ErrorNotFound reports a missing row.
	GetForUpdate(ctx context.Context, userID, id string) (*models.Chat, error)

	Insert(ctx context.Context, userID string, c *models.Chat) error

	// Update overwrites every replicated column of an existing row.
	Update(ctx context.Context, userID string, c *models.Chat) error

	// SelectChanged returns the user's chats updated or synced after since,
	// or all of them when since is nil. Tombstones are included.
	SelectChanged(ctx context.Context, userID string, since *time.Time) ([]*models.Chat, error)

	// PurgeTombstones deletes tombstones synced before cutoff, for every
	// user, and returns what was removed.
	PurgeTombstones(ctx context.Context, cutoff time.Time) ([]smodels.Tombstone, error)
}
