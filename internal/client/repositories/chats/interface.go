// Package chats persists Chat records in the local SQLite store.
package chats

import (
	"context"
	"time"

	"github.com/papersson/code-bot/internal/models"
)

// Repository describes local storage of chats. Tombstoned chats are kept
// until PurgeTombstones removes them.
type Repository interface {
	// Get returns common.ErrorNotFound when no row has the id.
	Get(ctx context.Context, id string) (*models.Chat, error)

	// Upsert writes every column, including the sync envelope.
	Upsert(ctx context.Context, c *models.Chat) error

	// ListDirty returns chats never synced or changed since their last sync.
	ListDirty(ctx context.Context) ([]*models.Chat, error)

	// MarkSynced sets synced_at only while updated_at still equals updatedAt.
	// It reports whether a row was updated.
	MarkSynced(ctx context.Context, id string, updatedAt, syncedAt time.Time) (bool, error)

	// PurgeTombstones physically removes deleted chats the server has confirmed.
	PurgeTombstones(ctx context.Context) (int64, error)

	Clear(ctx context.Context) error

	ListByUser(ctx context.Context, userID string) ([]*models.Chat, error)
	ListByProject(ctx context.Context, projectID string) ([]*models.Chat, error)
}
