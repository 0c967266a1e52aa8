// Package messages persists ChatMessage records in the local SQLite store.
package messages

import (
	"context"
	"time"

	"github.com/papersson/code-bot/internal/models"
)

type Repository interface {
	Get(ctx context.Context, id string) (*models.ChatMessage, error)
	Upsert(ctx context.Context, m *models.ChatMessage) error
	ListDirty(ctx context.Context) ([]*models.ChatMessage, error)
	MarkSynced(ctx context.Context, id string, updatedAt, syncedAt time.Time) (bool, error)
	PurgeTombstones(ctx context.Context) (int64, error)
	Clear(ctx context.Context) error

	// ListByChat returns live messages of a chat in creation order.
	ListByChat(ctx context.Context, chatID string) ([]*models.ChatMessage, error)
}
