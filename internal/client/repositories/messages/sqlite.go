package messages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/papersson/code-bot/internal/common"
	"github.com/papersson/code-bot/internal/dbx"
	"github.com/papersson/code-bot/internal/models"
)

const columns = `id, chat_id, sender, content, created_at, updated_at, synced_at, deleted`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.ChatMessage, error) {
	m, err := scan(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM chat_messages WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}
	return m, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, m *models.ChatMessage) error {
	query := `INSERT INTO chat_messages (` + columns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			chat_id = excluded.chat_id,
			sender = excluded.sender,
			content = excluded.content,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			synced_at = excluded.synced_at,
			deleted = excluded.deleted
	`
	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.ChatID, string(m.Sender), m.Content,
		m.CreatedAt.UnixMilli(), m.UpdatedAt.UnixMilli(), dbx.NullMillis(m.SyncedAt), m.Deleted)
	if err != nil {
		return fmt.Errorf("failed to upsert message: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListDirty(ctx context.Context) ([]*models.ChatMessage, error) {
	return r.list(ctx, `SELECT `+columns+` FROM chat_messages WHERE synced_at IS NULL OR updated_at > synced_at`)
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, updatedAt, syncedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE chat_messages SET synced_at = ? WHERE id = ? AND updated_at = ?`,
		syncedAt.UnixMilli(), id, updatedAt.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("failed to mark message synced: %w", err)
	}
	n, err := dbx.RowsAffected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *SQLiteRepository) PurgeTombstones(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM chat_messages WHERE deleted = 1 AND synced_at IS NOT NULL AND synced_at >= updated_at`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge message tombstones: %w", err)
	}
	return dbx.RowsAffected(res)
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM chat_messages`); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListByChat(ctx context.Context, chatID string) ([]*models.ChatMessage, error) {
	return r.list(ctx, `SELECT `+columns+` FROM chat_messages
		WHERE chat_id = ? AND deleted = 0 ORDER BY created_at, id`, chatID)
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]*models.ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select messages: %w", err)
	}
	defer rows.Close()

	var result []*models.ChatMessage
	for rows.Next() {
		m, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate message rows: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.ChatMessage, error) {
	var (
		m                    models.ChatMessage
		sender               string
		createdAt, updatedAt int64
		syncedAt             sql.NullInt64
	)
	if err := s.Scan(&m.ID, &m.ChatID, &sender, &m.Content,
		&createdAt, &updatedAt, &syncedAt, &m.Deleted); err != nil {
		return nil, err
	}
	m.Sender = models.Sender(sender)
	m.CreatedAt = time.UnixMilli(createdAt).UTC()
	m.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	m.SyncedAt = dbx.MillisPtr(syncedAt)
	return &m, nil
}
