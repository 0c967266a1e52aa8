package chats

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

const columns = `id, user_id, name, project_id, project_description_id, created_at, updated_at, synced_at, deleted`

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.Chat, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM chats WHERE id = ?`, id)
	c, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chat %s: %w", id, err)
	}
	return c, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, c *models.Chat) error {
	query := `INSERT INTO chats (` + columns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			name = excluded.name,
			project_id = excluded.project_id,
			project_description_id = excluded.project_description_id,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			synced_at = excluded.synced_at,
			deleted = excluded.deleted
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.UserID, c.Name, dbx.NullString(c.ProjectID), dbx.NullString(c.ProjectDescriptionID),
		c.CreatedAt.UnixMilli(), c.UpdatedAt.UnixMilli(), dbx.NullMillis(c.SyncedAt), c.Deleted)
	if err != nil {
		return fmt.Errorf("failed to upsert chat: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListDirty(ctx context.Context) ([]*models.Chat, error) {
	return r.list(ctx, `SELECT `+columns+` FROM chats WHERE synced_at IS NULL OR updated_at > synced_at`)
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, updatedAt, syncedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE chats SET synced_at = ? WHERE id = ? AND updated_at = ?`,
		syncedAt.UnixMilli(), id, updatedAt.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("failed to mark chat synced: %w", err)
	}
	n, err := dbx.RowsAffected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *SQLiteRepository) PurgeTombstones(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM chats WHERE deleted = 1 AND synced_at IS NOT NULL AND synced_at >= updated_at`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge chat tombstones: %w", err)
	}
	return dbx.RowsAffected(res)
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM chats`); err != nil {
		return fmt.Errorf("failed to clear chats: %w", err)
	}
	return nil
}

// ListByUser returns the user's live chats, most recently updated first.
func (r *SQLiteRepository) ListByUser(ctx context.Context, userID string) ([]*models.Chat, error) {
	return r.list(ctx, `SELECT `+columns+` FROM chats WHERE user_id = ? AND deleted = 0 ORDER BY updated_at DESC`, userID)
}

func (r *SQLiteRepository) ListByProject(ctx context.Context, projectID string) ([]*models.Chat, error) {
	return r.list(ctx, `SELECT `+columns+` FROM chats WHERE project_id = ? AND deleted = 0`, projectID)
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]*models.Chat, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select chats: %w", err)
	}
	defer rows.Close()

	var result []*models.Chat
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat row: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat rows: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.Chat, error) {
	var (
		c                    models.Chat
		projectID, descID    sql.NullString
		createdAt, updatedAt int64
		syncedAt             sql.NullInt64
	)
	if err := s.Scan(&c.ID, &c.UserID, &c.Name, &projectID, &descID,
		&createdAt, &updatedAt, &syncedAt, &c.Deleted); err != nil {
		return nil, err
	}
	c.ProjectID = dbx.StringPtr(projectID)
	c.ProjectDescriptionID = dbx.StringPtr(descID)
	c.CreatedAt = time.UnixMilli(createdAt).UTC()
	c.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	c.SyncedAt = dbx.MillisPtr(syncedAt)
	return &c, nil
}
