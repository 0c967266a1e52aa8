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
	smodels "github.com/papersson/code-bot/internal/server/models"
)

const columns = `user_id, id, name, project_id, project_description_id, created_at, updated_at, synced_at, deleted`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, userID, id string) (*models.Chat, error) {
	query := `SELECT ` + columns + ` FROM chats WHERE user_id = $1 AND id = $2 FOR UPDATE`
	c, err := scan(r.db.QueryRowContext(ctx, query, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chat %s: %w", id, err)
	}
	return c, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, userID string, c *models.Chat) error {
	query := `INSERT INTO chats (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query,
		userID, c.ID, c.Name, dbx.NullString(c.ProjectID), dbx.NullString(c.ProjectDescriptionID),
		c.CreatedAt, c.UpdatedAt, dbx.NullTime(c.SyncedAt), c.Deleted)
	if err != nil {
		return fmt.Errorf("failed to insert chat: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, userID string, c *models.Chat) error {
	query := `UPDATE chats SET
			name = $3,
			project_id = $4,
			project_description_id = $5,
			created_at = $6,
			updated_at = $7,
			synced_at = $8,
			deleted = $9
		WHERE user_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, query,
		userID, c.ID, c.Name, dbx.NullString(c.ProjectID), dbx.NullString(c.ProjectDescriptionID),
		c.CreatedAt, c.UpdatedAt, dbx.NullTime(c.SyncedAt), c.Deleted)
	if err != nil {
		return fmt.Errorf("failed to update chat: %w", err)
	}
	n, err := dbx.RowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) SelectChanged(ctx context.Context, userID string, since *time.Time) ([]*models.Chat, error) {
	if since == nil {
		return r.list(ctx, `SELECT `+columns+` FROM chats WHERE user_id = $1 ORDER BY updated_at, id`, userID)
	}
	return r.list(ctx, `SELECT `+columns+` FROM chats
		WHERE user_id = $1 AND (updated_at > $2 OR synced_at > $2)
		ORDER BY updated_at, id`, userID, *since)
}

func (r *PostgresRepository) PurgeTombstones(ctx context.Context, cutoff time.Time) ([]smodels.Tombstone, error) {
	rows, err := r.list(ctx, `DELETE FROM chats WHERE deleted AND synced_at < $1 RETURNING `+columns, cutoff)
	if err != nil {
		return nil, err
	}
	result := make([]smodels.Tombstone, 0, len(rows))
	for _, c := range rows {
		result = append(result, smodels.NewTombstone(c.UserID, c))
	}
	return result, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Chat, error) {
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
		c                 models.Chat
		projectID, descID sql.NullString
		syncedAt          sql.NullTime
	)
	if err := s.Scan(&c.UserID, &c.ID, &c.Name, &projectID, &descID,
		&c.CreatedAt, &c.UpdatedAt, &syncedAt, &c.Deleted); err != nil {
		return nil, err
	}
	c.ProjectID = dbx.StringPtr(projectID)
	c.ProjectDescriptionID = dbx.StringPtr(descID)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	c.SyncedAt = dbx.TimePtr(syncedAt)
	return &c, nil
}
