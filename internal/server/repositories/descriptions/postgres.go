package descriptions

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

const columns = `user_id, id, language, frameworks, metadata, created_at, updated_at, synced_at, deleted`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, userID, id string) (*models.ProjectDescription, error) {
	query := `SELECT ` + columns + ` FROM project_descriptions WHERE user_id = $1 AND id = $2 FOR UPDATE`
	row, err := scan(r.db.QueryRowContext(ctx, query, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project description %s: %w", id, err)
	}
	return row.desc, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, userID string, d *models.ProjectDescription) error {
	query := `INSERT INTO project_descriptions (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query,
		userID, d.ID, d.Language, d.Frameworks, d.Metadata,
		d.CreatedAt, d.UpdatedAt, dbx.NullTime(d.SyncedAt), d.Deleted)
	if err != nil {
		return fmt.Errorf("failed to insert project description: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, userID string, d *models.ProjectDescription) error {
	query := `UPDATE project_descriptions SET
			language = $3,
			frameworks = $4,
			metadata = $5,
			created_at = $6,
			updated_at = $7,
			synced_at = $8,
			deleted = $9
		WHERE user_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, query,
		userID, d.ID, d.Language, d.Frameworks, d.Metadata,
		d.CreatedAt, d.UpdatedAt, dbx.NullTime(d.SyncedAt), d.Deleted)
	if err != nil {
		return fmt.Errorf("failed to update project description: %w", err)
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

func (r *PostgresRepository) SelectChanged(ctx context.Context, userID string, since *time.Time) ([]*models.ProjectDescription, error) {
	var (
		rows []owned
		err  error
	)
	if since == nil {
		rows, err = r.list(ctx, `SELECT `+columns+` FROM project_descriptions WHERE user_id = $1 ORDER BY updated_at, id`, userID)
	} else {
		rows, err = r.list(ctx, `SELECT `+columns+` FROM project_descriptions
			WHERE user_id = $1 AND (updated_at > $2 OR synced_at > $2)
			ORDER BY updated_at, id`, userID, *since)
	}
	if err != nil {
		return nil, err
	}
	result := make([]*models.ProjectDescription, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.desc)
	}
	return result, nil
}

func (r *PostgresRepository) PurgeTombstones(ctx context.Context, cutoff time.Time) ([]smodels.Tombstone, error) {
	rows, err := r.list(ctx, `DELETE FROM project_descriptions WHERE deleted AND synced_at < $1 RETURNING `+columns, cutoff)
	if err != nil {
		return nil, err
	}
	result := make([]smodels.Tombstone, 0, len(rows))
	for _, row := range rows {
		result = append(result, smodels.NewTombstone(row.userID, row.desc))
	}
	return result, nil
}

type owned struct {
	userID string
	desc   *models.ProjectDescription
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]owned, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select project descriptions: %w", err)
	}
	defer rows.Close()

	var result []owned
	for rows.Next() {
		row, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project description row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate project description rows: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (owned, error) {
	var (
		row      owned
		d        models.ProjectDescription
		syncedAt sql.NullTime
	)
	if err := s.Scan(&row.userID, &d.ID, &d.Language, &d.Frameworks, &d.Metadata,
		&d.CreatedAt, &d.UpdatedAt, &syncedAt, &d.Deleted); err != nil {
		return owned{}, err
	}
	d.CreatedAt = d.CreatedAt.UTC()
	d.UpdatedAt = d.UpdatedAt.UTC()
	d.SyncedAt = dbx.TimePtr(syncedAt)
	row.desc = &d
	return row, nil
}
