package projects

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

const columns = `user_id, id, name, description, created_at, updated_at, synced_at, deleted`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, userID, id string) (*models.Project, error) {
	query := `SELECT ` + columns + ` FROM projects WHERE user_id = $1 AND id = $2 FOR UPDATE`
	row, err := scan(r.db.QueryRowContext(ctx, query, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project %s: %w", id, err)
	}
	return row.project, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, userID string, p *models.Project) error {
	query := `INSERT INTO projects (` + columns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query,
		userID, p.ID, p.Name, p.Description, p.CreatedAt, p.UpdatedAt, dbx.NullTime(p.SyncedAt), p.Deleted)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, userID string, p *models.Project) error {
	query := `UPDATE projects SET
			name = $3,
			description = $4,
			created_at = $5,
			updated_at = $6,
			synced_at = $7,
			deleted = $8
		WHERE user_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, query,
		userID, p.ID, p.Name, p.Description, p.CreatedAt, p.UpdatedAt, dbx.NullTime(p.SyncedAt), p.Deleted)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
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

func (r *PostgresRepository) SelectChanged(ctx context.Context, userID string, since *time.Time) ([]*models.Project, error) {
	var (
		rows []owned
		err  error
	)
	if since == nil {
		rows, err = r.list(ctx, `SELECT `+columns+` FROM projects WHERE user_id = $1 ORDER BY updated_at, id`, userID)
	} else {
		rows, err = r.list(ctx, `SELECT `+columns+` FROM projects
			WHERE user_id = $1 AND (updated_at > $2 OR synced_at > $2)
			ORDER BY updated_at, id`, userID, *since)
	}
	if err != nil {
		return nil, err
	}
	result := make([]*models.Project, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.project)
	}
	return result, nil
}

func (r *PostgresRepository) PurgeTombstones(ctx context.Context, cutoff time.Time) ([]smodels.Tombstone, error) {
	rows, err := r.list(ctx, `DELETE FROM projects WHERE deleted AND synced_at < $1 RETURNING `+columns, cutoff)
	if err != nil {
		return nil, err
	}
	result := make([]smodels.Tombstone, 0, len(rows))
	for _, row := range rows {
		result = append(result, smodels.NewTombstone(row.userID, row.project))
	}
	return result, nil
}

type owned struct {
	userID  string
	project *models.Project
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]owned, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select projects: %w", err)
	}
	defer rows.Close()

	var result []owned
	for rows.Next() {
		row, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate project rows: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (owned, error) {
	var (
		row      owned
		p        models.Project
		syncedAt sql.NullTime
	)
	if err := s.Scan(&row.userID, &p.ID, &p.Name, &p.Description,
		&p.CreatedAt, &p.UpdatedAt, &syncedAt, &p.Deleted); err != nil {
		return owned{}, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	p.SyncedAt = dbx.TimePtr(syncedAt)
	row.project = &p
	return row, nil
}
