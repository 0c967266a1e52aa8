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
)

const columns = `id, name, description, created_at, updated_at, synced_at, deleted`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.Project, error) {
	p, err := scan(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM projects WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project %s: %w", id, err)
	}
	return p, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, p *models.Project) error {
	query := `INSERT INTO projects (` + columns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			synced_at = excluded.synced_at,
			deleted = excluded.deleted
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Description,
		p.CreatedAt.UnixMilli(), p.UpdatedAt.UnixMilli(), dbx.NullMillis(p.SyncedAt), p.Deleted)
	if err != nil {
		return fmt.Errorf("failed to upsert project: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListDirty(ctx context.Context) ([]*models.Project, error) {
	return r.list(ctx, `SELECT `+columns+` FROM projects WHERE synced_at IS NULL OR updated_at > synced_at`)
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, updatedAt, syncedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE projects SET synced_at = ? WHERE id = ? AND updated_at = ?`,
		syncedAt.UnixMilli(), id, updatedAt.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("failed to mark project synced: %w", err)
	}
	n, err := dbx.RowsAffected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *SQLiteRepository) PurgeTombstones(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM projects WHERE deleted = 1 AND synced_at IS NOT NULL AND synced_at >= updated_at`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge project tombstones: %w", err)
	}
	return dbx.RowsAffected(res)
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM projects`); err != nil {
		return fmt.Errorf("failed to clear projects: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.Project, error) {
	return r.list(ctx, `SELECT `+columns+` FROM projects WHERE deleted = 0 ORDER BY name, id`)
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]*models.Project, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select projects: %w", err)
	}
	defer rows.Close()

	var result []*models.Project
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project row: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate project rows: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.Project, error) {
	var (
		p                    models.Project
		createdAt, updatedAt int64
		syncedAt             sql.NullInt64
	)
	if err := s.Scan(&p.ID, &p.Name, &p.Description, &createdAt, &updatedAt, &syncedAt, &p.Deleted); err != nil {
		return nil, err
	}
	p.CreatedAt = time.UnixMilli(createdAt).UTC()
	p.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	p.SyncedAt = dbx.MillisPtr(syncedAt)
	return &p, nil
}
