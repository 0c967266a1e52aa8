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
)

const columns = `id, language, frameworks, metadata, created_at, updated_at, synced_at, deleted`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.ProjectDescription, error) {
	d, err := scan(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM project_descriptions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project description %s: %w", id, err)
	}
	return d, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, d *models.ProjectDescription) error {
	query := `INSERT INTO project_descriptions (` + columns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			language = excluded.language,
			frameworks = excluded.frameworks,
			metadata = excluded.metadata,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			synced_at = excluded.synced_at,
			deleted = excluded.deleted
	`
	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.Language, d.Frameworks, d.Metadata,
		d.CreatedAt.UnixMilli(), d.UpdatedAt.UnixMilli(), dbx.NullMillis(d.SyncedAt), d.Deleted)
	if err != nil {
		return fmt.Errorf("failed to upsert project description: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListDirty(ctx context.Context) ([]*models.ProjectDescription, error) {
	return r.list(ctx, `SELECT `+columns+` FROM project_descriptions WHERE synced_at IS NULL OR updated_at > synced_at`)
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, updatedAt, syncedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE project_descriptions SET synced_at = ? WHERE id = ? AND updated_at = ?`,
		syncedAt.UnixMilli(), id, updatedAt.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("failed to mark project description synced: %w", err)
	}
	n, err := dbx.RowsAffected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *SQLiteRepository) PurgeTombstones(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM project_descriptions WHERE deleted = 1 AND synced_at IS NOT NULL AND synced_at >= updated_at`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge project description tombstones: %w", err)
	}
	return dbx.RowsAffected(res)
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM project_descriptions`); err != nil {
		return fmt.Errorf("failed to clear project descriptions: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.ProjectDescription, error) {
	return r.list(ctx, `SELECT `+columns+` FROM project_descriptions WHERE deleted = 0 ORDER BY language, id`)
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]*models.ProjectDescription, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select project descriptions: %w", err)
	}
	defer rows.Close()

	var result []*models.ProjectDescription
	for rows.Next() {
		d, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project description row: %w", err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate project description rows: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.ProjectDescription, error) {
	var (
		d                    models.ProjectDescription
		createdAt, updatedAt int64
		syncedAt             sql.NullInt64
	)
	if err := s.Scan(&d.ID, &d.Language, &d.Frameworks, &d.Metadata,
		&createdAt, &updatedAt, &syncedAt, &d.Deleted); err != nil {
		return nil, err
	}
	d.CreatedAt = time.UnixMilli(createdAt).UTC()
	d.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	d.SyncedAt = dbx.MillisPtr(syncedAt)
	return &d, nil
}
