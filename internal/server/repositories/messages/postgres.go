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
	smodels "github.com/papersson/code-bot/internal/server/models"
)

const columns = `user_id, id, chat_id, sender, content, created_at, updated_at, synced_at, deleted`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, userID, id string) (*models.ChatMessage, error) {
	query := `SELECT ` + columns + ` FROM chat_messages WHERE user_id = $1 AND id = $2 FOR UPDATE`
	row, err := scan(r.db.QueryRowContext(ctx, query, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}
	return row.msg, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, userID string, m *models.ChatMessage) error {
	query := `INSERT INTO chat_messages (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query,
		userID, m.ID, m.ChatID, string(m.Sender), m.Content,
		m.CreatedAt, m.UpdatedAt, dbx.NullTime(m.SyncedAt), m.Deleted)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, userID string, m *models.ChatMessage) error {
	query := `UPDATE chat_messages SET
			chat_id = $3,
			sender = $4,
			content = $5,
			created_at = $6,
			updated_at = $7,
			synced_at = $8,
			deleted = $9
		WHERE user_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, query,
		userID, m.ID, m.ChatID, string(m.Sender), m.Content,
		m.CreatedAt, m.UpdatedAt, dbx.NullTime(m.SyncedAt), m.Deleted)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
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

func (r *PostgresRepository) SelectChanged(ctx context.Context, userID string, since *time.Time) ([]*models.ChatMessage, error) {
	var (
		rows []owned
		err  error
	)
	if since == nil {
		rows, err = r.list(ctx, `SELECT `+columns+` FROM chat_messages WHERE user_id = $1 ORDER BY created_at, id`, userID)
	} else {
		rows, err = r.list(ctx, `SELECT `+columns+` FROM chat_messages
			WHERE user_id = $1 AND (updated_at > $2 OR synced_at > $2)
			ORDER BY created_at, id`, userID, *since)
	}
	if err != nil {
		return nil, err
	}
	result := make([]*models.ChatMessage, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.msg)
	}
	return result, nil
}

func (r *PostgresRepository) PurgeTombstones(ctx context.Context, cutoff time.Time) ([]smodels.Tombstone, error) {
	rows, err := r.list(ctx, `DELETE FROM chat_messages WHERE deleted AND synced_at < $1 RETURNING `+columns, cutoff)
	if err != nil {
		return nil, err
	}
	result := make([]smodels.Tombstone, 0, len(rows))
	for _, row := range rows {
		result = append(result, smodels.NewTombstone(row.userID, row.msg))
	}
	return result, nil
}

// owned pairs a message with the partition it was read from.
type owned struct {
	userID string
	msg    *models.ChatMessage
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]owned, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select messages: %w", err)
	}
	defer rows.Close()

	var result []owned
	for rows.Next() {
		row, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate message rows: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (owned, error) {
	var (
		row      owned
		m        models.ChatMessage
		sender   string
		syncedAt sql.NullTime
	)
	if err := s.Scan(&row.userID, &m.ID, &m.ChatID, &sender, &m.Content,
		&m.CreatedAt, &m.UpdatedAt, &syncedAt, &m.Deleted); err != nil {
		return owned{}, err
	}
	m.Sender = models.Sender(sender)
	m.CreatedAt = m.CreatedAt.UTC()
	m.UpdatedAt = m.UpdatedAt.UTC()
	m.SyncedAt = dbx.TimePtr(syncedAt)
	row.msg = &m
	return row, nil
}
