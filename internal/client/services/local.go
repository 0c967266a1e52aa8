package services

import (
	"context"
	"database/sql"

	"github.com/papersson/code-bot/internal/client/repositories/repomanager"
	"github.com/papersson/code-bot/internal/dbx"
)

// ClearLocalData wipes every replicated table and the sync metadata, as on
// sign-out. The next pass starts from an empty watermark and pulls everything.
func ClearLocalData(ctx context.Context, db *sql.DB, repos repomanager.RepositoryManager) error {
	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		clears := []func(context.Context) error{
			repos.Messages(tx).Clear,
			repos.Chats(tx).Clear,
			repos.Descriptions(tx).Clear,
			repos.Projects(tx).Clear,
			repos.Metadata(tx).Clear,
		}
		for _, fn := range clears {
			if err := fn(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}
