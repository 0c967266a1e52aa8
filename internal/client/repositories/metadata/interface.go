// Package metadata keeps the sync state of the local store, such as the
// watermark of the last successful pass.
package metadata

import (
	"context"
	"time"
)

type Repository interface {
	// GetTime returns nil when the key was never written.
	GetTime(ctx context.Context, key string) (*time.Time, error)
	SetTime(ctx context.Context, key string, t time.Time) error

	// Clear forgets every key, so the next pass starts from scratch.
	Clear(ctx context.Context) error
}
