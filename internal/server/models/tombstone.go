// Package models defines server-side data models that have no client
// counterpart.
package models

import (
	"time"

	"github.com/papersson/code-bot/internal/models"
)

// Tombstone is a deleted record removed by the reaper. UserID is the
// partition the row belonged to; Record carries the last replicated state.
type Tombstone struct {
	UserID string        `json:"userId"`
	Kind   models.Kind   `json:"kind"`
	Record models.Record `json:"record"`
}

// NewTombstone wraps rec as removed from userID's partition.
func NewTombstone(userID string, rec models.Record) Tombstone {
	return Tombstone{UserID: userID, Kind: rec.Kind(), Record: rec}
}

// Archive is one batch of reaped tombstones, written as a single object.
type Archive struct {
	ReapedAt   time.Time   `json:"reapedAt"`
	Cutoff     time.Time   `json:"cutoff"`
	Tombstones []Tombstone `json:"tombstones"`
}
