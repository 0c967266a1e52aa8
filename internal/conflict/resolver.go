// Package conflict implements last-write-wins resolution between a local and
// a remote copy of the same record.
package conflict

import (
	"time"

	"github.com/papersson/code-bot/internal/models"
)

// Side names the copy that wins a comparison.
type Side string

const (
	Local  Side = "local"
	Remote Side = "remote"
)

// Resolve compares two updatedAt stamps. The strictly later stamp wins and
// ties go to the remote copy so every replica converges on one value. A zero
// stamp is earliest possible, so it loses to any real stamp.
func Resolve(local, remote time.Time) Side {
	if local.After(remote) {
		return Local
	}
	return Remote
}

// ResolveRecords applies Resolve to the envelopes of two records.
func ResolveRecords(local, remote models.Record) Side {
	return Resolve(local.Meta().UpdatedAt, remote.Meta().UpdatedAt)
}
