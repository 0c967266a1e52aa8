// Package models declares the record types replicated between the local
// store and the server, together with the sync envelope they share.
package models

import (
	"time"

	"github.com/papersson/code-bot/internal/timex"
)

// Kind names a replicated table.
type Kind string

const (
	KindProject            Kind = "project"
	KindProjectDescription Kind = "projectDescription"
	KindChat               Kind = "chat"
	KindChatMessage        Kind = "chatMessage"
)

// Kinds lists every replicated table, parents before dependents.
var Kinds = []Kind{KindProject, KindProjectDescription, KindChat, KindChatMessage}

// Envelope is the sync metadata carried by every record.
//
// A zero UpdatedAt means the writer never stamped the record; it loses every
// last-write-wins comparison. SyncedAt is nil until a sync pass confirms the
// record.
type Envelope struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	SyncedAt  *time.Time `json:"syncedAt,omitempty"`
	Deleted   bool       `json:"deleted"`
}

// Meta gives generic code access to the envelope of any record.
func (e *Envelope) Meta() *Envelope { return e }

// Dirty reports whether the record still has to be pushed.
func (e *Envelope) Dirty() bool {
	return e.SyncedAt == nil || e.UpdatedAt.After(*e.SyncedAt)
}

// Touch stamps a local mutation. The new UpdatedAt is now unless that would
// not move past the previous UpdatedAt or SyncedAt, in which case it is one
// millisecond after the later of the two. This keeps UpdatedAt monotonic and
// keeps a fresh edit dirty even when the local clock lags the server.
func (e *Envelope) Touch(now time.Time) {
	now = timex.Trunc(now)
	floor := e.UpdatedAt
	if e.SyncedAt != nil && e.SyncedAt.After(floor) {
		floor = *e.SyncedAt
	}
	if !now.After(floor) {
		now = floor.Add(time.Millisecond)
	}
	e.UpdatedAt = now
}

// Normalize truncates all timestamps to millisecond precision.
func (e *Envelope) Normalize() {
	if !e.CreatedAt.IsZero() {
		e.CreatedAt = timex.Trunc(e.CreatedAt)
	}
	if !e.UpdatedAt.IsZero() {
		e.UpdatedAt = timex.Trunc(e.UpdatedAt)
	}
	if e.SyncedAt != nil {
		e.SyncedAt = timex.Ptr(*e.SyncedAt)
	}
}

// Record is implemented by every replicated entity.
type Record interface {
	Meta() *Envelope
	Kind() Kind
	Validate() error
}
