package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/papersson/code-bot/internal/common"
	"github.com/papersson/code-bot/internal/conflict"
	"github.com/papersson/code-bot/internal/logging"
	"github.com/papersson/code-bot/internal/models"
)

// store is the part of a local repository the merge step needs. Every
// client repository satisfies it for its own record type.
type store[T models.Record] interface {
	Get(ctx context.Context, id string) (T, error)
	Upsert(ctx context.Context, rec T) error
	MarkSynced(ctx context.Context, id string, updatedAt, syncedAt time.Time) (bool, error)
}

// merger applies pulled records of one table inside the pass transaction.
type merger[T models.Record] struct {
	kind      models.Kind
	store     store[T]
	snapshot  Snapshot
	completed time.Time
	log       logging.Logger
	res       *Result
	changed   []string
}

func newMerger[T models.Record](kind models.Kind, s store[T], snap Snapshot, completed time.Time, log logging.Logger, res *Result) *merger[T] {
	return &merger[T]{kind: kind, store: s, snapshot: snap, completed: completed, log: log, res: res}
}

// run applies pulled, marks the pushed records and records changed ids.
func (m *merger[T]) run(ctx context.Context, pulled []T, rejected map[string]struct{}, changed map[models.Kind][]string) error {
	if err := m.apply(ctx, pulled); err != nil {
		return err
	}
	if err := m.markPushed(ctx, rejected); err != nil {
		return err
	}
	if len(m.changed) > 0 {
		changed[m.kind] = m.changed
	}
	return nil
}

// apply writes each pulled record unless the local copy must be kept:
//
//   - absent locally: insert;
//   - pushed in this pass, or clean: take the server row;
//   - edited after the snapshot: last-write-wins against the server row.
//
// Rows already identical to the server copy are not rewritten.
func (m *merger[T]) apply(ctx context.Context, pulled []T) error {
	var null T
	for _, remote := range pulled {
		if any(remote) == any(null) {
			m.log.Warn(ctx, "skipping null server record", "kind", m.kind)
			m.res.Skipped++
			continue
		}
		rm := remote.Meta()
		if err := remote.Validate(); err != nil {
			m.log.Warn(ctx, "skipping invalid server record", "kind", m.kind, "id", rm.ID, "error", err)
			m.res.Skipped++
			continue
		}
		rm.Normalize()

		local, err := m.store.Get(ctx, rm.ID)
		switch {
		case errors.Is(err, common.ErrorNotFound):
		case err != nil:
			return err
		default:
			lm := local.Meta()
			pushed := m.snapshot.Has(m.kind, lm.ID, lm.UpdatedAt)
			if lm.Dirty() && !pushed {
				if conflict.ResolveRecords(local, remote) == conflict.Local {
					m.log.Debug(ctx, "local edit wins over server row", "kind", m.kind, "id", lm.ID)
					m.res.KeptLocal++
					continue
				}
			} else if !lm.Dirty() && models.ContentEqual(local, remote) {
				m.res.Unchanged++
				continue
			}
		}

		rm.SyncedAt = syncStamp(m.completed, rm.UpdatedAt)
		if err := m.store.Upsert(ctx, remote); err != nil {
			return fmt.Errorf("apply %s %s: %w", m.kind, rm.ID, err)
		}
		m.res.Applied++
		m.changed = append(m.changed, rm.ID)
	}
	return nil
}

// markPushed stamps syncedAt on every pushed record whose updatedAt still
// matches the snapshot. Records edited during the pass stay dirty.
func (m *merger[T]) markPushed(ctx context.Context, rejected map[string]struct{}) error {
	for id, updatedAt := range m.snapshot[m.kind] {
		if _, ok := rejected[id]; ok {
			continue
		}
		ok, err := m.store.MarkSynced(ctx, id, updatedAt, *syncStamp(m.completed, updatedAt))
		if err != nil {
			return err
		}
		if ok {
			m.res.MarkedSynced++
		}
	}
	return nil
}

// syncStamp is the syncedAt written for a confirmed record state. It never
// precedes updatedAt, so a confirmed record never reads back as dirty even
// when the server clock runs ahead of ours.
func syncStamp(completed, updatedAt time.Time) *time.Time {
	at := completed
	if updatedAt.After(at) {
		at = updatedAt
	}
	return &at
}
