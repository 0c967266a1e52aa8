// Package events is an in-process publish/subscribe bus that tells UI-facing
// code which record sets changed, locally or through a sync pass.
package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type Topic string

const (
	ChatCreated     Topic = "chat-created"
	ChatUpdated     Topic = "chat-updated"
	ChatDeleted     Topic = "chat-deleted"
	MessagesChanged Topic = "messages-changed"
	ProjectsChanged Topic = "projects-changed"
	SyncCompleted   Topic = "sync-completed"
	SyncFailed      Topic = "sync-failed"
)

// Event is one notification. IDs lists the affected records when known.
type Event struct {
	Topic Topic
	IDs   []string
	At    time.Time
	Err   error
}

type Bus interface {
	Publish(ctx context.Context, ev Event)
	// Subscribe returns a channel receiving events of the given topics, or of
	// every topic when none is given. cancel unsubscribes and closes the channel.
	Subscribe(buffer int, topics ...Topic) (ch <-chan Event, cancel func())
}

type subscription struct {
	ch     chan Event
	topics map[Topic]struct{}
}

// MemoryBus delivers events to subscribers without blocking the publisher:
// a subscriber whose buffer is full misses the event.
type MemoryBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]*subscription
	drops  atomic.Int64
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[int]*subscription)}
}

func (b *MemoryBus) Publish(_ context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		if len(s.topics) > 0 {
			if _, ok := s.topics[ev.Topic]; !ok {
				continue
			}
		}
		select {
		case s.ch <- ev:
		default:
			b.drops.Add(1)
		}
	}
}

func (b *MemoryBus) Subscribe(buffer int, topics ...Topic) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	s := &subscription{ch: make(chan Event, buffer), topics: make(map[Topic]struct{}, len(topics))}
	for _, t := range topics {
		s.topics[t] = struct{}{}
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = s
	b.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(s.ch)
		})
	}
}

// Dropped returns how many deliveries were skipped because of full buffers.
func (b *MemoryBus) Dropped() int64 {
	return b.drops.Load()
}
