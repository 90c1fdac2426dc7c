// Package hub fans history events out to subscribers.
// It is transport-agnostic: the JSON-lines and gRPC servers subscribe, receive
// events via a channel and forward them to their clients.
package hub

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"go.klb.dev/clipd/internal/history"
)

// DefaultBuffer is the queue length used when Subscribe is given none.
const DefaultBuffer = 32

// Kind identifies what changed in the history.
type Kind string

const (
	// NewItem announces an inserted entry. The insert may also have replaced
	// an entry with the same preview or evicted the oldest one.
	NewItem        Kind = "NEW_ITEM"
	ItemDeleted    Kind = "ITEM_DELETED"
	ItemPinned     Kind = "ITEM_PINNED"
	HistoryCleared Kind = "HISTORY_CLEARED"
)

// Event is a history change delivered to a subscriber.
type Event struct {
	Kind   Kind             `json:"kind"`
	ID     uint64           `json:"id,omitempty"`
	Pinned bool             `json:"pinned,omitempty"`
	Entry  *history.Preview `json:"entry,omitempty"`
}

// Hub routes events from the engine to all registered subscribers.
type Hub struct {
	mu   sync.RWMutex
	subs map[uint64]*Subscription
	next uint64
}

// New returns an empty Hub.
func New() *Hub {
	return &Hub{subs: make(map[uint64]*Subscription)}
}

// Subscription is one registered listener.
type Subscription struct {
	h       *Hub
	id      uint64
	name    string
	ch      chan Event
	once    sync.Once
	dropped atomic.Uint64
}

// Subscribe registers a listener with a queue of buffer events.
func (h *Hub) Subscribe(name string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	h.mu.Lock()
	h.next++
	s := &Subscription{h: h, id: h.next, name: name, ch: make(chan Event, buffer)}
	h.subs[s.id] = s
	total := len(h.subs)
	h.mu.Unlock()

	slog.Debug("subscriber registered", "subscriber", name, "total", total)
	return s
}

// Events returns the queue. It is closed by Close.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Dropped reports how many events did not fit in the queue.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// Close unregisters the subscription and closes its queue. It is safe to call
// more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.h.mu.Lock()
		delete(s.h.subs, s.id)
		total := len(s.h.subs)
		close(s.ch)
		s.h.mu.Unlock()

		slog.Debug("subscriber unregistered",
			"subscriber", s.name,
			"dropped", s.dropped.Load(),
			"total", total,
		)
	})
}

// Publish delivers ev to every subscriber without blocking. A subscriber whose
// queue is full misses the event.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for _, s := range h.subs {
		select {
		case s.ch <- ev:
			delivered++
		default:
			if s.dropped.Add(1) == 1 {
				slog.Warn("subscriber is not keeping up, dropping events", "subscriber", s.name)
			}
		}
	}
	logEvent(ev, delivered)
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
