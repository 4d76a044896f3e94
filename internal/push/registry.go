package push

import (
	"log/slog"
	"sync"

	"github.com/pictosong/pictosong-server/internal/ws"
)

// Channel is an outbound push handle for one connected client. Deliver must
// return an error for a closed or faulted channel instead of panicking or
// blocking, so broadcasts can prune dead subscribers.
type Channel interface {
	ID() string
	Deliver(msg ws.Message) error
}

// Registry maps player identities to their push channels. One instance exists
// per room, one per match session, and one process-wide for lobby watchers.
type Registry struct {
	subscribers map[string]Channel
	mu          sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		subscribers: make(map[string]Channel),
	}
}

// Subscribe registers a channel under the given identity. Re-subscribing the
// same identity replaces the previous channel.
func (r *Registry) Subscribe(id string, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers[id] = ch
}

// Unsubscribe removes the channel for the given identity. A no-op if absent.
func (r *Registry) Unsubscribe(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subscribers, id)
}

// Get returns the channel for an identity, or nil if not subscribed.
func (r *Registry) Get(id string) Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.subscribers[id]
}

// Len returns the number of subscribers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers)
}

// Clear removes all subscribers.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.subscribers)
}

// Send delivers a message to one subscriber, pruning it on failure.
func (r *Registry) Send(id string, msg ws.Message) {
	ch := r.Get(id)
	if ch == nil {
		return
	}
	if err := ch.Deliver(msg); err != nil {
		slog.Warn("push delivery failed, pruning subscriber", "subscriber", id, "error", err)
		r.Unsubscribe(id)
	}
}

// Broadcast delivers a message to every subscriber except those in exclude.
// It iterates a point-in-time snapshot, so concurrent subscribe/unsubscribe
// calls cannot corrupt the traversal. A delivery failure prunes that one
// subscriber and never aborts delivery to the rest.
func (r *Registry) Broadcast(msg ws.Message, exclude ...string) {
	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}

	r.mu.RLock()
	snapshot := make(map[string]Channel, len(r.subscribers))
	for id, ch := range r.subscribers {
		snapshot[id] = ch
	}
	r.mu.RUnlock()

	for id, ch := range snapshot {
		if skip[id] {
			continue
		}
		if err := ch.Deliver(msg); err != nil {
			slog.Warn("push delivery failed, pruning subscriber", "subscriber", id, "error", err)
			r.Unsubscribe(id)
		}
	}
}
