// Package broadcast implements the Status Broadcaster (C6): a concurrent
// map of the latest domain.TournamentStatus per tournament, with
// subscribe/unsubscribe that delivers the current status immediately on
// subscribe and every update thereafter. Grounded on the world loop's
// ObserverJoin/ObserverSubscribe/ObserverLeave channel handshake in
// internal/transport/observer/server.go, flattened here into a plain
// mutex-guarded map since there is no single authoritative tick loop to
// rendezvous with.
package broadcast

import (
	"sync"
	"sync/atomic"

	"tourneyforge.dev/internal/domain"
)

// Broadcaster fans out TournamentStatus updates to any number of
// subscribers. The zero value is not usable; use New.
type Broadcaster struct {
	mu          sync.RWMutex
	statuses    map[string]domain.TournamentStatus
	subscribers map[string]map[uint64]chan domain.TournamentStatus
	nextID      atomic.Uint64
}

// New returns an empty Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{
		statuses:    make(map[string]domain.TournamentStatus),
		subscribers: make(map[string]map[uint64]chan domain.TournamentStatus),
	}
}

// Publish records status as the latest state for its tournament and
// delivers it to every current subscriber. A subscriber whose channel is
// full is skipped rather than blocking the publisher (no backpressure;
// subscribers see the most recent state on their next successful receive).
func (b *Broadcaster) Publish(status domain.TournamentStatus) {
	b.mu.Lock()
	b.statuses[status.ID] = status
	subs := make([]chan domain.TournamentStatus, 0, len(b.subscribers[status.ID]))
	for _, ch := range b.subscribers[status.ID] {
		subs = append(subs, ch)
	}
	b.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- status:
		default:
		}
	}
}

// Status returns the last known status for id, if any.
func (b *Broadcaster) Status(id string) (domain.TournamentStatus, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.statuses[id]
	return s, ok
}

// Subscribe registers a new subscriber for id's status stream. The
// returned channel immediately receives the current status (if one
// exists) before this call returns to the caller's next receive, and
// every subsequent Publish(id) thereafter. Call the returned cancel
// function to unsubscribe and release the channel.
func (b *Broadcaster) Subscribe(id string) (ch <-chan domain.TournamentStatus, cancel func()) {
	out := make(chan domain.TournamentStatus, 8)
	sid := b.nextID.Add(1)

	b.mu.Lock()
	if b.subscribers[id] == nil {
		b.subscribers[id] = make(map[uint64]chan domain.TournamentStatus)
	}
	b.subscribers[id][sid] = out
	current, ok := b.statuses[id]
	b.mu.Unlock()

	if ok {
		out <- current
	}

	return out, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if subs, found := b.subscribers[id]; found {
			delete(subs, sid)
			if len(subs) == 0 {
				delete(b.subscribers, id)
			}
		}
	}
}
