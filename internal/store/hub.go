package store

import (
	"context"
	"sync"

	"organize/internal/core"
)

type subscriber struct {
	fn   func(core.Snapshot)
	last int64
}

// Hub fans committed snapshots out to subscribers. Delivery is synchronous
// and a subscriber never sees a revision older than one it already saw.
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[int]*subscriber
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Cancel stops delivery. It is safe to call more than once.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

// Add registers fn, delivers current to it and ties the subscription to ctx.
func (h *Hub) Add(ctx context.Context, current core.Snapshot, fn func(core.Snapshot)) *Subscription {
	h.mu.Lock()
	if h.subs == nil {
		h.subs = map[int]*subscriber{}
	}
	id := h.next
	h.next++
	sub := &subscriber{fn: fn, last: current.Revision}
	h.subs[id] = sub
	h.mu.Unlock()

	fn(current)

	s := &Subscription{cancel: func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}}
	context.AfterFunc(ctx, s.Cancel)
	return s
}

// Publish delivers snap to every subscriber that has not seen it yet.
func (h *Hub) Publish(snap core.Snapshot) {
	h.mu.Lock()
	var targets []func(core.Snapshot)
	for _, sub := range h.subs {
		if snap.Revision <= sub.last {
			continue
		}
		sub.last = snap.Revision
		targets = append(targets, sub.fn)
	}
	h.mu.Unlock()

	for _, fn := range targets {
		fn(snap.Clone())
	}
}

// Len reports the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
