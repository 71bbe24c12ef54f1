package events

import (
	"strings"
	"sync"

	"rapidproto/internal/pipeline"
)

// Broker fans pipeline events out to the subscribers of a workspace. Slow
// subscribers lose their oldest buffered event rather than block the runner.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[*subscription]struct{}
}

type subscription struct {
	ch     chan pipeline.Event
	closed bool
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[*subscription]struct{})}
}

// Subscribe registers a buffered channel for workspaceID. The returned cancel
// func unregisters and closes it; calling it twice is safe.
func (b *Broker) Subscribe(workspaceID string, size int) (<-chan pipeline.Event, func()) {
	if size <= 0 {
		size = 1
	}
	id := strings.TrimSpace(workspaceID)
	sub := &subscription{ch: make(chan pipeline.Event, size)}
	b.mu.Lock()
	set, ok := b.subs[id]
	if !ok {
		set = make(map[*subscription]struct{})
		b.subs[id] = set
	}
	set[sub] = struct{}{}
	b.mu.Unlock()

	return sub.ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.remove(id, sub)
	}
}

func (b *Broker) remove(id string, sub *subscription) {
	if set, ok := b.subs[id]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(b.subs, id)
		}
	}
	if !sub.closed {
		sub.closed = true
		close(sub.ch)
	}
}

// Publish delivers ev to every current subscriber of workspaceID.
func (b *Broker) Publish(workspaceID string, ev pipeline.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs[strings.TrimSpace(workspaceID)] {
		push(sub.ch, ev)
	}
}

// Emitter binds the broker to one workspace for use as a runner emitter.
func (b *Broker) Emitter(workspaceID string) pipeline.Emitter {
	return pipeline.EmitterFunc(func(ev pipeline.Event) { b.Publish(workspaceID, ev) })
}

// Close drops every subscriber of workspaceID, closing their channels.
func (b *Broker) Close(workspaceID string) {
	id := strings.TrimSpace(workspaceID)
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs[id] {
		b.remove(id, sub)
	}
}

func (b *Broker) Subscribers(workspaceID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[strings.TrimSpace(workspaceID)])
}

func push(ch chan pipeline.Event, ev pipeline.Event) {
	select {
	case ch <- ev:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- ev:
	default:
	}
}
