package sink

import (
	"chat-session/domain/event"
	"context"
	"slices"
	"sync"
)

// Recorder keeps every session event in memory, in delivery order.
type Recorder struct {
	mu      sync.Mutex
	events  []event.SessionEvent
	changed chan struct{}
}

func NewRecorder() *Recorder {
	return &Recorder{changed: make(chan struct{})}
}

func (r *Recorder) Consume(_ context.Context, e event.SessionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	close(r.changed)
	r.changed = make(chan struct{})
	return nil
}

func (r *Recorder) Events() []event.SessionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.events))
	for _, e := range r.events {
		names = append(names, e.Name())
	}
	return names
}

// WaitFor blocks until an event with the given name was recorded or ctx ends.
func (r *Recorder) WaitFor(ctx context.Context, name string) (event.SessionEvent, error) {
	for {
		r.mu.Lock()
		for _, e := range r.events {
			if e.Name() == name {
				r.mu.Unlock()
				return e, nil
			}
		}
		changed := r.changed
		r.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
