package notify

import (
	"context"
	"sync"
)

// FakePublisher records events in memory for local runs and tests.
type FakePublisher struct {
	mu     sync.Mutex
	events []StatusChangeEvent
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) Publish(_ context.Context, ev StatusChangeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

// Events returns a copy of everything published so far.
func (f *FakePublisher) Events() []StatusChangeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]StatusChangeEvent, len(f.events))
	copy(out, f.events)
	return out
}
