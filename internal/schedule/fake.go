package schedule

import (
	"context"
	"sync"
	"time"
)

// FakeEntry is one registered timeout in the in-memory registry.
type FakeEntry struct {
	RuleName string
	TargetID string
	FireAt   time.Time
	Payload  TargetPayload
}

// FakeRegistry keeps timeout entries in memory. It mirrors the scheduler's
// same-key semantics: last write wins per charger, deletes of missing entries
// succeed.
type FakeRegistry struct {
	mu      sync.Mutex
	entries map[string]FakeEntry
}

func NewFakeRegistry() *FakeRegistry {
	return &FakeRegistry{entries: make(map[string]FakeEntry)}
}

func (f *FakeRegistry) Register(_ context.Context, req RegisterRequest) (Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	outcome := OutcomeCreated
	if _, ok := f.entries[req.ChargerID]; ok {
		outcome = OutcomeReplaced
	}
	f.entries[req.ChargerID] = FakeEntry{
		RuleName: RuleName(req.ChargerID),
		TargetID: TargetID(req.ChargerID),
		FireAt:   req.FireAt,
		Payload:  req.Payload,
	}
	return outcome, nil
}

func (f *FakeRegistry) Deregister(_ context.Context, chargerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, chargerID)
	return nil
}

// Entry returns the active entry for a charger, if any.
func (f *FakeRegistry) Entry(chargerID string) (FakeEntry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[chargerID]
	return e, ok
}

// Len returns the number of active entries.
func (f *FakeRegistry) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}
