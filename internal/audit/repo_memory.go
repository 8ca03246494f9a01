package audit

import (
	"context"
	"slices"
	"sync"
)

// MemoryRepo keeps events in process. Tests use it to assert what was recorded.
type MemoryRepo struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(_ context.Context, e Event) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	return nil
}

// Events returns every recorded event in append order.
func (r *MemoryRepo) Events() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.events)
}

// About returns the events of type t whose target is targetID.
func (r *MemoryRepo) About(t EventType, targetID string) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Event
	for _, e := range r.events {
		if e.Type == t && e.TargetID == targetID {
			out = append(out, e)
		}
	}
	return out
}
