package memory

import (
	"context"
	"sync"
	"time"

	"github.com/centinela-pi/centinela/internal/centinela/store"
)

// SecurityEventStore is an in-memory append-only event log.  It is intended
// for use in tests and dev environments.
type SecurityEventStore struct {
	mu     sync.Mutex
	nextID int64
	events []store.SecurityEvent
}

func NewSecurityEventStore() *SecurityEventStore {
	return &SecurityEventStore{nextID: 1}
}

func (s *SecurityEventStore) Append(_ context.Context, rec store.SecurityEventRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	ev := store.SecurityEvent{
		ID:          s.nextID,
		Type:        rec.Type,
		Description: rec.Description,
		PhotoPath:   rec.PhotoPath,
		ActorID:     rec.ActorID,
		CreatedAt:   rec.CreatedAt,
	}
	s.nextID++
	s.events = append(s.events, ev)
	return ev.ID, nil
}

func (s *SecurityEventStore) Recent(_ context.Context, limit int) ([]store.SecurityEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.events) {
		limit = len(s.events)
	}
	out := make([]store.SecurityEvent, 0, limit)
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.events[i])
	}
	return out, nil
}

// Events returns a copy of all recorded events in append order.  Test-only
// helper.
func (s *SecurityEventStore) Events() []store.SecurityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.SecurityEvent, len(s.events))
	copy(out, s.events)
	return out
}
