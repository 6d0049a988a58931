package memory

import (
	"context"
	"sync"
	"time"

	"github.com/centinela-pi/centinela/internal/centinela/store"
)

// TaskStore is an in-memory scheduled task table for tests and dev
// environments.
type TaskStore struct {
	mu     sync.RWMutex
	nextID int64
	tasks  map[int64]store.ScheduledTask
}

func NewTaskStore() *TaskStore {
	return &TaskStore{nextID: 1, tasks: make(map[int64]store.ScheduledTask)}
}

func (s *TaskStore) Create(_ context.Context, t store.ScheduledTask) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.ID = s.nextID
	s.nextID++
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.Frequency == "" {
		t.Frequency = store.FrequencyDaily
	}
	t.Active = true
	s.tasks[t.ID] = t
	return t.ID, nil
}

func (s *TaskStore) Get(_ context.Context, id int64) (store.ScheduledTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return store.ScheduledTask{}, store.ErrTaskNotFound
	}
	return t, nil
}

func (s *TaskStore) ListActive(_ context.Context) ([]store.ScheduledTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.ScheduledTask
	for _, t := range s.tasks {
		if t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *TaskStore) Deactivate(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok || !t.Active {
		return store.ErrTaskNotFound
	}
	t.Active = false
	s.tasks[id] = t
	return nil
}

func (s *TaskStore) MarkFired(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	at = at.UTC()
	t.LastFiredAt = &at
	s.tasks[id] = t
	return nil
}
