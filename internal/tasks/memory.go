package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/haasonsaas/taskpilot/internal/storage"
	"github.com/haasonsaas/taskpilot/pkg/models"
)

// MemoryStore is an in-process Store for tests and ephemeral runs.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]*models.Task
	clock func() time.Time
}

// NewMemoryStore creates an empty in-memory task store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:  make(map[string]*models.Task),
		clock: time.Now,
	}
}

// SetClock overrides the time source (for testing).
func (s *MemoryStore) SetClock(clock func() time.Time) {
	s.clock = clock
}

func (s *MemoryStore) Create(ctx context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if _, exists := s.byID[task.ID]; exists {
		return storage.ErrAlreadyExists
	}

	now := s.clock()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if task.RecurrencePattern == "" {
		task.RecurrencePattern = models.RecurrenceNone
	}
	task.Tags = NormalizeTags(task.Tags)

	s.byID[task.ID] = cloneTask(task)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, ownerID, id string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.byID[id]
	if !ok || task.OwnerID != ownerID {
		return nil, storage.ErrNotFound
	}
	return cloneTask(task), nil
}

func (s *MemoryStore) List(ctx context.Context, ownerID string, filter models.TaskFilter) ([]*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.clock()
	out := make([]*models.Task, 0)
	for _, task := range s.byID {
		if task.OwnerID != ownerID {
			continue
		}
		if !matchesFilter(task, filter, now) {
			continue
		}
		out = append(out, cloneTask(task))
	}
	sortTasks(out)
	return out, nil
}

func (s *MemoryStore) Update(ctx context.Context, ownerID, id string, patch models.TaskPatch) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.byID[id]
	if !ok || task.OwnerID != ownerID {
		return nil, storage.ErrNotFound
	}

	updated := cloneTask(task)
	applyPatch(updated, patch, s.clock())
	s.byID[id] = updated
	return cloneTask(updated), nil
}

func (s *MemoryStore) Delete(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.byID[id]
	if !ok || task.OwnerID != ownerID {
		return storage.ErrNotFound
	}
	delete(s.byID, id)

	// Orphan successors rather than cascading.
	for _, other := range s.byID {
		if other.ParentTaskID == id {
			other.ParentTaskID = ""
		}
	}
	return nil
}

func (s *MemoryStore) DueReminders(ctx context.Context, now time.Time, limit int) ([]*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Task, 0)
	for _, task := range s.byID {
		if task.ReminderAt == nil || task.ReminderSent || task.Completed {
			continue
		}
		if task.ReminderAt.After(now) {
			continue
		}
		out = append(out, cloneTask(task))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) MarkReminderSent(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.byID[id]
	if !ok || task.OwnerID != ownerID {
		return storage.ErrNotFound
	}
	task.ReminderSent = true
	task.UpdatedAt = s.clock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func cloneTask(t *models.Task) *models.Task {
	clone := *t
	clone.Tags = append([]string(nil), t.Tags...)
	if t.DueAt != nil {
		due := *t.DueAt
		clone.DueAt = &due
	}
	if t.RecurrenceEndAt != nil {
		end := *t.RecurrenceEndAt
		clone.RecurrenceEndAt = &end
	}
	if t.ReminderAt != nil {
		rem := *t.ReminderAt
		clone.ReminderAt = &rem
	}
	return &clone
}
