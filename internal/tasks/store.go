// Package tasks implements the owner-scoped task store gateway. Three
// backends share one contract: Postgres (lib/pq) for multi-node deploys,
// SQLite (modernc.org/sqlite) for single-node, and an in-process store for
// tests and ephemeral runs.
package tasks

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/haasonsaas/taskpilot/pkg/models"
)

// Tag limits applied on create and update.
const (
	MaxTags      = 10
	MaxTagLength = 30
)

// Store is the task store gateway contract. Every method is scoped to an
// owner id; operations on tasks owned by someone else behave exactly like
// operations on missing tasks (storage.ErrNotFound).
type Store interface {
	// Create persists a new task, assigning id and timestamps when unset.
	Create(ctx context.Context, task *models.Task) error

	// Get returns a single task by id.
	Get(ctx context.Context, ownerID, id string) (*models.Task, error)

	// List returns the owner's tasks matching the filter, ordered pending
	// first, then soonest due date (tasks without one last), then newest.
	List(ctx context.Context, ownerID string, filter models.TaskFilter) ([]*models.Task, error)

	// Update applies a partial update and returns the updated task.
	Update(ctx context.Context, ownerID, id string, patch models.TaskPatch) (*models.Task, error)

	// Delete removes a task. Recurrence successors referencing it via
	// parent_task_id are orphaned (back-reference cleared), never deleted.
	Delete(ctx context.Context, ownerID, id string) error

	// DueReminders returns pending tasks across all owners whose reminder
	// time has passed and has not been sent yet.
	DueReminders(ctx context.Context, now time.Time, limit int) ([]*models.Task, error)

	// MarkReminderSent records that a reminder was delivered.
	MarkReminderSent(ctx context.Context, ownerID, id string) error

	Close() error
}

// NormalizeTags trims, de-empties, and caps the tag list.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if len(tag) > MaxTagLength {
			tag = tag[:MaxTagLength]
		}
		out = append(out, tag)
		if len(out) == MaxTags {
			break
		}
	}
	return out
}

// matchesFilter applies the filter constraints that are evaluated in-process
// for all backends: tags (any match), overdue, and text search. Status,
// priority, and due-range constraints are pushed into SQL where possible and
// re-checked here so every backend enforces the full filter.
func matchesFilter(t *models.Task, f models.TaskFilter, now time.Time) bool {
	switch f.Status {
	case "pending":
		if t.Completed {
			return false
		}
	case "completed":
		if !t.Completed {
			return false
		}
	}

	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.DueBefore != nil && (t.DueAt == nil || t.DueAt.After(*f.DueBefore)) {
		return false
	}
	if f.DueAfter != nil && (t.DueAt == nil || t.DueAt.Before(*f.DueAfter)) {
		return false
	}
	if f.OverdueOnly && !t.Overdue(now) {
		return false
	}

	if len(f.Tags) > 0 {
		found := false
		for _, want := range f.Tags {
			for _, have := range t.Tags {
				if strings.EqualFold(want, have) {
					found = true
					break
				}
			}
			if found {
				break
			}
		}
		if !found {
			return false
		}
	}

	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Title), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			return false
		}
	}

	return true
}

// sortTasks orders tasks pending first, then by due date ascending with
// missing due dates last, then by creation time descending.
func sortTasks(tasks []*models.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.Completed != b.Completed {
			return !a.Completed
		}
		switch {
		case a.DueAt == nil && b.DueAt == nil:
		case a.DueAt == nil:
			return false
		case b.DueAt == nil:
			return true
		case !a.DueAt.Equal(*b.DueAt):
			return a.DueAt.Before(*b.DueAt)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

// applyPatch mutates a copy of the task according to the patch and bumps
// UpdatedAt. Shared across backends so update semantics never drift.
func applyPatch(t *models.Task, patch models.TaskPatch, now time.Time) {
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Completed != nil {
		t.Completed = *patch.Completed
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.Tags != nil {
		t.Tags = NormalizeTags(*patch.Tags)
	}
	if patch.DueAt != nil {
		t.DueAt = *patch.DueAt
	}
	if patch.RecurrencePattern != nil {
		t.RecurrencePattern = *patch.RecurrencePattern
	}
	if patch.RecurrenceEndAt != nil {
		t.RecurrenceEndAt = *patch.RecurrenceEndAt
	}
	if patch.ParentTaskID != nil {
		t.ParentTaskID = *patch.ParentTaskID
	}
	if patch.ReminderAt != nil {
		t.ReminderAt = *patch.ReminderAt
		t.ReminderSent = false
	}
	if patch.ReminderSent != nil {
		t.ReminderSent = *patch.ReminderSent
	}
	t.UpdatedAt = now
}
