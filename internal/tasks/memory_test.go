package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/haasonsaas/taskpilot/internal/storage"
	"github.com/haasonsaas/taskpilot/pkg/models"
)

var memNow = time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)

func newTestStore() *MemoryStore {
	s := NewMemoryStore()
	s.SetClock(func() time.Time { return memNow })
	return s
}

func mustCreate(t *testing.T, s *MemoryStore, task *models.Task) *models.Task {
	t.Helper()
	if task.OwnerID == "" {
		task.OwnerID = "owner"
	}
	if err := s.Create(context.Background(), task); err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	return task
}

func TestMemoryStore_CreateGet(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns id and defaults", func(t *testing.T) {
		s := newTestStore()
		task := mustCreate(t, s, &models.Task{Title: "Buy milk"})

		if task.ID == "" {
			t.Fatal("expected assigned id")
		}
		stored, err := s.Get(ctx, "owner", task.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stored.Priority != models.PriorityMedium || stored.RecurrencePattern != models.RecurrenceNone {
			t.Errorf("expected defaults, got %+v", stored)
		}
		if !stored.CreatedAt.Equal(memNow) || !stored.UpdatedAt.Equal(memNow) {
			t.Errorf("expected clock timestamps, got %v/%v", stored.CreatedAt, stored.UpdatedAt)
		}
	})

	t.Run("rejects id collisions", func(t *testing.T) {
		s := newTestStore()
		mustCreate(t, s, &models.Task{ID: "t1", Title: "a"})
		err := s.Create(ctx, &models.Task{ID: "t1", OwnerID: "owner", Title: "b"})
		if !errors.Is(err, storage.ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("cross-owner get is indistinguishable from missing", func(t *testing.T) {
		s := newTestStore()
		task := mustCreate(t, s, &models.Task{Title: "secret"})

		_, missErr := s.Get(ctx, "owner", "no-such-id")
		_, crossErr := s.Get(ctx, "mallory", task.ID)
		if !errors.Is(missErr, storage.ErrNotFound) || !errors.Is(crossErr, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound twice, got %v and %v", missErr, crossErr)
		}
	})

	t.Run("stored task does not alias caller memory", func(t *testing.T) {
		s := newTestStore()
		task := mustCreate(t, s, &models.Task{Title: "orig", Tags: []string{"a"}})
		task.Title = "mutated"
		task.Tags[0] = "mutated"

		stored, _ := s.Get(ctx, "owner", task.ID)
		if stored.Title != "orig" || stored.Tags[0] != "a" {
			t.Errorf("store leaked caller memory: %+v", stored)
		}
	})
}

func TestMemoryStore_ListOrdering(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	soon := memNow.Add(1 * time.Hour)
	later := memNow.Add(48 * time.Hour)

	noDue := mustCreate(t, s, &models.Task{Title: "no due"})
	dueSoon := mustCreate(t, s, &models.Task{Title: "due soon", DueAt: &soon})
	dueLater := mustCreate(t, s, &models.Task{Title: "due later", DueAt: &later})
	completedTask := mustCreate(t, s, &models.Task{Title: "done", DueAt: &soon})
	done := true
	if _, err := s.Update(ctx, "owner", completedTask.ID, models.TaskPatch{Completed: &done}); err != nil {
		t.Fatalf("failed to complete: %v", err)
	}

	got, err := s.List(ctx, "owner", models.TaskFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 tasks, got %d", len(got))
	}
	wantOrder := []string{dueSoon.ID, dueLater.ID, noDue.ID, completedTask.ID}
	for i, want := range wantOrder {
		if got[i].ID != want {
			t.Fatalf("position %d: expected %q, got %q (%s)", i, want, got[i].ID, got[i].Title)
		}
	}
}

func TestMemoryStore_ListFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	past := memNow.Add(-2 * time.Hour)
	future := memNow.Add(2 * time.Hour)
	mustCreate(t, s, &models.Task{Title: "Report draft", Priority: models.PriorityHigh, DueAt: &past, Tags: []string{"work"}})
	mustCreate(t, s, &models.Task{Title: "Buy milk", Priority: models.PriorityLow, DueAt: &future, Tags: []string{"errand"}})
	doneTask := mustCreate(t, s, &models.Task{Title: "Old chore", Description: "cleanup the garage"})
	done := true
	if _, err := s.Update(ctx, "owner", doneTask.ID, models.TaskPatch{Completed: &done}); err != nil {
		t.Fatalf("failed to complete: %v", err)
	}

	cases := []struct {
		name   string
		filter models.TaskFilter
		want   int
	}{
		{"status pending", models.TaskFilter{Status: "pending"}, 2},
		{"status completed", models.TaskFilter{Status: "completed"}, 1},
		{"priority high", models.TaskFilter{Priority: models.PriorityHigh}, 1},
		{"any matching tag", models.TaskFilter{Tags: []string{"errand", "unused"}}, 1},
		{"overdue only", models.TaskFilter{OverdueOnly: true}, 1},
		{"due before now", models.TaskFilter{DueBefore: &memNow}, 1},
		{"due after now", models.TaskFilter{DueAfter: &memNow}, 1},
		{"search in title", models.TaskFilter{Search: "MILK"}, 1},
		{"search in description", models.TaskFilter{Search: "garage"}, 1},
		{"no match", models.TaskFilter{Search: "nothing here"}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.List(ctx, "owner", tc.filter)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tc.want {
				t.Errorf("expected %d tasks, got %d", tc.want, len(got))
			}
		})
	}
}

func TestMemoryStore_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("applies partial patch", func(t *testing.T) {
		s := newTestStore()
		task := mustCreate(t, s, &models.Task{Title: "old", Priority: models.PriorityLow})

		title := "new"
		high := models.PriorityHigh
		updated, err := s.Update(ctx, "owner", task.ID, models.TaskPatch{Title: &title, Priority: &high})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated.Title != "new" || updated.Priority != models.PriorityHigh {
			t.Errorf("patch not applied: %+v", updated)
		}
	})

	t.Run("clears due date through nil-valued pointer", func(t *testing.T) {
		s := newTestStore()
		due := memNow.Add(time.Hour)
		task := mustCreate(t, s, &models.Task{Title: "x", DueAt: &due})

		var cleared *time.Time
		updated, err := s.Update(ctx, "owner", task.ID, models.TaskPatch{DueAt: &cleared})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated.DueAt != nil {
			t.Errorf("expected cleared due date, got %v", updated.DueAt)
		}
	})

	t.Run("cross-owner update fails closed", func(t *testing.T) {
		s := newTestStore()
		task := mustCreate(t, s, &models.Task{Title: "x"})
		title := "stolen"
		if _, err := s.Update(ctx, "mallory", task.ID, models.TaskPatch{Title: &title}); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestMemoryStore_DeleteOrphansSuccessors(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	parent := mustCreate(t, s, &models.Task{Title: "parent"})
	child := mustCreate(t, s, &models.Task{Title: "child", ParentTaskID: parent.ID})

	if err := s.Delete(ctx, "owner", parent.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, err := s.Get(ctx, "owner", child.ID)
	if err != nil {
		t.Fatalf("successor must survive parent deletion: %v", err)
	}
	if stored.ParentTaskID != "" {
		t.Errorf("expected cleared back-reference, got %q", stored.ParentTaskID)
	}
}

func TestMemoryStore_Reminders(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	duePast := memNow.Add(-10 * time.Minute)
	dueFuture := memNow.Add(10 * time.Minute)

	due := mustCreate(t, s, &models.Task{Title: "due", ReminderAt: &duePast})
	mustCreate(t, s, &models.Task{Title: "not yet", ReminderAt: &dueFuture})
	completedTask := mustCreate(t, s, &models.Task{Title: "done", ReminderAt: &duePast})
	done := true
	if _, err := s.Update(ctx, "owner", completedTask.ID, models.TaskPatch{Completed: &done}); err != nil {
		t.Fatalf("failed to complete: %v", err)
	}

	got, err := s.DueReminders(ctx, memNow, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != due.ID {
		t.Fatalf("expected only the pending past reminder, got %d", len(got))
	}

	if err := s.MarkReminderSent(ctx, "owner", due.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ = s.DueReminders(ctx, memNow, 100)
	if len(got) != 0 {
		t.Errorf("sent reminder must not fire again, got %d", len(got))
	}
}
