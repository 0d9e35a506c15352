package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/haasonsaas/taskpilot/internal/agent"
	"github.com/haasonsaas/taskpilot/internal/storage"
	"github.com/haasonsaas/taskpilot/internal/tasks"
	"github.com/haasonsaas/taskpilot/pkg/models"
)

var testNow = time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal args: %v", err)
	}
	return data
}

func seedTask(t *testing.T, store tasks.Store, task *models.Task) *models.Task {
	t.Helper()
	if task.OwnerID == "" {
		task.OwnerID = "owner"
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if task.RecurrencePattern == "" {
		task.RecurrencePattern = models.RecurrenceNone
	}
	if err := store.Create(context.Background(), task); err != nil {
		t.Fatalf("failed to seed task: %v", err)
	}
	return task
}

func TestAddTask(t *testing.T) {
	ctx := context.Background()

	t.Run("creates task with defaults", func(t *testing.T) {
		store := tasks.NewMemoryStore()
		tool := &AddTask{store: store, clock: fixedClock}

		out, err := tool.Execute(ctx, "owner", raw(t, map[string]any{"title": "  Buy milk  "}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		res := out.(*addTaskResult)
		if res.Title != "Buy milk" || res.Status != "created" {
			t.Errorf("unexpected result: %+v", res)
		}
		if res.Priority != "medium" || res.RecurrencePattern != "none" {
			t.Errorf("expected defaults, got %+v", res)
		}

		stored, err := store.Get(ctx, "owner", res.TaskID)
		if err != nil {
			t.Fatalf("created task not found: %v", err)
		}
		if stored.Completed {
			t.Error("new task must start pending")
		}
		if err := tool.Verify(ctx, "owner", nil, out); err != nil {
			t.Errorf("verify failed: %v", err)
		}
	})

	t.Run("requires a title", func(t *testing.T) {
		tool := &AddTask{store: tasks.NewMemoryStore(), clock: fixedClock}
		_, err := tool.Execute(ctx, "owner", raw(t, map[string]any{"title": "   "}))
		if !agent.IsValidationError(err) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("invalid priority falls back to medium", func(t *testing.T) {
		tool := &AddTask{store: tasks.NewMemoryStore(), clock: fixedClock}
		out, err := tool.Execute(ctx, "owner", raw(t, map[string]any{"title": "x", "priority": "urgent!!"}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.(*addTaskResult).Priority != "medium" {
			t.Errorf("expected medium, got %q", out.(*addTaskResult).Priority)
		}
	})

	t.Run("unparseable due date is dropped", func(t *testing.T) {
		tool := &AddTask{store: tasks.NewMemoryStore(), clock: fixedClock}
		out, err := tool.Execute(ctx, "owner", raw(t, map[string]any{"title": "x", "due_date": "next Tuesday-ish"}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.(*addTaskResult).DueAt != nil {
			t.Errorf("expected no due date, got %v", out.(*addTaskResult).DueAt)
		}
	})

	t.Run("normalizes tags", func(t *testing.T) {
		tool := &AddTask{store: tasks.NewMemoryStore(), clock: fixedClock}
		tags := []string{" work ", "", strings.Repeat("x", 40)}
		out, err := tool.Execute(ctx, "owner", raw(t, map[string]any{"title": "x", "tags": tags}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := out.(*addTaskResult).Tags
		if len(got) != 2 || got[0] != "work" || len(got[1]) != 30 {
			t.Errorf("unexpected tags: %v", got)
		}
	})

	t.Run("recurrence end only applies to recurring tasks", func(t *testing.T) {
		store := tasks.NewMemoryStore()
		tool := &AddTask{store: store, clock: fixedClock}
		out, err := tool.Execute(ctx, "owner", raw(t, map[string]any{
			"title":               "x",
			"recurrence_end_date": "2026-12-31",
		}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		stored, _ := store.Get(ctx, "owner", out.(*addTaskResult).TaskID)
		if stored.RecurrenceEndAt != nil {
			t.Error("non-recurring task must not carry a recurrence end")
		}
	})
}

func TestListTasks(t *testing.T) {
	ctx := context.Background()
	store := tasks.NewMemoryStore()
	tool := &ListTasks{store: store, clock: fixedClock}

	due := testNow.Add(-24 * time.Hour)
	seedTask(t, store, &models.Task{Title: "Overdue report", Priority: models.PriorityHigh, DueAt: &due})
	seedTask(t, store, &models.Task{Title: "Buy milk", Tags: []string{"errand"}})
	done := seedTask(t, store, &models.Task{Title: "Old chore"})
	completed := true
	if _, err := store.Update(ctx, "owner", done.ID, models.TaskPatch{Completed: &completed}); err != nil {
		t.Fatalf("failed to complete seed task: %v", err)
	}

	t.Run("lists everything by default", func(t *testing.T) {
		out, err := tool.Execute(ctx, "owner", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		res := out.(*listTasksResult)
		if res.Count != 3 {
			t.Errorf("expected 3 tasks, got %d", res.Count)
		}
		if res.Filters["status"] != "all" {
			t.Errorf("expected status filter 'all', got %v", res.Filters["status"])
		}
	})

	t.Run("filters pending", func(t *testing.T) {
		out, err := tool.Execute(ctx, "owner", raw(t, map[string]any{"status": "pending"}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.(*listTasksResult).Count != 2 {
			t.Errorf("expected 2 pending tasks, got %d", out.(*listTasksResult).Count)
		}
	})

	t.Run("overdue only", func(t *testing.T) {
		out, err := tool.Execute(ctx, "owner", raw(t, map[string]any{"overdue_only": true}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		res := out.(*listTasksResult)
		if res.Count != 1 || res.Tasks[0].Title != "Overdue report" {
			t.Errorf("unexpected overdue result: %+v", res)
		}
		if !res.Tasks[0].IsOverdue {
			t.Error("expected overdue flag on view")
		}
	})

	t.Run("search matches title", func(t *testing.T) {
		out, err := tool.Execute(ctx, "owner", raw(t, map[string]any{"search": "milk"}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		res := out.(*listTasksResult)
		if res.Count != 1 || res.Tasks[0].Title != "Buy milk" {
			t.Errorf("unexpected search result: %+v", res)
		}
	})

	t.Run("other owners see nothing", func(t *testing.T) {
		out, err := tool.Execute(ctx, "someone-else", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.(*listTasksResult).Count != 0 {
			t.Error("tasks leaked across owners")
		}
	})
}

func TestUpdateTask(t *testing.T) {
	ctx := context.Background()

	t.Run("updates selected fields", func(t *testing.T) {
		store := tasks.NewMemoryStore()
		tool := &UpdateTask{store: store}
		task := seedTask(t, store, &models.Task{Title: "Old title"})

		args := raw(t, map[string]any{"task_id": task.ID, "title": "New title", "priority": "high"})
		out, err := tool.Execute(ctx, "owner", args)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		res := out.(*updateTaskResult)
		if res.Title != "New title" {
			t.Errorf("unexpected result title: %q", res.Title)
		}
		if len(res.UpdatedFields) != 2 {
			t.Errorf("expected 2 updated fields, got %v", res.UpdatedFields)
		}
		if err := tool.Verify(ctx, "owner", args, out); err != nil {
			t.Errorf("verify failed: %v", err)
		}
	})

	t.Run("empty due date string clears the due date", func(t *testing.T) {
		store := tasks.NewMemoryStore()
		tool := &UpdateTask{store: store}
		due := testNow.Add(48 * time.Hour)
		task := seedTask(t, store, &models.Task{Title: "x", DueAt: &due})

		if _, err := tool.Execute(ctx, "owner", raw(t, map[string]any{"task_id": task.ID, "due_date": ""})); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		stored, _ := store.Get(ctx, "owner", task.ID)
		if stored.DueAt != nil {
			t.Errorf("expected cleared due date, got %v", stored.DueAt)
		}
	})

	t.Run("rejects empty patch", func(t *testing.T) {
		store := tasks.NewMemoryStore()
		tool := &UpdateTask{store: store}
		task := seedTask(t, store, &models.Task{Title: "x"})
		_, err := tool.Execute(ctx, "owner", raw(t, map[string]any{"task_id": task.ID}))
		if !agent.IsValidationError(err) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("rejects invalid priority", func(t *testing.T) {
		store := tasks.NewMemoryStore()
		tool := &UpdateTask{store: store}
		task := seedTask(t, store, &models.Task{Title: "x"})
		_, err := tool.Execute(ctx, "owner", raw(t, map[string]any{"task_id": task.ID, "priority": "critical"}))
		if !agent.IsValidationError(err) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("cross-owner update reads as missing", func(t *testing.T) {
		store := tasks.NewMemoryStore()
		tool := &UpdateTask{store: store}
		task := seedTask(t, store, &models.Task{Title: "x"})
		_, err := tool.Execute(ctx, "mallory", raw(t, map[string]any{"task_id": task.ID, "title": "stolen"}))
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestCompleteTask(t *testing.T) {
	ctx := context.Background()

	t.Run("marks task complete", func(t *testing.T) {
		store := tasks.NewMemoryStore()
		tool := &CompleteTask{store: store, clock: fixedClock}
		task := seedTask(t, store, &models.Task{Title: "Pay rent"})

		args := raw(t, map[string]any{"task_id": task.ID})
		out, err := tool.Execute(ctx, "owner", args)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		res := out.(*completeTaskResult)
		if res.Status != "completed" || res.AlreadyCompleted {
			t.Errorf("unexpected result: %+v", res)
		}
		if err := tool.Verify(ctx, "owner", args, out); err != nil {
			t.Errorf("verify failed: %v", err)
		}
	})

	t.Run("recurring completion materializes the successor", func(t *testing.T) {
		store := tasks.NewMemoryStore()
		tool := &CompleteTask{store: store, clock: fixedClock}
		due := testNow.Add(24 * time.Hour)
		task := seedTask(t, store, &models.Task{
			Title:             "Water plants",
			DueAt:             &due,
			RecurrencePattern: models.RecurrenceWeekly,
		})

		args := raw(t, map[string]any{"task_id": task.ID})
		out, err := tool.Execute(ctx, "owner", args)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		res := out.(*completeTaskResult)
		if res.NextTask == nil {
			t.Fatal("expected a successor")
		}
		successor, err := store.Get(ctx, "owner", res.NextTask.TaskID)
		if err != nil {
			t.Fatalf("successor not stored: %v", err)
		}
		if successor.ParentTaskID != task.ID {
			t.Errorf("expected parent %s, got %s", task.ID, successor.ParentTaskID)
		}
		wantDue := due.AddDate(0, 0, 7)
		if successor.DueAt == nil || !successor.DueAt.Equal(wantDue) {
			t.Errorf("expected successor due %v, got %v", wantDue, successor.DueAt)
		}
		if err := tool.Verify(ctx, "owner", args, out); err != nil {
			t.Errorf("verify failed: %v", err)
		}
	})

	t.Run("already complete short-circuits without a duplicate successor", func(t *testing.T) {
		store := tasks.NewMemoryStore()
		tool := &CompleteTask{store: store, clock: fixedClock}
		due := testNow.Add(24 * time.Hour)
		task := seedTask(t, store, &models.Task{
			Title:             "Water plants",
			DueAt:             &due,
			RecurrencePattern: models.RecurrenceWeekly,
		})

		args := raw(t, map[string]any{"task_id": task.ID})
		if _, err := tool.Execute(ctx, "owner", args); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out, err := tool.Execute(ctx, "owner", args)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		res := out.(*completeTaskResult)
		if !res.AlreadyCompleted || res.NextTask != nil {
			t.Errorf("unexpected repeat result: %+v", res)
		}

		all, _ := store.List(ctx, "owner", models.TaskFilter{})
		if len(all) != 2 {
			t.Errorf("expected original + one successor, got %d tasks", len(all))
		}
	})

	t.Run("recurrence end stops the chain", func(t *testing.T) {
		store := tasks.NewMemoryStore()
		tool := &CompleteTask{store: store, clock: fixedClock}
		due := testNow.Add(24 * time.Hour)
		end := due.Add(48 * time.Hour) // next weekly due falls past this
		task := seedTask(t, store, &models.Task{
			Title:             "Weekly review",
			DueAt:             &due,
			RecurrencePattern: models.RecurrenceWeekly,
			RecurrenceEndAt:   &end,
		})

		out, err := tool.Execute(ctx, "owner", raw(t, map[string]any{"task_id": task.ID}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		res := out.(*completeTaskResult)
		if !res.RecurrenceEnded || res.NextTask != nil {
			t.Errorf("expected ended recurrence, got %+v", res)
		}
	})

	t.Run("missing task surfaces not found", func(t *testing.T) {
		tool := &CompleteTask{store: tasks.NewMemoryStore(), clock: fixedClock}
		_, err := tool.Execute(ctx, "owner", raw(t, map[string]any{"task_id": "nope"}))
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestDeleteTask(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes and verifies absence", func(t *testing.T) {
		store := tasks.NewMemoryStore()
		tool := &DeleteTask{store: store}
		task := seedTask(t, store, &models.Task{Title: "Old chore"})

		args := raw(t, map[string]any{"task_id": task.ID})
		out, err := tool.Execute(ctx, "owner", args)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		res := out.(*deleteTaskResult)
		if !res.Deleted || res.Title != "Old chore" {
			t.Errorf("unexpected result: %+v", res)
		}
		if err := tool.Verify(ctx, "owner", args, out); err != nil {
			t.Errorf("verify failed: %v", err)
		}
		if _, err := store.Get(ctx, "owner", task.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("cross-owner delete reads as missing", func(t *testing.T) {
		store := tasks.NewMemoryStore()
		tool := &DeleteTask{store: store}
		task := seedTask(t, store, &models.Task{Title: "x"})

		_, err := tool.Execute(ctx, "mallory", raw(t, map[string]any{"task_id": task.ID}))
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := store.Get(ctx, "owner", task.ID); err != nil {
			t.Error("task must survive a cross-owner delete attempt")
		}
	})
}

func TestGetAnalytics(t *testing.T) {
	ctx := context.Background()
	store := tasks.NewMemoryStore()
	tool := &GetAnalytics{store: store, clock: fixedClock}

	overdue := testNow.Add(-24 * time.Hour)
	seedTask(t, store, &models.Task{Title: "Late", DueAt: &overdue, Priority: models.PriorityHigh})
	done := seedTask(t, store, &models.Task{Title: "Done"})
	completed := true
	if _, err := store.Update(ctx, "owner", done.ID, models.TaskPatch{Completed: &completed}); err != nil {
		t.Fatalf("failed to complete seed task: %v", err)
	}

	out, err := tool.Execute(ctx, "owner", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stats := out.(*tasks.Analytics)
	if stats.Summary.TotalTasks != 2 || stats.Summary.CompletedCount != 1 {
		t.Errorf("unexpected summary: %+v", stats.Summary)
	}
	if stats.Summary.CompletionRate != 50 {
		t.Errorf("expected 50%% completion, got %v", stats.Summary.CompletionRate)
	}
	if stats.Urgency.OverdueCount != 1 || stats.Urgency.HighPriorityPending != 1 {
		t.Errorf("unexpected urgency: %+v", stats.Urgency)
	}
	if len(stats.Details.OverdueTasks) != 1 || stats.Details.OverdueTasks[0].Title != "Late" {
		t.Errorf("unexpected overdue detail: %+v", stats.Details.OverdueTasks)
	}
}

func TestAllToolsRegister(t *testing.T) {
	registry, err := agent.NewRegistry(All(tasks.NewMemoryStore())...)
	if err != nil {
		t.Fatalf("failed to build registry from tool set: %v", err)
	}
	if got := len(registry.Names()); got != 6 {
		t.Errorf("expected 6 tools, got %d", got)
	}
}
