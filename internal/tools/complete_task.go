package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/haasonsaas/taskpilot/internal/agent"
	"github.com/haasonsaas/taskpilot/internal/recurrence"
	"github.com/haasonsaas/taskpilot/internal/tasks"
	"github.com/haasonsaas/taskpilot/pkg/models"
)

// CompleteTask marks a task complete. Completing a recurring task
// materializes its next occurrence unless the recurrence end date cuts it
// off. Completing an already-completed task is a no-op that reports the fact
// and never duplicates a successor.
type CompleteTask struct {
	store tasks.Store
	clock func() time.Time
}

type completeTaskArgs struct {
	TaskID string `json:"task_id"`
}

type nextTaskRef struct {
	TaskID string     `json:"task_id"`
	Title  string     `json:"title"`
	DueAt  *time.Time `json:"due_at,omitempty"`
}

type completeTaskResult struct {
	TaskID           string       `json:"task_id"`
	Status           string       `json:"status"`
	Title            string       `json:"title"`
	AlreadyCompleted bool         `json:"already_completed,omitempty"`
	RecurrenceEnded  bool         `json:"recurrence_ended,omitempty"`
	NextTask         *nextTaskRef `json:"next_task,omitempty"`
}

func (t *CompleteTask) Name() agent.ToolName { return agent.ToolCompleteTask }

func (t *CompleteTask) Description() string {
	return "Mark a task as complete. For recurring tasks, automatically creates the next occurrence. Requires the task ID; call list_tasks first if you only know the title."
}

func (t *CompleteTask) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"task_id": {
				"type": "string",
				"description": "The ID of the task to mark as complete"
			}
		},
		"required": ["task_id"]
	}`)
}

func (t *CompleteTask) Mutating() bool { return true }

func (t *CompleteTask) Execute(ctx context.Context, ownerID string, args json.RawMessage) (any, error) {
	var in completeTaskArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, agent.NewValidationError(string(t.Name()), "malformed arguments")
	}
	if strings.TrimSpace(in.TaskID) == "" {
		return nil, agent.NewValidationError(string(t.Name()), "task_id is required")
	}

	task, err := t.store.Get(ctx, ownerID, in.TaskID)
	if err != nil {
		return nil, err
	}

	if task.Completed {
		return &completeTaskResult{
			TaskID:           task.ID,
			Status:           "already_completed",
			Title:            task.Title,
			AlreadyCompleted: true,
		}, nil
	}

	completed := true
	if _, err := t.store.Update(ctx, ownerID, task.ID, models.TaskPatch{Completed: &completed}); err != nil {
		return nil, fmt.Errorf("failed to complete task: %w", err)
	}

	result := &completeTaskResult{
		TaskID: task.ID,
		Status: "completed",
		Title:  task.Title,
	}

	if task.RecurrencePattern.Recurring() {
		successor := recurrence.Successor(task, t.clock().UTC())
		if successor == nil {
			result.RecurrenceEnded = true
			return result, nil
		}
		if err := t.store.Create(ctx, successor); err != nil {
			return nil, fmt.Errorf("failed to create recurring successor: %w", err)
		}
		result.NextTask = &nextTaskRef{
			TaskID: successor.ID,
			Title:  successor.Title,
			DueAt:  successor.DueAt,
		}
	}
	return result, nil
}

// Verify confirms the task now reads back completed, and when a successor was
// materialized, that it exists and back-references the completed task.
func (t *CompleteTask) Verify(ctx context.Context, ownerID string, args json.RawMessage, result any) error {
	res, ok := result.(*completeTaskResult)
	if !ok || res.TaskID == "" {
		return fmt.Errorf("no task id to verify")
	}

	stored, err := t.store.Get(ctx, ownerID, res.TaskID)
	if err != nil {
		return fmt.Errorf("completed task not found: %w", err)
	}
	if !stored.Completed {
		return fmt.Errorf("task still reads back pending")
	}

	if res.NextTask != nil {
		successor, err := t.store.Get(ctx, ownerID, res.NextTask.TaskID)
		if err != nil {
			return fmt.Errorf("recurring successor not found: %w", err)
		}
		if successor.ParentTaskID != res.TaskID {
			return fmt.Errorf("successor does not reference completed task")
		}
	}
	return nil
}

var (
	_ agent.Tool     = (*CompleteTask)(nil)
	_ agent.Verifier = (*CompleteTask)(nil)
)
