package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/haasonsaas/taskpilot/internal/agent"
	"github.com/haasonsaas/taskpilot/internal/storage"
	"github.com/haasonsaas/taskpilot/internal/tasks"
)

// DeleteTask removes a task. Recurrence successors referencing it are
// orphaned, never cascaded.
type DeleteTask struct {
	store tasks.Store
}

type deleteTaskArgs struct {
	TaskID string `json:"task_id"`
}

type deleteTaskResult struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Title   string `json:"title"`
	Deleted bool   `json:"deleted"`
}

func (t *DeleteTask) Name() agent.ToolName { return agent.ToolDeleteTask }

func (t *DeleteTask) Description() string {
	return "Delete a task permanently. Requires the task ID; call list_tasks first if you only know the title."
}

func (t *DeleteTask) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"task_id": {
				"type": "string",
				"description": "The ID of the task to delete"
			}
		},
		"required": ["task_id"]
	}`)
}

func (t *DeleteTask) Mutating() bool { return true }

func (t *DeleteTask) Execute(ctx context.Context, ownerID string, args json.RawMessage) (any, error) {
	var in deleteTaskArgs
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
	if err := t.store.Delete(ctx, ownerID, task.ID); err != nil {
		return nil, err
	}

	return &deleteTaskResult{
		TaskID:  task.ID,
		Status:  "deleted",
		Title:   task.Title,
		Deleted: true,
	}, nil
}

// Verify confirms the task is gone: a read-back must report not-found.
func (t *DeleteTask) Verify(ctx context.Context, ownerID string, args json.RawMessage, result any) error {
	res, ok := result.(*deleteTaskResult)
	if !ok || res.TaskID == "" {
		return fmt.Errorf("no task id to verify")
	}
	_, err := t.store.Get(ctx, ownerID, res.TaskID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read-back failed: %w", err)
	}
	return fmt.Errorf("task still present after delete")
}

var (
	_ agent.Tool     = (*DeleteTask)(nil)
	_ agent.Verifier = (*DeleteTask)(nil)
)
