package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/haasonsaas/taskpilot/internal/agent"
	"github.com/haasonsaas/taskpilot/internal/tasks"
	"github.com/haasonsaas/taskpilot/pkg/models"
)

// UpdateTask applies a partial update to an existing task.
type UpdateTask struct {
	store tasks.Store
}

type updateTaskArgs struct {
	TaskID            string    `json:"task_id"`
	Title             *string   `json:"title"`
	Description       *string   `json:"description"`
	Priority          *string   `json:"priority"`
	Tags              *[]string `json:"tags"`
	DueDate           *string   `json:"due_date"`
	RecurrencePattern *string   `json:"recurrence_pattern"`
	RecurrenceEndDate *string   `json:"recurrence_end_date"`
	ReminderAt        *string   `json:"reminder_at"`
}

type updateTaskResult struct {
	TaskID        string   `json:"task_id"`
	Status        string   `json:"status"`
	Title         string   `json:"title"`
	UpdatedFields []string `json:"updated_fields"`
}

func (t *UpdateTask) Name() agent.ToolName { return agent.ToolUpdateTask }

func (t *UpdateTask) Description() string {
	return "Update fields of an existing task: title, description, priority, tags, due date, recurrence, or reminder. Requires the task ID; call list_tasks first if you only know the title."
}

func (t *UpdateTask) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"task_id": {
				"type": "string",
				"description": "The ID of the task to update"
			},
			"title": {
				"type": "string",
				"minLength": 1,
				"maxLength": 200,
				"description": "New title for the task"
			},
			"description": {
				"type": "string",
				"description": "New description for the task"
			},
			"priority": {
				"type": "string",
				"enum": ["low", "medium", "high"],
				"description": "New priority level"
			},
			"tags": {
				"type": "array",
				"items": {"type": "string"},
				"description": "Replacement tag list (max 10 tags, each max 30 chars)"
			},
			"due_date": {
				"type": "string",
				"description": "New due date in ISO format. An empty string clears the due date."
			},
			"recurrence_pattern": {
				"type": "string",
				"enum": ["none", "daily", "weekly", "monthly"],
				"description": "New recurrence pattern"
			},
			"recurrence_end_date": {
				"type": "string",
				"description": "New recurrence end date in ISO format. An empty string clears it."
			},
			"reminder_at": {
				"type": "string",
				"description": "New reminder datetime in ISO format. An empty string clears the reminder."
			}
		},
		"required": ["task_id"]
	}`)
}

func (t *UpdateTask) Mutating() bool { return true }

func (t *UpdateTask) Execute(ctx context.Context, ownerID string, args json.RawMessage) (any, error) {
	var in updateTaskArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, agent.NewValidationError(string(t.Name()), "malformed arguments")
	}
	if strings.TrimSpace(in.TaskID) == "" {
		return nil, agent.NewValidationError(string(t.Name()), "task_id is required")
	}

	patch, fields, err := buildPatch(&in)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, agent.NewValidationError(string(t.Name()), "no fields to update")
	}

	updated, err := t.store.Update(ctx, ownerID, in.TaskID, patch)
	if err != nil {
		return nil, err
	}

	return &updateTaskResult{
		TaskID:        updated.ID,
		Status:        "updated",
		Title:         updated.Title,
		UpdatedFields: fields,
	}, nil
}

func buildPatch(in *updateTaskArgs) (models.TaskPatch, []string, error) {
	var patch models.TaskPatch
	var fields []string

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return patch, nil, agent.NewValidationError(string(agent.ToolUpdateTask), "title cannot be empty")
		}
		patch.Title = &title
		fields = append(fields, "title")
	}
	if in.Description != nil {
		desc := strings.TrimSpace(*in.Description)
		patch.Description = &desc
		fields = append(fields, "description")
	}
	if in.Priority != nil {
		priority := models.Priority(strings.ToLower(*in.Priority))
		if !priority.Valid() {
			return patch, nil, agent.NewValidationError(string(agent.ToolUpdateTask), "priority must be low, medium, or high")
		}
		patch.Priority = &priority
		fields = append(fields, "priority")
	}
	if in.Tags != nil {
		tags := tasks.NormalizeTags(*in.Tags)
		patch.Tags = &tags
		fields = append(fields, "tags")
	}
	if in.DueDate != nil {
		due := parseTimeArg(*in.DueDate)
		patch.DueAt = &due
		fields = append(fields, "due_date")
	}
	if in.RecurrencePattern != nil {
		pattern := models.RecurrencePattern(strings.ToLower(*in.RecurrencePattern))
		if !pattern.Valid() {
			return patch, nil, agent.NewValidationError(string(agent.ToolUpdateTask), "recurrence_pattern must be none, daily, weekly, or monthly")
		}
		patch.RecurrencePattern = &pattern
		fields = append(fields, "recurrence_pattern")
	}
	if in.RecurrenceEndDate != nil {
		end := parseTimeArg(*in.RecurrenceEndDate)
		patch.RecurrenceEndAt = &end
		fields = append(fields, "recurrence_end_date")
	}
	if in.ReminderAt != nil {
		reminder := parseTimeArg(*in.ReminderAt)
		patch.ReminderAt = &reminder
		fields = append(fields, "reminder_at")
	}
	return patch, fields, nil
}

// Verify re-reads the task and confirms the patched fields hold their new
// values.
func (t *UpdateTask) Verify(ctx context.Context, ownerID string, args json.RawMessage, result any) error {
	var in updateTaskArgs
	if err := decodeArgs(args, &in); err != nil {
		return fmt.Errorf("cannot re-read arguments: %w", err)
	}

	stored, err := t.store.Get(ctx, ownerID, in.TaskID)
	if err != nil {
		return fmt.Errorf("updated task not found: %w", err)
	}

	if in.Title != nil && stored.Title != strings.TrimSpace(*in.Title) {
		return fmt.Errorf("title was not updated")
	}
	if in.Priority != nil && stored.Priority != models.Priority(strings.ToLower(*in.Priority)) {
		return fmt.Errorf("priority was not updated")
	}
	if in.DueDate != nil {
		want := parseTimeArg(*in.DueDate)
		if (want == nil) != (stored.DueAt == nil) {
			return fmt.Errorf("due date was not updated")
		}
		if want != nil && stored.DueAt != nil && !want.Equal(*stored.DueAt) {
			return fmt.Errorf("due date was not updated")
		}
	}
	if in.RecurrencePattern != nil && stored.RecurrencePattern != models.RecurrencePattern(strings.ToLower(*in.RecurrencePattern)) {
		return fmt.Errorf("recurrence pattern was not updated")
	}
	return nil
}

var (
	_ agent.Tool     = (*UpdateTask)(nil)
	_ agent.Verifier = (*UpdateTask)(nil)
)
