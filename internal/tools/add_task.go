package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/haasonsaas/taskpilot/internal/agent"
	"github.com/haasonsaas/taskpilot/internal/tasks"
	"github.com/haasonsaas/taskpilot/pkg/models"
)

// AddTask creates a new task for the owner.
type AddTask struct {
	store tasks.Store
	clock func() time.Time
}

type addTaskArgs struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Priority          string   `json:"priority"`
	Tags              []string `json:"tags"`
	DueDate           string   `json:"due_date"`
	RecurrencePattern string   `json:"recurrence_pattern"`
	RecurrenceEndDate string   `json:"recurrence_end_date"`
	ReminderAt        string   `json:"reminder_at"`
}

type addTaskResult struct {
	TaskID            string     `json:"task_id"`
	Status            string     `json:"status"`
	Title             string     `json:"title"`
	Priority          string     `json:"priority"`
	Tags              []string   `json:"tags,omitempty"`
	DueAt             *time.Time `json:"due_at,omitempty"`
	RecurrencePattern string     `json:"recurrence_pattern"`
	ReminderAt        *time.Time `json:"reminder_at,omitempty"`
}

func (t *AddTask) Name() agent.ToolName { return agent.ToolAddTask }

func (t *AddTask) Description() string {
	return "Create a new task for the user. Use this when the user wants to add, create, or remember something. Supports priority, tags, due dates, recurrence, and reminders."
}

func (t *AddTask) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"title": {
				"type": "string",
				"minLength": 1,
				"maxLength": 200,
				"description": "The title of the task (1-200 characters)"
			},
			"description": {
				"type": "string",
				"description": "Optional description of the task"
			},
			"priority": {
				"type": "string",
				"enum": ["low", "medium", "high"],
				"description": "Task priority level. Use 'high' for urgent/important tasks, 'low' for whenever/sometime tasks. Default is 'medium'."
			},
			"tags": {
				"type": "array",
				"items": {"type": "string"},
				"description": "List of tags for categorization (max 10 tags, each max 30 chars). Example: ['work', 'urgent']"
			},
			"due_date": {
				"type": "string",
				"description": "Due date in ISO format (YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS). Parse natural language dates like 'tomorrow' to ISO format before calling."
			},
			"recurrence_pattern": {
				"type": "string",
				"enum": ["none", "daily", "weekly", "monthly"],
				"description": "How often the task recurs. When a recurring task is completed, a new task is auto-created with the next due date."
			},
			"recurrence_end_date": {
				"type": "string",
				"description": "End date for recurrence in ISO format. After this date, no new recurring tasks will be created."
			},
			"reminder_at": {
				"type": "string",
				"description": "Reminder datetime in ISO format. When to remind the user about this task."
			}
		},
		"required": ["title"]
	}`)
}

func (t *AddTask) Mutating() bool { return true }

func (t *AddTask) Execute(ctx context.Context, ownerID string, args json.RawMessage) (any, error) {
	var in addTaskArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, agent.NewValidationError(string(t.Name()), "malformed arguments")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, agent.NewValidationError(string(t.Name()), "title is required")
	}

	priority := models.Priority(strings.ToLower(in.Priority))
	if !priority.Valid() {
		priority = models.PriorityMedium
	}
	pattern := models.RecurrencePattern(strings.ToLower(in.RecurrencePattern))
	if !pattern.Valid() {
		pattern = models.RecurrenceNone
	}

	task := &models.Task{
		OwnerID:           ownerID,
		Title:             title,
		Description:       strings.TrimSpace(in.Description),
		Priority:          priority,
		Tags:              tasks.NormalizeTags(in.Tags),
		DueAt:             parseTimeArg(in.DueDate),
		RecurrencePattern: pattern,
		ReminderAt:        parseTimeArg(in.ReminderAt),
	}
	if pattern.Recurring() {
		task.RecurrenceEndAt = parseTimeArg(in.RecurrenceEndDate)
	}

	if err := t.store.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return &addTaskResult{
		TaskID:            task.ID,
		Status:            "created",
		Title:             task.Title,
		Priority:          string(task.Priority),
		Tags:              task.Tags,
		DueAt:             task.DueAt,
		RecurrencePattern: string(task.RecurrencePattern),
		ReminderAt:        task.ReminderAt,
	}, nil
}

// Verify confirms the created task is present under the owner with the
// requested title.
func (t *AddTask) Verify(ctx context.Context, ownerID string, args json.RawMessage, result any) error {
	res, ok := result.(*addTaskResult)
	if !ok || res.TaskID == "" {
		return fmt.Errorf("no task id to verify")
	}
	stored, err := t.store.Get(ctx, ownerID, res.TaskID)
	if err != nil {
		return fmt.Errorf("created task not found: %w", err)
	}
	if stored.Title != res.Title {
		return fmt.Errorf("stored title %q does not match %q", stored.Title, res.Title)
	}
	return nil
}

var (
	_ agent.Tool     = (*AddTask)(nil)
	_ agent.Verifier = (*AddTask)(nil)
)
