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

// ListTasks returns the owner's tasks with filtering and stable ordering.
type ListTasks struct {
	store tasks.Store
	clock func() time.Time
}

type listTasksArgs struct {
	Status      string   `json:"status"`
	Priority    string   `json:"priority"`
	Tags        []string `json:"tags"`
	DueBefore   string   `json:"due_before"`
	DueAfter    string   `json:"due_after"`
	OverdueOnly bool     `json:"overdue_only"`
	Search      string   `json:"search"`
}

type listTasksResult struct {
	Tasks   []taskView     `json:"tasks"`
	Count   int            `json:"count"`
	Filters map[string]any `json:"filters_applied,omitempty"`
}

func (t *ListTasks) Name() agent.ToolName { return agent.ToolListTasks }

func (t *ListTasks) Description() string {
	return "List the user's tasks with optional filters: status, priority, tags, due date range, overdue only, or keyword search. Use this to show tasks or to find a task's ID before updating, completing, or deleting it."
}

func (t *ListTasks) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"status": {
				"type": "string",
				"enum": ["all", "pending", "completed"],
				"description": "Filter by completion status. Default is 'all'."
			},
			"priority": {
				"type": "string",
				"enum": ["low", "medium", "high"],
				"description": "Filter by priority level"
			},
			"tags": {
				"type": "array",
				"items": {"type": "string"},
				"description": "Filter by tags (a task matches if it has any of these tags)"
			},
			"due_before": {
				"type": "string",
				"description": "Show tasks due before this date (ISO format)"
			},
			"due_after": {
				"type": "string",
				"description": "Show tasks due after this date (ISO format)"
			},
			"overdue_only": {
				"type": "boolean",
				"description": "Show only overdue tasks (past due date, not completed)"
			},
			"search": {
				"type": "string",
				"description": "Search keyword matched against title and description"
			}
		}
	}`)
}

func (t *ListTasks) Mutating() bool { return false }

func (t *ListTasks) Execute(ctx context.Context, ownerID string, args json.RawMessage) (any, error) {
	var in listTasksArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, agent.NewValidationError(string(t.Name()), "malformed arguments")
	}

	filter := models.TaskFilter{
		Status:      strings.ToLower(in.Status),
		Priority:    models.Priority(strings.ToLower(in.Priority)),
		Tags:        in.Tags,
		OverdueOnly: in.OverdueOnly,
		Search:      strings.TrimSpace(in.Search),
	}
	filter.DueBefore = parseTimeArg(in.DueBefore)
	filter.DueAfter = parseTimeArg(in.DueAfter)

	found, err := t.store.List(ctx, ownerID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	now := t.clock().UTC()
	views := make([]taskView, 0, len(found))
	for _, task := range found {
		views = append(views, viewOf(task, now))
	}

	filters := map[string]any{"status": filter.Status}
	if filters["status"] == "" {
		filters["status"] = "all"
	}
	if in.Priority != "" {
		filters["priority"] = in.Priority
	}
	if len(in.Tags) > 0 {
		filters["tags"] = in.Tags
	}
	if in.OverdueOnly {
		filters["overdue_only"] = true
	}
	if in.Search != "" {
		filters["search"] = in.Search
	}

	return &listTasksResult{
		Tasks:   views,
		Count:   len(views),
		Filters: filters,
	}, nil
}

var _ agent.Tool = (*ListTasks)(nil)
