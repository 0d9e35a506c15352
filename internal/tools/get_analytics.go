package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/haasonsaas/taskpilot/internal/agent"
	"github.com/haasonsaas/taskpilot/internal/tasks"
	"github.com/haasonsaas/taskpilot/pkg/models"
)

// GetAnalytics aggregates productivity statistics over the owner's tasks.
type GetAnalytics struct {
	store tasks.Store
	clock func() time.Time
}

func (t *GetAnalytics) Name() agent.ToolName { return agent.ToolGetAnalytics }

func (t *GetAnalytics) Description() string {
	return "Get productivity statistics about the user's tasks: totals, completion rate, overdue and due-soon counts, and a per-priority breakdown. Use this when the user asks about their progress or stats."
}

func (t *GetAnalytics) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {}
	}`)
}

func (t *GetAnalytics) Mutating() bool { return false }

func (t *GetAnalytics) Execute(ctx context.Context, ownerID string, args json.RawMessage) (any, error) {
	all, err := t.store.List(ctx, ownerID, models.TaskFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks.ComputeAnalytics(all, t.clock().UTC()), nil
}

var _ agent.Tool = (*GetAnalytics)(nil)
