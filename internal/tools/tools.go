// Package tools implements the closed set of task operations the agent can
// dispatch: add, list, update, complete, delete, and analytics. Every tool is
// owner-scoped and every mutating tool verifies its own post-condition by
// read-back.
package tools

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/haasonsaas/taskpilot/internal/agent"
	"github.com/haasonsaas/taskpilot/internal/tasks"
	"github.com/haasonsaas/taskpilot/pkg/models"
)

// All returns the full tool set backed by the given task store, ready for
// registry construction.
func All(store tasks.Store) []agent.Tool {
	clock := time.Now
	return []agent.Tool{
		&AddTask{store: store, clock: clock},
		&ListTasks{store: store, clock: clock},
		&UpdateTask{store: store},
		&CompleteTask{store: store, clock: clock},
		&DeleteTask{store: store},
		&GetAnalytics{store: store, clock: clock},
	}
}

// parseTimeArg parses an ISO 8601 timestamp or bare date. A trailing "Z" is
// accepted. Invalid input returns nil rather than an error; the model often
// produces sloppy dates and dropping them beats failing the whole call.
func parseTimeArg(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func decodeArgs(args json.RawMessage, into any) error {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	return json.Unmarshal(args, into)
}

// taskView is the task shape returned to the model and audit trail.
type taskView struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description,omitempty"`
	Completed         bool       `json:"completed"`
	Priority          string     `json:"priority"`
	Tags              []string   `json:"tags,omitempty"`
	DueAt             *time.Time `json:"due_at,omitempty"`
	IsOverdue         bool       `json:"is_overdue"`
	RecurrencePattern string     `json:"recurrence_pattern"`
	ReminderAt        *time.Time `json:"reminder_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func viewOf(t *models.Task, now time.Time) taskView {
	return taskView{
		ID:                t.ID,
		Title:             t.Title,
		Description:       t.Description,
		Completed:         t.Completed,
		Priority:          string(t.Priority),
		Tags:              t.Tags,
		DueAt:             t.DueAt,
		IsOverdue:         t.Overdue(now),
		RecurrencePattern: string(t.RecurrencePattern),
		ReminderAt:        t.ReminderAt,
		CreatedAt:         t.CreatedAt,
	}
}
