package models

import "time"

// Priority is the urgency level of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether the priority is one of the known levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// RecurrencePattern describes how often a task repeats.
type RecurrencePattern string

const (
	RecurrenceNone    RecurrencePattern = "none"
	RecurrenceDaily   RecurrencePattern = "daily"
	RecurrenceWeekly  RecurrencePattern = "weekly"
	RecurrenceMonthly RecurrencePattern = "monthly"
)

// Valid reports whether the pattern is one of the known values.
func (p RecurrencePattern) Valid() bool {
	switch p {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	}
	return false
}

// Recurring reports whether the pattern produces successor tasks.
func (p RecurrencePattern) Recurring() bool {
	return p.Valid() && p != RecurrenceNone
}

// Task is a single owner-scoped todo item.
//
// Every task belongs to exactly one owner; stores never return or mutate a
// task across owner boundaries. ParentTaskID is a weak back-reference from a
// recurrence successor to the completed task that materialized it — deleting
// the parent clears the reference on successors rather than cascading.
type Task struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Completed   bool       `json:"completed"`
	Priority    Priority   `json:"priority"`
	Tags        []string   `json:"tags,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty"`

	// Recurrence settings. Pattern "none" means EndAt and ParentTaskID carry
	// no meaning.
	RecurrencePattern RecurrencePattern `json:"recurrence_pattern"`
	RecurrenceEndAt   *time.Time        `json:"recurrence_end_at,omitempty"`
	ParentTaskID      string            `json:"parent_task_id,omitempty"`

	ReminderAt   *time.Time `json:"reminder_at,omitempty"`
	ReminderSent bool       `json:"reminder_sent,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Overdue reports whether the task is past its due date and still pending.
func (t *Task) Overdue(now time.Time) bool {
	return t.DueAt != nil && t.DueAt.Before(now) && !t.Completed
}

// TaskPatch carries a partial update. Nil fields are left untouched.
// Pointer-to-pointer time fields distinguish "don't change" (nil) from
// "clear the value" (pointer to nil).
type TaskPatch struct {
	Title       *string
	Description *string
	Completed   *bool
	Priority    *Priority
	Tags        *[]string
	DueAt       **time.Time

	RecurrencePattern *RecurrencePattern
	RecurrenceEndAt   **time.Time
	ParentTaskID      *string

	ReminderAt   **time.Time
	ReminderSent *bool
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil &&
		p.Priority == nil && p.Tags == nil && p.DueAt == nil &&
		p.RecurrencePattern == nil && p.RecurrenceEndAt == nil &&
		p.ParentTaskID == nil && p.ReminderAt == nil && p.ReminderSent == nil
}

// TaskFilter narrows a task listing. Zero values mean "no constraint".
type TaskFilter struct {
	// Status is "all", "pending", or "completed". Empty means all.
	Status string

	Priority    Priority
	Tags        []string // any-match
	DueBefore   *time.Time
	DueAfter    *time.Time
	OverdueOnly bool

	// Search matches case-insensitively against title and description.
	Search string
}
