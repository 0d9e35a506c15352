// Package recurrence computes successor tasks for recurring todos. A
// successor is materialized when a recurring task is completed, never on a
// schedule.
package recurrence

import (
	"time"

	"github.com/haasonsaas/taskpilot/pkg/models"
)

// Advance returns the next due date for the given pattern. Monthly advances
// by one calendar month, clamping the day-of-month to the last valid day of
// the target month (Jan 31 -> Feb 28/29).
func Advance(due time.Time, pattern models.RecurrencePattern) time.Time {
	switch pattern {
	case models.RecurrenceDaily:
		return due.AddDate(0, 0, 1)
	case models.RecurrenceWeekly:
		return due.AddDate(0, 0, 7)
	case models.RecurrenceMonthly:
		return addMonthClamped(due)
	default:
		return due
	}
}

func addMonthClamped(t time.Time) time.Time {
	year, month, day := t.Date()
	next := time.Date(year, month+1, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := lastDayOfMonth(next.Year(), next.Month()); day > last {
		day = last
	}
	return time.Date(next.Year(), next.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func lastDayOfMonth(year int, month time.Month) int {
	// Day 0 of the following month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Successor builds the next occurrence of a completed recurring task, or
// returns nil when no successor should exist: the task does not recur, or the
// computed due date falls past the recurrence end.
//
// The successor inherits title, description, tags, priority, and the
// recurrence settings. ReminderAt keeps the original offset from the due
// date. ParentTaskID links back to the completed task; ids and timestamps are
// assigned by the store.
func Successor(task *models.Task, now time.Time) *models.Task {
	if task == nil || !task.RecurrencePattern.Recurring() {
		return nil
	}

	due := now
	if task.DueAt != nil {
		due = *task.DueAt
	}
	nextDue := Advance(due, task.RecurrencePattern)

	if task.RecurrenceEndAt != nil && nextDue.After(*task.RecurrenceEndAt) {
		return nil
	}

	next := &models.Task{
		OwnerID:           task.OwnerID,
		Title:             task.Title,
		Description:       task.Description,
		Priority:          task.Priority,
		Tags:              append([]string(nil), task.Tags...),
		DueAt:             &nextDue,
		RecurrencePattern: task.RecurrencePattern,
		RecurrenceEndAt:   task.RecurrenceEndAt,
		ParentTaskID:      task.ID,
	}

	if task.ReminderAt != nil && task.DueAt != nil {
		offset := task.DueAt.Sub(*task.ReminderAt)
		reminder := nextDue.Add(-offset)
		next.ReminderAt = &reminder
	}

	return next
}
