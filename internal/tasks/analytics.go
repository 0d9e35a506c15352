package tasks

import (
	"time"

	"github.com/haasonsaas/taskpilot/pkg/models"
)

// Analytics aggregates productivity statistics over an owner's tasks.
type Analytics struct {
	Summary      AnalyticsSummary      `json:"summary"`
	Urgency      AnalyticsUrgency      `json:"urgency"`
	Productivity AnalyticsProductivity `json:"productivity"`
	ByPriority   map[string]int        `json:"by_priority"`
	Details      AnalyticsDetails      `json:"details"`
}

type AnalyticsSummary struct {
	TotalTasks     int     `json:"total_tasks"`
	CompletedCount int     `json:"completed_count"`
	PendingCount   int     `json:"pending_count"`
	CompletionRate float64 `json:"completion_rate"`
}

type AnalyticsUrgency struct {
	OverdueCount        int `json:"overdue_count"`
	DueTodayCount       int `json:"due_today_count"`
	DueThisWeekCount    int `json:"due_this_week_count"`
	HighPriorityPending int `json:"high_priority_pending"`
}

type AnalyticsProductivity struct {
	CompletedThisWeek int `json:"completed_this_week"`
}

type AnalyticsDetails struct {
	OverdueTasks  []AnalyticsTaskRef `json:"overdue_tasks"`
	DueTodayTasks []AnalyticsTaskRef `json:"due_today_tasks"`
}

type AnalyticsTaskRef struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Priority string     `json:"priority,omitempty"`
	DueAt    *time.Time `json:"due_at,omitempty"`
}

// detailLimit caps the detail lists so analytics stay small enough to feed
// back to the model.
const detailLimit = 5

// ComputeAnalytics derives statistics from a full task listing. The week
// runs Monday through Sunday in the reference time's location.
func ComputeAnalytics(all []*models.Task, now time.Time) *Analytics {
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	todayEnd := todayStart.AddDate(0, 0, 1)

	daysSinceMonday := (int(now.Weekday()) + 6) % 7
	weekStart := todayStart.AddDate(0, 0, -daysSinceMonday)
	weekEnd := weekStart.AddDate(0, 0, 7)

	a := &Analytics{
		ByPriority: map[string]int{"high": 0, "medium": 0, "low": 0},
	}

	for _, t := range all {
		a.Summary.TotalTasks++
		if t.Completed {
			a.Summary.CompletedCount++
			if !t.UpdatedAt.Before(weekStart) && t.UpdatedAt.Before(weekEnd) {
				a.Productivity.CompletedThisWeek++
			}
			continue
		}

		a.Summary.PendingCount++
		a.ByPriority[string(t.Priority)]++
		if t.Priority == models.PriorityHigh {
			a.Urgency.HighPriorityPending++
		}

		if t.DueAt == nil {
			continue
		}
		due := *t.DueAt
		if due.Before(now) {
			a.Urgency.OverdueCount++
			if len(a.Details.OverdueTasks) < detailLimit {
				a.Details.OverdueTasks = append(a.Details.OverdueTasks, AnalyticsTaskRef{
					ID: t.ID, Title: t.Title, DueAt: t.DueAt,
				})
			}
		}
		if !due.Before(todayStart) && due.Before(todayEnd) {
			a.Urgency.DueTodayCount++
			if len(a.Details.DueTodayTasks) < detailLimit {
				a.Details.DueTodayTasks = append(a.Details.DueTodayTasks, AnalyticsTaskRef{
					ID: t.ID, Title: t.Title, Priority: string(t.Priority),
				})
			}
		}
		if !due.Before(weekStart) && due.Before(weekEnd) {
			a.Urgency.DueThisWeekCount++
		}
	}

	if a.Summary.TotalTasks > 0 {
		rate := float64(a.Summary.CompletedCount) / float64(a.Summary.TotalTasks) * 100
		// one decimal place
		a.Summary.CompletionRate = float64(int(rate*10+0.5)) / 10
	}

	return a
}
