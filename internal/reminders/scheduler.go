// Package reminders scans for tasks whose reminder time has passed and
// dispatches notifications for them.
package reminders

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/haasonsaas/taskpilot/internal/datetime"
	"github.com/haasonsaas/taskpilot/internal/observability"
	"github.com/haasonsaas/taskpilot/internal/tasks"
	"github.com/haasonsaas/taskpilot/pkg/models"
)

// scanBatchSize caps how many due reminders one scan processes.
const scanBatchSize = 100

// Notifier delivers one reminder to its owner. Implementations decide the
// channel (log line, push, email).
type Notifier interface {
	Notify(ctx context.Context, task *models.Task) error
}

// LogNotifier writes reminders to the structured log. It is the default
// sink when no delivery channel is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) Notify(ctx context.Context, task *models.Task) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{
		"task_id", task.ID,
		"owner_id", task.OwnerID,
		"title", task.Title,
	}
	if task.DueAt != nil {
		attrs = append(attrs, "due_at", task.DueAt, "due", datetime.FormatRelative(*task.DueAt, time.Now()))
	}
	logger.Info("task reminder due", attrs...)
	return nil
}

// SchedulerConfig configures the reminder scanner.
type SchedulerConfig struct {
	// Schedule is a cron expression or descriptor ("@every 1m") for how
	// often to scan. Defaults to every minute.
	Schedule string

	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Scheduler periodically scans the task store for due, unsent reminders and
// hands them to the notifier. A reminder is marked sent only after the
// notifier accepted it.
type Scheduler struct {
	store    tasks.Store
	notifier Notifier
	config   SchedulerConfig
	logger   *slog.Logger

	cron *cron.Cron

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a reminder scheduler. notifier may be nil, in which
// case reminders are logged.
func NewScheduler(store tasks.Store, notifier Notifier, config SchedulerConfig) *Scheduler {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = &LogNotifier{Logger: logger}
	}
	if config.Schedule == "" {
		config.Schedule = "@every 1m"
	}
	return &Scheduler{
		store:    store,
		notifier: notifier,
		config:   config,
		logger:   logger,
	}
}

// Start begins periodic scanning. It returns an error for an invalid
// schedule expression.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	c := cron.New()
	if _, err := c.AddFunc(s.config.Schedule, func() { s.Scan(context.Background()) }); err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", s.config.Schedule, err)
	}
	c.Start()
	s.cron = c
	s.running = true
	s.logger.Info("reminder scheduler started", "schedule", s.config.Schedule)
	return nil
}

// Stop halts scanning and waits for an in-flight scan to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("reminder scheduler stopped")
}

// Scan processes one batch of due reminders. Exported for use by tests and
// one-shot invocations.
func (s *Scheduler) Scan(ctx context.Context) {
	due, err := s.store.DueReminders(ctx, time.Now().UTC(), scanBatchSize)
	if err != nil {
		s.logger.Error("reminder scan failed", "error", err)
		if s.config.Metrics != nil {
			s.config.Metrics.RecordError("reminders", "scan")
		}
		return
	}

	for _, task := range due {
		if err := s.notifier.Notify(ctx, task); err != nil {
			s.logger.Warn("reminder delivery failed", "task_id", task.ID, "error", err)
			continue
		}
		if err := s.store.MarkReminderSent(ctx, task.OwnerID, task.ID); err != nil {
			s.logger.Warn("failed to mark reminder sent", "task_id", task.ID, "error", err)
			continue
		}
		if s.config.Metrics != nil {
			s.config.Metrics.RemindersSent.Inc()
		}
	}
}
