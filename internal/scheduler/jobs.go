package scheduler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"superadmin/internal/config"
	"superadmin/internal/metrics"
	"superadmin/internal/model"
	"superadmin/internal/service"
)

// Job names.
const (
	JobReminder = "reminder"
	JobCleanup  = "cleanup"
	JobTest     = "test"
)

const testJobSpec = "* * * * *"

// LastRunSource finds the newest audit entry of an action.
type LastRunSource interface {
	LatestByAction(ctx context.Context, action string) (*model.AuditLog, error)
}

// NewConsole builds a scheduler with the reminder, cleanup and test jobs registered.
func NewConsole(cfg *config.Config, reminders service.InactiveUserService, m *metrics.Metrics, log *zap.Logger) (*Scheduler, error) {
	s := New(cfg.Location(), m, log)
	retention := cfg.AuditRetentionDays

	jobs := []Job{
		{
			Name:        JobReminder,
			Description: "Send reminder emails to inactive users",
			Spec:        cfg.Cron.ReminderSchedule,
			Run: func(ctx context.Context) (interface{}, error) {
				return reminders.SendRemindersToAll(ctx, nil)
			},
		},
		{
			Name:        JobCleanup,
			Description: "Refresh inactive user statistics and prune old audit logs",
			Spec:        cfg.Cron.CleanupSchedule,
			Run: func(ctx context.Context) (interface{}, error) {
				return reminders.Cleanup(ctx, retention)
			},
		},
		{
			Name:        JobTest,
			Description: "Log inactive user statistics every minute",
			Spec:        testJobSpec,
			Manual:      true,
			Run: func(ctx context.Context) (interface{}, error) {
				stats, err := reminders.Stats(ctx)
				if err != nil {
					return nil, err
				}
				log.Info("test job tick",
					zap.Int64("inactive_users", stats.TotalInactive),
					zap.Int64("users_with_reminders", stats.UsersWithReminders))
				return stats, nil
			},
		},
	}
	for _, job := range jobs {
		if err := s.Register(job); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// TriggerReminder runs the reminder job now.
func (s *Scheduler) TriggerReminder() (interface{}, error) {
	return s.Trigger(JobReminder)
}

// TriggerCleanup runs the cleanup job now.
func (s *Scheduler) TriggerCleanup() (interface{}, error) {
	return s.Trigger(JobCleanup)
}

// StartTestJob schedules the every-minute test job.
func (s *Scheduler) StartTestJob() error {
	return s.Schedule(JobTest)
}

// StopTestJob removes the test job from the schedule.
func (s *Scheduler) StopTestJob() error {
	return s.Unschedule(JobTest)
}

// RestoreLastRun seeds the reminder job's last run from the newest reminder audit entry.
func (s *Scheduler) RestoreLastRun(ctx context.Context, src LastRunSource) error {
	entry, err := src.LatestByAction(ctx, model.ActionReminderSent)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore last reminder run: %w", err)
	}
	if err := s.SetLastRun(JobReminder, entry.Timestamp); err != nil {
		return err
	}
	s.log.Info("restored reminder last run", zap.Time("last_run", entry.Timestamp.In(s.loc)))
	return nil
}
