package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"superadmin/internal/config"
	apperrors "superadmin/internal/errors"
	"superadmin/internal/metrics"
	"superadmin/internal/model"
	"superadmin/internal/service"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestScheduler(t *testing.T, jobs ...Job) *Scheduler {
	t.Helper()
	s := New(time.UTC, metrics.New(), zap.NewNop())
	for _, j := range jobs {
		require.NoError(t, s.Register(j))
	}
	t.Cleanup(func() {
		_ = s.Stop(context.Background())
	})
	return s
}

func okJob(name string, result interface{}) Job {
	return Job{Name: name, Spec: "0 3 * * *", Run: func(context.Context) (interface{}, error) {
		return result, nil
	}}
}

func TestScheduler_RegisterRejectsBadSchedule(t *testing.T) {
	s := New(time.UTC, nil, zap.NewNop())
	err := s.Register(Job{Name: "bad", Spec: "every tuesday"})
	assert.Error(t, err)
	assert.Empty(t, s.Status().Jobs)
}

func TestScheduler_StartStatusStop(t *testing.T) {
	manual := okJob("manual", nil)
	manual.Manual = true
	s := newTestScheduler(t, okJob("nightly", nil), manual)
	s.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }

	st := s.Status()
	assert.False(t, st.Initialized)
	assert.Equal(t, StatusStopped, st.Jobs["nightly"].Status)

	require.NoError(t, s.Start())
	require.NoError(t, s.Start(), "start is idempotent")

	st = s.Status()
	assert.True(t, st.Initialized)
	assert.Equal(t, "UTC", st.Timezone)
	assert.Equal(t, "2025-03-10T12:00:00Z", st.CurrentTime)

	nightly := st.Jobs["nightly"]
	assert.Equal(t, StatusScheduled, nightly.Status)
	assert.Equal(t, "0 3 * * *", nightly.CronExpression)
	require.NotNil(t, nightly.NextRun)
	assert.Equal(t, time.Date(2025, 3, 11, 3, 0, 0, 0, time.UTC), *nightly.NextRun)

	assert.Equal(t, StatusStopped, st.Jobs["manual"].Status)
	assert.Nil(t, st.Jobs["manual"].NextRun)

	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()), "stop is idempotent")
	st = s.Status()
	assert.False(t, st.Initialized)
	assert.Equal(t, StatusStopped, st.Jobs["nightly"].Status)
	assert.Nil(t, st.Jobs["nightly"].NextRun)
}

func TestScheduler_Trigger(t *testing.T) {
	boom := errors.New("boom")
	s := newTestScheduler(t,
		okJob("ok", map[string]int{"sent": 2}),
		Job{Name: "fail", Spec: "@daily", Run: func(context.Context) (interface{}, error) { return nil, boom }},
		Job{Name: "panic", Spec: "@daily", Run: func(context.Context) (interface{}, error) { panic("bad") }},
	)

	result, err := s.Trigger("ok")
	require.NoError(t, err, "manual runs do not need the cron")
	assert.Equal(t, map[string]int{"sent": 2}, result)
	assert.NotNil(t, s.Status().Jobs["ok"].LastRun)
	assert.Equal(t, StatusStopped, s.Status().Jobs["ok"].Status)

	require.NoError(t, s.Start())

	result, err = s.Trigger("ok")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"sent": 2}, result)
	ok := s.Status().Jobs["ok"]
	assert.Equal(t, StatusCompleted, ok.Status)
	assert.NotNil(t, ok.LastRun)
	assert.Equal(t, map[string]int{"sent": 2}, ok.Result)

	_, err = s.Trigger("fail")
	assert.ErrorIs(t, err, boom)
	failed := s.Status().Jobs["fail"]
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, "boom", failed.Error)

	_, err = s.Trigger("panic")
	assert.ErrorContains(t, err, "panicked")
	assert.Equal(t, StatusFailed, s.Status().Jobs["panic"].Status)

	_, err = s.Trigger("missing")
	assert.ErrorIs(t, err, apperrors.ErrUnknownJob)
}

func TestScheduler_TriggerWhileRunning(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	s := newTestScheduler(t, Job{Name: "slow", Spec: "@daily", Run: func(context.Context) (interface{}, error) {
		close(started)
		<-release
		return "done", nil
	}})
	require.NoError(t, s.Start())

	errc := make(chan error, 1)
	go func() {
		_, err := s.Trigger("slow")
		errc <- err
	}()
	<-started

	assert.Equal(t, StatusRunning, s.Status().Jobs["slow"].Status)
	_, err := s.Trigger("slow")
	assert.ErrorIs(t, err, apperrors.ErrJobRunning)

	close(release)
	require.NoError(t, <-errc)
	assert.Equal(t, StatusCompleted, s.Status().Jobs["slow"].Status)
}

func TestScheduler_StopCancelsRunningJobsOnTimeout(t *testing.T) {
	started := make(chan struct{})
	s := newTestScheduler(t, Job{Name: "stuck", Spec: "@daily", Run: func(ctx context.Context) (interface{}, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}})
	require.NoError(t, s.Start())

	errc := make(chan error, 1)
	go func() {
		_, err := s.Trigger("stuck")
		errc <- err
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Stop(ctx), context.DeadlineExceeded)
	assert.ErrorIs(t, <-errc, context.Canceled)
	assert.Equal(t, StatusStopped, s.Status().Jobs["stuck"].Status)
}

func TestScheduler_RestartAndManualJobs(t *testing.T) {
	manual := okJob("test", nil)
	manual.Manual = true
	s := newTestScheduler(t, manual)

	assert.ErrorIs(t, s.Schedule("test"), apperrors.ErrSchedulerNotRunning)
	require.NoError(t, s.Start())
	require.NoError(t, s.Schedule("test"))
	require.NoError(t, s.Schedule("test"))
	assert.Equal(t, StatusScheduled, s.Status().Jobs["test"].Status)
	assert.Len(t, s.cron.Entries(), 1)

	require.NoError(t, s.Unschedule("test"))
	assert.Equal(t, StatusStopped, s.Status().Jobs["test"].Status)
	assert.Empty(t, s.cron.Entries())
	assert.ErrorIs(t, s.Unschedule("nope"), apperrors.ErrUnknownJob)

	require.NoError(t, s.Restart(context.Background()))
	assert.True(t, s.Status().Initialized)
	assert.Equal(t, StatusStopped, s.Status().Jobs["test"].Status, "manual jobs stay off after restart")
}

type fakeReminders struct {
	service.InactiveUserService
	sent    int
	cleanup int
}

func (f *fakeReminders) SendRemindersToAll(context.Context, *uuid.UUID) (*service.BulkReminderResult, error) {
	f.sent++
	return &service.BulkReminderResult{TotalUsers: 1, Successful: 1}, nil
}

func (f *fakeReminders) Cleanup(_ context.Context, retentionDays int) (*service.CleanupResult, error) {
	f.cleanup = retentionDays
	return &service.CleanupResult{PrunedLogs: 3}, nil
}

func (f *fakeReminders) Stats(context.Context) (*service.ReminderStats, error) {
	return &service.ReminderStats{TotalInactive: 2}, nil
}

type fakeAudit struct {
	entry *model.AuditLog
}

func (f fakeAudit) LatestByAction(_ context.Context, action string) (*model.AuditLog, error) {
	if f.entry == nil || f.entry.Action != action {
		return nil, gorm.ErrRecordNotFound
	}
	return f.entry, nil
}

func consoleConfig() *config.Config {
	return &config.Config{
		AuditRetentionDays: 90,
		Cron: config.CronConfig{
			ReminderSchedule: "5 23 * * *",
			CleanupSchedule:  "0 2 * * 0",
			Timezone:         "Asia/Kolkata",
		},
	}
}

func TestConsoleJobs(t *testing.T) {
	reminders := &fakeReminders{}
	s, err := NewConsole(consoleConfig(), reminders, nil, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	require.NoError(t, s.Start())

	st := s.Status()
	assert.Equal(t, "Asia/Kolkata", st.Timezone)
	assert.Equal(t, StatusScheduled, st.Jobs[JobReminder].Status)
	assert.Equal(t, StatusScheduled, st.Jobs[JobCleanup].Status)
	assert.Equal(t, StatusStopped, st.Jobs[JobTest].Status)
	assert.Equal(t, "Asia/Kolkata", st.Jobs[JobReminder].Timezone)

	result, err := s.TriggerReminder()
	require.NoError(t, err)
	assert.Equal(t, 1, result.(*service.BulkReminderResult).Successful)
	assert.Equal(t, 1, reminders.sent)

	result, err = s.TriggerCleanup()
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.(*service.CleanupResult).PrunedLogs)
	assert.Equal(t, 90, reminders.cleanup)

	require.NoError(t, s.StartTestJob())
	assert.Equal(t, StatusScheduled, s.Status().Jobs[JobTest].Status)
	require.NoError(t, s.StopTestJob())
	assert.Equal(t, StatusStopped, s.Status().Jobs[JobTest].Status)

	require.NoError(t, s.Stop(context.Background()))
	result, err = s.TriggerReminder()
	require.NoError(t, err, "reminder job runs on demand after stop-cron")
	assert.Equal(t, 1, result.(*service.BulkReminderResult).Successful)
	assert.Equal(t, 2, reminders.sent)
	_, err = s.TriggerCleanup()
	require.NoError(t, err)
}

func TestConsoleJobs_InvalidSchedule(t *testing.T) {
	cfg := consoleConfig()
	cfg.Cron.ReminderSchedule = "61 * * * *"
	_, err := NewConsole(cfg, &fakeReminders{}, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestRestoreLastRun(t *testing.T) {
	s, err := NewConsole(consoleConfig(), &fakeReminders{}, nil, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.RestoreLastRun(context.Background(), fakeAudit{}))
	assert.Nil(t, s.Status().Jobs[JobReminder].LastRun)

	at := time.Date(2025, 3, 9, 17, 35, 0, 0, time.UTC)
	src := fakeAudit{entry: &model.AuditLog{Action: model.ActionReminderSent, Timestamp: at}}
	require.NoError(t, s.RestoreLastRun(context.Background(), src))
	last := s.Status().Jobs[JobReminder].LastRun
	require.NotNil(t, last)
	assert.True(t, at.Equal(*last))

	later := fakeAudit{entry: &model.AuditLog{Action: model.ActionReminderSent, Timestamp: at.Add(time.Hour)}}
	require.NoError(t, s.RestoreLastRun(context.Background(), later))
	assert.True(t, at.Equal(*s.Status().Jobs[JobReminder].LastRun), "existing last run is kept")
}
