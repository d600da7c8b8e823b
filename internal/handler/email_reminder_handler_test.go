package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"superadmin/internal/errors"
	"superadmin/internal/model"
	"superadmin/internal/scheduler"
	"superadmin/internal/service"
)

// MockInactiveUserService is a mock implementation of service.InactiveUserService.
type MockInactiveUserService struct {
	mock.Mock
}

func (m *MockInactiveUserService) FindEligible(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockInactiveUserService) FindAllInactive(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockInactiveUserService) SendReminder(ctx context.Context, userID uuid.UUID, actorID *uuid.UUID) (*service.ReminderResult, error) {
	args := m.Called(ctx, userID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReminderResult), args.Error(1)
}

func (m *MockInactiveUserService) SendReminderToUser(ctx context.Context, user *model.User, actorID *uuid.UUID) *service.ReminderResult {
	args := m.Called(ctx, user, actorID)
	return args.Get(0).(*service.ReminderResult)
}

func (m *MockInactiveUserService) SendRemindersToAll(ctx context.Context, actorID *uuid.UUID) (*service.BulkReminderResult, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BulkReminderResult), args.Error(1)
}

func (m *MockInactiveUserService) MarkActive(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockInactiveUserService) ResetReminders(ctx context.Context, actorID, userID uuid.UUID) error {
	args := m.Called(ctx, actorID, userID)
	return args.Error(0)
}

func (m *MockInactiveUserService) Stats(ctx context.Context) (*service.ReminderStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReminderStats), args.Error(1)
}

func (m *MockInactiveUserService) Cleanup(ctx context.Context, retentionDays int) (*service.CleanupResult, error) {
	args := m.Called(ctx, retentionDays)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CleanupResult), args.Error(1)
}

func (m *MockInactiveUserService) SystemUserID(ctx context.Context) (uuid.UUID, error) {
	args := m.Called(ctx)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

type fakeCron struct {
	status     scheduler.Status
	triggerErr error
	restarted  bool
	stopped    bool
	testJob    bool
}

func (f *fakeCron) Status() scheduler.Status { return f.status }

func (f *fakeCron) TriggerReminder() (interface{}, error) {
	if f.triggerErr != nil {
		return nil, f.triggerErr
	}
	return &service.BulkReminderResult{}, nil
}

func (f *fakeCron) TriggerCleanup() (interface{}, error) {
	if f.triggerErr != nil {
		return nil, f.triggerErr
	}
	return &service.CleanupResult{PrunedLogs: 4}, nil
}

func (f *fakeCron) Restart(context.Context) error { f.restarted = true; return nil }
func (f *fakeCron) Stop(context.Context) error    { f.stopped = true; return nil }

func (f *fakeCron) StartTestJob() error {
	if !f.status.Initialized {
		return errors.ErrSchedulerNotRunning
	}
	f.testJob = true
	return nil
}

func (f *fakeCron) StopTestJob() error { f.testJob = false; return nil }

var staff = &model.User{ID: uuid.MustParse("11111111-1111-1111-1111-111111111111"), Name: "Admin", Roles: []model.Role{{Name: model.RoleAdmin}}}

func newReminderContext(method, target string, userID string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(method, target, nil), rec)
	if userID != "" {
		c.SetParamNames("userId")
		c.SetParamValues(userID)
	}
	SetCurrentUser(c, staff, nil)
	return c, rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestEmailReminderHandler_Stats(t *testing.T) {
	reminders := new(MockInactiveUserService)
	reminders.On("Stats", mock.Anything).Return(&service.ReminderStats{TotalInactive: 3, MaxReminders: 3}, nil)
	h := NewEmailReminderHandler(reminders, &fakeCron{})

	c, rec := newReminderContext(http.MethodGet, "/stats", "")
	require.NoError(t, h.Stats(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, float64(3), env.Data.(map[string]interface{})["totalInactive"])
}

func TestEmailReminderHandler_InactiveUsersNeverNull(t *testing.T) {
	reminders := new(MockInactiveUserService)
	reminders.On("FindEligible", mock.Anything).Return(nil, nil)
	h := NewEmailReminderHandler(reminders, &fakeCron{})

	c, rec := newReminderContext(http.MethodGet, "/inactive-users", "")
	require.NoError(t, h.InactiveUsers(c))
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestEmailReminderHandler_SendReminder(t *testing.T) {
	target := uuid.New()

	t.Run("invalid id reads as unknown user", func(t *testing.T) {
		h := NewEmailReminderHandler(new(MockInactiveUserService), &fakeCron{})
		c, rec := newReminderContext(http.MethodPost, "/send-reminder/x", "not-a-uuid")
		require.NoError(t, h.SendReminder(c))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.False(t, env.Success)
		assert.Equal(t, "User not found", env.Error)
	})

	t.Run("delivery failure is 500 with the result attached", func(t *testing.T) {
		reminders := new(MockInactiveUserService)
		reminders.On("SendReminder", mock.Anything, target, &staff.ID).
			Return(&service.ReminderResult{Success: false, UserID: target, Error: "smtp down"}, nil)
		h := NewEmailReminderHandler(reminders, &fakeCron{})

		c, rec := newReminderContext(http.MethodPost, "/send-reminder", target.String())
		require.NoError(t, h.SendReminder(c))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.Equal(t, "Failed to send reminder", env.Message)
		assert.Equal(t, "smtp down", env.Error)
		assert.NotNil(t, env.Data)
	})

	t.Run("success", func(t *testing.T) {
		reminders := new(MockInactiveUserService)
		reminders.On("SendReminder", mock.Anything, target, &staff.ID).
			Return(&service.ReminderResult{Success: true, UserID: target, ReminderCount: 1}, nil)
		h := NewEmailReminderHandler(reminders, &fakeCron{})

		c, rec := newReminderContext(http.MethodPost, "/send-reminder", target.String())
		require.NoError(t, h.SendReminder(c))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Reminder sent successfully", decodeEnvelope(t, rec).Message)
		reminders.AssertExpectations(t)
	})

	t.Run("unknown user", func(t *testing.T) {
		reminders := new(MockInactiveUserService)
		reminders.On("SendReminder", mock.Anything, target, &staff.ID).Return(nil, errors.ErrUserNotFound)
		h := NewEmailReminderHandler(reminders, &fakeCron{})

		c, rec := newReminderContext(http.MethodPost, "/send-reminder", target.String())
		require.NoError(t, h.SendReminder(c))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestEmailReminderHandler_ResetReminders(t *testing.T) {
	target := uuid.New()
	reminders := new(MockInactiveUserService)
	reminders.On("ResetReminders", mock.Anything, staff.ID, target).Return(nil)
	h := NewEmailReminderHandler(reminders, &fakeCron{})

	c, rec := newReminderContext(http.MethodPut, "/reset-reminders", target.String())
	require.NoError(t, h.ResetReminders(c))

	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, target.String(), env.Data.(map[string]interface{})["userId"])
	reminders.AssertExpectations(t)
}

func TestEmailReminderHandler_CronOperations(t *testing.T) {
	cron := &fakeCron{}
	h := NewEmailReminderHandler(new(MockInactiveUserService), cron)

	c, rec := newReminderContext(http.MethodPost, "/start-test-job", "")
	require.NoError(t, h.StartTestJob(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Cron service is not initialized", decodeEnvelope(t, rec).Error)

	cron.status.Initialized = true
	c, rec = newReminderContext(http.MethodPost, "/start-test-job", "")
	require.NoError(t, h.StartTestJob(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, cron.testJob)

	c, _ = newReminderContext(http.MethodPost, "/restart-cron", "")
	require.NoError(t, h.RestartCron(c))
	c, _ = newReminderContext(http.MethodPost, "/stop-cron", "")
	require.NoError(t, h.StopCron(c))
	assert.True(t, cron.restarted)
	assert.True(t, cron.stopped)

	cron.triggerErr = errors.ErrJobRunning
	c, rec = newReminderContext(http.MethodPost, "/trigger-reminder-job", "")
	require.NoError(t, h.TriggerReminderJob(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Failed to trigger reminder job", decodeEnvelope(t, rec).Message)

	cron.triggerErr = nil
	c, rec = newReminderContext(http.MethodPost, "/trigger-cleanup-job", "")
	require.NoError(t, h.TriggerCleanupJob(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(4), decodeEnvelope(t, rec).Data.(map[string]interface{})["prunedLogs"])
}
