package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"superadmin/internal/errors"
	"superadmin/internal/model"
	"superadmin/internal/scheduler"
	"superadmin/internal/service"
)

// CronController is the part of the scheduler exposed over HTTP.
type CronController interface {
	Status() scheduler.Status
	TriggerReminder() (interface{}, error)
	TriggerCleanup() (interface{}, error)
	Restart(ctx context.Context) error
	Stop(ctx context.Context) error
	StartTestJob() error
	StopTestJob() error
}

// Envelope is the response shape of the reminder endpoints.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// EmailReminderHandler serves inactive-user reminders and cron operations.
type EmailReminderHandler struct {
	reminders service.InactiveUserService
	cron      CronController
}

// NewEmailReminderHandler creates a new reminder handler.
func NewEmailReminderHandler(reminders service.InactiveUserService, cron CronController) *EmailReminderHandler {
	return &EmailReminderHandler{reminders: reminders, cron: cron}
}

func succeed(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

func fail(c echo.Context, message string, err error) error {
	httpErr := errors.MapErrorToHTTP(err)
	return c.JSON(httpErr.StatusCode, Envelope{Success: false, Message: message, Error: httpErr.Message})
}

func userParam(c echo.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("userId"))
	return id, err == nil
}

// Stats godoc
// @Summary Inactive user statistics
// @Tags email-reminders
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Envelope{data=service.ReminderStats}
// @Failure 500 {object} Envelope
// @Router /v1/superadmin/email-reminders/stats [get]
func (h *EmailReminderHandler) Stats(c echo.Context) error {
	stats, err := h.reminders.Stats(c.Request().Context())
	if err != nil {
		return fail(c, "Failed to get inactive user statistics", err)
	}
	return succeed(c, "", stats)
}

// InactiveUsers godoc
// @Summary Users eligible for a reminder
// @Tags email-reminders
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Envelope{data=[]model.User}
// @Failure 500 {object} Envelope
// @Router /v1/superadmin/email-reminders/inactive-users [get]
func (h *EmailReminderHandler) InactiveUsers(c echo.Context) error {
	users, err := h.reminders.FindEligible(c.Request().Context())
	if err != nil {
		return fail(c, "Failed to get inactive users", err)
	}
	return succeed(c, "", nonNilUsers(users))
}

// AllInactiveUsers godoc
// @Summary All inactive users
// @Description Ignores reminder interval and cap.
// @Tags email-reminders
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Envelope{data=[]model.User}
// @Failure 500 {object} Envelope
// @Router /v1/superadmin/email-reminders/all-inactive-users [get]
func (h *EmailReminderHandler) AllInactiveUsers(c echo.Context) error {
	users, err := h.reminders.FindAllInactive(c.Request().Context())
	if err != nil {
		return fail(c, "Failed to get all inactive users", err)
	}
	return succeed(c, "", nonNilUsers(users))
}

// SendReminder godoc
// @Summary Send a reminder to one user
// @Tags email-reminders
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User ID"
// @Success 200 {object} Envelope{data=service.ReminderResult}
// @Failure 404 {object} Envelope
// @Failure 500 {object} Envelope
// @Router /v1/superadmin/email-reminders/send-reminder/{userId} [post]
func (h *EmailReminderHandler) SendReminder(c echo.Context) error {
	userID, valid := userParam(c)
	if !valid {
		return fail(c, "User not found", errors.ErrUserNotFound)
	}
	actor, err := actorID(c)
	if err != nil {
		return respondError(err)
	}

	result, err := h.reminders.SendReminder(c.Request().Context(), userID, &actor)
	if err != nil {
		return fail(c, "Failed to send reminder", err)
	}
	if !result.Success {
		return c.JSON(http.StatusInternalServerError, Envelope{
			Success: false,
			Message: "Failed to send reminder",
			Data:    result,
			Error:   result.Error,
		})
	}
	return succeed(c, "Reminder sent successfully", result)
}

// SendReminders godoc
// @Summary Send reminders to every eligible user
// @Tags email-reminders
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Envelope{data=service.BulkReminderResult}
// @Failure 500 {object} Envelope
// @Router /v1/superadmin/email-reminders/send-reminders [post]
func (h *EmailReminderHandler) SendReminders(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return respondError(err)
	}
	result, err := h.reminders.SendRemindersToAll(c.Request().Context(), &actor)
	if err != nil {
		return fail(c, "Failed to send reminders", err)
	}
	return succeed(c, "Reminder campaign completed", result)
}

// MarkActive godoc
// @Summary Mark a user as active
// @Tags email-reminders
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User ID"
// @Success 200 {object} Envelope{data=model.User}
// @Failure 404 {object} Envelope
// @Router /v1/superadmin/email-reminders/mark-active/{userId} [put]
func (h *EmailReminderHandler) MarkActive(c echo.Context) error {
	userID, valid := userParam(c)
	if !valid {
		return fail(c, "User not found", errors.ErrUserNotFound)
	}
	user, err := h.reminders.MarkActive(c.Request().Context(), userID)
	if err != nil {
		return fail(c, "Failed to mark user as active", err)
	}
	return succeed(c, "User marked as active", user)
}

// ResetReminders godoc
// @Summary Reset a user's reminder counter
// @Tags email-reminders
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User ID"
// @Success 200 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /v1/superadmin/email-reminders/reset-reminders/{userId} [put]
func (h *EmailReminderHandler) ResetReminders(c echo.Context) error {
	userID, valid := userParam(c)
	if !valid {
		return fail(c, "User not found", errors.ErrUserNotFound)
	}
	actor, err := actorID(c)
	if err != nil {
		return respondError(err)
	}
	if err := h.reminders.ResetReminders(c.Request().Context(), actor, userID); err != nil {
		return fail(c, "Failed to reset user reminders", err)
	}
	return succeed(c, "User reminders reset successfully", map[string]uuid.UUID{"userId": userID})
}

// CronStatus godoc
// @Summary Scheduler status
// @Tags email-reminders
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Envelope{data=scheduler.Status}
// @Router /v1/superadmin/email-reminders/cron-status [get]
func (h *EmailReminderHandler) CronStatus(c echo.Context) error {
	return succeed(c, "", h.cron.Status())
}

// TriggerReminderJob godoc
// @Summary Run the reminder job now
// @Tags email-reminders
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Envelope
// @Failure 409 {object} Envelope
// @Router /v1/superadmin/email-reminders/trigger-reminder-job [post]
func (h *EmailReminderHandler) TriggerReminderJob(c echo.Context) error {
	result, err := h.cron.TriggerReminder()
	if err != nil {
		return fail(c, "Failed to trigger reminder job", err)
	}
	return succeed(c, "Reminder job triggered successfully", result)
}

// TriggerCleanupJob godoc
// @Summary Run the cleanup job now
// @Tags email-reminders
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Envelope
// @Failure 409 {object} Envelope
// @Router /v1/superadmin/email-reminders/trigger-cleanup-job [post]
func (h *EmailReminderHandler) TriggerCleanupJob(c echo.Context) error {
	result, err := h.cron.TriggerCleanup()
	if err != nil {
		return fail(c, "Failed to trigger cleanup job", err)
	}
	return succeed(c, "Cleanup job triggered successfully", result)
}

// RestartCron godoc
// @Summary Restart the scheduler
// @Tags email-reminders
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Envelope
// @Failure 500 {object} Envelope
// @Router /v1/superadmin/email-reminders/restart-cron [post]
func (h *EmailReminderHandler) RestartCron(c echo.Context) error {
	if err := h.cron.Restart(c.Request().Context()); err != nil {
		return fail(c, "Failed to restart cron jobs", err)
	}
	return succeed(c, "Cron jobs restarted successfully", nil)
}

// StopCron godoc
// @Summary Stop the scheduler
// @Tags email-reminders
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Envelope
// @Failure 500 {object} Envelope
// @Router /v1/superadmin/email-reminders/stop-cron [post]
func (h *EmailReminderHandler) StopCron(c echo.Context) error {
	if err := h.cron.Stop(c.Request().Context()); err != nil {
		return fail(c, "Failed to stop cron jobs", err)
	}
	return succeed(c, "All cron jobs stopped successfully", nil)
}

// StartTestJob godoc
// @Summary Schedule the every-minute test job
// @Tags email-reminders
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Envelope
// @Failure 409 {object} Envelope
// @Router /v1/superadmin/email-reminders/start-test-job [post]
func (h *EmailReminderHandler) StartTestJob(c echo.Context) error {
	if err := h.cron.StartTestJob(); err != nil {
		return fail(c, "Failed to start test job", err)
	}
	return succeed(c, "Test job started - will run every minute for testing", nil)
}

// StopTestJob godoc
// @Summary Remove the test job
// @Tags email-reminders
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Envelope
// @Router /v1/superadmin/email-reminders/stop-test-job [post]
func (h *EmailReminderHandler) StopTestJob(c echo.Context) error {
	if err := h.cron.StopTestJob(); err != nil {
		return fail(c, "Failed to stop test job", err)
	}
	return succeed(c, "Test job stopped successfully", nil)
}

func nonNilUsers(users []model.User) []model.User {
	if users == nil {
		return []model.User{}
	}
	return users
}
