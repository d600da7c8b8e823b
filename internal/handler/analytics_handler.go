package handler

import (
	"github.com/labstack/echo/v4"

	"superadmin/internal/service"
)

// AnalyticsHandler serves dashboard statistics.
type AnalyticsHandler struct {
	svc service.AnalyticsService
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(svc service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

// Summary godoc
// @Summary Dashboard summary
// @Tags analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.AnalyticsSummary
// @Router /v1/superadmin/analytics/summary [get]
func (h *AnalyticsHandler) Summary(c echo.Context) error {
	summary, err := h.svc.Summary(c.Request().Context())
	if err != nil {
		return respondError(err)
	}
	return ok(c, summary)
}

// Users godoc
// @Summary User analytics
// @Tags analytics
// @Produce json
// @Security BearerAuth
// @Param period query int false "Days, at most 365" default(30)
// @Success 200 {object} service.UserAnalytics
// @Router /v1/superadmin/analytics/users [get]
func (h *AnalyticsHandler) Users(c echo.Context) error {
	report, err := h.svc.Users(c.Request().Context(), queryInt(c, "period", service.DefaultUserPeriodDays))
	if err != nil {
		return respondError(err)
	}
	return ok(c, report)
}

// Activity godoc
// @Summary Activity analytics
// @Tags analytics
// @Produce json
// @Security BearerAuth
// @Param period query int false "Days, at most 365" default(7)
// @Success 200 {object} service.ActivityAnalytics
// @Router /v1/superadmin/analytics/activity [get]
func (h *AnalyticsHandler) Activity(c echo.Context) error {
	report, err := h.svc.Activity(c.Request().Context(), queryInt(c, "period", service.DefaultActivityPeriodDays))
	if err != nil {
		return respondError(err)
	}
	return ok(c, report)
}
