package handler

import (
	"github.com/labstack/echo/v4"

	"superadmin/internal/model"
	"superadmin/internal/repository"
	"superadmin/internal/service"
)

const defaultAuditPageSize = 50

// AuditLogHandler exposes the audit trail.
type AuditLogHandler struct {
	svc service.AuditService
}

// NewAuditLogHandler creates a new audit log handler.
func NewAuditLogHandler(svc service.AuditService) *AuditLogHandler {
	return &AuditLogHandler{svc: svc}
}

// AuditLogListResponse is one page of audit entries.
type AuditLogListResponse struct {
	AuditLogs  []model.AuditLog `json:"auditLogs"`
	Pagination Pagination       `json:"pagination"`
}

// ActionListResponse lists distinct actions.
type ActionListResponse struct {
	Actions []string `json:"actions"`
}

// TargetTypeListResponse lists distinct target types.
type TargetTypeListResponse struct {
	TargetTypes []string `json:"targetTypes"`
}

// AuditSummaryResponse aggregates the audit trail over a window.
type AuditSummaryResponse struct {
	Summary        *service.AuditSummary `json:"summary"`
	RecentActivity []model.AuditLog      `json:"recentActivity"`
}

// ListAuditLogs godoc
// @Summary List audit logs
// @Tags audit-logs
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(50)
// @Param userName query string false "Actor name substring"
// @Param userEmail query string false "Actor email substring"
// @Param action query string false "Action"
// @Param targetType query string false "Target type"
// @Param startDate query string false "Inclusive lower bound"
// @Param endDate query string false "Inclusive upper bound"
// @Param sortBy query string false "timestamp|action|targetType"
// @Param sortOrder query string false "asc|desc"
// @Success 200 {object} AuditLogListResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /v1/superadmin/audit-logs [get]
func (h *AuditLogHandler) ListAuditLogs(c echo.Context) error {
	start, err := queryTime(c, "startDate", false)
	if err != nil {
		return err
	}
	end, err := queryTime(c, "endDate", true)
	if err != nil {
		return err
	}
	filter := repository.AuditFilter{
		Page:       repository.Page{Page: queryInt(c, "page", 1), Limit: queryInt(c, "limit", defaultAuditPageSize)}.Normalize(defaultAuditPageSize),
		Sort:       repository.Sort{By: c.QueryParam("sortBy"), Order: c.QueryParam("sortOrder")},
		UserName:   c.QueryParam("userName"),
		UserEmail:  c.QueryParam("userEmail"),
		Action:     c.QueryParam("action"),
		TargetType: c.QueryParam("targetType"),
		Start:      start,
		End:        end,
	}

	logs, total, err := h.svc.List(c.Request().Context(), filter)
	if err != nil {
		return respondError(err)
	}
	if logs == nil {
		logs = []model.AuditLog{}
	}
	return ok(c, AuditLogListResponse{
		AuditLogs:  logs,
		Pagination: newPagination(filter.Page.Page, filter.Page.Limit, total),
	})
}

// ListActions godoc
// @Summary Distinct audit actions
// @Tags audit-logs
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ActionListResponse
// @Router /v1/superadmin/audit-logs/actions [get]
func (h *AuditLogHandler) ListActions(c echo.Context) error {
	actions, err := h.svc.Actions(c.Request().Context())
	if err != nil {
		return respondError(err)
	}
	if actions == nil {
		actions = []string{}
	}
	return ok(c, ActionListResponse{Actions: actions})
}

// ListTargetTypes godoc
// @Summary Distinct audit target types
// @Tags audit-logs
// @Produce json
// @Security BearerAuth
// @Success 200 {object} TargetTypeListResponse
// @Router /v1/superadmin/audit-logs/target-types [get]
func (h *AuditLogHandler) ListTargetTypes(c echo.Context) error {
	types, err := h.svc.TargetTypes(c.Request().Context())
	if err != nil {
		return respondError(err)
	}
	if types == nil {
		types = []string{}
	}
	return ok(c, TargetTypeListResponse{TargetTypes: types})
}

// Summary godoc
// @Summary Audit summary
// @Tags audit-logs
// @Produce json
// @Security BearerAuth
// @Param startDate query string false "Inclusive lower bound"
// @Param endDate query string false "Inclusive upper bound"
// @Success 200 {object} AuditSummaryResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /v1/superadmin/audit-logs/summary [get]
func (h *AuditLogHandler) Summary(c echo.Context) error {
	start, err := queryTime(c, "startDate", false)
	if err != nil {
		return err
	}
	end, err := queryTime(c, "endDate", true)
	if err != nil {
		return err
	}
	summary, err := h.svc.Summary(c.Request().Context(), start, end)
	if err != nil {
		return respondError(err)
	}
	recent := summary.RecentActivity
	if recent == nil {
		recent = []model.AuditLog{}
	}
	return ok(c, AuditSummaryResponse{Summary: summary, RecentActivity: recent})
}
