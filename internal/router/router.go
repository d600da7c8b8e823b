package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"superadmin/internal/config"
	"superadmin/internal/handler"
	"superadmin/internal/metrics"
	"superadmin/internal/model"
)

const bodyLimit = "1M"

// Handlers groups the HTTP handlers mounted by Register.
type Handlers struct {
	Health         *handler.HealthHandler
	Auth           *handler.AuthHandler
	Users          *handler.UserHandler
	Roles          *handler.RoleHandler
	AuditLogs      *handler.AuditLogHandler
	Analytics      *handler.AnalyticsHandler
	Settings       *handler.SettingsHandler
	EmailReminders *handler.EmailReminderHandler
	Seed           *handler.SeedHandler
}

// Security bundles what the auth middleware needs.
type Security struct {
	Tokens        TokenParser
	Authenticator Authenticator
}

// Register wires routes and middleware.
func Register(e *echo.Echo, cfg *config.Config, log *zap.Logger, m *metrics.Metrics, sec Security, h Handlers) {
	e.HideBanner = true
	e.HTTPErrorHandler = ErrorHandler(log)
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(middleware.RequestID())
	e.Use(RequestLogger(log))
	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	e.Use(middleware.BodyLimit(bodyLimit))
	e.Use(m.Middleware())

	e.GET("/metrics", m.Handler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")
	api.GET("/health", h.Health.Health)
	api.GET("/ready", h.Health.Ready)

	v1 := api.Group("/v1")
	authenticated := []echo.MiddlewareFunc{JWT(sec.Tokens), Authenticate(sec.Authenticator)}

	authGroup := v1.Group("/auth")
	authGroup.POST("/login", h.Auth.Login)
	authGroup.GET("/me", h.Auth.Me, authenticated...)
	authGroup.POST("/logout", h.Auth.Logout, authenticated...)

	console := v1.Group("/superadmin", authenticated...)
	superadmin := []echo.MiddlewareFunc{RequireSuperAdmin()}

	users := console.Group("/users", superadmin...)
	users.GET("", h.Users.ListUsers)
	users.POST("", h.Users.CreateUser)
	users.GET("/:id", h.Users.GetUser)
	users.PUT("/:id", h.Users.UpdateUser)
	users.DELETE("/:id", h.Users.DeleteUser)

	roles := console.Group("/roles", superadmin...)
	roles.GET("", h.Roles.ListRoles)
	roles.POST("", h.Roles.CreateRole)
	roles.GET("/permissions", h.Roles.ListPermissions)
	roles.POST("/assign-role", h.Roles.AssignRole)
	roles.DELETE("/assign-role", h.Roles.RemoveRole)
	roles.GET("/:id", h.Roles.GetRole)
	roles.PUT("/:id", h.Roles.UpdateRole)
	roles.DELETE("/:id", h.Roles.DeleteRole)

	audit := console.Group("/audit-logs", superadmin...)
	audit.GET("", h.AuditLogs.ListAuditLogs)
	audit.GET("/actions", h.AuditLogs.ListActions)
	audit.GET("/target-types", h.AuditLogs.ListTargetTypes)
	audit.GET("/summary", h.AuditLogs.Summary)

	analytics := console.Group("/analytics", superadmin...)
	analytics.GET("/summary", h.Analytics.Summary)
	analytics.GET("/users", h.Analytics.Users)
	analytics.GET("/activity", h.Analytics.Activity)

	settings := console.Group("/settings", superadmin...)
	settings.GET("", h.Settings.ListSettings)
	settings.POST("", h.Settings.CreateSetting)
	settings.GET("/feature-toggles", h.Settings.GetFeatureToggles)
	settings.PUT("/feature-toggles", h.Settings.UpdateFeatureToggles)
	settings.GET("/:key", h.Settings.GetSetting)
	settings.PUT("/:key", h.Settings.PutSetting)
	settings.DELETE("/:key", h.Settings.DeleteSetting)

	console.POST("/seed", h.Seed.Seed, superadmin...)

	reminders := console.Group("/email-reminders")
	staff := RequireRoles(model.RoleSuperAdmin, model.RoleAdmin)
	reminders.GET("/stats", h.EmailReminders.Stats, staff)
	reminders.GET("/inactive-users", h.EmailReminders.InactiveUsers, staff)
	reminders.GET("/all-inactive-users", h.EmailReminders.AllInactiveUsers, staff)
	reminders.POST("/send-reminder/:userId", h.EmailReminders.SendReminder, staff)
	reminders.PUT("/mark-active/:userId", h.EmailReminders.MarkActive, staff)

	reminders.POST("/send-reminders", h.EmailReminders.SendReminders, superadmin...)
	reminders.PUT("/reset-reminders/:userId", h.EmailReminders.ResetReminders, superadmin...)
	reminders.GET("/cron-status", h.EmailReminders.CronStatus, superadmin...)
	reminders.POST("/trigger-reminder-job", h.EmailReminders.TriggerReminderJob, superadmin...)
	reminders.POST("/trigger-cleanup-job", h.EmailReminders.TriggerCleanupJob, superadmin...)
	reminders.POST("/restart-cron", h.EmailReminders.RestartCron, superadmin...)
	reminders.POST("/stop-cron", h.EmailReminders.StopCron, superadmin...)
	reminders.POST("/start-test-job", h.EmailReminders.StartTestJob, superadmin...)
	reminders.POST("/stop-test-job", h.EmailReminders.StopTestJob, superadmin...)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
