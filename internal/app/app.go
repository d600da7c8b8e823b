// Package app assembles the storage, services and scheduler shared by the
// HTTP server and the admin CLI.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"superadmin/internal/auth"
	"superadmin/internal/cache"
	"superadmin/internal/config"
	"superadmin/internal/db"
	"superadmin/internal/mailer"
	"superadmin/internal/metrics"
	"superadmin/internal/repository"
	"superadmin/internal/scheduler"
	"superadmin/internal/seed"
	"superadmin/internal/service"
)

// App holds the wired dependencies.
type App struct {
	Config  *config.Config
	Log     *zap.Logger
	DB      *gorm.DB
	Cache   *cache.Client
	Metrics *metrics.Metrics
	JWT     *auth.JWTService

	Users     repository.UserRepository
	Roles     repository.RoleRepository
	AuditLogs repository.AuditLogRepository
	Settings  repository.SettingRepository

	Audit         service.AuditService
	Auth          service.AuthService
	UserService   service.UserService
	RoleService   service.RoleService
	SettingsSvc   service.SettingsService
	Analytics     service.AnalyticsService
	InactiveUsers service.InactiveUserService

	Seeder    *seed.Seeder
	Scheduler *scheduler.Scheduler
}

// New opens the database, migrates it and builds every service.
// RESET_DB drops all tables first.
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	gormDB, err := db.Open(cfg.DBDriver, cfg.MySQLDSN, cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("database init: %w", err)
	}
	if cfg.ResetDB {
		log.Warn("RESET_DB set, dropping all tables")
		if err := db.Reset(gormDB, log); err != nil {
			return nil, err
		}
	}
	if err := db.Migrate(gormDB); err != nil {
		return nil, err
	}
	return Build(cfg, log, gormDB, cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB))
}

// Build wires services on top of an open database. A nil cache disables caching.
func Build(cfg *config.Config, log *zap.Logger, gormDB *gorm.DB, cacheClient *cache.Client) (*App, error) {
	a := &App{
		Config:  cfg,
		Log:     log,
		DB:      gormDB,
		Cache:   cacheClient,
		Metrics: metrics.New(),
		JWT:     auth.NewJWTService(cfg.JWTSecret, cfg.JWTExpiry),

		Users:     repository.NewUserRepository(gormDB),
		Roles:     repository.NewRoleRepository(gormDB),
		AuditLogs: repository.NewAuditLogRepository(gormDB),
		Settings:  repository.NewSettingRepository(gormDB),
	}

	a.Audit = service.NewAuditService(a.AuditLogs, log)
	a.Auth = service.NewAuthService(a.Users, a.JWT, auth.NewTokenStore(cacheClient), a.Audit, log)
	a.UserService = service.NewUserService(a.Users, a.Roles, a.Audit, log)
	a.RoleService = service.NewRoleService(a.Roles, a.Users, a.Audit, log)
	a.SettingsSvc = service.NewSettingsService(a.Settings, cacheClient, a.Audit, log)
	a.Analytics = service.NewAnalyticsService(a.Users, a.Roles, a.AuditLogs, cacheClient, cfg.Location(), log)
	a.InactiveUsers = service.NewInactiveUserService(
		a.Users, a.Audit, mailer.New(cfg.Mail, log), a.Metrics, cfg.Reminder, cfg.FrontendURL, log)
	a.Seeder = seed.New(a.Roles, a.Users, a.Settings, log)

	sched, err := scheduler.NewConsole(cfg, a.InactiveUsers, a.Metrics, log)
	if err != nil {
		return nil, fmt.Errorf("scheduler init: %w", err)
	}
	a.Scheduler = sched
	return a, nil
}

// SeedOptions returns the configured seed credentials.
func (a *App) SeedOptions() seed.Options {
	return seed.Options{
		SuperAdminEmail:    a.Config.SeedSuperAdminEmail,
		SuperAdminPassword: a.Config.SeedSuperAdminPassword,
		DemoUsers:          a.Config.SeedDemoUsers,
	}
}

// StartScheduler starts cron jobs when enabled and restores the reminder job's last run.
func (a *App) StartScheduler(ctx context.Context) error {
	if !a.Config.Cron.Enabled {
		a.Log.Info("cron disabled")
		return nil
	}
	if err := a.Scheduler.Start(); err != nil {
		return err
	}
	if err := a.Scheduler.RestoreLastRun(ctx, a.AuditLogs); err != nil {
		a.Log.Warn("restore reminder last run failed", zap.Error(err))
	}
	return nil
}

// Close stops the scheduler and releases connections.
func (a *App) Close(ctx context.Context) error {
	var firstErr error
	if err := a.Scheduler.Stop(ctx); err != nil {
		firstErr = err
	}
	if err := a.Cache.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := db.Close(a.DB); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
