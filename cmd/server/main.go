package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	_ "time/tzdata"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"superadmin/docs"
	"superadmin/internal/app"
	"superadmin/internal/config"
	"superadmin/internal/db"
	"superadmin/internal/handler"
	"superadmin/internal/logger"
	"superadmin/internal/router"
)

// @title SuperAdmin Console API
// @version 1.0
// @description Role-based administration console: users, roles, audit trail, analytics, settings and inactive-user reminders.
// @host localhost:5000
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Must("error", "json").Fatal("load config", zap.Error(err))
	}
	log := logger.Must(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	if err := a.Cache.Ping(ctx); err != nil {
		log.Warn("redis unavailable, caching and token revocation disabled", zap.Error(err))
	}

	if cfg.SeedOnStart {
		if _, err := a.Seeder.Run(ctx, a.SeedOptions()); err != nil {
			return err
		}
	}
	if err := a.StartScheduler(ctx); err != nil {
		return err
	}

	e := echo.New()
	router.Register(e, cfg, log, a.Metrics,
		router.Security{Tokens: a.JWT, Authenticator: a.Auth},
		router.Handlers{
			Health: handler.NewHealthHandler(map[string]handler.Pinger{
				"database": db.Checker{DB: a.DB},
				"redis":    a.Cache,
			}),
			Auth:           handler.NewAuthHandler(a.Auth),
			Users:          handler.NewUserHandler(a.UserService),
			Roles:          handler.NewRoleHandler(a.RoleService),
			AuditLogs:      handler.NewAuditLogHandler(a.Audit),
			Analytics:      handler.NewAnalyticsHandler(a.Analytics),
			Settings:       handler.NewSettingsHandler(a.SettingsSvc),
			EmailReminders: handler.NewEmailReminderHandler(a.InactiveUsers, a.Scheduler),
			Seed:           handler.NewSeedHandler(a.Seeder, a.SeedOptions()),
		})

	host, scheme := swaggerHost(cfg)
	docs.SwaggerInfo.Host = host
	docs.SwaggerInfo.Schemes = []string{scheme}
	log.Info("swagger documentation available", zap.String("url", scheme+"://"+host+"/swagger/index.html"))

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.ServerPort
		log.Info("server starting", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	if err := a.Close(shutdownCtx); err != nil {
		log.Warn("release resources", zap.Error(err))
	}
	log.Info("server stopped")
	return nil
}

// swaggerHost splits SWAGGER_HOST, which may carry its own scheme.
func swaggerHost(cfg *config.Config) (host, scheme string) {
	host = strings.TrimSuffix(cfg.SwaggerHost, "/")
	if rest, ok := strings.CutPrefix(host, "https://"); ok && rest != "" {
		return rest, "https"
	}
	host = strings.TrimPrefix(host, "http://")
	if host == "" {
		host = "localhost:" + cfg.ServerPort
	}
	return host, "http"
}
