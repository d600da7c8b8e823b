package db

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"superadmin/internal/model"
)

// Open returns a connected GORM DB for the configured driver.
func Open(driver, mysqlDSN, sqlitePath string) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Warn),
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc:                                  nowUTC,
	}

	switch driver {
	case "mysql":
		db, err := gorm.Open(mysql.Open(mysqlDSN), gcfg)
		if err != nil {
			return nil, fmt.Errorf("connect mysql: %w", err)
		}
		return db, nil
	case "sqlite":
		db, err := gorm.Open(sqlite.Open(sqlitePath), gcfg)
		if err != nil {
			return nil, fmt.Errorf("connect sqlite: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// NewTestDB opens a private in-memory SQLite database with the schema applied.
// The pool is pinned to a single connection so the database outlives each query.
func NewTestDB() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc:                                  nowUTC,
	})
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Timestamps are kept in UTC so text-encoded SQLite datetimes compare correctly.
func nowUTC() time.Time {
	return time.Now().UTC()
}

// Models lists every persisted model in dependency order.
func Models() []any {
	return []any{
		&model.Permission{},
		&model.Role{},
		&model.User{},
		&model.UserRole{},
		&model.AuditLog{},
		&model.Setting{},
	}
}

// Migrate registers the user_roles join model and auto-migrates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&model.User{}, "Roles", &model.UserRole{}); err != nil {
		return fmt.Errorf("setup user roles join table: %w", err)
	}
	if err := db.SetupJoinTable(&model.Role{}, "Users", &model.UserRole{}); err != nil {
		return fmt.Errorf("setup role users join table: %w", err)
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Reset drops every table. Used when RESET_DB is set.
func Reset(db *gorm.DB, log *zap.Logger) error {
	models := Models()
	for i := len(models) - 1; i >= 0; i-- {
		m := models[i]
		if !db.Migrator().HasTable(m) {
			continue
		}
		if err := db.Migrator().DropTable(m); err != nil {
			return fmt.Errorf("drop table %T: %w", m, err)
		}
		log.Info("dropped table", zap.String("model", fmt.Sprintf("%T", m)))
	}
	return nil
}

// Checker pings the connection pool behind a GORM handle.
type Checker struct {
	DB *gorm.DB
}

// Ping reports whether the database answers.
func (c Checker) Ping(ctx context.Context) error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
