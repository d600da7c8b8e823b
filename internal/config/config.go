package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds application level configuration loaded from environment variables
// and an optional config file (CONFIG_FILE).
type Config struct {
	ServerPort  string `validate:"required"`
	DBDriver    string `validate:"oneof=mysql sqlite"`
	MySQLDSN    string
	SQLitePath  string
	ResetDB     bool
	SeedOnStart bool
	// Seed credentials; empty values fall back to the built-in defaults.
	SeedSuperAdminEmail    string
	SeedSuperAdminPassword string
	SeedDemoUsers          bool
	RedisAddr              string
	RedisDB                int `validate:"min=0"`
	RedisPass              string
	JWTSecret              string        `validate:"required"`
	JWTExpiry              time.Duration `validate:"gt=0"`
	SwaggerHost            string
	LogLevel               string `validate:"oneof=debug info warn error"`
	LogFormat              string `validate:"oneof=json console"`
	CORSOrigins            []string
	FrontendURL            string
	ShutdownTimeout        time.Duration

	// AuditRetentionDays prunes audit entries older than this during the cleanup job; 0 keeps everything.
	AuditRetentionDays int `validate:"min=0"`

	Reminder ReminderConfig
	Cron     CronConfig
	Mail     MailConfig
}

// ReminderConfig tunes inactive-user detection and reminder pacing.
type ReminderConfig struct {
	InactivityThresholdDays int `validate:"min=1"`
	MaxReminders            int `validate:"min=1"`
	IntervalDays            int `validate:"min=0"`
	SendDelay               time.Duration
}

// CronConfig controls the background job scheduler.
type CronConfig struct {
	Enabled          bool
	ReminderSchedule string `validate:"required"`
	CleanupSchedule  string `validate:"required"`
	Timezone         string `validate:"required"`
}

// MailConfig selects and configures the outbound mail transport.
type MailConfig struct {
	Driver     string `validate:"oneof=smtp http"`
	SMTPHost   string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	From       string
	APIURL     string
	APIKey     string
	MaxRetries int `validate:"min=0"`
}

var defaults = map[string]any{
	"SERVER_PORT":               "5000",
	"DB_DRIVER":                 "mysql",
	"MYSQL_DSN":                 "user:password@tcp(localhost:3306)/superadmin?charset=utf8mb4&parseTime=True&loc=UTC",
	"SQLITE_PATH":               "superadmin.db",
	"RESET_DB":                  false,
	"SEED_ON_START":             false,
	"SEED_DEMO_USERS":           false,
	"REDIS_ADDR":                "localhost:6379",
	"REDIS_DB":                  0,
	"JWT_SECRET":                "change-me",
	"JWT_EXPIRY":                "24h",
	"LOG_LEVEL":                 "info",
	"LOG_FORMAT":                "json",
	"CORS_ORIGINS":              "*",
	"FRONTEND_URL":              "http://localhost:3000",
	"SHUTDOWN_TIMEOUT":          "10s",
	"AUDIT_RETENTION_DAYS":      0,
	"INACTIVITY_THRESHOLD_DAYS": 7,
	"MAX_REMINDERS":             3,
	"REMINDER_INTERVAL_DAYS":    1,
	"REMINDER_SEND_DELAY":       "1s",
	"CRON_ENABLED":              true,
	"REMINDER_CRON_SCHEDULE":    "5 23 * * *",
	"CLEANUP_CRON_SCHEDULE":     "0 2 * * 0",
	"TZ":                        "Asia/Kolkata",
	"MAIL_DRIVER":               "smtp",
	"SMTP_HOST":                 "smtp.gmail.com",
	"SMTP_PORT":                 587,
	"MAIL_MAX_RETRIES":          3,
}

// Load builds Config from defaults, the optional CONFIG_FILE and the environment.
// Environment variables win over file values.
func Load() (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		ServerPort:             v.GetString("SERVER_PORT"),
		DBDriver:               strings.ToLower(v.GetString("DB_DRIVER")),
		MySQLDSN:               v.GetString("MYSQL_DSN"),
		SQLitePath:             v.GetString("SQLITE_PATH"),
		ResetDB:                v.GetBool("RESET_DB"),
		SeedOnStart:            v.GetBool("SEED_ON_START"),
		SeedSuperAdminEmail:    v.GetString("SEED_SUPERADMIN_EMAIL"),
		SeedSuperAdminPassword: v.GetString("SEED_SUPERADMIN_PASSWORD"),
		SeedDemoUsers:          v.GetBool("SEED_DEMO_USERS"),
		RedisAddr:              v.GetString("REDIS_ADDR"),
		RedisDB:                getInt(v, "REDIS_DB"),
		RedisPass:              v.GetString("REDIS_PASSWORD"),
		JWTSecret:              v.GetString("JWT_SECRET"),
		JWTExpiry:              getDuration(v, "JWT_EXPIRY"),
		SwaggerHost:            v.GetString("SWAGGER_HOST"),
		LogLevel:               strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:              strings.ToLower(v.GetString("LOG_FORMAT")),
		CORSOrigins:            splitList(v.GetString("CORS_ORIGINS")),
		FrontendURL:            v.GetString("FRONTEND_URL"),
		ShutdownTimeout:        getDuration(v, "SHUTDOWN_TIMEOUT"),
		AuditRetentionDays:     getInt(v, "AUDIT_RETENTION_DAYS"),
		Reminder: ReminderConfig{
			InactivityThresholdDays: getInt(v, "INACTIVITY_THRESHOLD_DAYS"),
			MaxReminders:            getInt(v, "MAX_REMINDERS"),
			IntervalDays:            getInt(v, "REMINDER_INTERVAL_DAYS"),
			SendDelay:               getDuration(v, "REMINDER_SEND_DELAY"),
		},
		Cron: CronConfig{
			Enabled:          v.GetBool("CRON_ENABLED"),
			ReminderSchedule: v.GetString("REMINDER_CRON_SCHEDULE"),
			CleanupSchedule:  v.GetString("CLEANUP_CRON_SCHEDULE"),
			Timezone:         v.GetString("TZ"),
		},
		Mail: MailConfig{
			Driver:     strings.ToLower(v.GetString("MAIL_DRIVER")),
			SMTPHost:   v.GetString("SMTP_HOST"),
			SMTPPort:   getInt(v, "SMTP_PORT"),
			SMTPUser:   v.GetString("SMTP_USER"),
			SMTPPass:   v.GetString("SMTP_PASS"),
			From:       v.GetString("SMTP_FROM"),
			APIURL:     v.GetString("MAIL_API_URL"),
			APIKey:     v.GetString("MAIL_API_KEY"),
			MaxRetries: getInt(v, "MAIL_MAX_RETRIES"),
		},
	}
	if cfg.Mail.From == "" {
		cfg.Mail.From = cfg.Mail.SMTPUser
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Location resolves the scheduler timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Cron.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SMTPConfigured reports whether SMTP credentials were supplied.
func (m MailConfig) SMTPConfigured() bool {
	return m.SMTPUser != "" && m.SMTPPass != ""
}

// getInt parses key and falls back to the registered default on garbage input.
func getInt(v *viper.Viper, key string) int {
	if n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key))); err == nil {
		return n
	}
	n, _ := strconv.Atoi(fmt.Sprint(defaults[key]))
	return n
}

func getDuration(v *viper.Viper, key string) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key))); err == nil {
		return d
	}
	d, _ := time.ParseDuration(fmt.Sprint(defaults[key]))
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
