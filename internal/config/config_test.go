package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TZ", "")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.ServerPort)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 7, cfg.Reminder.InactivityThresholdDays)
	assert.Equal(t, 3, cfg.Reminder.MaxReminders)
	assert.Equal(t, 1, cfg.Reminder.IntervalDays)
	assert.Equal(t, time.Second, cfg.Reminder.SendDelay)
	assert.Equal(t, "5 23 * * *", cfg.Cron.ReminderSchedule)
	assert.Equal(t, "0 2 * * 0", cfg.Cron.CleanupSchedule)
	assert.Equal(t, "Asia/Kolkata", cfg.Cron.Timezone)
	assert.Equal(t, 587, cfg.Mail.SMTPPort)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.Mail.SMTPConfigured())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("MAX_REMINDERS", "5")
	t.Setenv("INACTIVITY_THRESHOLD_DAYS", "not-a-number")
	t.Setenv("REMINDER_SEND_DELAY", "garbage")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test ,")
	t.Setenv("SMTP_USER", "bot@example.com")
	t.Setenv("SMTP_PASS", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 5, cfg.Reminder.MaxReminders)
	assert.Equal(t, 7, cfg.Reminder.InactivityThresholdDays)
	assert.Equal(t, time.Second, cfg.Reminder.SendDelay)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.True(t, cfg.Mail.SMTPConfigured())
	assert.Equal(t, "bot@example.com", cfg.Mail.From)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server_port: \"9000\"\nmax_reminders: 4\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("MAX_REMINDERS", "6")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.ServerPort)
	assert.Equal(t, 6, cfg.Reminder.MaxReminders, "env wins over file")
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "unknown driver", key: "DB_DRIVER", val: "postgres"},
		{name: "unknown mail driver", key: "MAIL_DRIVER", val: "carrier-pigeon"},
		{name: "zero reminders", key: "MAX_REMINDERS", val: "0"},
		{name: "bad log level", key: "LOG_LEVEL", val: "verbose"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLocation(t *testing.T) {
	cfg := &Config{Cron: CronConfig{Timezone: "Asia/Kolkata"}}
	assert.Equal(t, "Asia/Kolkata", cfg.Location().String())

	cfg.Cron.Timezone = "Mars/Olympus"
	assert.Equal(t, time.UTC, cfg.Location())
}
