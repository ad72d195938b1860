package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("COFFEEDUTY_DATABASE_ENGINE", "postgres")
	t.Setenv("COFFEEDUTY_EMAIL_SENDTIMEOUT", "3s")
	t.Setenv("COFFEEDUTY_AUTH_SCHEDULERTOKEN", "cron-secret")

	conf, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, "TEST", conf.Env)
	assert.True(t, conf.TestMode)
	assert.Equal(t, EnginePostgres, conf.Database.Engine)
	assert.Equal(t, 3*time.Second, conf.Email.SendTimeout)
	assert.Equal(t, "cron-secret", conf.Auth.SchedulerToken)
	assert.Equal(t, EmailConsole, conf.Email.Backend)
	assert.Equal(t, "Europe/Ljubljana", conf.Schedule.Timezone)
	assert.Equal(t, "localhost:5432", conf.Database.Address())
}

func TestNewConfig_ProductionNeedsSecret(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("COFFEEDUTY_DEBUG", "false")

	_, err := NewConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secretKey")

	t.Setenv("COFFEEDUTY_AUTH_SECRETKEY", "s3cr3t-from-vault")
	conf, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t-from-vault", conf.Auth.SecretKey)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Debug:    true,
			Auth:     AuthConfig{SecretKey: devSecretKey},
			Database: DatabaseConfig{Engine: EngineSQLite},
			Email:    EmailConfig{Backend: EmailConsole, SendTimeout: time.Second},
			Schedule: ScheduleConfig{Timezone: "Europe/Ljubljana"},
		}
	}
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"engine", func(c *Config) { c.Database.Engine = "mysql" }, "unsupported database engine"},
		{"backend", func(c *Config) { c.Email.Backend = "smtp" }, "unsupported email backend"},
		{"timezone", func(c *Config) { c.Schedule.Timezone = "Europe/Atlantis" }, "schedule timezone"},
		{"timeout", func(c *Config) { c.Email.SendTimeout = 0 }, "send timeout"},
		{"dev secret in production", func(c *Config) { c.Debug = false; c.Auth.SecretKey = devSecretKey }, "secretKey"},
		{"empty secret in production", func(c *Config) { c.Debug = false; c.Auth.SecretKey = "" }, "secretKey"},
		{"own secret in production", func(c *Config) { c.Debug = false; c.Auth.SecretKey = "s3cr3t-from-vault" }, ""},
		{"dev secret in tests", func(c *Config) { c.Debug = false; c.TestMode = true; c.Auth.SecretKey = devSecretKey }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.modify(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
