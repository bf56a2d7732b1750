package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TOKEN", "tkn")
	t.Setenv("ADMIN_ID", "42")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "tkn", cfg.Telegram.Token)
	assert.Equal(t, int64(42), cfg.Admin.ID)
	assert.Equal(t, StorageSQLite, cfg.Storage)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, 24*time.Hour, cfg.Redis.SessionTTL)
	assert.Equal(t, 3, cfg.Notify.Retries)
	assert.Equal(t, 500*time.Millisecond, cfg.Notify.Backoff)
	assert.Equal(t, 1.0, cfg.Script.PauseScale)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_BadNumbers(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"DB_PORT", "abc"},
		{"ADMIN_ID", "admin"},
		{"SESSION_TTL", "forever"},
		{"NOTIFY_RETRIES", "many"},
		{"PAUSE_SCALE", "slow"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.ErrorContains(t, err, tt.key)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Telegram: TelegramConfig{Token: "t"},
			Admin:    AdminConfig{ID: 1},
			Storage:  StoragePostgres,
			Notify:   NotifyConfig{Retries: 1},
		}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"ok", func(*Config) {}, ""},
		{"no token", func(c *Config) { c.Telegram.Token = "" }, "TOKEN"},
		{"no admin", func(c *Config) { c.Admin.ID = 0 }, "ADMIN_ID"},
		{"bad storage", func(c *Config) { c.Storage = "files" }, "STORAGE"},
		{"no retries", func(c *Config) { c.Notify.Retries = 0 }, "NOTIFY_RETRIES"},
		{"negative pause", func(c *Config) { c.Script.PauseScale = -1 }, "PAUSE_SCALE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestDBConfigURL(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "cafe"}
	assert.Equal(t, "postgres://u:p@db:5433/cafe", c.URL())
}
