package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, "JPY", cfg.BaseCurrency)
	assert.Equal(t, 730, cfg.HistoryDays)
	assert.NotEmpty(t, cfg.DatabasePath)
	assert.NotEmpty(t, cfg.HistoryDir)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("BASE_CURRENCY", "USD")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("HISTORY_DAYS", "365")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, "USD", cfg.BaseCurrency)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, 365, cfg.HistoryDays)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing database path", func(c *Config) { c.DatabasePath = "" }, true},
		{"missing history dir", func(c *Config) { c.HistoryDir = "" }, true},
		{"bad base currency", func(c *Config) { c.BaseCurrency = "YEN$" }, true},
		{"zero history days", func(c *Config) { c.HistoryDays = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				DatabasePath: "./data/sentry.db",
				HistoryDir:   "./data/history",
				BaseCurrency: "JPY",
				HistoryDays:  730,
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
