package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bot_config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadBotConfig(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")

	t.Run("defaults are applied", func(t *testing.T) {
		cfg, err := LoadBotConfig(writeConfig(t, "bot:\n  token: \"123:abc\"\n  backend_url: \"http://localhost:8080\"\n"))
		require.NoError(t, err)

		assert.Equal(t, DefaultPollingIntervalSeconds, cfg.Bot.PollingIntervalSeconds)
		assert.Equal(t, DefaultExcelThreshold, cfg.Bot.ExcelThreshold)
		assert.Equal(t, DefaultPreviewRows, cfg.Bot.Preview.Rows)
		assert.Equal(t, "json", cfg.Logging.Format)
		assert.NoError(t, cfg.ValidateFull())
	})

	t.Run("token from env", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "999:env")
		cfg, err := LoadBotConfig(writeConfig(t, "bot:\n  backend_url: \"http://x\"\n"))
		require.NoError(t, err)
		assert.Equal(t, "999:env", cfg.Bot.Token)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadBotConfig(filepath.Join(t.TempDir(), "nope.yml"))
		assert.Error(t, err)
	})
}

func TestBotConfig_Validate(t *testing.T) {
	valid := func() Config {
		c := Config{Bot: BotConfig{Token: "123:abc", BackendURL: "http://x"}}
		c.applyDefaults()
		return c
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"placeholder token", func(c *Config) { c.Bot.Token = "YOUR_TELEGRAM_BOT_TOKEN" }},
		{"empty backend", func(c *Config) { c.Bot.BackendURL = "" }},
		{"default limit above max", func(c *Config) { c.Bot.DefaultMessageLimit = c.Bot.MaxMessageLimit + 1 }},
		{"negative preview", func(c *Config) { c.Bot.Preview.Rows = -1 }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	base := valid()
	require.NoError(t, base.ValidateFull())

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			tc.mutate(&c)
			assert.Error(t, c.ValidateFull())
		})
	}
}
