package config

import "time"

// Default values for configuration.
const (
	DefaultConfigPath = "config.yml"

	// Telegram API defaults
	DefaultSessionFile          = "tg.session"
	DefaultHealthCheckInterval  = 30 * time.Second
	DefaultTelegramRequestDelay = 0 * time.Second
	DefaultHistoryBatchSize     = 100

	// Scraper defaults
	DefaultOutputPath       = "telegram_data.csv"
	DefaultMessageLimit     = 1000
	DefaultMediaDir         = "photos"
	DefaultScriptRange      = "1200-137F"
	DefaultScriptExtraChars = `"`

	// Server defaults
	DefaultServerHost      = "0.0.0.0"
	DefaultServerPort      = 8080
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultCleanupInterval = 1 * time.Hour
	DefaultTaskTTL         = 24 * time.Hour
	DefaultResultsDir      = "results"

	// Processing defaults
	DefaultTaskTimeout = 600 * time.Second
	DefaultCacheTTL    = 60 * time.Minute

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)
