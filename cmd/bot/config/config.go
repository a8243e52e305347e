package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// PreviewConfig определяет текстовый предпросмотр результата в чате.
type PreviewConfig struct {
	Rows        int `yaml:"rows"`
	ColumnWidth int `yaml:"column_width"`
}

// BotConfig содержит конфигурацию для Telegram-бота
type BotConfig struct {
	Token                  string        `yaml:"token"`
	BackendURL             string        `yaml:"backend_url"`
	PollingIntervalSeconds int           `yaml:"polling_interval_seconds"`
	PollingTimeoutSeconds  int           `yaml:"polling_timeout_seconds"`
	ExcelThreshold         int           `yaml:"excel_threshold"`
	DefaultMessageLimit    int           `yaml:"default_message_limit"`
	MaxMessageLimit        int           `yaml:"max_message_limit"`
	MaxChannelsPerRequest  int           `yaml:"max_channels_per_request"`
	HTTPTimeoutSeconds     int           `yaml:"http_timeout_seconds"`
	Preview                PreviewConfig `yaml:"preview"`
}

// Logging содержит настройки логирования бота.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config является оберткой для соответствия структуре YAML файла.
type Config struct {
	Bot     BotConfig `yaml:"bot"`
	Logging Logging   `yaml:"logging"`
}

// LoadBotConfig загружает конфигурацию бота из указанного файла.
// Переменная окружения BOT_TOKEN переопределяет токен из файла.
func LoadBotConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read bot config file %s: %w", filename, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bot config: %w", err)
	}

	if token := os.Getenv("BOT_TOKEN"); token != "" {
		cfg.Bot.Token = token
	}
	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults заполняет незаданные значения.
func (c *Config) applyDefaults() {
	b := &c.Bot
	if b.PollingIntervalSeconds == 0 {
		b.PollingIntervalSeconds = DefaultPollingIntervalSeconds
	}
	if b.PollingTimeoutSeconds == 0 {
		b.PollingTimeoutSeconds = DefaultPollingTimeoutSeconds
	}
	if b.ExcelThreshold == 0 {
		b.ExcelThreshold = DefaultExcelThreshold
	}
	if b.DefaultMessageLimit == 0 {
		b.DefaultMessageLimit = DefaultMessageLimit
	}
	if b.MaxMessageLimit == 0 {
		b.MaxMessageLimit = DefaultMaxMessageLimit
	}
	if b.MaxChannelsPerRequest == 0 {
		b.MaxChannelsPerRequest = DefaultMaxChannelsPerRequest
	}
	if b.HTTPTimeoutSeconds == 0 {
		b.HTTPTimeoutSeconds = DefaultHTTPTimeoutSeconds
	}
	if b.Preview.Rows == 0 {
		b.Preview.Rows = DefaultPreviewRows
	}
	if b.Preview.ColumnWidth == 0 {
		b.Preview.ColumnWidth = DefaultPreviewColumnWidth
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate проверяет корректность конфигурации бота.
func (c *BotConfig) Validate() error {
	if c.Token == "" || c.Token == "YOUR_TELEGRAM_BOT_TOKEN" {
		return fmt.Errorf("bot.token is not configured")
	}
	if c.BackendURL == "" {
		return fmt.Errorf("bot.backend_url cannot be empty")
	}
	if c.PollingIntervalSeconds <= 0 {
		return fmt.Errorf("bot.polling_interval_seconds must be positive")
	}
	if c.PollingTimeoutSeconds <= 0 {
		return fmt.Errorf("bot.polling_timeout_seconds must be positive")
	}
	if c.ExcelThreshold <= 0 {
		return fmt.Errorf("bot.excel_threshold must be positive")
	}
	if c.DefaultMessageLimit <= 0 || c.DefaultMessageLimit > c.MaxMessageLimit {
		return fmt.Errorf("bot.default_message_limit must be in 1..max_message_limit")
	}
	if c.MaxChannelsPerRequest <= 0 {
		return fmt.Errorf("bot.max_channels_per_request must be positive")
	}
	if c.Preview.Rows < 0 {
		return fmt.Errorf("bot.preview.rows cannot be negative")
	}
	return nil
}

// ValidateFull проверяет всю конфигурацию, включая логирование.
func (c *Config) ValidateFull() error {
	if err := c.Bot.Validate(); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text")
	}
	return nil
}
