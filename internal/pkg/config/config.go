// Package config предоставляет управление конфигурацией приложения
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"telegram-channel-scraper/internal/domain"
)

// TelegramAPI содержит конфигурацию подключения к Telegram API
type TelegramAPI struct {
	APIID               int           `yaml:"api_id"`
	APIHash             string        `yaml:"api_hash"`
	PhoneNumber         string        `yaml:"phone_number"`
	SessionFile         string        `yaml:"session_file"`
	RequestDelay        time.Duration `yaml:"request_delay"`
	HistoryBatchSize    int           `yaml:"history_batch_size"`
	HealthCheckInterval time.Duration `yaml:"health_check_interval"`
}

// Script описывает класс символов «текста письменности»
type Script struct {
	Ranges      []string `yaml:"ranges"` // "1200-137F"
	ExtraChars  string   `yaml:"extra_chars"`
	Whitespace  bool     `yaml:"whitespace"`
	Digits      bool     `yaml:"digits"`
	Punctuation bool     `yaml:"punctuation"`
}

// Scraper содержит параметры запуска скрапера по умолчанию
type Scraper struct {
	Channels       []string `yaml:"channels"`
	OutputPath     string   `yaml:"output_path"`
	MessageLimit   int      `yaml:"message_limit"`
	MediaDir       string   `yaml:"media_dir"`
	Variant        string   `yaml:"variant"`
	OnChannelError string   `yaml:"on_channel_error"`
	Script         Script   `yaml:"script"`
}

// Server содержит конфигурацию HTTP-сервера
type Server struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	TaskTTL         time.Duration `yaml:"task_ttl"`
	ResultsDir      string        `yaml:"results_dir"`
}

// Processing содержит конфигурацию обработки задач
type Processing struct {
	TaskTimeout time.Duration `yaml:"task_timeout"` // 0 - без ограничений
	CacheTTL    time.Duration `yaml:"cache_ttl"`
}

// Logging содержит конфигурацию логирования
type Logging struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Config содержит конфигурацию приложения
type Config struct {
	TelegramAPI TelegramAPI `yaml:"telegram_api"`
	Scraper     Scraper     `yaml:"scraper"`
	Server      Server      `yaml:"server"`
	Processing  Processing  `yaml:"processing"`
	Logging     Logging     `yaml:"logging"`
}

// defaultConfig возвращает конфигурацию со значениями по умолчанию
func defaultConfig() *Config {
	return &Config{
		TelegramAPI: TelegramAPI{
			SessionFile:         DefaultSessionFile,
			RequestDelay:        DefaultTelegramRequestDelay,
			HistoryBatchSize:    DefaultHistoryBatchSize,
			HealthCheckInterval: DefaultHealthCheckInterval,
		},
		Scraper: Scraper{
			OutputPath:     DefaultOutputPath,
			MessageLimit:   DefaultMessageLimit,
			MediaDir:       DefaultMediaDir,
			Variant:        string(domain.VariantFull),
			OnChannelError: string(domain.OnChannelErrorAbort),
			Script: Script{
				Ranges:     []string{DefaultScriptRange},
				ExtraChars: DefaultScriptExtraChars,
				Whitespace: true,
			},
		},
		Server: Server{
			Host:            DefaultServerHost,
			Port:            DefaultServerPort,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			IdleTimeout:     DefaultIdleTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
			CleanupInterval: DefaultCleanupInterval,
			TaskTTL:         DefaultTaskTTL,
			ResultsDir:      DefaultResultsDir,
		},
		Processing: Processing{
			TaskTimeout: DefaultTaskTimeout,
			CacheTTL:    DefaultCacheTTL,
		},
		Logging: Logging{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// LoadConfig загружает конфигурацию: значения по умолчанию, затем YAML-файл, затем переменные окружения.
// Переменные окружения дополнительно читаются из .env, если он существует.
func LoadConfig(path string) (*Config, error) {
	// Отсутствие .env - это нормально
	_ = godotenv.Load()

	cfg := defaultConfig()
	if path == "" {
		path = DefaultConfigPath
	}
	if err := loadFromYAML(path, cfg); err != nil {
		return nil, err
	}
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию из env: %w", err)
	}

	return cfg, nil
}

// loadFromYAML накладывает YAML-файл на cfg. Отсутствующий файл ошибкой не считается.
func loadFromYAML(filename string, cfg *Config) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("не удалось прочитать файл конфигурации %s: %w", filename, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("не удалось разобрать YAML конфигурацию: %w", err)
	}

	return nil
}

// loadFromEnv переопределяет значения из переменных окружения
func loadFromEnv(cfg *Config) error {
	if v := os.Getenv("TG_API_ID"); v != "" {
		apiID, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("недопустимый TG_API_ID: %w", err)
		}
		cfg.TelegramAPI.APIID = apiID
	}
	if v := os.Getenv("TG_API_HASH"); v != "" {
		cfg.TelegramAPI.APIHash = v
	}
	if v := os.Getenv("TG_PHONE_NUMBER"); v != "" {
		cfg.TelegramAPI.PhoneNumber = v
	}
	if v := os.Getenv("TG_SESSION_FILE"); v != "" {
		cfg.TelegramAPI.SessionFile = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	return nil
}

// Address возвращает адрес сервера в формате "host:port"
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ScriptClass собирает класс символов письменности из конфигурации
func (c *Config) ScriptClass() (domain.ScriptClass, error) {
	sc := domain.ScriptClass{
		ExtraChars:  c.Scraper.Script.ExtraChars,
		Whitespace:  c.Scraper.Script.Whitespace,
		Digits:      c.Scraper.Script.Digits,
		Punctuation: c.Scraper.Script.Punctuation,
	}
	for _, r := range c.Scraper.Script.Ranges {
		rr, err := domain.ParseRuneRange(r)
		if err != nil {
			return domain.ScriptClass{}, fmt.Errorf("scraper.script.ranges: %w", err)
		}
		sc.Ranges = append(sc.Ranges, rr)
	}
	return sc, nil
}

// Validate проверяет, являются ли значения конфигурации допустимыми
func (c *Config) Validate() error {
	// Валидация Telegram API
	if c.TelegramAPI.APIID <= 0 {
		return fmt.Errorf("telegram_api.api_id должно быть положительным целым числом")
	}
	if c.TelegramAPI.APIHash == "" {
		return fmt.Errorf("telegram_api.api_hash не может быть пустым")
	}
	if c.TelegramAPI.PhoneNumber == "" {
		return fmt.Errorf("telegram_api.phone_number не может быть пустым")
	}
	if c.TelegramAPI.SessionFile == "" {
		return fmt.Errorf("telegram_api.session_file не может быть пустым")
	}
	if c.TelegramAPI.RequestDelay < 0 {
		return fmt.Errorf("telegram_api.request_delay должно быть неотрицательным")
	}
	if c.TelegramAPI.HistoryBatchSize < 1 || c.TelegramAPI.HistoryBatchSize > 100 {
		return fmt.Errorf("telegram_api.history_batch_size должно быть в диапазоне 1-100")
	}
	if c.TelegramAPI.HealthCheckInterval <= 0 {
		return fmt.Errorf("telegram_api.health_check_interval должно быть положительным")
	}

	// Валидация скрапера
	if c.Scraper.MessageLimit <= 0 {
		return fmt.Errorf("scraper.message_limit должно быть положительным")
	}
	switch domain.Variant(c.Scraper.Variant) {
	case domain.VariantFull, domain.VariantFiltered:
	default:
		return fmt.Errorf("scraper.variant должен быть одним из: full, filtered")
	}
	switch domain.ChannelErrorPolicy(c.Scraper.OnChannelError) {
	case domain.OnChannelErrorAbort, domain.OnChannelErrorSkip:
	default:
		return fmt.Errorf("scraper.on_channel_error должен быть одним из: abort, skip")
	}
	if _, err := c.ScriptClass(); err != nil {
		return err
	}

	// Валидация сервера
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port должен быть действительным номером порта (1-65535)")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout должно быть положительным")
	}
	if c.Server.CleanupInterval <= 0 {
		return fmt.Errorf("server.cleanup_interval должно быть положительным")
	}
	if c.Server.TaskTTL <= 0 {
		return fmt.Errorf("server.task_ttl должно быть положительным")
	}
	if c.Server.ResultsDir == "" {
		return fmt.Errorf("server.results_dir не может быть пустым")
	}

	if c.Processing.TaskTimeout < 0 {
		return fmt.Errorf("processing.task_timeout должно быть неотрицательным (0 для отсутствия ограничений)")
	}
	if c.Processing.CacheTTL <= 0 {
		return fmt.Errorf("processing.cache_ttl должно быть положительным")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level должен быть одним из: debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format должен быть одним из: json, text")
	}

	return nil
}
