package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"telegram-channel-scraper/internal/adapters/exporter"
	"telegram-channel-scraper/internal/core/services"
	"telegram-channel-scraper/internal/domain"
	"telegram-channel-scraper/internal/log"
	"telegram-channel-scraper/internal/pkg/config"
	"telegram-channel-scraper/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		slog.Error("scrape failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath     = flag.String("config", config.DefaultConfigPath, "путь к файлу конфигурации")
		channels       = flag.String("channels", "", "список каналов через запятую (переопределяет конфигурацию)")
		output         = flag.String("output", "", "путь к выходному CSV")
		limit          = flag.Int("limit", 0, "максимум сообщений на канал")
		mediaDir       = flag.String("media-dir", "", "каталог для фотографий")
		variant        = flag.String("variant", "", "вариант выгрузки: full или filtered")
		onChannelError = flag.String("on-channel-error", "", "поведение при ошибке канала: abort или skip")
		showProgress   = flag.Bool("progress", true, "показывать прогресс")
	)
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg, *channels, *output, *limit, *mediaDir, *variant, *onChannelError)

	// Логи идут в stderr, чтобы не смешиваться со сводкой
	logger := log.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format, cfg.TelegramAPI.APIHash, cfg.TelegramAPI.PhoneNumber)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	script, err := cfg.ScriptClass()
	if err != nil {
		return fmt.Errorf("invalid script class: %w", err)
	}
	extractor, err := services.NewExtractionService(script)
	if err != nil {
		return fmt.Errorf("failed to build extractor: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clientCtx, clientCancel := context.WithCancel(ctx)
	defer clientCancel()

	tgClient := telegram.NewClient(telegram.Config{
		APIID:       cfg.TelegramAPI.APIID,
		APIHash:     cfg.TelegramAPI.APIHash,
		PhoneNumber: cfg.TelegramAPI.PhoneNumber,
		SessionPath: cfg.TelegramAPI.SessionFile,
	},
		telegram.WithLogger(logger.With("component", "telegram")),
		telegram.WithRequestDelay(cfg.TelegramAPI.RequestDelay),
		telegram.WithHistoryBatchSize(cfg.TelegramAPI.HistoryBatchSize),
	)
	tgClient.Start(clientCtx)

	opts := []services.ScraperOption{services.WithScraperLogger(logger.With("component", "scraper"))}
	if *showProgress {
		opts = append(opts, services.WithProgress(newBarProgress(os.Stderr)))
	}
	scraper := services.NewScraperService(tgClient, extractor, exporter.NewCSVWriter, opts...)

	summary, runErr := scraper.Run(ctx, services.Request{
		Channels:       cfg.Scraper.Channels,
		OutputPath:     cfg.Scraper.OutputPath,
		MessageLimit:   cfg.Scraper.MessageLimit,
		MediaDir:       cfg.Scraper.MediaDir,
		Variant:        domain.Variant(cfg.Scraper.Variant),
		OnChannelError: domain.ChannelErrorPolicy(cfg.Scraper.OnChannelError),
	})

	// Сводка печатается и для прерванного запуска: строки до ошибки уже в файле
	if summary != nil {
		if err := exporter.NewConsoleExporter().Export(summary); err != nil {
			slog.Warn("failed to print summary", "error", err)
		}
	}

	clientCancel()
	if err := tgClient.Wait(); err != nil && !errors.Is(err, domain.ErrAuthentication) {
		slog.Warn("telegram client stopped with error", "error", err)
	}

	return runErr
}

// applyFlags переопределяет секцию scraper значениями из командной строки.
func applyFlags(cfg *config.Config, channels, output string, limit int, mediaDir, variant, onChannelError string) {
	if channels != "" {
		cfg.Scraper.Channels = nil
		for _, ch := range strings.Split(channels, ",") {
			if ch = strings.TrimSpace(ch); ch != "" {
				cfg.Scraper.Channels = append(cfg.Scraper.Channels, ch)
			}
		}
	}
	if output != "" {
		cfg.Scraper.OutputPath = output
	}
	if limit != 0 {
		cfg.Scraper.MessageLimit = limit
	}
	if mediaDir != "" {
		cfg.Scraper.MediaDir = mediaDir
	}
	if variant != "" {
		cfg.Scraper.Variant = variant
	}
	if onChannelError != "" {
		cfg.Scraper.OnChannelError = onChannelError
	}
}
