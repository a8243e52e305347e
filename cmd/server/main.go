package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telegram-channel-scraper/internal/adapters/exporter"
	"telegram-channel-scraper/internal/cache"
	"telegram-channel-scraper/internal/core/services"
	"telegram-channel-scraper/internal/log"
	"telegram-channel-scraper/internal/pkg/config"
	"telegram-channel-scraper/internal/server"
	"telegram-channel-scraper/internal/server/usecase"
	"telegram-channel-scraper/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}

// run инкапсулирует всю логику инициализации и запуска приложения.
func run() error {
	configPath := flag.String("config", config.DefaultConfigPath, "путь к файлу конфигурации")
	flag.Parse()

	// 1. Загрузка конфигурации
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		// Логгер еще не инициализирован, выводим в stderr
		_, _ = fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализация логгера, хэш API и номер телефона маскируются
	logger := log.New(os.Stdout, cfg.Logging.Level, cfg.Logging.Format, cfg.TelegramAPI.APIHash, cfg.TelegramAPI.PhoneNumber)
	slog.SetDefault(logger)

	// 3. Валидация конфигурации (после инициализации логгера)
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

	// 4. Инициализация и запуск клиента Telegram
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

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
	tgClient.Start(appCtx)

	go watchHealth(appCtx, tgClient, cfg.TelegramAPI.HealthCheckInterval, logger)

	// 5. Инициализация зависимостей
	taskStore := server.NewTaskStore()
	cacheStore := cache.NewCacheStore()
	scraper := services.NewScraperService(tgClient, extractor, exporter.NewCSVWriter,
		services.WithScraperLogger(logger.With("component", "scraper")),
	)
	runner := usecase.NewScrapeRunUseCase(scraper, cacheStore, cfg.Server.ResultsDir, cfg.Processing.CacheTTL, logger)

	// 6. Создание HTTP-сервера
	srv, err := server.New(appCtx, cfg, runner, tgClient, taskStore, cacheStore, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// 7. Запуск сервера и graceful shutdown
	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		slog.Info("Starting server", "addr", cfg.Address())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("Signal received, shutting down...")
	case <-serverDone:
		slog.Warn("HTTP server stopped unexpectedly, shutting down...")
	}

	// Сначала останавливаем прием запросов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	<-serverDone
	slog.Info("HTTP server stopped")

	// Затем отменяем контекст приложения: задачи, очистка и клиент Telegram
	appCancel()
	slog.Info("Application context canceled, waiting for telegram client to stop...")
	if err := tgClient.Wait(); err != nil {
		slog.Warn("Telegram client stopped with error", "error", err)
	}

	slog.Info("Application exited gracefully")
	return nil
}

// watchHealth периодически проверяет клиент Telegram и пишет смену состояния в лог.
func watchHealth(ctx context.Context, client *telegram.Client, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	healthy := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, interval)
			err := client.Health(checkCtx)
			cancel()

			switch {
			case err != nil && healthy:
				logger.Warn("Telegram client became unhealthy", "client_id", client.ID(), "error", err)
			case err == nil && !healthy:
				logger.Info("Telegram client is healthy again", "client_id", client.ID())
			}
			healthy = err == nil
		}
	}
}
