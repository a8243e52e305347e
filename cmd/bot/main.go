package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telegram-channel-scraper/cmd/bot/config"
	"telegram-channel-scraper/internal/bot"
	"telegram-channel-scraper/internal/log"
)

func main() {
	configPath := flag.String("config", "bot_config.yml", "путь к файлу конфигурации бота")
	flag.Parse()

	// Загрузка конфигурации бота
	cfg, err := config.LoadBotConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load bot config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.ValidateFull(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to validate bot config: %v\n", err)
		os.Exit(1)
	}

	// Логгер маскирует токен бота во всех записях
	logger := log.New(os.Stdout, cfg.Logging.Level, cfg.Logging.Format, cfg.Bot.Token)
	slog.SetDefault(logger)

	// Инициализация компонентов
	taskStore := bot.NewTaskStore()
	serverClient := bot.NewServerClient(cfg.Bot.BackendURL, time.Duration(cfg.Bot.HTTPTimeoutSeconds)*time.Second)

	b, err := bot.NewBot(cfg.Bot, serverClient, taskStore, logger.With(slog.String("component", "bot")))
	if err != nil {
		slog.Error("failed to create bot", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("Bot created successfully, starting...", slog.String("backend_url", cfg.Bot.BackendURL))

	// Ожидание сигналов для graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start возвращается после отмены контекста и завершения опросов задач
	b.Start(ctx)

	slog.Info("Bot stopped gracefully")
}
