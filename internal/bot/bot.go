package bot

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-channel-scraper/cmd/bot/config"
	"telegram-channel-scraper/internal/adapters/exporter"
	"telegram-channel-scraper/internal/log"
)

const (
	startCommand  = "start"
	helpCommand   = "help"
	scrapeCommand = "scrape"

	// maxMessageLength — ограничение Telegram на длину текста сообщения.
	maxMessageLength = 4096
)

const helpText = "Я выгружаю сообщения публичных Telegram-каналов в таблицу.\n\n" +
	"Команда:\n" +
	"/scrape <канал> [канал...] [limit=N] [variant=full|filtered] [errors=abort|skip]\n\n" +
	"Пример: /scrape @shop_one shop_two limit=200 variant=filtered\n\n" +
	"• full — все сообщения с ценой, телефонами и адресом.\n" +
	"• filtered — только сообщения с текстом на амхарском.\n" +
	"• errors=skip — пропускать недоступные каналы вместо остановки."

// ServerAPI определяет методы бэкенд-сервера, которые использует бот.
type ServerAPI interface {
	StartScrape(ctx context.Context, req ScrapeRequest) (*StartTaskResponse, error)
	GetTaskStatus(ctx context.Context, taskID string) (*TaskStatusResponse, error)
	DownloadResult(ctx context.Context, taskID string) ([]byte, error)
}

// Bot представляет собой основной объект Telegram-бота.
type Bot struct {
	api          *tgbotapi.BotAPI
	cfg          config.BotConfig
	serverClient ServerAPI
	taskStore    *TaskStore
	logger       *slog.Logger

	sendFunc     func(tgbotapi.Chattable) (tgbotapi.Message, error)
	pollInterval time.Duration
	pollTimeout  time.Duration
	now          func() time.Time
	wg           sync.WaitGroup
}

// NewBot создает и инициализирует новый экземпляр бота.
func NewBot(cfg config.BotConfig, serverClient ServerAPI, taskStore *TaskStore, logger *slog.Logger) (*Bot, error) {
	// Логи библиотеки проходят через маскировщик токена
	if err := tgbotapi.SetLogger(&log.TGBotAPIAdapter{Logger: logger}); err != nil {
		return nil, fmt.Errorf("failed to set bot api logger: %w", err)
	}

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot api: %w", err)
	}

	logger.Info("Authorized on account", slog.String("username", api.Self.UserName))

	b := newBot(cfg, serverClient, taskStore, logger)
	b.api = api
	b.sendFunc = api.Send
	return b, nil
}

func newBot(cfg config.BotConfig, serverClient ServerAPI, taskStore *TaskStore, logger *slog.Logger) *Bot {
	if cfg.PollingIntervalSeconds <= 0 {
		cfg.PollingIntervalSeconds = config.DefaultPollingIntervalSeconds
	}
	return &Bot{
		cfg:          cfg,
		serverClient: serverClient,
		taskStore:    taskStore,
		logger:       logger,
		pollInterval: time.Duration(cfg.PollingIntervalSeconds) * time.Second,
		pollTimeout:  time.Duration(cfg.PollingTimeoutSeconds) * time.Second,
		now:          time.Now,
	}
}

// Start запускает основной цикл обработки обновлений от Telegram.
// Возвращается после отмены ctx и завершения всех опросов задач.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Context cancelled, stopping bot...")
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			return
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	b.reply(msg.Chat.ID, "Отправьте команду /scrape с именами каналов. Подробнее: /help")
}

// handleCommand обрабатывает команды.
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case startCommand, helpCommand:
		b.reply(msg.Chat.ID, helpText)
	case scrapeCommand:
		b.handleScrape(ctx, msg.Chat.ID, msg.CommandArguments())
	default:
		b.reply(msg.Chat.ID, "Я не знаю такой команды.")
	}
}

// handleScrape ставит выгрузку в очередь и запускает опрос статуса.
func (b *Bot) handleScrape(ctx context.Context, chatID int64, args string) {
	logger := b.logger.With(slog.Int64("chat_id", chatID))

	// 1. Разбираем аргументы.
	req, err := parseScrapeArgs(args, b.cfg)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Не удалось разобрать команду: %s\n\n%s", err, helpText))
		return
	}

	// 2. Занимаем чат, если в нем нет активной задачи.
	if !b.taskStore.Reserve(chatID) {
		logger.Warn("user tried to start a new task while another is active")
		b.reply(chatID, "Пожалуйста, подождите завершения предыдущей задачи, прежде чем начинать новую.")
		return
	}

	// 3. Запускаем задачу на бэкенде.
	startResp, err := b.serverClient.StartScrape(ctx, req)
	if err != nil {
		b.taskStore.Release(chatID)
		logger.Error("failed to start task on backend", slog.String("error", err.Error()))
		b.reply(chatID, "Не удалось запустить выгрузку на сервере. Пожалуйста, попробуйте позже.")
		return
	}

	taskID := startResp.TaskID
	logger.Info("task started on backend", slog.String("task_id", taskID), slog.Any("channels", req.Channels))

	// 4. Сохраняем task_id и запускаем опрос.
	b.taskStore.Assign(chatID, taskID)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.pollTaskStatus(ctx, chatID, taskID)
	}()

	b.reply(chatID, fmt.Sprintf("✅ Выгрузка %s поставлена в очередь (не более %d сообщений на канал). Ожидайте результата.",
		strings.Join(prefixed(req.Channels), ", "), req.MessageLimit))
}

// parseScrapeArgs разбирает аргументы команды /scrape.
func parseScrapeArgs(args string, cfg config.BotConfig) (ScrapeRequest, error) {
	req := ScrapeRequest{MessageLimit: cfg.DefaultMessageLimit}

	for _, token := range strings.Fields(strings.ReplaceAll(args, ",", " ")) {
		key, value, isOption := strings.Cut(token, "=")
		if !isOption {
			channel := strings.TrimPrefix(strings.TrimPrefix(token, "https://t.me/"), "@")
			if channel != "" {
				req.Channels = append(req.Channels, channel)
			}
			continue
		}

		switch strings.ToLower(key) {
		case "limit":
			n, err := strconv.Atoi(value)
			if err != nil || n <= 0 {
				return ScrapeRequest{}, fmt.Errorf("limit должен быть положительным числом")
			}
			if n > cfg.MaxMessageLimit {
				return ScrapeRequest{}, fmt.Errorf("limit не может превышать %d", cfg.MaxMessageLimit)
			}
			req.MessageLimit = n
		case "variant":
			switch value {
			case "full", "filtered":
				req.Variant = value
			default:
				return ScrapeRequest{}, fmt.Errorf("variant должен быть full или filtered")
			}
		case "errors":
			switch value {
			case "abort", "skip":
				req.OnChannelError = value
			default:
				return ScrapeRequest{}, fmt.Errorf("errors должен быть abort или skip")
			}
		default:
			return ScrapeRequest{}, fmt.Errorf("неизвестный параметр %q", key)
		}
	}

	if len(req.Channels) == 0 {
		return ScrapeRequest{}, errors.New("не указан ни один канал")
	}
	if len(req.Channels) > cfg.MaxChannelsPerRequest {
		return ScrapeRequest{}, fmt.Errorf("не более %d каналов за раз", cfg.MaxChannelsPerRequest)
	}
	return req, nil
}

// pollTaskStatus асинхронно опрашивает статус задачи на бэкенд-сервере.
func (b *Bot) pollTaskStatus(ctx context.Context, chatID int64, taskID string) {
	logger := b.logger.With(slog.Int64("chat_id", chatID), slog.String("task_id", taskID))
	defer b.taskStore.Release(chatID) // Гарантированно освобождаем чат по завершении.

	if b.pollTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.pollTimeout)
		defer cancel()
	}

	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				logger.Warn("polling timed out")
				b.reply(chatID, "Выгрузка выполняется слишком долго, опрос остановлен. Попробуйте позже.")
				return
			}
			logger.Warn("polling cancelled by context")
			return
		case <-ticker.C:
			logger.Debug("polling task status")
			status, err := b.serverClient.GetTaskStatus(ctx, taskID)
			if err != nil {
				logger.Error("failed to get task status", slog.String("error", err.Error()))
				continue
			}

			switch status.Status {
			case "completed":
				logger.Info("task completed")
				b.processCompletedTask(ctx, chatID, taskID, status)
				return
			case "failed":
				logger.Warn("task failed", slog.String("reason", status.ErrorMessage))
				b.reply(chatID, fmt.Sprintf("Произошла ошибка при выгрузке: %s", status.ErrorMessage))
				return
			case "pending", "processing":
				logger.Debug("task is in progress", slog.String("status", status.Status))
			default:
				logger.Warn("unknown task status", slog.String("status", status.Status))
			}
		}
	}
}

// processCompletedTask скачивает результат и отправляет его пользователю.
func (b *Bot) processCompletedTask(ctx context.Context, chatID int64, taskID string, status *TaskStatusResponse) {
	logger := b.logger.With(slog.Int64("chat_id", chatID), slog.String("task_id", taskID))

	data, err := b.serverClient.DownloadResult(ctx, taskID)
	if err != nil {
		logger.Error("failed to download result", slog.String("error", err.Error()))
		b.reply(chatID, "Не удалось получить результат выполненной задачи. Пожалуйста, попробуйте позже.")
		return
	}

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil || len(rows) == 0 {
		logger.Error("failed to parse result csv", slog.Any("error", err))
		b.reply(chatID, "Сервер вернул некорректный результат.")
		return
	}

	summary := summaryText(status.Summary, len(rows)-1)
	if len(rows) == 1 {
		b.reply(chatID, summary+"\n\nПодходящих сообщений не найдено.")
		return
	}

	b.sendPreview(chatID, rows)

	stamp := b.now().Format("2006-01-02_15-04-05")
	if len(rows)-1 >= b.cfg.ExcelThreshold {
		logger.Info("row count is over threshold, sending excel file", slog.Int("rows", len(rows)-1))
		var buf bytes.Buffer
		if err := exporter.WriteXLSX(&buf, "Messages", rows); err != nil {
			logger.Error("failed to write excel", slog.String("error", err.Error()))
			b.reply(chatID, "Не удалось сгенерировать Excel-файл.")
			return
		}
		b.sendDocument(chatID, fmt.Sprintf("telegram_data_%s.xlsx", stamp), buf.Bytes(), summary)
		return
	}

	b.sendDocument(chatID, fmt.Sprintf("telegram_data_%s.csv", stamp), data, summary)
}

// sendPreview отправляет первые строки результата моноширинной таблицей.
func (b *Bot) sendPreview(chatID int64, rows [][]string) {
	n := b.cfg.Preview.Rows
	if n <= 0 {
		return
	}
	if n > len(rows)-1 {
		n = len(rows) - 1
	}

	var table strings.Builder
	if err := exporter.RenderTable(&table, rows[:n+1], b.cfg.Preview.ColumnWidth); err != nil {
		b.logger.Error("failed to render preview", slog.String("error", err.Error()))
		return
	}

	text := "<pre>" + html.EscapeString(table.String()) + "</pre>"
	if len(text) > maxMessageLength {
		b.logger.Debug("preview is too long, skipping", slog.Int("length", len(text)))
		return
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	b.send(msg)
}

func (b *Bot) sendDocument(chatID int64, name string, data []byte, caption string) {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = caption
	b.send(doc)
}

func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(msg tgbotapi.Chattable) {
	if _, err := b.sendFunc(msg); err != nil {
		b.logger.Error("failed to send message", slog.String("error", err.Error()))
	}
}

// summaryText описывает итоги выгрузки для подписи к файлу.
func summaryText(s *SummaryDTO, rows int) string {
	if s == nil {
		return fmt.Sprintf("Выгрузка завершена: %d строк.", rows)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Выгрузка завершена: %d строк", s.Rows)
	if s.Suppressed > 0 {
		fmt.Fprintf(&sb, ", отфильтровано %d", s.Suppressed)
	}
	sb.WriteString(".")
	for _, ch := range s.Channels {
		switch {
		case ch.Skipped:
			fmt.Fprintf(&sb, "\n@%s: пропущен", ch.Username)
		case ch.Error != "":
			fmt.Fprintf(&sb, "\n@%s: ошибка", ch.Username)
		default:
			fmt.Fprintf(&sb, "\n@%s: %d", ch.Username, ch.Rows)
		}
	}
	return sb.String()
}

func prefixed(channels []string) []string {
	out := make([]string, len(channels))
	for i, ch := range channels {
		out[i] = "@" + ch
	}
	return out
}
