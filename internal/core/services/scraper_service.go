package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"telegram-channel-scraper/internal/domain"
	"telegram-channel-scraper/internal/ports"
)

// Request — параметры одного запуска.
type Request struct {
	Channels       []string
	OutputPath     string
	MessageLimit   int
	MediaDir       string // пустая строка отключает скачивание фото
	Variant        domain.Variant
	OnChannelError domain.ChannelErrorPolicy
}

// Normalize подставляет значения по умолчанию и убирает ведущий @ из имен каналов.
func (r Request) Normalize() Request {
	channels := make([]string, 0, len(r.Channels))
	for _, ch := range r.Channels {
		ch = strings.TrimPrefix(strings.TrimSpace(ch), "@")
		if ch != "" {
			channels = append(channels, ch)
		}
	}
	r.Channels = channels
	if r.Variant == "" {
		r.Variant = domain.VariantFull
	}
	if r.OnChannelError == "" {
		r.OnChannelError = domain.OnChannelErrorAbort
	}
	return r
}

// Validate проверяет параметры запуска.
func (r Request) Validate() error {
	if len(r.Channels) == 0 {
		return fmt.Errorf("%w: no channels given", domain.ErrInvalidRequest)
	}
	if r.OutputPath == "" {
		return fmt.Errorf("%w: output path is empty", domain.ErrInvalidRequest)
	}
	if r.MessageLimit <= 0 {
		return fmt.Errorf("%w: message limit must be positive, got %d", domain.ErrInvalidRequest, r.MessageLimit)
	}
	if _, ok := layouts[r.Variant]; !ok {
		return fmt.Errorf("%w: unknown variant %q", domain.ErrInvalidRequest, r.Variant)
	}
	switch r.OnChannelError {
	case domain.OnChannelErrorAbort, domain.OnChannelErrorSkip:
	default:
		return fmt.Errorf("%w: unknown on_channel_error policy %q", domain.ErrInvalidRequest, r.OnChannelError)
	}
	return nil
}

// ScraperOption — функциональная опция для настройки ScraperService.
type ScraperOption func(*ScraperService)

// WithScraperLogger устанавливает логгер для сервиса.
func WithScraperLogger(l *slog.Logger) ScraperOption {
	return func(s *ScraperService) {
		if l != nil {
			s.log = l
		}
	}
}

// WithProgress устанавливает получателя уведомлений о ходе обработки.
func WithProgress(p ports.ProgressReporter) ScraperOption {
	return func(s *ScraperService) {
		if p != nil {
			s.progress = p
		}
	}
}

// WithRowWriterFactory подменяет способ создания выходного файла.
func WithRowWriterFactory(f ports.RowWriterFactory) ScraperOption {
	return func(s *ScraperService) {
		if f != nil {
			s.newWriter = f
		}
	}
}

// ScraperService выгружает сообщения каналов в файл.
// Каналы и сообщения обрабатываются строго последовательно.
type ScraperService struct {
	platform  ports.Platform
	extractor *ExtractionService
	newWriter ports.RowWriterFactory
	progress  ports.ProgressReporter
	log       *slog.Logger
}

// NewScraperService создает новый ScraperService.
func NewScraperService(platform ports.Platform, extractor *ExtractionService, newWriter ports.RowWriterFactory, opts ...ScraperOption) *ScraperService {
	s := &ScraperService{
		platform:  platform,
		extractor: extractor,
		newWriter: newWriter,
		progress:  nopProgress{},
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run выполняет запуск: авторизация, затем каналы по порядку.
// При прерывании в файле остаются все строки, записанные до ошибки.
func (s *ScraperService) Run(ctx context.Context, req Request) (summary *domain.RunSummary, err error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	l := layouts[req.Variant]

	if err := s.platform.Authenticate(ctx); err != nil {
		if !errors.Is(err, domain.ErrAuthentication) {
			err = fmt.Errorf("%w: %w", domain.ErrAuthentication, err)
		}
		return nil, err
	}

	downloadMedia := l.media && req.MediaDir != ""
	if downloadMedia {
		if err := os.MkdirAll(req.MediaDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create media dir %s: %w", req.MediaDir, err)
		}
	}

	w, err := s.newWriter(req.OutputPath, l.header())
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %s: %w", req.OutputPath, err)
	}
	defer func() {
		if closeErr := w.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close output file %s: %w", req.OutputPath, closeErr)
		}
	}()

	summary = &domain.RunSummary{
		OutputPath: req.OutputPath,
		Variant:    req.Variant,
	}

	s.log.InfoContext(ctx, "Starting scrape run",
		"channels", len(req.Channels),
		"variant", req.Variant,
		"message_limit", req.MessageLimit,
		"output", req.OutputPath,
	)

	for _, username := range req.Channels {
		chSummary, err := s.scrapeChannel(ctx, w, l, req, username, downloadMedia)
		summary.Channels = append(summary.Channels, chSummary)
		summary.Rows += chSummary.Rows
		summary.Suppressed += chSummary.Suppressed
		if err != nil {
			if errors.Is(err, domain.ErrChannelResolution) && req.OnChannelError == domain.OnChannelErrorSkip {
				s.log.WarnContext(ctx, "Skipping channel", "channel", username, "error", err)
				continue
			}
			return summary, err
		}
	}

	s.log.InfoContext(ctx, "Scrape run finished", "rows", summary.Rows, "suppressed", summary.Suppressed)
	return summary, nil
}

// scrapeChannel проходит состояния Unstarted → Resolved → Iterating → Done для одного канала.
func (s *ScraperService) scrapeChannel(ctx context.Context, w ports.RowWriter, l layout, req Request, username string, downloadMedia bool) (domain.ChannelSummary, error) {
	sum := domain.ChannelSummary{Username: username}
	log := s.log.With("channel", username)

	channel, err := s.platform.ResolveChannel(ctx, username)
	if err != nil {
		if !errors.Is(err, domain.ErrChannelResolution) {
			err = fmt.Errorf("%w: %s: %w", domain.ErrChannelResolution, username, err)
		}
		sum.Skipped = req.OnChannelError == domain.OnChannelErrorSkip
		sum.Error = err.Error()
		return sum, err
	}
	if channel.Username == "" {
		channel.Username = username
	}
	sum.Title = channel.Title
	log.InfoContext(ctx, "Scraping channel", "title", channel.Title)

	s.progress.ChannelStarted(channel, req.MessageLimit)
	defer s.progress.ChannelFinished()

	it := s.platform.IterateMessages(ctx, channel, req.MessageLimit)
	processed := 0
	for processed < req.MessageLimit && it.Next(ctx) {
		msg := it.Value()
		processed++

		written, err := s.processMessage(ctx, w, l, req, channel, msg, downloadMedia)
		if err != nil {
			sum.Error = err.Error()
			return sum, err
		}
		if written {
			sum.Rows++
		} else {
			sum.Suppressed++
			log.DebugContext(ctx, "Row suppressed, no script text", "message_id", msg.ID)
		}
		s.progress.MessageProcessed()
	}
	if err := it.Err(); err != nil {
		err = fmt.Errorf("failed to iterate messages of %s: %w", username, err)
		sum.Error = err.Error()
		return sum, err
	}

	log.InfoContext(ctx, "Finished channel", "processed", processed, "rows", sum.Rows, "suppressed", sum.Suppressed)
	return sum, nil
}

// processMessage пишет одну строку и сообщает, была ли она записана.
func (s *ScraperService) processMessage(ctx context.Context, w ports.RowWriter, l layout, req Request, channel domain.Channel, msg domain.Message, downloadMedia bool) (bool, error) {
	scriptText := s.extractor.ExtractScriptText(msg.Text)
	if l.suppressEmptyText && scriptText == "" {
		return false, nil
	}

	rc := &rowContext{
		channel:   channel,
		msg:       msg,
		fields:    s.extractor.Extract(msg.Text),
		mediaType: domain.NoMedia,
		mediaPath: domain.NoMedia,
	}

	if l.media && msg.Media.IsPhoto() {
		rc.mediaType = "Photo"
		if downloadMedia {
			path := filepath.Join(req.MediaDir, fmt.Sprintf("%s_%d.jpg", channel.Username, msg.ID))
			if err := s.platform.DownloadMedia(ctx, msg.Media, path); err != nil {
				if !errors.Is(err, domain.ErrMediaDownload) {
					err = fmt.Errorf("%w: %s: %w", domain.ErrMediaDownload, path, err)
				}
				return false, err
			}
			rc.mediaPath = path
		}
	}

	if err := w.Write(l.row(rc)); err != nil {
		return false, fmt.Errorf("failed to write row for message %d: %w", msg.ID, err)
	}
	return true, nil
}

type nopProgress struct{}

func (nopProgress) ChannelStarted(domain.Channel, int) {}
func (nopProgress) MessageProcessed()                  {}
func (nopProgress) ChannelFinished()                   {}
