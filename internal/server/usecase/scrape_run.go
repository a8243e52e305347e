package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"telegram-channel-scraper/internal/cache"
	"telegram-channel-scraper/internal/core/services"
	"telegram-channel-scraper/internal/domain"
)

// Scraper выполняет один запуск выгрузки.
type Scraper interface {
	Run(ctx context.Context, req services.Request) (*domain.RunSummary, error)
}

// Result — итог задачи: путь к CSV и сводка.
type Result struct {
	Path    string
	Summary *domain.RunSummary
	Cached  bool
}

// cacheKey — поля запроса, определяющие содержимое результата.
type cacheKey struct {
	Channels       []string                  `json:"channels"`
	MessageLimit   int                       `json:"message_limit"`
	Variant        domain.Variant            `json:"variant"`
	OnChannelError domain.ChannelErrorPolicy `json:"on_channel_error"`
	DownloadMedia  bool                      `json:"download_media"`
}

// ScrapeRunUseCase запускает выгрузку для задач HTTP API.
// Запуски выполняются по одному: у клиента Telegram одна сессия.
type ScrapeRunUseCase struct {
	scraper    Scraper
	cacheStore *cache.CacheStore
	resultsDir string
	cacheTTL   time.Duration
	log        *slog.Logger

	mu sync.Mutex
}

// NewScrapeRunUseCase создает новый экземпляр ScrapeRunUseCase.
func NewScrapeRunUseCase(scraper Scraper, cacheStore *cache.CacheStore, resultsDir string, cacheTTL time.Duration, log *slog.Logger) *ScrapeRunUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &ScrapeRunUseCase{
		scraper:    scraper,
		cacheStore: cacheStore,
		resultsDir: resultsDir,
		cacheTTL:   cacheTTL,
		log:        log.With("component", "scrape_run"),
	}
}

// Prepare нормализует запрос задачи и проверяет его до постановки в очередь.
// Путь результата и каталог медиа назначаются здесь же.
func (uc *ScrapeRunUseCase) Prepare(taskID string, req services.Request, downloadMedia bool) (services.Request, error) {
	req = req.Normalize()
	req.OutputPath = filepath.Join(uc.resultsDir, taskID+".csv")
	req.MediaDir = ""
	if downloadMedia {
		req.MediaDir = filepath.Join(uc.resultsDir, "media")
	}
	if err := req.Validate(); err != nil {
		return services.Request{}, err
	}
	return req, nil
}

// Run выполняет подготовленный запрос или возвращает кэшированный результат.
func (uc *ScrapeRunUseCase) Run(ctx context.Context, req services.Request) (*Result, error) {
	key, err := cache.CalculateRequestHash(cacheKey{
		Channels:       req.Channels,
		MessageLimit:   req.MessageLimit,
		Variant:        req.Variant,
		OnChannelError: req.OnChannelError,
		DownloadMedia:  req.MediaDir != "",
	})
	if err != nil {
		return nil, err
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	if item, found := uc.cacheStore.Get(key); found {
		if _, statErr := os.Stat(item.ResultPath); statErr == nil {
			uc.log.InfoContext(ctx, "Попадание в кеш для запроса", "hash", key, "path", item.ResultPath)
			return &Result{Path: item.ResultPath, Summary: item.Summary, Cached: true}, nil
		}
		uc.log.WarnContext(ctx, "Файл кэшированного результата пропал", "hash", key, "path", item.ResultPath)
		uc.cacheStore.Delete(key)
	}

	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return nil, fmt.Errorf("не удалось создать каталог результатов: %w", err)
	}

	summary, err := uc.scraper.Run(ctx, req)
	if err != nil {
		// Частичный файл задачи не отдается
		if rmErr := os.Remove(req.OutputPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			uc.log.WarnContext(ctx, "Не удалось удалить частичный результат", "path", req.OutputPath, "error", rmErr)
		}
		return nil, err
	}

	uc.cacheStore.Put(key, req.OutputPath, summary, uc.cacheTTL)
	uc.log.InfoContext(ctx, "Результат кеширован", "hash", key, "ttl", uc.cacheTTL.String(), "rows", summary.Rows)

	return &Result{Path: req.OutputPath, Summary: summary}, nil
}
