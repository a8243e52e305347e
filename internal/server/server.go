package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"telegram-channel-scraper/internal/cache"
	"telegram-channel-scraper/internal/core/services"
	"telegram-channel-scraper/internal/domain"
	"telegram-channel-scraper/internal/pkg/config"
	"telegram-channel-scraper/internal/server/usecase"
)

// ScrapeRunner определяет интерфейс варианта использования, который выполняет выгрузку.
type ScrapeRunner interface {
	Prepare(taskID string, req services.Request, downloadMedia bool) (services.Request, error)
	Run(ctx context.Context, req services.Request) (*usecase.Result, error)
}

// HealthChecker проверяет доступность Telegram API.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// ScrapeRequest — тело POST /api/v1/scrape.
// Пустые поля заполняются из секции scraper конфигурации.
type ScrapeRequest struct {
	Channels       []string `json:"channels"`
	MessageLimit   int      `json:"message_limit,omitempty"`
	Variant        string   `json:"variant,omitempty"`
	OnChannelError string   `json:"on_channel_error,omitempty"`
	DownloadMedia  bool     `json:"download_media,omitempty"`
}

// TaskResponse — ответ GET /api/v1/tasks/{taskID}.
type TaskResponse struct {
	TaskID       string             `json:"task_id"`
	Status       TaskStatus         `json:"status"`
	ErrorMessage string             `json:"error_message,omitempty"`
	Cached       bool               `json:"cached,omitempty"`
	Summary      *domain.RunSummary `json:"summary,omitempty"`
}

// Server представляет HTTP-сервер
type Server struct {
	HTTPServer *http.Server
	cfg        *config.Config
	taskStore  *TaskStore
	cacheStore *cache.CacheStore
	runner     ScrapeRunner
	health     HealthChecker
	baseCtx    context.Context
	log        *slog.Logger
}

// New создает новый экземпляр Server. Фоновые задачи и очистка живут до отмены ctx.
func New(ctx context.Context, cfg *config.Config, runner ScrapeRunner, health HealthChecker, taskStore *TaskStore, cacheStore *cache.CacheStore, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}

	s := &Server{
		cfg:        cfg,
		taskStore:  taskStore,
		cacheStore: cacheStore,
		runner:     runner,
		health:     health,
		baseCtx:    ctx,
		log:        log.With("component", "server"),
	}

	chiRouter := chi.NewRouter()

	// Промежуточное ПО
	chiRouter.Use(middleware.RequestID)
	chiRouter.Use(middleware.Logger)
	chiRouter.Use(middleware.Recoverer)

	chiRouter.Get("/health", s.handleHealth)

	// Маршруты API
	chiRouter.Route("/api/v1", func(r chi.Router) {
		r.Post("/scrape", s.handleScrape)
		r.Get("/tasks/{taskID}", s.handleTaskStatus)
		r.Get("/tasks/{taskID}/result", s.handleTaskResult)
	})

	s.HTTPServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      chiRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Файлы результатов удаляются вместе с задачами
	taskStore.OnExpire(func(task Task) {
		if task.ResultPath == "" || task.Cached {
			return
		}
		if err := os.Remove(task.ResultPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("Не удалось удалить файл результата", "task_id", task.ID, "path", task.ResultPath, "error", err)
		}
	})

	if cfg.Server.CleanupInterval > 0 {
		s.taskStore.StartCleanupTicker(ctx, cfg.Server.CleanupInterval)
		s.cacheStore.StartCleanupTicker(ctx, cfg.Server.CleanupInterval)
	}

	return s, nil
}

// ListenAndServe запускает HTTP-сервер
func (s *Server) ListenAndServe() error {
	return s.HTTPServer.ListenAndServe()
}

// Shutdown корректно завершает работу HTTP-сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Завершение работы HTTP-сервера")
	return s.HTTPServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.Health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var body ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Не удалось декодировать тело запроса", http.StatusBadRequest)
		return
	}

	taskID := uuid.NewString()
	req, err := s.runner.Prepare(taskID, s.requestFromBody(body), body.DownloadMedia)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.taskStore.CreateTask(taskID, s.cfg.Server.TaskTTL)
	go s.runTask(taskID, req)

	s.log.Info("Задача выгрузки создана", "task_id", taskID, "channels", req.Channels, "variant", req.Variant)
	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": taskID})
}

// requestFromBody дополняет тело запроса значениями из конфигурации.
func (s *Server) requestFromBody(body ScrapeRequest) services.Request {
	req := services.Request{
		Channels:       body.Channels,
		MessageLimit:   body.MessageLimit,
		Variant:        domain.Variant(body.Variant),
		OnChannelError: domain.ChannelErrorPolicy(body.OnChannelError),
	}
	if req.MessageLimit == 0 {
		req.MessageLimit = s.cfg.Scraper.MessageLimit
	}
	if req.Variant == "" {
		req.Variant = domain.Variant(s.cfg.Scraper.Variant)
	}
	if req.OnChannelError == "" {
		req.OnChannelError = domain.ChannelErrorPolicy(s.cfg.Scraper.OnChannelError)
	}
	return req
}

func (s *Server) runTask(taskID string, req services.Request) {
	log := s.log.With("task_id", taskID)
	_ = s.taskStore.UpdateTaskStatus(taskID, TaskStatusProcessing)

	// Таймаут задачи из конфигурации, 0 - без ограничений
	taskCtx := s.baseCtx
	if s.cfg.Processing.TaskTimeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(taskCtx, s.cfg.Processing.TaskTimeout)
		defer cancel()
	}

	res, err := s.runner.Run(taskCtx, req)
	if err != nil {
		log.Error("Задача завершилась с ошибкой", "error", err)
		_ = s.taskStore.UpdateTaskError(taskID, err.Error())
		return
	}

	_ = s.taskStore.UpdateTaskResult(taskID, res.Path, res.Summary, res.Cached)
	log.Info("Задача выполнена", "rows", res.Summary.Rows, "cached", res.Cached)
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	task, err := s.taskStore.GetTask(chi.URLParam(r, "taskID"))
	if err != nil {
		http.Error(w, "Задача не найдена", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, TaskResponse{
		TaskID:       task.ID,
		Status:       task.Status,
		ErrorMessage: task.ErrorMessage,
		Cached:       task.Cached,
		Summary:      task.Summary,
	})
}

func (s *Server) handleTaskResult(w http.ResponseWriter, r *http.Request) {
	task, err := s.taskStore.GetTask(chi.URLParam(r, "taskID"))
	if err != nil {
		http.Error(w, "Задача не найдена", http.StatusNotFound)
		return
	}

	if task.Status != TaskStatusCompleted {
		http.Error(w, "Задача не завершена", http.StatusBadRequest)
		return
	}

	f, err := os.Open(task.ResultPath)
	if err != nil {
		s.log.Error("Не удалось открыть файл результата", "task_id", task.ID, "path", task.ResultPath, "error", err)
		http.Error(w, "Результат недоступен", http.StatusGone)
		return
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		http.Error(w, "Результат недоступен", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(task.ResultPath)))
	http.ServeContent(w, r, filepath.Base(task.ResultPath), stat.ModTime(), f)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
