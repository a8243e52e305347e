package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/tg"
	"golang.org/x/term"
	"golang.org/x/time/rate"

	"telegram-channel-scraper/internal/domain"
	trm "telegram-channel-scraper/internal/pkg/term"
	"telegram-channel-scraper/internal/ports"
)

var (
	// ErrFloodWaitActive возвращается, когда клиент не может выполнить запрос из-за активного ограничения FLOOD_WAIT.
	ErrFloodWaitActive = errors.New("client is in flood wait")
	// ErrNotStarted возвращается при вызове API до Start.
	ErrNotStarted = errors.New("telegram client is not started")
	// floodWaitRegex используется для парсинга длительности ожидания из сообщения об ошибке.
	floodWaitRegex = regexp.MustCompile(`FLOOD_WAIT \((\d+)\)`)
)

var _ ports.Platform = (*Client)(nil)

// telegramAPI представляет необработанные методы API, которые мы используем.
type telegramAPI interface {
	UsersGetUsers(ctx context.Context, request []tg.InputUserClass) ([]tg.UserClass, error)
	ContactsResolveUsername(ctx context.Context, req *tg.ContactsResolveUsernameRequest) (*tg.ContactsResolvedPeer, error)
	MessagesGetHistory(ctx context.Context, req *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error)
	HelpGetConfig(ctx context.Context) (*tg.Config, error)
}

// telegramAuth представляет клиент аутентификации.
type telegramAuth interface {
	auth.FlowClient
}

// telegramRunner определяет зависимости от клиента gotd.
// Это позволяет создавать моки в тестах.
type telegramRunner interface {
	Run(ctx context.Context, f func(ctx context.Context) error) error
	API() telegramAPI
	Auth() telegramAuth
	Download(ctx context.Context, loc tg.InputFileLocationClass, path string) error
}

// prodRunner является оберткой вокруг реального *telegram.Client для удовлетворения интерфейса telegramRunner.
type prodRunner struct {
	*telegram.Client
}

func (p *prodRunner) API() telegramAPI {
	return p.Client.API()
}

func (p *prodRunner) Auth() telegramAuth {
	return p.Client.Auth()
}

func (p *prodRunner) Download(ctx context.Context, loc tg.InputFileLocationClass, path string) error {
	_, err := downloader.NewDownloader().Download(p.Client.API(), loc).ToPath(ctx, path)
	return err
}

// authFlow определяет интерфейс для процесса аутентификации.
type authFlow interface {
	Run(ctx context.Context, client auth.FlowClient) error
}

// Client — клиент Telegram API, реализующий ports.Platform.
// Соединение держит фоновая горутина, запущенная Start; вызовы API выполняются из горутины вызывающего
// после успешной авторизации. Обрабатывает FLOOD_WAIT и ограничивает частоту запросов.
type Client struct {
	id         string
	tgRunner   telegramRunner
	authFlow   authFlow
	isTerminal func(fd int) bool
	clock      func() time.Time
	limiter    *rate.Limiter
	batchSize  int
	log        *slog.Logger

	mu             sync.RWMutex
	unhealthyUntil time.Time
	startOnce      sync.Once
	started        chan struct{}
	ready          chan struct{}
	done           chan struct{}
	runErr         error
}

// Config содержит конфигурацию для создания нового клиента.
type Config struct {
	APIID       int
	APIHash     string
	PhoneNumber string
	SessionPath string
}

// ClientOption определяет функциональную опцию для конфигурации клиента.
type ClientOption func(*Client)

// WithLogger устанавливает логгер для клиента.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithRequestDelay задает минимальный интервал между запросами к API. 0 — без ограничений.
func WithRequestDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// WithHistoryBatchSize задает количество сообщений в одном запросе истории (1-100).
func WithHistoryBatchSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 && n <= maxHistoryBatch {
			c.batchSize = n
		}
	}
}

// NewClient создает новый экземпляр Client.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	// Создаем аутентификатор для терминала.
	termAuth := trm.NewTerminal(cfg.PhoneNumber)

	// Настраиваем хранилище сессии.
	sessionStorage := &session.FileStorage{Path: cfg.SessionPath}

	// Создаем и настраиваем базовый клиент gotd.
	tgClient := telegram.NewClient(cfg.APIID, cfg.APIHash, telegram.Options{
		SessionStorage: sessionStorage,
	})

	c := newClient(&prodRunner{Client: tgClient}, auth.NewFlow(termAuth, auth.SendCodeOptions{}))
	c.isTerminal = func(fd int) bool { return term.IsTerminal(fd) }

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func newClient(runner telegramRunner, flow authFlow) *Client {
	return &Client{
		id:         uuid.NewString(),
		tgRunner:   runner,
		authFlow:   flow,
		isTerminal: func(int) bool { return false },
		clock:      time.Now,
		limiter:    rate.NewLimiter(rate.Inf, 1),
		batchSize:  maxHistoryBatch,
		log:        slog.Default(),
		started:    make(chan struct{}),
		ready:      make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// ID возвращает уникальный идентификатор клиента.
func (c *Client) ID() string {
	return c.id
}

// Start запускает фоновый процесс клиента, включая аутентификацию.
// Соединение живет, пока не отменен ctx. Повторные вызовы ничего не делают.
func (c *Client) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		close(c.started)
		go func() {
			c.log.InfoContext(ctx, "Starting telegram client background runner", "client_id", c.id)
			err := c.tgRunner.Run(ctx, func(runCtx context.Context) error {
				if err := c.ensureAuthorized(runCtx); err != nil {
					return err
				}
				c.log.InfoContext(runCtx, "Telegram client authenticated and ready", "client_id", c.id)
				close(c.ready)

				// Держим соединение активным, пока не завершится контекст.
				<-runCtx.Done()
				return runCtx.Err()
			})

			if err != nil && !errors.Is(err, context.Canceled) {
				c.log.ErrorContext(ctx, "Telegram client background runner exited with error", "client_id", c.id, "error", err)
			} else {
				c.log.InfoContext(ctx, "Telegram client background runner stopped", "client_id", c.id)
			}

			c.mu.Lock()
			c.runErr = err
			c.mu.Unlock()
			close(c.done)
		}()
	})
}

// ensureAuthorized проверяет сессию и при необходимости запускает интерактивный вход.
func (c *Client) ensureAuthorized(ctx context.Context) error {
	if _, err := c.tgRunner.API().UsersGetUsers(ctx, []tg.InputUserClass{&tg.InputUserSelf{}}); err != nil {
		// Если ошибка - это ожидаемое отсутствие сессии, логируем кратко.
		if strings.Contains(err.Error(), "AUTH_KEY_UNREGISTERED") {
			c.log.WarnContext(ctx, "Session check failed, attempting interactive auth", "client_id", c.id, "reason", "AUTH_KEY_UNREGISTERED")
		} else {
			c.log.WarnContext(ctx, "Session check failed, attempting interactive auth", "client_id", c.id, "error", err)
		}
		if !c.isTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("%w: session is invalid and cannot perform interactive auth in non-terminal: %w", domain.ErrAuthentication, err)
		}
		if authErr := c.authFlow.Run(ctx, c.tgRunner.Auth()); authErr != nil {
			return fmt.Errorf("%w: interactive auth failed: %w", domain.ErrAuthentication, authErr)
		}
		c.log.InfoContext(ctx, "Interactive auth successful, session saved", "client_id", c.id)
	}
	return nil
}

// Authenticate блокируется до готовности авторизованной сессии.
// Если фоновый процесс завершился раньше, возвращает ошибку, совместимую с domain.ErrAuthentication.
func (c *Client) Authenticate(ctx context.Context) error {
	select {
	case <-c.started:
	default:
		return ErrNotStarted
	}

	select {
	case <-c.ready:
		return nil
	case <-c.done:
		err := c.Err()
		if err == nil {
			err = errors.New("client stopped before authorization")
		}
		if !errors.Is(err, domain.ErrAuthentication) {
			err = fmt.Errorf("%w: %w", domain.ErrAuthentication, err)
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait дожидается остановки фонового процесса и возвращает его ошибку.
// Отмена контекста ошибкой не считается.
func (c *Client) Wait() error {
	<-c.done
	err := c.Err()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Err возвращает ошибку фонового процесса, если он уже завершился.
func (c *Client) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.runErr
}

// Health проверяет работоспособность клиента.
// Если активен FLOOD_WAIT, возвращает ошибку.
// В противном случае выполняет легковесный запрос к API.
func (c *Client) Health(ctx context.Context) error {
	if err := c.checkHealthStatus(); err != nil {
		return err
	}

	select {
	case <-c.ready:
	default:
		return errors.New("telegram client is not ready")
	}

	return c.do(ctx, func(ctx context.Context) error {
		_, err := c.tgRunner.API().HelpGetConfig(ctx)
		return err
	})
}

// do — это основной метод, через который проходят все вызовы API.
// Он проверяет FLOOD_WAIT, соблюдает ограничение частоты и обрабатывает ошибки.
func (c *Client) do(ctx context.Context, f func(ctx context.Context) error) error {
	if err := c.checkHealthStatus(); err != nil {
		c.log.WarnContext(ctx, "Client is unhealthy, aborting call", "error", err)
		return err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	opErr := f(ctx)

	if opErr != nil {
		// Обрабатываем специфичные ошибки, такие как FLOOD_WAIT.
		c.handleError(opErr)

		// Также проверяем, не отвалился ли сам клиент.
		select {
		case <-c.done:
			if runErr := c.Err(); runErr != nil {
				return fmt.Errorf("telegram client is not running: %w (operation error: %v)", runErr, opErr)
			}
		default:
		}
	}

	return opErr
}

// checkHealthStatus проверяет, не находится ли клиент в состоянии FLOOD_WAIT.
func (c *Client) checkHealthStatus() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.unhealthyUntil.IsZero() && c.clock().Before(c.unhealthyUntil) {
		return fmt.Errorf("%w: active until %v", ErrFloodWaitActive, c.unhealthyUntil)
	}
	return nil
}

// handleError обрабатывает ошибки, ищет FLOOD_WAIT и обновляет состояние клиента.
func (c *Client) handleError(err error) {
	if waitDuration, ok := parseFloodWait(err); ok {
		c.mu.Lock()
		defer c.mu.Unlock()

		c.unhealthyUntil = c.clock().Add(waitDuration)
		c.log.Warn("Client got FLOOD_WAIT, set unhealthy", "wait_duration", waitDuration, "until", c.unhealthyUntil)
	}
}

// parseFloodWait извлекает длительность ожидания из ошибки.
func parseFloodWait(err error) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}

	matches := floodWaitRegex.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return 0, false
	}

	seconds, convErr := strconv.Atoi(matches[1])
	if convErr != nil {
		return 0, false
	}

	return time.Duration(seconds) * time.Second, true
}
