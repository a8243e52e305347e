package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-channel-scraper/cmd/bot/config"
)

const testCSV = "Message Date,Sender ID,Message ID,Product Description\n" +
	"2024-05-01 10:00:00,1,10,ዋጋ 500 ብር\n" +
	"2024-05-01 11:00:00,1,11,ሻይ\n"

// mockServerClient — это мок для ServerAPI.
type mockServerClient struct {
	startFunc    func(ctx context.Context, req ScrapeRequest) (*StartTaskResponse, error)
	statusFunc   func(ctx context.Context, taskID string) (*TaskStatusResponse, error)
	downloadFunc func(ctx context.Context, taskID string) ([]byte, error)
}

func (m *mockServerClient) StartScrape(ctx context.Context, req ScrapeRequest) (*StartTaskResponse, error) {
	if m.startFunc != nil {
		return m.startFunc(ctx, req)
	}
	return &StartTaskResponse{TaskID: "mock-task-id"}, nil
}

func (m *mockServerClient) GetTaskStatus(ctx context.Context, taskID string) (*TaskStatusResponse, error) {
	if m.statusFunc != nil {
		return m.statusFunc(ctx, taskID)
	}
	return &TaskStatusResponse{TaskID: taskID, Status: "completed"}, nil
}

func (m *mockServerClient) DownloadResult(ctx context.Context, taskID string) ([]byte, error) {
	if m.downloadFunc != nil {
		return m.downloadFunc(ctx, taskID)
	}
	return []byte(testCSV), nil
}

// sentMessages собирает все, что бот отправил в Telegram.
type sentMessages struct {
	mu   sync.Mutex
	msgs []tgbotapi.Chattable
}

func (s *sentMessages) send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, c)
	return tgbotapi.Message{}, nil
}

func (s *sentMessages) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.msgs {
		if msg, ok := m.(tgbotapi.MessageConfig); ok {
			out = append(out, msg.Text)
		}
	}
	return out
}

func (s *sentMessages) documents() []tgbotapi.DocumentConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []tgbotapi.DocumentConfig
	for _, m := range s.msgs {
		if doc, ok := m.(tgbotapi.DocumentConfig); ok {
			out = append(out, doc)
		}
	}
	return out
}

func testBotConfig() config.BotConfig {
	return config.BotConfig{
		PollingIntervalSeconds: 1,
		PollingTimeoutSeconds:  10,
		ExcelThreshold:         50,
		DefaultMessageLimit:    200,
		MaxMessageLimit:        1000,
		MaxChannelsPerRequest:  3,
		Preview:                config.PreviewConfig{Rows: 1, ColumnWidth: 20},
	}
}

// newTestBot создает бота с моками для тестирования.
func newTestBot(t *testing.T, cfg config.BotConfig, serverClient ServerAPI) (*Bot, *sentMessages) {
	t.Helper()
	sent := &sentMessages{}
	b := newBot(cfg, serverClient, NewTaskStore(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	b.sendFunc = sent.send
	b.pollInterval = 10 * time.Millisecond
	b.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return b, sent
}

func TestParseScrapeArgs(t *testing.T) {
	cfg := testBotConfig()

	testCases := []struct {
		name    string
		args    string
		want    ScrapeRequest
		wantErr string
	}{
		{
			name: "каналы и значения по умолчанию",
			args: "@shop_one https://t.me/shop_two",
			want: ScrapeRequest{Channels: []string{"shop_one", "shop_two"}, MessageLimit: 200},
		},
		{
			name: "все параметры",
			args: "shop, other limit=50 variant=filtered errors=skip",
			want: ScrapeRequest{
				Channels:       []string{"shop", "other"},
				MessageLimit:   50,
				Variant:        "filtered",
				OnChannelError: "skip",
			},
		},
		{name: "нет каналов", args: "limit=10", wantErr: "не указан ни один канал"},
		{name: "слишком много каналов", args: "a b c d", wantErr: "не более 3 каналов"},
		{name: "лимит не число", args: "shop limit=abc", wantErr: "limit"},
		{name: "лимит выше максимума", args: "shop limit=1001", wantErr: "не может превышать 1000"},
		{name: "неизвестный вариант", args: "shop variant=short", wantErr: "variant"},
		{name: "неизвестная политика", args: "shop errors=retry", wantErr: "errors"},
		{name: "неизвестный параметр", args: "shop media=yes", wantErr: "неизвестный параметр"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseScrapeArgs(tc.args, cfg)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBot_HandleCommand(t *testing.T) {
	b, sent := newTestBot(t, testBotConfig(), &mockServerClient{})

	msg := &tgbotapi.Message{
		Text:     "/help",
		Chat:     &tgbotapi.Chat{ID: 1},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 5}},
	}
	b.handleMessage(context.Background(), msg)

	texts := sent.texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "/scrape")
}

func TestBot_HandleScrape(t *testing.T) {
	t.Run("CSV ниже порога", func(t *testing.T) {
		var gotReq ScrapeRequest
		server := &mockServerClient{
			startFunc: func(_ context.Context, req ScrapeRequest) (*StartTaskResponse, error) {
				gotReq = req
				return &StartTaskResponse{TaskID: "task-1"}, nil
			},
			statusFunc: func(_ context.Context, taskID string) (*TaskStatusResponse, error) {
				return &TaskStatusResponse{
					TaskID: taskID,
					Status: "completed",
					Summary: &SummaryDTO{
						Rows:       2,
						Suppressed: 1,
						Channels:   []ChannelSummaryDTO{{Username: "shop", Rows: 2, Suppressed: 1}},
					},
				}, nil
			},
		}
		b, sent := newTestBot(t, testBotConfig(), server)

		b.handleScrape(context.Background(), 42, "@shop limit=10")
		b.wg.Wait()

		assert.Equal(t, ScrapeRequest{Channels: []string{"shop"}, MessageLimit: 10}, gotReq)

		docs := sent.documents()
		require.Len(t, docs, 1)
		file, ok := docs[0].File.(tgbotapi.FileBytes)
		require.True(t, ok)
		assert.Equal(t, "telegram_data_2024-05-01_12-00-00.csv", file.Name)
		assert.Equal(t, testCSV, string(file.Bytes))
		assert.Contains(t, docs[0].Caption, "2 строк, отфильтровано 1")
		assert.Contains(t, docs[0].Caption, "@shop: 2")

		texts := sent.texts()
		require.Len(t, texts, 2) // подтверждение и предпросмотр
		assert.Contains(t, texts[0], "@shop")
		assert.True(t, strings.HasPrefix(texts[1], "<pre>"))

		_, busy := b.taskStore.Get(42)
		assert.False(t, busy, "чат должен освободиться после завершения")
	})

	t.Run("Excel выше порога", func(t *testing.T) {
		cfg := testBotConfig()
		cfg.ExcelThreshold = 2
		cfg.Preview.Rows = 0
		b, sent := newTestBot(t, cfg, &mockServerClient{})

		b.handleScrape(context.Background(), 42, "shop")
		b.wg.Wait()

		docs := sent.documents()
		require.Len(t, docs, 1)
		file := docs[0].File.(tgbotapi.FileBytes)
		assert.True(t, strings.HasSuffix(file.Name, ".xlsx"))
		assert.NotEmpty(t, file.Bytes)
	})

	t.Run("Пустой результат", func(t *testing.T) {
		server := &mockServerClient{
			downloadFunc: func(context.Context, string) ([]byte, error) {
				return []byte("Message Date,Sender ID,Message ID,Product Description\n"), nil
			},
		}
		b, sent := newTestBot(t, testBotConfig(), server)

		b.handleScrape(context.Background(), 42, "shop")
		b.wg.Wait()

		assert.Empty(t, sent.documents())
		texts := sent.texts()
		require.NotEmpty(t, texts)
		assert.Contains(t, texts[len(texts)-1], "не найдено")
	})

	t.Run("Задача завершилась ошибкой", func(t *testing.T) {
		server := &mockServerClient{
			statusFunc: func(_ context.Context, taskID string) (*TaskStatusResponse, error) {
				return &TaskStatusResponse{TaskID: taskID, Status: "failed", ErrorMessage: "channel resolution failed"}, nil
			},
		}
		b, sent := newTestBot(t, testBotConfig(), server)

		b.handleScrape(context.Background(), 42, "shop")
		b.wg.Wait()

		texts := sent.texts()
		require.Len(t, texts, 2)
		assert.Contains(t, texts[1], "channel resolution failed")
	})

	t.Run("Активная задача блокирует новую", func(t *testing.T) {
		server := &mockServerClient{
			startFunc: func(context.Context, ScrapeRequest) (*StartTaskResponse, error) {
				t.Fatal("StartScrape не должен вызываться")
				return nil, nil
			},
		}
		b, sent := newTestBot(t, testBotConfig(), server)
		require.True(t, b.taskStore.Reserve(42))

		b.handleScrape(context.Background(), 42, "shop")

		texts := sent.texts()
		require.Len(t, texts, 1)
		assert.Contains(t, texts[0], "подождите")
	})

	t.Run("Ошибка запуска освобождает чат", func(t *testing.T) {
		server := &mockServerClient{
			startFunc: func(context.Context, ScrapeRequest) (*StartTaskResponse, error) {
				return nil, errors.New("connection refused")
			},
		}
		b, sent := newTestBot(t, testBotConfig(), server)

		b.handleScrape(context.Background(), 42, "shop")

		_, busy := b.taskStore.Get(42)
		assert.False(t, busy)
		texts := sent.texts()
		require.Len(t, texts, 1)
		assert.Contains(t, texts[0], "Не удалось запустить")
	})

	t.Run("Отмена контекста останавливает опрос", func(t *testing.T) {
		server := &mockServerClient{
			statusFunc: func(_ context.Context, taskID string) (*TaskStatusResponse, error) {
				return &TaskStatusResponse{TaskID: taskID, Status: "processing"}, nil
			},
		}
		b, sent := newTestBot(t, testBotConfig(), server)

		ctx, cancel := context.WithCancel(context.Background())
		b.handleScrape(ctx, 42, "shop")
		time.Sleep(30 * time.Millisecond)
		cancel()
		b.wg.Wait()

		assert.Empty(t, sent.documents())
		_, busy := b.taskStore.Get(42)
		assert.False(t, busy)
	})
}

func TestSummaryText(t *testing.T) {
	assert.Equal(t, "Выгрузка завершена: 3 строк.", summaryText(nil, 3))

	text := summaryText(&SummaryDTO{
		Rows: 5,
		Channels: []ChannelSummaryDTO{
			{Username: "a", Rows: 5},
			{Username: "b", Skipped: true, Error: "not found"},
		},
	}, 5)
	assert.Equal(t, "Выгрузка завершена: 5 строк.\n@a: 5\n@b: пропущен", text)
}

func TestTaskStore(t *testing.T) {
	store := NewTaskStore()

	require.True(t, store.Reserve(1))
	assert.False(t, store.Reserve(1))

	id, ok := store.Get(1)
	assert.True(t, ok)
	assert.Empty(t, id)

	store.Assign(1, "task")
	id, _ = store.Get(1)
	assert.Equal(t, "task", id)

	store.Release(1)
	_, ok = store.Get(1)
	assert.False(t, ok)
	assert.True(t, store.Reserve(1))
}
