package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ServerClient — клиент для взаимодействия с API бэкенд-сервера.
type ServerClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewServerClient создает новый экземпляр ServerClient.
func NewServerClient(baseURL string, timeout time.Duration) *ServerClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ServerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout, // Общий таймаут для запросов
		},
	}
}

// ScrapeRequest — тело запроса на запуск выгрузки.
type ScrapeRequest struct {
	Channels       []string `json:"channels"`
	MessageLimit   int      `json:"message_limit,omitempty"`
	Variant        string   `json:"variant,omitempty"`
	OnChannelError string   `json:"on_channel_error,omitempty"`
	DownloadMedia  bool     `json:"download_media,omitempty"`
}

// API-ответы
type StartTaskResponse struct {
	TaskID string `json:"task_id"`
}

// ChannelSummaryDTO — итоги по одному каналу.
type ChannelSummaryDTO struct {
	Username   string `json:"username"`
	Title      string `json:"title,omitempty"`
	Rows       int    `json:"rows"`
	Suppressed int    `json:"suppressed"`
	Skipped    bool   `json:"skipped,omitempty"`
	Error      string `json:"error,omitempty"`
}

// SummaryDTO — итоги запуска.
type SummaryDTO struct {
	Variant    string              `json:"variant"`
	Channels   []ChannelSummaryDTO `json:"channels"`
	Rows       int                 `json:"rows"`
	Suppressed int                 `json:"suppressed"`
}

type TaskStatusResponse struct {
	TaskID       string      `json:"task_id"`
	Status       string      `json:"status"`
	ErrorMessage string      `json:"error_message,omitempty"`
	Cached       bool        `json:"cached,omitempty"`
	Summary      *SummaryDTO `json:"summary,omitempty"`
}

// StartScrape ставит выгрузку в очередь на сервере.
func (c *ServerClient) StartScrape(ctx context.Context, scrapeReq ScrapeRequest) (*StartTaskResponse, error) {
	body, err := json.Marshal(scrapeReq)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/scrape", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return nil, unexpectedStatus(resp)
	}

	var result StartTaskResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// GetTaskStatus запрашивает статус задачи.
func (c *ServerClient) GetTaskStatus(ctx context.Context, taskID string) (*TaskStatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/tasks/"+taskID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, unexpectedStatus(resp)
	}

	var result TaskStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// DownloadResult скачивает CSV выполненной задачи.
func (c *ServerClient) DownloadResult(ctx context.Context, taskID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/tasks/"+taskID+"/result", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, unexpectedStatus(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read result: %w", err)
	}
	return data, nil
}

// unexpectedStatus формирует ошибку с кодом ответа и началом тела.
func unexpectedStatus(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if text := strings.TrimSpace(string(msg)); text != "" {
		return fmt.Errorf("unexpected status code: %d: %s", resp.StatusCode, text)
	}
	return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
}
