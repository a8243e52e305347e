package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"telegram-channel-scraper/internal/bot"
)

func main() {
	var (
		serverAddr     string
		limit          int
		variant        string
		onChannelError string
		downloadMedia  bool
		output         string
		interval       time.Duration
	)
	flag.StringVar(&serverAddr, "server", "http://localhost:8080", "Server address")
	flag.IntVar(&limit, "limit", 0, "Максимум сообщений на канал (0 - значение сервера)")
	flag.StringVar(&variant, "variant", "", "Вариант выгрузки: full или filtered")
	flag.StringVar(&onChannelError, "on-channel-error", "", "Поведение при ошибке канала: abort или skip")
	flag.BoolVar(&downloadMedia, "download-media", false, "Скачивать фотографии на сервере")
	flag.StringVar(&output, "output", "", "Файл для сохранения CSV (по умолчанию - stdout)")
	flag.DurationVar(&interval, "interval", 5*time.Second, "Интервал опроса статуса")
	flag.Parse()

	channels := flag.Args()
	if len(channels) == 0 {
		log.Fatal("At least one channel is required. Usage: client [flags] <channel1> <channel2> ...")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := bot.NewServerClient(serverAddr, 30*time.Second)

	startResp, err := client.StartScrape(ctx, bot.ScrapeRequest{
		Channels:       channels,
		MessageLimit:   limit,
		Variant:        variant,
		OnChannelError: onChannelError,
		DownloadMedia:  downloadMedia,
	})
	if err != nil {
		log.Fatalf("Не удалось создать задачу: %v", err)
	}
	taskID := startResp.TaskID
	fmt.Fprintf(os.Stderr, "Задача создана с идентификатором: %s\n", taskID)

	// Опрос о статусе задачи
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Fatalf("Опрос прерван: %v", ctx.Err())
		case <-ticker.C:
		}

		status, err := client.GetTaskStatus(ctx, taskID)
		if err != nil {
			log.Fatalf("Не удалось опросить статус задачи: %v", err)
		}

		fmt.Fprintf(os.Stderr, "Статус задачи: %s\n", status.Status)

		switch status.Status {
		case "completed":
			printSummary(status)
			data, err := client.DownloadResult(ctx, taskID)
			if err != nil {
				log.Fatalf("Не удалось получить результат: %v", err)
			}
			if output == "" {
				_, _ = os.Stdout.Write(data)
				return
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				log.Fatalf("Не удалось сохранить результат: %v", err)
			}
			fmt.Fprintf(os.Stderr, "Результат сохранен в %s\n", output)
			return
		case "failed":
			fmt.Fprintf(os.Stderr, "Задача не выполнена: %s\n", status.ErrorMessage)
			os.Exit(1)
		case "pending", "processing":
			// Продолжение опроса
		default:
			log.Fatalf("Неизвестный статус задачи: %s", status.Status)
		}
	}
}

func printSummary(status *bot.TaskStatusResponse) {
	if status.Summary == nil {
		return
	}
	s := status.Summary
	cached := ""
	if status.Cached {
		cached = " (из кеша)"
	}
	fmt.Fprintf(os.Stderr, "Задача выполнена%s: %d строк, отфильтровано %d\n", cached, s.Rows, s.Suppressed)
	for _, ch := range s.Channels {
		line := fmt.Sprintf("  @%s: %d", ch.Username, ch.Rows)
		if ch.Skipped {
			line = fmt.Sprintf("  @%s: пропущен (%s)", ch.Username, strings.TrimSpace(ch.Error))
		}
		fmt.Fprintln(os.Stderr, line)
	}
}
