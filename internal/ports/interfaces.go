package ports

import (
	"context"

	"telegram-channel-scraper/internal/domain"
)

// Platform определяет возможности клиента мессенджера, которые нужны скраперу.
type Platform interface {
	// Authenticate дожидается готовой авторизованной сессии.
	Authenticate(ctx context.Context) error
	// ResolveChannel находит канал по username.
	ResolveChannel(ctx context.Context, username string) (domain.Channel, error)
	// IterateMessages возвращает ленивый итератор не более чем по limit сообщениям канала, от новых к старым.
	IterateMessages(ctx context.Context, channel domain.Channel, limit int) MessageIterator
	// DownloadMedia сохраняет вложение по указанному пути.
	DownloadMedia(ctx context.Context, media *domain.Media, path string) error
}

// MessageIterator — однопроходный итератор сообщений.
type MessageIterator interface {
	Next(ctx context.Context) bool
	Value() domain.Message
	Err() error
}

// RowWriter записывает строки выходного файла.
type RowWriter interface {
	Write(row []string) error
	Close() error
}

// RowWriterFactory создает (или перезаписывает) выходной файл и пишет заголовок.
type RowWriterFactory func(path string, header []string) (RowWriter, error)

// ProgressReporter получает уведомления о ходе обработки.
type ProgressReporter interface {
	ChannelStarted(channel domain.Channel, limit int)
	MessageProcessed()
	ChannelFinished()
}

// DataSource определяет интерфейс для получения исходных данных.
type DataSource interface {
	// Fetch загружает данные из источника и возвращает их в виде байтового среза.
	Fetch() ([]byte, error)
}

// AnnotationParser разбирает файл разметки в таблицу.
type AnnotationParser interface {
	Parse(data []byte) (*domain.Table, error)
}

// Exporter определяет интерфейс для вывода итогов запуска.
type Exporter interface {
	Export(summary *domain.RunSummary) error
}
