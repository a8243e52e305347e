package source

import (
	"fmt"
	"os"

	"telegram-channel-scraper/internal/ports"
)

// FileSource реализует интерфейс DataSource для чтения файла с диска.
type FileSource struct {
	filePath string
}

// NewFileSource создает новый экземпляр FileSource.
func NewFileSource(filePath string) ports.DataSource {
	return &FileSource{filePath: filePath}
}

// Fetch читает файл по указанному пути и возвращает его содержимое.
func (s *FileSource) Fetch() ([]byte, error) {
	if s.filePath == "" {
		return nil, fmt.Errorf("file path is empty")
	}

	info, err := os.Stat(s.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file %s: %w", s.filePath, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", s.filePath)
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", s.filePath, err)
	}

	return data, nil
}
