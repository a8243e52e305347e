package parser

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"telegram-channel-scraper/internal/domain"
	"telegram-channel-scraper/internal/ports"
)

// maxLineSize ограничивает длину одной строки файла разметки.
const maxLineSize = 1 << 20

// ConllParser реализует интерфейс AnnotationParser для файлов в стиле CoNLL:
// одна запись на строку, поля разделены пробельными символами, пустые строки пропускаются.
type ConllParser struct{}

// NewConllParser создает новый экземпляр ConllParser.
func NewConllParser() ports.AnnotationParser {
	return &ConllParser{}
}

// Parse преобразует содержимое файла в таблицу. Типы не приводятся, заголовка нет.
func (p *ConllParser) Parse(data []byte) (*domain.Table, error) {
	table := &domain.Table{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		table.Rows = append(table.Rows, strings.Fields(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read annotation data: %w", err)
	}
	return table, nil
}
