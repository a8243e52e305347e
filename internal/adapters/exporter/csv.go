package exporter

import (
	"encoding/csv"
	"fmt"
	"os"

	"telegram-channel-scraper/internal/ports"
)

// CSVWriter пишет строки в CSV-файл и сбрасывает каждую строку на диск сразу после записи.
type CSVWriter struct {
	file    *os.File
	w       *csv.Writer
	columns int
}

// NewCSVWriter создает (или перезаписывает) файл и сразу пишет заголовок.
func NewCSVWriter(path string, header []string) (ports.RowWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	cw := &CSVWriter{
		file:    f,
		w:       csv.NewWriter(f),
		columns: len(header),
	}
	if err := cw.write(header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	return cw, nil
}

// Write добавляет строку. Количество колонок должно совпадать с заголовком.
func (c *CSVWriter) Write(row []string) error {
	if len(row) != c.columns {
		return fmt.Errorf("row has %d columns, header has %d", len(row), c.columns)
	}
	return c.write(row)
}

func (c *CSVWriter) write(row []string) error {
	if err := c.w.Write(row); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

// Close сбрасывает буфер и закрывает файл.
func (c *CSVWriter) Close() error {
	c.w.Flush()
	flushErr := c.w.Error()
	closeErr := c.file.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
