package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"telegram-channel-scraper/internal/adapters/exporter"
	"telegram-channel-scraper/internal/adapters/parser"
	"telegram-channel-scraper/internal/adapters/source"
	"telegram-channel-scraper/internal/log"
)

func main() {
	var (
		previewRows = flag.Int("rows", 10, "сколько строк показать (0 - не показывать)")
		colWidth    = flag.Int("width", 24, "максимальная ширина колонки в предпросмотре")
		xlsxPath    = flag.String("xlsx", "", "сохранить таблицу в Excel-файл")
		logLevel    = flag.String("log-level", "info", "уровень логирования")
	)
	flag.Parse()

	logger := log.New(os.Stderr, *logLevel, "text")
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: conll [flags] <file.conll>")
		os.Exit(2)
	}

	if err := run(flag.Arg(0), *previewRows, *colWidth, *xlsxPath); err != nil {
		slog.Error("failed to load annotation file", "error", err)
		os.Exit(1)
	}
}

func run(path string, previewRows, colWidth int, xlsxPath string) error {
	data, err := source.NewFileSource(path).Fetch()
	if err != nil {
		return err
	}

	table, err := parser.NewConllParser().Parse(data)
	if err != nil {
		return err
	}
	slog.Info("Annotation file loaded", "path", path, "rows", table.Len(), "columns", table.Width())

	// Отсутствующие ячейки в выводе остаются пустыми
	rows := table.Padded("")

	if previewRows > 0 && len(rows) > 0 {
		n := min(previewRows, len(rows))
		if err := exporter.RenderTable(os.Stdout, rows[:n], colWidth); err != nil {
			return fmt.Errorf("failed to render preview: %w", err)
		}
		if n < len(rows) {
			fmt.Fprintf(os.Stdout, "... %d more rows\n", len(rows)-n)
		}
	}

	if xlsxPath == "" {
		return nil
	}

	f, err := os.Create(xlsxPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", xlsxPath, err)
	}
	if err := exporter.WriteXLSX(f, "Annotations", rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", xlsxPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", xlsxPath, err)
	}
	slog.Info("Excel file saved", "path", xlsxPath)
	return nil
}
