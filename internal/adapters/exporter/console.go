package exporter

import (
	"fmt"
	"io"
	"os"

	"telegram-channel-scraper/internal/domain"
	"telegram-channel-scraper/internal/ports"
)

// ConsoleExporter реализует интерфейс Exporter для вывода итогов запуска в консоль.
type ConsoleExporter struct {
	out io.Writer
}

// NewConsoleExporter создает новый экземпляр ConsoleExporter, пишущий в stdout.
func NewConsoleExporter() ports.Exporter {
	return &ConsoleExporter{out: os.Stdout}
}

// Export выводит итоги запуска по каждому каналу.
func (e *ConsoleExporter) Export(summary *domain.RunSummary) error {
	fmt.Fprintln(e.out, "--- Scrape Summary ---")
	if summary == nil || len(summary.Channels) == 0 {
		fmt.Fprintln(e.out, "No channels processed.")
		return nil
	}
	for i, ch := range summary.Channels {
		switch {
		case ch.Skipped:
			fmt.Fprintf(e.out, "%d. @%s: skipped (%s)\n", i+1, ch.Username, ch.Error)
		case ch.Error != "":
			fmt.Fprintf(e.out, "%d. @%s (%s): rows %d, suppressed %d, failed: %s\n", i+1, ch.Username, ch.Title, ch.Rows, ch.Suppressed, ch.Error)
		default:
			fmt.Fprintf(e.out, "%d. @%s (%s): rows %d, suppressed %d\n", i+1, ch.Username, ch.Title, ch.Rows, ch.Suppressed)
		}
	}
	fmt.Fprintf(e.out, "Total: %d rows written to %s (variant %s), %d suppressed\n", summary.Rows, summary.OutputPath, summary.Variant, summary.Suppressed)
	return nil
}
