package log

import (
	"io"
	"log/slog"
	"strings"
)

// ParseLevel преобразует строковый уровень в slog.Level. Неизвестные значения дают info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New создает логгер с маскировкой секретов.
// format - "json" или "text".
func New(w io.Writer, level, format string, secrets ...string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.ToLower(format) == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(NewSecretMaskerHandler(handler, secrets...))
}
