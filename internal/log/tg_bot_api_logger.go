package log

import (
	"fmt"
	"log/slog"
	"strings"
)

// TGBotAPIAdapter адаптирует slog.Logger под интерфейс логгера,
// который ожидает библиотека go-telegram-bot-api/v5.
type TGBotAPIAdapter struct {
	Logger *slog.Logger
}

// Println реализует метод интерфейса tgbotapi.BotLogger.
func (a *TGBotAPIAdapter) Println(v ...interface{}) {
	// Сообщения библиотеки проходят через маскировщик: в них бывает URL с токеном.
	a.Logger.Debug(strings.TrimSpace(fmt.Sprintln(v...)), "component", "tgbotapi")
}

// Printf реализует метод интерфейса tgbotapi.BotLogger.
func (a *TGBotAPIAdapter) Printf(format string, v ...interface{}) {
	a.Logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "tgbotapi")
}
