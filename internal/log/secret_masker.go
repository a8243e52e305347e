package log

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

const secretMask = "***"

// маскируем токены ботов в формате botID:token
var telegramTokenRegex = regexp.MustCompile(`(\bbot\d+:[A-Za-z0-9_-]{35,})`)

// Masker заменяет токены ботов и заданные секреты на маску.
type Masker struct {
	replacer *strings.Replacer
}

// NewMasker создает Masker. Пустые секреты игнорируются.
func NewMasker(secrets ...string) *Masker {
	var pairs []string
	for _, s := range secrets {
		if s = strings.TrimSpace(s); s != "" {
			pairs = append(pairs, s, secretMask)
		}
	}
	m := &Masker{}
	if len(pairs) > 0 {
		m.replacer = strings.NewReplacer(pairs...)
	}
	return m
}

// Mask возвращает text с замаскированными секретами.
func (m *Masker) Mask(text string) string {
	text = telegramTokenRegex.ReplaceAllString(text, "bot***:***masked-token***")
	if m.replacer != nil {
		text = m.replacer.Replace(text)
	}
	return text
}

// SecretMaskerHandler - обертка для slog.Handler, которая маскирует секреты в сообщениях и атрибутах
type SecretMaskerHandler struct {
	handler slog.Handler
	masker  *Masker
}

// NewSecretMaskerHandler создает новый обработчик с маскировкой
func NewSecretMaskerHandler(handler slog.Handler, secrets ...string) *SecretMaskerHandler {
	return &SecretMaskerHandler{
		handler: handler,
		masker:  NewMasker(secrets...),
	}
}

// Enabled реализует интерфейс slog.Handler
func (h *SecretMaskerHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle реализует интерфейс slog.Handler
func (h *SecretMaskerHandler) Handle(ctx context.Context, record slog.Record) error {
	// Работаем с копией: slog может переиспользовать исходную запись.
	// slog.NewRecord без атрибутов, поэтому добавляем их заново уже маскированными.
	r := slog.NewRecord(record.Time, record.Level, h.masker.Mask(record.Message), record.PC)
	record.Attrs(func(a slog.Attr) bool {
		r.AddAttrs(h.maskAttr(a))
		return true
	})

	return h.handler.Handle(ctx, r)
}

// WithAttrs реализует интерфейс slog.Handler
func (h *SecretMaskerHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		masked[i] = h.maskAttr(attr)
	}
	return &SecretMaskerHandler{
		handler: h.handler.WithAttrs(masked),
		masker:  h.masker,
	}
}

// WithGroup реализует интерфейс slog.Handler
func (h *SecretMaskerHandler) WithGroup(name string) slog.Handler {
	return &SecretMaskerHandler{
		handler: h.handler.WithGroup(name),
		masker:  h.masker,
	}
}

func (h *SecretMaskerHandler) maskAttr(a slog.Attr) slog.Attr {
	return slog.Attr{Key: a.Key, Value: h.maskValue(a.Value)}
}

// maskValue рекурсивно маскирует значения атрибутов
func (h *SecretMaskerHandler) maskValue(value slog.Value) slog.Value {
	value = value.Resolve()
	switch value.Kind() {
	case slog.KindString:
		return slog.StringValue(h.masker.Mask(value.String()))
	case slog.KindAny:
		// Ошибки превращаем в строку и маскируем
		if err, ok := value.Any().(error); ok {
			return slog.StringValue(h.masker.Mask(err.Error()))
		}
		return value
	case slog.KindGroup:
		group := value.Group()
		masked := make([]slog.Attr, len(group))
		for i, attr := range group {
			masked[i] = h.maskAttr(attr)
		}
		return slog.GroupValue(masked...)
	default:
		return value
	}
}
