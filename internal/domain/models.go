package domain

import "time"

// Заглушки, которыми заполняются отсутствующие значения в выходных строках.
const (
	NoPrice      = "[No Price]"
	NoPhones     = "[No Phone Numbers]"
	NoAddress    = "[No Address]"
	NoText       = "[No Text]"
	NoDate       = "[No Date]"
	NoSenderID   = "[No Sender ID]"
	NoSenderName = "[No Sender Name]"
	NoMedia      = "[No Media]"
)

// MediaType классифицирует вложение сообщения.
type MediaType string

const (
	MediaPhoto MediaType = "photo"
)

// Media описывает вложение сообщения.
type Media struct {
	Type MediaType
	// Ref — непрозрачный дескриптор платформы, нужен только для скачивания.
	Ref any
}

// IsPhoto сообщает, является ли вложение фотографией.
func (m *Media) IsPhoto() bool {
	return m != nil && m.Type == MediaPhoto
}

// Message представляет одно сообщение канала.
type Message struct {
	ID         int
	Text       string
	Date       time.Time // нулевое значение, если дата неизвестна
	SenderID   int64     // 0, если отправитель неизвестен
	SenderName string
	Media      *Media
}

// Channel представляет разрешенный канал.
type Channel struct {
	Username string
	ID       int64
	Title    string
	// Ref — непрозрачный дескриптор платформы (например, InputPeer).
	Ref any
}

// FieldName — имя извлекаемого поля.
type FieldName string

const (
	FieldPrice      FieldName = "price"
	FieldPhones     FieldName = "phones"
	FieldAddress    FieldName = "address"
	FieldScriptText FieldName = "script_text"
)

// ExtractedFields хранит извлеченные из текста поля.
// Каждое значение либо найденный текст, либо заглушка поля, но никогда не пустая строка.
type ExtractedFields map[FieldName]string

// Get возвращает значение поля.
func (f ExtractedFields) Get(name FieldName) string {
	return f[name]
}

// Variant определяет набор колонок выходного файла.
type Variant string

const (
	VariantFull     Variant = "full"
	VariantFiltered Variant = "filtered"
)

// ChannelErrorPolicy определяет поведение при ошибке разрешения канала.
type ChannelErrorPolicy string

const (
	OnChannelErrorAbort ChannelErrorPolicy = "abort"
	OnChannelErrorSkip  ChannelErrorPolicy = "skip"
)

// ChannelSummary — итоги обработки одного канала.
type ChannelSummary struct {
	Username   string `json:"username"`
	Title      string `json:"title,omitempty"`
	Rows       int    `json:"rows"`
	Suppressed int    `json:"suppressed"`
	Skipped    bool   `json:"skipped,omitempty"`
	Error      string `json:"error,omitempty"`
}

// RunSummary — итоги одного запуска.
type RunSummary struct {
	OutputPath string           `json:"output_path"`
	Variant    Variant          `json:"variant"`
	Channels   []ChannelSummary `json:"channels"`
	Rows       int              `json:"rows"`
	Suppressed int              `json:"suppressed"`
}
