package services

import (
	"strconv"

	"telegram-channel-scraper/internal/domain"
)

const dateLayout = "2006-01-02 15:04:05"

// rowContext — все, что известно о сообщении к моменту записи строки.
type rowContext struct {
	channel   domain.Channel
	msg       domain.Message
	fields    domain.ExtractedFields
	mediaType string
	mediaPath string
}

type column struct {
	name  string
	value func(*rowContext) string
}

// layout описывает вариант вывода: колонки по порядку, подавление строк без текста и работу с медиа.
type layout struct {
	columns           []column
	suppressEmptyText bool
	media             bool
}

func (l layout) header() []string {
	h := make([]string, len(l.columns))
	for i, c := range l.columns {
		h[i] = c.name
	}
	return h
}

func (l layout) row(rc *rowContext) []string {
	r := make([]string, len(l.columns))
	for i, c := range l.columns {
		r[i] = c.value(rc)
	}
	return r
}

var (
	colChannelTitle    = column{"Channel Title", func(rc *rowContext) string { return rc.channel.Title }}
	colChannelUsername = column{"Channel Username", func(rc *rowContext) string { return rc.channel.Username }}
	colMessageID       = column{"Message ID", func(rc *rowContext) string { return strconv.Itoa(rc.msg.ID) }}
	colMessageDate     = column{"Message Date", func(rc *rowContext) string { return formatDate(rc.msg) }}
	colSenderID        = column{"Sender ID", func(rc *rowContext) string { return formatSenderID(rc.msg) }}
	colSenderName      = column{"Sender Name", func(rc *rowContext) string { return formatSenderName(rc.msg) }}
	colPrice           = column{"Price", fieldValue(domain.FieldPrice)}
	colPhones          = column{"Phones", fieldValue(domain.FieldPhones)}
	colAddress         = column{"Address", fieldValue(domain.FieldAddress)}
	colMediaType       = column{"Media Type", func(rc *rowContext) string { return rc.mediaType }}
	colMediaPath       = column{"Media Path", func(rc *rowContext) string { return rc.mediaPath }}
	colDescription     = column{"Product Description", fieldValue(domain.FieldScriptText)}
)

// layouts — таблица вариантов. Новый вариант добавляется здесь, оркестрация не меняется.
var layouts = map[domain.Variant]layout{
	domain.VariantFull: {
		columns: []column{
			colChannelTitle, colChannelUsername, colMessageID, colMessageDate,
			colSenderID, colSenderName, colPrice, colPhones, colAddress,
			colMediaType, colMediaPath, colDescription,
		},
		media: true,
	},
	domain.VariantFiltered: {
		columns:           []column{colMessageDate, colSenderID, colMessageID, colDescription},
		suppressEmptyText: true,
	},
}

// Header возвращает заголовок выходного файла для варианта.
func Header(v domain.Variant) ([]string, bool) {
	l, ok := layouts[v]
	if !ok {
		return nil, false
	}
	return l.header(), true
}

func fieldValue(name domain.FieldName) func(*rowContext) string {
	return func(rc *rowContext) string { return rc.fields.Get(name) }
}

func formatDate(m domain.Message) string {
	if m.Date.IsZero() {
		return domain.NoDate
	}
	return m.Date.UTC().Format(dateLayout)
}

func formatSenderID(m domain.Message) string {
	if m.SenderID == 0 {
		return domain.NoSenderID
	}
	return strconv.FormatInt(m.SenderID, 10)
}

func formatSenderName(m domain.Message) string {
	if m.SenderID == 0 || m.SenderName == "" {
		return domain.NoSenderName
	}
	return m.SenderName
}
