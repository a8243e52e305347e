package services

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"

	"telegram-channel-scraper/internal/domain"
)

// Шаблоны извлечения. Компилируются regexp2, потому что \b, \d и \s должны
// учитывать Unicode: эфиопские буквы — это символы слова.
const (
	pricePattern   = `(\d{1,3}(?:,\d{3})*(?:\.\d{2})?)\s*ብር|\bብር\s*(\d{1,3}(?:,\d{3})*(?:\.\d{2})?)`
	phonePattern   = `\b(?:09\d{8}|2519\d{8})\b`
	addressPattern = `📍\s*([^\n]+)`
)

// matchMode определяет, берется ли первое совпадение или все.
type matchMode int

const (
	matchFirst matchMode = iota
	matchAll
)

// fieldRule описывает извлечение одного поля: шаблон, группа, склейка, постобработка и заглушка.
type fieldRule struct {
	name     domain.FieldName
	re       *regexp2.Regexp
	mode     matchMode
	group    int
	join     string
	post     func(string) string
	trim     bool
	sentinel string
}

// apply возвращает извлеченное значение или пустую строку, если совпадений нет.
func (r fieldRule) apply(text string) string {
	var parts []string
	switch r.mode {
	case matchFirst:
		if m, _ := r.re.FindStringMatch(text); m != nil {
			parts = append(parts, groupString(m, r.group))
		}
	case matchAll:
		parts = findAll(r.re, text, r.group)
	}
	if len(parts) == 0 {
		return ""
	}
	if r.post != nil {
		for i := range parts {
			parts[i] = r.post(parts[i])
		}
	}
	out := strings.Join(parts, r.join)
	if r.trim {
		out = strings.TrimSpace(out)
	}
	return out
}

// ExtractionService извлекает структурированные поля из текста сообщения.
// Не хранит изменяемого состояния и безопасен для одновременного использования.
type ExtractionService struct {
	rules  []fieldRule
	byName map[domain.FieldName]fieldRule
}

// NewExtractionService создает сервис с правилами по умолчанию и указанным классом письменности.
func NewExtractionService(script domain.ScriptClass) (*ExtractionService, error) {
	scriptRe, err := compileScriptClass(script)
	if err != nil {
		return nil, err
	}

	rules := []fieldRule{
		{
			name:     domain.FieldPrice,
			re:       regexp2.MustCompile(pricePattern, regexp2.None),
			mode:     matchFirst,
			sentinel: domain.NoPrice,
		},
		{
			name:     domain.FieldPhones,
			re:       regexp2.MustCompile(phonePattern, regexp2.None),
			mode:     matchAll,
			join:     ", ",
			sentinel: domain.NoPhones,
		},
		{
			name:     domain.FieldAddress,
			re:       regexp2.MustCompile(addressPattern, regexp2.None),
			mode:     matchAll,
			group:    1,
			join:     "\n",
			post:     strings.TrimSpace,
			sentinel: domain.NoAddress,
		},
		{
			name:     domain.FieldScriptText,
			re:       scriptRe,
			mode:     matchAll,
			join:     " ",
			trim:     true,
			sentinel: domain.NoText,
		},
	}

	s := &ExtractionService{
		rules:  rules,
		byName: make(map[domain.FieldName]fieldRule, len(rules)),
	}
	for _, r := range rules {
		s.byName[r.name] = r
	}
	return s, nil
}

// Extract извлекает все поля. Ненайденные поля заполняются заглушками.
func (s *ExtractionService) Extract(text string) domain.ExtractedFields {
	fields := make(domain.ExtractedFields, len(s.rules))
	for _, r := range s.rules {
		v := r.apply(text)
		if v == "" {
			v = r.sentinel
		}
		fields[r.name] = v
	}
	return fields
}

// ExtractPrice возвращает первую найденную цену целиком или [No Price].
func (s *ExtractionService) ExtractPrice(text string) string {
	return s.field(domain.FieldPrice, text)
}

// ExtractPhones возвращает все номера телефонов через ", " или [No Phone Numbers].
func (s *ExtractionService) ExtractPhones(text string) string {
	return s.field(domain.FieldPhones, text)
}

// ExtractAddress возвращает все строки после 📍 через перевод строки или [No Address].
func (s *ExtractionService) ExtractAddress(text string) string {
	return s.field(domain.FieldAddress, text)
}

// ExtractScriptText возвращает все фрагменты текста письменности через пробел.
// Если ничего не найдено, возвращает пустую строку: заглушку подставляет вызывающий код.
func (s *ExtractionService) ExtractScriptText(text string) string {
	return s.byName[domain.FieldScriptText].apply(text)
}

func (s *ExtractionService) field(name domain.FieldName, text string) string {
	r := s.byName[name]
	if v := r.apply(text); v != "" {
		return v
	}
	return r.sentinel
}

// findAll возвращает все неперекрывающиеся совпадения слева направо.
// Ошибка regexp2 возможна только при заданном MatchTimeout, поэтому она завершает поиск.
func findAll(re *regexp2.Regexp, text string, group int) []string {
	var out []string
	m, err := re.FindStringMatch(text)
	for err == nil && m != nil {
		out = append(out, groupString(m, group))
		m, err = re.FindNextMatch(m)
	}
	return out
}

func groupString(m *regexp2.Match, group int) string {
	if group == 0 {
		return m.String()
	}
	if g := m.GroupByNumber(group); g != nil {
		return g.String()
	}
	return ""
}

// compileScriptClass собирает класс символов вида [ሀ-፿"\s]+.
func compileScriptClass(sc domain.ScriptClass) (*regexp2.Regexp, error) {
	var b strings.Builder
	b.WriteString("[")
	for _, r := range sc.Ranges {
		b.WriteString(escapeClassRune(r.Lo))
		if r.Hi != r.Lo {
			b.WriteString("-")
			b.WriteString(escapeClassRune(r.Hi))
		}
	}
	for _, r := range sc.ExtraChars {
		b.WriteString(escapeClassRune(r))
	}
	if sc.Whitespace {
		b.WriteString(`\s`)
	}
	if sc.Digits {
		b.WriteString(`\d`)
	}
	if sc.Punctuation {
		b.WriteString(`\p{P}`)
	}
	b.WriteString("]+")

	if b.Len() == len("[]+") {
		return nil, fmt.Errorf("script class is empty")
	}
	re, err := regexp2.Compile(b.String(), regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("failed to compile script class %q: %w", b.String(), err)
	}
	return re, nil
}

func escapeClassRune(r rune) string {
	if strings.ContainsRune(`\]^-[`, r) {
		return `\` + string(r)
	}
	return string(r)
}
