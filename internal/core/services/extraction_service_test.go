package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-channel-scraper/internal/domain"
)

func newExtractor(t *testing.T) *ExtractionService {
	t.Helper()
	s, err := NewExtractionService(domain.DefaultScriptClass())
	require.NoError(t, err)
	return s
}

func TestExtractionService_Price(t *testing.T) {
	s := newExtractor(t)

	testCases := []struct {
		name string
		text string
		want string
	}{
		{"сумма перед валютой", "Price 2,500.00 ብር call", "2,500.00 ብር"},
		{"валюта перед суммой", "ዋጋ ብር 300 ብቻ", "ብር 300"},
		{"без пробела", "450ብር", "450ብር"},
		{"берется первое совпадение", "100 ብር or 200 ብር", "100 ብር"},
		{"нет валюты", "Price 2500", domain.NoPrice},
		{"пустой текст", "", domain.NoPrice},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, s.ExtractPrice(tc.text))
		})
	}
}

func TestExtractionService_Phones(t *testing.T) {
	s := newExtractor(t)

	testCases := []struct {
		name string
		text string
		want string
	}{
		{"местный номер", "call 0928460606", "0928460606"},
		{"номер с кодом страны", "tel 251912345678", "251912345678"},
		{"несколько номеров по порядку", "0911223344 or 251987654321, 0900000000", "0911223344, 251987654321, 0900000000"},
		{"номер внутри длинного числа", "10911223344", domain.NoPhones},
		{"нет номеров", "no phone", domain.NoPhones},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, s.ExtractPhones(tc.text))
		})
	}
}

func TestExtractionService_Address(t *testing.T) {
	s := newExtractor(t)

	assert.Equal(t, "Bole, Addis Ababa", s.ExtractAddress("shop 📍 Bole, Addis Ababa"))
	assert.Equal(t, "Bole\nPiassa", s.ExtractAddress("📍 Bole\nother line\n📍  Piassa  "))
	assert.Equal(t, domain.NoAddress, s.ExtractAddress("Bole, Addis Ababa"))
}

func TestExtractionService_ScriptText(t *testing.T) {
	s := newExtractor(t)

	assert.Equal(t, "ሰላም", s.ExtractScriptText("  ሰላም  "))
	assert.Equal(t, `"ሻይ"`, s.ExtractScriptText(`"ሻይ" 50`))
	// Пробелы вне письменности отбрасываются обрезкой
	assert.Equal(t, "", s.ExtractScriptText("Only english 123"))
	assert.Equal(t, "", s.ExtractScriptText(""))

	t.Run("цифры в классе", func(t *testing.T) {
		withDigits, err := NewExtractionService(domain.ScriptClass{
			Ranges: []domain.RuneRange{domain.EthiopicRange},
			Digits: true,
		})
		require.NoError(t, err)
		assert.Equal(t, "ዋጋ500", withDigits.ExtractScriptText("ዋጋ500!"))
	})

	t.Run("пустой класс", func(t *testing.T) {
		_, err := NewExtractionService(domain.ScriptClass{})
		assert.Error(t, err)
	})
}

func TestExtractionService_Extract(t *testing.T) {
	s := newExtractor(t)

	t.Run("все поля найдены", func(t *testing.T) {
		fields := s.Extract("Price 2,500.00 ብር call 0928460606 📍 Bole, Addis Ababa")
		assert.Equal(t, "2,500.00 ብር", fields.Get(domain.FieldPrice))
		assert.Equal(t, "0928460606", fields.Get(domain.FieldPhones))
		assert.Equal(t, "Bole, Addis Ababa", fields.Get(domain.FieldAddress))
	})

	t.Run("ничего не найдено", func(t *testing.T) {
		fields := s.Extract("plain text without anything")
		assert.Equal(t, domain.ExtractedFields{
			domain.FieldPrice:      domain.NoPrice,
			domain.FieldPhones:     domain.NoPhones,
			domain.FieldAddress:    domain.NoAddress,
			domain.FieldScriptText: domain.NoText,
		}, fields)
	})

	t.Run("повторное извлечение дает тот же результат", func(t *testing.T) {
		text := "ሻይ 50 ብር 0911223344 📍 Bole"
		assert.Equal(t, s.Extract(text), s.Extract(text))
	})
}
