package exporter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTable(t *testing.T) {
	t.Run("колонки выравниваются по ширине", func(t *testing.T) {
		var buf bytes.Buffer
		rows := [][]string{
			{"ዋጋ", "B-PRICE"},
			{"2500", "I-PRICE"},
		}
		require.NoError(t, RenderTable(&buf, rows, 0))

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		require.Len(t, lines, 2)
		assert.Equal(t, "ዋጋ   | B-PRICE", lines[0])
		assert.Equal(t, "2500 | I-PRICE", lines[1])
	})

	t.Run("длинные значения обрезаются", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, RenderTable(&buf, [][]string{{"abcdefghij"}}, 5))
		assert.Equal(t, "abcd…\n", buf.String())
	})

	t.Run("пустая таблица", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, RenderTable(&buf, nil, 0))
		assert.Equal(t, "(empty)\n", buf.String())
	})
}
