package exporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// RenderTable печатает строки выровненными колонками.
// Ширина считается в ячейках терминала, поэтому эфиопские и широкие символы не ломают выравнивание.
// Ячейки длиннее maxWidth обрезаются с многоточием; maxWidth <= 0 отключает обрезку.
func RenderTable(w io.Writer, rows [][]string, maxWidth int) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "(empty)")
		return err
	}

	widths := make([]int, 0)
	cells := make([][]string, len(rows))
	for i, row := range rows {
		cells[i] = make([]string, len(row))
		for j, v := range row {
			v = strings.ReplaceAll(v, "\n", " ")
			if maxWidth > 0 {
				v = runewidth.Truncate(v, maxWidth, "…")
			}
			cells[i][j] = v
			if j >= len(widths) {
				widths = append(widths, 0)
			}
			if cw := runewidth.StringWidth(v); cw > widths[j] {
				widths[j] = cw
			}
		}
	}

	for _, row := range cells {
		var sb strings.Builder
		for j, v := range row {
			if j > 0 {
				sb.WriteString(" | ")
			}
			sb.WriteString(runewidth.FillRight(v, widths[j]))
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(sb.String(), " ")); err != nil {
			return err
		}
	}
	return nil
}
