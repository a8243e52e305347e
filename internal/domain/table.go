package domain

// Table — двумерная таблица без заголовка и без приведения типов.
// Строки могут иметь разную длину, недостающие ячейки считаются отсутствующими.
type Table struct {
	Rows [][]string
}

// Width возвращает количество колонок, то есть длину самой длинной строки.
func (t *Table) Width() int {
	width := 0
	for _, row := range t.Rows {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// Len возвращает количество строк.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Cell возвращает значение ячейки и false, если ячейка отсутствует.
func (t *Table) Cell(row, col int) (string, bool) {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return "", false
	}
	return t.Rows[row][col], true
}

// Padded возвращает копию строк, дополненных маркером до ширины таблицы.
func (t *Table) Padded(absent string) [][]string {
	width := t.Width()
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		padded := make([]string, width)
		copy(padded, row)
		for j := len(row); j < width; j++ {
			padded[j] = absent
		}
		out[i] = padded
	}
	return out
}
