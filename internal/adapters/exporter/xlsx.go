package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// WriteXLSX записывает строки на один лист книги Excel.
// Первая строка считается заголовком только по положению, форматирование не применяется.
func WriteXLSX(w io.Writer, sheetName string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet %q: %w", sheetName, err)
	}
	f.SetActiveSheet(index)
	if sheetName != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}

	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return fmt.Errorf("invalid cell coordinates (%d, %d): %w", c+1, r+1, err)
			}
			if err := f.SetCellStr(sheetName, cell, value); err != nil {
				return fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}
