package extract

import (
	"fmt"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// extractXLSX renders every sheet of a modern workbook as a tab-separated
// grid: a "[Sheet: name]" marker, then each row with empty cells as empty
// strings, and a blank line between sheets.
func (e *Extractor) extractXLSX(path string) string {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Sprintf("[unsupported format: .xlsx] %v", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			e.log.Debug("close workbook", zap.String("path", path), zap.Error(cerr))
		}
	}()

	var lines []string
	for _, name := range f.GetSheetList() {
		lines = append(lines, fmt.Sprintf("[Sheet: %s]", name))

		rows, err := f.GetRows(name)
		if err != nil {
			lines = append(lines, fmt.Sprintf("[read failed: sheet %s] %v", name, err))
			lines = append(lines, "")
			continue
		}

		lines = append(lines, gridLines(rows)...)
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// gridLines renders rows as a uniform tab-separated grid: every row is padded
// to the widest row, so empty cells come out as empty strings and every line
// has the same column count.
func gridLines(rows [][]string) []string {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		padded := make([]string, width)
		copy(padded, row)
		lines = append(lines, strings.Join(padded, "\t"))
	}
	return lines
}

// extractXLS renders a legacy BIFF workbook in the same shape as .xlsx. The
// library applies workbook date formats, so date cells come out as formatted
// dates rather than raw serial numbers.
func (e *Extractor) extractXLS(path string) string {
	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return fmt.Sprintf("[unsupported format: .xls] %v", err)
	}

	var lines []string
	for i := 0; i < wb.NumSheets(); i++ {
		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("[Sheet: %s]", sheet.Name))

		// Anchor every row at column zero so leading empty cells survive;
		// gridLines then pads the rectangle out to the widest row.
		rows := make([][]string, 0, int(sheet.MaxRow)+1)
		for r := 0; r <= int(sheet.MaxRow); r++ {
			row := sheet.Row(r)
			if row == nil {
				rows = append(rows, nil)
				continue
			}
			cols := make([]string, row.LastCol())
			for c := row.FirstCol(); c < row.LastCol(); c++ {
				cols[c] = row.Col(c)
			}
			rows = append(rows, cols)
		}
		lines = append(lines, gridLines(rows)...)
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
