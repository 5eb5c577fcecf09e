package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractExcel renders each non-blank row as one tab-separated line. Sheets
// follow workbook order and trailing empty cells are dropped.
func extractExcel(content []byte) (string, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	lines := make([]string, 0, 64)
	for _, name := range wb.GetSheetList() {
		rows, err := wb.GetRows(name)
		if err != nil {
			return "", fmt.Errorf("read sheet %q: %w", name, err)
		}
		for _, cells := range rows {
			last := len(cells)
			for last > 0 && strings.TrimSpace(cells[last-1]) == "" {
				last--
			}
			if last == 0 {
				continue
			}
			lines = append(lines, strings.Join(cells[:last], "\t"))
		}
	}
	return strings.Join(lines, "\n"), nil
}
