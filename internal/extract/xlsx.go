package extract

import (
	"bytes"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractXlsx concatenates cell text from every sheet, rows in row-major
// order, sheets in workbook order. Cell values come back in their
// displayed string form (numbers and dates included). A sheet that fails
// to read is skipped; only a workbook that cannot be opened is a
// DecodeError.
func extractXlsx(data []byte) Result {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return DecodeErrorf("open xlsx workbook: %v", err)
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteString("\n")
		}
	}
	return Text(sb.String())
}
