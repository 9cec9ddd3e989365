package reader

import (
	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"opendata/internal/table"
)

// SpreadsheetReader reads the first worksheet of an Excel workbook. Legacy
// selects the binary .xls codec instead of the zipped .xlsx one.
type SpreadsheetReader struct {
	Legacy bool
}

func (r SpreadsheetReader) Format() string {
	if r.Legacy {
		return "xls"
	}
	return "xlsx"
}

// legacyRowCap bounds how many rows the .xls codec materializes.
const legacyRowCap = 1 << 20

func (r SpreadsheetReader) ReadTable(path string) (*table.Table, error) {
	if r.Legacy {
		wb, err := xls.Open(path, "utf-8")
		if err != nil {
			return nil, parseErrf(path, r.Format(), "open workbook: %w", err)
		}
		return gridTable(path, r.Format(), wb.ReadAllCells(legacyRowCap))
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, parseErrf(path, r.Format(), "open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, parseErrf(path, r.Format(), "workbook has no sheets")
	}
	grid, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, parseErrf(path, r.Format(), "read sheet %q: %w", sheets[0], err)
	}
	return gridTable(path, r.Format(), grid)
}
