package table

import (
	"encoding/csv"
	"io"
)

// WriteCSV writes the table as UTF-8 comma-delimited text: one header row
// of column names, then every data row in order. Missing cells become empty
// fields. No row-number column is emitted.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if len(t.cols) > 0 {
		if err := cw.Write(t.cols); err != nil {
			return err
		}
	}
	rec := make([]string, len(t.cols))
	for _, row := range t.rows {
		for i, v := range row {
			rec[i] = CellText(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
