// Package table holds the uniform row/column shape every supported input
// format converges to. A Table is built once per source file, consumed by
// type inference and the exporters, then discarded; nothing in this package
// retains state across files.
package table

import (
	"fmt"
	"strconv"
)

// Cell values are scalars read straight from a source file: nil for a
// missing field, otherwise string, json.Number, bool, float64 or int64.
// They stay untyped until inference looks at them.

// Table is an ordered set of named columns plus rows aligned to them.
// Column names are unique; row order is the source file's order.
type Table struct {
	cols  []string
	index map[string]int
	rows  [][]any
}

// New builds a Table from a fixed column list and positional rows.
//
// Every row must have exactly one value per column. Duplicate column names
// are rejected so that schema generation and CSV export stay unambiguous.
func New(columns []string, rows [][]any) (*Table, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		index[c] = i
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(r), len(columns))
		}
	}
	return &Table{cols: columns, index: index, rows: rows}, nil
}

// Columns returns the column names in declaration order. Callers must not
// modify the returned slice.
func (t *Table) Columns() []string { return t.cols }

// Rows returns the row data aligned to Columns. Callers must not modify it.
func (t *Table) Rows() [][]any { return t.rows }

// NumRows reports the number of data rows (the header is not a row).
func (t *Table) NumRows() int { return len(t.rows) }

// NumCols reports the number of columns.
func (t *Table) NumCols() int { return len(t.cols) }

// Cell returns the value at (row, column name). The second result is false
// when the column does not exist or the row is out of range.
func (t *Table) Cell(row int, column string) (any, bool) {
	i, ok := t.index[column]
	if !ok || row < 0 || row >= len(t.rows) {
		return nil, false
	}
	return t.rows[row][i], true
}

// CellText renders a cell the way it is written to CSV: missing cells are
// empty, numbers keep their literal text, everything else prints plainly.
func CellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	default:
		return fmt.Sprint(x)
	}
}
