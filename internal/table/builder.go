package table

import "fmt"

// Builder assembles a Table from records whose field sets may differ from
// one another. Columns accrete in first-seen order; records that never
// mention a column hold nil there. All rows are buffered and the Table is
// constructed exactly once by Table().
type Builder struct {
	cols  []string
	index map[string]int
	rows  []map[int]any
}

func NewBuilder() *Builder {
	return &Builder{index: make(map[string]int)}
}

// Append adds one record. names and values run in parallel; a name repeated
// within a single record is an error because the cell would be ambiguous.
func (b *Builder) Append(names []string, values []any) error {
	if len(names) != len(values) {
		return fmt.Errorf("record has %d names but %d values", len(names), len(values))
	}
	row := make(map[int]any, len(names))
	for i, name := range names {
		ix, ok := b.index[name]
		if !ok {
			ix = len(b.cols)
			b.index[name] = ix
			b.cols = append(b.cols, name)
		}
		if _, dup := row[ix]; dup {
			return fmt.Errorf("field %q repeats within one record", name)
		}
		row[ix] = values[i]
	}
	b.rows = append(b.rows, row)
	return nil
}

// Len reports how many records have been appended so far.
func (b *Builder) Len() int { return len(b.rows) }

// Table materializes the buffered records, padding every row out to the
// full accreted column set.
func (b *Builder) Table() *Table {
	rows := make([][]any, len(b.rows))
	for i, rec := range b.rows {
		row := make([]any, len(b.cols))
		for ix, v := range rec {
			row[ix] = v
		}
		rows[i] = row
	}
	index := make(map[string]int, len(b.cols))
	for i, c := range b.cols {
		index[c] = i
	}
	return &Table{cols: b.cols, index: index, rows: rows}
}
