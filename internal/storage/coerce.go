package storage

import (
	"strconv"
	"strings"

	"github.com/araddon/dateparse"

	"opendata/internal/table"
)

// typeClass is the binding class of a generic SQL type: what Go value a
// cell of that type is handed to the driver as.
type typeClass int

const (
	classString typeClass = iota
	classInt
	classFloat
	classTime
)

// classOf maps a generic SQL type string onto its binding class by prefix,
// so VARCHAR(100) and DECIMAL(17,4) resolve without parsing the precision.
// Unrecognized types bind as text.
func classOf(sqlType string) typeClass {
	t := strings.ToUpper(strings.TrimSpace(sqlType))
	switch {
	case strings.HasPrefix(t, "INT"), strings.HasPrefix(t, "BIGINT"), strings.HasPrefix(t, "SMALLINT"):
		return classInt
	case strings.HasPrefix(t, "DECIMAL"), strings.HasPrefix(t, "NUMERIC"),
		strings.HasPrefix(t, "FLOAT"), strings.HasPrefix(t, "REAL"), strings.HasPrefix(t, "DOUBLE"):
		return classFloat
	case strings.HasPrefix(t, "DATETIME"), strings.HasPrefix(t, "TIMESTAMP"), strings.HasPrefix(t, "DATE"):
		return classTime
	default:
		return classString
	}
}

// CoerceRows converts raw table cells into the native values each column's
// generic SQL type binds as: INT columns yield int64, DECIMAL float64,
// DATETIME time.Time, everything else the cell's text. Missing cells (nil,
// empty, or the "nan" marker) and cells that fail to parse as their
// column's type become nil, which drivers bind as SQL NULL.
//
// Rows shorter than columns are padded with NULL; extra cells are dropped.
// The input rows are not modified.
func CoerceRows(columns []string, rows [][]any, types map[string]string) [][]any {
	classes := make([]typeClass, len(columns))
	for i, c := range columns {
		classes[i] = classOf(types[c])
	}

	out := make([][]any, len(rows))
	for ri, row := range rows {
		coerced := make([]any, len(columns))
		for ci := range columns {
			if ci < len(row) {
				coerced[ci] = coerceCell(row[ci], classes[ci])
			}
		}
		out[ri] = coerced
	}
	return out
}

// coerceCell converts one cell into its class's native value, or nil when
// the cell is missing or does not parse.
func coerceCell(v any, class typeClass) any {
	if v == nil {
		return nil
	}
	text := table.CellText(v)
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || trimmed == "nan" {
		return nil
	}

	switch class {
	case classInt:
		n, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return nil
		}
		return n
	case classFloat:
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil
		}
		return f
	case classTime:
		ts, err := dateparse.ParseAny(trimmed)
		if err != nil {
			return nil
		}
		return ts
	default:
		return text
	}
}
