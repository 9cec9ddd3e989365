// Package infer assigns a SQL column type to every column of a table by
// sampling cell values and resolving the observed shapes through a fixed
// priority rule. Inference is pure: the same table always yields the same
// mapping.
package infer

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"

	"opendata/internal/table"
)

// SQL type strings assigned to resolved columns.
const (
	SQLString = "VARCHAR(100)"
	SQLFloat  = "DECIMAL(17,4)"
	SQLInt    = "INT"
	SQLDate   = "DATETIME"
)

// sampleRows bounds how many rows inference examines. Rows past the bound
// never influence the schema.
const sampleRows = 100

// missingMarker is the trimmed cell text that stands for "no value here".
const missingMarker = "nan"

// Kind classifies a single sampled cell. Only string, float, int and date
// take part in column resolution; bool and composite cells outrank nothing.
type Kind int

const (
	KindMissing Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindDate
	KindComposite
)

// Columns infers one SQL type per column from the table's leading sample.
func Columns(t *table.Table) map[string]string {
	cols := t.Columns()
	rows := t.Rows()
	if len(rows) > sampleRows {
		rows = rows[:sampleRows]
	}

	out := make(map[string]string, len(cols))
	for i, name := range cols {
		seen := make(map[Kind]bool, 4)
		for _, row := range rows {
			if k := guessValue(row[i]); k != KindMissing {
				seen[k] = true
			}
		}
		out[name] = resolve(seen)
	}
	return out
}

// resolve picks the SQL type for the set of kinds observed in one column.
// String beats float beats int beats date, regardless of how often each
// appeared; a set with none of those falls back to the string default.
func resolve(seen map[Kind]bool) string {
	switch {
	case seen[KindString]:
		return SQLString
	case seen[KindFloat]:
		return SQLFloat
	case seen[KindInt]:
		return SQLInt
	case seen[KindDate]:
		return SQLDate
	default:
		return SQLString
	}
}

// guessValue classifies one cell. Missing cells (nil, or trimmed text equal
// to the missing marker) contribute nothing. Date-shaped text is tried
// first, then ordered literal parses: integer, float, boolean, composite.
// Whatever parses as none of those is a string.
func guessValue(v any) Kind {
	if v == nil {
		return KindMissing
	}
	s := strings.TrimSpace(table.CellText(v))
	if s == missingMarker {
		return KindMissing
	}
	if looksLikeDate(s) {
		return KindDate
	}
	if isIntLiteral(s) {
		return KindInt
	}
	if isFloatLiteral(s) {
		return KindFloat
	}
	if _, err := strconv.ParseBool(s); err == nil {
		return KindBool
	}
	if isComposite(s) {
		return KindComposite
	}
	return KindString
}

// looksLikeDate gates the date parser: the text must carry a '-' or '/' and
// be 8 to 10 characters long before ParseAny gets a say.
func looksLikeDate(s string) bool {
	if !strings.ContainsAny(s, "-/") {
		return false
	}
	if len(s) <= 7 || len(s) >= 11 {
		return false
	}
	_, err := dateparse.ParseAny(s)
	return err == nil
}

// isIntLiteral accepts base-10 integers. Multi-digit text with a leading
// zero is not an integer literal and stays textual.
func isIntLiteral(s string) bool {
	if _, err := strconv.ParseInt(s, 10, 64); err != nil {
		return false
	}
	digits := strings.TrimLeft(s, "+-")
	return len(digits) <= 1 || digits[0] != '0'
}

// isFloatLiteral accepts decimal-point or exponent notation only, so the
// leading-zero text rejected above does not reappear as a float.
func isFloatLiteral(s string) bool {
	if !strings.ContainsAny(s, ".eE") {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// isComposite recognizes bracketed JSON structures.
func isComposite(s string) bool {
	if s == "" || (s[0] != '[' && s[0] != '{') {
		return false
	}
	return json.Valid([]byte(s))
}
