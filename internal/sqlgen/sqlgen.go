// Package sqlgen renders the CREATE TABLE statement for an inferred schema.
// Generation is pure text work; writing the statement anywhere is the
// caller's job.
package sqlgen

import "strings"

// defaultType fills in for columns the type map does not mention.
const defaultType = "VARCHAR(100)"

// CreateTable emits a single CREATE TABLE statement for the named table,
// one column per entry of columns in that order, typed by types. No keys,
// no constraints.
func CreateTable(name string, columns []string, types map[string]string) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(Ident(name))
	if len(columns) == 0 {
		b.WriteString(" ();\n")
		return b.String()
	}
	b.WriteString(" (\n")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(",\n")
		}
		b.WriteString("  ")
		b.WriteString(Ident(c))
		b.WriteString(" ")
		typ := types[c]
		if typ == "" {
			typ = defaultType
		}
		b.WriteString(typ)
	}
	b.WriteString("\n);\n")
	return b.String()
}

// Ident double-quotes a SQL identifier, doubling any embedded quote.
func Ident(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
