package sqlgen

import (
	"strings"
	"testing"
)

func TestCreateTable(t *testing.T) {
	t.Parallel()

	got := CreateTable(
		"Annual_Report",
		[]string{"Agency", "Total"},
		map[string]string{"Agency": "VARCHAR(100)", "Total": "INT"},
	)

	want := "CREATE TABLE \"Annual_Report\" (\n  \"Agency\" VARCHAR(100),\n  \"Total\" INT\n);\n"
	if got != want {
		t.Fatalf("ddl = %q, want %q", got, want)
	}
}

func TestCreateTableKeepsColumnOrder(t *testing.T) {
	t.Parallel()

	types := map[string]string{"b": "INT", "a": "DATETIME", "c": "DECIMAL(17,4)"}
	got := CreateTable("t", []string{"c", "a", "b"}, types)

	ic := strings.Index(got, `"c"`)
	ia := strings.Index(got, `"a"`)
	ib := strings.Index(got, `"b"`)
	if ic < 0 || ia < 0 || ib < 0 || !(ic < ia && ia < ib) {
		t.Fatalf("columns out of order in %q", got)
	}
}

func TestCreateTableDefaultsUnknownColumns(t *testing.T) {
	t.Parallel()

	got := CreateTable("t", []string{"x"}, nil)
	if !strings.Contains(got, `"x" VARCHAR(100)`) {
		t.Fatalf("missing default type in %q", got)
	}
}

func TestIdentQuoting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "total", `"total"`},
		{"spaces", "Total Amount", `"Total Amount"`},
		{"embedded quote", `say "hi"`, `"say ""hi"""`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Ident(tt.in); got != tt.want {
				t.Fatalf("Ident(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
