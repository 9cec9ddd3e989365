package table

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewRejectsDuplicateColumns(t *testing.T) {
	t.Parallel()

	_, err := New([]string{"a", "b", "a"}, nil)
	if err == nil {
		t.Fatalf("New accepted duplicate column names")
	}
}

func TestNewRejectsRaggedRows(t *testing.T) {
	t.Parallel()

	_, err := New([]string{"a", "b"}, [][]any{{"1", "2"}, {"3"}})
	if err == nil {
		t.Fatalf("New accepted a row narrower than the column set")
	}
}

func TestBuilderAccretesColumns(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	if err := b.Append([]string{"a", "b"}, []any{"1", "2"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := b.Append([]string{"b", "c"}, []any{"3", "4"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	tab := b.Table()

	wantCols := []string{"a", "b", "c"}
	if got := tab.Columns(); len(got) != len(wantCols) {
		t.Fatalf("columns = %v, want %v", got, wantCols)
	} else {
		for i := range wantCols {
			if got[i] != wantCols[i] {
				t.Fatalf("columns = %v, want %v", got, wantCols)
			}
		}
	}

	if v, ok := tab.Cell(0, "c"); !ok || v != nil {
		t.Fatalf("row 0 column c = %v, want nil (absent field)", v)
	}
	if v, _ := tab.Cell(1, "b"); v != "3" {
		t.Fatalf("row 1 column b = %v, want 3", v)
	}
	if v, ok := tab.Cell(1, "a"); !ok || v != nil {
		t.Fatalf("row 1 column a = %v, want nil (absent field)", v)
	}
}

func TestBuilderRejectsRepeatedFieldInRecord(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	if err := b.Append([]string{"a", "a"}, []any{"1", "2"}); err == nil {
		t.Fatalf("append accepted a record with a repeated field name")
	}
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	tab, err := New(
		[]string{"name", "count"},
		[][]any{
			{"alpha", json.Number("12")},
			{"beta", nil},
			{"gamma, inc", json.Number("3.50")},
		},
	)
	if err != nil {
		t.Fatalf("new table: %v", err)
	}

	var buf bytes.Buffer
	if err := tab.WriteCSV(&buf); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	want := "name,count\nalpha,12\nbeta,\n\"gamma, inc\",3.50\n"
	if buf.String() != want {
		t.Fatalf("csv = %q, want %q", buf.String(), want)
	}
}

func TestCellText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "x", "x"},
		{"number keeps literal", json.Number("2.50"), "2.50"},
		{"bool", true, "true"},
		{"float", float64(2.5), "2.5"},
		{"int64", int64(-7), "-7"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CellText(tt.in); got != tt.want {
				t.Fatalf("CellText(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
