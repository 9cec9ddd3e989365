package infer

import (
	"encoding/json"
	"fmt"
	"testing"

	"opendata/internal/table"
)

func oneColumn(t *testing.T, values ...any) *table.Table {
	t.Helper()
	rows := make([][]any, len(values))
	for i, v := range values {
		rows[i] = []any{v}
	}
	tab, err := table.New([]string{"v"}, rows)
	if err != nil {
		t.Fatalf("build table: %v", err)
	}
	return tab
}

func TestColumnsPriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values []any
		want   string
	}{
		{"string dominates mixed", []any{"1", "2.5", "x"}, SQLString},
		{"integers", []any{"1", "2"}, SQLInt},
		{"float dominates int", []any{"1", "2.5"}, SQLFloat},
		{"date", []any{"2020-01-01"}, SQLDate},
		{"all missing", []any{"nan", "nan"}, SQLString},
		{"nil is missing", []any{nil, nil}, SQLString},
		{"missing beside ints", []any{"nan", "4", nil}, SQLInt},
		{"string dominates date", []any{"2020-01-01", "soon"}, SQLString},
		{"float dominates date", []any{"2020-01-01", "2.5"}, SQLFloat},
		{"bools alone default", []any{"true", "false"}, SQLString},
		{"composite alone defaults", []any{"[1, 2]", `{"a": 1}`}, SQLString},
		{"composite beside ints", []any{"[1, 2]", "7"}, SQLInt},
		{"empty text is a string", []any{"", "3"}, SQLString},
		{"leading zero stays textual", []any{"00501", "00544"}, SQLString},
		{"exponent is float", []any{"1e5", "2"}, SQLFloat},
		{"slashed date", []any{"02/01/2006"}, SQLDate},
		{"date shape but unparseable", []any{"ab-cd-efg"}, SQLString},
		{"too short for a date", []any{"1-2-90"}, SQLString},
		{"too long for a date", []any{"2020-01-01T00"}, SQLString},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tab := oneColumn(t, tt.values...)
			got := Columns(tab)
			if got["v"] != tt.want {
				t.Fatalf("Columns(%v) = %q, want %q", tt.values, got["v"], tt.want)
			}
		})
	}
}

func TestColumnsSampleBoundary(t *testing.T) {
	t.Parallel()

	values := make([]any, 0, sampleRows+1)
	for i := 0; i < sampleRows; i++ {
		values = append(values, fmt.Sprintf("%d", i))
	}
	values = append(values, "text past the sample")

	got := Columns(oneColumn(t, values...))
	if got["v"] != SQLInt {
		t.Fatalf("column with text only past row %d = %q, want %q", sampleRows, got["v"], SQLInt)
	}
}

func TestColumnsIdempotent(t *testing.T) {
	t.Parallel()

	tab, err := table.New(
		[]string{"a", "b", "c"},
		[][]any{
			{"1", "x", "2020-01-01"},
			{"2.5", "y", "nan"},
		},
	)
	if err != nil {
		t.Fatalf("build table: %v", err)
	}

	first := Columns(tab)
	second := Columns(tab)
	if len(first) != len(second) {
		t.Fatalf("repeated inference changed the mapping size: %v vs %v", first, second)
	}
	for k, v := range first {
		if second[k] != v {
			t.Fatalf("repeated inference changed %q: %q vs %q", k, v, second[k])
		}
	}
	if first["a"] != SQLFloat || first["b"] != SQLString || first["c"] != SQLDate {
		t.Fatalf("unexpected mapping: %v", first)
	}
}

func TestGuessValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want Kind
	}{
		{"nil", nil, KindMissing},
		{"nan text", " nan ", KindMissing},
		{"int", "42", KindInt},
		{"negative int", "-7", KindInt},
		{"zero", "0", KindInt},
		{"leading zero", "007", KindString},
		{"float", "2.5", KindFloat},
		{"exponent", "1e5", KindFloat},
		{"bool word", "true", KindBool},
		{"date", "2020-01-01", KindDate},
		{"json array", "[1, 2]", KindComposite},
		{"plain word", "hello", KindString},
		{"native number", json.Number("12"), KindInt},
		{"native bool", true, KindBool},
		{"padded int", "  9  ", KindInt},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := guessValue(tt.in); got != tt.want {
				t.Fatalf("guessValue(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
