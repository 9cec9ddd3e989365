package reader

import (
	"encoding/json"
	"errors"
	"testing"
)

const goodJSONDoc = `{
  "meta": { "view": { "columns": [ {"name": "id"}, {"name": "amount"}, {"name": "city"} ] } },
  "data": [
    [1, 2.5, "Austin"],
    [2, null, "Boston"]
  ]
}`

func TestJSONRead(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "in.json", []byte(goodJSONDoc))
	tab, err := JSONReader{}.ReadTable(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	cols := tab.Columns()
	if len(cols) != 3 || cols[0] != "id" || cols[1] != "amount" || cols[2] != "city" {
		t.Fatalf("columns = %v", cols)
	}
	if tab.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2", tab.NumRows())
	}
	if v, _ := tab.Cell(0, "amount"); v != json.Number("2.5") {
		t.Fatalf("number cell = %#v, want json.Number 2.5", v)
	}
	if v, _ := tab.Cell(1, "amount"); v != nil {
		t.Fatalf("null cell = %#v, want nil", v)
	}
	if v, _ := tab.Cell(1, "city"); v != "Boston" {
		t.Fatalf("string cell = %#v, want Boston", v)
	}
}

func TestJSONMalformedDocs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{"missing meta", `{"data": [[1]]}`},
		{"missing columns", `{"meta": {"view": {}}, "data": [[1]]}`},
		{"missing data", `{"meta": {"view": {"columns": [{"name": "a"}]}}}`},
		{"column without name", `{"meta": {"view": {"columns": [{}]}}, "data": []}`},
		{"row arity mismatch", `{"meta": {"view": {"columns": [{"name": "a"}]}}, "data": [[1, 2]]}`},
		{"not json", `{"meta": `},
		{"top level array", `[1, 2, 3]`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := writeFile(t, "in.json", []byte(tt.doc))
			_, err := JSONReader{}.ReadTable(path)
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("err = %v, want *ParseError", err)
			}
		})
	}
}

func TestJSONEmptyData(t *testing.T) {
	t.Parallel()

	doc := `{"meta": {"view": {"columns": [{"name": "a"}]}}, "data": []}`
	path := writeFile(t, "in.json", []byte(doc))
	tab, err := JSONReader{}.ReadTable(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if tab.NumRows() != 0 || tab.NumCols() != 1 {
		t.Fatalf("got %dx%d, want 0 rows x 1 column", tab.NumRows(), tab.NumCols())
	}
}
