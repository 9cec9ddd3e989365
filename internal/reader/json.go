package reader

import (
	"encoding/json"
	"os"

	"opendata/internal/table"
)

// JSONReader reads the hierarchical catalog export shape:
//
//	{ "data": [[...row values...]], "meta": { "view": { "columns": [{"name": ...}] } } }
//
// Column names come from meta.view.columns in order; rows are positional.
type JSONReader struct{}

func (JSONReader) Format() string { return "json" }

type hierarchicalDoc struct {
	Data [][]any `json:"data"`
	Meta struct {
		View struct {
			Columns []struct {
				Name string `json:"name"`
			} `json:"columns"`
		} `json:"view"`
	} `json:"meta"`
}

func (r JSONReader) ReadTable(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, parseErrf(path, r.Format(), "open: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()
	var doc hierarchicalDoc
	if err := dec.Decode(&doc); err != nil {
		return nil, parseErrf(path, r.Format(), "decode: %w", err)
	}

	// Both key paths must exist; a document without them is some other
	// JSON dialect, which this reader does not guess at.
	if doc.Meta.View.Columns == nil {
		return nil, parseErrf(path, r.Format(), "missing meta.view.columns")
	}
	if doc.Data == nil {
		return nil, parseErrf(path, r.Format(), "missing data")
	}

	columns := make([]string, len(doc.Meta.View.Columns))
	for i, c := range doc.Meta.View.Columns {
		if c.Name == "" {
			return nil, parseErrf(path, r.Format(), "column %d has no name", i)
		}
		columns[i] = c.Name
	}

	rows := make([][]any, len(doc.Data))
	for i, rec := range doc.Data {
		if len(rec) != len(columns) {
			return nil, parseErrf(path, r.Format(), "row %d has %d values, %d columns declared",
				i, len(rec), len(columns))
		}
		rows[i] = rec
	}

	t, err := table.New(columns, rows)
	if err != nil {
		return nil, parseErrf(path, r.Format(), "%w", err)
	}
	return t, nil
}
