package reader

import (
	"errors"
	"strings"
	"testing"

	"opendata/internal/table"
)

const goodRDFDoc = `<?xml version="1.0"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
         xmlns:dc="http://purl.org/dc/elements/1.1/">
  <rdf:Description rdf:about="http://example.org/dataset/1">
    <dc:title>Annual Report</dc:title>
    <dc:creator>Example Agency</dc:creator>
  </rdf:Description>
</rdf:RDF>`

func TestRDFRead(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "in.rdf", []byte(goodRDFDoc))
	tab, err := RDFReader{}.ReadTable(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	cols := tab.Columns()
	if len(cols) != 3 || cols[0] != "subject" || cols[1] != "predicate" || cols[2] != "object" {
		t.Fatalf("columns = %v", cols)
	}
	if tab.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2 statements", tab.NumRows())
	}

	var sawSubject, sawTitle bool
	for _, row := range tab.Rows() {
		if strings.Contains(table.CellText(row[0]), "example.org/dataset/1") {
			sawSubject = true
		}
		if strings.Contains(table.CellText(row[2]), "Annual Report") {
			sawTitle = true
		}
	}
	if !sawSubject || !sawTitle {
		t.Fatalf("expected subject and title statements, rows = %v", tab.Rows())
	}
}

func TestRDFMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{"not xml", "these are not triples"},
		{"truncated", `<?xml version="1.0"?><rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"><rdf:Description`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := writeFile(t, "in.rdf", []byte(tt.doc))
			_, err := ReadWith(RDFReader{}, path)
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("err = %v, want *ParseError", err)
			}
		})
	}
}
