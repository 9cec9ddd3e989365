package reader

import (
	"os"

	"github.com/knakk/rdf"

	"opendata/internal/table"
)

// RDFReader decodes RDF/XML statements into a three-column table, one row
// per subject/predicate/object triple.
type RDFReader struct{}

func (RDFReader) Format() string { return "rdf" }

func (r RDFReader) ReadTable(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, parseErrf(path, r.Format(), "open: %w", err)
	}
	defer f.Close()

	dec := rdf.NewTripleDecoder(f, rdf.RDFXML)
	triples, err := dec.DecodeAll()
	if err != nil {
		return nil, parseErrf(path, r.Format(), "decode: %w", err)
	}

	rows := make([][]any, len(triples))
	for i, tr := range triples {
		rows[i] = []any{tr.Subj.String(), tr.Pred.String(), tr.Obj.String()}
	}

	t, err := table.New([]string{"subject", "predicate", "object"}, rows)
	if err != nil {
		return nil, parseErrf(path, r.Format(), "%w", err)
	}
	return t, nil
}
