package reader

import (
	"encoding/xml"
	"os"

	"opendata/internal/table"
)

// XMLReader reads record-oriented XML. The root element's first child is
// the record group; each of its children is one record, and the record's
// direct children are its fields: the tag name is the column, the text is
// the cell. Columns are re-derived for every record, so heterogeneous
// records accrete columns and rows simply leave unknown fields missing.
type XMLReader struct{}

func (XMLReader) Format() string { return "xml" }

type xmlNode struct {
	XMLName xml.Name
	Text    string    `xml:",chardata"`
	Kids    []xmlNode `xml:",any"`
}

func (r XMLReader) ReadTable(path string) (*table.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, parseErrf(path, r.Format(), "open: %w", err)
	}

	var root xmlNode
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, parseErrf(path, r.Format(), "decode: %w", err)
	}
	if len(root.Kids) == 0 {
		return nil, parseErrf(path, r.Format(), "no record group under root element")
	}

	b := table.NewBuilder()
	for i, rec := range root.Kids[0].Kids {
		names := make([]string, len(rec.Kids))
		values := make([]any, len(rec.Kids))
		for j, field := range rec.Kids {
			names[j] = field.XMLName.Local
			if field.Text != "" {
				values[j] = field.Text
			}
		}
		if err := b.Append(names, values); err != nil {
			return nil, parseErrf(path, r.Format(), "record %d: %w", i, err)
		}
	}
	return b.Table(), nil
}
