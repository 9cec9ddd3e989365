package reader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"opendata/internal/table"
)

// DelimitedReader reads header-first delimited text. The zero value reads
// comma-separated UTF-8.
type DelimitedReader struct {
	// Comma overrides the field delimiter; zero means ','.
	Comma rune
	// Charset names the source encoding. Empty means UTF-8; see
	// ParseCharset for the accepted names.
	Charset string
}

func (DelimitedReader) Format() string { return "delimited" }

// ParseCharset resolves a charset name to its decoder.
func ParseCharset(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8":
		return unicode.UTF8, nil
	case "latin-1", "latin1", "iso-8859-1":
		return charmap.ISO8859_1, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	}
	return nil, fmt.Errorf("unknown charset %q", name)
}

func (d DelimitedReader) ReadTable(path string) (*table.Table, error) {
	enc, err := ParseCharset(d.Charset)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, parseErrf(path, d.Format(), "open: %w", err)
	}
	defer f.Close()

	// A byte order mark, when present, wins over the configured charset.
	src := transform.NewReader(f, unicode.BOMOverride(enc.NewDecoder()))

	cr := csv.NewReader(src)
	if d.Comma != 0 {
		cr.Comma = d.Comma
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, parseErrf(path, d.Format(), "no header row")
		}
		return nil, parseErrf(path, d.Format(), "read header: %w", err)
	}
	columns := headerNames(header)

	var rows [][]any
	for rec := 1; ; rec++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, parseErrf(path, d.Format(), "record %d: %w", rec, err)
		}
		if len(fields) > len(columns) {
			return nil, parseErrf(path, d.Format(), "record %d has %d fields, header has %d",
				rec, len(fields), len(columns))
		}
		row := make([]any, len(columns))
		for i, v := range fields {
			if v != "" {
				row[i] = v
			}
		}
		rows = append(rows, row)
	}

	t, err := table.New(columns, rows)
	if err != nil {
		return nil, parseErrf(path, d.Format(), "%w", err)
	}
	return t, nil
}
