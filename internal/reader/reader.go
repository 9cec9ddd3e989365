// Package reader turns files of the supported formats into tables. Each
// format is one FileReader variant behind an extension lookup; everything
// that goes wrong with a file's content surfaces as a *ParseError from the
// read call, never as a panic.
package reader

import (
	"errors"
	"fmt"
	"sort"

	"opendata/internal/table"
)

// ErrUnsupported marks an extension no reader variant claims.
var ErrUnsupported = errors.New("unsupported format")

// ParseError reports a file whose extension was recognized but whose
// content did not match the expected shape.
type ParseError struct {
	Path   string
	Format string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s as %s: %v", e.Path, e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// parseErrf builds a ParseError in one line.
func parseErrf(path, format, msg string, args ...any) error {
	return &ParseError{Path: path, Format: format, Err: fmt.Errorf(msg, args...)}
}

// FileReader reads one source format into a table.
type FileReader interface {
	// Format names the variant for logs and error messages.
	Format() string
	// ReadTable parses the file at path. Content problems come back as a
	// *ParseError.
	ReadTable(path string) (*table.Table, error)
}

// defaults maps a case-sensitive filename extension to its reader variant.
var defaults = map[string]FileReader{
	"xls":  SpreadsheetReader{Legacy: true},
	"xlsx": SpreadsheetReader{},
	"csv":  DelimitedReader{},
	"json": JSONReader{},
	"xml":  XMLReader{},
	"rdf":  RDFReader{},
}

// ForExtension returns the reader variant registered for ext, if any.
func ForExtension(ext string) (FileReader, bool) {
	r, ok := defaults[ext]
	return r, ok
}

// Defaults returns a fresh copy of the default extension table so callers
// can swap individual variants (a custom delimiter, say) without touching
// the package state.
func Defaults() map[string]FileReader {
	m := make(map[string]FileReader, len(defaults))
	for k, v := range defaults {
		m[k] = v
	}
	return m
}

// Extensions lists the supported extensions in sorted order.
func Extensions() []string {
	out := make([]string, 0, len(defaults))
	for k := range defaults {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Read parses path with the variant registered for ext. Unknown extensions
// report ErrUnsupported.
func Read(path, ext string) (*table.Table, error) {
	r, ok := ForExtension(ext)
	if !ok {
		return nil, fmt.Errorf("%s: %w", ext, ErrUnsupported)
	}
	return ReadWith(r, path)
}

// ReadWith runs one reader variant under the boundary guard: a panic inside
// a format library is converted into a *ParseError so a bad file can never
// take down a batch.
func ReadWith(r FileReader, path string) (t *table.Table, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			t = nil
			err = parseErrf(path, r.Format(), "reader panic: %v", rec)
		}
	}()
	return r.ReadTable(path)
}
