// Package ingest drives one file through the pipeline: pick a reader by
// extension, build the table, infer the schema, and write the CSV and SQL
// artifacts. Content problems downgrade to a recorded per-file outcome;
// only sink I/O faults come back as errors, so a batch always runs to the
// end.
package ingest

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"opendata/internal/infer"
	"opendata/internal/metrics"
	"opendata/internal/reader"
	"opendata/internal/sqlgen"
	"opendata/internal/table"
)

// Logger is the seam the processor logs through.
type Logger interface {
	Printf(format string, args ...any)
}

// Status is the per-file outcome.
type Status int

const (
	// StatusConverted means both artifacts were written.
	StatusConverted Status = iota + 1
	// StatusUnsupported means the file produced no table: unknown
	// extension or content that failed to parse. Recorded, never fatal.
	StatusUnsupported
	// StatusArchive marks a container whose entries carry their own
	// results.
	StatusArchive
)

func (s Status) String() string {
	switch s {
	case StatusConverted:
		return "converted"
	case StatusUnsupported:
		return "unsupported"
	case StatusArchive:
		return "archive"
	default:
		return "unknown"
	}
}

// Result reports what happened to one input file.
type Result struct {
	Path    string
	Status  Status
	CSVPath string
	SQLPath string
	// Reason holds the parse or dispatch failure for unsupported files.
	Reason error
	// Entries holds one Result per processed archive member.
	Entries []Result
}

// Partial reports whether an archive converted some entries but not all.
func (r Result) Partial() bool {
	if r.Status != StatusArchive {
		return false
	}
	conv, other := 0, 0
	for _, e := range r.Entries {
		if e.Status == StatusConverted {
			conv++
		} else {
			other++
		}
	}
	return conv > 0 && other > 0
}

// Summary renders a one-line outcome for logs.
func (r Result) Summary() string {
	if r.Status != StatusArchive {
		return r.Status.String()
	}
	conv := 0
	for _, e := range r.Entries {
		if e.Status == StatusConverted {
			conv++
		}
	}
	return fmt.Sprintf("archive %d/%d converted", conv, len(r.Entries))
}

// Processor converts files into CSV and SQL artifacts.
type Processor struct {
	// CSVDir and SQLDir receive the artifacts.
	CSVDir string
	SQLDir string
	// Readers maps extensions to reader variants. Defaults to
	// reader.Defaults().
	Readers map[string]reader.FileReader
	// Log receives per-file diagnostics. Defaults to the standard logger.
	Log Logger
}

// New returns a Processor writing into the two directories.
func New(csvDir, sqlDir string) *Processor {
	return &Processor{
		CSVDir:  csvDir,
		SQLDir:  sqlDir,
		Readers: reader.Defaults(),
	}
}

func (p *Processor) logf(format string, args ...any) {
	if p.Log != nil {
		p.Log.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

func (p *Processor) readerFor(ext string) (reader.FileReader, bool) {
	if p.Readers != nil {
		r, ok := p.Readers[ext]
		return r, ok
	}
	return reader.ForExtension(ext)
}

// ProcessFile converts one file. Archives fan out into per-entry results.
// The returned error reports sink I/O faults only; everything the file
// itself got wrong is in the Result.
func (p *Processor) ProcessFile(path string) (Result, error) {
	ext := extOf(path)
	if ext == "zip" {
		return p.processArchive(path)
	}

	r, ok := p.readerFor(ext)
	if !ok {
		res := Result{
			Path:   path,
			Status: StatusUnsupported,
			Reason: fmt.Errorf("%s: %w", ext, reader.ErrUnsupported),
		}
		p.logf("unsupported file=%s ext=%q", path, ext)
		metrics.RecordFile(res.Status.String())
		return res, nil
	}

	tab, err := reader.ReadWith(r, path)
	if err != nil {
		res := Result{Path: path, Status: StatusUnsupported, Reason: err}
		p.logf("unsupported file=%s reason=%v", path, err)
		metrics.RecordFile(res.Status.String())
		return res, nil
	}

	base := firstDotBase(path)
	csvPath, sqlPath, err := p.writeArtifacts(tab, base)
	if err != nil {
		return Result{Path: path}, err
	}

	res := Result{Path: path, Status: StatusConverted, CSVPath: csvPath, SQLPath: sqlPath}
	p.logf("converted file=%s rows=%d cols=%d", path, tab.NumRows(), tab.NumCols())
	metrics.RecordFile(res.Status.String())
	return res, nil
}

// writeArtifacts writes <base>.csv and <base>.sql and returns their paths.
func (p *Processor) writeArtifacts(tab *table.Table, base string) (string, string, error) {
	types := infer.Columns(tab)
	ddl := sqlgen.CreateTable(base, tab.Columns(), types)

	csvPath := filepath.Join(p.CSVDir, base+".csv")
	f, err := os.Create(csvPath)
	if err != nil {
		return "", "", fmt.Errorf("create csv: %w", err)
	}
	if err := tab.WriteCSV(f); err != nil {
		f.Close()
		os.Remove(csvPath)
		return "", "", fmt.Errorf("write csv: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(csvPath)
		return "", "", fmt.Errorf("close csv: %w", err)
	}

	sqlPath := filepath.Join(p.SQLDir, base+".sql")
	if err := os.WriteFile(sqlPath, []byte(ddl), 0o644); err != nil {
		os.Remove(csvPath)
		return "", "", fmt.Errorf("write sql: %w", err)
	}
	return csvPath, sqlPath, nil
}

// extOf returns the text after the final dot of the last path element,
// matched case-sensitively against the supported set.
func extOf(path string) string {
	name := filepath.Base(path)
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return name
	}
	return name[i+1:]
}

// firstDotBase returns the last path element cut at its first dot; output
// artifacts and the DDL table are named after it.
func firstDotBase(path string) string {
	name := filepath.Base(path)
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}
