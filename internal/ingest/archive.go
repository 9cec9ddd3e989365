package ingest

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"opendata/internal/metrics"
	"opendata/internal/reader"
)

// processArchive expands a zip next to itself and processes every entry
// whose extension has a reader. Nested zips and unknown entries are
// recorded and skipped; a bad entry never stops the walk.
func (p *Processor) processArchive(path string) (Result, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		res := Result{Path: path, Status: StatusUnsupported, Reason: err}
		p.logf("unsupported file=%s reason=%v", path, err)
		metrics.RecordFile(res.Status.String())
		return res, nil
	}
	defer zr.Close()

	dest := filepath.Join(filepath.Dir(path), firstDotBase(path))
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return Result{Path: path}, fmt.Errorf("create extract dir: %w", err)
	}

	res := Result{Path: path, Status: StatusArchive}
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}

		name := filepath.FromSlash(zf.Name)
		if !filepath.IsLocal(name) {
			child := Result{Path: zf.Name, Status: StatusUnsupported, Reason: errors.New("entry escapes the archive")}
			p.logf("skipping archive=%s entry=%s reason=unsafe path", path, zf.Name)
			metrics.RecordFile(child.Status.String())
			res.Entries = append(res.Entries, child)
			continue
		}

		ext := extOf(name)
		if _, ok := p.readerFor(ext); !ok || ext == "zip" {
			child := Result{
				Path:   zf.Name,
				Status: StatusUnsupported,
				Reason: fmt.Errorf("%s: %w", ext, reader.ErrUnsupported),
			}
			p.logf("skipping archive=%s entry=%s ext=%q", path, zf.Name, ext)
			metrics.RecordFile(child.Status.String())
			res.Entries = append(res.Entries, child)
			continue
		}

		extracted := filepath.Join(dest, name)
		if err := extractEntry(zf, extracted); err != nil {
			child := Result{Path: zf.Name, Status: StatusUnsupported, Reason: err}
			p.logf("skipping archive=%s entry=%s reason=%v", path, zf.Name, err)
			metrics.RecordFile(child.Status.String())
			res.Entries = append(res.Entries, child)
			continue
		}

		child, err := p.ProcessFile(extracted)
		if err != nil {
			return res, err
		}
		res.Entries = append(res.Entries, child)
	}
	return res, nil
}

// extractEntry copies one archive member to dest, creating parents as
// needed. Partial files are removed on failure.
func extractEntry(zf *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	rc, err := zf.Open()
	if err != nil {
		return fmt.Errorf("open entry: %w", err)
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("extract: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("close: %w", err)
	}
	return nil
}
