// Package fetchjob prepares the on-disk workspace for one dataset fetch:
// a folder named after the dataset title holding download/, csv/ and sql/
// subfolders.
package fetchjob

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// nameCleaner strips characters that are unsafe in file and folder names
// on at least one supported platform.
var nameCleaner = strings.NewReplacer(
	`\`, "",
	"/", "",
	":", "",
	"?", "",
	"*", "",
	"|", "",
	`"`, "",
)

// Sanitize removes path separators and shell-hostile characters from a
// dataset or resource name. It never returns a name that can escape its
// parent directory.
func Sanitize(name string) string {
	return nameCleaner.Replace(name)
}

// Job is the prepared workspace for one dataset.
type Job struct {
	Dir      string // <root>/<sanitized title>
	Download string // raw downloads
	CSV      string // converted tables
	SQL      string // generated DDL
}

// New creates the workspace folders for a dataset title under root.
// Existing folders are reused.
func New(root, title string) (*Job, error) {
	title = Sanitize(strings.TrimSpace(title))
	if title == "" {
		return nil, errors.New("fetchjob: empty dataset title")
	}

	dir := filepath.Join(root, title)
	j := &Job{
		Dir:      dir,
		Download: filepath.Join(dir, "download"),
		CSV:      filepath.Join(dir, "csv"),
		SQL:      filepath.Join(dir, "sql"),
	}
	for _, d := range []string{j.Download, j.CSV, j.SQL} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create workspace dir: %w", err)
		}
	}
	return j, nil
}
