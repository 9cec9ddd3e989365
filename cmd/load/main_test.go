package main

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"opendata/internal/storage"
)

// recordingRepo captures every repository call so tests can inspect what
// the command sent to the backend.
type recordingRepo struct {
	dsn     string
	spec    storage.TableSpec
	table   string
	columns []string
	rows    [][]any
	closed  int
}

func (r *recordingRepo) EnsureTable(ctx context.Context, spec storage.TableSpec) error {
	r.spec = spec
	return nil
}

func (r *recordingRepo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	r.table, r.columns, r.rows = table, columns, rows
	return int64(len(rows)), nil
}

func (r *recordingRepo) Close() { r.closed++ }

var recorder = &recordingRepo{}

func init() {
	storage.Register("recording", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		recorder.dsn = cfg.DSN
		return recorder, nil
	})
}

const loadFixture = "id,amount,seen,label\n1,19.5,2021-03-04,alpha\n2,nan,,beta\n"

func writeFixture(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(path, []byte(loadFixture), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestParseFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		args      []string
		wantErr   string
		wantField func(t *testing.T, cfg runConfig)
	}{
		{
			name:    "missing_file",
			args:    []string{"-backend", "sqlite", "-dsn", "x"},
			wantErr: "missing required <file>",
		},
		{
			name:    "missing_backend",
			args:    []string{"-dsn", "x", "data.csv"},
			wantErr: "missing required -backend",
		},
		{
			name:    "extra_arguments",
			args:    []string{"-backend", "sqlite", "-dsn", "x", "a.csv", "b.csv"},
			wantErr: "unexpected extra arguments",
		},
		{
			name: "default_table_from_file",
			args: []string{"-backend", "sqlite", "-dsn", "x", "/tmp/crime.stats.csv"},
			wantField: func(t *testing.T, cfg runConfig) {
				if cfg.Table != "crime" {
					t.Fatalf("Table=%q, want file base cut at first dot", cfg.Table)
				}
			},
		},
		{
			name: "explicit_table_wins",
			args: []string{"-backend", "sqlite", "-dsn", "x", "-table", "imports", "data.csv"},
			wantField: func(t *testing.T, cfg runConfig) {
				if cfg.Table != "imports" {
					t.Fatalf("Table=%q, want flag value", cfg.Table)
				}
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := parseFlags(tc.args)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("parseFlags() err=%v, want contains %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseFlags() err=%v, want nil", err)
			}
			if tc.wantField != nil {
				tc.wantField(t, cfg)
			}
		})
	}
}

func TestParseFlags_DSNFallback(t *testing.T) {
	t.Setenv("DATABASE_DSN", "file:fallback.db")

	cfg, err := parseFlags([]string{"-backend", "sqlite", "data.csv"})
	if err != nil {
		t.Fatalf("parseFlags() err=%v, want nil", err)
	}
	if cfg.DSN != "file:fallback.db" {
		t.Fatalf("DSN=%q, want environment fallback", cfg.DSN)
	}

	t.Setenv("DATABASE_DSN", "")
	if _, err := parseFlags([]string{"-backend", "sqlite", "data.csv"}); err == nil ||
		!strings.Contains(err.Error(), "DATABASE_DSN is unset") {
		t.Fatalf("parseFlags() err=%v, want unset-DSN error", err)
	}
}

// TestRun_RecordsFullLoad checks the whole read-infer-ensure-insert flow
// against a recording backend.
func TestRun_RecordsFullLoad(t *testing.T) {
	path := writeFixture(t, t.TempDir())

	var out, errOut bytes.Buffer
	code := run(context.Background(),
		[]string{"-backend", "recording", "-dsn", "unused", path},
		deps{Stdout: &out, Stderr: &errOut})

	if code != 0 {
		t.Fatalf("run()=%d, want 0; stderr=%q", code, errOut.String())
	}
	if !strings.Contains(out.String(), "loaded 2 rows into data") {
		t.Fatalf("stdout=%q, want row-count report", out.String())
	}

	wantSpec := storage.TableSpec{
		Name: "data",
		Columns: []storage.ColumnSpec{
			{Name: "id", Type: "INT"},
			{Name: "amount", Type: "DECIMAL(17,4)"},
			{Name: "seen", Type: "DATETIME"},
			{Name: "label", Type: "VARCHAR(100)"},
		},
	}
	if !reflect.DeepEqual(recorder.spec, wantSpec) {
		t.Fatalf("EnsureTable spec=%+v, want %+v", recorder.spec, wantSpec)
	}
	if recorder.table != "data" || !reflect.DeepEqual(recorder.columns, []string{"id", "amount", "seen", "label"}) {
		t.Fatalf("InsertRows table=%q columns=%v", recorder.table, recorder.columns)
	}

	if len(recorder.rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(recorder.rows))
	}
	first := recorder.rows[0]
	if first[0] != int64(1) || first[1] != 19.5 || first[3] != "alpha" {
		t.Fatalf("unexpected first row: %v", first)
	}
	seen, ok := first[2].(time.Time)
	if !ok || !seen.Equal(time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("seen=%v, want parsed date", first[2])
	}
	second := recorder.rows[1]
	if second[0] != int64(2) || second[1] != nil || second[2] != nil || second[3] != "beta" {
		t.Fatalf("unexpected second row: %v", second)
	}

	if recorder.closed == 0 {
		t.Fatalf("repository was not closed")
	}
}

// TestRun_LoadsIntoSQLite drives a real database file end to end.
func TestRun_LoadsIntoSQLite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFixture(t, dir)
	dsn := filepath.Join(dir, "load.db")

	var out, errOut bytes.Buffer
	code := run(context.Background(),
		[]string{"-backend", "sqlite", "-dsn", dsn, path},
		deps{Stdout: &out, Stderr: &errOut})

	if code != 0 {
		t.Fatalf("run()=%d, want 0; stderr=%q", code, errOut.String())
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(context.Background(),
		`SELECT "id", "amount", "seen", "label" FROM "data" ORDER BY "id"`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()

	var got [][]any
	for rows.Next() {
		vals := make([]any, 4)
		ptrs := make([]any, 4)
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			t.Fatalf("scan: %v", err)
		}
		got = append(got, vals)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	if got[0][0] != int64(1) || got[0][1] != 19.5 || got[0][3] != "alpha" {
		t.Fatalf("unexpected first row: %v", got[0])
	}
	if text, ok := got[0][2].([]byte); !ok || string(text) != "2021-03-04T00:00:00Z" {
		if s, ok := got[0][2].(string); !ok || s != "2021-03-04T00:00:00Z" {
			t.Fatalf("seen=%v (%T), want stored UTC text", got[0][2], got[0][2])
		}
	}
	if got[1][1] != nil || got[1][2] != nil {
		t.Fatalf("missing cells must load as NULL: %v", got[1])
	}
}

func TestRun_UnknownBackendFails(t *testing.T) {
	t.Parallel()

	path := writeFixture(t, t.TempDir())

	var out, errOut bytes.Buffer
	code := run(context.Background(),
		[]string{"-backend", "nosuch", "-dsn", "x", path},
		deps{Stdout: &out, Stderr: &errOut})

	if code != 1 {
		t.Fatalf("run()=%d, want 1", code)
	}
	if !strings.Contains(errOut.String(), "unsupported storage.kind") {
		t.Fatalf("stderr=%q, want unknown-kind error", errOut.String())
	}
}

func TestRun_UnsupportedFileFails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "notes.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	var out, errOut bytes.Buffer
	code := run(context.Background(),
		[]string{"-backend", "recording", "-dsn", "x", path},
		deps{Stdout: &out, Stderr: &errOut})

	if code != 1 {
		t.Fatalf("run()=%d, want 1", code)
	}
	if !strings.Contains(errOut.String(), "error reading") {
		t.Fatalf("stderr=%q, want read error", errOut.String())
	}
}

func TestRun_ConfigErrors(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer
	code := run(context.Background(), []string{}, deps{Stdout: &out, Stderr: &errOut})

	if code != 2 {
		t.Fatalf("run()=%d, want 2", code)
	}
	if !strings.Contains(errOut.String(), "missing required <file>") {
		t.Fatalf("stderr=%q, want missing-argument message", errOut.String())
	}
}
