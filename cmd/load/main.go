// Command load pushes one data file into a live database. The file is
// read into a table, column types are inferred from its first rows, the
// target table is created when missing, and every row is inserted through
// the chunked multi-row path of the chosen backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"opendata/internal/infer"
	"opendata/internal/reader"
	"opendata/internal/storage"

	// register all backends with the storage factory.
	_ "opendata/internal/storage/mssql"
	_ "opendata/internal/storage/postgres"
	_ "opendata/internal/storage/sqlite"
)

type deps struct {
	Stdout io.Writer
	Stderr io.Writer
}

type runConfig struct {
	Backend string
	DSN     string
	Table   string
	File    string
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], deps{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}))
}

// run executes the load command and returns an exit code.
//
// Exit codes:
//   - 0: the file was read and all rows are in the database.
//   - 1: the file did not parse, or the backend rejected the load.
//   - 2: configuration error.
func run(ctx context.Context, args []string, d deps) int {
	if d.Stdout == nil {
		d.Stdout = io.Discard
	}
	if d.Stderr == nil {
		d.Stderr = io.Discard
	}

	cfg, err := parseFlags(args)
	if err != nil {
		fmt.Fprintf(d.Stderr, "%v\n", err)
		return 2
	}

	ext := strings.TrimPrefix(filepath.Ext(cfg.File), ".")
	tab, err := reader.Read(cfg.File, ext)
	if err != nil {
		fmt.Fprintf(d.Stderr, "error reading %s: %v\n", cfg.File, err)
		return 1
	}

	types := infer.Columns(tab)
	spec := storage.SpecFor(cfg.Table, tab.Columns(), types)

	repo, err := storage.New(ctx, storage.Config{Kind: cfg.Backend, DSN: cfg.DSN})
	if err != nil {
		fmt.Fprintf(d.Stderr, "error opening backend %s: %v\n", cfg.Backend, err)
		return 1
	}
	defer repo.Close()

	if err := repo.EnsureTable(ctx, spec); err != nil {
		fmt.Fprintf(d.Stderr, "error ensuring table %s: %v\n", cfg.Table, err)
		return 1
	}

	rows := storage.CoerceRows(tab.Columns(), tab.Rows(), types)
	n, err := repo.InsertRows(ctx, cfg.Table, tab.Columns(), rows)
	if err != nil {
		fmt.Fprintf(d.Stderr, "error inserting into %s: %v\n", cfg.Table, err)
		return 1
	}

	fmt.Fprintf(d.Stdout, "loaded %d rows into %s (backend=%s)\n", n, cfg.Table, cfg.Backend)
	return 0
}

func parseFlags(args []string) (runConfig, error) {
	fs := flag.NewFlagSet("load", flag.ContinueOnError)

	var usageBuf strings.Builder
	fs.SetOutput(&usageBuf)

	fs.Usage = func() {
		fmt.Fprintf(&usageBuf, "Usage: %s -backend <kind> -dsn <dsn> [-table name] <file>\n", fs.Name())
		fs.PrintDefaults()
	}

	var cfg runConfig
	fs.StringVar(&cfg.Backend, "backend", "", "Storage backend kind (postgres, sqlite, mssql)")
	fs.StringVar(&cfg.DSN, "dsn", "", "Backend DSN; falls back to DATABASE_DSN")
	fs.StringVar(&cfg.Table, "table", "", "Target table name (default: file base name)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return runConfig{}, errors.New(usageBuf.String())
		}
		return runConfig{}, fmt.Errorf("%v\n\n%s", err, usageBuf.String())
	}

	if fs.NArg() == 0 {
		return runConfig{}, errors.New("missing required <file> argument")
	}
	if fs.NArg() > 1 {
		return runConfig{}, fmt.Errorf("unexpected extra arguments: %s", strings.Join(fs.Args()[1:], " "))
	}
	cfg.File = fs.Arg(0)

	if cfg.Backend == "" {
		return runConfig{}, errors.New("missing required -backend flag")
	}
	if cfg.DSN == "" {
		cfg.DSN = os.Getenv("DATABASE_DSN")
	}
	if cfg.DSN == "" {
		return runConfig{}, errors.New("missing -dsn flag and DATABASE_DSN is unset")
	}
	if cfg.Table == "" {
		cfg.Table = defaultTable(cfg.File)
	}

	return cfg, nil
}

// defaultTable names the target after the file, cut at the first dot;
// the same rule the artifact writer uses for DDL table names.
func defaultTable(path string) string {
	name := filepath.Base(path)
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	return name
}
