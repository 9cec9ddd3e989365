// Command convert runs the ingestion pipeline over local files, without
// touching the network: each input becomes a CSV plus a CREATE TABLE
// script in the chosen output directories. Unsupported or malformed
// inputs are reported and skipped; only failures to write the artifacts
// themselves fail the batch.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"unicode/utf8"

	"opendata/internal/ingest"
	"opendata/internal/reader"
)

type deps struct {
	Stdout io.Writer
	Stderr io.Writer
}

type runConfig struct {
	CSVDir    string
	SQLDir    string
	Delimiter rune
	Charset   string
	Files     []string
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], deps{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}))
}

// run executes the convert command and returns an exit code.
//
// Exit codes:
//   - 0: every input was processed (unsupported content is recorded, not
//     fatal).
//   - 1: an artifact write failed or the run was interrupted.
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

	for _, dir := range []string{cfg.CSVDir, cfg.SQLDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(d.Stderr, "error preparing output directory: %v\n", err)
			return 1
		}
	}

	proc := ingest.New(cfg.CSVDir, cfg.SQLDir)
	proc.Log = log.New(d.Stderr, "", log.LstdFlags)
	if cfg.Delimiter != 0 || cfg.Charset != "" {
		proc.Readers["csv"] = reader.DelimitedReader{Comma: cfg.Delimiter, Charset: cfg.Charset}
	}

	failed := false
	for _, path := range cfg.Files {
		select {
		case <-ctx.Done():
			fmt.Fprintf(d.Stderr, "interrupted: %v\n", ctx.Err())
			return 1
		default:
		}

		result, err := proc.ProcessFile(path)
		if err != nil {
			fmt.Fprintf(d.Stderr, "error: %s: %v\n", path, err)
			failed = true
			continue
		}
		printResult(d.Stdout, "", result)
	}

	if failed {
		return 1
	}
	return 0
}

// printResult writes one outcome line per file; archive entries are
// indented under their container.
func printResult(w io.Writer, prefix string, r ingest.Result) {
	switch r.Status {
	case ingest.StatusConverted:
		fmt.Fprintf(w, "%s%s: converted csv=%s sql=%s\n", prefix, r.Path, r.CSVPath, r.SQLPath)
	case ingest.StatusArchive:
		fmt.Fprintf(w, "%s%s: %s\n", prefix, r.Path, r.Summary())
		for _, e := range r.Entries {
			printResult(w, prefix+"  ", e)
		}
	default:
		fmt.Fprintf(w, "%s%s: %s (%v)\n", prefix, r.Path, r.Status, r.Reason)
	}
}

func parseFlags(args []string) (runConfig, error) {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)

	var usageBuf strings.Builder
	fs.SetOutput(&usageBuf)

	fs.Usage = func() {
		fmt.Fprintf(&usageBuf, "Usage: %s [flags] <file...>\n", fs.Name())
		fs.PrintDefaults()
	}

	var cfg runConfig
	fs.StringVar(&cfg.CSVDir, "csv-dir", ".", "Directory for CSV artifacts")
	fs.StringVar(&cfg.SQLDir, "sql-dir", ".", "Directory for SQL artifacts")
	delim := fs.String("delimiter", "", "Field delimiter for delimited files (one character)")
	fs.StringVar(&cfg.Charset, "charset", "", "Source charset for delimited files (utf-8, latin-1, windows-1252)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return runConfig{}, errors.New(usageBuf.String())
		}
		return runConfig{}, fmt.Errorf("%v\n\n%s", err, usageBuf.String())
	}

	if *delim != "" {
		r, size := utf8.DecodeRuneInString(*delim)
		if r == utf8.RuneError || size != len(*delim) {
			return runConfig{}, fmt.Errorf("-delimiter must be a single character, got %q", *delim)
		}
		cfg.Delimiter = r
	}
	if _, err := reader.ParseCharset(cfg.Charset); err != nil {
		return runConfig{}, err
	}

	if fs.NArg() == 0 {
		return runConfig{}, errors.New("missing required <file> arguments")
	}
	cfg.Files = fs.Args()

	return cfg, nil
}
