// Command fetch runs the pipeline end to end for one dataset page: scrape
// the resource list, download every matching file into a dataset
// workspace, and convert each download into its CSV and DDL artifacts.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"opendata/internal/catalog"
	"opendata/internal/download"
	"opendata/internal/fetchjob"
	"opendata/internal/ingest"
	"opendata/internal/metrics"
	"opendata/internal/metrics/datadog"
)

// logRecord is emitted as JSONL to stdout for each resource.
//
// This output is intended for machine parsing. Additive changes are safe;
// renames/removals are breaking changes for downstream log consumers.
type logRecord struct {
	Timestamp string `json:"ts"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	File      string `json:"file,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
	Status    string `json:"status"`
	CSV       string `json:"csv,omitempty"`
	SQL       string `json:"sql,omitempty"`
	Error     string `json:"error,omitempty"`
}

// backendCloser is the minimal interface used by this command to manage a
// metrics backend.
type backendCloser interface {
	metrics.Backend
	Close() error
}

// deps are external seams for testability.
//
// When to use:
//   - Unit tests: inject fake backend factory and capture stdout/stderr.
//   - Alternate runtimes: swap metrics backend or output sinks.
type deps struct {
	Stdout io.Writer
	Stderr io.Writer

	BackendFactory func(ctx context.Context, jobName string, tags []string, flushEvery time.Duration) (backendCloser, error)
	Now            func() time.Time
	Sleep          func(d time.Duration)
}

// runConfig holds the parsed flags and derived values for a run.
type runConfig struct {
	PageURL    string
	Filter     string
	OutRoot    string
	Timeout    time.Duration
	JobName    string
	DDTagsCSV  string
	FlushEvery time.Duration
}

// main is intentionally small: it wires real dependencies and exits with a code.
func main() {
	code := run(context.Background(), os.Args[1:], deps{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		BackendFactory: func(ctx context.Context, jobName string, tags []string, flushEvery time.Duration) (backendCloser, error) {
			return datadog.NewBackend(ctx, datadog.Options{
				JobName:    jobName,
				Tags:       tags,
				FlushEvery: flushEvery,
			})
		},
		Now:   time.Now,
		Sleep: time.Sleep,
	})
	os.Exit(code)
}

// run executes the fetch command and returns an exit code.
//
// Exit codes:
//   - 0: every resource downloaded and converted (content problems in
//     individual files are recorded, not fatal).
//   - 1: no resources matched, or a download or artifact write failed.
//   - 2: configuration/initialization error.
func run(ctx context.Context, args []string, d deps) int {
	if d.Stdout == nil {
		d.Stdout = io.Discard
	}
	if d.Stderr == nil {
		d.Stderr = io.Discard
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Sleep == nil {
		d.Sleep = time.Sleep
	}

	cfg, err := parseFlags(args)
	if err != nil {
		fmt.Fprintln(d.Stderr, err.Error())
		return 2
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Metrics ship only when an API key is present; otherwise the facade
	// stays a no-op and the run is purely local.
	if os.Getenv("DD_API_KEY") != "" {
		if d.BackendFactory == nil {
			fmt.Fprintln(d.Stderr, "internal error: BackendFactory is nil")
			return 2
		}
		tags := append(datadog.ParseTagsCSV(cfg.DDTagsCSV), "tool:fetch")
		backend, err := d.BackendFactory(ctx, cfg.JobName, tags, cfg.FlushEvery)
		if err != nil {
			fmt.Fprintf(d.Stderr, "datadog backend init failed: %v\n", err)
			return 2
		}
		metrics.SetBackend(backend)
		defer func() {
			_ = metrics.Flush()
			metrics.SetBackend(nil)
			_ = backend.Close()
		}()
	}

	client := newHTTPClient(cfg.Timeout)

	page, err := fetchCatalogPage(ctx, client, cfg.PageURL)
	if err != nil {
		fmt.Fprintf(d.Stderr, "error reading dataset page: %v\n", err)
		return 1
	}

	resources := page.Filter(cfg.Filter)
	if len(resources) == 0 {
		fmt.Fprintf(d.Stderr, "no resources found on %s\n", cfg.PageURL)
		return 1
	}

	job, err := fetchjob.New(cfg.OutRoot, page.Title)
	if err != nil {
		fmt.Fprintf(d.Stderr, "error preparing workspace: %v\n", err)
		return 1
	}

	dl := &download.Client{HTTP: client, Sleep: d.Sleep}
	proc := ingest.New(job.CSV, job.SQL)
	proc.Log = log.New(d.Stderr, "", log.LstdFlags)

	enc := json.NewEncoder(d.Stdout)
	failed := false
	for _, res := range resources {
		rec, ok := processResource(ctx, dl, proc, job, res, d.Now)
		if !ok {
			failed = true
		}
		_ = enc.Encode(rec)

		select {
		case <-ctx.Done():
			fmt.Fprintf(d.Stderr, "interrupted: %v\n", ctx.Err())
			return 1
		default:
		}
	}

	_ = metrics.Flush()

	if failed {
		return 1
	}
	return 0
}

// processResource downloads one resource and converts it. The second
// return is false when the download or an artifact write failed; files the
// pipeline merely cannot parse stay ok, with the reason in the record.
func processResource(
	ctx context.Context,
	dl *download.Client,
	proc *ingest.Processor,
	job *fetchjob.Job,
	res catalog.Resource,
	now func() time.Time,
) (logRecord, bool) {
	rec := logRecord{
		Timestamp: now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Name:      res.Name,
		URL:       res.URL,
	}

	dest := filepath.Join(job.Download, res.FileName())
	n, err := dl.Fetch(ctx, res.URL, dest)
	if err != nil {
		rec.Status = "download_failed"
		rec.Error = err.Error()
		return rec, false
	}
	rec.File = dest
	rec.SizeBytes = n

	result, err := proc.ProcessFile(dest)
	if err != nil {
		rec.Status = "sink_error"
		rec.Error = err.Error()
		return rec, false
	}

	rec.Status = result.Summary()
	rec.CSV = result.CSVPath
	rec.SQL = result.SQLPath
	if result.Reason != nil {
		rec.Error = result.Reason.Error()
	}
	return rec, true
}

// fetchCatalogPage GETs the dataset page and parses its resource list.
func fetchCatalogPage(ctx context.Context, client *http.Client, pageURL string) (*catalog.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", download.DefaultUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("get %s: %w", pageURL, &download.StatusError{Code: resp.StatusCode})
	}
	return catalog.Parse(resp.Body, pageURL)
}

// parseFlags parses command arguments into a validated runConfig.
//
// Errors:
//   - Returns an error for invalid/missing arguments.
//   - Does not exit the process (caller decides exit code).
func parseFlags(args []string) (runConfig, error) {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)

	// Capture help/usage text instead of writing to stdout.
	var usageBuf strings.Builder
	fs.SetOutput(&usageBuf)

	fs.Usage = func() {
		fmt.Fprintf(&usageBuf, "Usage: %s [flags] <page-url>\n", fs.Name())
		fs.PrintDefaults()
	}

	var cfg runConfig
	fs.StringVar(&cfg.Filter, "f", "", "Only fetch resources whose name contains this fragment")
	fs.StringVar(&cfg.OutRoot, "o", ".", "Root directory for the dataset workspace")
	fs.DurationVar(&cfg.Timeout, "t", 60*time.Second, "HTTP timeout per request (e.g. 60s)")
	fs.StringVar(&cfg.JobName, "name", "opendata_fetch", "Logical job name used in metrics tags")
	fs.StringVar(&cfg.DDTagsCSV, "dd_tags", "", "Extra Datadog tags CSV (e.g. env:prod,service:opendata)")
	fs.DurationVar(&cfg.FlushEvery, "metrics_flush", 1*time.Minute, "Datadog flush interval")

	if err := fs.Parse(args); err != nil {
		// When -h / -help is passed, flag.Parse returns flag.ErrHelp.
		// Return the captured usage text so caller prints it.
		if errors.Is(err, flag.ErrHelp) {
			return runConfig{}, errors.New(usageBuf.String())
		}
		return runConfig{}, fmt.Errorf("%v\n\n%s", err, usageBuf.String())
	}

	if fs.NArg() == 0 {
		return runConfig{}, errors.New("missing required <page-url> argument")
	}
	if fs.NArg() > 1 {
		return runConfig{}, fmt.Errorf("unexpected extra arguments: %s", strings.Join(fs.Args()[1:], " "))
	}
	cfg.PageURL = fs.Arg(0)

	return cfg, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConns:        256,
		MaxIdleConnsPerHost: 64,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
