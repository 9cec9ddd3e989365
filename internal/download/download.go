// Package download fetches catalog resources over HTTP onto disk.
//
// Catalog mirrors answer dead links with a styled HTML error page and a 200
// status, so a successful response whose Content-Type says text/html is
// treated as a failed download. Bodies stream to a temporary file and are
// renamed into place only when the whole body arrived.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"opendata/internal/metrics"
)

// ErrHTMLContent marks a response that served an HTML page where a data
// file was expected. A missing Content-Type header counts as HTML: the
// mirrors always label real files.
var ErrHTMLContent = errors.New("response is an HTML page, not a data file")

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d", e.Code)
}

// DefaultUserAgent identifies every request this module makes, so catalog
// operators see one stable agent string.
const DefaultUserAgent = "opendata-fetch/1.0"

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 2 * time.Second
)

// Client downloads single files with bounded retries. The zero value is
// usable.
type Client struct {
	// HTTP is the underlying client. nil means http.DefaultClient.
	HTTP *http.Client

	// UserAgent overrides the default request User-Agent.
	UserAgent string

	// MaxAttempts caps attempts per URL, including the first. <=0 means 3.
	MaxAttempts int

	// RetryDelay is the wait before the second attempt; it doubles per
	// retry. <=0 means 2s.
	RetryDelay time.Duration

	// Sleep replaces the retry wait in tests. nil means a context-aware
	// timer sleep.
	Sleep func(d time.Duration)
}

// Fetch downloads rawURL to dest and reports the number of bytes written.
//
// Transport errors, 5xx responses and truncated bodies are retried with a
// doubling delay. 4xx responses and HTML masquerade are permanent. On any
// failure dest is left untouched and no partial file remains.
func (c *Client) Fetch(ctx context.Context, rawURL, dest string) (int64, error) {
	httpc := c.HTTP
	if httpc == nil {
		httpc = http.DefaultClient
	}
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	delay := c.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		n, retry, err := c.attempt(ctx, httpc, rawURL, dest)
		if err == nil {
			return n, nil
		}
		lastErr = err
		if !retry {
			return 0, err
		}
		if attempt == attempts {
			break
		}
		if !c.wait(ctx, delay) {
			break
		}
		delay *= 2
	}
	return 0, lastErr
}

// attempt performs one GET. retry reports whether the failure is worth
// another attempt.
func (c *Client) attempt(ctx context.Context, httpc *http.Client, rawURL, dest string) (written int64, retry bool, err error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, false, fmt.Errorf("build request for %s: %w", rawURL, err)
	}
	ua := c.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)

	resp, err := httpc.Do(req)
	if err != nil {
		metrics.RecordHTTP("error", err, time.Since(start), 0)
		return 0, true, fmt.Errorf("get %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	status := strconv.Itoa(resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused across retries.
		_, _ = io.Copy(io.Discard, resp.Body)
		serr := &StatusError{Code: resp.StatusCode}
		metrics.RecordHTTP(status, serr, time.Since(start), 0)
		return 0, resp.StatusCode >= 500, serr
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" || strings.Contains(ct, "text/html") {
		_, _ = io.Copy(io.Discard, resp.Body)
		metrics.RecordHTTP(status, ErrHTMLContent, time.Since(start), 0)
		return 0, false, fmt.Errorf("get %s: %w", rawURL, ErrHTMLContent)
	}

	n, err := writeBodyToFile(dest, resp.Body)
	metrics.RecordHTTP(status, err, time.Since(start), n)
	if err != nil {
		// Covers both truncated bodies and sink faults; one more attempt
		// is cheap either way.
		return 0, true, fmt.Errorf("save %s: %w", dest, err)
	}
	return n, false, nil
}

func (c *Client) wait(ctx context.Context, d time.Duration) bool {
	if c.Sleep != nil {
		c.Sleep(d)
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// writeBodyToFile writes r to dest atomically: a temp file in the same
// directory, renamed into place on success, removed on failure.
func writeBodyToFile(dest string, r io.Reader) (int64, error) {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".fetch-*")
	if err != nil {
		return 0, err
	}
	tmpName := tmp.Name()

	n, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()

	if copyErr != nil {
		_ = os.Remove(tmpName)
		return n, copyErr
	}
	if closeErr != nil {
		_ = os.Remove(tmpName)
		return n, closeErr
	}
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return n, err
	}
	return n, nil
}
