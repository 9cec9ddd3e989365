// Package metrics is a small facade between the pipeline and whatever
// metrics sink a command wires in. The default backend is nil, which makes
// every call a no-op; commands that want reporting install one at startup.
package metrics

import (
	"sync"
	"time"
)

// Labels tag a single observation.
type Labels map[string]string

// Backend receives observations. Implementations must be safe for
// concurrent use.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
}

// Metric names the backends understand.
const (
	MetricFilesTotal  = "opendata_files_total"
	MetricHTTPTotal   = "opendata_http_requests_total"
	MetricHTTPErrors  = "opendata_http_errors_total"
	MetricHTTPSeconds = "opendata_http_request_duration_seconds"
	MetricHTTPBytes   = "opendata_http_download_bytes"
)

var (
	mu      sync.RWMutex
	backend Backend
)

// SetBackend installs the process-wide backend. nil disables recording.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// RecordFile counts one per-file outcome ("converted", "unsupported").
func RecordFile(outcome string) {
	if b := current(); b != nil {
		b.IncCounter(MetricFilesTotal, 1, Labels{"outcome": outcome})
	}
}

// RecordHTTP records one download attempt: its status class, duration and
// downloaded byte count.
func RecordHTTP(status string, err error, dur time.Duration, bytes int64) {
	b := current()
	if b == nil {
		return
	}
	b.IncCounter(MetricHTTPTotal, 1, Labels{"status": status})
	if err != nil {
		b.IncCounter(MetricHTTPErrors, 1, Labels{"status": status})
	}
	b.ObserveHistogram(MetricHTTPSeconds, dur.Seconds(), Labels{"status": status})
	if bytes > 0 {
		b.ObserveHistogram(MetricHTTPBytes, float64(bytes), Labels{"status": status})
	}
}

// Flush submits anything the installed backend has buffered.
func Flush() error {
	if b := current(); b != nil {
		return b.Flush()
	}
	return nil
}
