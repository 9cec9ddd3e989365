// Package storage defines the repository contract the load stage speaks
// and a registry mapping backend kinds to factories. Backend packages
// register themselves from init; a command imports the backends it wants
// for side effect and selects one by Config.Kind at runtime.
package storage

import (
	"context"
	"fmt"
	"sync"
)

// Config is the minimal configuration needed to create a repository.
//
// Edge cases:
//   - Kind must be non-empty and must match a registered backend kind.
//   - DSN is passed through to the backend factory; validation is
//     backend-specific.
type Config struct {
	Kind string
	DSN  string
}

// ColumnSpec names one column and its generic SQL type as inference
// assigned it (VARCHAR(100), DECIMAL(17,4), INT, DATETIME). Backends
// translate the generic type into whatever their dialect stores.
type ColumnSpec struct {
	Name string
	Type string
}

// TableSpec describes the table a load run targets: a name plus ordered,
// typed columns. No keys, no constraints; loaded tables mirror the source
// file and nothing more.
type TableSpec struct {
	Name    string
	Columns []ColumnSpec
}

// SpecFor assembles a TableSpec from ordered column names and a type map.
// Columns the map does not mention get the string default, so a partial
// map still yields a usable spec.
func SpecFor(name string, columns []string, types map[string]string) TableSpec {
	spec := TableSpec{Name: name, Columns: make([]ColumnSpec, 0, len(columns))}
	for _, c := range columns {
		typ := types[c]
		if typ == "" {
			typ = "VARCHAR(100)"
		}
		spec.Columns = append(spec.Columns, ColumnSpec{Name: c, Type: typ})
	}
	return spec
}

// Repository is a backend-agnostic interface for loading one table.
//
// IMPORTANT: This interface is intentionally minimal and focused on the
// operations the loader needs. Each backend implements these semantics in
// its own idiomatic way (Postgres pools, SQLite text affinity, etc).
type Repository interface {
	// EnsureTable creates the table described by spec if it does not
	// already exist. Running it against an existing table is a no-op.
	EnsureTable(ctx context.Context, spec TableSpec) error

	// InsertRows appends rows to table, columns in the given order.
	// Backends may split the work into multiple statements; the returned
	// count is the total number of rows written.
	InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)

	// Close releases any backend resources (connections, prepared
	// statements, etc).
	//
	// Edge cases:
	//   - Implementations should be safe to call once at process shutdown.
	//   - Repeated calls may be a no-op or may panic, depending on backend;
	//     callers should treat Close as "call once".
	Close()
}

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind (e.g. "postgres", "sqlite").
//
// When to use:
//   - Call Register from an init() function in a backend package.
//   - The kind string becomes the lookup key used by New.
//
// Panics:
//   - If kind is empty.
//   - If f is nil.
//   - If kind is already registered. This is intentional to fail fast and
//     avoid ambiguous backend selection.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs a Repository using the registered backend factory.
//
// Concurrency:
//   - Safe for concurrent use with Register. New takes a read lock while
//     selecting the factory.
//
// Errors:
//   - Returns an error if cfg.Kind is empty or unsupported.
//   - Returns whatever error the registered factory returns.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing Kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
