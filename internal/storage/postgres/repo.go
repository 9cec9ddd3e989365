package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"opendata/internal/storage"
)

// Repo implements storage.Repository for Postgres.
//
// Tables are created with CREATE TABLE IF NOT EXISTS, so reloading a file
// into an existing table appends rather than fails.
type Repo struct {
	pool *pgxpool.Pool
}

// maxParams bounds the bind parameters per INSERT. Postgres caps them at
// 65535 per statement; chunking at 60000 keeps whole rows under the cap.
const maxParams = 60000

// New creates a new Postgres-backed Repo.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	return &Repo{pool: pool}, nil
}

// Close closes the connection pool.
func (r *Repo) Close() {
	r.pool.Close()
}

// EnsureTable creates the table described by spec if it does not exist.
func (r *Repo) EnsureTable(ctx context.Context, spec storage.TableSpec) error {
	ddl, err := buildCreateTableSQL(spec)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, ddl)
	return err
}

// InsertRows appends rows to table, splitting the batch into as many
// statements as the parameter cap requires.
func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	chunk := rowsPerChunk(len(columns))
	var total int64
	for start := 0; start < len(rows); start += chunk {
		end := start + chunk
		if end > len(rows) {
			end = len(rows)
		}

		sql, args, err := buildInsertSQL(table, columns, rows[start:end])
		if err != nil {
			return total, err
		}
		cmd, err := r.pool.Exec(ctx, sql, args...)
		if err != nil {
			return total, err
		}
		total += cmd.RowsAffected()
	}
	return total, nil
}

// rowsPerChunk returns how many rows fit under maxParams, at least one.
func rowsPerChunk(columns int) int {
	if columns <= 0 {
		return 1
	}
	n := maxParams / columns
	if n < 1 {
		return 1
	}
	return n
}

// buildCreateTableSQL renders CREATE TABLE IF NOT EXISTS DDL for spec.
//
// Why this exists:
//   - It is pure and deterministic, so type translation and quoting are
//     unit tested without a database.
func buildCreateTableSQL(spec storage.TableSpec) (string, error) {
	if spec.Name == "" {
		return "", fmt.Errorf("postgres: empty table name")
	}
	if len(spec.Columns) == 0 {
		return "", fmt.Errorf("postgres: table %s has no columns", spec.Name)
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(pgTableIdent(spec.Name))
	b.WriteString(" (")
	for i, col := range spec.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgIdent(col.Name))
		b.WriteString(" ")
		b.WriteString(translateType(col.Type))
	}
	b.WriteString(");")
	return b.String(), nil
}

// buildInsertSQL constructs a single INSERT statement and its args for
// Postgres.
//
// Why this exists:
//   - It is pure and deterministic, so we can unit test correctness
//     (especially placeholder numbering) without a database.
//
// Constraints:
//   - rows must have the same length as columns for every row.
//   - columns must be non-empty.
func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any, error) {
	if len(columns) == 0 {
		return "", nil, fmt.Errorf("postgres: insert into %s with no columns", table)
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(pgTableIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgIdent(c))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	p := 1
	for i, row := range rows {
		if len(row) != len(columns) {
			return "", nil, fmt.Errorf("postgres: row %d has %d values, want %d", i, len(row), len(columns))
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(fmt.Sprintf("$%d", p))
			args = append(args, row[j])
			p++
		}
		b.WriteString(")")
	}

	b.WriteString(";")
	return b.String(), args, nil
}

// translateType maps a generic inferred type onto the Postgres dialect.
// Only DATETIME needs renaming; the rest are valid Postgres types as-is.
func translateType(sqlType string) string {
	if strings.EqualFold(strings.TrimSpace(sqlType), "DATETIME") {
		return "TIMESTAMP"
	}
	return sqlType
}

// pgIdent returns a double-quoted identifier, escaping '"' as '""'.
func pgIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// pgTableIdent quotes a possibly schema-qualified table name.
//
// Example:
//
//	"public.imports" -> "public"."imports"
func pgTableIdent(name string) string {
	parts := strings.Split(name, ".")
	for i := range parts {
		parts[i] = pgIdent(strings.TrimSpace(parts[i]))
	}
	return strings.Join(parts, ".")
}
