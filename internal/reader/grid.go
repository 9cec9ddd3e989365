package reader

import (
	"fmt"
	"strings"

	"opendata/internal/table"
)

// headerNames fills empty header cells with positional names; non-empty
// cells keep their exact text.
func headerNames(raw []string) []string {
	out := make([]string, len(raw))
	for i, h := range raw {
		if strings.TrimSpace(h) == "" {
			h = fmt.Sprintf("column_%d", i)
		}
		out[i] = h
	}
	return out
}

// gridTable turns a header-first cell grid into a table. Rows narrower than
// the widest row are padded with missing cells; the header widens the same
// way with positional names. Empty cells become missing values.
func gridTable(path, format string, grid [][]string) (*table.Table, error) {
	if len(grid) == 0 {
		t, _ := table.New(nil, nil)
		return t, nil
	}

	width := 0
	for _, row := range grid {
		if len(row) > width {
			width = len(row)
		}
	}

	header := make([]string, width)
	copy(header, grid[0])
	columns := headerNames(header)

	rows := make([][]any, 0, len(grid)-1)
	for _, rec := range grid[1:] {
		row := make([]any, width)
		for i, v := range rec {
			if v != "" {
				row[i] = v
			}
		}
		rows = append(rows, row)
	}

	t, err := table.New(columns, rows)
	if err != nil {
		return nil, parseErrf(path, format, "%w", err)
	}
	return t, nil
}
