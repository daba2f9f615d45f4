package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/strrl/ticket-extract/internal/schema"
)

type LabelCount struct {
	Field string
	Label string
	Count int
}

// CorpusStats summarizes an eval-pairs file.
type CorpusStats struct {
	Path     string
	Examples int
	Labels   []LabelCount
}

const pairsSource = `read_json('%s',
	format = 'newline_delimited',
	columns = {
		message: 'VARCHAR',
		expected: 'STRUCT(category VARCHAR, priority VARCHAR, product VARCHAR, sentiment VARCHAR, summary VARCHAR)'
	}
)`

// ReadCorpusStats counts gold labels per categorical field of the pairs file
// at path, ordered by field then descending count. Absent labels are
// reported as schema.Missing.
func ReadCorpusStats(ctx context.Context, conn *sql.DB, path string) (*CorpusStats, error) {
	source := fmt.Sprintf(pairsSource, strings.ReplaceAll(path, "'", "''"))

	stats := &CorpusStats{Path: path}
	if err := conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+source).Scan(&stats.Examples); err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", path, err)
	}

	var selects []string
	for _, field := range schema.Default.Fields() {
		selects = append(selects, fmt.Sprintf(
			`SELECT '%[1]s' AS field, COALESCE(expected.%[1]s, '%[2]s') AS label, COUNT(*) AS n FROM pairs GROUP BY ALL`,
			field, schema.Missing))
	}
	query := "WITH pairs AS (SELECT expected FROM " + source + ")\n" +
		strings.Join(selects, "\nUNION ALL\n") +
		"\nORDER BY field, n DESC, label"

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels in %s: %w", path, err)
	}
	defer rows.Close()

	for rows.Next() {
		var lc LabelCount
		if err := rows.Scan(&lc.Field, &lc.Label, &lc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan label count: %w", err)
		}
		stats.Labels = append(stats.Labels, lc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return stats, nil
}

// Field returns the label counts of one field.
func (s *CorpusStats) Field(name string) []LabelCount {
	var out []LabelCount
	for _, lc := range s.Labels {
		if lc.Field == name {
			out = append(out, lc)
		}
	}
	return out
}
