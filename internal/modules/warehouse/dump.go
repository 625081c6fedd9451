package warehouse

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// dumpTables lists the tables included in the SQL dump, in dump order.
var dumpTables = []string{TableName, "pipeline_runs"}

// WriteDump writes a self-contained SQL dump of the warehouse tables and
// returns its path. The dump replays into any SQLite database: schema first,
// then data, all inside one transaction.
func (r *Repository) WriteDump(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create dump directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("warehouse_%s.sql", time.Now().UTC().Format("20060102_150405")))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create dump file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "BEGIN TRANSACTION;")

	for _, table := range dumpTables {
		if err := r.dumpTable(w, table); err != nil {
			return "", err
		}
	}

	fmt.Fprintln(w, "COMMIT;")
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush dump: %w", err)
	}

	r.log.Info().Str("path", path).Msg("SQL dump written")
	return path, nil
}

func (r *Repository) dumpTable(w *bufio.Writer, table string) error {
	var createSQL string
	err := r.db.QueryRow(
		"SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?", table,
	).Scan(&createSQL)
	if err != nil {
		// A table that never got created (e.g. no successful load yet) is
		// simply absent from the dump.
		return nil
	}

	fmt.Fprintf(w, "DROP TABLE IF EXISTS %s;\n", table)
	fmt.Fprintf(w, "%s;\n", createSQL)

	rows, err := r.db.Query(fmt.Sprintf("SELECT * FROM %s", table))
	if err != nil {
		return fmt.Errorf("failed to read table %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("failed to read columns of %s: %w", table, err)
	}

	vals := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("failed to scan row of %s: %w", table, err)
		}
		lits := make([]string, len(vals))
		for i, v := range vals {
			lits[i] = sqlLiteral(v)
		}
		fmt.Fprintf(w, "INSERT INTO %s VALUES (%s);\n", table, strings.Join(lits, ", "))
	}
	return rows.Err()
}

// sqlLiteral renders one scanned value as a SQL literal.
func sqlLiteral(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case int64:
		return fmt.Sprintf("%d", val)
	case float64:
		return fmt.Sprintf("%g", val)
	case bool:
		if val {
			return "1"
		}
		return "0"
	case []byte:
		return quoteSQL(string(val))
	case string:
		return quoteSQL(val)
	case time.Time:
		return quoteSQL(val.UTC().Format(time.RFC3339))
	default:
		return quoteSQL(fmt.Sprintf("%v", val))
	}
}

func quoteSQL(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
