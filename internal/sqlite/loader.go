package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/mesh-intelligence/thicket/internal/jsonl"
)

// jsonlTableMapping maps JSONL files to their SQLite tables and columns.
// Tables with foreign keys load after the tables they reference.
var jsonlTableMapping = []struct {
	file    string
	table   string
	columns []string
}{
	{objectsJSONL, "objects", []string{"object_id", "class_id", "owner_id"}},
	{fieldValueJSONL, "field_values", []string{"object_id", "position", "field", "tag", "payload", "custom"}},
}

// loadAllJSONL reads each JSONL file from dataDir into its table inside one
// transaction: either everything loads or the database stays empty.
// Malformed lines and unknown JSON fields are ignored.
func loadAllJSONL(db *sql.DB, dataDir string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("disabling foreign keys for load: %w", err)
	}
	for _, mapping := range jsonlTableMapping {
		records, err := jsonl.Read(filepath.Join(dataDir, mapping.file))
		if err != nil {
			return fmt.Errorf("reading %s: %w", mapping.file, err)
		}
		if len(records) == 0 {
			continue
		}
		if err := insertRecords(tx, mapping.table, mapping.columns, records); err != nil {
			return fmt.Errorf("loading %s into %s: %w", mapping.file, mapping.table, err)
		}
	}
	if _, err := tx.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("re-enabling foreign keys: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}
	return nil
}

// insertRecords inserts JSONL records into table. Only the listed columns
// are extracted; records that violate constraints are skipped.
func insertRecords(tx *sql.Tx, table string, columns []string, records []json.RawMessage) error {
	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	insertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)

	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		return fmt.Errorf("preparing insert for %s: %w", table, err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var obj map[string]any
		if err := json.Unmarshal(rec, &obj); err != nil {
			continue
		}
		args := make([]any, len(columns))
		for i, col := range columns {
			args[i] = obj[col]
		}
		if _, err := stmt.Exec(args...); err != nil {
			continue
		}
	}
	return nil
}

// persistTableJSONL writes every row of table to fileName in the data
// directory using the atomic write pattern.
func persistTableJSONL(tx *sql.Tx, dataDir, table, orderBy, fileName string) error {
	rows, err := tx.Query("SELECT * FROM " + table + " ORDER BY " + orderBy)
	if err != nil {
		return fmt.Errorf("querying %s for JSONL: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("getting columns for %s: %w", table, err)
	}

	var records []json.RawMessage
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("scanning %s row: %w", table, err)
		}
		rec := make(map[string]any, len(cols))
		for i, col := range cols {
			rec[col] = values[i]
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshaling %s row: %w", table, err)
		}
		records = append(records, data)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating %s for JSONL: %w", table, err)
	}
	return jsonl.Write(filepath.Join(dataDir, fileName), records)
}
