package sqlite

import (
	"fmt"
	"strings"

	"bulkingest/internal/schema"
)

// columnType maps a contract field type to a SQLite column affinity. SQLite
// has no native date type; decoded timestamps are stored as TEXT.
func columnType(fieldType string) string {
	switch fieldType {
	case "int", "integer", "bigint":
		return "INTEGER"
	case "float", "double", "real", "number":
		return "REAL"
	case "bool", "boolean":
		return "INTEGER"
	default:
		return "TEXT"
	}
}

// CreateTableSQL renders an idempotent CREATE TABLE for the contract.
func CreateTableSQL(table string, c schema.Contract) string {
	cols := make([]string, 0, len(c.Fields))
	for _, f := range c.Fields {
		col := f.Name + " " + columnType(f.Type)
		if f.Required {
			col += " NOT NULL"
		}
		cols = append(cols, col)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(cols, ", "))
}
