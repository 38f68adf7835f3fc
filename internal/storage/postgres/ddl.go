package postgres

import (
	"fmt"
	"strings"

	"bulkingest/internal/schema"
)

// columnType maps a contract field type to a Postgres column type. Unknown
// types degrade to TEXT, which accepts anything the decoder produces.
func columnType(fieldType string) string {
	switch fieldType {
	case "int", "integer", "bigint":
		return "BIGINT"
	case "float", "double", "real", "number":
		return "DOUBLE PRECISION"
	case "bool", "boolean":
		return "BOOLEAN"
	case "date", "datetime", "timestamp":
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
}

// CreateTableSQL renders an idempotent CREATE TABLE for the contract. Column
// order follows the contract so the DDL lines up with CopyFrom.
func CreateTableSQL(table string, c schema.Contract) string {
	cols := make([]string, 0, len(c.Fields))
	for _, f := range c.Fields {
		col := pgIdent(f.Name) + " " + columnType(f.Type)
		if f.Required {
			col += " NOT NULL"
		}
		cols = append(cols, col)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", pgFQN(table), strings.Join(cols, ", "))
}
