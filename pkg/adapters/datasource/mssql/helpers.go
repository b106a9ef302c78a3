package mssql

import (
	"fmt"
	"strings"
)

// quoteName brackets an identifier the way QUOTENAME() does, escaping ] as ]].
func quoteName(identifier string) string {
	escaped := strings.ReplaceAll(identifier, "]", "]]")
	return fmt.Sprintf("[%s]", escaped)
}

// buildFullyQualifiedName builds a fully qualified table name: [schema].[table]
func buildFullyQualifiedName(schema, table string) string {
	if schema == "" {
		return quoteName(table)
	}
	return fmt.Sprintf("%s.%s", quoteName(schema), quoteName(table))
}

// isDecimalType reports types the driver returns as []byte digit strings.
func isDecimalType(databaseTypeName string) bool {
	switch strings.ToUpper(databaseTypeName) {
	case "DECIMAL", "NUMERIC", "MONEY", "SMALLMONEY":
		return true
	default:
		return false
	}
}
