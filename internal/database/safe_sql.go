package database

import (
	"fmt"
	"regexp"
)

// AllowedTables is the whitelist of valid table names in the catalog.
// Any table name not in this list will be rejected to prevent SQL injection.
var AllowedTables = map[string]bool{
	"studies": true,
}

// AllowedColumns is the whitelist of valid column names, used for dynamic
// ORDER BY selection in listings.
var AllowedColumns = map[string]bool{
	"sra_id":     true,
	"bioproject": true,
	"srp_id":     true,
	"species":    true,
	"indexed_at": true,
}

// ErrInvalidTableName is returned when a table name is not in the whitelist.
var ErrInvalidTableName = fmt.Errorf("invalid table name")

// ErrInvalidColumnName is returned when a column name is not in the whitelist.
var ErrInvalidColumnName = fmt.Errorf("invalid column name")

// validIdentifierPattern matches valid SQL identifiers (alphanumeric and underscore).
var validIdentifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidateTableName checks if a table name is in the allowed list.
// Returns nil if valid, ErrInvalidTableName otherwise.
func ValidateTableName(table string) error {
	if !AllowedTables[table] {
		return fmt.Errorf("%w: %q", ErrInvalidTableName, table)
	}
	return nil
}

// ValidateColumnName checks if a column name is in the allowed list.
// Returns nil if valid, ErrInvalidColumnName otherwise.
func ValidateColumnName(column string) error {
	if !AllowedColumns[column] {
		return fmt.Errorf("%w: %q", ErrInvalidColumnName, column)
	}
	return nil
}

// ValidateIdentifier checks if a string is a valid SQL identifier format.
// This is a fallback for dynamic identifiers not in the whitelists.
func ValidateIdentifier(identifier string) error {
	if identifier == "" {
		return fmt.Errorf("empty identifier")
	}
	if !validIdentifierPattern.MatchString(identifier) {
		return fmt.Errorf("invalid identifier format: %q", identifier)
	}
	return nil
}

// SafeColumnName returns the column name if valid, otherwise returns an error.
// Use this when you need the column name for SQL construction.
func SafeColumnName(column string) (string, error) {
	if err := ValidateColumnName(column); err != nil {
		return "", err
	}
	return column, nil
}
