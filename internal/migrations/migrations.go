package migrations

import (
	_ "embed"
)

//go:embed 001_initial_schema.sql
var initialSchema string

// GetInitialSchema returns the initial database schema. The schema is
// embedded so initialization never depends on the working directory.
func GetInitialSchema() string {
	return initialSchema
}
