// Package migrations embeds the schema for each supported database driver.
package migrations

import "embed"

// FS holds one directory of numbered migrations per driver: sqlite/ and postgres/
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS

// Dir returns the migration directory for a driver name
func Dir(driver string) string {
	if driver == "pgx" {
		return "postgres"
	}
	return "sqlite"
}
