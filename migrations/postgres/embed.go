// Package migrations embeds the PostgreSQL schema of the broker.
package migrations

import "embed"

// FS contains the versioned migrations, named {version}_{name}.sql.
//
//go:embed sql/*.sql
var FS embed.FS

// Dir is the directory within FS where migrations live.
const Dir = "sql"
