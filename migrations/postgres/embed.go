// Package migrations embeds SQL migration files.
package migrations

import "embed"

// FS contains the schema migrations for the shared database.
//
//go:embed *.sql
var FS embed.FS
