// Package migrations embeds the SQL migration files for the SQLite store.
package migrations

import "embed"

// FS holds the embedded .up.sql migration files, applied in order of
// their numeric prefix.
//
//go:embed *.sql
var FS embed.FS
