// Package migrations embeds the SQL schema migrations so they ship inside
// the binary. Pass FS to database.DB.Migrate.
package migrations

import "embed"

// FS holds every *.sql file in this directory.
//
//go:embed *.sql
var FS embed.FS
