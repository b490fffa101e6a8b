// Package migrations embeds the SQL migrations for the SQLite history store.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
