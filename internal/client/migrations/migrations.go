// Package migrations embeds the goose migrations for the local SQLite cache.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
