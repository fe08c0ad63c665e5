// Package sqlite embeds the goose migrations of the SQLite storage backend.
package sqlite

import "embed"

//go:embed *.sql
var Migrations embed.FS
