// Package migrations embeds the SQLite schema for the sqlite vault backend.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
