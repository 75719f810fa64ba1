// Package migrations embeds the SQLite schema migrations for event storage.
package migrations

import "embed"

// FS contains embedded SQLite migrations for the events database.
//
//go:embed *.sql
var FS embed.FS
