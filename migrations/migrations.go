// Package migrations embeds the database schema for both supported drivers.
package migrations

import "embed"

// Postgres holds the versioned golang-migrate files under postgres/.
//
//go:embed postgres/*.sql
var Postgres embed.FS

// SQLiteSchema is applied as a whole when an SQLite store is opened.
//
//go:embed sqlite/schema.sql
var SQLiteSchema string
