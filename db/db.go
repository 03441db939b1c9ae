// Package db embeds the SQL migrations so binaries and tests share one copy.
package db

import "embed"

// Migrations holds migrations/*.sql; only *.up.sql files are applied.
//
//go:embed migrations/*.sql
var Migrations embed.FS
