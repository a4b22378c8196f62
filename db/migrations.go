// Package db holds the goose SQL migrations for the library schema.
package db

import "embed"

// Migrations contains every file under migrations/, rooted at "migrations".
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory name inside Migrations.
const MigrationsDir = "migrations"
