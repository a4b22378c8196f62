package main

import (
	"io/fs"
	"os"

	"libraryapi/db"
)

// migrationsDir is where create writes new migration files.
func migrationsDir() string {
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return "db/migrations"
}

// migrationSource returns the embedded migrations unless MIGRATIONS_DIR
// points goose at a directory on disk.
func migrationSource() (fs.FS, string) {
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return nil, v
	}
	return db.Migrations, db.MigrationsDir
}
