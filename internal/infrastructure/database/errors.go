package database

import "errors"

var (
	// ErrNoPath is returned by Open when database.path is empty.
	ErrNoPath = errors.New("database: path is required")

	// ErrMigrationNotFound is returned when an applied version has no file.
	ErrMigrationNotFound = errors.New("database: migration not found")
)
