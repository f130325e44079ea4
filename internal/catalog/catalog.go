// Package catalog provides SQLite storage for extraction and validation run
// metadata produced by the command-line tools.
package catalog

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Catalog represents a SQLite database connection for recording runs.
type Catalog struct {
	db   *sql.DB
	path string
}

// Open creates a Catalog at the given database path. It opens the database
// connection, enables foreign keys, and runs migrations.
func Open(dbPath string) (*Catalog, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	c := &Catalog{
		db:   db,
		path: dbPath,
	}

	if err := c.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return c, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// DB returns the underlying database connection.
func (c *Catalog) DB() *sql.DB {
	return c.db
}
