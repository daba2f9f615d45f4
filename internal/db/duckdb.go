// Package db opens DuckDB connections with the JSON extension loaded.
package db

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
)

var (
	memInstance *sql.DB
	memOnce     sync.Once
	memErr      error
)

// Memory returns the process-wide in-memory database used for ad hoc
// queries over corpus files.
func Memory() (*sql.DB, error) {
	memOnce.Do(func() {
		memInstance, memErr = Open("")
	})
	return memInstance, memErr
}

// Open opens the database file at path, creating it if needed. An empty
// path opens a private in-memory database.
func Open(path string) (*sql.DB, error) {
	conn, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB %q: %w", path, err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if _, err := conn.Exec("INSTALL json"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to install JSON extension: %w", err)
	}

	if _, err := conn.Exec("LOAD json"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to load JSON extension: %w", err)
	}

	return conn, nil
}
