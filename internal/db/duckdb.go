package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
)

var (
	instance *sql.DB
	once     sync.Once
	initErr  error
)

// Config holds database configuration.
type Config struct {
	DataDir string
	DBName  string
}

// Path returns the database file for cfg.
func (c Config) Path() string {
	return filepath.Join(c.DataDir, "duckdb", c.DBName+".duckdb")
}

// schema is applied on every open; statements must be idempotent.
var schema = []string{
	`CREATE SEQUENCE IF NOT EXISTS layer_switches_seq START 1`,
	`CREATE TABLE IF NOT EXISTS layer_switches (
		id         BIGINT DEFAULT nextval('layer_switches_seq') PRIMARY KEY,
		session_id VARCHAR NOT NULL,
		from_layer VARCHAR,
		to_layer   VARCHAR NOT NULL,
		name       VARCHAR NOT NULL,
		at         TIMESTAMP NOT NULL
	)`,
}

// Open opens a DuckDB database and applies the schema.
func Open(cfg Config) (*sql.DB, error) {
	// Create duckdb subdirectory
	if err := os.MkdirAll(filepath.Dir(cfg.Path()), 0755); err != nil {
		return nil, fmt.Errorf("failed to create duckdb directory: %w", err)
	}

	conn, err := sql.Open("duckdb", cfg.Path())
	if err != nil {
		return nil, err
	}
	if err := Migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// Migrate creates the tables used by the server.
func Migrate(conn *sql.DB) error {
	for _, stmt := range schema {
		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// Get returns the singleton DuckDB connection.
func Get(cfg Config) (*sql.DB, error) {
	once.Do(func() {
		instance, initErr = Open(cfg)
	})
	return instance, initErr
}

// Close closes the database connection.
func Close() error {
	if instance != nil {
		return instance.Close()
	}
	return nil
}
