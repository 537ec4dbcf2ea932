// Package db opens the DuckDB connection used to read GeoParquet border
// datasets through the spatial extension.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
)

// Config holds database configuration.
type Config struct {
	DataDir string
	DBName  string
}

// Lazy opens the database on first use. Servers that never load a
// parquet dataset never start DuckDB.
type Lazy struct {
	cfg  Config
	once sync.Once
	db   *sql.DB
	err  error
}

// NewLazy returns a handle that opens cfg on the first Get.
func NewLazy(cfg Config) *Lazy {
	return &Lazy{cfg: cfg}
}

// Get returns the shared connection, opening it if needed.
func (l *Lazy) Get(ctx context.Context) (*sql.DB, error) {
	l.once.Do(func() {
		l.db, l.err = Open(ctx, l.cfg)
	})
	return l.db, l.err
}

// Close closes the connection if it was opened.
func (l *Lazy) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// Open opens <DataDir>/duckdb/<DBName>.duckdb, or an in-memory database
// when DataDir is empty, and loads the spatial and parquet extensions.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	dsn := ""
	if cfg.DataDir != "" {
		duckdbDir := filepath.Join(cfg.DataDir, "duckdb")
		if err := os.MkdirAll(duckdbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create duckdb directory: %w", err)
		}
		name := cfg.DBName
		if name == "" {
			name = "terrain"
		}
		dsn = filepath.Join(duckdbDir, name+".duckdb")
	}

	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, err
	}

	for _, ext := range []string{"spatial", "parquet"} {
		if _, err := conn.ExecContext(ctx, fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext)); err != nil {
			conn.Close()
			return nil, fmt.Errorf("loading %s extension: %w", ext, err)
		}
	}
	return conn, nil
}
