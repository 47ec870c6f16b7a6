package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

var (
	mu            sync.Mutex
	db            *sql.DB
	dbPath        string
	busyTimeoutMS = 5000
)

// Configure sets the database file and busy timeout used by GetDB.
// It must be called before the first GetDB.
func Configure(path string, busyTimeout int) {
	mu.Lock()
	defer mu.Unlock()
	dbPath = path
	if busyTimeout > 0 {
		busyTimeoutMS = busyTimeout
	}
}

// DSN builds the go-sqlite3 connection string for a database file.
// WAL lets the dashboard read while a run writes.
func DSN(path string, busyTimeout int) string {
	return fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_foreign_keys=on", path, busyTimeout)
}

// GetDB returns the database connection, initializing if needed
func GetDB() (*sql.DB, error) {
	mu.Lock()
	defer mu.Unlock()

	if db != nil {
		return db, nil
	}

	path := dbPath
	if path == "" {
		p, err := GetDBPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", DSN(path, busyTimeoutMS))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := InitSchema(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	db = conn
	return db, nil
}

// Close closes the database connection
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if db != nil {
		err := db.Close()
		db = nil
		return err
	}
	return nil
}

// GetDBPath returns the default path to the database file
func GetDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".encheres", "encheres.db"), nil
}
