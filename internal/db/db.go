// Package db opens the SQLite file that holds tuespacio's local device state.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// pragmas are applied by the driver to every new connection.
const pragmas = "_journal_mode=WAL&_busy_timeout=5000"

// DefaultPath returns ~/.config/tuespacio/state.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "tuespacio", "state.db"), nil
}

// Open opens or creates the state database at path and makes sure the
// local_state table exists.
func Open(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	d, err := sql.Open("sqlite3", path+"?"+pragmas)
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}
	if err := d.Ping(); err != nil {
		return nil, closeWith(d, fmt.Errorf("opening state database %s: %w", path, err))
	}
	if err := migrate(d); err != nil {
		return nil, closeWith(d, fmt.Errorf("running migrations: %w", err))
	}
	return d, nil
}

// closeWith closes d after a failed open and returns err, joined with any
// close failure.
func closeWith(d *sql.DB, err error) error {
	if closeErr := d.Close(); closeErr != nil {
		return errors.Join(err, fmt.Errorf("closing state database: %w", closeErr))
	}
	return err
}
