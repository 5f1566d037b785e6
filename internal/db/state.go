package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// State reads and writes the local_state key/value table.
type State struct {
	db *sql.DB
}

// NewState wraps a database opened with Open.
func NewState(d *sql.DB) *State {
	return &State{db: d}
}

// Get returns the value under key and whether it was present.
func (s *State) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM local_state WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return value, true, nil
}

// Put writes all values in one transaction, replacing existing keys.
func (s *State) Put(values map[string]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	for key, value := range values {
		if _, err := tx.Exec(
			`INSERT INTO local_state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
			key, value,
		); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return fmt.Errorf("storing %s: %w (also failed to roll back: %v)", key, err, rbErr)
			}
			return fmt.Errorf("storing %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing local state: %w", err)
	}
	return nil
}

// Delete removes keys; missing keys are ignored.
func (s *State) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	args := make([]interface{}, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	if _, err := s.db.Exec("DELETE FROM local_state WHERE key IN ("+placeholders+")", args...); err != nil {
		return fmt.Errorf("deleting %s: %w", strings.Join(keys, ", "), err)
	}
	return nil
}
