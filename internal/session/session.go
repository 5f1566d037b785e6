// Package session persists the signed-in user and store token on the local
// device so the CLI stays logged in between runs.
package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tuespacio/tuespacio/internal/db"
	"github.com/tuespacio/tuespacio/internal/user"
)

// Keys under which the session is stored.
const (
	KeyUser  = "user"
	KeyToken = "token"
)

// Session is the persisted login.
type Session struct {
	User  *user.User
	Token string
}

// Expired reports whether the token's exp claim is before now. The token is
// decoded without verifying its signature; only the store can verify it.
// Tokens without an exp claim never expire here. Undecodable tokens are
// treated as expired.
func (s *Session) Expired(now time.Time) bool {
	exp, err := ExpiresAt(s.Token)
	if err != nil {
		return true
	}
	if exp.IsZero() {
		return false
	}
	return !now.Before(exp)
}

// ExpiresAt returns the exp claim of a store token, or the zero time if it
// has none.
func ExpiresAt(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("decoding token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("reading exp claim: %w", err)
	}
	if exp == nil {
		return time.Time{}, nil
	}
	return exp.Time, nil
}

// Store keeps the session in the local_state table.
type Store struct {
	state *db.State
}

// NewStore creates a session store on a database opened with db.Open.
func NewStore(d *sql.DB) *Store {
	return &Store{state: db.NewState(d)}
}

// Save writes the user and token, replacing any previous session.
func (s *Store) Save(u *user.User, token string) error {
	if u == nil || token == "" {
		return errors.New("saving session: user and token are required")
	}
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}
	if err := s.state.Put(map[string]string{KeyUser: string(raw), KeyToken: token}); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Load returns the saved session, or nil if there is none.
func (s *Store) Load() (*Session, error) {
	token, _, err := s.state.Get(KeyToken)
	if err != nil {
		return nil, err
	}
	rawUser, _, err := s.state.Get(KeyUser)
	if err != nil {
		return nil, err
	}
	if token == "" || rawUser == "" {
		return nil, nil
	}

	var u user.User
	if err := json.Unmarshal([]byte(rawUser), &u); err != nil {
		return nil, fmt.Errorf("decoding saved user: %w", err)
	}
	return &Session{User: &u, Token: token}, nil
}

// Clear removes the saved session. Clearing an empty store succeeds.
func (s *Store) Clear() error {
	if err := s.state.Delete(KeyUser, KeyToken); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}
