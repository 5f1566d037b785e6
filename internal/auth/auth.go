// Package auth signs users in against the record store and keeps the
// resulting session on the local device.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tuespacio/tuespacio/internal/recordstore"
	"github.com/tuespacio/tuespacio/internal/session"
	"github.com/tuespacio/tuespacio/internal/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnreachable        = errors.New("record store is unreachable")
	ErrTooManyAttempts    = errors.New("too many failed login attempts, try again later")
	ErrNotLoggedIn        = errors.New("not logged in")
	ErrSessionExpired     = errors.New("session expired, log in again")
)

// Authenticator is the part of the record store client used for login.
type Authenticator interface {
	BaseURL() string
	Health(ctx context.Context) error
	AuthWithPassword(ctx context.Context, collection, identity, password string) (*recordstore.AuthResult, error)
}

// Service handles login, logout and registration.
type Service struct {
	client   Authenticator
	users    *user.Service
	sessions *session.Store
	limiter  *rateLimiter
	now      func() time.Time
}

// NewService creates an auth service.
func NewService(client Authenticator, users *user.Service, sessions *session.Store) *Service {
	return &Service{
		client:   client,
		users:    users,
		sessions: sessions,
		limiter:  newRateLimiter(),
		now:      time.Now,
	}
}

// Login checks connectivity, authenticates with the store and saves the session.
func (s *Service) Login(ctx context.Context, email, password string) (*session.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidCredentials)
	}
	if s.limiter.limited(email) {
		return nil, ErrTooManyAttempts
	}

	if err := s.client.Health(ctx); err != nil {
		slog.ErrorContext(ctx, "record store health check failed", "url", s.client.BaseURL(), "error", err)
		return nil, fmt.Errorf("%w at %s: %v", ErrUnreachable, s.client.BaseURL(), err)
	}

	res, err := s.client.AuthWithPassword(ctx, user.Collection, email, password)
	if err != nil {
		if recordstore.StatusOf(err) == http.StatusBadRequest {
			s.limiter.recordFailure(email)
			slog.WarnContext(ctx, "login rejected", "email", email)
			return nil, ErrInvalidCredentials
		}
		if errors.Is(err, recordstore.ErrUnreachable) {
			return nil, fmt.Errorf("%w at %s: %v", ErrUnreachable, s.client.BaseURL(), err)
		}
		slog.ErrorContext(ctx, "login failed", "email", email, "error", err)
		return nil, fmt.Errorf("logging in: %w", err)
	}

	u, err := user.Parse(res.Record)
	if err != nil {
		return nil, fmt.Errorf("logging in: %w", err)
	}
	if err := s.sessions.Save(u, res.Token); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	s.limiter.reset(email)

	slog.InfoContext(ctx, "logged in", "user_id", u.ID)
	return &session.Session{User: u, Token: res.Token}, nil
}

// Logout clears the saved session.
func (s *Service) Logout() error {
	return s.sessions.Clear()
}

// Register creates an account and logs it in.
func (s *Service) Register(ctx context.Context, reg user.Registration) (*session.Session, error) {
	if _, err := s.users.Register(ctx, reg); err != nil {
		return nil, err
	}
	return s.Login(ctx, reg.Email, reg.Password)
}

// Current returns the saved session.
func (s *Service) Current() (*session.Session, error) {
	sess, err := s.sessions.Load()
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNotLoggedIn
	}
	if sess.Expired(s.now()) {
		return nil, ErrSessionExpired
	}
	return sess, nil
}
