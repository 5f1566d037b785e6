package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/tuespacio/tuespacio/internal/filter"
	"github.com/tuespacio/tuespacio/internal/recordstore"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrEmailTaken    = errors.New("email is already registered")
	ErrPasswordMatch = errors.New("passwords do not match")
	ErrInvalidInput  = errors.New("invalid user data")
)

// Service provides user lookups and profile edits. Users are never deleted here.
type Service struct {
	users *recordstore.Collection
}

// NewService creates a user service.
func NewService(store recordstore.Store) *Service {
	return &Service{users: recordstore.NewCollection(store, Collection)}
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: empty user id", ErrInvalidInput)
	}
	rec, err := s.users.GetOne(ctx, id, "")
	if errors.Is(err, recordstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		slog.Error("loading user", "user_id", id, "error", err)
		return nil, fmt.Errorf("loading user %s: %w", id, err)
	}
	return Parse(rec)
}

// FindByEmail returns the user with the given email, or nil if none.
func (s *Service) FindByEmail(ctx context.Context, email string) (*User, error) {
	rec, err := s.users.First(ctx, filter.Eq("email", strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("looking up email: %w", err)
	}
	if rec == nil {
		return nil, nil
	}
	return Parse(rec)
}

// Registration is the input to Register.
type Registration struct {
	Email           string
	Password        string
	PasswordConfirm string
	Name            string
	Role            Role
}

// Register creates an active user after checking the email is free.
// The pre-check is advisory; a store-side rejection is also mapped to ErrEmailTaken.
func (s *Service) Register(ctx context.Context, reg Registration) (*User, error) {
	reg.Email = strings.TrimSpace(reg.Email)
	reg.Name = strings.TrimSpace(reg.Name)
	if reg.Email == "" || reg.Name == "" || reg.Password == "" {
		return nil, fmt.Errorf("%w: email, name and password are required", ErrInvalidInput)
	}
	if reg.Password != reg.PasswordConfirm {
		return nil, ErrPasswordMatch
	}
	if reg.Role == "" {
		reg.Role = RoleTenant
	}
	if _, err := ParseRole(string(reg.Role)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	existing, err := s.FindByEmail(ctx, reg.Email)
	if err != nil {
		slog.Warn("email pre-check failed, continuing with registration", "error", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	rec, err := s.users.Create(ctx, map[string]interface{}{
		"email":           reg.Email,
		"password":        reg.Password,
		"passwordConfirm": reg.PasswordConfirm,
		"name":            reg.Name,
		"type":            string(reg.Role),
		"isActive":        true,
	})
	if recordstore.IsNotUnique(err) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		slog.Error("registering user", "email", reg.Email, "error", err)
		return nil, fmt.Errorf("registering user: %w", err)
	}

	slog.Info("user registered", "user_id", rec.ID(), "role", reg.Role)
	return Parse(rec)
}

// Profile holds editable profile fields. Nil fields are left unchanged.
type Profile struct {
	Name   *string
	Phone  *string
	Bio    *string
	Gender *Gender
}

// UpdateProfile patches the editable profile fields.
func (s *Service) UpdateProfile(ctx context.Context, id string, p Profile) (*User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: empty user id", ErrInvalidInput)
	}

	data := map[string]interface{}{}
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
		}
		data["name"] = strings.TrimSpace(*p.Name)
	}
	if p.Phone != nil {
		data["phone"] = strings.TrimSpace(*p.Phone)
	}
	if p.Bio != nil {
		if utf8.RuneCountInString(*p.Bio) > MaxBioLength {
			return nil, fmt.Errorf("%w: bio must be at most %d characters", ErrInvalidInput, MaxBioLength)
		}
		data["bio"] = *p.Bio
	}
	if p.Gender != nil {
		if *p.Gender != GenderMale && *p.Gender != GenderFemale {
			return nil, fmt.Errorf("%w: unknown gender %q", ErrInvalidInput, *p.Gender)
		}
		data["genre"] = string(*p.Gender)
	}
	if len(data) == 0 {
		return s.Get(ctx, id)
	}

	rec, err := s.users.Update(ctx, id, data)
	if errors.Is(err, recordstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		slog.Error("updating profile", "user_id", id, "error", err)
		return nil, fmt.Errorf("updating profile: %w", err)
	}
	return Parse(rec)
}
