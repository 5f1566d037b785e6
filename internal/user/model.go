// Package user provides the marketplace user model and profile operations.
package user

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tuespacio/tuespacio/internal/recordstore"
)

// Collection is the record store collection holding users.
const Collection = "users"

// MaxBioLength is the maximum bio length in characters.
const MaxBioLength = 40

// Role is what a user does on the marketplace. Values are the store's wire values.
type Role string

const (
	RoleTenant Role = "Inquilino"
	RoleOwner  Role = "Propietario"
	RoleAdmin  Role = "Administrador"
)

// ParseRole accepts either the wire value or the English name.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "tenant", "inquilino":
		return RoleTenant, nil
	case "owner", "propietario":
		return RoleOwner, nil
	case "admin", "administrador":
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("invalid role %q: must be one of tenant, owner, admin", s)
}

// Gender is optional and only drives avatar selection.
type Gender string

const (
	GenderMale   Gender = "masculino"
	GenderFemale Gender = "femenino"
)

// User is a marketplace account.
type User struct {
	ID      string    `json:"id"`
	Email   string    `json:"email"`
	Name    string    `json:"name"`
	Avatar  string    `json:"avatar,omitempty"`
	Role    Role      `json:"type,omitempty"`
	Gender  Gender    `json:"genre,omitempty"`
	Active  bool      `json:"isActive"`
	Phone   string    `json:"phone,omitempty"`
	Bio     string    `json:"bio,omitempty"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// ParseError reports a record that could not be turned into a typed entity.
type ParseError struct {
	Collection string
	Reason     string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s record: %s", e.Collection, e.Reason)
}

// Parse converts a store record into a User.
func Parse(rec recordstore.Record) (*User, error) {
	if rec == nil {
		return nil, &ParseError{Collection: Collection, Reason: "empty record"}
	}
	if rec.ID() == "" {
		return nil, &ParseError{Collection: Collection, Reason: "missing id"}
	}
	return &User{
		ID:      rec.ID(),
		Email:   rec.String("email"),
		Name:    rec.String("name"),
		Avatar:  rec.String("avatar"),
		Role:    Role(rec.String("type")),
		Gender:  Gender(rec.String("genre")),
		Active:  rec.Bool("isActive"),
		Phone:   rec.String("phone"),
		Bio:     rec.String("bio"),
		Created: rec.Time("created"),
		Updated: rec.Time("updated"),
	}, nil
}

// DisplayName returns the name, falling back to the email local part.
func DisplayName(u *User) string {
	if u == nil {
		return "User"
	}
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	if u.Email != "" {
		return strings.SplitN(u.Email, "@", 2)[0]
	}
	return "User"
}

// Initials returns up to two upper-case initials.
func Initials(u *User) string {
	if u == nil || strings.TrimSpace(u.Name) == "" {
		return "U"
	}
	names := strings.Fields(u.Name)
	if len(names) >= 2 {
		return strings.ToUpper(firstRune(names[0]) + firstRune(names[1]))
	}
	r := []rune(names[0])
	if len(r) > 2 {
		r = r[:2]
	}
	return strings.ToUpper(string(r))
}

// AvatarKind selects the avatar to show: the uploaded one if set, otherwise
// a default picked by gender.
func AvatarKind(u *User) string {
	switch {
	case u == nil:
		return "default"
	case strings.TrimSpace(u.Avatar) != "":
		return "custom"
	case u.Gender == GenderFemale:
		return "female"
	}
	return "default"
}

func firstRune(s string) string {
	r, _ := utf8.DecodeRuneInString(s)
	return string(r)
}
