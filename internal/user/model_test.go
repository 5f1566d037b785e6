package user

import (
	"errors"
	"testing"

	"github.com/tuespacio/tuespacio/internal/recordstore"
)

func TestParse(t *testing.T) {
	rec, err := recordstore.NewRecord(map[string]interface{}{
		"id":       "u1",
		"email":    "ana@example.com",
		"name":     "Ana Lopez",
		"type":     "Propietario",
		"genre":    "femenino",
		"isActive": true,
		"bio":      "hola",
		"created":  "2024-03-01 10:00:00.000Z",
	})
	if err != nil {
		t.Fatal(err)
	}

	u, err := Parse(rec)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if u.ID != "u1" || u.Email != "ana@example.com" || u.Name != "Ana Lopez" {
		t.Errorf("unexpected identity fields: %+v", u)
	}
	if u.Role != RoleOwner {
		t.Errorf("Role = %q, want %q", u.Role, RoleOwner)
	}
	if u.Gender != GenderFemale || !u.Active || u.Bio != "hola" {
		t.Errorf("unexpected profile fields: %+v", u)
	}
	if u.Created.IsZero() {
		t.Error("expected created time to be parsed")
	}
}

func TestParseMissingID(t *testing.T) {
	rec, _ := recordstore.NewRecord(map[string]interface{}{"email": "x@example.com"})
	_, err := Parse(rec)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if pe.Collection != Collection {
		t.Errorf("Collection = %q", pe.Collection)
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"", RoleTenant, false},
		{"tenant", RoleTenant, false},
		{"Inquilino", RoleTenant, false},
		{"owner", RoleOwner, false},
		{"PROPIETARIO", RoleOwner, false},
		{"admin", RoleAdmin, false},
		{"landlord", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRole(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseRole(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		user *User
		want string
	}{
		{"nil", nil, "User"},
		{"name", &User{Name: "  Ana Lopez "}, "Ana Lopez"},
		{"email fallback", &User{Email: "carlos@example.com"}, "carlos"},
		{"empty", &User{}, "User"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayName(tt.user); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInitials(t *testing.T) {
	tests := []struct {
		name string
		user *User
		want string
	}{
		{"nil", nil, "U"},
		{"two names", &User{Name: "ana lopez"}, "AL"},
		{"three names", &User{Name: "María José Díaz"}, "MJ"},
		{"single name", &User{Name: "carlos"}, "CA"},
		{"single letter", &User{Name: "z"}, "Z"},
		{"blank", &User{Name: "   "}, "U"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Initials(tt.user); got != tt.want {
				t.Errorf("Initials() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAvatarKind(t *testing.T) {
	tests := []struct {
		name string
		user *User
		want string
	}{
		{"nil", nil, "default"},
		{"uploaded", &User{Avatar: "me.png", Gender: GenderFemale}, "custom"},
		{"female", &User{Gender: GenderFemale}, "female"},
		{"male", &User{Gender: GenderMale}, "default"},
		{"unset", &User{}, "default"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AvatarKind(tt.user); got != tt.want {
				t.Errorf("AvatarKind() = %q, want %q", got, tt.want)
			}
		})
	}
}
