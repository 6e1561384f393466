package entities

import (
	"strings"

	pkgerrors "jarvis-backend/pkg/errors"

	"github.com/google/uuid"
)

// UserRole distinguishes the student dashboard from the admin dashboard
type UserRole string

const (
	RoleStudent UserRole = "STUDENT"
	RoleAdmin   UserRole = "ADMIN"
)

// Stream is the student's field of study
type Stream string

const (
	StreamScience       Stream = "Science"
	StreamCommerce      Stream = "Commerce"
	StreamEngineering   Stream = "Engineering"
	StreamArts          Stream = "Arts"
	StreamSchoolGeneral Stream = "School (General)"
)

// AdminEmail is the address that always logs in as the built-in admin
const AdminEmail = "admin@jarvis.ai"

// User is a tutor account profile.
// Standard and Stream are only meaningful for students.
type User struct {
	ID       string   `json:"id" dynamodbav:"id"`
	Name     string   `json:"name" dynamodbav:"name"`
	Email    string   `json:"email" dynamodbav:"email"`
	Role     UserRole `json:"role" dynamodbav:"role"`
	Standard string   `json:"standard,omitempty" dynamodbav:"standard,omitempty"`
	Stream   Stream   `json:"stream,omitempty" dynamodbav:"stream,omitempty"`
	IsPro    bool     `json:"isPro" dynamodbav:"is_pro"`
}

// NewUser creates a profile, dropping student-only fields for admins
func NewUser(name, email string, role UserRole, standard string, stream Stream, isPro bool) (*User, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)

	if name == "" {
		return nil, pkgerrors.NewValidationError("name is required")
	}
	if email == "" {
		return nil, pkgerrors.NewValidationError("email is required")
	}
	if !role.IsValid() {
		return nil, pkgerrors.NewValidationError("role must be STUDENT or ADMIN")
	}

	user := &User{
		ID:    uuid.New().String(),
		Name:  name,
		Email: email,
		Role:  role,
		IsPro: isPro,
	}

	if role == RoleStudent {
		standard = strings.TrimSpace(standard)
		if standard == "" {
			return nil, pkgerrors.NewValidationError("standard is required for students")
		}
		if stream == "" {
			stream = StreamScience
		}
		if !stream.IsValid() {
			return nil, pkgerrors.NewValidationError("unknown stream")
		}
		user.Standard = standard
		user.Stream = stream
	}

	return user, nil
}

// BuiltinAdmin returns the fixed admin account
func BuiltinAdmin() *User {
	return &User{
		ID:    "admin1",
		Name:  "Admin User",
		Email: AdminEmail,
		Role:  RoleAdmin,
	}
}

// IsAdmin reports whether the user sees the admin dashboard
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsValid reports whether the role is known
func (r UserRole) IsValid() bool {
	return r == RoleStudent || r == RoleAdmin
}

// IsValid reports whether the stream is known
func (s Stream) IsValid() bool {
	switch s {
	case StreamScience, StreamCommerce, StreamEngineering, StreamArts, StreamSchoolGeneral:
		return true
	}
	return false
}

// NormalizeEmail lowercases and trims an email so lookups are stable
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
