package domain

import (
	"strings"
	"time"
)

// User is a registered principal.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	Phone        string    `json:"phone,omitempty"`
	CompanyName  string    `json:"company_name,omitempty"`
	IsActive     bool      `json:"is_active"`
	IsVerified   bool      `json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NormalizeEmail lowercases and trims an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ProfileUpdate lists the profile fields a user may change. Nil fields are
// left unchanged.
type ProfileUpdate struct {
	FullName    *string
	Phone       *string
	CompanyName *string
}

// IsEmpty reports whether no field is set.
func (u ProfileUpdate) IsEmpty() bool {
	return u.FullName == nil && u.Phone == nil && u.CompanyName == nil
}

// Apply copies the set fields onto user.
func (u ProfileUpdate) Apply(user *User) {
	if u.FullName != nil {
		user.FullName = strings.TrimSpace(*u.FullName)
	}
	if u.Phone != nil {
		user.Phone = strings.TrimSpace(*u.Phone)
	}
	if u.CompanyName != nil {
		user.CompanyName = strings.TrimSpace(*u.CompanyName)
	}
}

// UserFilter narrows an administrative user listing.
type UserFilter struct {
	Role     string
	IsActive *bool
	// Query matches full name, email, company name or phone, case-insensitively.
	Query  string
	Limit  int
	Offset int
}
