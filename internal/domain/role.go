package domain

import "strings"

// Role constants define the allowed user roles.
const (
	RoleAdmin     = "admin"
	RoleEmployer  = "employer"
	RoleRecruiter = "recruiter"
	RoleJobSeeker = "job_seeker"
)

// DefaultRole is assigned when registration does not name a role.
const DefaultRole = RoleJobSeeker

// ValidRoles returns every role a user can hold.
func ValidRoles() []string {
	return []string{RoleAdmin, RoleEmployer, RoleRecruiter, RoleJobSeeker}
}

// RegistrableRoles returns the roles a user may pick at self-registration.
// Admins are provisioned out of band.
func RegistrableRoles() []string {
	return []string{RoleEmployer, RoleRecruiter, RoleJobSeeker}
}

// NormalizeRole lowercases and trims a role name.
func NormalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

// IsValidRole checks whether role names a known role.
func IsValidRole(role string) bool {
	return contains(ValidRoles(), NormalizeRole(role))
}

// IsRegistrableRole checks whether role may be chosen at self-registration.
func IsRegistrableRole(role string) bool {
	return contains(RegistrableRoles(), NormalizeRole(role))
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
