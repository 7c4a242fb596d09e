package password

import (
	"strings"
	"unicode"
)

const minLength = 8

const specialChars = `!@#$%^&*(),.?":{}|<>`

// Policy violation messages.
const (
	MsgTooShort     = "Password must be at least 8 characters"
	MsgNeedsUpper   = "Password must contain at least one uppercase letter"
	MsgNeedsLower   = "Password must contain at least one lowercase letter"
	MsgNeedsDigit   = "Password must contain at least one number"
	MsgNeedsSpecial = "Password must contain at least one special character"
)

// ValidationResult lists every policy rule a password breaks.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Validate checks the basic policy: minimum length, an uppercase letter, a
// lowercase letter and a digit.
func Validate(plaintext string) ValidationResult {
	return check(plaintext, false)
}

// ValidateStrict checks the basic policy plus a required special character.
func ValidateStrict(plaintext string) ValidationResult {
	return check(plaintext, true)
}

func check(plaintext string, strict bool) ValidationResult {
	var errs []string
	if len([]rune(plaintext)) < minLength {
		errs = append(errs, MsgTooShort)
	}

	var upper, lower, digit bool
	for _, r := range plaintext {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper {
		errs = append(errs, MsgNeedsUpper)
	}
	if !lower {
		errs = append(errs, MsgNeedsLower)
	}
	if !digit {
		errs = append(errs, MsgNeedsDigit)
	}
	if strict && !strings.ContainsAny(plaintext, specialChars) {
		errs = append(errs, MsgNeedsSpecial)
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}
