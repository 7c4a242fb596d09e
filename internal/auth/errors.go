package auth

import (
	"errors"
	"fmt"
)

// TokenErrorKind classifies why a token was rejected.
type TokenErrorKind string

const (
	KindExpired      TokenErrorKind = "expired"
	KindMalformed    TokenErrorKind = "malformed"
	KindBadSignature TokenErrorKind = "bad-signature"
)

// TokenError is the server-side cause attached to token verification
// failures. It is logged, never returned to clients.
type TokenError struct {
	Kind TokenErrorKind
	Err  error
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("token %s: %v", e.Kind, e.Err)
}

func (e *TokenError) Unwrap() error { return e.Err }

// KindOf returns the TokenErrorKind in err's chain, or "" if there is none.
func KindOf(err error) TokenErrorKind {
	var te *TokenError
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}
