// Package password hashes and verifies user passwords with bcrypt and
// checks candidate passwords against the account password policy.
package password

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	apperrors "github.com/Arifulit/job-portal-server/pkg/errors"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 10

// maxPasswordBytes is the bcrypt input limit.
const maxPasswordBytes = 72

// ErrEmptyPassword is returned when hashing an empty password.
var ErrEmptyPassword = apperrors.InvalidInput("Password must be a non-empty string")

// Config holds hasher settings.
type Config struct {
	// Cost is the bcrypt work factor. Out-of-range values are clamped.
	Cost int
	// MaxConcurrent bounds concurrent hash and compare operations.
	// Zero means runtime.GOMAXPROCS(0).
	MaxConcurrent int
}

// Hasher produces and checks bcrypt digests. It is safe for concurrent use.
type Hasher struct {
	cost int
	sem  *semaphore.Weighted
}

// NewHasher creates a Hasher from cfg.
func NewHasher(cfg Config) *Hasher {
	cost := cfg.Cost
	switch {
	case cost == 0:
		cost = DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}

	n := cfg.MaxConcurrent
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}

	return &Hasher{cost: cost, sem: semaphore.NewWeighted(int64(n))}
}

// Cost returns the effective bcrypt work factor.
func (h *Hasher) Cost() int { return h.cost }

// Hash returns the bcrypt digest of plaintext. The digest embeds its salt
// and cost.
func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}
	if len(plaintext) > maxPasswordBytes {
		return "", apperrors.InvalidInput("Password must be at most 72 bytes")
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("acquire hash slot: %w", err)
	}
	defer h.sem.Release(1)

	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Compare reports whether plaintext matches digest. Malformed digests, empty
// input and a cancelled context all yield false.
func (h *Hasher) Compare(ctx context.Context, plaintext, digest string) bool {
	if plaintext == "" || digest == "" {
		return false
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.sem.Release(1)

	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
