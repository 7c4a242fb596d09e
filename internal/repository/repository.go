package repository

import (
	"context"
	"time"

	"github.com/Arifulit/job-portal-server/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
// Lookups of a missing user return an error matching apperrors.ErrNotFound.
type UserRepository interface {
	// Create inserts a new user. A duplicate email yields an error matching
	// apperrors.ErrAlreadyExists.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by their normalized email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update modifies an existing user.
	Update(ctx context.Context, user *domain.User) error

	// Delete removes a user by their identifier.
	Delete(ctx context.Context, id string) error

	// List returns one page of users matching filter and the total number of
	// matches.
	List(ctx context.Context, filter domain.UserFilter) ([]domain.User, int, error)
}

// RefreshTokenRepository defines the interface for refresh token persistence.
// Records are keyed by the owning user and the token's hash.
type RefreshTokenRepository interface {
	// Create stores a new refresh token record.
	Create(ctx context.Context, token *domain.RefreshToken) error

	// Find retrieves the record for userID and tokenHash.
	Find(ctx context.Context, userID, tokenHash string) (*domain.RefreshToken, error)

	// Delete removes the record for userID and tokenHash. Deleting a missing
	// record is not an error.
	Delete(ctx context.Context, userID, tokenHash string) error

	// DeleteByUserID removes every record of the user and returns how many
	// were removed.
	DeleteByUserID(ctx context.Context, userID string) (int64, error)

	// DeleteExpired removes records whose expiry is at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
