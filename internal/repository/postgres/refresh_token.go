package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Arifulit/job-portal-server/internal/domain"
	"github.com/Arifulit/job-portal-server/pkg/database"
	apperrors "github.com/Arifulit/job-portal-server/pkg/errors"
)

// RefreshTokenRepository implements repository.RefreshTokenRepository using PostgreSQL.
type RefreshTokenRepository struct {
	db database.DBTX
}

// NewRefreshTokenRepository creates a new PostgreSQL-backed refresh token repository.
func NewRefreshTokenRepository(db database.DBTX) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// Create stores a new refresh token record.
func (r *RefreshTokenRepository) Create(ctx context.Context, t *domain.RefreshToken) (err error) {
	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	ctx, end := database.TraceQuery(ctx, "CreateRefreshToken", query)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, query, t.ID, t.UserID, t.TokenHash, t.ExpiresAt, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}

	return nil
}

// Find retrieves the refresh token record for the user and token hash.
func (r *RefreshTokenRepository) Find(ctx context.Context, userID, tokenHash string) (_ *domain.RefreshToken, err error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM refresh_tokens
		WHERE user_id = $1 AND token_hash = $2`

	ctx, end := database.TraceQuery(ctx, "FindRefreshToken", query)
	defer func() { endSpan(end, err) }()

	var rt domain.RefreshToken
	err = r.db.QueryRow(ctx, query, userID, tokenHash).Scan(
		&rt.ID,
		&rt.UserID,
		&rt.TokenHash,
		&rt.ExpiresAt,
		&rt.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}

	return &rt, nil
}

// Delete removes a single refresh token record.
func (r *RefreshTokenRepository) Delete(ctx context.Context, userID, tokenHash string) (err error) {
	query := `DELETE FROM refresh_tokens WHERE user_id = $1 AND token_hash = $2`

	ctx, end := database.TraceQuery(ctx, "DeleteRefreshToken", query)
	defer func() { end(err) }()

	if _, err = r.db.Exec(ctx, query, userID, tokenHash); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}

	return nil
}

// DeleteByUserID removes all refresh tokens of the given user.
func (r *RefreshTokenRepository) DeleteByUserID(ctx context.Context, userID string) (_ int64, err error) {
	query := `DELETE FROM refresh_tokens WHERE user_id = $1`

	ctx, end := database.TraceQuery(ctx, "DeleteRefreshTokensByUser", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("delete refresh tokens by user: %w", err)
	}

	return ct.RowsAffected(), nil
}

// DeleteExpired removes refresh tokens that expired at or before now.
func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (_ int64, err error) {
	query := `DELETE FROM refresh_tokens WHERE expires_at <= $1`

	ctx, end := database.TraceQuery(ctx, "DeleteExpiredRefreshTokens", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}

	return ct.RowsAffected(), nil
}
