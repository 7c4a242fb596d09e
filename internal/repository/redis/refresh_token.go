package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Arifulit/job-portal-server/internal/domain"
	"github.com/Arifulit/job-portal-server/pkg/database"
	apperrors "github.com/Arifulit/job-portal-server/pkg/errors"
)

const (
	tokenKeyPrefix = "refresh:"
	userKeyPrefix  = "refresh:user:"
)

// record is the stored form of a refresh token. The hash lives in the key.
type record struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// RefreshTokenRepository implements repository.RefreshTokenRepository using
// Redis. Each record expires with its token; a per-user set indexes the
// user's token hashes for bulk revocation.
type RefreshTokenRepository struct {
	client *redis.Client
	now    func() time.Time
}

// NewRefreshTokenRepository creates a new Redis-backed refresh token repository.
func NewRefreshTokenRepository(client *redis.Client) *RefreshTokenRepository {
	return &RefreshTokenRepository{client: client, now: time.Now}
}

func tokenKey(userID, tokenHash string) string {
	return tokenKeyPrefix + userID + ":" + tokenHash
}

func userKey(userID string) string {
	return userKeyPrefix + userID
}

// Create stores a refresh token record that expires with the token.
func (r *RefreshTokenRepository) Create(ctx context.Context, t *domain.RefreshToken) (err error) {
	ctx, end := database.Trace(ctx, database.SystemRedis, "CreateRefreshToken", "SET refresh:* ; SADD refresh:user:*")
	defer func() { end(err) }()

	ttl := t.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return apperrors.InvalidInput("refresh token already expired")
	}

	data, err := json.Marshal(record{
		ID:        t.ID,
		UserID:    t.UserID,
		ExpiresAt: t.ExpiresAt,
		CreatedAt: t.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal refresh token: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, tokenKey(t.UserID, t.TokenHash), data, ttl)
		pipe.SAdd(ctx, userKey(t.UserID), t.TokenHash)
		pipe.Expire(ctx, userKey(t.UserID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis store refresh token: %w", err)
	}

	return nil
}

// Find retrieves the refresh token record for the user and token hash.
func (r *RefreshTokenRepository) Find(ctx context.Context, userID, tokenHash string) (_ *domain.RefreshToken, err error) {
	ctx, end := database.Trace(ctx, database.SystemRedis, "FindRefreshToken", "GET refresh:*")
	defer func() {
		if errors.Is(err, apperrors.ErrNotFound) {
			end(nil)
			return
		}
		end(err)
	}()

	data, err := r.client.Get(ctx, tokenKey(userID, tokenHash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("redis get refresh token: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal refresh token: %w", err)
	}

	return &domain.RefreshToken{
		ID:        rec.ID,
		UserID:    rec.UserID,
		TokenHash: tokenHash,
		ExpiresAt: rec.ExpiresAt,
		CreatedAt: rec.CreatedAt,
	}, nil
}

// Delete removes a single refresh token record.
func (r *RefreshTokenRepository) Delete(ctx context.Context, userID, tokenHash string) (err error) {
	ctx, end := database.Trace(ctx, database.SystemRedis, "DeleteRefreshToken", "DEL refresh:* ; SREM refresh:user:*")
	defer func() { end(err) }()

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, tokenKey(userID, tokenHash))
		pipe.SRem(ctx, userKey(userID), tokenHash)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete refresh token: %w", err)
	}

	return nil
}

// DeleteByUserID removes every refresh token of the user.
func (r *RefreshTokenRepository) DeleteByUserID(ctx context.Context, userID string) (_ int64, err error) {
	ctx, end := database.Trace(ctx, database.SystemRedis, "DeleteRefreshTokensByUser", "SMEMBERS refresh:user:* ; DEL refresh:*")
	defer func() { end(err) }()

	hashes, err := r.client.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis list refresh tokens: %w", err)
	}

	keys := make([]string, 0, len(hashes)+1)
	for _, h := range hashes {
		keys = append(keys, tokenKey(userID, h))
	}

	var removed int64
	if len(keys) > 0 {
		removed, err = r.client.Del(ctx, keys...).Result()
		if err != nil {
			return 0, fmt.Errorf("redis delete refresh tokens: %w", err)
		}
	}

	if err = r.client.Del(ctx, userKey(userID)).Err(); err != nil {
		return removed, fmt.Errorf("redis delete refresh token index: %w", err)
	}

	return removed, nil
}

// DeleteExpired is a no-op: records carry a TTL and Redis evicts them.
func (r *RefreshTokenRepository) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}
