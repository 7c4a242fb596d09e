package service

import (
	"context"
	"time"

	"github.com/Arifulit/job-portal-server/internal/domain"
	"github.com/Arifulit/job-portal-server/internal/repository"
)

// DefaultStoreTimeout bounds a single store call when none is configured.
const DefaultStoreTimeout = 5 * time.Second

// storeContext derives the context for a store call. It is detached from the
// caller's cancellation so an aborted request still completes its side
// effects, and bounded by timeout.
func storeContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

// boundedUsers applies storeContext to every user store call.
type boundedUsers struct {
	next    repository.UserRepository
	timeout time.Duration
}

func (b boundedUsers) Create(ctx context.Context, user *domain.User) error {
	ctx, cancel := storeContext(ctx, b.timeout)
	defer cancel()
	return b.next.Create(ctx, user)
}

func (b boundedUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	ctx, cancel := storeContext(ctx, b.timeout)
	defer cancel()
	return b.next.GetByID(ctx, id)
}

func (b boundedUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, cancel := storeContext(ctx, b.timeout)
	defer cancel()
	return b.next.GetByEmail(ctx, email)
}

func (b boundedUsers) Update(ctx context.Context, user *domain.User) error {
	ctx, cancel := storeContext(ctx, b.timeout)
	defer cancel()
	return b.next.Update(ctx, user)
}

func (b boundedUsers) Delete(ctx context.Context, id string) error {
	ctx, cancel := storeContext(ctx, b.timeout)
	defer cancel()
	return b.next.Delete(ctx, id)
}

func (b boundedUsers) List(ctx context.Context, filter domain.UserFilter) ([]domain.User, int, error) {
	ctx, cancel := storeContext(ctx, b.timeout)
	defer cancel()
	return b.next.List(ctx, filter)
}

// boundedTokens applies storeContext to every refresh token store call.
type boundedTokens struct {
	next    repository.RefreshTokenRepository
	timeout time.Duration
}

func (b boundedTokens) Create(ctx context.Context, token *domain.RefreshToken) error {
	ctx, cancel := storeContext(ctx, b.timeout)
	defer cancel()
	return b.next.Create(ctx, token)
}

func (b boundedTokens) Find(ctx context.Context, userID, tokenHash string) (*domain.RefreshToken, error) {
	ctx, cancel := storeContext(ctx, b.timeout)
	defer cancel()
	return b.next.Find(ctx, userID, tokenHash)
}

func (b boundedTokens) Delete(ctx context.Context, userID, tokenHash string) error {
	ctx, cancel := storeContext(ctx, b.timeout)
	defer cancel()
	return b.next.Delete(ctx, userID, tokenHash)
}

func (b boundedTokens) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := storeContext(ctx, b.timeout)
	defer cancel()
	return b.next.DeleteByUserID(ctx, userID)
}

func (b boundedTokens) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := storeContext(ctx, b.timeout)
	defer cancel()
	return b.next.DeleteExpired(ctx, now)
}
