package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Arifulit/job-portal-server/internal/auth"
	"github.com/Arifulit/job-portal-server/internal/domain"
	"github.com/Arifulit/job-portal-server/internal/event"
	"github.com/Arifulit/job-portal-server/internal/password"
	apperrors "github.com/Arifulit/job-portal-server/pkg/errors"
	pkgkafka "github.com/Arifulit/job-portal-server/pkg/kafka"
)

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockUserRepository) List(ctx context.Context, filter domain.UserFilter) ([]domain.User, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.User), args.Int(1), args.Error(2)
}

// --- Mock Refresh Token Repository ---

type mockRefreshTokenRepository struct {
	mock.Mock
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *mockRefreshTokenRepository) Find(ctx context.Context, userID, tokenHash string) (*domain.RefreshToken, error) {
	args := m.Called(ctx, userID, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefreshToken), args.Error(1)
}

func (m *mockRefreshTokenRepository) Delete(ctx context.Context, userID, tokenHash string) error {
	args := m.Called(ctx, userID, tokenHash)
	return args.Error(0)
}

func (m *mockRefreshTokenRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRefreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// --- In-memory stores for end-to-end flows ---

type memUsers struct {
	mu   sync.Mutex
	byID map[string]domain.User
}

func newMemUsers() *memUsers {
	return &memUsers{byID: make(map[string]domain.User)}
}

func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return apperrors.Conflict(MsgEmailTaken)
		}
	}
	m.byID[u.ID] = *u
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, apperrors.NotFoundMessage("User not found")
	}
	return &u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, apperrors.NotFoundMessage("User not found")
}

func (m *memUsers) Update(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[u.ID]; !ok {
		return apperrors.NotFoundMessage("User not found")
	}
	m.byID[u.ID] = *u
	return nil
}

func (m *memUsers) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return apperrors.NotFoundMessage("User not found")
	}
	delete(m.byID, id)
	return nil
}

func (m *memUsers) List(_ context.Context, _ domain.UserFilter) ([]domain.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.User, 0, len(m.byID))
	for _, u := range m.byID {
		out = append(out, u)
	}
	return out, len(out), nil
}

type memTokens struct {
	mu      sync.Mutex
	records map[string]domain.RefreshToken
}

func newMemTokens() *memTokens {
	return &memTokens{records: make(map[string]domain.RefreshToken)}
}

func (m *memTokens) key(userID, hash string) string { return userID + "|" + hash }

func (m *memTokens) Create(_ context.Context, t *domain.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[m.key(t.UserID, t.TokenHash)] = *t
	return nil
}

func (m *memTokens) Find(_ context.Context, userID, hash string) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.records[m.key(userID, hash)]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &t, nil
}

func (m *memTokens) Delete(_ context.Context, userID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, m.key(userID, hash))
	return nil
}

func (m *memTokens) DeleteByUserID(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, t := range m.records {
		if t.UserID == userID {
			delete(m.records, k)
			n++
		}
	}
	return n, nil
}

func (m *memTokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, t := range m.records {
		if t.IsExpired(now) {
			delete(m.records, k)
			n++
		}
	}
	return n, nil
}

func (m *memTokens) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// --- Fake publisher ---

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, topic string, _ *pkgkafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.topics = append(f.topics, topic)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func (f *fakePublisher) published() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.topics...)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	testHasherOnce sync.Once
	testHasher     *password.Hasher
)

func newTestHasher() *password.Hasher {
	testHasherOnce.Do(func() {
		testHasher = password.NewHasher(password.Config{Cost: bcrypt.MinCost})
	})
	return testHasher
}

func newTestTokenService(t *testing.T) *auth.TokenService {
	t.Helper()
	ts, err := auth.NewTokenService(auth.Config{
		AccessSecret:  "test-access-secret-0123456789abcdef",
		RefreshSecret: "test-refresh-secret-0123456789abcdef",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: 7 * 24 * time.Hour,
	})
	require.NoError(t, err)
	return ts
}

func hashFor(t *testing.T, plaintext string) string {
	t.Helper()
	digest, err := newTestHasher().Hash(context.Background(), plaintext)
	require.NoError(t, err)
	return digest
}

type authFixture struct {
	svc       *AuthService
	users     *mockUserRepository
	tokens    *mockRefreshTokenRepository
	tokenSvc  *auth.TokenService
	publisher *fakePublisher
}

func newAuthFixture(t *testing.T, cfg Config) *authFixture {
	t.Helper()
	f := &authFixture{
		users:     &mockUserRepository{},
		tokens:    &mockRefreshTokenRepository{},
		tokenSvc:  newTestTokenService(t),
		publisher: &fakePublisher{},
	}
	logger := newTestLogger()
	f.svc = NewAuthService(
		f.users, f.tokens, newTestHasher(), f.tokenSvc,
		event.NewProducer(f.publisher, logger), nil, cfg, logger,
	)
	return f
}

type memFixture struct {
	auth      *AuthService
	users     *memUsers
	tokens    *memTokens
	userSvc   *UserService
	adminSvc  *AdminService
	publisher *fakePublisher
}

func newMemFixture(t *testing.T, cfg Config) *memFixture {
	t.Helper()
	f := &memFixture{
		users:     newMemUsers(),
		tokens:    newMemTokens(),
		publisher: &fakePublisher{},
	}
	logger := newTestLogger()
	producer := event.NewProducer(f.publisher, logger)
	f.auth = NewAuthService(f.users, f.tokens, newTestHasher(), newTestTokenService(t), producer, nil, cfg, logger)
	f.userSvc = NewUserService(f.users, f.tokens, producer, cfg, logger)
	f.adminSvc = NewAdminService(f.users, f.tokens, newTestHasher(), producer, cfg, logger)
	return f
}
