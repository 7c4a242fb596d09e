package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Arifulit/job-portal-server/internal/auth"
	"github.com/Arifulit/job-portal-server/internal/domain"
	"github.com/Arifulit/job-portal-server/internal/event"
	"github.com/Arifulit/job-portal-server/internal/password"
	"github.com/Arifulit/job-portal-server/internal/service"
	apperrors "github.com/Arifulit/job-portal-server/pkg/errors"
	"github.com/Arifulit/job-portal-server/pkg/health"
	"github.com/Arifulit/job-portal-server/pkg/middleware"
)

// ============================================================================
// In-memory stores
// ============================================================================

type memUsers struct {
	mu   sync.Mutex
	byID map[string]domain.User
}

func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return apperrors.Conflict("User with this email already exists")
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

func (m *memUsers) List(_ context.Context, f domain.UserFilter) ([]domain.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, u := range m.byID {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.IsActive != nil && u.IsActive != *f.IsActive {
			continue
		}
		out = append(out, u)
	}
	return out, len(out), nil
}

type memTokens struct {
	mu      sync.Mutex
	records map[string]domain.RefreshToken
}

func (m *memTokens) Create(_ context.Context, t *domain.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[t.UserID+"|"+t.TokenHash] = *t
	return nil
}

func (m *memTokens) Find(_ context.Context, userID, hash string) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.records[userID+"|"+hash]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &t, nil
}

func (m *memTokens) Delete(_ context.Context, userID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, userID+"|"+hash)
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

// ============================================================================
// Server fixture
// ============================================================================

const (
	testPassword  = "Str0ng!Pass"
	adminEmail    = "admin@example.com"
	adminPassword = "Adm1n!Secret"
)

var (
	hasherOnce sync.Once
	hasher     *password.Hasher
)

func testHasher() *password.Hasher {
	hasherOnce.Do(func() {
		hasher = password.NewHasher(password.Config{Cost: bcrypt.MinCost})
	})
	return hasher
}

type testServer struct {
	handler http.Handler
	users   *memUsers
	tokens  *memTokens
	admin   *service.AdminService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokenSvc, err := auth.NewTokenService(auth.Config{
		AccessSecret:  "handler-access-secret-0123456789abcdef",
		RefreshSecret: "handler-refresh-secret-0123456789abcdef",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: 24 * time.Hour,
	})
	require.NoError(t, err)

	ts := &testServer{
		users:  &memUsers{byID: make(map[string]domain.User)},
		tokens: &memTokens{records: make(map[string]domain.RefreshToken)},
	}

	producer := event.NewProducer(nil, logger)
	cfg := service.Config{StoreTimeout: time.Second}
	authSvc := service.NewAuthService(ts.users, ts.tokens, testHasher(), tokenSvc, producer, nil, cfg, logger)
	ts.admin = service.NewAdminService(ts.users, ts.tokens, testHasher(), producer, cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ts.handler = NewRouter(ctx, RouterConfig{
		ServiceName: "job-portal-test",
		Auth:        authSvc,
		Users:       service.NewUserService(ts.users, ts.tokens, producer, cfg, logger),
		Admin:       ts.admin,
		Health:      health.NewHandler(health.WithService("job-portal-test")),
		Gatherer:    prometheus.NewRegistry(),
		CORS:        middleware.DefaultCORSConfig(),
		Logger:      logger,
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  json.RawMessage `json:"errors"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

type authData struct {
	User   map[string]any   `json:"user"`
	Tokens domain.TokenPair `json:"tokens"`
}

func (ts *testServer) register(t *testing.T, email, role string) authData {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":     email,
		"password":  testPassword,
		"full_name": "Test User",
		"role":      role,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var data authData
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &data))
	return data
}

func (ts *testServer) login(t *testing.T, email, pw string) authData {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": pw,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var data authData
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &data))
	return data
}

func (ts *testServer) loginAdmin(t *testing.T) authData {
	t.Helper()
	_, err := ts.admin.EnsureAdmin(context.Background(), adminEmail, adminPassword)
	require.NoError(t, err)
	return ts.login(t, adminEmail, adminPassword)
}
