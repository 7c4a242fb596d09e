package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Arifulit/job-portal-server/internal/auth"
	"github.com/Arifulit/job-portal-server/internal/domain"
	"github.com/Arifulit/job-portal-server/internal/event"
	"github.com/Arifulit/job-portal-server/internal/password"
	"github.com/Arifulit/job-portal-server/internal/repository"
	apperrors "github.com/Arifulit/job-portal-server/pkg/errors"
	"github.com/Arifulit/job-portal-server/pkg/middleware"
)

// Client-facing messages.
const (
	MsgInvalidCredentials  = "Invalid email or password"
	MsgAccountDeactivated  = "Account is deactivated"
	MsgEmailNotVerified    = "Email address is not verified"
	MsgEmailTaken          = "User with this email already exists"
	MsgInvalidRefreshToken = "Invalid refresh token"
	MsgRefreshTokenExpired = "Refresh token expired"
	MsgUserUnavailable     = "User not found or inactive"
	MsgWrongPassword       = "Current password is incorrect"
	MsgWeakPassword        = "Password does not meet requirements"
)

// dummyPassword is hashed once so logins for unknown emails still pay for
// a bcrypt comparison.
const dummyPassword = "timing-equalizer-Passw0rd!"

// Config holds auth policy settings.
type Config struct {
	// StoreTimeout bounds every store call.
	StoreTimeout time.Duration
	// RequireVerifiedLogin rejects logins from unverified users.
	RequireVerifiedLogin bool
}

// AuthService implements registration, login and the token lifecycle.
type AuthService struct {
	users       repository.UserRepository
	tokens      repository.RefreshTokenRepository
	hasher      *password.Hasher
	tokenSvc    *auth.TokenService
	producer    *event.Producer
	metrics     *Metrics
	cfg         Config
	logger      *slog.Logger
	dummyDigest string
	now         func() time.Time
}

// NewAuthService creates a new auth service. Store calls made through it are
// bounded by cfg.StoreTimeout.
func NewAuthService(
	users repository.UserRepository,
	tokens repository.RefreshTokenRepository,
	hasher *password.Hasher,
	tokenSvc *auth.TokenService,
	producer *event.Producer,
	metrics *Metrics,
	cfg Config,
	logger *slog.Logger,
) *AuthService {
	dummy, err := hasher.Hash(context.Background(), dummyPassword)
	if err != nil {
		logger.Error("failed to prepare dummy password digest", slog.String("error", err.Error()))
	}

	return &AuthService{
		users:       boundedUsers{next: users, timeout: cfg.StoreTimeout},
		tokens:      boundedTokens{next: tokens, timeout: cfg.StoreTimeout},
		hasher:      hasher,
		tokenSvc:    tokenSvc,
		producer:    producer,
		metrics:     metrics,
		cfg:         cfg,
		logger:      logger,
		dummyDigest: dummy,
		now:         time.Now,
	}
}

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Email       string
	Password    string
	FullName    string
	Role        string
	Phone       string
	CompanyName string
}

// LoginInput holds the parameters for user login.
type LoginInput struct {
	Email    string
	Password string
}

// Register creates a new account and returns it with a fresh token pair.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (_ *domain.User, _ *domain.TokenPair, err error) {
	defer func() { s.metrics.observe("register", err) }()

	email := domain.NormalizeEmail(input.Email)
	fullName := strings.TrimSpace(input.FullName)
	role := domain.NormalizeRole(input.Role)
	if role == "" {
		role = domain.DefaultRole
	}

	switch {
	case email == "":
		return nil, nil, apperrors.InvalidInput("Email is required")
	case input.Password == "":
		return nil, nil, apperrors.InvalidInput("Password is required")
	case len([]rune(fullName)) < 2:
		return nil, nil, apperrors.InvalidInput("Full name must be at least 2 characters")
	case !domain.IsRegistrableRole(role):
		return nil, nil, apperrors.InvalidInput("Role must be one of: " + strings.Join(domain.RegistrableRoles(), ", "))
	}

	if res := password.ValidateStrict(input.Password); !res.Valid {
		return nil, nil, apperrors.InvalidInput(MsgWeakPassword).WithDetails(res.Errors)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, nil, apperrors.Conflict(MsgEmailTaken)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil, fmt.Errorf("check existing user: %w", err)
	}

	digest, err := s.hasher.Hash(ctx, input.Password)
	if err != nil {
		return nil, nil, err
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: digest,
		FullName:     fullName,
		Role:         role,
		Phone:        strings.TrimSpace(input.Phone),
		CompanyName:  strings.TrimSpace(input.CompanyName),
		IsActive:     true,
		IsVerified:   false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrConflict) || errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, nil, apperrors.Conflict(MsgEmailTaken).WithCause(err)
		}
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		// Roll back the account so the email can be registered again.
		if delErr := s.users.Delete(ctx, user.ID); delErr != nil {
			s.logger.ErrorContext(ctx, "failed to roll back user after token failure",
				slog.String("user_id", user.ID),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, nil, fmt.Errorf("issue tokens: %w", err)
	}

	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("role", user.Role),
	)

	return user, tokens, nil
}

// Login authenticates a user with email and password and returns a new
// token pair. Unknown emails and wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (_ *domain.User, _ *domain.TokenPair, err error) {
	defer func() { s.metrics.observe("login", err) }()

	email := domain.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, nil, apperrors.InvalidInput("Email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.hasher.Compare(ctx, input.Password, s.dummyDigest)
			return nil, nil, apperrors.Unauthorized(MsgInvalidCredentials)
		}
		return nil, nil, fmt.Errorf("get user for login: %w", err)
	}

	if !s.hasher.Compare(ctx, input.Password, user.PasswordHash) {
		return nil, nil, apperrors.Unauthorized(MsgInvalidCredentials)
	}

	if !user.IsActive {
		return nil, nil, apperrors.Unauthorized(MsgAccountDeactivated)
	}
	if s.cfg.RequireVerifiedLogin && !user.IsVerified {
		return nil, nil, apperrors.Unauthorized(MsgEmailNotVerified)
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("issue tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
	)

	return user, tokens, nil
}

// RefreshAccessToken exchanges a stored, unexpired refresh token for a new
// access token. The refresh token itself is not rotated.
func (s *AuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (_ string, err error) {
	defer func() { s.metrics.observe("refresh", err) }()

	if refreshToken == "" {
		return "", apperrors.InvalidInput("Refresh token is required")
	}

	claims, err := s.tokenSvc.VerifyRefresh(refreshToken)
	if err != nil {
		return "", err
	}

	hash := repository.HashToken(refreshToken)
	stored, err := s.tokens.Find(ctx, claims.UserID, hash)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", apperrors.Unauthorized(MsgInvalidRefreshToken)
		}
		return "", fmt.Errorf("find refresh token: %w", err)
	}

	if stored.IsExpired(s.now()) {
		if err := s.tokens.Delete(ctx, claims.UserID, hash); err != nil {
			s.logger.ErrorContext(ctx, "failed to delete expired refresh token",
				slog.String("user_id", claims.UserID),
				slog.String("error", err.Error()),
			)
		}
		return "", apperrors.Unauthorized(MsgRefreshTokenExpired)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", apperrors.Unauthorized(MsgUserUnavailable)
		}
		return "", fmt.Errorf("get user for token refresh: %w", err)
	}
	if !user.IsActive {
		return "", apperrors.Unauthorized(MsgUserUnavailable)
	}

	access, err := s.tokenSvc.IssueAccess(payloadFor(user))
	if err != nil {
		return "", fmt.Errorf("issue access token: %w", err)
	}

	s.logger.InfoContext(ctx, "access token refreshed",
		slog.String("user_id", user.ID),
	)

	return access, nil
}

// Logout deletes the refresh token record. Logging out twice is not an error.
func (s *AuthService) Logout(ctx context.Context, userID, refreshToken string) (err error) {
	defer func() { s.metrics.observe("logout", err) }()

	if refreshToken == "" {
		return apperrors.InvalidInput("Refresh token is required")
	}

	if err := s.tokens.Delete(ctx, userID, repository.HashToken(refreshToken)); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged out",
		slog.String("user_id", userID),
	)

	return nil
}

// ChangePassword verifies the current password, stores the new one and
// revokes every refresh token of the user.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) (err error) {
	defer func() { s.metrics.observe("change_password", err) }()

	if oldPassword == "" {
		return apperrors.InvalidInput("Old password is required")
	}
	if res := password.ValidateStrict(newPassword); !res.Valid {
		return apperrors.InvalidInput(MsgWeakPassword).WithDetails(res.Errors)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if !s.hasher.Compare(ctx, oldPassword, user.PasswordHash) {
		return apperrors.Unauthorized(MsgWrongPassword)
	}

	digest, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return err
	}

	user.PasswordHash = digest
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update user password: %w", err)
	}

	revoked, err := s.tokens.DeleteByUserID(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}

	if err := s.producer.PublishPasswordChanged(ctx, user.ID, revoked); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.password_changed event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password changed",
		slog.String("user_id", user.ID),
		slog.Int64("revoked_tokens", revoked),
	)

	return nil
}

// GetProfile retrieves a user by their ID.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// Authenticate verifies an access token and loads the principal it names.
// Missing and deactivated users are rejected so deactivation takes effect
// before the token expires.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*middleware.Claims, error) {
	claims, err := s.tokenSvc.VerifyAccess(accessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized(MsgUserUnavailable)
		}
		return nil, fmt.Errorf("load principal: %w", err)
	}
	if !user.IsActive {
		return nil, apperrors.Unauthorized(MsgUserUnavailable)
	}

	return &middleware.Claims{UserID: user.ID, Email: user.Email, Role: user.Role}, nil
}

// PurgeExpiredTokens deletes refresh token records that have expired.
func (s *AuthService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	n, err := s.tokens.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge expired refresh tokens: %w", err)
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "purged expired refresh tokens", slog.Int64("count", n))
	}
	return n, nil
}

// issueTokens signs a token pair for user and stores the refresh record.
func (s *AuthService) issueTokens(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	pair, expiresAt, err := s.tokenSvc.IssuePair(payloadFor(user))
	if err != nil {
		return nil, err
	}

	record := &domain.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: repository.HashToken(pair.RefreshToken),
		ExpiresAt: expiresAt,
		CreatedAt: s.now().UTC(),
	}
	if err := s.tokens.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return pair, nil
}

func payloadFor(u *domain.User) auth.Payload {
	return auth.Payload{UserID: u.ID, Email: u.Email, Role: u.Role}
}
