package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Arifulit/job-portal-server/internal/domain"
	"github.com/Arifulit/job-portal-server/internal/event"
	"github.com/Arifulit/job-portal-server/internal/password"
	"github.com/Arifulit/job-portal-server/internal/repository"
	apperrors "github.com/Arifulit/job-portal-server/pkg/errors"
)

// AdminService implements user administration.
type AdminService struct {
	users    repository.UserRepository
	tokens   repository.RefreshTokenRepository
	hasher   *password.Hasher
	producer *event.Producer
	logger   *slog.Logger
}

// NewAdminService creates a new admin service.
func NewAdminService(
	users repository.UserRepository,
	tokens repository.RefreshTokenRepository,
	hasher *password.Hasher,
	producer *event.Producer,
	cfg Config,
	logger *slog.Logger,
) *AdminService {
	return &AdminService{
		users:    boundedUsers{next: users, timeout: cfg.StoreTimeout},
		tokens:   boundedTokens{next: tokens, timeout: cfg.StoreTimeout},
		hasher:   hasher,
		producer: producer,
		logger:   logger,
	}
}

// ListUsers returns a page of users matching filter and the total count.
func (s *AdminService) ListUsers(ctx context.Context, filter domain.UserFilter) ([]domain.User, int, error) {
	if filter.Role != "" {
		filter.Role = domain.NormalizeRole(filter.Role)
		if !domain.IsValidRole(filter.Role) {
			return nil, 0, apperrors.InvalidInput("Invalid role filter")
		}
	}

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// SetActive activates or deactivates a user. Deactivation revokes the
// user's refresh tokens. Admins cannot deactivate themselves.
func (s *AdminService) SetActive(ctx context.Context, actorID, userID string, active bool) (*domain.User, error) {
	if actorID == userID && !active {
		return nil, apperrors.Forbidden("You cannot deactivate your own account")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.IsActive = active
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user status: %w", err)
	}

	if !active {
		if _, err := s.tokens.DeleteByUserID(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("revoke refresh tokens: %w", err)
		}
	}

	s.publishStatus(ctx, user, actorID)
	s.logger.InfoContext(ctx, "user status changed",
		slog.String("user_id", user.ID),
		slog.Bool("is_active", active),
		slog.String("changed_by", actorID),
	)

	return user, nil
}

// SetVerified marks a user as verified or unverified.
func (s *AdminService) SetVerified(ctx context.Context, actorID, userID string, verified bool) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.IsVerified = verified
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user verification: %w", err)
	}

	s.publishStatus(ctx, user, actorID)
	s.logger.InfoContext(ctx, "user verification changed",
		slog.String("user_id", user.ID),
		slog.Bool("is_verified", verified),
		slog.String("changed_by", actorID),
	)

	return user, nil
}

// DeleteUser removes another user's account. Admins cannot delete
// themselves through this operation.
func (s *AdminService) DeleteUser(ctx context.Context, actorID, userID string) error {
	if actorID == userID {
		return apperrors.Forbidden("You cannot delete your own account")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	return deleteUser(ctx, s.users, s.tokens, s.producer, s.logger, user, actorID)
}

// EnsureAdmin makes sure an active, verified admin with email exists,
// creating one with plaintext as its password when missing. An existing
// non-admin account with that email is never promoted: its owner chose the
// password, so the bootstrap fails with a conflict instead.
func (s *AdminService) EnsureAdmin(ctx context.Context, email, plaintext string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, apperrors.InvalidInput("Email is required")
	}

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != domain.RoleAdmin {
			s.logger.ErrorContext(ctx, "admin email belongs to a non-admin account",
				slog.String("user_id", existing.ID),
				slog.String("role", string(existing.Role)),
			)
			return nil, apperrors.Conflict("Admin email is already registered to a non-admin account")
		}
		if existing.IsActive && existing.IsVerified {
			return existing, nil
		}
		existing.IsActive = true
		existing.IsVerified = true
		if err := s.users.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("reactivate admin: %w", err)
		}
		s.logger.InfoContext(ctx, "admin account reactivated", slog.String("user_id", existing.ID))
		return existing, nil
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, fmt.Errorf("look up admin: %w", err)
	}

	if res := password.ValidateStrict(plaintext); !res.Valid {
		return nil, apperrors.InvalidInput(MsgWeakPassword).WithDetails(res.Errors)
	}
	digest, err := s.hasher.Hash(ctx, plaintext)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	admin := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: digest,
		FullName:     "Administrator",
		Role:         domain.RoleAdmin,
		IsActive:     true,
		IsVerified:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}

	s.logger.InfoContext(ctx, "admin account created", slog.String("user_id", admin.ID))
	return admin, nil
}

func (s *AdminService) publishStatus(ctx context.Context, user *domain.User, actorID string) {
	if err := s.producer.PublishStatusChanged(ctx, user, actorID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.status_changed event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
}
