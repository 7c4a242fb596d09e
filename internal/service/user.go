package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Arifulit/job-portal-server/internal/domain"
	"github.com/Arifulit/job-portal-server/internal/event"
	"github.com/Arifulit/job-portal-server/internal/repository"
	apperrors "github.com/Arifulit/job-portal-server/pkg/errors"
)

// UserService implements self-service profile operations.
type UserService struct {
	users    repository.UserRepository
	tokens   repository.RefreshTokenRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(
	users repository.UserRepository,
	tokens repository.RefreshTokenRepository,
	producer *event.Producer,
	cfg Config,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:    boundedUsers{next: users, timeout: cfg.StoreTimeout},
		tokens:   boundedTokens{next: tokens, timeout: cfg.StoreTimeout},
		producer: producer,
		logger:   logger,
	}
}

// GetProfile retrieves a user by their ID.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateProfile changes the user's name, phone or company name. Email and
// role cannot be changed here.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, input domain.ProfileUpdate) (*domain.User, error) {
	if input.IsEmpty() {
		return nil, apperrors.InvalidInput("No fields to update")
	}
	if input.FullName != nil && len([]rune(strings.TrimSpace(*input.FullName))) < 2 {
		return nil, apperrors.InvalidInput("Full name must be at least 2 characters")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	input.Apply(user)
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user profile: %w", err)
	}

	s.logger.InfoContext(ctx, "profile updated",
		slog.String("user_id", user.ID),
	)

	return user, nil
}

// DeleteAccount removes the user's own account and revokes its sessions.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	return deleteUser(ctx, s.users, s.tokens, s.producer, s.logger, user, userID)
}

// deleteUser revokes the user's refresh tokens, deletes the account and
// publishes user.deleted.
func deleteUser(
	ctx context.Context,
	users repository.UserRepository,
	tokens repository.RefreshTokenRepository,
	producer *event.Producer,
	logger *slog.Logger,
	user *domain.User,
	actorID string,
) error {
	if _, err := tokens.DeleteByUserID(ctx, user.ID); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	if err := users.Delete(ctx, user.ID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if err := producer.PublishUserDeleted(ctx, user, actorID); err != nil {
		logger.ErrorContext(ctx, "failed to publish user.deleted event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	logger.InfoContext(ctx, "user deleted",
		slog.String("user_id", user.ID),
		slog.String("deleted_by", actorID),
	)
	return nil
}
