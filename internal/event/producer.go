package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Arifulit/job-portal-server/internal/domain"
	pkgkafka "github.com/Arifulit/job-portal-server/pkg/kafka"
	"github.com/Arifulit/job-portal-server/pkg/logger"
)

// Aggregate type constant.
const AggregateTypeUser = "user"

// SourceAuthService identifies events originating from this service.
const SourceAuthService = "job-portal-auth"

// Kafka topics for user lifecycle events.
var (
	TopicUserRegistered      = pkgkafka.Topic(AggregateTypeUser, "registered")
	TopicUserPasswordChanged = pkgkafka.Topic(AggregateTypeUser, "password_changed")
	TopicUserStatusChanged   = pkgkafka.Topic(AggregateTypeUser, "status_changed")
	TopicUserDeleted         = pkgkafka.Topic(AggregateTypeUser, "deleted")
)

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// UserPasswordChangedData is the payload for a user.password_changed event.
type UserPasswordChangedData struct {
	UserID        string `json:"user_id"`
	RevokedTokens int64  `json:"revoked_tokens"`
}

// UserStatusChangedData is the payload for a user.status_changed event.
type UserStatusChangedData struct {
	UserID     string `json:"user_id"`
	IsActive   bool   `json:"is_active"`
	IsVerified bool   `json:"is_verified"`
	ChangedBy  string `json:"changed_by"`
}

// UserDeletedData is the payload for a user.deleted event.
type UserDeletedData struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	DeletedBy string `json:"deleted_by"`
}

// Producer publishes user lifecycle events.
type Producer struct {
	publisher pkgkafka.Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer. A nil publisher disables
// publishing.
func NewProducer(publisher pkgkafka.Publisher, logger *slog.Logger) *Producer {
	if publisher == nil {
		publisher = pkgkafka.NoopPublisher{}
	}
	return &Producer{publisher: publisher, logger: logger}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	return p.publish(ctx, TopicUserRegistered, user.ID, user.ID, UserRegisteredData{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     user.Role,
	})
}

// PublishPasswordChanged publishes a user.password_changed event.
func (p *Producer) PublishPasswordChanged(ctx context.Context, userID string, revoked int64) error {
	return p.publish(ctx, TopicUserPasswordChanged, userID, userID, UserPasswordChangedData{
		UserID:        userID,
		RevokedTokens: revoked,
	})
}

// PublishStatusChanged publishes a user.status_changed event.
func (p *Producer) PublishStatusChanged(ctx context.Context, user *domain.User, changedBy string) error {
	return p.publish(ctx, TopicUserStatusChanged, user.ID, changedBy, UserStatusChangedData{
		UserID:     user.ID,
		IsActive:   user.IsActive,
		IsVerified: user.IsVerified,
		ChangedBy:  changedBy,
	})
}

// PublishUserDeleted publishes a user.deleted event.
func (p *Producer) PublishUserDeleted(ctx context.Context, user *domain.User, deletedBy string) error {
	return p.publish(ctx, TopicUserDeleted, user.ID, deletedBy, UserDeletedData{
		UserID:    user.ID,
		Email:     user.Email,
		DeletedBy: deletedBy,
	})
}

// publish wraps data in an envelope keyed by userID. actorID is the user
// who caused the change and travels as event metadata.
func (p *Producer) publish(ctx context.Context, topic, userID, actorID string, data any) error {
	event, err := pkgkafka.NewEvent(topic, userID, AggregateTypeUser, SourceAuthService, data,
		pkgkafka.WithCorrelationID(logger.CorrelationIDFromContext(ctx)),
		pkgkafka.WithActor(actorID),
	)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.publisher.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("user_id", userID),
		slog.String("actor_id", actorID),
	)
	return nil
}
