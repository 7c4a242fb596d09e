package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Arifulit/job-portal-server/internal/domain"
	apperrors "github.com/Arifulit/job-portal-server/pkg/errors"
)

const (
	audienceAccess  = "access"
	audienceRefresh = "refresh"

	defaultIssuer = "job-portal-server"
)

// InvalidTokenMessage is the only verification failure text clients see.
const InvalidTokenMessage = "Invalid or expired token"

// Payload identifies the principal a token is issued for.
type Payload struct {
	UserID string
	Email  string
	Role   string
}

// Claims represents the JWT claims carried by access and refresh tokens.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Config holds token signing settings.
type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

// TokenService issues and verifies signed access and refresh tokens. Access
// and refresh tokens use separate secrets and audiences.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	issuer        string
	now           func() time.Time
}

// NewTokenService creates a TokenService. Both secrets and both expiries are
// required.
func NewTokenService(cfg Config) (*TokenService, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("token service: access and refresh secrets are required")
	}
	if cfg.AccessExpiry <= 0 || cfg.RefreshExpiry <= 0 {
		return nil, errors.New("token service: expiries must be positive")
	}
	if cfg.Issuer == "" {
		cfg.Issuer = defaultIssuer
	}

	return &TokenService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessExpiry:  cfg.AccessExpiry,
		refreshExpiry: cfg.RefreshExpiry,
		issuer:        cfg.Issuer,
		now:           time.Now,
	}, nil
}

// RefreshExpiry returns the lifetime of issued refresh tokens.
func (s *TokenService) RefreshExpiry() time.Duration { return s.refreshExpiry }

// IssueAccess creates a signed access token for p.
func (s *TokenService) IssueAccess(p Payload) (string, error) {
	token, _, err := s.sign(p, audienceAccess, s.accessSecret, s.accessExpiry)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return token, nil
}

// IssueRefresh creates a signed refresh token for p and returns its expiry.
func (s *TokenService) IssueRefresh(p Payload) (string, time.Time, error) {
	token, exp, err := s.sign(p, audienceRefresh, s.refreshSecret, s.refreshExpiry)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return token, exp, nil
}

// IssuePair creates an access and refresh token for p. The returned time is
// the refresh token's expiry.
func (s *TokenService) IssuePair(p Payload) (*domain.TokenPair, time.Time, error) {
	access, err := s.IssueAccess(p)
	if err != nil {
		return nil, time.Time{}, err
	}
	refresh, exp, err := s.IssueRefresh(p)
	if err != nil {
		return nil, time.Time{}, err
	}
	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, exp, nil
}

// VerifyAccess validates an access token and returns its claims.
func (s *TokenService) VerifyAccess(token string) (*Claims, error) {
	return s.verify(token, audienceAccess, s.accessSecret)
}

// VerifyRefresh validates a refresh token and returns its claims.
func (s *TokenService) VerifyRefresh(token string) (*Claims, error) {
	return s.verify(token, audienceRefresh, s.refreshSecret)
}

func (s *TokenService) sign(p Payload, audience string, secret []byte, ttl time.Duration) (string, time.Time, error) {
	now := s.now().UTC()
	exp := now.Add(ttl)
	claims := &Claims{
		UserID: p.UserID,
		Email:  p.Email,
		Role:   p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   p.UserID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	// Expiry is stored at the token's one-second resolution.
	return signed, claims.ExpiresAt.Time, nil
}

func (s *TokenService) verify(tokenString, audience string, secret []byte) (*Claims, error) {
	if tokenString == "" {
		return nil, invalidToken(KindMalformed, errors.New("empty token"))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, invalidToken(classify(err), err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, invalidToken(KindMalformed, errors.New("missing principal claims"))
	}

	return claims, nil
}

func invalidToken(kind TokenErrorKind, err error) error {
	return apperrors.Unauthorized(InvalidTokenMessage).WithCause(&TokenError{Kind: kind, Err: err})
}

func classify(err error) TokenErrorKind {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return KindExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return KindBadSignature
	default:
		return KindMalformed
	}
}
