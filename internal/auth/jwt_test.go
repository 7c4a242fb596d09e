package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Arifulit/job-portal-server/pkg/errors"
)

const (
	testAccessSecret  = "access-secret-for-tests-0123456789abcdef"
	testRefreshSecret = "refresh-secret-for-tests-0123456789abcdef"
)

func newTestService(t *testing.T) *TokenService {
	t.Helper()
	s, err := NewTokenService(Config{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: 7 * 24 * time.Hour,
	})
	require.NoError(t, err)
	return s
}

var testPayload = Payload{UserID: "user-1", Email: "jane@example.com", Role: "employer"}

func TestNewTokenService_Validation(t *testing.T) {
	_, err := NewTokenService(Config{RefreshSecret: "r", AccessExpiry: time.Minute, RefreshExpiry: time.Hour})
	assert.Error(t, err)

	_, err = NewTokenService(Config{AccessSecret: "a", RefreshSecret: "r", RefreshExpiry: time.Hour})
	assert.Error(t, err)
}

func TestIssueAccess_VerifyAccess_RoundTrip(t *testing.T) {
	s := newTestService(t)

	token, err := s.IssueAccess(testPayload)
	require.NoError(t, err)

	claims, err := s.VerifyAccess(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "jane@example.com", claims.Email)
	assert.Equal(t, "employer", claims.Role)
	assert.Equal(t, defaultIssuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestIssueRefresh_ReturnsEmbeddedExpiry(t *testing.T) {
	s := newTestService(t)

	token, exp, err := s.IssueRefresh(testPayload)
	require.NoError(t, err)

	claims, err := s.VerifyRefresh(token)
	require.NoError(t, err)
	assert.True(t, claims.ExpiresAt.Time.Equal(exp))
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), exp, 5*time.Second)
}

func TestIssuePair_TokensAreDistinct(t *testing.T) {
	s := newTestService(t)

	a, _, err := s.IssuePair(testPayload)
	require.NoError(t, err)
	b, _, err := s.IssuePair(testPayload)
	require.NoError(t, err)

	assert.NotEqual(t, a.AccessToken, a.RefreshToken)
	assert.NotEqual(t, a.AccessToken, b.AccessToken)
	assert.NotEqual(t, a.RefreshToken, b.RefreshToken)
}

func TestVerify_DomainsAreSeparate(t *testing.T) {
	s := newTestService(t)
	pair, _, err := s.IssuePair(testPayload)
	require.NoError(t, err)

	_, err = s.VerifyRefresh(pair.AccessToken)
	require.Error(t, err)
	assert.Equal(t, KindBadSignature, KindOf(err))

	_, err = s.VerifyAccess(pair.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, KindBadSignature, KindOf(err))
}

func TestVerify_SameSecretDifferentAudienceRejected(t *testing.T) {
	s, err := NewTokenService(Config{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testAccessSecret,
		AccessExpiry:  time.Minute,
		RefreshExpiry: time.Hour,
	})
	require.NoError(t, err)

	refresh, _, err := s.IssueRefresh(testPayload)
	require.NoError(t, err)

	_, err = s.VerifyAccess(refresh)
	require.Error(t, err)
	assert.Equal(t, KindMalformed, KindOf(err))
}

func TestVerify_Expired(t *testing.T) {
	s := newTestService(t)
	s.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := s.IssueAccess(testPayload)
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.VerifyAccess(token)
	require.Error(t, err)
	assert.Equal(t, KindExpired, KindOf(err))
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, InvalidTokenMessage, appErr.Message)
}

func TestVerify_Tampered(t *testing.T) {
	s := newTestService(t)
	token, err := s.IssueAccess(testPayload)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = s.VerifyAccess(tampered)
	require.Error(t, err)
	assert.Equal(t, KindBadSignature, KindOf(err))
}

func TestVerify_Malformed(t *testing.T) {
	s := newTestService(t)

	for _, tok := range []string{"", "garbage", "a.b.c"} {
		_, err := s.VerifyAccess(tok)
		require.Error(t, err, tok)
		assert.Equal(t, KindMalformed, KindOf(err), tok)
	}
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	s := newTestService(t)

	claims := &Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    defaultIssuer,
			Audience:  jwt.ClaimStrings{audienceAccess},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testAccessSecret))
	require.NoError(t, err)

	_, err = s.VerifyAccess(token)
	require.Error(t, err)
	assert.Equal(t, KindBadSignature, KindOf(err))
}

func TestVerify_MissingExpiryRejected(t *testing.T) {
	s := newTestService(t)

	claims := &Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   defaultIssuer,
			Audience: jwt.ClaimStrings{audienceAccess},
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testAccessSecret))
	require.NoError(t, err)

	_, err = s.VerifyAccess(token)
	require.Error(t, err)
}

func TestKindOf_NoTokenError(t *testing.T) {
	assert.Equal(t, TokenErrorKind(""), KindOf(apperrors.Unauthorized("x")))
}
