package auth_test

import (
	"testing"
	"time"

	"github.com/bizcore/backend/internal/infrastructure/auth"
	"github.com/bizcore/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars-long",
		Issuer:                "test",
		AccessTokenExpiration: 15 * time.Minute,
	})
}

func TestJWTService_RoundTrip(t *testing.T) {
	svc := newService()
	user, tenant := uuid.New(), uuid.New()

	token, err := svc.GenerateToken(auth.TokenInput{
		UserID:                 user,
		TenantID:               &tenant,
		Role:                   "ACCOUNTANT",
		ImpersonationSessionID: "sess-42",
	})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	got, err := claims.UserUUID()
	require.NoError(t, err)
	assert.Equal(t, user, got)
	assert.Equal(t, tenant.String(), claims.TenantID)
	require.NotNil(t, claims.ImpersonationSession())
	assert.Equal(t, "sess-42", *claims.ImpersonationSession())
	assert.Greater(t, claims.RemainingTTL(), 14*time.Minute)
}

func TestJWTService_NoTenantClaim(t *testing.T) {
	svc := newService()

	token, err := svc.GenerateToken(auth.TokenInput{UserID: uuid.New()})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Empty(t, claims.TenantID)
	assert.Nil(t, claims.ImpersonationSession())
}

func TestJWTService_SubjectFallback(t *testing.T) {
	user := uuid.New()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		TenantID: "not-a-uuid",
	})
	signed, err := token.SignedString([]byte("test-secret-key-at-least-32-chars-long"))
	require.NoError(t, err)

	claims, err := newService().ValidateToken(signed)

	require.NoError(t, err)
	got, _ := claims.UserUUID()
	assert.Equal(t, user, got)
	assert.Equal(t, "not-a-uuid", claims.TenantID, "tenant claim is validated by the resolver")
}

func TestJWTService_Rejections(t *testing.T) {
	svc := newService()

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not.a.token")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := auth.NewJWTService(config.JWTConfig{Secret: "another-secret-key-at-least-32-chars", AccessTokenExpiration: time.Minute})
		token, err := other.GenerateToken(auth.TokenInput{UserID: uuid.New()})
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		expired := auth.NewJWTService(config.JWTConfig{Secret: "test-secret-key-at-least-32-chars-long", AccessTokenExpiration: -time.Minute})
		token, err := expired.GenerateToken(auth.TokenInput{UserID: uuid.New()})
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, auth.ErrExpiredToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, &auth.Claims{UserID: uuid.NewString()})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.ValidateToken(signed)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("missing user", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{TenantID: uuid.NewString()})
		signed, err := token.SignedString([]byte("test-secret-key-at-least-32-chars-long"))
		require.NoError(t, err)
		_, err = svc.ValidateToken(signed)
		assert.ErrorIs(t, err, auth.ErrMissingUserID)
	})
}
