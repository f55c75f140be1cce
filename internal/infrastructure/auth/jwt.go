// Package auth verifies the signed credential that carries the caller's
// identity and tenant claim.
package auth

import (
	"errors"
	"time"

	"github.com/bizcore/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingUserID    = errors.New("missing user id in claims")
	ErrTokenRevoked     = errors.New("token has been revoked")
)

// ServiceRole is the role claim of credentials issued to internal services,
// such as the billing and referral collaborators, rather than to people
const ServiceRole = "SERVICE"

// Claims is the credential payload. TenantID is kept verbatim: the tenant
// resolver decides whether it is usable.
type Claims struct {
	jwt.RegisteredClaims
	UserID                 string `json:"user_id,omitempty"`
	TenantID               string `json:"tenant_id,omitempty"`
	Role                   string `json:"role,omitempty"`
	ImpersonationSessionID string `json:"impersonation_session_id,omitempty"`
}

// UserUUID returns user_id, falling back to sub
func (c *Claims) UserUUID() (uuid.UUID, error) {
	raw := c.UserID
	if raw == "" {
		raw = c.Subject
	}
	return uuid.Parse(raw)
}

// ImpersonationSession returns the delegated-session marker, if any
func (c *Claims) ImpersonationSession() *string {
	if c.ImpersonationSessionID == "" {
		return nil
	}
	s := c.ImpersonationSessionID
	return &s
}

// RemainingTTL returns the time until the token expires
func (c *Claims) RemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return max(time.Until(c.ExpiresAt.Time), 0)
}

// JWTService validates (and, for local tooling, mints) HS256 credentials
type JWTService struct {
	secret     []byte
	issuer     string
	expiration time.Duration
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		expiration: cfg.AccessTokenExpiration,
	}
}

// TokenInput describes a credential to mint
type TokenInput struct {
	UserID                 uuid.UUID
	TenantID               *uuid.UUID
	Role                   string
	ImpersonationSessionID string
}

// GenerateToken signs a credential. Production credentials come from the
// identity provider; this is used by tests and the dev token command.
func (s *JWTService) GenerateToken(in TokenInput) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   in.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID:                 in.UserID.String(),
		Role:                   in.Role,
		ImpersonationSessionID: in.ImpersonationSessionID,
	}
	if in.TenantID != nil {
		claims.TenantID = in.TenantID.String()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ValidateToken verifies signature and time claims and returns the payload
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" && claims.Subject == "" {
		return nil, ErrMissingUserID
	}
	if _, err := claims.UserUUID(); err != nil {
		return nil, ErrMissingUserID
	}
	return claims, nil
}
