// Package auth issues and verifies login sessions and hashes passwords.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	Issuer   = "blogsite"
	Audience = "blogsite-web"

	revokedKeyPrefix = "blacklist:"
)

var (
	// ErrInvalidSession covers malformed, expired and wrongly signed tokens.
	ErrInvalidSession = errors.New("invalid or expired session")
	// ErrRevokedSession is returned for tokens that were logged out.
	ErrRevokedSession = errors.New("session has been revoked")
)

// Claims are the signed contents of a session token.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject of the session.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 32)
	if err != nil || id == 0 {
		return 0, ErrInvalidSession
	}
	return uint(id), nil
}

// SessionManager signs session tokens and tracks revoked ones in Redis.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	redis  *redis.Client
	now    func() time.Time
}

// NewSessionManager returns a manager signing with secret. A nil Redis client disables revocation.
func NewSessionManager(secret string, ttl time.Duration, redisClient *redis.Client) *SessionManager {
	return &SessionManager{
		secret: []byte(secret),
		ttl:    ttl,
		redis:  redisClient,
		now:    time.Now,
	}
}

// TTL returns the lifetime of issued sessions.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Issue creates a signed session token for the user.
func (m *SessionManager) Issue(userID uint, username string) (string, *Claims, error) {
	if len(m.secret) == 0 {
		return "", nil, fmt.Errorf("session secret not configured")
	}

	now := m.now()
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Parse verifies the token signature, issuer, audience, lifetime and revocation status.
func (m *SessionManager) Parse(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidSession
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}

	if m.IsRevoked(ctx, claims.ID) {
		return nil, ErrRevokedSession
	}
	return claims, nil
}

// Revoke deny-lists the session until it would have expired anyway.
func (m *SessionManager) Revoke(ctx context.Context, claims *Claims) error {
	if m.redis == nil || claims == nil || claims.ID == "" {
		return nil
	}
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		if remaining := claims.ExpiresAt.Sub(m.now()); remaining > 0 {
			ttl = remaining
		}
	}
	if err := m.redis.Set(ctx, revokedKeyPrefix+claims.ID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// IsRevoked reports whether the session id was deny-listed.
// Redis failures count as not revoked.
func (m *SessionManager) IsRevoked(ctx context.Context, jti string) bool {
	if m.redis == nil || jti == "" {
		return false
	}
	n, err := m.redis.Exists(ctx, revokedKeyPrefix+jti).Result()
	return err == nil && n > 0
}
