package auth

import (
	"crypto/rand"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// SessionCookie holds the signed admin session token.
	SessionCookie = "admin_session"
	issuer        = "certificate-portal"
	adminRole     = "admin"
)

var (
	ErrInvalidSession = errors.New("invalid session")
	ErrSessionExpired = errors.New("session has expired")
)

// Claims are carried by the admin session token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// SessionManager signs and validates HS256 session tokens.
type SessionManager struct {
	signingKey []byte
	ttl        time.Duration
	now        func() time.Time
}

// NewSessionManager creates a manager. An empty secret gets a random key, so
// sessions do not survive a restart.
func NewSessionManager(secret string, ttl time.Duration) (*SessionManager, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionManager{signingKey: key, ttl: ttl, now: time.Now}, nil
}

func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Issue returns a signed token for the admin identified by email.
func (m *SessionManager) Issue(email string) (string, error) {
	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: adminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(m.signingKey)
}

// Validate parses token and checks its signature, expiry, issuer and role.
func (m *SessionManager) Validate(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return m.signingKey, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, ErrInvalidSession
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Role != adminRole {
		return nil, ErrInvalidSession
	}
	return claims, nil
}
