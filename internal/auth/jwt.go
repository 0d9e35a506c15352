package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/haasonsaas/taskpilot/pkg/models"
)

// tokenIssuer marks tokens minted by this service. Validate rejects tokens
// from any other issuer even when the signature checks out.
const tokenIssuer = "taskpilot"

// defaultTokenTTL applies when the configured expiry is zero. Every token
// carries an expiry; there is no never-expires mode.
const defaultTokenTTL = 24 * time.Hour

// JWTService mints and verifies the HS256 bearer tokens that identify task
// owners on the HTTP surface.
type JWTService struct {
	secret []byte
	ttl    time.Duration
}

// NewJWTService builds a token service. An empty secret is a configuration
// error: Generate and Validate refuse to operate rather than falling back to
// an unauthenticated mode. A zero expiry means defaultTokenTTL; a negative
// one mints tokens that are already expired, useful in tests and never valid
// in production config.
func NewJWTService(secret string, expiry time.Duration) *JWTService {
	return &JWTService{secret: []byte(secret), ttl: expiry}
}

// ownerClaims is the token payload. Subject carries the owner id that scopes
// every task and conversation; email and name ride along for display only.
type ownerClaims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Generate mints a signed token for the given user.
func (s *JWTService) Generate(user *models.User) (string, error) {
	if s == nil || len(s.secret) == 0 {
		return "", ErrNoSecret
	}
	if user == nil || strings.TrimSpace(user.ID) == "" {
		return "", errors.New("user id required")
	}

	ttl := s.ttl
	if ttl == 0 {
		ttl = defaultTokenTTL
	}
	now := time.Now()
	claims := ownerClaims{
		Email: strings.TrimSpace(user.Email),
		Name:  strings.TrimSpace(user.Name),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Validate checks signature, expiry and issuer, and returns the owner the
// token identifies. All failure modes collapse into ErrInvalidToken so the
// HTTP surface never leaks why a token was rejected.
func (s *JWTService) Validate(token string) (*models.User, error) {
	if s == nil || len(s.secret) == 0 {
		return nil, ErrNoSecret
	}

	claims := &ownerClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return &models.User{
		ID:    claims.Subject,
		Email: strings.TrimSpace(claims.Email),
		Name:  strings.TrimSpace(claims.Name),
	}, nil
}
