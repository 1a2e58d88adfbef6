package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the lifetime of a session token when none is configured.
const DefaultTTL = 24 * time.Hour

// ErrAuthFailure covers every rejected token: bad signature, malformed, or expired.
var ErrAuthFailure = errors.New("invalid or expired token")

// Identity is what a verified token proves about its bearer.
type Identity struct {
	AccountID string
	Email     string
}

// Service issues and verifies stateless session tokens signed with a shared
// secret. It holds no mutable state and is safe for concurrent use.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService builds a token service. A non-positive ttl selects DefaultTTL.
func NewService(secret string, ttl time.Duration, opts ...Option) (*Service, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Service{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the default token lifetime.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for the account using the service's default lifetime.
func (s *Service) Issue(accountID, email string) (string, time.Time, error) {
	return s.IssueWithTTL(accountID, email, s.ttl)
}

// IssueWithTTL signs a token for the account valid for ttl from now.
func (s *Service) IssueWithTTL(accountID, email string, ttl time.Duration) (string, time.Time, error) {
	if accountID == "" {
		return "", time.Time{}, errors.New("account id is required")
	}
	// Token timestamps have whole-second resolution.
	now := s.now().UTC().Truncate(time.Second)
	exp := now.Add(ttl)
	signed, err := SignHS256(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email: email,
	}, s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify checks the token and returns the identity it carries.
func (s *Service) Verify(token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrAuthFailure
	}
	claims, err := ParseAndVerifyHS256(token, s.secret, s.now)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrAuthFailure, err)
	}
	return Identity{AccountID: claims.Subject, Email: claims.Email}, nil
}
