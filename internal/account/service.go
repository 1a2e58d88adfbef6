package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aischool/aischool-backend/internal/auth"
	"github.com/aischool/aischool-backend/internal/logging"
	"github.com/aischool/aischool-backend/internal/password"
)

const minPasswordLength = 6

// Hasher hashes and checks passwords.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// Tokens issues and verifies session tokens.
type Tokens interface {
	Issue(accountID, email string) (string, time.Time, error)
	Verify(token string) (auth.Identity, error)
}

// Service manages the guardian account lifecycle.
type Service struct {
	repo   Repository
	hasher Hasher
	tokens Tokens
	logger *slog.Logger
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewService creates an account service.
func NewService(repo Repository, hasher Hasher, tokens Tokens, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{repo: repo, hasher: hasher, tokens: tokens, logger: logger, now: time.Now}
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Register creates an active account.
//
// Uniqueness is checked by querying the email's partition before the insert.
// The store offers no cross-row constraint, so two concurrent registrations
// for one email can both pass the check and both be stored.
func (s *Service) Register(ctx context.Context, reg Registration) (Account, error) {
	email := NormalizeEmail(reg.Email)
	fullName := strings.TrimSpace(reg.FullName)
	switch {
	case email == "":
		return Account{}, invalid("email", "email is required")
	case reg.Password == "":
		return Account{}, invalid("password", "password is required")
	case fullName == "":
		return Account{}, invalid("full_name", "full_name is required")
	}
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return Account{}, invalid("email", "invalid email format")
	}
	if len(reg.Password) < minPasswordLength {
		return Account{}, invalid("password", "password must be at least 6 characters long")
	}
	if len(reg.Password) > password.MaxLength {
		return Account{}, invalid("password", "password must be at most 72 bytes long")
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return Account{}, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return Account{}, fmt.Errorf("lookup account: %w", err)
	}

	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return Account{}, fmt.Errorf("hash password: %w", err)
	}

	account := Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		PhoneNumber:  strings.TrimSpace(reg.PhoneNumber),
		CreatedAt:    s.now().UTC(),
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return Account{}, fmt.Errorf("create account: %w", err)
	}
	return account, nil
}

// IssueToken signs a session token for account.
func (s *Service) IssueToken(account Account) (Session, error) {
	token, exp, err := s.tokens.Issue(account.ID, account.Email)
	if err != nil {
		return Session{}, err
	}
	return Session{Account: account, Token: token, ExpiresAt: exp}, nil
}

// Login verifies credentials and returns a session. Unknown emails and wrong
// passwords both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, creds Credentials) (Session, error) {
	email := NormalizeEmail(creds.Email)
	if email == "" || creds.Password == "" {
		return Session{}, invalid("email", "email and password are required")
	}

	account, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		// Spend the same hashing work as a real mismatch.
		s.hasher.Verify(creds.Password, s.dummyDigest())
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("lookup account: %w", err)
	}
	if !s.hasher.Verify(creds.Password, account.PasswordHash) {
		return Session{}, ErrInvalidCredentials
	}
	if !account.IsActive {
		return Session{}, ErrAccountDeactivated
	}

	now := s.now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, account, now); err != nil {
		s.logger.Warn("update last login failed", slog.String("account_id", account.ID), slog.Any("error", err))
	} else {
		account.LastLogin = &now
	}

	return s.IssueToken(account)
}

// GetByToken verifies token and re-reads the account it names.
func (s *Service) GetByToken(ctx context.Context, token string) (Account, error) {
	id, err := s.tokens.Verify(token)
	if err != nil {
		return Account{}, err
	}
	account, err := s.repo.Get(ctx, id.Email, id.AccountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Account{}, ErrNotFound
		}
		return Account{}, fmt.Errorf("load account: %w", err)
	}
	if !account.IsActive {
		return Account{}, ErrAccountDeactivated
	}
	return account, nil
}

// Deactivate blocks future logins for the account registered under email.
func (s *Service) Deactivate(ctx context.Context, email string) (Account, error) {
	return s.setActive(ctx, email, false)
}

// Activate re-enables logins for the account registered under email.
func (s *Service) Activate(ctx context.Context, email string) (Account, error) {
	return s.setActive(ctx, email, true)
}

func (s *Service) setActive(ctx context.Context, email string, active bool) (Account, error) {
	account, err := s.repo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return Account{}, err
	}
	if account.IsActive == active {
		return account, nil
	}
	if err := s.repo.SetActive(ctx, account, active); err != nil {
		return Account{}, err
	}
	account.IsActive = active
	s.logger.Info("account state changed", slog.String("account_id", account.ID), slog.String("state", string(account.State())))
	return account, nil
}

func (s *Service) dummyDigest() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("not-a-real-password")
		if err != nil {
			s.logger.Warn("dummy digest unavailable; unknown-email logins skip hashing", slog.Any("error", err))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
