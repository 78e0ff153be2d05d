package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/stockward/stockward/internal/shared"
)

// ErrEmailTaken is returned when registering with an email that already has
// an account.
var ErrEmailTaken = fmt.Errorf("email already registered: %w", shared.ErrConflict)

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	tokens *TokenManager
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenManager) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// Register opens a new account and returns it with a fresh token.
func (s *Service) Register(ctx context.Context, input RegisterInput) (Account, string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, "", fmt.Errorf("hash password: %w", err)
	}

	account, err := s.repo.Create(ctx, Account{Email: input.Email, PasswordHash: string(hash)})
	if err != nil {
		return Account{}, "", err
	}

	token, err := s.tokens.Issue(account.ID)
	if err != nil {
		return Account{}, "", err
	}
	return account, token, nil
}

// Authenticate validates email/password credentials and returns a token.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Account, string, error) {
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Account{}, "", shared.ErrInvalidCredentials
		}
		return Account{}, "", err
	}
	if !account.IsActive {
		return Account{}, "", shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return Account{}, "", shared.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(account.ID)
	if err != nil {
		return Account{}, "", err
	}
	return account, token, nil
}

// Get fetches an account by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Account, error) {
	return s.repo.FindByID(ctx, id)
}

// EmailFor resolves the notification address for an account. Satisfies the
// directory port the alert sinks depend on.
func (s *Service) EmailFor(ctx context.Context, accountID uuid.UUID) (string, error) {
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return "", err
	}
	return account.Email, nil
}
