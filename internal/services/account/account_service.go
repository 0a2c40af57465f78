package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials covers both unknown accounts and wrong passwords so
// login failures never reveal whether the email is registered.
var ErrInvalidCredentials = errors.New("invalid credentials")

type AccountService struct {
	repo *AccountRepo
}

func NewAccountService(repo *AccountRepo) *AccountService {
	return &AccountService{repo: repo}
}

// Register creates an account with a bcrypt password hash. The plaintext
// password is never stored.
func (s *AccountService) Register(ctx context.Context, email, password string) (*Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	acct, err := s.repo.Create(ctx, email, string(hash))
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to register account: %w", err)
	}

	return acct, nil
}

func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	acct, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	return acct, nil
}

func (s *AccountService) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.repo.GetByID(ctx, id)
}

// LinkGitHub stores (or overwrites) the account's GitHub access token.
func (s *AccountService) LinkGitHub(ctx context.Context, id uuid.UUID, token string) error {
	if err := s.repo.SetGitHubToken(ctx, id, token); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("failed to link github account: %w", err)
	}

	return nil
}
