package services

import (
	"context"
	"fmt"

	"rancho-chat/internal/domain/account"
	"rancho-chat/internal/repository"
	"rancho-chat/pkg/logger"
)

// Hasher produces and verifies password digests.
type Hasher interface {
	Hash(plain string) (string, error)
	Compare(plain, hash string) (bool, error)
}

// Encrypter turns an account id into an access token and back.
type Encrypter interface {
	Encrypt(value string) (string, error)
	Decrypt(token string) (string, error)
}

type AuthService struct {
	accounts  repository.AccountRepository
	hasher    Hasher
	encrypter Encrypter
}

func NewAuthService(accounts repository.AccountRepository, hasher Hasher, encrypter Encrypter) *AuthService {
	return &AuthService{accounts: accounts, hasher: hasher, encrypter: encrypter}
}

type AuthenticationResult struct {
	Name        string
	Email       string
	AccessToken string
}

// Register returns false when the email is already in use.
func (s *AuthService) Register(ctx context.Context, in account.Registration) (bool, error) {
	existing, err := s.accounts.GetAccountByEmail(ctx, in.Email)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}

	return s.accounts.AddNewAccount(ctx, account.Account{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
	})
}

// Auth returns nil when the email is unknown or the password does not match.
func (s *AuthService) Auth(ctx context.Context, creds account.Credentials) (*AuthenticationResult, error) {
	a, err := s.accounts.GetAccountByEmail(ctx, creds.Email)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, nil
	}

	ok, err := s.hasher.Compare(creds.Password, a.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("compare password: %w", err)
	}
	if !ok {
		return nil, nil
	}

	token, err := s.encrypter.Encrypt(a.ID)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	if err := s.accounts.UpdateAccessToken(ctx, a.ID, token); err != nil {
		return nil, err
	}

	return &AuthenticationResult{Name: a.Name, Email: a.Email, AccessToken: token}, nil
}

// Authenticate resolves a bearer token to an account id. The token must
// carry a valid signature and still be the one stored for its account. An
// empty id with a nil error means access is denied.
func (s *AuthService) Authenticate(ctx context.Context, token, role string) (string, error) {
	subject, err := s.encrypter.Decrypt(token)
	if err != nil {
		return "", nil
	}
	a, err := s.accounts.GetAccountByToken(ctx, token, role)
	if err != nil {
		return "", err
	}
	if a == nil || a.ID != subject {
		return "", nil
	}
	return a.ID, nil
}

func WithAccountContext(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, logger.AccountIDKey, accountID)
}

func AccountIDFromContext(ctx context.Context) (string, bool) {
	accountID, ok := ctx.Value(logger.AccountIDKey).(string)
	return accountID, ok && accountID != ""
}
