package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"voice-808/internal/domain"
	"voice-808/internal/repository"
)

// DefaultTokenTTL is how long a session token stays valid after issuance.
const DefaultTokenTTL = 30 * 24 * time.Hour

const (
	tokenBytes  = 32
	apiKeyBytes = 32
)

// UserService covers credentials, sessions and account lifecycle.
type UserService interface {
	CreateUser(ctx context.Context, email, name, password string) (*domain.User, error)
	VerifyPassword(ctx context.Context, email, password string) (*domain.User, error)
	CreateAuthToken(ctx context.Context, userID int64) (string, error)
	GetUserByToken(ctx context.Context, token string) (*domain.User, error)
	DeleteAuthToken(ctx context.Context, token string) error
	GetUserByAPIKey(ctx context.Context, apiKey string) (*domain.User, error)
	RotateAPIKey(ctx context.Context, userID int64) (string, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// UserServiceConfig tunes hashing cost and session lifetime.
type UserServiceConfig struct {
	TokenTTL   time.Duration
	BcryptCost int
	Now        func() time.Time
}

type userService struct {
	users  repository.UserRepository
	tokens repository.AuthTokenRepository
	ttl    time.Duration
	cost   int
	now    func() time.Time
}

func NewUserService(users repository.UserRepository, tokens repository.AuthTokenRepository, cfg UserServiceConfig) UserService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &userService{
		users:  users,
		tokens: tokens,
		ttl:    cfg.TokenTTL,
		cost:   cfg.BcryptCost,
		now:    cfg.Now,
	}
}

func (s *userService) CreateUser(ctx context.Context, email, name, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)

	if email == "" {
		return nil, errors.New("email is required")
	}
	if name == "" {
		return nil, errors.New("name is required")
	}
	if password == "" {
		return nil, errors.New("password is required")
	}
	if len(password) > domain.MaxPasswordBytes {
		return nil, domain.ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	apiKey, err := randomHex(apiKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("generate api key: %w", err)
	}

	user := &domain.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		APIKey:       apiKey,
	}

	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, domain.ErrUserAlreadyExists
		}
		return nil, err
	}

	return sanitizeUser(user), nil
}

func (s *userService) VerifyPassword(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return sanitizeUser(user), nil
}

// CreateAuthToken issues a new session token. Only its digest is persisted,
// the plain value is returned once to be placed in the cookie.
func (s *userService) CreateAuthToken(ctx context.Context, userID int64) (string, error) {
	token, err := randomHex(tokenBytes)
	if err != nil {
		return "", fmt.Errorf("generate auth token: %w", err)
	}

	now := s.now().UTC()
	if _, err := s.tokens.Create(ctx, &domain.AuthToken{
		UserID:    userID,
		Token:     hashToken(token),
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}); err != nil {
		return "", err
	}
	return token, nil
}

func (s *userService) GetUserByToken(ctx context.Context, token string) (*domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrInvalidToken
	}

	user, err := s.tokens.GetUser(ctx, hashToken(token), s.now())
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) DeleteAuthToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return s.tokens.Delete(ctx, hashToken(token))
}

func (s *userService) GetUserByAPIKey(ctx context.Context, apiKey string) (*domain.User, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, domain.ErrInvalidToken
	}

	user, err := s.users.GetByAPIKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) RotateAPIKey(ctx context.Context, userID int64) (string, error) {
	apiKey, err := randomHex(apiKeyBytes)
	if err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	if err := s.users.UpdateAPIKey(ctx, userID, apiKey); err != nil {
		return "", err
	}
	return apiKey, nil
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) DeleteUser(ctx context.Context, id int64) error {
	return s.users.Delete(ctx, id)
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		APIKey:    user.APIKey,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
