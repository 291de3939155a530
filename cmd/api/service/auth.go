package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/genomeai/platform/cmd/api/models"
	"github.com/genomeai/platform/common/logger"
	commonrepo "github.com/genomeai/platform/common/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserStore persists users
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	Upsert(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Count(ctx context.Context) (int, error)
}

// Token is the login response
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService issues and verifies HS256 bearer tokens
type AuthService struct {
	users  UserStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	log    *logger.Logger
}

// NewAuthService creates an auth service
func NewAuthService(users UserStore, secret string, ttl time.Duration, log *logger.Logger) *AuthService {
	return &AuthService{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		log:    log,
	}
}

// HashPassword bcrypt-hashes a password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Login checks credentials and issues a token
func (s *AuthService) Login(ctx context.Context, username, password string) (*Token, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, commonrepo.ErrNotFound) {
			return nil, Unauthorized("Invalid credentials")
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.log.Warn("login rejected", "username", username)
		return nil, Unauthorized("Invalid credentials")
	}

	now := s.now()
	claims := tokenClaims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	s.log.Info("user logged in", "user_id", user.ID, "username", user.Username)

	return &Token{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresIn:   int(s.ttl.Seconds()),
	}, nil
}

// Verify parses a bearer token and loads its subject
func (s *AuthService) Verify(ctx context.Context, raw string) (*models.User, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, Unauthorized("Token expired")
		}
		return nil, Unauthorized("Invalid token")
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, commonrepo.ErrNotFound) {
			return nil, Unauthorized("User not found")
		}
		return nil, err
	}
	return user, nil
}

// EnsureAdmin seeds an Admin when the user table is empty. Returns whether it seeded.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	n, err := s.users.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return false, err
	}

	s.log.Info("seeded admin user", "username", username)
	return true, nil
}

// SetUser creates a user or resets an existing one's password and role
func (s *AuthService) SetUser(ctx context.Context, username, password string, role models.Role) (*models.User, error) {
	if username == "" || password == "" {
		return nil, Unprocessable("username and password are required")
	}
	if !role.Valid() {
		return nil, Unprocessable(fmt.Sprintf("invalid role %q", role))
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
