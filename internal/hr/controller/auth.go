package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gartstein/hr/internal/hr/auth"
	e "github.com/gartstein/hr/internal/hr/errors"
	"github.com/gartstein/hr/internal/hr/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthRepository interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Token is an issued bearer token. ExpiresIn is in seconds.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type AuthService struct {
	repo   AuthRepository
	secret string
	ttl    time.Duration
	logger *zap.Logger
}

func NewAuthService(repo AuthRepository, secret string, ttl time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		repo:   repo,
		secret: secret,
		ttl:    ttl,
		logger: logger.Named("auth_service"),
	}
}

// Login exchanges credentials for a token. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Token, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, e.ErrNotFound) {
		return nil, e.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		s.logger.Info("login rejected", zap.String("user_id", user.ID.String()))
		return nil, e.ErrInvalidCredentials
	}
	return s.issue(user)
}

// Me returns the account behind the caller's token.
func (s *AuthService) Me(ctx context.Context, caller *auth.Claims) (*models.User, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	user, err := s.repo.GetUser(ctx, caller.UserID)
	if errors.Is(err, e.ErrNotFound) {
		return nil, e.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Refresh issues a new token from the caller's current account state.
func (s *AuthService) Refresh(ctx context.Context, caller *auth.Claims) (*Token, error) {
	user, err := s.Me(ctx, caller)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Logout ends the caller's session. Tokens are not stored server side, so
// the client discards its token and it lapses at its expiry.
func (s *AuthService) Logout(_ context.Context, caller *auth.Claims) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	s.logger.Info("user logged out", zap.String("user_id", caller.UserID.String()))
	return nil
}

func (s *AuthService) issue(user *models.User) (*Token, error) {
	signed, expires, err := auth.GenerateToken(user, s.secret, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &Token{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresIn:   int64(time.Until(expires).Seconds()),
	}, nil
}
