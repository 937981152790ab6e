package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gearrent/internal/domain"
	"gearrent/internal/logger"
	"gearrent/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

const (
	maxFailedLoginAttempts = 5
	lockoutDuration        = 15 * time.Minute
)

type Service struct {
	users    UserRepository
	jwt      TokenIssuer
	tokenTTL time.Duration
	now      func() time.Time
}

func NewService(users UserRepository, jwt TokenIssuer, tokenTTL time.Duration) *Service {
	return &Service{users: users, jwt: jwt, tokenTTL: tokenTTL, now: time.Now}
}

// Login checks the password and issues an access token. Five consecutive
// failures lock the account for fifteen minutes.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	now := s.now().UTC()
	if user.LockedUntil != nil && user.LockedUntil.After(now) {
		return nil, ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		failedAttempts := user.FailedLoginAttempts + 1
		var lockedUntil *time.Time
		if failedAttempts >= maxFailedLoginAttempts {
			until := now.Add(lockoutDuration)
			lockedUntil = &until
		}
		if err := s.users.RecordLoginFailure(ctx, user.ID, failedAttempts, lockedUntil); err != nil {
			return nil, err
		}
		if lockedUntil != nil {
			logger.Warn("operator locked out", "user_id", user.ID, "until", *lockedUntil)
			return nil, ErrAccountLocked
		}
		return nil, ErrInvalidCredentials
	}

	if err := s.users.RecordLoginSuccess(ctx, user.ID, now); err != nil {
		return nil, err
	}

	token, err := s.jwt.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now
	return &LoginResult{
		User:        user,
		AccessToken: token,
		ExpiresIn:   int64(s.tokenTTL.Seconds()),
	}, nil
}

// CreateOperator registers a back-office account. Role defaults to operator.
func (s *Service) CreateOperator(ctx context.Context, req CreateOperatorRequest) (*domain.User, error) {
	role := domain.UserRole(req.Role)
	if role == "" {
		role = domain.RoleOperator
	}
	if role != domain.RoleAdmin && role != domain.RoleOperator {
		return nil, ErrValidation
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
		Name:         strings.TrimSpace(req.Name),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, err
	}
	return u, nil
}

func (s *Service) GetCurrentUser(ctx context.Context, userID int64) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return u, nil
}

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
