// Package service contains the application services behind the HTTP handlers:
// authentication, fleet management, users, devices and telemetry.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/vehtrack/vehtrack/internal/crypto"
	"github.com/vehtrack/vehtrack/internal/errs"
	"github.com/vehtrack/vehtrack/internal/limiter"
	"github.com/vehtrack/vehtrack/internal/model"
	"github.com/vehtrack/vehtrack/internal/repository"
	"github.com/vehtrack/vehtrack/internal/token"
)

// AuthService defines authentication and account bootstrap operations.
type AuthService interface {
	// Register creates a USER account with its empty user profile.
	Register(ctx context.Context, email, password string) error
	// LoginWithIP applies rate limiting and authenticates the account.
	LoginWithIP(ctx context.Context, email, password, ip string) (signed string, exp time.Time, err error)
	// Logout revokes a token id until the token would expire anyway.
	Logout(ctx context.Context, jti string, exp time.Time) error
	// EnsureAdmin creates the default ADMIN account when absent. Returns true
	// when a new account was created.
	EnsureAdmin(ctx context.Context, email, password string) (bool, error)
}

type AuthServiceImpl struct {
	accounts   repository.AccountRepository
	users      repository.UserRepository
	tokens     *token.Manager
	revoked    *token.RevokedSet
	lim        limiter.Limiter
	bcryptCost int
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(
	accounts repository.AccountRepository,
	users repository.UserRepository,
	tokens *token.Manager,
	revoked *token.RevokedSet,
	lim limiter.Limiter,
	bcryptCost int,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		accounts:   accounts,
		users:      users,
		tokens:     tokens,
		revoked:    revoked,
		lim:        lim,
		bcryptCost: bcryptCost,
	}
}

// Register creates a USER account and its user profile. The profile starts
// with the email's local part as username.
func (s *AuthServiceImpl) Register(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return errors.New("empty email/password")
	}
	hash, err := crypto.HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}
	a := &model.Account{
		Email:    email,
		PwdHash:  hash,
		Role:     model.RoleUser,
		IsActive: true,
	}
	if err := s.accounts.Create(ctx, a); err != nil {
		return err
	}
	username := email
	if i := strings.IndexByte(email, '@'); i > 0 {
		username = email[:i]
	}
	return s.users.Create(ctx, &model.User{Username: username, AccountEmail: email})
}

// LoginWithIP authenticates with rate limiting by (email, ip).
func (s *AuthServiceImpl) LoginWithIP(ctx context.Context, email, password, ip string) (string, time.Time, error) {
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, email, ipHash)
	if err != nil {
		return "", time.Time{}, err
	}
	if !allowed {
		return "", time.Time{}, errs.ErrRateLimited
	}

	a, err := s.accounts.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		// A storage fault is not a failed attempt.
		return "", time.Time{}, err
	}
	if err != nil || !a.IsActive || !crypto.VerifyPassword(password, a.PwdHash) {
		if blocked, _, ferr := s.lim.Failure(ctx, email, ipHash); ferr == nil && blocked {
			return "", time.Time{}, errs.ErrRateLimited
		}
		// A missing account, a deactivated one and a wrong password all look
		// the same to the caller.
		return "", time.Time{}, errs.ErrUnauthorized
	}

	_ = s.lim.Success(ctx, email, ipHash)

	signed, _, exp, err := s.tokens.Issue(a.Email, a.Role)
	if err != nil {
		return "", time.Time{}, err
	}
	_ = s.accounts.TouchLastLogin(ctx, a.Email, time.Now())
	return signed, exp, nil
}

// Logout revokes the token id until its expiry.
func (s *AuthServiceImpl) Logout(_ context.Context, jti string, exp time.Time) error {
	s.revoked.Revoke(jti, exp)
	return nil
}

// EnsureAdmin creates the default ADMIN account on first start.
func (s *AuthServiceImpl) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, errs.ErrNotFound) {
		return false, err
	}
	hash, err := crypto.HashPassword(password, s.bcryptCost)
	if err != nil {
		return false, err
	}
	a := &model.Account{Email: email, PwdHash: hash, Role: model.RoleAdmin, IsActive: true}
	if err := s.accounts.Create(ctx, a); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
