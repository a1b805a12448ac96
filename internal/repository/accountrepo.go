// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/vehtrack/vehtrack/internal/model"
)

// AccountRepository provides CRUD access for accounts.
type AccountRepository interface {
	// Create inserts a new account.
	Create(ctx context.Context, a *model.Account) error
	// GetByEmail loads an account by its email (primary key).
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	// TouchLastLogin stamps a successful login.
	TouchLastLogin(ctx context.Context, email string, at time.Time) error
	// UpdatePassword replaces the stored credential hash.
	UpdatePassword(ctx context.Context, email, pwdHash string) error
	// SetActive flips the soft-deactivation flag.
	SetActive(ctx context.Context, email string, active bool) error
	// DeleteByEmailAndRole removes an account only if it holds the given role.
	// Owned user/device rows are removed by FK cascade.
	DeleteByEmailAndRole(ctx context.Context, email string, role model.Role) error
}
