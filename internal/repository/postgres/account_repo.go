package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vehtrack/vehtrack/internal/errs"
	"github.com/vehtrack/vehtrack/internal/model"
)

// AccountRepo implements AccountRepository using PostgreSQL.
type AccountRepo struct{ db *DB }

// NewAccountRepo constructs an account repository.
func NewAccountRepo(db *DB) *AccountRepo { return &AccountRepo{db: db} }

// Create inserts a new account row.
func (r *AccountRepo) Create(ctx context.Context, a *model.Account) error {
	const q = `
INSERT INTO accounts (email, pwd_hash, role, is_active)
VALUES ($1, $2, $3, $4)`
	_, err := r.db.Pool.Exec(ctx, q, a.Email, a.PwdHash, string(a.Role), a.IsActive)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByEmail selects an account by email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	const q = `
SELECT email, pwd_hash, role, is_active, created_at, COALESCE(last_login, created_at)
FROM accounts WHERE email=$1`
	row := r.db.Pool.QueryRow(ctx, q, email)
	var a model.Account
	var role string
	if err := row.Scan(&a.Email, &a.PwdHash, &role, &a.IsActive, &a.CreatedAt, &a.LastLogin); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	r2, err := model.ParseRole(role)
	if err != nil {
		return nil, err
	}
	a.Role = r2
	return &a, nil
}

// TouchLastLogin stamps a successful login.
func (r *AccountRepo) TouchLastLogin(ctx context.Context, email string, at time.Time) error {
	const q = `UPDATE accounts SET last_login=$2 WHERE email=$1`
	tag, err := r.db.Pool.Exec(ctx, q, email, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// UpdatePassword replaces the stored credential hash.
func (r *AccountRepo) UpdatePassword(ctx context.Context, email, pwdHash string) error {
	const q = `UPDATE accounts SET pwd_hash=$2 WHERE email=$1`
	tag, err := r.db.Pool.Exec(ctx, q, email, pwdHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SetActive flips the soft-deactivation flag.
func (r *AccountRepo) SetActive(ctx context.Context, email string, active bool) error {
	const q = `UPDATE accounts SET is_active=$2 WHERE email=$1`
	tag, err := r.db.Pool.Exec(ctx, q, email, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// DeleteByEmailAndRole removes an account only when it holds the given role.
// The owned user/device row goes with it via FK cascade.
func (r *AccountRepo) DeleteByEmailAndRole(ctx context.Context, email string, role model.Role) error {
	const q = `DELETE FROM accounts WHERE email=$1 AND role=$2`
	tag, err := r.db.Pool.Exec(ctx, q, email, string(role))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
