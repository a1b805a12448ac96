package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/vehtrack/vehtrack/internal/errs"
	"github.com/vehtrack/vehtrack/internal/model"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new user profile row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (username, account_email)
VALUES ($1, $2)
RETURNING id`
	err := r.db.Pool.QueryRow(ctx, q, u.Username, u.AccountEmail).Scan(&u.ID)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByEmail selects the user owned by the given account email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `
SELECT id, username, account_email
FROM users WHERE account_email=$1`
	row := r.db.Pool.QueryRow(ctx, q, email)
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.AccountEmail); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// List returns user profiles ordered by id.
func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]model.User, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, username, account_email
FROM users ORDER BY id LIMIT $1 OFFSET $2`
	rows, err := r.db.Pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var u model.User
		if err = rows.Scan(&u.ID, &u.Username, &u.AccountEmail); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ListByFleetIDs returns user profiles belonging to any of the given fleets.
func (r *UserRepo) ListByFleetIDs(ctx context.Context, fleetIDs []int64, limit, offset int) ([]model.User, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT DISTINCT u.id, u.username, u.account_email
FROM users u
JOIN fleet_users fu ON fu.user_id = u.id
WHERE fu.fleet_id = ANY($1)
ORDER BY u.id LIMIT $2 OFFSET $3`
	rows, err := r.db.Pool.Query(ctx, q, fleetIDs, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var u model.User
		if err = rows.Scan(&u.ID, &u.Username, &u.AccountEmail); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateUsername renames the user owned by the given account email.
func (r *UserRepo) UpdateUsername(ctx context.Context, email, username string) error {
	const q = `UPDATE users SET username=$2 WHERE account_email=$1`
	tag, err := r.db.Pool.Exec(ctx, q, email, username)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
