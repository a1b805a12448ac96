package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/vehtrack/vehtrack/internal/errs"
	"github.com/vehtrack/vehtrack/internal/model"
)

func TestAccountRepo_Create_OK_and_UniqueViolation(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)
	ctx := context.Background()
	a := &model.Account{Email: "jane@test.com", PwdHash: "h", Role: model.RoleUser, IsActive: true}

	mock.ExpectExec(`INSERT INTO accounts \(email, pwd_hash, role, is_active\) VALUES \(\$1, \$2, \$3, \$4\)`).
		WithArgs(a.Email, a.PwdHash, "USER", true).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Create(ctx, a))

	mock.ExpectExec(`INSERT INTO accounts \(email, pwd_hash, role, is_active\) VALUES \(\$1, \$2, \$3, \$4\)`).
		WithArgs(a.Email, a.PwdHash, "USER", true).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, r.Create(ctx, a), errs.ErrAlreadyExists)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByEmail(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectQuery(`SELECT email, pwd_hash, role, is_active, created_at, COALESCE\(last_login, created_at\)`).
		WithArgs("jane@test.com").
		WillReturnRows(pgxmock.NewRows([]string{"email", "pwd_hash", "role", "is_active", "created_at", "last_login"}).
			AddRow("jane@test.com", "h", "FLEET_ADMIN", true, now, now))
	a, err := r.GetByEmail(ctx, "jane@test.com")
	require.NoError(t, err)
	require.Equal(t, model.RoleFleetAdmin, a.Role)

	mock.ExpectQuery(`SELECT email, pwd_hash, role, is_active, created_at, COALESCE\(last_login, created_at\)`).
		WithArgs("ghost@test.com").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByEmail(ctx, "ghost@test.com")
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_DeleteByEmailAndRole(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)
	ctx := context.Background()

	mock.ExpectExec(`DELETE FROM accounts WHERE email=\$1 AND role=\$2`).
		WithArgs("unit@test.com", "DEVICE").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, r.DeleteByEmailAndRole(ctx, "unit@test.com", model.RoleDevice))

	// Role mismatch deletes nothing.
	mock.ExpectExec(`DELETE FROM accounts WHERE email=\$1 AND role=\$2`).
		WithArgs("jane@test.com", "DEVICE").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.ErrorIs(t, r.DeleteByEmailAndRole(ctx, "jane@test.com", model.RoleDevice), errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
