package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/vehtrack/vehtrack/internal/errs"
	"github.com/vehtrack/vehtrack/internal/model"
	"github.com/vehtrack/vehtrack/internal/repository"
)

// FleetRepo implements FleetRepository using PostgreSQL. It is a pure read/
// write adapter: no business rules live here.
type FleetRepo struct{ db *DB }

// NewFleetRepo constructs a fleet repository.
func NewFleetRepo(db *DB) *FleetRepo { return &FleetRepo{db: db} }

const fleetByIDQuery = `SELECT id, name, parent_id FROM fleets WHERE id=$1`

func scanFleet(row pgx.Row) (*model.Fleet, error) {
	var f model.Fleet
	if err := row.Scan(&f.ID, &f.Name, &f.ParentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// GetByID selects a fleet node by id.
func (r *FleetRepo) GetByID(ctx context.Context, id int64) (*model.Fleet, error) {
	return scanFleet(r.db.Pool.QueryRow(ctx, fleetByIDQuery, id))
}

// FindChildren returns the direct children of a fleet ordered by id.
func (r *FleetRepo) FindChildren(ctx context.Context, parentID int64) ([]model.Fleet, error) {
	const q = `SELECT id, name, parent_id FROM fleets WHERE parent_id=$1 ORDER BY id`
	rows, err := r.db.Pool.Query(ctx, q, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFleets(rows)
}

// List returns fleets matching the filter ordered by id.
func (r *FleetRepo) List(ctx context.Context, f repository.FleetFilter) ([]model.Fleet, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, name, parent_id FROM fleets
WHERE ($1 = '' OR name = $1)
  AND (cardinality($2::bigint[]) = 0 OR parent_id = ANY($2))
  AND (cardinality($3::bigint[]) = 0 OR id = ANY($3))
ORDER BY id LIMIT $4 OFFSET $5`
	parentIDs := f.ParentIDs
	if parentIDs == nil {
		parentIDs = []int64{}
	}
	ids := f.IDs
	if ids == nil {
		ids = []int64{}
	}
	rows, err := r.db.Pool.Query(ctx, q, f.Name, parentIDs, ids, limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFleets(rows)
}

func collectFleets(rows pgx.Rows) ([]model.Fleet, error) {
	var out []model.Fleet
	for rows.Next() {
		var f model.Fleet
		if err := rows.Scan(&f.ID, &f.Name, &f.ParentID); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Create inserts a fleet node and fills its id.
func (r *FleetRepo) Create(ctx context.Context, fl *model.Fleet) error {
	const q = `INSERT INTO fleets (name, parent_id) VALUES ($1, $2) RETURNING id`
	err := r.db.Pool.QueryRow(ctx, q, fl.Name, fl.ParentID).Scan(&fl.ID)
	if isForeignKeyViolation(err) {
		return errs.ErrNotFound
	}
	return err
}

// CreateBatch inserts several fleet nodes in one transaction.
func (r *FleetRepo) CreateBatch(ctx context.Context, fls []*model.Fleet) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const q = `INSERT INTO fleets (name, parent_id) VALUES ($1, $2) RETURNING id`
	for _, fl := range fls {
		if err = tx.QueryRow(ctx, q, fl.Name, fl.ParentID).Scan(&fl.ID); err != nil {
			if isForeignKeyViolation(err) {
				err = errs.ErrNotFound
			}
			return err
		}
	}
	return nil
}

// Update renames a fleet or moves it under another parent.
func (r *FleetRepo) Update(ctx context.Context, fl *model.Fleet) error {
	const q = `UPDATE fleets SET name=$2, parent_id=$3 WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, fl.ID, fl.Name, fl.ParentID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return errs.ErrNotFound
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes a fleet; children follow by FK cascade.
func (r *FleetRepo) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM fleets WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// userIDByEmail resolves the user profile linked to an account email.
func (r *FleetRepo) userIDByEmail(ctx context.Context, email string) (int64, error) {
	const q = `SELECT id FROM users WHERE account_email=$1`
	var id int64
	if err := r.db.Pool.QueryRow(ctx, q, email).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, errs.ErrNotFound
		}
		return 0, err
	}
	return id, nil
}

// LinkedRootIDs returns the root fleets linked to the user owned by email.
// ErrNotFound when no user profile is linked to that email; an empty slice
// when the user exists but owns no roots.
func (r *FleetRepo) LinkedRootIDs(ctx context.Context, email string) ([]int64, error) {
	userID, err := r.userIDByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	const q = `
SELECT f.id
FROM fleets f
JOIN fleet_users fu ON fu.fleet_id = f.id
WHERE fu.user_id = $1 AND f.parent_id IS NULL
ORDER BY f.id`
	return r.collectIDs(ctx, q, userID)
}

// MemberFleetIDs returns every fleet the user with the given email belongs to.
func (r *FleetRepo) MemberFleetIDs(ctx context.Context, email string) ([]int64, error) {
	userID, err := r.userIDByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	const q = `SELECT fleet_id FROM fleet_users WHERE user_id=$1 ORDER BY fleet_id`
	return r.collectIDs(ctx, q, userID)
}

// DeviceFleetIDs returns every fleet the device belongs to.
func (r *FleetRepo) DeviceFleetIDs(ctx context.Context, deviceID int64) ([]int64, error) {
	const q = `SELECT fleet_id FROM fleet_devices WHERE device_id=$1 ORDER BY fleet_id`
	return r.collectIDs(ctx, q, deviceID)
}

func (r *FleetRepo) collectIDs(ctx context.Context, q string, arg any) ([]int64, error) {
	rows, err := r.db.Pool.Query(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddUser links a user into a fleet. Adding twice is a no-op.
func (r *FleetRepo) AddUser(ctx context.Context, fleetID, userID int64) error {
	const q = `
INSERT INTO fleet_users (fleet_id, user_id) VALUES ($1, $2)
ON CONFLICT (fleet_id, user_id) DO NOTHING`
	_, err := r.db.Pool.Exec(ctx, q, fleetID, userID)
	if isForeignKeyViolation(err) {
		return errs.ErrNotFound
	}
	return err
}

// RemoveUser unlinks a user from a fleet.
func (r *FleetRepo) RemoveUser(ctx context.Context, fleetID, userID int64) error {
	const q = `DELETE FROM fleet_users WHERE fleet_id=$1 AND user_id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, fleetID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// AddDevice links a device into a fleet. Adding twice is a no-op.
func (r *FleetRepo) AddDevice(ctx context.Context, fleetID, deviceID int64) error {
	const q = `
INSERT INTO fleet_devices (fleet_id, device_id) VALUES ($1, $2)
ON CONFLICT (fleet_id, device_id) DO NOTHING`
	_, err := r.db.Pool.Exec(ctx, q, fleetID, deviceID)
	if isForeignKeyViolation(err) {
		return errs.ErrNotFound
	}
	return err
}

// RemoveDevice unlinks a device from a fleet.
func (r *FleetRepo) RemoveDevice(ctx context.Context, fleetID, deviceID int64) error {
	const q = `DELETE FROM fleet_devices WHERE fleet_id=$1 AND device_id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, fleetID, deviceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// fleetSnapshot reads fleet nodes through a single read-only transaction so
// that one authorization decision observes one data generation.
type fleetSnapshot struct {
	tx     pgx.Tx
	closed bool
}

// Snapshot opens a repeatable-read, read-only transaction over the fleet tree.
func (r *FleetRepo) Snapshot(ctx context.Context) (repository.FleetSnapshot, error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, err
	}
	return &fleetSnapshot{tx: tx}, nil
}

// GetByID selects a fleet node by id inside the snapshot transaction.
func (s *fleetSnapshot) GetByID(ctx context.Context, id int64) (*model.Fleet, error) {
	return scanFleet(s.tx.QueryRow(ctx, fleetByIDQuery, id))
}

// Close rolls back the read transaction. Safe to call more than once.
func (s *fleetSnapshot) Close(ctx context.Context) {
	if s.closed {
		return
	}
	s.closed = true
	_ = s.tx.Rollback(ctx)
}
