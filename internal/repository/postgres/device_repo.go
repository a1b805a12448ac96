package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/vehtrack/vehtrack/internal/errs"
	"github.com/vehtrack/vehtrack/internal/model"
	"github.com/vehtrack/vehtrack/internal/repository"
)

// DeviceRepo implements DeviceRepository using PostgreSQL.
type DeviceRepo struct{ db *DB }

// NewDeviceRepo constructs a device repository.
func NewDeviceRepo(db *DB) *DeviceRepo { return &DeviceRepo{db: db} }

const deviceCols = `id, serial, type, description, phone, plate, vin, imei, imsi, msisdn, account_email`

func scanDevice(row pgx.Row) (*model.Device, error) {
	var d model.Device
	err := row.Scan(&d.ID, &d.Serial, &d.Type, &d.Description, &d.Phone, &d.Plate,
		&d.VIN, &d.IMEI, &d.IMSI, &d.MSISDN, &d.AccountEmail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// Create inserts a new device row.
func (r *DeviceRepo) Create(ctx context.Context, d *model.Device) error {
	const q = `
INSERT INTO devices (serial, type, description, phone, plate, vin, imei, imsi, msisdn, account_email)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id`
	err := r.db.Pool.QueryRow(ctx, q, d.Serial, d.Type, d.Description, d.Phone, d.Plate,
		d.VIN, d.IMEI, d.IMSI, d.MSISDN, d.AccountEmail).Scan(&d.ID)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetBySerial selects a device by serial number.
func (r *DeviceRepo) GetBySerial(ctx context.Context, serial string) (*model.Device, error) {
	const q = `SELECT ` + deviceCols + ` FROM devices WHERE serial=$1`
	return scanDevice(r.db.Pool.QueryRow(ctx, q, serial))
}

// GetByEmail selects the device owned by the given account email.
func (r *DeviceRepo) GetByEmail(ctx context.Context, email string) (*model.Device, error) {
	const q = `SELECT ` + deviceCols + ` FROM devices WHERE account_email=$1`
	return scanDevice(r.db.Pool.QueryRow(ctx, q, email))
}

// GetByID selects a device by id.
func (r *DeviceRepo) GetByID(ctx context.Context, id int64) (*model.Device, error) {
	const q = `SELECT ` + deviceCols + ` FROM devices WHERE id=$1`
	return scanDevice(r.db.Pool.QueryRow(ctx, q, id))
}

// List returns devices matching the filter ordered by id. With FleetIDs set,
// only devices that belong to one of those fleets are returned.
func (r *DeviceRepo) List(ctx context.Context, f repository.DeviceFilter) ([]model.Device, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	var (
		rows pgx.Rows
		err  error
	)
	if len(f.FleetIDs) > 0 {
		const q = `
SELECT DISTINCT d.id, d.serial, d.type, d.description, d.phone, d.plate, d.vin, d.imei, d.imsi, d.msisdn, d.account_email
FROM devices d
JOIN fleet_devices fd ON fd.device_id = d.id
WHERE fd.fleet_id = ANY($1)
ORDER BY d.id LIMIT $2 OFFSET $3`
		rows, err = r.db.Pool.Query(ctx, q, f.FleetIDs, limit, f.Offset)
	} else {
		const q = `SELECT ` + deviceCols + ` FROM devices ORDER BY id LIMIT $1 OFFSET $2`
		rows, err = r.db.Pool.Query(ctx, q, limit, f.Offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Device
	for rows.Next() {
		var d model.Device
		if err = rows.Scan(&d.ID, &d.Serial, &d.Type, &d.Description, &d.Phone, &d.Plate,
			&d.VIN, &d.IMEI, &d.IMSI, &d.MSISDN, &d.AccountEmail); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Update rewrites the mutable device attributes.
func (r *DeviceRepo) Update(ctx context.Context, d *model.Device) error {
	const q = `
UPDATE devices
SET serial=$2, type=$3, description=$4, phone=$5, plate=$6, vin=$7, imei=$8, imsi=$9, msisdn=$10
WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, d.ID, d.Serial, d.Type, d.Description, d.Phone,
		d.Plate, d.VIN, d.IMEI, d.IMSI, d.MSISDN)
	if err != nil {
		if isUniqueViolation(err) {
			return errs.ErrAlreadyExists
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
