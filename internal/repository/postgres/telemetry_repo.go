package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/vehtrack/vehtrack/internal/errs"
	"github.com/vehtrack/vehtrack/internal/model"
	"github.com/vehtrack/vehtrack/internal/repository"
)

// TelemetryRepo implements TelemetryRepository using PostgreSQL.
type TelemetryRepo struct{ db *DB }

// NewTelemetryRepo constructs a telemetry repository.
func NewTelemetryRepo(db *DB) *TelemetryRepo { return &TelemetryRepo{db: db} }

// CreateJourney inserts a journey row and fills its id.
func (r *TelemetryRepo) CreateJourney(ctx context.Context, j *model.Journey) error {
	const q = `
INSERT INTO journeys (device_id, start_latitude, start_longitude, start_timestamp,
                      stop_latitude, stop_longitude, stop_timestamp,
                      distance, average_speed, maximum_speed, duration)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id`
	err := r.db.Pool.QueryRow(ctx, q, j.DeviceID,
		j.StartLatitude, j.StartLongitude, j.StartTimestamp,
		j.StopLatitude, j.StopLongitude, j.StopTimestamp,
		j.Distance, j.AverageSpeed, j.MaximumSpeed, j.Duration).Scan(&j.ID)
	if isForeignKeyViolation(err) {
		return errs.ErrNotFound
	}
	return err
}

// GetJourney selects a journey by id.
func (r *TelemetryRepo) GetJourney(ctx context.Context, id int64) (*model.Journey, error) {
	const q = `
SELECT id, device_id, start_latitude, start_longitude, start_timestamp,
       stop_latitude, stop_longitude, stop_timestamp,
       distance, average_speed, maximum_speed, duration
FROM journeys WHERE id=$1`
	row := r.db.Pool.QueryRow(ctx, q, id)
	var j model.Journey
	err := row.Scan(&j.ID, &j.DeviceID, &j.StartLatitude, &j.StartLongitude, &j.StartTimestamp,
		&j.StopLatitude, &j.StopLongitude, &j.StopTimestamp,
		&j.Distance, &j.AverageSpeed, &j.MaximumSpeed, &j.Duration)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &j, nil
}

// ListJourneys returns journeys of a device ordered by start timestamp.
func (r *TelemetryRepo) ListJourneys(ctx context.Context, deviceID int64, limit, offset int) ([]model.Journey, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, device_id, start_latitude, start_longitude, start_timestamp,
       stop_latitude, stop_longitude, stop_timestamp,
       distance, average_speed, maximum_speed, duration
FROM journeys WHERE device_id=$1
ORDER BY start_timestamp LIMIT $2 OFFSET $3`
	rows, err := r.db.Pool.Query(ctx, q, deviceID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Journey
	for rows.Next() {
		var j model.Journey
		if err = rows.Scan(&j.ID, &j.DeviceID, &j.StartLatitude, &j.StartLongitude, &j.StartTimestamp,
			&j.StopLatitude, &j.StopLongitude, &j.StopTimestamp,
			&j.Distance, &j.AverageSpeed, &j.MaximumSpeed, &j.Duration); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// CreatePositions bulk-inserts track points in one transaction.
func (r *TelemetryRepo) CreatePositions(ctx context.Context, ps []model.Position) (err error) {
	if len(ps) == 0 {
		return nil
	}
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

	const q = `
INSERT INTO positions (device_id, journey_id, latitude, longitude, timestamp, speed)
VALUES ($1, $2, $3, $4, $5, $6)`
	for i := range ps {
		p := &ps[i]
		if _, err = tx.Exec(ctx, q, p.DeviceID, p.JourneyID, p.Latitude, p.Longitude, p.Timestamp, p.Speed); err != nil {
			if isForeignKeyViolation(err) {
				err = errs.ErrNotFound
			}
			return err
		}
	}
	return nil
}

// ListPositions returns positions matching the filter ordered by timestamp.
func (r *TelemetryRepo) ListPositions(ctx context.Context, f repository.PositionFilter) ([]model.Position, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, device_id, journey_id, latitude, longitude, timestamp, speed
FROM positions
WHERE ($1 = 0 OR device_id = $1) AND ($2 = 0 OR journey_id = $2)
ORDER BY timestamp LIMIT $3 OFFSET $4`
	rows, err := r.db.Pool.Query(ctx, q, f.DeviceID, f.JourneyID, limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Position
	for rows.Next() {
		var p model.Position
		if err = rows.Scan(&p.ID, &p.DeviceID, &p.JourneyID, &p.Latitude, &p.Longitude, &p.Timestamp, &p.Speed); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateLog inserts a log record and fills its id.
func (r *TelemetryRepo) CreateLog(ctx context.Context, l *model.LogRecord) error {
	const q = `
INSERT INTO logs (device_id, journey_id, timestamp, level, message)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`
	err := r.db.Pool.QueryRow(ctx, q, l.DeviceID, l.JourneyID, l.Timestamp, l.Level, l.Message).Scan(&l.ID)
	if isForeignKeyViolation(err) {
		return errs.ErrNotFound
	}
	return err
}

// ListLogs returns log records matching the filter ordered by timestamp.
func (r *TelemetryRepo) ListLogs(ctx context.Context, f repository.LogFilter) ([]model.LogRecord, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, device_id, journey_id, timestamp, level, message
FROM logs
WHERE ($1 = 0 OR device_id = $1) AND ($2 = 0 OR journey_id = $2) AND ($3 = '' OR level = $3)
ORDER BY timestamp LIMIT $4 OFFSET $5`
	rows, err := r.db.Pool.Query(ctx, q, f.DeviceID, f.JourneyID, f.Level, limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.LogRecord
	for rows.Next() {
		var l model.LogRecord
		if err = rows.Scan(&l.ID, &l.DeviceID, &l.JourneyID, &l.Timestamp, &l.Level, &l.Message); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
