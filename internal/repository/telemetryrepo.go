package repository

import (
	"context"

	"github.com/vehtrack/vehtrack/internal/model"
)

// PositionFilter narrows position listings.
type PositionFilter struct {
	DeviceID  int64
	JourneyID int64
	Limit     int
	Offset    int
}

// LogFilter narrows log listings.
type LogFilter struct {
	DeviceID  int64
	JourneyID int64
	Level     string
	Limit     int
	Offset    int
}

// TelemetryRepository stores the time-series records posted by devices.
type TelemetryRepository interface {
	// CreateJourney inserts a journey and fills its id.
	CreateJourney(ctx context.Context, j *model.Journey) error
	// GetJourney loads a journey by id.
	GetJourney(ctx context.Context, id int64) (*model.Journey, error)
	// ListJourneys returns journeys of a device ordered by start timestamp.
	ListJourneys(ctx context.Context, deviceID int64, limit, offset int) ([]model.Journey, error)

	// CreatePositions bulk-inserts track points.
	CreatePositions(ctx context.Context, ps []model.Position) error
	// ListPositions returns positions matching the filter ordered by timestamp.
	ListPositions(ctx context.Context, f PositionFilter) ([]model.Position, error)

	// CreateLog inserts a log record and fills its id.
	CreateLog(ctx context.Context, l *model.LogRecord) error
	// ListLogs returns log records matching the filter ordered by timestamp.
	ListLogs(ctx context.Context, f LogFilter) ([]model.LogRecord, error)
}
