package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/vehtrack/vehtrack/internal/authz"
	"github.com/vehtrack/vehtrack/internal/errs"
	"github.com/vehtrack/vehtrack/internal/model"
	"github.com/vehtrack/vehtrack/internal/repository"
)

// TelemetryService stores and serves journeys, positions and logs. Writes
// come from devices (each only for itself) or ADMIN; reads require
// fleet-scoped access to the device.
type TelemetryService interface {
	CreateJourney(ctx context.Context, ident authz.Identity, j *model.Journey) error
	GetJourney(ctx context.Context, ident authz.Identity, id int64) (*model.Journey, error)
	ListJourneys(ctx context.Context, ident authz.Identity, deviceID int64, limit, offset int) ([]model.Journey, error)

	CreatePositions(ctx context.Context, ident authz.Identity, ps []model.Position) error
	ListPositions(ctx context.Context, ident authz.Identity, f repository.PositionFilter) ([]model.Position, error)

	CreateLog(ctx context.Context, ident authz.Identity, l *model.LogRecord) error
	ListLogs(ctx context.Context, ident authz.Identity, f repository.LogFilter) ([]model.LogRecord, error)
}

type TelemetryServiceImpl struct {
	guard     *authz.Guard
	telemetry repository.TelemetryRepository
	devices   repository.DeviceRepository
	fleets    repository.FleetRepository
}

// NewTelemetryService constructs TelemetryService with required dependencies.
func NewTelemetryService(guard *authz.Guard, telemetry repository.TelemetryRepository,
	devices repository.DeviceRepository, fleets repository.FleetRepository) *TelemetryServiceImpl {
	return &TelemetryServiceImpl{guard: guard, telemetry: telemetry, devices: devices, fleets: fleets}
}

// CreateJourney stores one journey, deriving duration and distance when the
// device did not report them.
func (s *TelemetryServiceImpl) CreateJourney(ctx context.Context, ident authz.Identity, j *model.Journey) error {
	if err := s.canWrite(ctx, ident, j.DeviceID); err != nil {
		return err
	}
	j.Derive()
	return s.telemetry.CreateJourney(ctx, j)
}

// GetJourney loads one journey if the caller may read its device.
func (s *TelemetryServiceImpl) GetJourney(ctx context.Context, ident authz.Identity, id int64) (*model.Journey, error) {
	j, err := s.telemetry.GetJourney(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.canRead(ctx, ident, j.DeviceID); err != nil {
		return nil, err
	}
	return j, nil
}

// ListJourneys returns the journeys of one device.
func (s *TelemetryServiceImpl) ListJourneys(ctx context.Context, ident authz.Identity, deviceID int64, limit, offset int) ([]model.Journey, error) {
	if err := s.canRead(ctx, ident, deviceID); err != nil {
		return nil, err
	}
	return s.telemetry.ListJourneys(ctx, deviceID, limit, offset)
}

// CreatePositions bulk-stores track points. All points must belong to a
// device the caller may write for.
func (s *TelemetryServiceImpl) CreatePositions(ctx context.Context, ident authz.Identity, ps []model.Position) error {
	if len(ps) == 0 {
		return nil
	}
	seen := make(map[int64]struct{})
	for _, p := range ps {
		if _, ok := seen[p.DeviceID]; ok {
			continue
		}
		if err := s.canWrite(ctx, ident, p.DeviceID); err != nil {
			return err
		}
		seen[p.DeviceID] = struct{}{}
	}
	return s.telemetry.CreatePositions(ctx, ps)
}

// ListPositions returns track points for a device or a journey.
func (s *TelemetryServiceImpl) ListPositions(ctx context.Context, ident authz.Identity, f repository.PositionFilter) ([]model.Position, error) {
	deviceID, err := s.resolveDevice(ctx, f.DeviceID, f.JourneyID)
	if err != nil {
		return nil, err
	}
	if err := s.canRead(ctx, ident, deviceID); err != nil {
		return nil, err
	}
	return s.telemetry.ListPositions(ctx, f)
}

// CreateLog stores one device log line.
func (s *TelemetryServiceImpl) CreateLog(ctx context.Context, ident authz.Identity, l *model.LogRecord) error {
	if l.Level == "" {
		l.Level = model.LogDebug
	}
	if !model.ValidLogLevel(l.Level) {
		return fmt.Errorf("invalid log level %q", l.Level)
	}
	if err := s.canWrite(ctx, ident, l.DeviceID); err != nil {
		return err
	}
	return s.telemetry.CreateLog(ctx, l)
}

// ListLogs returns log records for a device or a journey.
func (s *TelemetryServiceImpl) ListLogs(ctx context.Context, ident authz.Identity, f repository.LogFilter) ([]model.LogRecord, error) {
	if f.Level != "" && !model.ValidLogLevel(f.Level) {
		return nil, fmt.Errorf("invalid log level %q", f.Level)
	}
	deviceID, err := s.resolveDevice(ctx, f.DeviceID, f.JourneyID)
	if err != nil {
		return nil, err
	}
	if err := s.canRead(ctx, ident, deviceID); err != nil {
		return nil, err
	}
	return s.telemetry.ListLogs(ctx, f)
}

// resolveDevice picks the device the read is scoped to, following the
// journey when only journey__id was given.
func (s *TelemetryServiceImpl) resolveDevice(ctx context.Context, deviceID, journeyID int64) (int64, error) {
	if deviceID != 0 {
		return deviceID, nil
	}
	if journeyID == 0 {
		return 0, errors.New("device or journey filter required")
	}
	j, err := s.telemetry.GetJourney(ctx, journeyID)
	if err != nil {
		return 0, err
	}
	return j.DeviceID, nil
}

// canWrite allows ADMIN anywhere and a DEVICE only for itself.
func (s *TelemetryServiceImpl) canWrite(ctx context.Context, ident authz.Identity, deviceID int64) error {
	switch ident.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleDevice:
		own, err := s.devices.GetByEmail(ctx, ident.Email)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrForbidden
			}
			return err
		}
		if own.ID != deviceID {
			return errs.ErrForbidden
		}
		return nil
	}
	return errs.ErrForbidden
}

// canRead gates telemetry reads on fleet-scoped access to the device. A
// DEVICE reads only its own records.
func (s *TelemetryServiceImpl) canRead(ctx context.Context, ident authz.Identity, deviceID int64) error {
	if ident.Role == model.RoleDevice {
		own, err := s.devices.GetByEmail(ctx, ident.Email)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrForbidden
			}
			return err
		}
		if own.ID != deviceID {
			return errs.ErrForbidden
		}
		return nil
	}
	fleetIDs, err := s.fleets.DeviceFleetIDs(ctx, deviceID)
	if err != nil {
		return err
	}
	return s.guard.CanReadDevice(ctx, ident, fleetIDs)
}
