package service

import (
	"context"

	"github.com/vehtrack/vehtrack/internal/authz"
	"github.com/vehtrack/vehtrack/internal/crypto"
	"github.com/vehtrack/vehtrack/internal/errs"
	"github.com/vehtrack/vehtrack/internal/model"
	"github.com/vehtrack/vehtrack/internal/repository"
)

// DeviceService manages tracked units and their DEVICE accounts.
type DeviceService interface {
	List(ctx context.Context, ident authz.Identity, f repository.DeviceFilter) ([]model.Device, error)
	GetBySerial(ctx context.Context, ident authz.Identity, serial string) (*model.Device, error)
	// Create provisions the DEVICE account and the device row. ADMIN only.
	Create(ctx context.Context, ident authz.Identity, d *model.Device, password string) error
	// CreateBatch provisions several devices. ADMIN only.
	CreateBatch(ctx context.Context, ident authz.Identity, ds []*model.Device, password string) error
	Update(ctx context.Context, ident authz.Identity, d *model.Device) error
	// Delete removes the DEVICE account; the device row follows by cascade.
	Delete(ctx context.Context, ident authz.Identity, serial string) error
}

type DeviceServiceImpl struct {
	guard      *authz.Guard
	accounts   repository.AccountRepository
	devices    repository.DeviceRepository
	fleets     repository.FleetRepository
	bcryptCost int
}

// NewDeviceService constructs DeviceService with required dependencies.
func NewDeviceService(guard *authz.Guard, accounts repository.AccountRepository,
	devices repository.DeviceRepository, fleets repository.FleetRepository, bcryptCost int) *DeviceServiceImpl {
	return &DeviceServiceImpl{guard: guard, accounts: accounts, devices: devices, fleets: fleets, bcryptCost: bcryptCost}
}

// List returns the devices visible to the caller, narrowed by the filter.
func (s *DeviceServiceImpl) List(ctx context.Context, ident authz.Identity, f repository.DeviceFilter) ([]model.Device, error) {
	visible, err := s.guard.VisibleFleetIDs(ctx, ident)
	if err != nil {
		return nil, err
	}
	if visible != nil {
		if len(visible) == 0 {
			return nil, nil
		}
		f.FleetIDs = intersectIDs(f.FleetIDs, visible)
		if len(f.FleetIDs) == 0 {
			return nil, nil
		}
	}
	return s.devices.List(ctx, f)
}

// GetBySerial loads one device if the caller may see it. A DEVICE caller may
// read itself and nothing else.
func (s *DeviceServiceImpl) GetBySerial(ctx context.Context, ident authz.Identity, serial string) (*model.Device, error) {
	d, err := s.devices.GetBySerial(ctx, serial)
	if err != nil {
		return nil, err
	}
	if ident.Role == model.RoleDevice {
		if d.AccountEmail == ident.Email {
			return d, nil
		}
		return nil, errs.ErrForbidden
	}
	fleetIDs, err := s.fleets.DeviceFleetIDs(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.CanReadDevice(ctx, ident, fleetIDs); err != nil {
		return nil, err
	}
	return d, nil
}

// Create provisions a DEVICE account plus the device row.
func (s *DeviceServiceImpl) Create(ctx context.Context, ident authz.Identity, d *model.Device, password string) error {
	if ident.Role != model.RoleAdmin {
		return errs.ErrForbidden
	}
	return s.create(ctx, d, password)
}

// CreateBatch provisions several devices.
func (s *DeviceServiceImpl) CreateBatch(ctx context.Context, ident authz.Identity, ds []*model.Device, password string) error {
	if ident.Role != model.RoleAdmin {
		return errs.ErrForbidden
	}
	for _, d := range ds {
		if err := s.create(ctx, d, password); err != nil {
			return err
		}
	}
	return nil
}

func (s *DeviceServiceImpl) create(ctx context.Context, d *model.Device, password string) error {
	if err := d.Validate(); err != nil {
		return err
	}
	hash, err := crypto.HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}
	a := &model.Account{Email: d.AccountEmail, PwdHash: hash, Role: model.RoleDevice, IsActive: true}
	if err := s.accounts.Create(ctx, a); err != nil {
		return err
	}
	return s.devices.Create(ctx, d)
}

// Update rewrites device attributes. ADMIN anywhere; FLEET_ADMIN only for
// devices inside its owned subtree.
func (s *DeviceServiceImpl) Update(ctx context.Context, ident authz.Identity, d *model.Device) error {
	if err := d.Validate(); err != nil {
		return err
	}
	switch ident.Role {
	case model.RoleAdmin:
	case model.RoleFleetAdmin:
		fleetIDs, err := s.fleets.DeviceFleetIDs(ctx, d.ID)
		if err != nil {
			return err
		}
		if err := s.guard.CanReadDevice(ctx, ident, fleetIDs); err != nil {
			return err
		}
	default:
		return errs.ErrForbidden
	}
	return s.devices.Update(ctx, d)
}

// Delete removes the DEVICE account behind the serial.
func (s *DeviceServiceImpl) Delete(ctx context.Context, ident authz.Identity, serial string) error {
	if ident.Role != model.RoleAdmin {
		return errs.ErrForbidden
	}
	d, err := s.devices.GetBySerial(ctx, serial)
	if err != nil {
		return err
	}
	return s.accounts.DeleteByEmailAndRole(ctx, d.AccountEmail, model.RoleDevice)
}
