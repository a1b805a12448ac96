package repository

import (
	"context"

	"github.com/vehtrack/vehtrack/internal/model"
)

// DeviceFilter narrows device listings.
type DeviceFilter struct {
	FleetIDs []int64
	Limit    int
	Offset   int
}

// DeviceRepository provides access to devices.
type DeviceRepository interface {
	// Create inserts a new device.
	Create(ctx context.Context, d *model.Device) error
	// GetBySerial loads a device by its serial number.
	GetBySerial(ctx context.Context, serial string) (*model.Device, error)
	// GetByEmail loads the device owned by the given account email.
	GetByEmail(ctx context.Context, email string) (*model.Device, error)
	// GetByID loads a device by id.
	GetByID(ctx context.Context, id int64) (*model.Device, error)
	// List returns devices matching the filter, ordered by id.
	List(ctx context.Context, f DeviceFilter) ([]model.Device, error)
	// Update rewrites the mutable device attributes.
	Update(ctx context.Context, d *model.Device) error
}
