package repository

import (
	"context"

	"github.com/vehtrack/vehtrack/internal/model"
)

// FleetFilter narrows fleet listings.
type FleetFilter struct {
	Name      string
	ParentIDs []int64
	IDs       []int64
	Limit     int
	Offset    int
}

// FleetSnapshot is a consistent read view over the fleet tree. All lookups
// through one snapshot observe the same data generation, so an ascent never
// sees a parent link move mid-walk. Close releases the underlying read
// transaction; it is safe to call more than once.
type FleetSnapshot interface {
	GetByID(ctx context.Context, id int64) (*model.Fleet, error)
	Close(ctx context.Context)
}

// FleetRepository provides access to fleet nodes and their memberships.
type FleetRepository interface {
	// GetByID loads a fleet node by id.
	GetByID(ctx context.Context, id int64) (*model.Fleet, error)
	// FindChildren returns the direct children of a fleet.
	FindChildren(ctx context.Context, parentID int64) ([]model.Fleet, error)
	// List returns fleets matching the filter, ordered by id.
	List(ctx context.Context, f FleetFilter) ([]model.Fleet, error)
	// Create inserts a fleet node and fills its id.
	Create(ctx context.Context, fl *model.Fleet) error
	// CreateBatch inserts several fleet nodes in one transaction.
	CreateBatch(ctx context.Context, fls []*model.Fleet) error
	// Update renames a fleet or moves it under another parent.
	Update(ctx context.Context, fl *model.Fleet) error
	// Delete removes a fleet; children go with it by FK cascade.
	Delete(ctx context.Context, id int64) error

	// LinkedRootIDs returns the root fleets linked to the user owned by the
	// given account email. ErrNotFound when no user is linked to that email.
	LinkedRootIDs(ctx context.Context, email string) ([]int64, error)
	// MemberFleetIDs returns every fleet the user with the given account
	// email belongs to. ErrNotFound when no user is linked to that email.
	MemberFleetIDs(ctx context.Context, email string) ([]int64, error)
	// DeviceFleetIDs returns every fleet the device belongs to.
	DeviceFleetIDs(ctx context.Context, deviceID int64) ([]int64, error)

	// AddUser/RemoveUser manage the fleet_users join entity.
	AddUser(ctx context.Context, fleetID, userID int64) error
	RemoveUser(ctx context.Context, fleetID, userID int64) error
	// AddDevice/RemoveDevice manage the fleet_devices join entity.
	AddDevice(ctx context.Context, fleetID, deviceID int64) error
	RemoveDevice(ctx context.Context, fleetID, deviceID int64) error

	// Snapshot opens a consistent read view for one authorization decision.
	Snapshot(ctx context.Context) (FleetSnapshot, error)
}
