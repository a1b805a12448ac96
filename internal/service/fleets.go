package service

import (
	"context"
	"fmt"

	"github.com/vehtrack/vehtrack/internal/authz"
	"github.com/vehtrack/vehtrack/internal/model"
	"github.com/vehtrack/vehtrack/internal/repository"
)

// FleetService defines fleet tree management and membership assignment.
// Every operation is decided by the authorization guard before it touches
// storage.
type FleetService interface {
	List(ctx context.Context, ident authz.Identity, f repository.FleetFilter) ([]model.Fleet, error)
	Get(ctx context.Context, ident authz.Identity, id int64) (*model.Fleet, error)
	Create(ctx context.Context, ident authz.Identity, fl *model.Fleet) error
	CreateBatch(ctx context.Context, ident authz.Identity, fls []*model.Fleet) error
	Update(ctx context.Context, ident authz.Identity, fl *model.Fleet) error
	Delete(ctx context.Context, ident authz.Identity, id int64) error

	AddUser(ctx context.Context, ident authz.Identity, fleetID int64, email string) error
	RemoveUser(ctx context.Context, ident authz.Identity, fleetID int64, email string) error
	AddDevice(ctx context.Context, ident authz.Identity, fleetID int64, serial string) error
	RemoveDevice(ctx context.Context, ident authz.Identity, fleetID int64, serial string) error
}

type FleetServiceImpl struct {
	guard   *authz.Guard
	fleets  repository.FleetRepository
	users   repository.UserRepository
	devices repository.DeviceRepository
}

// NewFleetService constructs FleetService with required dependencies.
func NewFleetService(guard *authz.Guard, fleets repository.FleetRepository,
	users repository.UserRepository, devices repository.DeviceRepository) *FleetServiceImpl {
	return &FleetServiceImpl{guard: guard, fleets: fleets, users: users, devices: devices}
}

// List returns the fleets the caller may see, narrowed by the filter.
func (s *FleetServiceImpl) List(ctx context.Context, ident authz.Identity, f repository.FleetFilter) ([]model.Fleet, error) {
	visible, err := s.guard.VisibleFleetIDs(ctx, ident)
	if err != nil {
		return nil, err
	}
	if visible != nil {
		if len(visible) == 0 {
			return nil, nil
		}
		f.IDs = intersectIDs(f.IDs, visible)
		if len(f.IDs) == 0 {
			return nil, nil
		}
	}
	return s.fleets.List(ctx, f)
}

// Get loads one fleet after an ascent-backed read decision.
func (s *FleetServiceImpl) Get(ctx context.Context, ident authz.Identity, id int64) (*model.Fleet, error) {
	if _, err := s.guard.Authorize(ctx, ident, authz.OpFleetRead, authz.Target{FleetID: id}); err != nil {
		return nil, err
	}
	return s.fleets.GetByID(ctx, id)
}

// Create inserts a single fleet node under the candidate parent.
func (s *FleetServiceImpl) Create(ctx context.Context, ident authz.Identity, fl *model.Fleet) error {
	if !model.ValidName(fl.Name) {
		return fmt.Errorf("invalid fleet name %q", fl.Name)
	}
	if _, err := s.guard.Authorize(ctx, ident, authz.OpFleetCreate, authz.Target{ParentID: fl.ParentID}); err != nil {
		return err
	}
	return s.fleets.Create(ctx, fl)
}

// CreateBatch inserts several fleets in one transaction. Bulk creation is
// decided as a single operation, so non-ADMIN callers are refused before any
// per-node checks.
func (s *FleetServiceImpl) CreateBatch(ctx context.Context, ident authz.Identity, fls []*model.Fleet) error {
	if _, err := s.guard.Authorize(ctx, ident, authz.OpFleetCreate, authz.Target{Bulk: true}); err != nil {
		return err
	}
	for _, fl := range fls {
		if !model.ValidName(fl.Name) {
			return fmt.Errorf("invalid fleet name %q", fl.Name)
		}
	}
	return s.fleets.CreateBatch(ctx, fls)
}

// Update renames a fleet or moves it under another parent. A payload without
// a parent keeps the current one; an update can never detach a node into a
// new root. Moving re-checks the destination like a creation, so a caller
// cannot park a subtree outside its own or below the depth cap.
func (s *FleetServiceImpl) Update(ctx context.Context, ident authz.Identity, fl *model.Fleet) error {
	if !model.ValidName(fl.Name) {
		return fmt.Errorf("invalid fleet name %q", fl.Name)
	}
	if _, err := s.guard.Authorize(ctx, ident, authz.OpFleetUpdate, authz.Target{FleetID: fl.ID}); err != nil {
		return err
	}
	cur, err := s.fleets.GetByID(ctx, fl.ID)
	if err != nil {
		return err
	}
	if fl.ParentID == nil {
		fl.ParentID = cur.ParentID
	} else if cur.ParentID == nil || *cur.ParentID != *fl.ParentID {
		if _, err := s.guard.Authorize(ctx, ident, authz.OpFleetCreate, authz.Target{ParentID: fl.ParentID}); err != nil {
			return err
		}
	}
	return s.fleets.Update(ctx, fl)
}

// Delete removes a fleet and, by cascade, its subtree.
func (s *FleetServiceImpl) Delete(ctx context.Context, ident authz.Identity, id int64) error {
	if _, err := s.guard.Authorize(ctx, ident, authz.OpFleetDelete, authz.Target{FleetID: id}); err != nil {
		return err
	}
	return s.fleets.Delete(ctx, id)
}

// AddUser links the user owned by email into the fleet.
func (s *FleetServiceImpl) AddUser(ctx context.Context, ident authz.Identity, fleetID int64, email string) error {
	if _, err := s.guard.Authorize(ctx, ident, authz.OpAssignUser, authz.Target{FleetID: fleetID}); err != nil {
		return err
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.fleets.AddUser(ctx, fleetID, u.ID)
}

// RemoveUser unlinks the user owned by email from the fleet.
func (s *FleetServiceImpl) RemoveUser(ctx context.Context, ident authz.Identity, fleetID int64, email string) error {
	if _, err := s.guard.Authorize(ctx, ident, authz.OpAssignUser, authz.Target{FleetID: fleetID}); err != nil {
		return err
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.fleets.RemoveUser(ctx, fleetID, u.ID)
}

// AddDevice links the device with the given serial into the fleet.
func (s *FleetServiceImpl) AddDevice(ctx context.Context, ident authz.Identity, fleetID int64, serial string) error {
	if _, err := s.guard.Authorize(ctx, ident, authz.OpAssignDevice, authz.Target{FleetID: fleetID}); err != nil {
		return err
	}
	d, err := s.devices.GetBySerial(ctx, serial)
	if err != nil {
		return err
	}
	return s.fleets.AddDevice(ctx, fleetID, d.ID)
}

// RemoveDevice unlinks the device with the given serial from the fleet.
func (s *FleetServiceImpl) RemoveDevice(ctx context.Context, ident authz.Identity, fleetID int64, serial string) error {
	if _, err := s.guard.Authorize(ctx, ident, authz.OpAssignDevice, authz.Target{FleetID: fleetID}); err != nil {
		return err
	}
	d, err := s.devices.GetBySerial(ctx, serial)
	if err != nil {
		return err
	}
	return s.fleets.RemoveDevice(ctx, fleetID, d.ID)
}

// intersectIDs keeps the ids of a that are also in b. A nil a means "no
// explicit filter" and yields b.
func intersectIDs(a, b []int64) []int64 {
	if len(a) == 0 {
		return b
	}
	set := make(map[int64]struct{}, len(b))
	for _, id := range b {
		set[id] = struct{}{}
	}
	var out []int64
	for _, id := range a {
		if _, ok := set[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
