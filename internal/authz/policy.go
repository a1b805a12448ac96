package authz

import (
	"context"
	"errors"

	"github.com/vehtrack/vehtrack/internal/errs"
	"github.com/vehtrack/vehtrack/internal/model"
	"github.com/vehtrack/vehtrack/internal/repository"
)

// Op enumerates the fleet-scoped operations the policy decides on.
type Op int

const (
	OpFleetRead Op = iota
	OpFleetCreate
	OpFleetUpdate
	OpFleetDelete
	OpAssignUser
	OpAssignDevice
)

// Identity is the authenticated caller: verified email plus its single role.
type Identity struct {
	Email string
	Role  model.Role
}

// Target names the fleet an operation touches. FleetID for operations on an
// existing fleet; ParentID for creation under a candidate parent (nil when
// the request asks for a new root); Bulk for array creation.
type Target struct {
	FleetID  int64
	ParentID *int64
	Bulk     bool
}

// Decision is a successful authorization. Level is the hop count from the
// caller's owned root (always 0 for ADMIN, which bypasses the ascent).
type Decision struct {
	Level int
}

// FleetStore is the read surface the policy needs from persistence.
type FleetStore interface {
	// Snapshot opens a consistent read view for one decision.
	Snapshot(ctx context.Context) (repository.FleetSnapshot, error)
	// LinkedRootIDs resolves the caller's owned roots (see RootLinker).
	LinkedRootIDs(ctx context.Context, email string) ([]int64, error)
	// MemberFleetIDs returns the fleets a user account belongs to.
	MemberFleetIDs(ctx context.Context, email string) ([]int64, error)
	// FindChildren returns the direct children of a fleet.
	FindChildren(ctx context.Context, parentID int64) ([]model.Fleet, error)
}

// Guard applies the role policy. Stateless across requests: every decision is
// a pure function of role, operation and ascent result over one snapshot.
type Guard struct {
	store FleetStore
}

// NewGuard constructs the policy guard.
func NewGuard(store FleetStore) *Guard { return &Guard{store: store} }

// Authorize decides whether the caller may perform op on the target.
// Returns a Decision on allow. Deny is always explicit: errs.ErrNotOwned for
// a failed ascent, errs.ErrForbidden for a role or level capability the
// caller lacks. Storage faults propagate unchanged and never turn into a
// deny.
func (g *Guard) Authorize(ctx context.Context, ident Identity, op Op, t Target) (Decision, error) {
	switch ident.Role {
	case model.RoleAdmin:
		// ADMIN bypasses the ascent entirely, bulk creation included.
		return Decision{}, nil
	case model.RoleFleetAdmin:
		return g.fleetAdmin(ctx, ident, op, t)
	case model.RoleUser:
		return g.user(ctx, ident, op, t)
	case model.RoleDevice:
		// Devices only post telemetry; no fleet operations at all.
		return Decision{}, errs.ErrForbidden
	}
	return Decision{}, errs.ErrForbidden
}

func (g *Guard) fleetAdmin(ctx context.Context, ident Identity, op Op, t Target) (Decision, error) {
	if op == OpFleetCreate && t.Bulk {
		// Bulk creation is reserved for ADMIN.
		return Decision{}, errs.ErrForbidden
	}

	roots, err := ResolveOwnedRoots(ctx, g.store, ident.Email)
	if err != nil {
		return Decision{}, err
	}

	snap, err := g.store.Snapshot(ctx)
	if err != nil {
		return Decision{}, err
	}
	defer snap.Close(ctx)

	var level int
	if op == OpFleetCreate {
		level, err = LevelByParentID(ctx, snap, t.ParentID, roots)
	} else {
		level, err = LevelByID(ctx, snap, t.FleetID, roots)
	}
	if err != nil {
		return Decision{}, err
	}

	switch op {
	case OpFleetCreate:
		// The new fleet sits one hop below the resolved parent.
		if level >= MaxFleetChildDepth {
			return Decision{}, errs.ErrForbidden
		}
	case OpFleetDelete, OpAssignDevice:
		// The owned root itself is off limits: it can neither be deleted
		// nor carry devices directly.
		if level < 1 {
			return Decision{}, errs.ErrForbidden
		}
	case OpFleetRead, OpFleetUpdate, OpAssignUser:
		// Any resolved level within the owned subtree is enough.
	}
	return Decision{Level: level}, nil
}

func (g *Guard) user(ctx context.Context, ident Identity, op Op, t Target) (Decision, error) {
	if op != OpFleetRead {
		return Decision{}, errs.ErrForbidden
	}
	member, err := g.memberOf(ctx, ident.Email, t.FleetID)
	if err != nil {
		return Decision{}, err
	}
	if !member {
		return Decision{}, errs.ErrNotOwned
	}
	return Decision{}, nil
}

func (g *Guard) memberOf(ctx context.Context, email string, fleetID int64) (bool, error) {
	ids, err := g.store.MemberFleetIDs(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return false, errs.ErrNotOwned
		}
		return false, err
	}
	for _, id := range ids {
		if id == fleetID {
			return true, nil
		}
	}
	return false, nil
}

// VisibleFleetIDs returns the fleet ids a caller may list, or nil when the
// caller may list everything (ADMIN). DEVICE callers are denied.
func (g *Guard) VisibleFleetIDs(ctx context.Context, ident Identity) ([]int64, error) {
	switch ident.Role {
	case model.RoleAdmin:
		return nil, nil
	case model.RoleFleetAdmin:
		return g.ownedSubtreeIDs(ctx, ident)
	case model.RoleUser:
		ids, err := g.store.MemberFleetIDs(ctx, ident.Email)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return nil, errs.ErrNotOwned
			}
			return nil, err
		}
		return ids, nil
	case model.RoleDevice:
		return nil, errs.ErrForbidden
	}
	return nil, errs.ErrForbidden
}

// ownedSubtreeIDs collects the caller's roots and their descendants, level by
// level down to the depth cap.
func (g *Guard) ownedSubtreeIDs(ctx context.Context, ident Identity) ([]int64, error) {
	roots, err := ResolveOwnedRoots(ctx, g.store, ident.Email)
	if err != nil {
		return nil, err
	}
	frontier := make([]int64, 0, len(roots))
	for id := range roots {
		frontier = append(frontier, id)
	}
	out := append([]int64(nil), frontier...)
	for depth := 0; depth < MaxFleetChildDepth && len(frontier) > 0; depth++ {
		var next []int64
		for _, id := range frontier {
			children, err := g.store.FindChildren(ctx, id)
			if err != nil {
				return nil, err
			}
			for _, c := range children {
				next = append(next, c.ID)
			}
		}
		out = append(out, next...)
		frontier = next
	}
	return out, nil
}

// CanReadDevice decides whether the caller may read telemetry of a device
// that belongs to the given fleets. ADMIN always may; FLEET_ADMIN if any of
// the fleets resolves through the ascent; USER if it shares a fleet
// membership with the device.
func (g *Guard) CanReadDevice(ctx context.Context, ident Identity, fleetIDs []int64) error {
	switch ident.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleFleetAdmin:
		roots, err := ResolveOwnedRoots(ctx, g.store, ident.Email)
		if err != nil {
			return err
		}
		snap, err := g.store.Snapshot(ctx)
		if err != nil {
			return err
		}
		defer snap.Close(ctx)
		for _, id := range fleetIDs {
			if _, err := LevelByID(ctx, snap, id, roots); err == nil {
				return nil
			} else if !errors.Is(err, errs.ErrNotOwned) {
				return err
			}
		}
		return errs.ErrNotOwned
	case model.RoleUser:
		member, err := g.store.MemberFleetIDs(ctx, ident.Email)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrNotOwned
			}
			return err
		}
		for _, m := range member {
			for _, id := range fleetIDs {
				if m == id {
					return nil
				}
			}
		}
		return errs.ErrNotOwned
	case model.RoleDevice:
		return errs.ErrForbidden
	}
	return errs.ErrForbidden
}
