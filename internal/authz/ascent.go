// Package authz implements the hierarchical authorization core: the bounded
// ascent over the fleet tree, root-ownership resolution, and the role policy
// applied by every fleet-scoped operation.
package authz

import (
	"context"
	"errors"

	"github.com/vehtrack/vehtrack/internal/errs"
	"github.com/vehtrack/vehtrack/internal/model"
)

// MaxFleetChildDepth bounds the upward walk from a fleet to its root. It also
// caps how deep a FLEET_ADMIN may nest new fleets.
const MaxFleetChildDepth = 3

// FleetReader is the narrow read surface the ascent needs. Implementations
// must return errs.ErrNotFound for an absent row and a distinct error for
// storage faults; the two are never conflated here.
type FleetReader interface {
	GetByID(ctx context.Context, id int64) (*model.Fleet, error)
}

// RootSet is the set of root fleet ids an owner administers.
type RootSet map[int64]struct{}

// NewRootSet builds a RootSet from a slice of fleet ids.
func NewRootSet(ids []int64) RootSet {
	s := make(RootSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains reports whether id is in the set.
func (s RootSet) Contains(id int64) bool {
	_, ok := s[id]
	return ok
}

// LevelByID returns the hop count from the fleet with the given id up to a
// root contained in roots. 0 means the fleet itself is an owned root. Any
// outcome that is not a non-negative level is a deny: a missing node at any
// hop, an unowned root, or a chain longer than MaxFleetChildDepth all yield
// errs.ErrNotOwned. Storage faults propagate unchanged.
func LevelByID(ctx context.Context, fleets FleetReader, id int64, roots RootSet) (int, error) {
	return ascend(ctx, fleets, id, roots)
}

// LevelByParentID resolves the level of a candidate parent for fleet
// creation. A nil parent denies immediately: only ADMIN may create roots.
// When the candidate itself is an owned root the level is 0 without touching
// the store; otherwise the walk is the same as LevelByID.
func LevelByParentID(ctx context.Context, fleets FleetReader, parentID *int64, roots RootSet) (int, error) {
	if parentID == nil {
		return 0, errs.ErrNotOwned
	}
	if roots.Contains(*parentID) {
		return 0, nil
	}
	return ascend(ctx, fleets, *parentID, roots)
}

// ascend is the bounded iterative walk. The loop counter, not cycle
// detection, guarantees termination: even a corrupted cyclic parent chain
// reads at most MaxFleetChildDepth+1 nodes.
func ascend(ctx context.Context, fleets FleetReader, id int64, roots RootSet) (int, error) {
	cur := id
	for level := 0; level <= MaxFleetChildDepth; level++ {
		f, err := fleets.GetByID(ctx, cur)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				// A broken chain can never prove ownership.
				return 0, errs.ErrNotOwned
			}
			return 0, err
		}
		if f.IsRoot() {
			if roots.Contains(f.ID) {
				return level, nil
			}
			return 0, errs.ErrNotOwned
		}
		cur = *f.ParentID
	}
	return 0, errs.ErrNotOwned
}
