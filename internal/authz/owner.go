package authz

import (
	"context"
	"errors"

	"github.com/vehtrack/vehtrack/internal/errs"
)

// RootLinker resolves which root fleets an account administers.
type RootLinker interface {
	// LinkedRootIDs returns the root fleet ids linked to the user owned by
	// the given account email. errs.ErrNotFound when no user profile exists.
	LinkedRootIDs(ctx context.Context, email string) ([]int64, error)
}

// ResolveOwnedRoots returns the caller's owned root set. An account without a
// user profile denies everything ascent-dependent (ErrNotOwned); an existing
// user with zero roots yields an empty set, which the ascent then denies on
// its own. Storage faults propagate unchanged.
func ResolveOwnedRoots(ctx context.Context, links RootLinker, email string) (RootSet, error) {
	ids, err := links.LinkedRootIDs(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrNotOwned
		}
		return nil, err
	}
	return NewRootSet(ids), nil
}
