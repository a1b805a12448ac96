package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vehtrack/vehtrack/internal/authz"
	"github.com/vehtrack/vehtrack/internal/errs"
	"github.com/vehtrack/vehtrack/internal/model"
	"github.com/vehtrack/vehtrack/internal/repository"
)

func ptr(v int64) *int64 { return &v }

// fleetFixture: owner@ owns root 1 with child 3; stranger root 2;
// user@ is a member of fleet 3.
func fleetFixture() (*FleetServiceImpl, *fakeFleets, *fakeUsers, *fakeDevices) {
	fleets := newFakeFleets()
	fleets.add(model.Fleet{ID: 1, Name: "alpha"})
	fleets.add(model.Fleet{ID: 2, Name: "bravo"})
	fleets.add(model.Fleet{ID: 3, Name: "alpha.sub", ParentID: ptr(1)})
	fleets.roots["owner@test.com"] = []int64{1}
	fleets.members["user@test.com"] = []int64{3}

	users := newFakeUsers()
	devices := newFakeDevices()
	svc := NewFleetService(authz.NewGuard(fleets), fleets, users, devices)
	return svc, fleets, users, devices
}

var (
	adminID  = authz.Identity{Email: "admin@test.com", Role: model.RoleAdmin}
	ownerID  = authz.Identity{Email: "owner@test.com", Role: model.RoleFleetAdmin}
	userID   = authz.Identity{Email: "user@test.com", Role: model.RoleUser}
	deviceID = authz.Identity{Email: "dev@test.com", Role: model.RoleDevice}
)

func TestFleetList_ScopedByRole(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, _, _ := fleetFixture()

	all, err := svc.List(ctx, adminID, repository.FleetFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	owned, err := svc.List(ctx, ownerID, repository.FleetFilter{})
	require.NoError(t, err)
	require.Len(t, owned, 2) // root 1 and child 3

	member, err := svc.List(ctx, userID, repository.FleetFilter{})
	require.NoError(t, err)
	require.Len(t, member, 1)
	require.Equal(t, int64(3), member[0].ID)

	// An explicit filter never widens the scope.
	none, err := svc.List(ctx, ownerID, repository.FleetFilter{IDs: []int64{2}})
	require.NoError(t, err)
	require.Empty(t, none)

	_, err = svc.List(ctx, deviceID, repository.FleetFilter{})
	require.ErrorIs(t, err, errs.ErrForbidden)
}

func TestFleetCreate_DenyLeavesStoreUntouched(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, fleets, _, _ := fleetFixture()

	// Under someone else's root.
	err := svc.Create(ctx, ownerID, &model.Fleet{Name: "intruder", ParentID: ptr(2)})
	require.ErrorIs(t, err, errs.ErrNotOwned)
	require.Empty(t, fleets.created)

	// New root without a parent.
	err = svc.Create(ctx, ownerID, &model.Fleet{Name: "rogue.root"})
	require.ErrorIs(t, err, errs.ErrNotOwned)

	// Invalid name fails before any decision.
	err = svc.Create(ctx, adminID, &model.Fleet{Name: "no spaces allowed"})
	require.Error(t, err)
	require.Empty(t, fleets.created)

	// Owned parent passes.
	fl := &model.Fleet{Name: "alpha.sub2", ParentID: ptr(3)}
	require.NoError(t, svc.Create(ctx, ownerID, fl))
	require.NotZero(t, fl.ID)
}

func TestFleetCreateBatch_AdminOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, fleets, _, _ := fleetFixture()

	batch := []*model.Fleet{{Name: "n1"}, {Name: "n2"}}
	require.ErrorIs(t, svc.CreateBatch(ctx, ownerID, batch), errs.ErrForbidden)
	require.Empty(t, fleets.created)

	require.NoError(t, svc.CreateBatch(ctx, adminID, batch))
	require.Len(t, fleets.created, 2)
}

func TestFleetDelete_RootProtected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, fleets, _, _ := fleetFixture()

	require.ErrorIs(t, svc.Delete(ctx, ownerID, 1), errs.ErrForbidden)
	require.ErrorIs(t, svc.Delete(ctx, ownerID, 2), errs.ErrNotOwned)
	require.Empty(t, fleets.deleted)

	require.NoError(t, svc.Delete(ctx, ownerID, 3))
	require.Equal(t, []int64{3}, fleets.deleted)

	// ADMIN may delete roots; a missing fleet is a plain not-found.
	require.NoError(t, svc.Delete(ctx, adminID, 2))
	require.ErrorIs(t, svc.Delete(ctx, adminID, 42), errs.ErrNotFound)
}

func TestFleetUpdate_MoveChecksDestination(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, _, _ := fleetFixture()

	// Rename in place.
	require.NoError(t, svc.Update(ctx, ownerID, &model.Fleet{ID: 3, Name: "renamed", ParentID: ptr(1)}))

	// Moving under a stranger's root is a deny even though fleet 3 is owned.
	err := svc.Update(ctx, ownerID, &model.Fleet{ID: 3, Name: "renamed", ParentID: ptr(2)})
	require.ErrorIs(t, err, errs.ErrNotOwned)
}

func TestFleetUpdate_RenameKeepsParent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, fleets, _, _ := fleetFixture()

	// A payload without a parent renames in place; fleet 3 stays under root 1
	// instead of detaching into a new root.
	require.NoError(t, svc.Update(ctx, ownerID, &model.Fleet{ID: 3, Name: "renamed"}))

	got, err := fleets.GetByID(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, "renamed", got.Name)
	require.NotNil(t, got.ParentID)
	require.Equal(t, int64(1), *got.ParentID)

	// The same shape on a root keeps it a root.
	require.NoError(t, svc.Update(ctx, adminID, &model.Fleet{ID: 2, Name: "bravo2"}))
	got, err = fleets.GetByID(ctx, 2)
	require.NoError(t, err)
	require.Nil(t, got.ParentID)
}

func TestFleetAssignments(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, fleets, users, devices := fleetFixture()

	require.NoError(t, users.Create(ctx, &model.User{Username: "jane", AccountEmail: "user@test.com"}))
	require.NoError(t, devices.Create(ctx, &model.Device{Serial: "serial_1", AccountEmail: "dev@test.com"}))

	// Users may be attached to the root, devices may not.
	require.NoError(t, svc.AddUser(ctx, ownerID, 1, "user@test.com"))
	require.ErrorIs(t, svc.AddDevice(ctx, ownerID, 1, "serial_1"), errs.ErrForbidden)
	require.NoError(t, svc.AddDevice(ctx, ownerID, 3, "serial_1"))

	// Unknown user or device surfaces as not-found after the decision.
	require.ErrorIs(t, svc.AddUser(ctx, ownerID, 3, "ghost@test.com"), errs.ErrNotFound)
	require.ErrorIs(t, svc.AddDevice(ctx, ownerID, 3, "serial_404"), errs.ErrNotFound)

	require.NoError(t, svc.RemoveUser(ctx, ownerID, 1, "user@test.com"))
	require.NoError(t, svc.RemoveDevice(ctx, ownerID, 3, "serial_1"))
	require.Equal(t, []string{"user+", "device+", "user-", "device-"}, fleets.links)
}

func TestFleetGet_ErrorMappingPerRole(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, _, _ := fleetFixture()

	// FLEET_ADMIN asking for an absent fleet gets a deny, not a 404: the
	// ascent cannot prove ownership of what does not exist.
	_, err := svc.Get(ctx, ownerID, 42)
	require.ErrorIs(t, err, errs.ErrNotOwned)

	// ADMIN bypasses the ascent and sees the real absence.
	_, err = svc.Get(ctx, adminID, 42)
	require.ErrorIs(t, err, errs.ErrNotFound)

	got, err := svc.Get(ctx, userID, 3)
	require.NoError(t, err)
	require.Equal(t, int64(3), got.ID)
}
