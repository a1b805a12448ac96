package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vehtrack/vehtrack/internal/errs"
	"github.com/vehtrack/vehtrack/internal/model"
)

// fakeReader serves fleet nodes from a map and counts reads, so tests can
// assert the termination bound.
type fakeReader struct {
	nodes  map[int64]*model.Fleet
	getErr error
	reads  int
}

func (f *fakeReader) GetByID(_ context.Context, id int64) (*model.Fleet, error) {
	f.reads++
	if f.getErr != nil {
		return nil, f.getErr
	}
	n, ok := f.nodes[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cpy := *n
	return &cpy, nil
}

func fleetNode(id int64, parent *int64) *model.Fleet {
	return &model.Fleet{ID: id, Name: "fleet", ParentID: parent}
}

func ptr(v int64) *int64 { return &v }

// chain builds root(1) <- 2 <- 3 <- ... <- n.
func chain(n int64) map[int64]*model.Fleet {
	nodes := map[int64]*model.Fleet{1: fleetNode(1, nil)}
	for id := int64(2); id <= n; id++ {
		nodes[id] = fleetNode(id, ptr(id-1))
	}
	return nodes
}

func TestLevelByID_RootMembership(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fleets := &fakeReader{nodes: chain(1)}

	lvl, err := LevelByID(ctx, fleets, 1, NewRootSet([]int64{1}))
	require.NoError(t, err)
	require.Equal(t, 0, lvl)

	// Same root, not in the owned set: level 0 never resolves for strangers.
	_, err = LevelByID(ctx, fleets, 1, NewRootSet([]int64{99}))
	require.ErrorIs(t, err, errs.ErrNotOwned)

	_, err = LevelByID(ctx, fleets, 1, NewRootSet(nil))
	require.ErrorIs(t, err, errs.ErrNotOwned)
}

func TestLevelByID_ExactChainLevels(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	roots := NewRootSet([]int64{1})

	// Chains of length L <= MaxFleetChildDepth resolve to exactly L.
	for l := int64(0); l <= MaxFleetChildDepth; l++ {
		fleets := &fakeReader{nodes: chain(l + 1)}
		lvl, err := LevelByID(ctx, fleets, l+1, roots)
		require.NoError(t, err, "chain length %d", l)
		require.Equal(t, int(l), lvl)
	}

	// One hop beyond the cap is NotOwned.
	fleets := &fakeReader{nodes: chain(MaxFleetChildDepth + 2)}
	_, err := LevelByID(ctx, fleets, MaxFleetChildDepth+2, roots)
	require.ErrorIs(t, err, errs.ErrNotOwned)
}

func TestLevelByID_CyclicTreeTerminates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// Corrupted data: 10 <-> 11 point at each other. The counter, not cycle
	// detection, must stop the walk.
	fleets := &fakeReader{nodes: map[int64]*model.Fleet{
		10: fleetNode(10, ptr(11)),
		11: fleetNode(11, ptr(10)),
	}}
	_, err := LevelByID(ctx, fleets, 10, NewRootSet([]int64{1}))
	require.ErrorIs(t, err, errs.ErrNotOwned)
	require.LessOrEqual(t, fleets.reads, MaxFleetChildDepth+1)

	// Self-loop.
	fleets = &fakeReader{nodes: map[int64]*model.Fleet{7: fleetNode(7, ptr(7))}}
	_, err = LevelByID(ctx, fleets, 7, NewRootSet([]int64{7}))
	require.ErrorIs(t, err, errs.ErrNotOwned)
	require.LessOrEqual(t, fleets.reads, MaxFleetChildDepth+1)
}

func TestLevelByID_BrokenChain(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	roots := NewRootSet([]int64{1})

	// Starting fleet absent.
	fleets := &fakeReader{nodes: chain(3)}
	_, err := LevelByID(ctx, fleets, 42, roots)
	require.ErrorIs(t, err, errs.ErrNotOwned)

	// Parent link dangling mid-ascent: stop immediately, deny.
	fleets = &fakeReader{nodes: map[int64]*model.Fleet{
		5: fleetNode(5, ptr(6)), // 6 does not exist
	}}
	_, err = LevelByID(ctx, fleets, 5, roots)
	require.ErrorIs(t, err, errs.ErrNotOwned)
	require.Equal(t, 2, fleets.reads)
}

func TestLevelByID_StoreFaultIsNotADeny(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	boom := errors.New("connection refused")
	fleets := &fakeReader{nodes: chain(2), getErr: boom}
	_, err := LevelByID(ctx, fleets, 2, NewRootSet([]int64{1}))
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, errs.ErrNotOwned)
	require.NotErrorIs(t, err, errs.ErrNotFound)
}

func TestLevelByParentID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	roots := NewRootSet([]int64{1})

	// A(id=1) root, C(id=3) child of A.
	nodes := map[int64]*model.Fleet{
		1: fleetNode(1, nil),
		3: fleetNode(3, ptr(1)),
	}

	// No parent given: only ADMIN creates roots.
	fleets := &fakeReader{nodes: nodes}
	_, err := LevelByParentID(ctx, fleets, nil, roots)
	require.ErrorIs(t, err, errs.ErrNotOwned)

	// Candidate parent is the owned root itself: level 0, no store reads.
	lvl, err := LevelByParentID(ctx, fleets, ptr(1), roots)
	require.NoError(t, err)
	require.Equal(t, 0, lvl)
	require.Equal(t, 0, fleets.reads)

	// Creating a grandchild under C: level 1.
	lvl, err = LevelByParentID(ctx, fleets, ptr(3), roots)
	require.NoError(t, err)
	require.Equal(t, 1, lvl)

	// Dangling candidate parent: deny, not a 404.
	_, err = LevelByParentID(ctx, fleets, ptr(77), roots)
	require.ErrorIs(t, err, errs.ErrNotOwned)
}

func TestLevelByParentID_DepthCap(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	roots := NewRootSet([]int64{1})

	// 1 <- 2 <- 3 <- 4: parent 4 sits at level 3 == MaxFleetChildDepth.
	// The level still resolves; the create rule itself rejects it.
	fleets := &fakeReader{nodes: chain(4)}
	lvl, err := LevelByParentID(ctx, fleets, ptr(4), roots)
	require.NoError(t, err)
	require.Equal(t, MaxFleetChildDepth, lvl)
	require.LessOrEqual(t, fleets.reads, MaxFleetChildDepth+1)
}
