package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindRetreatSpot_MovesAway(t *testing.T) {
	u := newUnit("u", 0, 5, 5)
	e := newUnit("e", 1, 6, 5)
	f := newFixture(u, e)
	pf := GridPathfinder{Roster: f.world}

	tc := newTick(u)
	tc.Board.Set(KeyPath, []Point{{9, 9}})
	st, err := NewFindRetreatSpot(3, f.world, pf).Tick(context.Background(), tc)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, st)

	dest, ok := Lookup[Point](tc.Board, KeyDestination)
	require.True(t, ok)
	assert.Equal(t, 4, Manhattan(dest, e.pos))
	assert.LessOrEqual(t, Manhattan(dest, u.pos), 3)
	assert.False(t, tc.Board.Has(KeyPath), "stale path must be cleared")
}

func TestFindRetreatSpot_Cornered(t *testing.T) {
	u := newUnit("u", 0, 0, 0)
	e := newUnit("e", 1, 1, 0)
	f := newFixture(u, e)
	f.world.w, f.world.h = 2, 1

	st, err := NewFindRetreatSpot(3, f.world, GridPathfinder{Roster: f.world}).Tick(context.Background(), newTick(u))
	require.NoError(t, err)
	assert.Equal(t, StatusFailure, st)
}

func TestFindRetreatSpot_NoEnemies(t *testing.T) {
	u := newUnit("u", 0, 0, 0)
	f := newFixture(u)
	st, err := NewFindRetreatSpot(3, f.world, GridPathfinder{Roster: f.world}).Tick(context.Background(), newTick(u))
	require.NoError(t, err)
	assert.Equal(t, StatusFailure, st)
}

func TestFindSafeHealSpot_StaysNearAllies(t *testing.T) {
	h := newUnit("h", 0, 5, 5)
	ally := newUnit("ally", 0, 4, 5)
	e := newUnit("e", 1, 7, 5)
	f := newFixture(h, ally, e)

	tc := newTick(h)
	st, err := NewFindSafeHealSpot(4, 2, f.world, GridPathfinder{Roster: f.world}).Tick(context.Background(), tc)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, st)

	dest, _ := Lookup[Point](tc.Board, KeyDestination)
	assert.LessOrEqual(t, Manhattan(dest, ally.pos), 2)
	assert.Greater(t, Manhattan(dest, e.pos), 2)
}

func TestFindSafeHealSpot_NoAllies(t *testing.T) {
	h := newUnit("h", 0, 5, 5)
	f := newFixture(h, newUnit("e", 1, 6, 5))
	st, err := NewFindSafeHealSpot(4, 3, f.world, GridPathfinder{Roster: f.world}).Tick(context.Background(), newTick(h))
	require.NoError(t, err)
	assert.Equal(t, StatusFailure, st)
}

func TestFindKiteSpot(t *testing.T) {
	r := newUnit("r", 0, 5, 5)
	r.atkRange = 3
	e := newUnit("e", 1, 6, 5)
	f := newFixture(r, e)

	tc := newTick(r)
	tc.Board.Set(KeyCurrentTarget, e)
	st, err := NewFindKiteSpot(4, 2, f.world, GridPathfinder{Roster: f.world}).Tick(context.Background(), tc)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, st)

	dest, _ := Lookup[Point](tc.Board, KeyDestination)
	assert.Equal(t, 3, Manhattan(dest, e.pos))
}

func TestFindApproachSpot(t *testing.T) {
	u := newUnit("u", 0, 2, 2)
	e := newUnit("e", 1, 8, 2)
	f := newFixture(u, e)
	node := NewFindApproachSpot(4, f.world, GridPathfinder{Roster: f.world})

	st, _ := node.Tick(context.Background(), newTick(u))
	assert.Equal(t, StatusFailure, st, "no target")

	tc := newTick(u)
	tc.Board.Set(KeyCurrentTarget, e)
	st, err := node.Tick(context.Background(), tc)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, st)
	dest, _ := Lookup[Point](tc.Board, KeyDestination)
	assert.Equal(t, Point{6, 2}, dest)
}

func TestPositionSearch_MissingCollaborator(t *testing.T) {
	u := newUnit("u", 0, 0, 0)
	_, err := NewFindApproachSpot(4, nil, nil).Tick(context.Background(), newTick(u))
	assert.ErrorIs(t, err, ErrMissingCollaborator)
}

func TestFindPathAndMove(t *testing.T) {
	u := newUnit("u", 0, 0, 0)
	f := newFixture(u)
	tc := newTick(u)

	st, _ := (&FindPath{Pathfinder: GridPathfinder{Roster: f.world}}).Tick(context.Background(), tc)
	assert.Equal(t, StatusFailure, st, "no destination")

	tc.Board.Set(KeyDestination, Point{2, 1})
	st, err := (&FindPath{Pathfinder: GridPathfinder{Roster: f.world}}).Tick(context.Background(), tc)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, st)

	move := &MoveAlongPath{Mover: f.mover}
	st, err = move.Tick(context.Background(), tc)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, st)
	assert.Equal(t, Point{2, 1}, u.pos)
	assert.True(t, u.HasMoved())

	st, _ = move.Tick(context.Background(), tc)
	assert.Equal(t, StatusFailure, st, "already moved")
	assert.Equal(t, 1, f.mover.moves)
}

func TestFindPath_DestinationIsCurrentTile(t *testing.T) {
	u := newUnit("u", 0, 3, 3)
	f := newFixture(u)
	tc := newTick(u)
	tc.Board.Set(KeyDestination, u.pos)

	st, err := (&FindPath{Pathfinder: GridPathfinder{Roster: f.world}}).Tick(context.Background(), tc)
	require.NoError(t, err)
	assert.Equal(t, StatusFailure, st)
}
