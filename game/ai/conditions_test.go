package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthBelow(t *testing.T) {
	u := newUnit("u", 0, 0, 0)
	cases := []struct {
		hp   int
		want Status
	}{
		{25, StatusSuccess},
		{29, StatusSuccess},
		{30, StatusFailure},
		{100, StatusFailure},
	}
	for _, c := range cases {
		u.hp = c.hp
		st, err := (&HealthBelow{Threshold: 0.30}).Tick(context.Background(), newTick(u))
		require.NoError(t, err)
		assert.Equal(t, c.want, st, "hp %d", c.hp)
	}
}

func TestHasNotMoved(t *testing.T) {
	u := newUnit("u", 0, 0, 0)
	st, _ := HasNotMoved{}.Tick(context.Background(), newTick(u))
	assert.Equal(t, StatusSuccess, st)
	u.MarkMoved()
	st, _ = HasNotMoved{}.Tick(context.Background(), newTick(u))
	assert.Equal(t, StatusFailure, st)
}

func TestTargetInRange_ZeroRange(t *testing.T) {
	u := newUnit("u", 0, 2, 2)
	adjacent := newUnit("a", 1, 3, 2)
	same := newUnit("s", 1, 2, 2)
	zero := &SkillDescriptor{ID: "touch", Kind: SkillDamage, Range: 0}

	tc := newTick(u)
	tc.Board.Set(KeySelectedSkill, zero)
	tc.Board.Set(KeyCurrentTarget, adjacent)
	st, err := TargetInRange{}.Tick(context.Background(), tc)
	require.NoError(t, err)
	assert.Equal(t, StatusFailure, st, "range 0 must not reach distance 1")

	tc.Board.Set(KeyCurrentTarget, same)
	st, err = TargetInRange{}.Tick(context.Background(), tc)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, st)
}

func TestTargetInRange_FallsBackToAttackRange(t *testing.T) {
	u := newUnit("u", 0, 0, 0)
	u.atkRange = 2
	tc := newTick(u)

	st, _ := TargetInRange{}.Tick(context.Background(), tc)
	assert.Equal(t, StatusFailure, st, "no target")

	tc.Board.Set(KeyCurrentTarget, newUnit("e", 1, 2, 0))
	st, _ = TargetInRange{}.Tick(context.Background(), tc)
	assert.Equal(t, StatusSuccess, st)

	tc.Board.Set(KeyCurrentTarget, newUnit("e", 1, 2, 1))
	st, _ = TargetInRange{}.Tick(context.Background(), tc)
	assert.Equal(t, StatusFailure, st)
}

func TestTargetValid(t *testing.T) {
	e := newUnit("e", 1, 0, 0)
	tc := newTick(newUnit("u", 0, 1, 0))
	node := &TargetValid{Key: KeyCurrentTarget}

	st, _ := node.Tick(context.Background(), tc)
	assert.Equal(t, StatusFailure, st)

	tc.Board.Set(KeyCurrentTarget, e)
	st, _ = node.Tick(context.Background(), tc)
	assert.Equal(t, StatusSuccess, st)

	e.hp = 0
	st, _ = node.Tick(context.Background(), tc)
	assert.Equal(t, StatusFailure, st)
}

func TestEnemyWithin(t *testing.T) {
	u := newUnit("u", 0, 0, 0)
	far := newUnit("far", 1, 5, 5)
	near := newUnit("near", 1, 2, 0)
	f := newFixture(u, far, near)

	tc := newTick(u)
	st, err := (&EnemyWithin{Radius: 2, Roster: f.world}).Tick(context.Background(), tc)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, st)
	threat, ok := Lookup[Unit](tc.Board, KeyThreat)
	require.True(t, ok)
	assert.Equal(t, "near", threat.ID())

	st, _ = (&EnemyWithin{Radius: 1, Roster: f.world}).Tick(context.Background(), newTick(u))
	assert.Equal(t, StatusFailure, st)

	_, err = (&EnemyWithin{Radius: 1}).Tick(context.Background(), newTick(u))
	assert.ErrorIs(t, err, ErrMissingCollaborator)
}

func TestFindNearestEnemy_TieKeepsRosterOrder(t *testing.T) {
	u := newUnit("u", 0, 5, 5)
	first := newUnit("first", 1, 5, 7)
	second := newUnit("second", 1, 7, 5)
	ally := newUnit("ally", 0, 5, 6)
	f := newFixture(u, ally, first, second)

	tc := newTick(u)
	st, err := (&FindNearestEnemy{Roster: f.world}).Tick(context.Background(), tc)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, st)

	cur, _ := Lookup[Unit](tc.Board, KeyCurrentTarget)
	skillTarget, _ := Lookup[Unit](tc.Board, KeySkillTarget)
	assert.Equal(t, "first", cur.ID())
	assert.Equal(t, "first", skillTarget.ID())
}

func TestFindNearestEnemy_NoEnemies(t *testing.T) {
	u := newUnit("u", 0, 0, 0)
	dead := newUnit("dead", 1, 1, 0)
	dead.hp = 0
	f := newFixture(u, dead)

	st, err := (&FindNearestEnemy{Roster: f.world}).Tick(context.Background(), newTick(u))
	require.NoError(t, err)
	assert.Equal(t, StatusFailure, st)
}

func TestFindLowestHPEnemy(t *testing.T) {
	u := newUnit("u", 0, 0, 0)
	a := newUnit("a", 1, 1, 0)
	b := newUnit("b", 1, 9, 9)
	b.hp = 10
	f := newFixture(u, a, b)

	tc := newTick(u)
	st, _ := (&FindLowestHPEnemy{Roster: f.world}).Tick(context.Background(), tc)
	require.Equal(t, StatusSuccess, st)
	target, _ := Lookup[Unit](tc.Board, KeyCurrentTarget)
	assert.Equal(t, "b", target.ID())
}

func TestFindPriorityEnemy(t *testing.T) {
	u := newUnit("u", 0, 0, 0)
	melee := newUnit("melee", 1, 1, 0)
	rangedFar := newUnit("ranged-far", 1, 8, 0)
	rangedFar.role = RoleRanged
	rangedNear := newUnit("ranged-near", 1, 4, 0)
	rangedNear.role = RoleRanged
	healer := newUnit("healer", 1, 9, 9)
	healer.role = RoleHealer
	f := newFixture(u, melee, rangedFar, rangedNear, healer)

	node := &FindPriorityEnemy{Roles: []Role{RoleHealer, RoleRanged}, Roster: f.world}
	tc := newTick(u)
	st, _ := node.Tick(context.Background(), tc)
	require.Equal(t, StatusSuccess, st)
	target, _ := Lookup[Unit](tc.Board, KeyCurrentTarget)
	assert.Equal(t, "healer", target.ID())

	healer.hp = 0
	tc = newTick(u)
	st, _ = node.Tick(context.Background(), tc)
	require.Equal(t, StatusSuccess, st)
	target, _ = Lookup[Unit](tc.Board, KeyCurrentTarget)
	assert.Equal(t, "ranged-near", target.ID())

	st, _ = (&FindPriorityEnemy{Roles: []Role{RoleSupport}, Roster: f.world}).Tick(context.Background(), newTick(u))
	assert.Equal(t, StatusFailure, st)
}

func TestFindWoundedAlly(t *testing.T) {
	u := newUnit("u", 0, 0, 0)
	u.hp = 40
	ally := newUnit("ally", 0, 1, 0)
	ally.hp = 50
	f := newFixture(u, ally, newUnit("e", 1, 5, 5))

	tc := newTick(u)
	st, _ := (&FindWoundedAlly{Threshold: 0.6, Roster: f.world}).Tick(context.Background(), tc)
	require.Equal(t, StatusSuccess, st)
	target, _ := Lookup[Unit](tc.Board, KeySkillTarget)
	assert.Equal(t, "ally", target.ID())

	tc = newTick(u)
	st, _ = (&FindWoundedAlly{Threshold: 0.6, IncludeSelf: true, Roster: f.world}).Tick(context.Background(), tc)
	require.Equal(t, StatusSuccess, st)
	target, _ = Lookup[Unit](tc.Board, KeySkillTarget)
	assert.Equal(t, "u", target.ID())

	st, _ = (&FindWoundedAlly{Threshold: 0.3, IncludeSelf: true, Roster: f.world}).Tick(context.Background(), newTick(u))
	assert.Equal(t, StatusFailure, st)
}

func TestFindThreatToAlly(t *testing.T) {
	u := newUnit("u", 0, 5, 5)
	ward := newUnit("ward", 0, 0, 0)
	ward.hp = 30
	nearU := newUnit("near-u", 1, 5, 6)
	nearWard := newUnit("near-ward", 1, 0, 1)
	f := newFixture(u, ward, nearU, nearWard)

	tc := newTick(u)
	st, _ := (&FindThreatToAlly{Roster: f.world}).Tick(context.Background(), tc)
	require.Equal(t, StatusSuccess, st)
	target, _ := Lookup[Unit](tc.Board, KeyCurrentTarget)
	assert.Equal(t, "near-ward", target.ID())

	ward.hp = 100
	st, _ = (&FindThreatToAlly{Roster: f.world}).Tick(context.Background(), newTick(u))
	assert.Equal(t, StatusFailure, st, "no wounded ally")
}
