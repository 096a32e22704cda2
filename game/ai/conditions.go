package ai

import (
	"context"
	"fmt"
)

// HealthBelow succeeds when the acting unit's HP ratio is strictly below Threshold.
type HealthBelow struct {
	Threshold float64
}

func (h *HealthBelow) Name() string { return fmt.Sprintf("hp<%.2f", h.Threshold) }

func (h *HealthBelow) Tick(_ context.Context, tc *TickContext) (Status, error) {
	u := tc.Unit
	if u.MaxHP() <= 0 {
		return StatusFailure, nil
	}
	ratio := float64(u.HP()) / float64(u.MaxHP())
	tc.Notef("hp ratio %.2f", ratio)
	if ratio < h.Threshold {
		return StatusSuccess, nil
	}
	return StatusFailure, nil
}

// HasNotMoved succeeds while the unit still has its movement for this turn.
type HasNotMoved struct{}

func (HasNotMoved) Name() string { return "has-not-moved" }

func (HasNotMoved) Tick(_ context.Context, tc *TickContext) (Status, error) {
	if tc.Unit.HasMoved() {
		return StatusFailure, nil
	}
	return StatusSuccess, nil
}

// TargetInRange succeeds when the current target is within the selected
// skill's range, or within the unit's attack range if no skill is selected.
// A range of zero only reaches distance zero.
type TargetInRange struct{}

func (TargetInRange) Name() string { return "target-in-range" }

func (TargetInRange) Tick(_ context.Context, tc *TickContext) (Status, error) {
	target, ok := Lookup[Unit](tc.Board, KeyCurrentTarget)
	if !ok || !target.IsAlive() {
		return StatusFailure, nil
	}
	rng := tc.Unit.AttackRange()
	if skill, ok := Lookup[*SkillDescriptor](tc.Board, KeySelectedSkill); ok {
		rng = skill.Range
	}
	dist := Manhattan(tc.Unit.Pos(), target.Pos())
	tc.Notef("distance %d range %d", dist, rng)
	if dist <= rng {
		return StatusSuccess, nil
	}
	return StatusFailure, nil
}

// TargetValid succeeds when the unit stored under Key still stands.
type TargetValid struct {
	Key string
}

func (t *TargetValid) Name() string { return "valid(" + t.Key + ")" }

func (t *TargetValid) Tick(_ context.Context, tc *TickContext) (Status, error) {
	target, ok := Lookup[Unit](tc.Board, t.Key)
	if !ok || !target.IsAlive() || target.HP() <= 0 {
		return StatusFailure, nil
	}
	return StatusSuccess, nil
}

// EnemyWithin succeeds when an enemy stands inside the danger zone and
// records the closest one as the threat.
type EnemyWithin struct {
	Radius int
	Roster Roster
}

func (e *EnemyWithin) Name() string { return fmt.Sprintf("enemy-within-%d", e.Radius) }

func (e *EnemyWithin) Tick(_ context.Context, tc *TickContext) (Status, error) {
	if e.Roster == nil {
		return StatusFailure, missing(e.Name(), "roster")
	}
	threat, dist := nearest(tc.Unit.Pos(), e.Roster.EnemiesOf(tc.Unit))
	if threat == nil || dist > e.Radius {
		return StatusFailure, nil
	}
	tc.Board.Set(KeyThreat, threat)
	tc.Notef("%s at %d", threat.ID(), dist)
	return StatusSuccess, nil
}

// nearest returns the first closest living unit; ties keep the earlier one.
func nearest(from Point, units []Unit) (Unit, int) {
	var best Unit
	bestDist := 0
	for _, u := range units {
		if u == nil || !u.IsAlive() {
			continue
		}
		d := Manhattan(from, u.Pos())
		if best == nil || d < bestDist {
			best, bestDist = u, d
		}
	}
	return best, bestDist
}

// minDistance is the distance from p to the closest living unit, or -1 if none.
func minDistance(p Point, units []Unit) int {
	u, d := nearest(p, units)
	if u == nil {
		return -1
	}
	return d
}
