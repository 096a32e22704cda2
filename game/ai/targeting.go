package ai

import (
	"context"
	"fmt"
	"strings"
)

// setTarget writes the pick under both target keys.
func setTarget(tc *TickContext, target Unit) {
	tc.Board.Set(KeyCurrentTarget, target)
	tc.Board.Set(KeySkillTarget, target)
	tc.Notef("target %s", target.ID())
}

// FindNearestEnemy targets the closest living enemy.
type FindNearestEnemy struct {
	Roster Roster
}

func (FindNearestEnemy) Name() string { return "find-nearest-enemy" }

func (f *FindNearestEnemy) Tick(_ context.Context, tc *TickContext) (Status, error) {
	if f.Roster == nil {
		return StatusFailure, missing(f.Name(), "roster")
	}
	target, _ := nearest(tc.Unit.Pos(), f.Roster.EnemiesOf(tc.Unit))
	if target == nil {
		return StatusFailure, nil
	}
	setTarget(tc, target)
	return StatusSuccess, nil
}

// FindLowestHPEnemy targets the living enemy with the least current HP.
type FindLowestHPEnemy struct {
	Roster Roster
}

func (FindLowestHPEnemy) Name() string { return "find-lowest-hp-enemy" }

func (f *FindLowestHPEnemy) Tick(_ context.Context, tc *TickContext) (Status, error) {
	if f.Roster == nil {
		return StatusFailure, missing(f.Name(), "roster")
	}
	var best Unit
	for _, e := range f.Roster.EnemiesOf(tc.Unit) {
		if e == nil || !e.IsAlive() {
			continue
		}
		if best == nil || e.HP() < best.HP() {
			best = e
		}
	}
	if best == nil {
		return StatusFailure, nil
	}
	setTarget(tc, best)
	return StatusSuccess, nil
}

// FindPriorityEnemy targets enemies whose role is listed in Roles. Earlier
// roles win; within a role the closest enemy wins. Fails when no enemy has
// a listed role.
type FindPriorityEnemy struct {
	Roles  []Role
	Roster Roster
}

func (f *FindPriorityEnemy) Name() string {
	names := make([]string, len(f.Roles))
	for i, r := range f.Roles {
		names[i] = string(r)
	}
	return "find-priority-enemy(" + strings.Join(names, ",") + ")"
}

func (f *FindPriorityEnemy) Tick(_ context.Context, tc *TickContext) (Status, error) {
	if f.Roster == nil {
		return StatusFailure, missing(f.Name(), "roster")
	}
	rank := make(map[Role]int, len(f.Roles))
	for i, r := range f.Roles {
		if _, dup := rank[r]; !dup {
			rank[r] = i
		}
	}
	var best Unit
	bestRank, bestDist := 0, 0
	for _, e := range f.Roster.EnemiesOf(tc.Unit) {
		if e == nil || !e.IsAlive() {
			continue
		}
		r, ok := rank[e.Role()]
		if !ok {
			continue
		}
		d := Manhattan(tc.Unit.Pos(), e.Pos())
		if best == nil || r < bestRank || (r == bestRank && d < bestDist) {
			best, bestRank, bestDist = e, r, d
		}
	}
	if best == nil {
		return StatusFailure, nil
	}
	setTarget(tc, best)
	return StatusSuccess, nil
}

// FindWoundedAlly targets the ally with the lowest HP ratio below Threshold.
// With IncludeSelf the acting unit is a candidate too.
type FindWoundedAlly struct {
	Threshold   float64
	IncludeSelf bool
	Roster      Roster
}

func (f *FindWoundedAlly) Name() string { return fmt.Sprintf("find-wounded-ally<%.2f", f.Threshold) }

func (f *FindWoundedAlly) Tick(_ context.Context, tc *TickContext) (Status, error) {
	if f.Roster == nil {
		return StatusFailure, missing(f.Name(), "roster")
	}
	candidates := f.Roster.AlliesOf(tc.Unit)
	if f.IncludeSelf {
		candidates = append([]Unit{tc.Unit}, candidates...)
	}
	best, ratio := mostWounded(candidates)
	if best == nil || ratio >= f.Threshold {
		return StatusFailure, nil
	}
	setTarget(tc, best)
	return StatusSuccess, nil
}

// FindThreatToAlly targets the enemy closest to the most wounded ally.
type FindThreatToAlly struct {
	Roster Roster
}

func (FindThreatToAlly) Name() string { return "find-threat-to-ally" }

func (f *FindThreatToAlly) Tick(_ context.Context, tc *TickContext) (Status, error) {
	if f.Roster == nil {
		return StatusFailure, missing(f.Name(), "roster")
	}
	ward, ratio := mostWounded(f.Roster.AlliesOf(tc.Unit))
	if ward == nil || ratio >= 1 {
		return StatusFailure, nil
	}
	threat, _ := nearest(ward.Pos(), f.Roster.EnemiesOf(tc.Unit))
	if threat == nil {
		return StatusFailure, nil
	}
	setTarget(tc, threat)
	tc.Notef("%s threatens %s", threat.ID(), ward.ID())
	return StatusSuccess, nil
}

func hpRatio(u Unit) float64 {
	if u.MaxHP() <= 0 {
		return 0
	}
	return float64(u.HP()) / float64(u.MaxHP())
}

func mostWounded(units []Unit) (Unit, float64) {
	var best Unit
	bestRatio := 0.0
	for _, u := range units {
		if u == nil || !u.IsAlive() {
			continue
		}
		r := hpRatio(u)
		if best == nil || r < bestRatio {
			best, bestRatio = u, r
		}
	}
	return best, bestRatio
}
