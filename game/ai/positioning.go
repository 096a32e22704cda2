package ai

import (
	"context"
	"fmt"
)

type tileOption struct {
	pt   Point
	path []Point
}

// reachableTiles lists free tiles within radius steps of u, scanning rows top
// to bottom and left to right so ties resolve the same way every time.
func reachableTiles(ctx context.Context, u Unit, radius int, roster Roster, pf Pathfinder) ([]tileOption, error) {
	origin := u.Pos()
	var out []tileOption
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if abs(dx)+abs(dy) > radius {
				continue
			}
			p := Point{origin.X + dx, origin.Y + dy}
			if !roster.InBounds(p) || roster.Occupied(p) {
				continue
			}
			path, err := pf.FindPath(ctx, origin, p)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				// unreachable for now; skip the tile
				continue
			}
			if len(path) == 0 || len(path) > radius {
				continue
			}
			out = append(out, tileOption{pt: p, path: path})
		}
	}
	return out, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

type positionSearch struct {
	Radius     int
	Roster     Roster
	Pathfinder Pathfinder
}

func (s positionSearch) check(name string) error {
	if s.Roster == nil {
		return missing(name, "roster")
	}
	if s.Pathfinder == nil {
		return missing(name, "pathfinder")
	}
	return nil
}

func setDestination(tc *TickContext, p Point) {
	tc.Board.Set(KeyDestination, p)
	tc.Board.Delete(KeyPath)
	tc.Notef("destination (%d,%d)", p.X, p.Y)
}

// FindRetreatSpot picks the reachable tile that puts the most distance
// between the unit and its nearest enemy. It fails unless that strictly
// improves on standing still.
type FindRetreatSpot struct {
	positionSearch
}

// NewFindRetreatSpot creates a retreat search over tiles within radius steps.
func NewFindRetreatSpot(radius int, roster Roster, pf Pathfinder) *FindRetreatSpot {
	return &FindRetreatSpot{positionSearch{Radius: radius, Roster: roster, Pathfinder: pf}}
}

func (f *FindRetreatSpot) Name() string { return fmt.Sprintf("find-retreat-spot-%d", f.Radius) }

func (f *FindRetreatSpot) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	if err := f.check(f.Name()); err != nil {
		return StatusFailure, err
	}
	enemies := f.Roster.EnemiesOf(tc.Unit)
	best := minDistance(tc.Unit.Pos(), enemies)
	if best < 0 {
		return StatusFailure, nil
	}
	tiles, err := reachableTiles(ctx, tc.Unit, f.Radius, f.Roster, f.Pathfinder)
	if err != nil {
		return StatusFailure, err
	}
	var pick *tileOption
	for i := range tiles {
		if d := minDistance(tiles[i].pt, enemies); d > best {
			best, pick = d, &tiles[i]
		}
	}
	if pick == nil {
		return StatusFailure, nil
	}
	setDestination(tc, pick.pt)
	return StatusSuccess, nil
}

// FindSafeHealSpot is a retreat that stays within SupportRange of at least
// one ally, so the healer can keep supporting from the new tile.
type FindSafeHealSpot struct {
	positionSearch
	SupportRange int
}

// NewFindSafeHealSpot creates a safe-heal search.
func NewFindSafeHealSpot(radius, supportRange int, roster Roster, pf Pathfinder) *FindSafeHealSpot {
	return &FindSafeHealSpot{
		positionSearch: positionSearch{Radius: radius, Roster: roster, Pathfinder: pf},
		SupportRange:   supportRange,
	}
}

func (f *FindSafeHealSpot) Name() string {
	return fmt.Sprintf("find-safe-heal-spot-%d/%d", f.Radius, f.SupportRange)
}

func (f *FindSafeHealSpot) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	if err := f.check(f.Name()); err != nil {
		return StatusFailure, err
	}
	allies := f.Roster.AlliesOf(tc.Unit)
	enemies := f.Roster.EnemiesOf(tc.Unit)
	best := minDistance(tc.Unit.Pos(), enemies)
	if best < 0 || len(allies) == 0 {
		return StatusFailure, nil
	}
	tiles, err := reachableTiles(ctx, tc.Unit, f.Radius, f.Roster, f.Pathfinder)
	if err != nil {
		return StatusFailure, err
	}
	var pick *tileOption
	for i := range tiles {
		ally := minDistance(tiles[i].pt, allies)
		if ally < 0 || ally > f.SupportRange {
			continue
		}
		if d := minDistance(tiles[i].pt, enemies); d > best {
			best, pick = d, &tiles[i]
		}
	}
	if pick == nil {
		return StatusFailure, nil
	}
	setDestination(tc, pick.pt)
	return StatusSuccess, nil
}

// FindKiteSpot picks a tile from which the current target stays within
// attack range while every enemy is outside DangerZone.
type FindKiteSpot struct {
	positionSearch
	DangerZone int
}

// NewFindKiteSpot creates a kiting search.
func NewFindKiteSpot(radius, dangerZone int, roster Roster, pf Pathfinder) *FindKiteSpot {
	return &FindKiteSpot{
		positionSearch: positionSearch{Radius: radius, Roster: roster, Pathfinder: pf},
		DangerZone:     dangerZone,
	}
}

func (f *FindKiteSpot) Name() string {
	return fmt.Sprintf("find-kite-spot-%d/%d", f.Radius, f.DangerZone)
}

func (f *FindKiteSpot) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	if err := f.check(f.Name()); err != nil {
		return StatusFailure, err
	}
	target, ok := Lookup[Unit](tc.Board, KeyCurrentTarget)
	if !ok || !target.IsAlive() {
		return StatusFailure, nil
	}
	enemies := f.Roster.EnemiesOf(tc.Unit)
	tiles, err := reachableTiles(ctx, tc.Unit, f.Radius, f.Roster, f.Pathfinder)
	if err != nil {
		return StatusFailure, err
	}
	var pick *tileOption
	best := 0
	for i := range tiles {
		if Manhattan(tiles[i].pt, target.Pos()) > tc.Unit.AttackRange() {
			continue
		}
		d := minDistance(tiles[i].pt, enemies)
		if d <= f.DangerZone {
			continue
		}
		if pick == nil || d > best {
			best, pick = d, &tiles[i]
		}
	}
	if pick == nil {
		return StatusFailure, nil
	}
	setDestination(tc, pick.pt)
	return StatusSuccess, nil
}

// FindApproachSpot picks the reachable tile closest to the current target.
// It fails unless that is strictly closer than the unit already is.
type FindApproachSpot struct {
	positionSearch
}

// NewFindApproachSpot creates an approach search.
func NewFindApproachSpot(radius int, roster Roster, pf Pathfinder) *FindApproachSpot {
	return &FindApproachSpot{positionSearch{Radius: radius, Roster: roster, Pathfinder: pf}}
}

func (f *FindApproachSpot) Name() string { return fmt.Sprintf("find-approach-spot-%d", f.Radius) }

func (f *FindApproachSpot) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	if err := f.check(f.Name()); err != nil {
		return StatusFailure, err
	}
	target, ok := Lookup[Unit](tc.Board, KeyCurrentTarget)
	if !ok || !target.IsAlive() {
		return StatusFailure, nil
	}
	best := Manhattan(tc.Unit.Pos(), target.Pos())
	tiles, err := reachableTiles(ctx, tc.Unit, f.Radius, f.Roster, f.Pathfinder)
	if err != nil {
		return StatusFailure, err
	}
	var pick *tileOption
	for i := range tiles {
		if d := Manhattan(tiles[i].pt, target.Pos()); d < best {
			best, pick = d, &tiles[i]
		}
	}
	if pick == nil {
		return StatusFailure, nil
	}
	setDestination(tc, pick.pt)
	return StatusSuccess, nil
}

// FindPath turns the destination on the blackboard into a route.
type FindPath struct {
	Pathfinder Pathfinder
}

func (FindPath) Name() string { return "find-path" }

func (f *FindPath) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	if f.Pathfinder == nil {
		return StatusFailure, missing(f.Name(), "pathfinder")
	}
	dest, ok := Lookup[Point](tc.Board, KeyDestination)
	if !ok {
		return StatusFailure, nil
	}
	path, err := f.Pathfinder.FindPath(ctx, tc.Unit.Pos(), dest)
	if err != nil {
		if ctx.Err() != nil {
			return StatusFailure, ctx.Err()
		}
		tc.Notef("pathfinder: %v", err)
		return StatusFailure, nil
	}
	if len(path) == 0 {
		return StatusFailure, nil
	}
	tc.Board.Set(KeyPath, path)
	tc.Notef("%d steps", len(path))
	return StatusSuccess, nil
}

// MoveAlongPath hands the computed path to the movement system and marks
// the unit as moved.
type MoveAlongPath struct {
	Mover Mover
}

func (MoveAlongPath) Name() string { return "move-along-path" }

func (m *MoveAlongPath) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	if m.Mover == nil {
		return StatusFailure, missing(m.Name(), "mover")
	}
	path, ok := Lookup[[]Point](tc.Board, KeyPath)
	if !ok || len(path) == 0 || tc.Unit.HasMoved() {
		return StatusFailure, nil
	}
	if err := m.Mover.MoveAlong(ctx, tc.Unit, path); err != nil {
		if ctx.Err() != nil {
			return StatusFailure, ctx.Err()
		}
		tc.Notef("move rejected: %v", err)
		return StatusFailure, nil
	}
	tc.Unit.MarkMoved()
	end := path[len(path)-1]
	tc.Notef("moved to (%d,%d)", end.X, end.Y)
	return StatusSuccess, nil
}
