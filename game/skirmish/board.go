package skirmish

import (
	"fmt"
	"sync"

	"github.com/kasuganosora/tacticsai/game/ai"
)

// Board is the grid the skirmish is fought on. It implements ai.Roster and
// ai.Passability. Units keep their insertion order, which is the roster
// order finders break ties by.
type Board struct {
	width, height int

	mu        sync.RWMutex
	obstacles map[ai.Point]bool
	units     []*Combatant
	byID      map[string]*Combatant
}

// NewBoard creates an empty board.
func NewBoard(width, height int) *Board {
	return &Board{
		width:     width,
		height:    height,
		obstacles: make(map[ai.Point]bool),
		byID:      make(map[string]*Combatant),
	}
}

func (b *Board) Width() int  { return b.width }
func (b *Board) Height() int { return b.height }

// AddObstacle blocks a tile.
func (b *Board) AddObstacle(p ai.Point) {
	b.mu.Lock()
	b.obstacles[p] = true
	b.mu.Unlock()
}

// Place puts a combatant on the board.
func (b *Board) Place(c *Combatant) error {
	p := c.Pos()
	if !b.InBounds(p) {
		return fmt.Errorf("place %s: %v out of bounds", c.ID(), p)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, dup := b.byID[c.ID()]; dup {
		return fmt.Errorf("place %s: duplicate unit id", c.ID())
	}
	if b.obstacles[p] {
		return fmt.Errorf("place %s: %v is blocked", c.ID(), p)
	}
	for _, u := range b.units {
		if u.IsAlive() && u.Pos() == p {
			return fmt.Errorf("place %s: %v is occupied by %s", c.ID(), p, u.ID())
		}
	}
	b.units = append(b.units, c)
	b.byID[c.ID()] = c
	return nil
}

// Unit returns the combatant with the given id.
func (b *Board) Unit(id string) (*Combatant, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.byID[id]
	return c, ok
}

// Units returns every combatant, defeated ones included.
func (b *Board) Units() []*Combatant {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Combatant, len(b.units))
	copy(out, b.units)
	return out
}

// Alive returns the combatants still standing.
func (b *Board) Alive() []*Combatant {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []*Combatant
	for _, u := range b.units {
		if u.IsAlive() {
			out = append(out, u)
		}
	}
	return out
}

// TeamsAlive returns the teams that still have a standing unit.
func (b *Board) TeamsAlive() map[int]int {
	teams := make(map[int]int)
	for _, u := range b.Alive() {
		teams[u.Team()]++
	}
	return teams
}

func (b *Board) side(u ai.Unit, same bool) []ai.Unit {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []ai.Unit
	for _, c := range b.units {
		if c.ID() == u.ID() || !c.IsAlive() {
			continue
		}
		if (c.Team() == u.Team()) == same {
			out = append(out, c)
		}
	}
	return out
}

func (b *Board) AlliesOf(u ai.Unit) []ai.Unit  { return b.side(u, true) }
func (b *Board) EnemiesOf(u ai.Unit) []ai.Unit { return b.side(u, false) }

// Occupied reports whether a living unit stands on p.
func (b *Board) Occupied(p ai.Point) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, u := range b.units {
		if u.IsAlive() && u.Pos() == p {
			return true
		}
	}
	return false
}

func (b *Board) InBounds(p ai.Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < b.width && p.Y < b.height
}

// Passable reports whether terrain allows standing on p. Units are not
// considered; GridPathfinder checks occupancy separately.
func (b *Board) Passable(p ai.Point) bool {
	if !b.InBounds(p) {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return !b.obstacles[p]
}

// Pathfinder returns an A* pathfinder over this board.
func (b *Board) Pathfinder() ai.GridPathfinder {
	return ai.GridPathfinder{Roster: b, Terrain: b}
}
