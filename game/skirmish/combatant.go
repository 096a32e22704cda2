package skirmish

import (
	"sync"

	"github.com/kasuganosora/tacticsai/game/ai"
	"github.com/kasuganosora/tacticsai/game/skill"
)

// Stats are a combatant's fixed combat parameters.
type Stats struct {
	MaxHP       int `yaml:"max_hp" json:"max_hp"`
	Attack      int `yaml:"attack" json:"attack"`
	Defense     int `yaml:"defense" json:"defense"`
	Speed       int `yaml:"speed" json:"speed"`
	AttackRange int `yaml:"attack_range" json:"attack_range"`
}

// Combatant is a unit on the board. It implements ai.Unit.
// Position and HP change only through the Executor.
type Combatant struct {
	id        string
	name      string
	team      int
	role      ai.Role
	archetype string
	stats     Stats
	skills    []ai.SkillSlot

	mu    sync.RWMutex
	pos   ai.Point
	hp    int
	moved bool

	Buffs skill.BuffList
}

// NewCombatant creates a combatant at full HP.
func NewCombatant(id, name string, team int, role ai.Role, archetype string, pos ai.Point, stats Stats, skills []ai.SkillSlot) *Combatant {
	if name == "" {
		name = id
	}
	if stats.MaxHP < 1 {
		stats.MaxHP = 1
	}
	return &Combatant{
		id:        id,
		name:      name,
		team:      team,
		role:      role,
		archetype: archetype,
		stats:     stats,
		skills:    skills,
		pos:       pos,
		hp:        stats.MaxHP,
	}
}

func (c *Combatant) ID() string             { return c.id }
func (c *Combatant) Name() string           { return c.name }
func (c *Combatant) Team() int              { return c.team }
func (c *Combatant) Role() ai.Role          { return c.role }
func (c *Combatant) Archetype() string      { return c.archetype }
func (c *Combatant) Stats() Stats           { return c.stats }
func (c *Combatant) MaxHP() int             { return c.stats.MaxHP }
func (c *Combatant) AttackRange() int       { return c.stats.AttackRange }
func (c *Combatant) Skills() []ai.SkillSlot { return c.skills }

func (c *Combatant) Pos() ai.Point {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pos
}

func (c *Combatant) HP() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hp
}

func (c *Combatant) IsAlive() bool { return c.HP() > 0 }

func (c *Combatant) HasMoved() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.moved
}

func (c *Combatant) MarkMoved() {
	c.mu.Lock()
	c.moved = true
	c.mu.Unlock()
}

func (c *Combatant) resetTurn() {
	c.mu.Lock()
	c.moved = false
	c.mu.Unlock()
}

func (c *Combatant) setPos(p ai.Point) {
	c.mu.Lock()
	c.pos = p
	c.mu.Unlock()
}

// adjustHP adds delta clamped to [0, MaxHP] and returns the change applied.
func (c *Combatant) adjustHP(delta int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	before := c.hp
	c.hp += delta
	if c.hp < 0 {
		c.hp = 0
	}
	if c.hp > c.stats.MaxHP {
		c.hp = c.stats.MaxHP
	}
	return c.hp - before
}

// UnitSnapshot is the JSON view of a combatant.
type UnitSnapshot struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Team      int                  `json:"team"`
	Role      ai.Role              `json:"role"`
	Archetype string               `json:"archetype"`
	X         int                  `json:"x"`
	Y         int                  `json:"y"`
	HP        int                  `json:"hp"`
	MaxHP     int                  `json:"max_hp"`
	Tokens    int                  `json:"tokens"`
	Buffs     []skill.BuffInstance `json:"buffs,omitempty"`
	Cooldowns map[string]int       `json:"cooldowns,omitempty"`
}

// Snapshot returns the combatant's current state. Tokens and Cooldowns are
// filled in by the caller that owns the ledger and skill service.
func (c *Combatant) Snapshot() UnitSnapshot {
	p := c.Pos()
	return UnitSnapshot{
		ID:        c.id,
		Name:      c.name,
		Team:      c.team,
		Role:      c.role,
		Archetype: c.archetype,
		X:         p.X,
		Y:         p.Y,
		HP:        c.HP(),
		MaxHP:     c.stats.MaxHP,
		Buffs:     c.Buffs.All(),
	}
}
