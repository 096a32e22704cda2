package ai

import (
	"context"
	"fmt"
)

// Point is a 2D grid coordinate.
type Point struct {
	X, Y int
}

// Manhattan returns the grid distance between a and b.
func Manhattan(a, b Point) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// Role is the combat class of a unit, used by priority targeting.
type Role string

const (
	RoleMelee    Role = "melee"
	RoleRanged   Role = "ranged"
	RoleHealer   Role = "healer"
	RoleSupport  Role = "support"
	RoleGuardian Role = "guardian"
)

// SkillSlot is a skill a unit knows, at the grade it knows it.
type SkillSlot struct {
	ID    string `yaml:"id" json:"id"`
	Grade int    `yaml:"grade" json:"grade"`
}

// Unit is the view of a combatant the AI layer needs.
// Implemented by *skirmish.Combatant; declared here to avoid an import cycle.
// The AI never changes position or HP itself; MarkMoved only records that
// the unit spent its movement this turn.
type Unit interface {
	ID() string
	Name() string
	Team() int
	Role() Role
	Pos() Point
	HP() int
	MaxHP() int
	AttackRange() int
	Skills() []SkillSlot
	HasMoved() bool
	MarkMoved()
	IsAlive() bool
}

// SkillKind groups skills by what they do to their target.
type SkillKind string

const (
	SkillDamage SkillKind = "damage"
	SkillHeal   SkillKind = "heal"
	SkillBuff   SkillKind = "buff"
)

// ScoreInput is what a skill score heuristic sees.
type ScoreInput struct {
	Power       int
	Cost        int
	Range       int
	Distance    int
	TargetHP    int
	TargetMaxHP int
	CasterHP    int
	CasterMaxHP int
}

// SkillDescriptor is a skill resolved at a specific grade.
type SkillDescriptor struct {
	ID       string
	Name     string
	Kind     SkillKind
	Grade    int
	Cost     int
	Cooldown int // rounds
	Range    int
	Power    int
	// Duration and MaxStacks only apply to buffs.
	Duration  int // rounds
	MaxStacks int

	// Score rates the skill against the current board; nil uses DefaultScore.
	Score func(ScoreInput) (float64, error) `json:"-"`
}

// Validate reports a malformed descriptor.
func (d *SkillDescriptor) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil descriptor", ErrMalformedSkill)
	}
	if d.ID == "" {
		return fmt.Errorf("%w: empty id", ErrMalformedSkill)
	}
	switch d.Kind {
	case SkillDamage, SkillHeal, SkillBuff:
	default:
		return fmt.Errorf("%w: %s: unknown kind %q", ErrMalformedSkill, d.ID, d.Kind)
	}
	if d.Cost < 0 || d.Range < 0 || d.Cooldown < 0 {
		return fmt.Errorf("%w: %s: negative cost, range or cooldown", ErrMalformedSkill, d.ID)
	}
	return nil
}

// Rate scores the skill, falling back to DefaultScore.
func (d *SkillDescriptor) Rate(in ScoreInput) (float64, error) {
	if d.Score == nil {
		return DefaultScore(in), nil
	}
	return d.Score(in)
}

// DefaultScore is power per token spent.
func DefaultScore(in ScoreInput) float64 {
	cost := in.Cost
	if cost < 1 {
		cost = 1
	}
	return float64(in.Power) / float64(cost)
}

// ---- Collaborators ----

// Ledger is the per-round action token account. It is the only state shared
// between units in a round, and TrySpend is the only way tokens go down.
type Ledger interface {
	TokensOf(ctx context.Context, unitID string) (int, error)
	// TrySpend decrements cost tokens iff the balance covers it and eligible
	// reports true, as one step. eligible must not call back into the ledger.
	TrySpend(ctx context.Context, unitID string, cost int, eligible func() (bool, error)) (bool, error)
}

// SkillBook looks up, grades and cools down skills.
type SkillBook interface {
	// UsableSkills returns the unit's skills that are off cooldown.
	UsableSkills(ctx context.Context, u Unit) ([]*SkillDescriptor, error)
	Resolve(skillID string, grade int) (*SkillDescriptor, error)
	OnCooldown(ctx context.Context, unitID, skillID string) (bool, error)
	StartCooldown(ctx context.Context, unitID string, skill *SkillDescriptor) error
}

// SkillExecutor applies a skill to the world once it has been paid for.
type SkillExecutor interface {
	Cast(ctx context.Context, caster, target Unit, skill *SkillDescriptor) error
}

// Roster answers spatial queries over the unit list.
type Roster interface {
	AlliesOf(u Unit) []Unit // alive, excluding u
	EnemiesOf(u Unit) []Unit
	Occupied(p Point) bool
	InBounds(p Point) bool
}

// Pathfinder computes routes. A nil path with a nil error means unreachable.
type Pathfinder interface {
	FindPath(ctx context.Context, from, to Point) ([]Point, error)
}

// Mover executes movement along a path.
type Mover interface {
	MoveAlong(ctx context.Context, u Unit, path []Point) error
}

// Deps bundles the collaborators leaves are built with.
type Deps struct {
	Ledger     Ledger
	Skills     SkillBook
	Executor   SkillExecutor
	Roster     Roster
	Pathfinder Pathfinder
	Mover      Mover
	Tracer     Tracer
}

// Validate reports the first missing collaborator.
func (d Deps) Validate() error {
	switch {
	case d.Ledger == nil:
		return fmt.Errorf("%w: ledger", ErrMissingCollaborator)
	case d.Skills == nil:
		return fmt.Errorf("%w: skill book", ErrMissingCollaborator)
	case d.Executor == nil:
		return fmt.Errorf("%w: skill executor", ErrMissingCollaborator)
	case d.Roster == nil:
		return fmt.Errorf("%w: roster", ErrMissingCollaborator)
	case d.Pathfinder == nil:
		return fmt.Errorf("%w: pathfinder", ErrMissingCollaborator)
	case d.Mover == nil:
		return fmt.Errorf("%w: mover", ErrMissingCollaborator)
	}
	return nil
}

func missing(node, what string) error {
	return fmt.Errorf("%s: %w: %s", node, ErrMissingCollaborator, what)
}
