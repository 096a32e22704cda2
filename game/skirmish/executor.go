package skirmish

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kasuganosora/tacticsai/game/ai"
	"github.com/kasuganosora/tacticsai/game/skill"
	"go.uber.org/zap"
)

// ErrBlocked is returned when the first step of a path cannot be taken.
var ErrBlocked = errors.New("skirmish: path blocked")

// Executor carries out what the behavior trees decide. It implements
// ai.Mover and ai.SkillExecutor.
type Executor struct {
	board  *Board
	clock  skill.RoundClock
	logger *zap.Logger

	mu     sync.Mutex
	events []Event
}

// NewExecutor creates an executor for board.
func NewExecutor(board *Board, clock skill.RoundClock, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{board: board, clock: clock, logger: logger}
}

func (e *Executor) combatant(u ai.Unit) (*Combatant, error) {
	c, ok := e.board.Unit(u.ID())
	if !ok {
		return nil, fmt.Errorf("skirmish: unit %s is not on the board", u.ID())
	}
	return c, nil
}

func (e *Executor) emit(ev Event) {
	e.mu.Lock()
	e.events = append(e.events, ev)
	e.mu.Unlock()
}

// Drain returns the events emitted since the last call.
func (e *Executor) Drain() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.events
	e.events = nil
	return out
}

// MoveAlong walks the path one tile at a time. It stops early at the first
// tile that is not adjacent, blocked or occupied; if not even one step
// could be taken it returns ErrBlocked.
func (e *Executor) MoveAlong(ctx context.Context, u ai.Unit, path []ai.Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c, err := e.combatant(u)
	if err != nil {
		return err
	}
	start := c.Pos()
	cur := start
	steps := 0
	for _, next := range path {
		if ai.Manhattan(cur, next) != 1 || !e.board.Passable(next) || e.board.Occupied(next) {
			break
		}
		c.setPos(next)
		cur = next
		steps++
	}
	if steps == 0 {
		return ErrBlocked
	}
	if steps < len(path) {
		e.logger.Debug("path cut short",
			zap.String("unit", c.ID()), zap.Int("steps", steps), zap.Int("planned", len(path)))
	}
	e.emit(&EventMove{
		Round: e.clock.Round(),
		Unit:  c.ID(),
		FromX: start.X,
		FromY: start.Y,
		ToX:   cur.X,
		ToY:   cur.Y,
		Steps: steps,
	})
	return nil
}

// Damage is the HP a damage skill takes off its target: power plus the
// caster's attack and buff bonus, minus the target's defense, at least 1.
func Damage(caster, target *Combatant, sk *ai.SkillDescriptor) int {
	dmg := sk.Power + caster.Stats().Attack + caster.Buffs.Bonus() - target.Stats().Defense
	if dmg < 1 {
		dmg = 1
	}
	return dmg
}

// Cast applies a paid-for skill.
func (e *Executor) Cast(ctx context.Context, caster, target ai.Unit, sk *ai.SkillDescriptor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from, err := e.combatant(caster)
	if err != nil {
		return err
	}
	to, err := e.combatant(target)
	if err != nil {
		return err
	}
	round := e.clock.Round()
	ev := &EventCast{Round: round, Caster: from.ID(), Target: to.ID(), Skill: sk.ID, Kind: string(sk.Kind)}

	switch sk.Kind {
	case ai.SkillDamage:
		ev.Amount = -to.adjustHP(-Damage(from, to, sk))
	case ai.SkillHeal:
		ev.Amount = to.adjustHP(sk.Power)
	case ai.SkillBuff:
		b := to.Buffs.Add(sk.ID, sk.Power, round, sk.Duration, sk.MaxStacks)
		ev.Amount = b.Stacks
	default:
		return fmt.Errorf("%w: %s: unknown kind %q", ai.ErrMalformedSkill, sk.ID, sk.Kind)
	}
	ev.HPLeft = to.HP()
	e.emit(ev)

	if sk.Kind == ai.SkillDamage && !to.IsAlive() {
		e.logger.Info("unit defeated", zap.String("unit", to.ID()), zap.String("by", from.ID()), zap.Int("round", round))
		e.emit(&EventDefeated{Round: round, Unit: to.ID(), By: from.ID()})
	}
	return nil
}
