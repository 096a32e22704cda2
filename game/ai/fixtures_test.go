package ai

import (
	"context"
	"fmt"
)

type fakeUnit struct {
	id       string
	team     int
	role     Role
	pos      Point
	hp       int
	maxHP    int
	atkRange int
	skills   []SkillSlot
	moved    bool
}

func (u *fakeUnit) ID() string          { return u.id }
func (u *fakeUnit) Name() string        { return u.id }
func (u *fakeUnit) Team() int           { return u.team }
func (u *fakeUnit) Role() Role          { return u.role }
func (u *fakeUnit) Pos() Point          { return u.pos }
func (u *fakeUnit) HP() int             { return u.hp }
func (u *fakeUnit) MaxHP() int          { return u.maxHP }
func (u *fakeUnit) AttackRange() int    { return u.atkRange }
func (u *fakeUnit) Skills() []SkillSlot { return u.skills }
func (u *fakeUnit) HasMoved() bool      { return u.moved }
func (u *fakeUnit) MarkMoved()          { u.moved = true }
func (u *fakeUnit) IsAlive() bool       { return u.hp > 0 }

func newUnit(id string, team int, x, y int) *fakeUnit {
	return &fakeUnit{id: id, team: team, role: RoleMelee, pos: Point{x, y}, hp: 100, maxHP: 100, atkRange: 1}
}

// fakeWorld is an open grid roster.
type fakeWorld struct {
	w, h  int
	units []*fakeUnit
}

func (fw *fakeWorld) AlliesOf(u Unit) []Unit {
	var out []Unit
	for _, o := range fw.units {
		if o.IsAlive() && o.team == u.Team() && o.id != u.ID() {
			out = append(out, o)
		}
	}
	return out
}

func (fw *fakeWorld) EnemiesOf(u Unit) []Unit {
	var out []Unit
	for _, o := range fw.units {
		if o.IsAlive() && o.team != u.Team() {
			out = append(out, o)
		}
	}
	return out
}

func (fw *fakeWorld) Occupied(p Point) bool {
	for _, o := range fw.units {
		if o.IsAlive() && o.pos == p {
			return true
		}
	}
	return false
}

func (fw *fakeWorld) InBounds(p Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < fw.w && p.Y < fw.h
}

type fakeMover struct {
	moves int
	after func() // runs once the unit has arrived
}

func (m *fakeMover) MoveAlong(_ context.Context, u Unit, path []Point) error {
	fu, ok := u.(*fakeUnit)
	if !ok {
		return fmt.Errorf("unexpected unit %T", u)
	}
	fu.pos = path[len(path)-1]
	m.moves++
	if m.after != nil {
		m.after()
	}
	return nil
}

type stubLedger struct {
	balances map[string]int
	spends   int
}

func (l *stubLedger) TokensOf(_ context.Context, id string) (int, error) {
	b, ok := l.balances[id]
	if !ok {
		return 0, ErrNoAccount
	}
	return b, nil
}

func (l *stubLedger) TrySpend(_ context.Context, id string, cost int, eligible func() (bool, error)) (bool, error) {
	b, ok := l.balances[id]
	if !ok {
		return false, ErrNoAccount
	}
	if b < cost {
		return false, nil
	}
	okToSpend, err := eligible()
	if err != nil || !okToSpend {
		return false, err
	}
	l.balances[id] = b - cost
	l.spends++
	return true, nil
}

type stubBook struct {
	skills    map[string]*SkillDescriptor
	cooldowns map[string]bool
}

func newStubBook(skills ...*SkillDescriptor) *stubBook {
	b := &stubBook{skills: make(map[string]*SkillDescriptor), cooldowns: make(map[string]bool)}
	for _, s := range skills {
		b.skills[s.ID] = s
	}
	return b
}

func (b *stubBook) UsableSkills(ctx context.Context, u Unit) ([]*SkillDescriptor, error) {
	var out []*SkillDescriptor
	for _, slot := range u.Skills() {
		d, err := b.Resolve(slot.ID, slot.Grade)
		if err != nil {
			return nil, err
		}
		if cd, _ := b.OnCooldown(ctx, u.ID(), d.ID); cd {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (b *stubBook) Resolve(id string, _ int) (*SkillDescriptor, error) {
	d, ok := b.skills[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSkill, id)
	}
	return d, nil
}

func (b *stubBook) OnCooldown(_ context.Context, unitID, skillID string) (bool, error) {
	return b.cooldowns[unitID+"|"+skillID], nil
}

func (b *stubBook) StartCooldown(_ context.Context, unitID string, s *SkillDescriptor) error {
	if s.Cooldown > 0 {
		b.cooldowns[unitID+"|"+s.ID] = true
	}
	return nil
}

type stubExecutor struct {
	casts []string
}

func (e *stubExecutor) Cast(_ context.Context, caster, target Unit, s *SkillDescriptor) error {
	e.casts = append(e.casts, caster.ID()+":"+s.ID+"->"+target.ID())
	if fu, ok := target.(*fakeUnit); ok {
		switch s.Kind {
		case SkillDamage:
			fu.hp -= s.Power
		case SkillHeal:
			fu.hp += s.Power
			if fu.hp > fu.maxHP {
				fu.hp = fu.maxHP
			}
		}
	}
	return nil
}

var (
	strike = &SkillDescriptor{ID: "strike", Kind: SkillDamage, Cost: 1, Cooldown: 0, Range: 1, Power: 20}
	volley = &SkillDescriptor{ID: "volley", Kind: SkillDamage, Cost: 2, Cooldown: 2, Range: 4, Power: 30}
	mend   = &SkillDescriptor{ID: "mend", Kind: SkillHeal, Cost: 1, Cooldown: 1, Range: 3, Power: 25}
	focus  = &SkillDescriptor{ID: "focus", Kind: SkillBuff, Cost: 1, Cooldown: 3, Range: 0, Power: 5}
)

type fixture struct {
	world  *fakeWorld
	ledger *stubLedger
	book   *stubBook
	exec   *stubExecutor
	mover  *fakeMover
	rec    *Recorder
}

func newFixture(units ...*fakeUnit) *fixture {
	f := &fixture{
		world:  &fakeWorld{w: 10, h: 10, units: units},
		ledger: &stubLedger{balances: make(map[string]int)},
		book:   newStubBook(strike, volley, mend, focus),
		exec:   &stubExecutor{},
		mover:  &fakeMover{},
		rec:    &Recorder{},
	}
	for _, u := range units {
		f.ledger.balances[u.id] = 3
	}
	return f
}

func (f *fixture) deps() Deps {
	return Deps{
		Ledger:     f.ledger,
		Skills:     f.book,
		Executor:   f.exec,
		Roster:     f.world,
		Pathfinder: GridPathfinder{Roster: f.world},
		Mover:      f.mover,
		Tracer:     f.rec,
	}
}

func (f *fixture) tree(name string) *BehaviorTree {
	bt, err := BuildArchetype(name, DefaultArchetypeConfig(), f.deps())
	if err != nil {
		panic(err)
	}
	return bt
}

func newTick(u Unit) *TickContext {
	return &TickContext{Unit: u, Board: NewBlackboard(), Tracer: NopTracer{}}
}
