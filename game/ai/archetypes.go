package ai

import (
	"fmt"
	"sort"
)

// Archetype names.
const (
	ArchetypeHealer   = "healer"
	ArchetypeMelee    = "melee"
	ArchetypeRanged   = "ranged"
	ArchetypeGuardian = "guardian"
)

// ArchetypeConfig holds the tunables the archetype trees are built with.
type ArchetypeConfig struct {
	HealerRetreatThreshold   float64
	MeleeRetreatThreshold    float64
	RangedRetreatThreshold   float64
	GuardianRetreatThreshold float64
	// HealThreshold is the HP ratio below which a healer tends an ally.
	HealThreshold float64
	// DangerZone is how close an enemy may get before a ranged unit kites.
	DangerZone   int
	MoveRadius   int
	SupportRange int
	// PriorityRoles lists enemy roles ranged units focus first.
	PriorityRoles []Role
}

// DefaultArchetypeConfig returns the stock tunables.
func DefaultArchetypeConfig() ArchetypeConfig {
	return ArchetypeConfig{
		HealerRetreatThreshold:   0.30,
		MeleeRetreatThreshold:    0.25,
		RangedRetreatThreshold:   0.30,
		GuardianRetreatThreshold: 0.20,
		HealThreshold:            0.60,
		DangerZone:               2,
		MoveRadius:               4,
		SupportRange:             3,
		PriorityRoles:            []Role{RoleHealer, RoleRanged, RoleSupport},
	}
}

type treeBuilder struct {
	cfg  ArchetypeConfig
	deps Deps
}

// retreat: hurt and still able to move → get away from the nearest enemy.
func (b treeBuilder) retreat(threshold float64, spot Node) Node {
	return NewSequence("self-preservation",
		&HealthBelow{Threshold: threshold},
		HasNotMoved{},
		spot,
		&FindPath{Pathfinder: b.deps.Pathfinder},
		&MoveAlongPath{Mover: b.deps.Mover},
	)
}

func (b treeBuilder) retreatSpot() Node {
	return NewFindRetreatSpot(b.cfg.MoveRadius, b.deps.Roster, b.deps.Pathfinder)
}

// approach moves toward the current target and succeeds only if it ends in range.
func (b treeBuilder) approach() Node {
	return NewSequence("approach",
		HasNotMoved{},
		NewFindApproachSpot(b.cfg.MoveRadius, b.deps.Roster, b.deps.Pathfinder),
		&FindPath{Pathfinder: b.deps.Pathfinder},
		&MoveAlongPath{Mover: b.deps.Mover},
		TargetInRange{},
	)
}

// engage: pick a target, pick a skill, get in range, cast.
func (b treeBuilder) engage(name string, kind SkillKind, find Node) Node {
	return NewSequence(name,
		find,
		&TargetValid{Key: KeyCurrentTarget},
		NewSelectSkill(kind, b.deps.Skills, b.deps.Ledger),
		NewSelector("reach", TargetInRange{}, b.approach()),
		NewUseSkill(b.deps.Skills, b.deps.Ledger, b.deps.Executor),
	)
}

// advance closes distance to a target that is still out of reach.
func (b treeBuilder) advance(find Node) Node {
	return NewSequence("advance",
		find,
		&Inverter{Child: TargetInRange{}},
		HasNotMoved{},
		NewFindApproachSpot(b.cfg.MoveRadius, b.deps.Roster, b.deps.Pathfinder),
		&FindPath{Pathfinder: b.deps.Pathfinder},
		&MoveAlongPath{Mover: b.deps.Mover},
	)
}

func (b treeBuilder) fallback() Node {
	return NewUseBuffOrWait(b.deps.Skills, b.deps.Ledger, b.deps.Executor)
}

func (b treeBuilder) priorityTarget() Node {
	return NewSelector("pick-target",
		&FindPriorityEnemy{Roles: b.cfg.PriorityRoles, Roster: b.deps.Roster},
		&FindNearestEnemy{Roster: b.deps.Roster},
	)
}

func (b treeBuilder) healer() Node {
	return NewSelector(ArchetypeHealer,
		b.retreat(b.cfg.HealerRetreatThreshold, NewSelector("healer-spot",
			NewFindSafeHealSpot(b.cfg.MoveRadius, b.cfg.SupportRange, b.deps.Roster, b.deps.Pathfinder),
			b.retreatSpot(),
		)),
		b.engage("heal-ally", SkillHeal,
			&FindWoundedAlly{Threshold: b.cfg.HealThreshold, IncludeSelf: true, Roster: b.deps.Roster}),
		b.engage("attack", SkillDamage, &FindNearestEnemy{Roster: b.deps.Roster}),
		b.fallback(),
	)
}

func (b treeBuilder) melee() Node {
	return NewSelector(ArchetypeMelee,
		b.retreat(b.cfg.MeleeRetreatThreshold, b.retreatSpot()),
		b.engage("finish-weakest", SkillDamage, NewSequence("weakest-in-reach",
			&FindLowestHPEnemy{Roster: b.deps.Roster},
			TargetInRange{},
		)),
		b.engage("attack", SkillDamage, &FindNearestEnemy{Roster: b.deps.Roster}),
		b.advance(&FindNearestEnemy{Roster: b.deps.Roster}),
		b.fallback(),
	)
}

func (b treeBuilder) ranged() Node {
	return NewSelector(ArchetypeRanged,
		b.retreat(b.cfg.RangedRetreatThreshold, b.retreatSpot()),
		NewSequence("kite",
			&EnemyWithin{Radius: b.cfg.DangerZone, Roster: b.deps.Roster},
			HasNotMoved{},
			b.priorityTarget(),
			NewFindKiteSpot(b.cfg.MoveRadius, b.cfg.DangerZone, b.deps.Roster, b.deps.Pathfinder),
			&FindPath{Pathfinder: b.deps.Pathfinder},
			&MoveAlongPath{Mover: b.deps.Mover},
			&Optional{Child: NewSequence("kite-shot",
				&TargetValid{Key: KeyCurrentTarget},
				NewSelectSkill(SkillDamage, b.deps.Skills, b.deps.Ledger),
				TargetInRange{},
				NewUseSkill(b.deps.Skills, b.deps.Ledger, b.deps.Executor),
			)},
		),
		b.engage("attack", SkillDamage, b.priorityTarget()),
		b.advance(b.priorityTarget()),
		b.fallback(),
	)
}

func (b treeBuilder) guardian() Node {
	return NewSelector(ArchetypeGuardian,
		b.retreat(b.cfg.GuardianRetreatThreshold, b.retreatSpot()),
		b.engage("protect", SkillDamage, &FindThreatToAlly{Roster: b.deps.Roster}),
		b.engage("attack", SkillDamage, &FindNearestEnemy{Roster: b.deps.Roster}),
		b.advance(NewSelector("pick-target",
			&FindThreatToAlly{Roster: b.deps.Roster},
			&FindNearestEnemy{Roster: b.deps.Roster},
		)),
		b.fallback(),
	)
}

// BuildArchetype assembles the named archetype tree. Trees hold no per-tick
// state and can be shared by every unit of the archetype.
func BuildArchetype(name string, cfg ArchetypeConfig, deps Deps) (*BehaviorTree, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("archetype %s: %w", name, err)
	}
	b := treeBuilder{cfg: cfg, deps: deps}
	var root Node
	switch name {
	case ArchetypeHealer:
		root = b.healer()
	case ArchetypeMelee:
		root = b.melee()
	case ArchetypeRanged:
		root = b.ranged()
	case ArchetypeGuardian:
		root = b.guardian()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownArchetype, name)
	}
	return NewBehaviorTree(name, root, deps.Tracer), nil
}

// Archetypes is the set of trees built at startup, keyed by archetype name.
type Archetypes map[string]*BehaviorTree

// BuildArchetypes builds every known archetype.
func BuildArchetypes(cfg ArchetypeConfig, deps Deps) (Archetypes, error) {
	out := make(Archetypes, 4)
	for _, name := range []string{ArchetypeHealer, ArchetypeMelee, ArchetypeRanged, ArchetypeGuardian} {
		bt, err := BuildArchetype(name, cfg, deps)
		if err != nil {
			return nil, err
		}
		out[name] = bt
	}
	return out, nil
}

// For returns the tree for name.
func (a Archetypes) For(name string) (*BehaviorTree, error) {
	bt, ok := a[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownArchetype, name)
	}
	return bt, nil
}

// Names returns the archetype names in sorted order.
func (a Archetypes) Names() []string {
	names := make([]string, 0, len(a))
	for n := range a {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
