package ai

import (
	"context"
	"fmt"
)

type skillDeps struct {
	Skills   SkillBook
	Ledger   Ledger
	Executor SkillExecutor
}

func (d skillDeps) check(name string, needExecutor bool) error {
	switch {
	case d.Skills == nil:
		return missing(name, "skill book")
	case d.Ledger == nil:
		return missing(name, "ledger")
	case needExecutor && d.Executor == nil:
		return missing(name, "skill executor")
	}
	return nil
}

// SelectSkill scores the unit's usable skills of one kind and stores the
// best one. A skill is usable when it is off cooldown and the unit holds
// enough tokens for it. Skills that already reach the skill target are
// preferred over ones that would need a move first.
type SelectSkill struct {
	Kind SkillKind
	skillDeps
}

// NewSelectSkill creates a selector for skills of kind.
func NewSelectSkill(kind SkillKind, skills SkillBook, ledger Ledger) *SelectSkill {
	return &SelectSkill{Kind: kind, skillDeps: skillDeps{Skills: skills, Ledger: ledger}}
}

func (s *SelectSkill) Name() string { return "select-skill(" + string(s.Kind) + ")" }

func (s *SelectSkill) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	if err := s.check(s.Name(), false); err != nil {
		return StatusFailure, err
	}
	u := tc.Unit
	skills, err := s.Skills.UsableSkills(ctx, u)
	if err != nil {
		if IsStructural(err) {
			return StatusFailure, err
		}
		tc.Notef("skill book: %v", err)
		return StatusFailure, nil
	}
	tokens, err := s.Ledger.TokensOf(ctx, u.ID())
	if err != nil {
		if IsStructural(err) {
			return StatusFailure, err
		}
		tc.Notef("ledger: %v", err)
		return StatusFailure, nil
	}

	target, hasTarget := Lookup[Unit](tc.Board, KeySkillTarget)
	if !hasTarget && s.Kind == SkillBuff {
		target, hasTarget = u, true
	}

	var best *SkillDescriptor
	bestScore, bestReach := 0.0, false
	for _, d := range skills {
		if err := d.Validate(); err != nil {
			return StatusFailure, err
		}
		if d.Kind != s.Kind || d.Cost > tokens {
			continue
		}
		in := ScoreInput{
			Power: d.Power, Cost: d.Cost, Range: d.Range,
			CasterHP: u.HP(), CasterMaxHP: u.MaxHP(),
		}
		reach := false
		if hasTarget {
			in.Distance = Manhattan(u.Pos(), target.Pos())
			in.TargetHP, in.TargetMaxHP = target.HP(), target.MaxHP()
			reach = in.Distance <= d.Range
		}
		score, err := d.Rate(in)
		if err != nil {
			return StatusFailure, fmt.Errorf("%w: %s: score: %v", ErrMalformedSkill, d.ID, err)
		}
		better := best == nil ||
			(reach && !bestReach) ||
			(reach == bestReach && score > bestScore)
		if better {
			best, bestScore, bestReach = d, score, reach
		}
	}
	if best == nil {
		tc.Notef("no usable %s skill with %d tokens", s.Kind, tokens)
		return StatusFailure, nil
	}
	tc.Board.Set(KeySelectedSkill, best)
	if s.Kind == SkillBuff && !tc.Board.Has(KeySkillTarget) {
		tc.Board.Set(KeySkillTarget, target)
	}
	tc.Notef("%s score %.2f", best.ID, bestScore)
	return StatusSuccess, nil
}

// UseSkill casts the selected skill at the skill target. It is the only
// node that spends tokens, and it re-checks range, cooldown and target
// inside the ledger's spend so an earlier range check can never be trusted
// on its own.
type UseSkill struct {
	skillDeps
}

// NewUseSkill creates the skill effector.
func NewUseSkill(skills SkillBook, ledger Ledger, exec SkillExecutor) *UseSkill {
	return &UseSkill{skillDeps{Skills: skills, Ledger: ledger, Executor: exec}}
}

func (UseSkill) Name() string { return "use-skill" }

func (s *UseSkill) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	if err := s.check(s.Name(), true); err != nil {
		return StatusFailure, err
	}
	skill, ok := Lookup[*SkillDescriptor](tc.Board, KeySelectedSkill)
	if !ok {
		return StatusFailure, nil
	}
	target, ok := Lookup[Unit](tc.Board, KeySkillTarget)
	if !ok {
		target, ok = Lookup[Unit](tc.Board, KeyCurrentTarget)
	}
	if !ok {
		if skill.Kind != SkillBuff {
			return StatusFailure, nil
		}
		target = tc.Unit
	}
	return s.cast(ctx, tc, skill, target)
}

func (d skillDeps) cast(ctx context.Context, tc *TickContext, skill *SkillDescriptor, target Unit) (Status, error) {
	if err := skill.Validate(); err != nil {
		return StatusFailure, err
	}
	caster := tc.Unit
	if target == nil || !target.IsAlive() {
		return StatusFailure, nil
	}

	reason := ""
	eligible := func() (bool, error) {
		if !caster.IsAlive() || !target.IsAlive() {
			reason = "target down"
			return false, nil
		}
		if !kindFits(skill.Kind, caster, target) {
			reason = "wrong side for " + string(skill.Kind)
			return false, nil
		}
		if dist := Manhattan(caster.Pos(), target.Pos()); dist > skill.Range {
			reason = fmt.Sprintf("out of range (%d > %d)", dist, skill.Range)
			return false, nil
		}
		onCD, err := d.Skills.OnCooldown(ctx, caster.ID(), skill.ID)
		if err != nil {
			return false, err
		}
		if onCD {
			reason = "on cooldown"
			return false, nil
		}
		return true, nil
	}

	spent, err := d.Ledger.TrySpend(ctx, caster.ID(), skill.Cost, eligible)
	if err != nil {
		if IsStructural(err) {
			return StatusFailure, err
		}
		tc.Notef("spend %s: %v", skill.ID, err)
		return StatusFailure, nil
	}
	if !spent {
		if reason == "" {
			reason = "not enough tokens"
		}
		tc.Notef("%s: %s", skill.ID, reason)
		return StatusFailure, nil
	}

	cdErr := d.Skills.StartCooldown(ctx, caster.ID(), skill)
	if err := d.Executor.Cast(ctx, caster, target, skill); err != nil {
		return StatusFailure, fmt.Errorf("cast %s: %w", skill.ID, err)
	}
	if cdErr != nil {
		tc.Notef("cast %s on %s (cooldown not recorded: %v)", skill.ID, target.ID(), cdErr)
	} else {
		tc.Notef("cast %s on %s", skill.ID, target.ID())
	}
	return StatusSuccess, nil
}

func kindFits(kind SkillKind, caster, target Unit) bool {
	if kind == SkillDamage {
		return caster.Team() != target.Team()
	}
	return caster.Team() == target.Team()
}

// UseBuffOrWait is the last resort of every archetype: cast the best
// affordable buff on self, otherwise pass the turn. It never fails for an
// expected reason, so a tick that reaches it always ends in a defined action.
type UseBuffOrWait struct {
	skillDeps
}

// NewUseBuffOrWait creates the fallback effector.
func NewUseBuffOrWait(skills SkillBook, ledger Ledger, exec SkillExecutor) *UseBuffOrWait {
	return &UseBuffOrWait{skillDeps{Skills: skills, Ledger: ledger, Executor: exec}}
}

func (UseBuffOrWait) Name() string { return "buff-or-wait" }

func (w *UseBuffOrWait) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	if err := w.check(w.Name(), true); err != nil {
		return StatusFailure, err
	}
	u := tc.Unit
	skills, err := w.Skills.UsableSkills(ctx, u)
	if err != nil {
		if IsStructural(err) {
			return StatusFailure, err
		}
		tc.Notef("wait (skill book: %v)", err)
		return StatusSuccess, nil
	}
	tokens, err := w.Ledger.TokensOf(ctx, u.ID())
	if err != nil {
		if IsStructural(err) {
			return StatusFailure, err
		}
		tc.Notef("wait (ledger: %v)", err)
		return StatusSuccess, nil
	}

	var best *SkillDescriptor
	bestScore := 0.0
	for _, d := range skills {
		if d.Kind != SkillBuff || d.Cost > tokens {
			continue
		}
		if err := d.Validate(); err != nil {
			return StatusFailure, err
		}
		score, err := d.Rate(ScoreInput{
			Power: d.Power, Cost: d.Cost, Range: d.Range,
			TargetHP: u.HP(), TargetMaxHP: u.MaxHP(),
			CasterHP: u.HP(), CasterMaxHP: u.MaxHP(),
		})
		if err != nil {
			return StatusFailure, fmt.Errorf("%w: %s: score: %v", ErrMalformedSkill, d.ID, err)
		}
		if best == nil || score > bestScore {
			best, bestScore = d, score
		}
	}
	if best != nil {
		st, err := w.cast(ctx, tc, best, u)
		if err != nil {
			return StatusFailure, err
		}
		if st == StatusSuccess {
			tc.Notef("buff %s", best.ID)
			return StatusSuccess, nil
		}
	}
	tc.Notef("wait")
	return StatusSuccess, nil
}
