package skill

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kasuganosora/tacticsai/cache"
	"github.com/kasuganosora/tacticsai/game/ai"
	"go.uber.org/zap"
)

// RoundClock reports the current round. economy.Ledger satisfies it.
type RoundClock interface {
	Round() int
}

// Service resolves skills from the catalog and tracks round-based cooldowns
// in the cache.
type Service struct {
	cache   cache.Cache
	catalog *Catalog
	clock   RoundClock
	logger  *zap.Logger
}

// NewService creates a new Service.
func NewService(c cache.Cache, catalog *Catalog, clock RoundClock, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{cache: c, catalog: catalog, clock: clock, logger: logger}
}

// cdKey returns the cache key for a unit's skill cooldown hash.
func cdKey(unitID string) string {
	return "unit:" + unitID + ":skill_cd"
}

// Catalog returns the catalog the service resolves against.
func (svc *Service) Catalog() *Catalog { return svc.catalog }

func (svc *Service) Resolve(skillID string, grade int) (*ai.SkillDescriptor, error) {
	if svc.catalog == nil {
		return nil, fmt.Errorf("%w: no skill catalog", ai.ErrMissingCollaborator)
	}
	return svc.catalog.Resolve(skillID, grade)
}

// UsableSkills resolves each of the unit's skills at its grade and drops
// the ones on cooldown.
func (svc *Service) UsableSkills(ctx context.Context, u ai.Unit) ([]*ai.SkillDescriptor, error) {
	slots := u.Skills()
	out := make([]*ai.SkillDescriptor, 0, len(slots))
	for _, slot := range slots {
		d, err := svc.Resolve(slot.ID, slot.Grade)
		if err != nil {
			return nil, err
		}
		onCD, err := svc.OnCooldown(ctx, u.ID(), d.ID)
		if err != nil {
			return nil, err
		}
		if !onCD {
			out = append(out, d)
		}
	}
	return out, nil
}

// OnCooldown reports whether skillID is still cooling down for unitID.
func (svc *Service) OnCooldown(ctx context.Context, unitID, skillID string) (bool, error) {
	ready, err := svc.readyRound(ctx, unitID, skillID)
	if err != nil || ready == 0 {
		return false, err
	}
	return svc.clock.Round() < ready, nil
}

func (svc *Service) readyRound(ctx context.Context, unitID, skillID string) (int, error) {
	val, err := svc.cache.HGet(ctx, cdKey(unitID), skillID)
	if cache.IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cooldown %s/%s: %w", unitID, skillID, err)
	}
	ready, err := strconv.Atoi(val)
	if err != nil {
		svc.logger.Warn("corrupt cooldown entry dropped",
			zap.String("unit", unitID), zap.String("skill", skillID), zap.String("value", val))
		_ = svc.cache.HDel(ctx, cdKey(unitID), skillID)
		return 0, nil
	}
	return ready, nil
}

// StartCooldown blocks the skill for the current round and the next
// skill.Cooldown rounds.
func (svc *Service) StartCooldown(ctx context.Context, unitID string, skill *ai.SkillDescriptor) error {
	if skill == nil || skill.Cooldown <= 0 {
		return nil
	}
	ready := svc.clock.Round() + skill.Cooldown + 1
	return svc.cache.HSet(ctx, cdKey(unitID), skill.ID, strconv.Itoa(ready))
}

// Remaining returns the rounds left on each cooling skill of unitID.
func (svc *Service) Remaining(ctx context.Context, unitID string) (map[string]int, error) {
	all, err := svc.cache.HGetAll(ctx, cdKey(unitID))
	if err != nil {
		return nil, err
	}
	now := svc.clock.Round()
	out := make(map[string]int, len(all))
	for id, v := range all {
		ready, err := strconv.Atoi(v)
		if err != nil || ready <= now {
			continue
		}
		out[id] = ready - now
	}
	return out, nil
}

// Reset forgets every cooldown of unitID.
func (svc *Service) Reset(ctx context.Context, unitID string) error {
	return svc.cache.Del(ctx, cdKey(unitID))
}
