package skill

import (
	"sort"
	"sync"
)

// BuffInstance is an active buff on a combatant.
type BuffInstance struct {
	SkillID string `json:"skill_id"`
	Stacks  int    `json:"stacks"`
	Power   int    `json:"power"` // per stack
	// LastRound is the last round the buff is in effect.
	LastRound int `json:"last_round"`
}

// BuffList manages the buffs of one combatant.
type BuffList struct {
	mu    sync.RWMutex
	buffs []*BuffInstance
}

// Add applies a buff cast in round. A buff already present is refreshed and
// gains a stack up to maxStacks. duration is in rounds; below 1 counts as 1.
func (bl *BuffList) Add(skillID string, power, round, duration, maxStacks int) BuffInstance {
	if duration < 1 {
		duration = 1
	}
	if maxStacks < 1 {
		maxStacks = 1
	}
	bl.mu.Lock()
	defer bl.mu.Unlock()
	for _, b := range bl.buffs {
		if b.SkillID == skillID {
			b.LastRound = round + duration
			b.Power = power
			if b.Stacks < maxStacks {
				b.Stacks++
			}
			return *b
		}
	}
	b := &BuffInstance{SkillID: skillID, Stacks: 1, Power: power, LastRound: round + duration}
	bl.buffs = append(bl.buffs, b)
	return *b
}

// Remove removes a buff. Returns true if it was present.
func (bl *BuffList) Remove(skillID string) bool {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	for i, b := range bl.buffs {
		if b.SkillID == skillID {
			bl.buffs = append(bl.buffs[:i], bl.buffs[i+1:]...)
			return true
		}
	}
	return false
}

// Bonus is the combined power of every active stack.
func (bl *BuffList) Bonus() int {
	bl.mu.RLock()
	defer bl.mu.RUnlock()
	total := 0
	for _, b := range bl.buffs {
		total += b.Power * b.Stacks
	}
	return total
}

// All returns a copy of the active buffs sorted by skill id.
func (bl *BuffList) All() []BuffInstance {
	bl.mu.RLock()
	defer bl.mu.RUnlock()
	out := make([]BuffInstance, len(bl.buffs))
	for i, b := range bl.buffs {
		out[i] = *b
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SkillID < out[j].SkillID })
	return out
}

// Expire drops buffs whose last round is before round and returns their ids.
func (bl *BuffList) Expire(round int) []string {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	var expired []string
	kept := bl.buffs[:0]
	for _, b := range bl.buffs {
		if b.LastRound < round {
			expired = append(expired, b.SkillID)
			continue
		}
		kept = append(kept, b)
	}
	bl.buffs = kept
	return expired
}
