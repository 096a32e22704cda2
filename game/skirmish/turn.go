package skirmish

import (
	"math/rand"
	"sort"
)

// TurnOrder decides who acts first in a round.
type TurnOrder interface {
	// Order returns the living combatants sorted by effective speed for the
	// round. The input slice is not modified.
	Order(units []*Combatant, rng *rand.Rand) []*Combatant
}

// SpeedOrder ranks by Speed + random(0, floor(5 + Speed/4)). Equal rolls
// keep roster order.
type SpeedOrder struct{}

func (SpeedOrder) Order(units []*Combatant, rng *rand.Rand) []*Combatant {
	type entry struct {
		unit  *Combatant
		speed int
	}
	entries := make([]entry, 0, len(units))
	for _, c := range units {
		if !c.IsAlive() {
			continue
		}
		spd := c.Stats().Speed
		spread := 5 + spd/4
		if spread < 1 {
			spread = 1
		}
		entries = append(entries, entry{unit: c, speed: spd + rng.Intn(spread)})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].speed > entries[j].speed
	})

	out := make([]*Combatant, len(entries))
	for i, e := range entries {
		out[i] = e.unit
	}
	return out
}
