package skirmish

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/kasuganosora/tacticsai/game/ai"
	"github.com/kasuganosora/tacticsai/game/skill"
	"gopkg.in/yaml.v3"
)

// UnitSpec is a unit as written in a scenario file.
type UnitSpec struct {
	ID        string         `yaml:"id"`
	Name      string         `yaml:"name"`
	Team      int            `yaml:"team"`
	Role      ai.Role        `yaml:"role"`
	Archetype string         `yaml:"archetype"`
	X         int            `yaml:"x"`
	Y         int            `yaml:"y"`
	Stats     Stats          `yaml:"stats"`
	Skills    []ai.SkillSlot `yaml:"skills"`
	// Tokens overrides the ledger's initial balance when set.
	Tokens *int `yaml:"tokens"`
}

// Scenario is a board layout and its starting units.
type Scenario struct {
	ID        string     `yaml:"id"`
	Width     int        `yaml:"width"`
	Height    int        `yaml:"height"`
	Obstacles []ai.Point `yaml:"obstacles"`
	Units     []UnitSpec `yaml:"units"`
}

// LoadScenario reads a YAML scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses a YAML scenario. A missing id is replaced by a
// random one.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	if sc.ID == "" {
		sc.ID = uuid.New().String()
	}
	if sc.Width < 1 || sc.Height < 1 {
		return nil, fmt.Errorf("scenario %s: board must be at least 1x1, got %dx%d", sc.ID, sc.Width, sc.Height)
	}
	if len(sc.Units) == 0 {
		return nil, fmt.Errorf("scenario %s: no units", sc.ID)
	}
	return &sc, nil
}

// Build places the scenario's units on a fresh board. Every skill a unit
// lists must exist in catalog.
func (sc *Scenario) Build(catalog *skill.Catalog) (*Board, error) {
	b := NewBoard(sc.Width, sc.Height)
	for _, p := range sc.Obstacles {
		if !b.InBounds(p) {
			return nil, fmt.Errorf("scenario %s: obstacle %v out of bounds", sc.ID, p)
		}
		b.AddObstacle(p)
	}
	for _, us := range sc.Units {
		if us.ID == "" {
			return nil, fmt.Errorf("scenario %s: unit without id", sc.ID)
		}
		for _, slot := range us.Skills {
			if _, ok := catalog.Get(slot.ID); !ok {
				return nil, fmt.Errorf("scenario %s: unit %s: %w: %q", sc.ID, us.ID, ai.ErrUnknownSkill, slot.ID)
			}
		}
		role := us.Role
		if role == "" {
			role = ai.RoleMelee
		}
		c := NewCombatant(us.ID, us.Name, us.Team, role, us.Archetype, ai.Point{X: us.X, Y: us.Y}, us.Stats, us.Skills)
		if err := b.Place(c); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", sc.ID, err)
		}
	}
	return b, nil
}

// InitialTokens returns the per-unit token overrides.
func (sc *Scenario) InitialTokens() map[string]int {
	out := make(map[string]int)
	for _, us := range sc.Units {
		if us.Tokens != nil {
			out[us.ID] = *us.Tokens
		}
	}
	return out
}
