package skill

import (
	"fmt"
	"os"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/kasuganosora/tacticsai/game/ai"
	"gopkg.in/yaml.v3"
)

// Grade is the change one grade step applies on top of the previous grade.
type Grade struct {
	Power int `yaml:"power"`
	Range int `yaml:"range"`
	Cost  int `yaml:"cost"`
}

// Definition is a skill as written in the catalog file.
type Definition struct {
	ID        string       `yaml:"id"`
	Name      string       `yaml:"name"`
	Kind      ai.SkillKind `yaml:"kind"`
	Cost      int          `yaml:"cost"`
	Cooldown  int          `yaml:"cooldown"`
	Range     int          `yaml:"range"`
	Power     int          `yaml:"power"`
	Duration  int          `yaml:"duration"`
	MaxStacks int          `yaml:"max_stacks"`
	// Score is an optional expression over ai.ScoreInput fields, e.g.
	// "Power * 2 - Distance". It must evaluate to a number.
	Score  string  `yaml:"score"`
	Grades []Grade `yaml:"grades"`

	program *vm.Program
}

// Catalog is the set of skills known to the engine, in file order.
type Catalog struct {
	skills map[string]*Definition
	order  []string
}

type catalogFile struct {
	Skills []*Definition `yaml:"skills"`
}

// LoadCatalog reads a YAML catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("skill catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses a YAML catalog and compiles every score expression.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("skill catalog: %w", err)
	}
	c := &Catalog{skills: make(map[string]*Definition, len(f.Skills))}
	for _, d := range f.Skills {
		if err := d.compile(); err != nil {
			return nil, err
		}
		if _, dup := c.skills[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ai.ErrMalformedSkill, d.ID)
		}
		c.skills[d.ID] = d
		c.order = append(c.order, d.ID)
	}
	return c, nil
}

func (d *Definition) compile() error {
	if d == nil {
		return fmt.Errorf("%w: empty entry", ai.ErrMalformedSkill)
	}
	for g := 1; g <= d.MaxGrade(); g++ {
		if err := d.resolve(g).Validate(); err != nil {
			return fmt.Errorf("grade %d: %w", g, err)
		}
	}
	if d.Score == "" {
		return nil
	}
	prog, err := expr.Compile(d.Score, expr.Env(ai.ScoreInput{}), expr.AsFloat64())
	if err != nil {
		return fmt.Errorf("%w: %s: score: %v", ai.ErrMalformedSkill, d.ID, err)
	}
	d.program = prog
	return nil
}

// Get returns the definition for id.
func (c *Catalog) Get(id string) (*Definition, bool) {
	d, ok := c.skills[id]
	return d, ok
}

// IDs lists skill ids in file order.
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Resolve returns the descriptor for id at grade.
func (c *Catalog) Resolve(id string, grade int) (*ai.SkillDescriptor, error) {
	d, ok := c.skills[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ai.ErrUnknownSkill, id)
	}
	return d.resolve(grade), nil
}

// MaxGrade is the highest grade the definition describes.
func (d *Definition) MaxGrade() int {
	return len(d.Grades) + 1
}

// resolve applies grade steps cumulatively. Grade 1 is the base skill;
// grades outside [1, MaxGrade] are clamped.
func (d *Definition) resolve(grade int) *ai.SkillDescriptor {
	if grade < 1 {
		grade = 1
	}
	if grade > d.MaxGrade() {
		grade = d.MaxGrade()
	}
	out := &ai.SkillDescriptor{
		ID:        d.ID,
		Name:      d.Name,
		Kind:      d.Kind,
		Grade:     grade,
		Cost:      d.Cost,
		Cooldown:  d.Cooldown,
		Range:     d.Range,
		Power:     d.Power,
		Duration:  d.Duration,
		MaxStacks: d.MaxStacks,
	}
	for _, g := range d.Grades[:grade-1] {
		out.Power += g.Power
		out.Range += g.Range
		out.Cost += g.Cost
	}
	if out.Name == "" {
		out.Name = out.ID
	}
	if d.program != nil {
		out.Score = d.score
	}
	return out
}

func (d *Definition) score(in ai.ScoreInput) (float64, error) {
	v, err := vm.Run(d.program, in)
	if err != nil {
		return 0, err
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("score of %s is %T, not a number", d.ID, v)
	}
	return f, nil
}
