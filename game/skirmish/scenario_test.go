package skirmish

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/kasuganosora/tacticsai/game/ai"
	"github.com/kasuganosora/tacticsai/game/skill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSkills = `
skills:
  - {id: strike, kind: damage, cost: 1, range: 1, power: 20}
  - {id: volley, kind: damage, cost: 2, cooldown: 2, range: 4, power: 30}
  - {id: mend, kind: heal, cost: 1, cooldown: 1, range: 3, power: 25}
  - {id: focus, kind: buff, cost: 1, cooldown: 3, power: 5, duration: 2, max_stacks: 2}
`

const testScenario = `
id: duel
width: 8
height: 4
obstacles:
  - {x: 3, y: 0}
units:
  - id: knight
    team: 0
    role: melee
    archetype: melee
    x: 1
    y: 1
    stats: {max_hp: 100, attack: 10, defense: 0, speed: 8, attack_range: 1}
    skills: [{id: strike}]
  - id: raider
    name: Raider
    team: 1
    archetype: melee
    x: 2
    y: 1
    tokens: 4
    stats: {max_hp: 20, attack: 0, defense: 0, speed: 8, attack_range: 1}
    skills: [{id: strike}, {id: focus, grade: 1}]
`

func testCatalog(t *testing.T) *skill.Catalog {
	t.Helper()
	c, err := skill.ParseCatalog([]byte(testSkills))
	require.NoError(t, err)
	return c
}

func TestParseScenario(t *testing.T) {
	sc, err := ParseScenario([]byte(testScenario))
	require.NoError(t, err)
	assert.Equal(t, "duel", sc.ID)
	assert.Equal(t, []ai.Point{{X: 3, Y: 0}}, sc.Obstacles)
	require.Len(t, sc.Units, 2)
	assert.Equal(t, 100, sc.Units[0].Stats.MaxHP)
	assert.Equal(t, map[string]int{"raider": 4}, sc.InitialTokens())
}

func TestParseScenario_GeneratesID(t *testing.T) {
	sc, err := ParseScenario([]byte("width: 2\nheight: 2\nunits: [{id: a, archetype: melee}]\n"))
	require.NoError(t, err)
	_, err = uuid.Parse(sc.ID)
	assert.NoError(t, err)
}

func TestParseScenario_Rejects(t *testing.T) {
	for name, doc := range map[string]string{
		"no board": "units: [{id: a}]\n",
		"no units": "width: 3\nheight: 3\n",
		"bad yaml": "width: [\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseScenario([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestScenario_Build(t *testing.T) {
	sc, err := ParseScenario([]byte(testScenario))
	require.NoError(t, err)

	b, err := sc.Build(testCatalog(t))
	require.NoError(t, err)
	assert.False(t, b.Passable(ai.Point{X: 3, Y: 0}))

	raider, ok := b.Unit("raider")
	require.True(t, ok)
	assert.Equal(t, "Raider", raider.Name())
	assert.Equal(t, ai.RoleMelee, raider.Role(), "role defaults to melee")
	assert.Equal(t, 20, raider.HP())
	assert.Equal(t, ai.Point{X: 2, Y: 1}, raider.Pos())
}

func TestScenario_BuildRejects(t *testing.T) {
	cat := testCatalog(t)

	sc := &Scenario{ID: "x", Width: 3, Height: 3, Units: []UnitSpec{{ID: "a", Skills: []ai.SkillSlot{{ID: "ghost"}}}}}
	_, err := sc.Build(cat)
	assert.ErrorIs(t, err, ai.ErrUnknownSkill)

	sc = &Scenario{ID: "x", Width: 3, Height: 3, Obstacles: []ai.Point{{X: 9, Y: 9}}, Units: []UnitSpec{{ID: "a"}}}
	_, err = sc.Build(cat)
	assert.Error(t, err)

	sc = &Scenario{ID: "x", Width: 3, Height: 3, Units: []UnitSpec{{ID: "a"}, {ID: "b"}}}
	_, err = sc.Build(cat)
	assert.Error(t, err, "both units on (0,0)")
}

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testScenario), 0o644))
	sc, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "duel", sc.ID)

	_, err = LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
