package skirmish

// Event is emitted by the Executor and Runner for the log and debug API.
type Event interface {
	EventType() string
}

type EventRoundStart struct {
	Round int      `json:"round"`
	Order []string `json:"order"`
}

type EventMove struct {
	Round int    `json:"round"`
	Unit  string `json:"unit"`
	FromX int    `json:"from_x"`
	FromY int    `json:"from_y"`
	ToX   int    `json:"to_x"`
	ToY   int    `json:"to_y"`
	Steps int    `json:"steps"`
}

type EventCast struct {
	Round  int    `json:"round"`
	Caster string `json:"caster"`
	Target string `json:"target"`
	Skill  string `json:"skill"`
	Kind   string `json:"kind"`
	Amount int    `json:"amount"` // damage dealt, HP restored or buff stacks
	HPLeft int    `json:"hp_left"`
}

type EventDefeated struct {
	Round int    `json:"round"`
	Unit  string `json:"unit"`
	By    string `json:"by"`
}

type EventSkirmishEnd struct {
	Round  int  `json:"round"`
	Winner int  `json:"winner"` // -1 = draw
	Draw   bool `json:"draw"`
}

func (e *EventRoundStart) EventType() string  { return "round_start" }
func (e *EventMove) EventType() string        { return "move" }
func (e *EventCast) EventType() string        { return "cast" }
func (e *EventDefeated) EventType() string    { return "defeated" }
func (e *EventSkirmishEnd) EventType() string { return "skirmish_end" }
