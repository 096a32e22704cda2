package ai

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Tracer observes node evaluation. It never influences control flow.
type Tracer interface {
	OnNodeEvaluated(n Node, u Unit)
	OnNodeResult(n Node, u Unit, st Status, detail string)
}

// NopTracer discards everything.
type NopTracer struct{}

func (NopTracer) OnNodeEvaluated(Node, Unit)              {}
func (NopTracer) OnNodeResult(Node, Unit, Status, string) {}

// ZapTracer logs node results at debug level.
type ZapTracer struct {
	Logger *zap.Logger
}

func (t ZapTracer) OnNodeEvaluated(Node, Unit) {}

func (t ZapTracer) OnNodeResult(n Node, u Unit, st Status, detail string) {
	if t.Logger == nil {
		return
	}
	t.Logger.Debug("bt node",
		zap.String("unit", u.ID()),
		zap.String("node", n.Name()),
		zap.Stringer("status", st),
		zap.String("detail", detail))
}

// MultiTracer fans events out to several tracers.
type MultiTracer []Tracer

func (m MultiTracer) OnNodeEvaluated(n Node, u Unit) {
	for _, t := range m {
		t.OnNodeEvaluated(n, u)
	}
}

func (m MultiTracer) OnNodeResult(n Node, u Unit, st Status, detail string) {
	for _, t := range m {
		t.OnNodeResult(n, u, st, detail)
	}
}

// TraceEvent is one recorded node result.
type TraceEvent struct {
	UnitID string    `json:"unit_id"`
	Node   string    `json:"node"`
	Status string    `json:"status"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// Recorder keeps node results in memory, oldest first, up to Limit entries
// (0 = unbounded).
type Recorder struct {
	Limit int

	mu     sync.Mutex
	events []TraceEvent
	visits map[string]int
}

func (r *Recorder) OnNodeEvaluated(n Node, _ Unit) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.visits == nil {
		r.visits = make(map[string]int)
	}
	r.visits[n.Name()]++
}

func (r *Recorder) OnNodeResult(n Node, u Unit, st Status, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, TraceEvent{
		UnitID: u.ID(),
		Node:   n.Name(),
		Status: st.String(),
		Detail: detail,
		At:     time.Now(),
	})
	if r.Limit > 0 && len(r.events) > r.Limit {
		r.events = r.events[len(r.events)-r.Limit:]
	}
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []TraceEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TraceEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Visits returns how many times a node with the given name was evaluated.
func (r *Recorder) Visits(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.visits[name]
}

// Drain returns the recorded events and clears the recorder.
func (r *Recorder) Drain() []TraceEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	r.visits = nil
	return out
}
