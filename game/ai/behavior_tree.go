package ai

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Status is the result of a behavior tree node tick.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
	StatusRunning
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusRunning:
		return "running"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Node is a single node in a behavior tree.
//
// A node holds no per-tick data: everything transient lives in the
// TickContext, so one node instance can be ticked for any number of units.
// Expected misses (no target, out of range, not enough tokens) are reported
// as StatusFailure with a nil error. A non-nil error means broken wiring and
// aborts the whole tick.
type Node interface {
	Name() string
	Tick(ctx context.Context, tc *TickContext) (Status, error)
}

// TickContext is passed to every behavior tree node during a tick.
type TickContext struct {
	Unit   Unit
	Board  *Blackboard
	Tracer Tracer

	detail string
}

// Notef attaches a short explanation to the result of the node being ticked.
// It is only forwarded to the tracer and never influences control flow.
func (tc *TickContext) Notef(format string, args ...any) {
	tc.detail = fmt.Sprintf(format, args...)
}

// run ticks n and reports it to the tracer.
func run(ctx context.Context, n Node, tc *TickContext) (Status, error) {
	tc.Tracer.OnNodeEvaluated(n, tc.Unit)
	tc.detail = ""
	st, err := n.Tick(ctx, tc)
	detail := tc.detail
	tc.detail = ""
	if err != nil {
		detail = err.Error()
	}
	tc.Tracer.OnNodeResult(n, tc.Unit, st, detail)
	return st, err
}

// ---- Composite nodes ----

// Selector succeeds as soon as one child succeeds (logical OR).
// A RUNNING child is returned as-is without evaluating the rest.
type Selector struct {
	name     string
	Children []Node
}

// NewSelector creates a Selector over children, evaluated left to right.
func NewSelector(name string, children ...Node) *Selector {
	return &Selector{name: name, Children: children}
}

func (s *Selector) Name() string { return s.name }

func (s *Selector) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	for _, c := range s.Children {
		st, err := run(ctx, c, tc)
		if err != nil {
			return StatusFailure, err
		}
		if st != StatusFailure {
			return st, nil
		}
	}
	return StatusFailure, nil
}

// Sequence succeeds only when all children succeed (logical AND).
type Sequence struct {
	name     string
	Children []Node
}

// NewSequence creates a Sequence over children, evaluated left to right.
func NewSequence(name string, children ...Node) *Sequence {
	return &Sequence{name: name, Children: children}
}

func (s *Sequence) Name() string { return s.name }

func (s *Sequence) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	for _, c := range s.Children {
		st, err := run(ctx, c, tc)
		if err != nil {
			return StatusFailure, err
		}
		if st != StatusSuccess {
			return st, nil
		}
	}
	return StatusSuccess, nil
}

// ---- Decorator nodes ----

// Inverter negates the result of its child.
type Inverter struct {
	Child Node
}

func (i *Inverter) Name() string { return "not(" + i.Child.Name() + ")" }

func (i *Inverter) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	st, err := run(ctx, i.Child, tc)
	if err != nil {
		return StatusFailure, err
	}
	switch st {
	case StatusSuccess:
		return StatusFailure, nil
	case StatusFailure:
		return StatusSuccess, nil
	default:
		return StatusRunning, nil
	}
}

// Optional runs its child and reports SUCCESS whether or not the child did.
// Errors still propagate.
type Optional struct {
	Child Node
}

func (o *Optional) Name() string { return "optional(" + o.Child.Name() + ")" }

func (o *Optional) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	st, err := run(ctx, o.Child, tc)
	if err != nil {
		return StatusFailure, err
	}
	if st == StatusRunning {
		return StatusRunning, nil
	}
	return StatusSuccess, nil
}

// ---- Function leaves ----

// ConditionFunc evaluates a boolean predicate.
type ConditionFunc struct {
	Label string
	Fn    func(ctx context.Context, tc *TickContext) (bool, error)
}

func (cn *ConditionFunc) Name() string { return cn.Label }

func (cn *ConditionFunc) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	ok, err := cn.Fn(ctx, tc)
	if err != nil {
		return StatusFailure, err
	}
	if ok {
		return StatusSuccess, nil
	}
	return StatusFailure, nil
}

// ActionFunc executes an action and returns its status.
type ActionFunc struct {
	Label string
	Fn    func(ctx context.Context, tc *TickContext) (Status, error)
}

func (an *ActionFunc) Name() string { return an.Label }

func (an *ActionFunc) Tick(ctx context.Context, tc *TickContext) (Status, error) {
	return an.Fn(ctx, tc)
}

// ---- BehaviorTree root ----

// BehaviorTree wraps the root node.
type BehaviorTree struct {
	Name   string
	Root   Node
	tracer Tracer
}

// NewBehaviorTree creates a tree; a nil tracer discards trace events.
func NewBehaviorTree(name string, root Node, tracer Tracer) *BehaviorTree {
	if tracer == nil {
		tracer = NopTracer{}
	}
	return &BehaviorTree{Name: name, Root: root, tracer: tracer}
}

// Tick runs one decision pass for u on a fresh blackboard.
func (bt *BehaviorTree) Tick(ctx context.Context, u Unit) (Status, error) {
	st, _, err := bt.TickWithBoard(ctx, u)
	return st, err
}

// TickWithBoard is Tick that also hands back the blackboard used for the pass.
func (bt *BehaviorTree) TickWithBoard(ctx context.Context, u Unit) (Status, *Blackboard, error) {
	if bt.Root == nil || u == nil || !u.IsAlive() {
		return StatusFailure, nil, nil
	}
	tracer := bt.tracer
	if tracer == nil {
		tracer = NopTracer{}
	}
	bb := NewBlackboard()
	bb.Set(KeyTickID, uuid.NewString())
	tc := &TickContext{Unit: u, Board: bb, Tracer: tracer}
	st, err := run(ctx, bt.Root, tc)
	if err != nil {
		return StatusFailure, bb, fmt.Errorf("bt %s: unit %s: %w", bt.Name, u.ID(), err)
	}
	return st, bb, nil
}

// Outline is a read-only description of a subtree.
type Outline struct {
	Name     string    `json:"name"`
	Kind     string    `json:"kind"`
	Children []Outline `json:"children,omitempty"`
}

// Describe walks n and returns its outline.
func Describe(n Node) Outline {
	switch v := n.(type) {
	case *Selector:
		return Outline{Name: v.Name(), Kind: "selector", Children: describeAll(v.Children)}
	case *Sequence:
		return Outline{Name: v.Name(), Kind: "sequence", Children: describeAll(v.Children)}
	case *Inverter:
		return Outline{Name: v.Name(), Kind: "inverter", Children: []Outline{Describe(v.Child)}}
	case *Optional:
		return Outline{Name: v.Name(), Kind: "optional", Children: []Outline{Describe(v.Child)}}
	default:
		return Outline{Name: n.Name(), Kind: "leaf"}
	}
}

func describeAll(nodes []Node) []Outline {
	out := make([]Outline, len(nodes))
	for i, c := range nodes {
		out[i] = Describe(c)
	}
	return out
}
