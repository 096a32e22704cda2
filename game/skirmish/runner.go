package skirmish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/kasuganosora/tacticsai/cache"
	"github.com/kasuganosora/tacticsai/game/ai"
	"github.com/kasuganosora/tacticsai/game/economy"
	"github.com/kasuganosora/tacticsai/game/skill"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrLocked is returned when another runner holds the skirmish lock.
var ErrLocked = errors.New("skirmish: locked by another runner")

// Decision is one unit's tick as recorded for the audit trail.
type Decision struct {
	SkirmishID string
	Round      int
	UnitID     string
	Archetype  string
	Status     string
	Error      string
	Tokens     int
	Trace      []ai.TraceEvent
}

// DecisionSink receives every decision. The audit service implements it.
type DecisionSink interface {
	RecordDecision(d Decision)
}

// Result is the outcome of a finished skirmish.
type Result struct {
	Rounds int  `json:"rounds"`
	Winner int  `json:"winner"` // -1 = draw
	Draw   bool `json:"draw"`
}

// RunnerConfig wires a Runner.
type RunnerConfig struct {
	ID        string
	Board     *Board
	Ledger    *economy.Ledger
	Skills    *skill.Service
	Executor  *Executor
	Trees     ai.Archetypes
	Recorder  *ai.Recorder // drained after every tick; may be nil
	Sink      DecisionSink
	Cache     cache.Cache
	Order     TurnOrder     // nil = SpeedOrder
	Limiter   *rate.Limiter // nil = unpaced
	Seed      int64
	MaxRounds int
	// LogLimit caps the event log kept in the cache list.
	LogLimit int
	// InitialTokens overrides the ledger's starting balance per unit.
	InitialTokens map[string]int
	Logger        *zap.Logger
}

// Runner plays a skirmish round by round. Units act one at a time, so a
// tick never overlaps another.
type Runner struct {
	cfg    RunnerConfig
	rng    *rand.Rand
	logger *zap.Logger

	mu     sync.Mutex
	result *Result
	fallen map[string]bool

	// pending is the round in progress; guarded by the skirmish lock.
	pending *roundState
}

// roundState lets an interrupted round resume where it stopped, so the
// grant is paid once and every unit acts once per round.
type roundState struct {
	round int
	order []*Combatant
	next  int
}

// NewRunner checks every unit has a tree and opens its ledger account.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	switch {
	case cfg.Board == nil, cfg.Ledger == nil, cfg.Skills == nil, cfg.Executor == nil:
		return nil, fmt.Errorf("skirmish: %w: board, ledger, skills and executor are required", ai.ErrMissingCollaborator)
	case cfg.Cache == nil:
		return nil, fmt.Errorf("skirmish: %w: cache", ai.ErrMissingCollaborator)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Order == nil {
		cfg.Order = SpeedOrder{}
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = 50
	}
	if cfg.LogLimit <= 0 {
		cfg.LogLimit = 500
	}
	for _, c := range cfg.Board.Units() {
		if _, err := cfg.Trees.For(c.Archetype()); err != nil {
			return nil, fmt.Errorf("skirmish %s: unit %s: %w", cfg.ID, c.ID(), err)
		}
		initial := -1
		if v, ok := cfg.InitialTokens[c.ID()]; ok {
			initial = v
		}
		cfg.Ledger.Open(c.ID(), initial)
	}
	return &Runner{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		logger: cfg.Logger.With(zap.String("skirmish", cfg.ID)),
		fallen: make(map[string]bool),
	}, nil
}

func (r *Runner) ID() string { return r.cfg.ID }

func (r *Runner) key(suffix string) string {
	return "skirmish:" + r.cfg.ID + ":" + suffix
}

// Result returns the outcome, or nil while the skirmish is still going.
func (r *Runner) Result() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

// Run plays rounds until one team is left or MaxRounds is reached.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	for {
		res, err := r.PlayRound(ctx)
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
	}
}

// PlayRound plays one full round and returns the result if it ended the
// skirmish. Calling it after the end returns the stored result.
func (r *Runner) PlayRound(ctx context.Context) (*Result, error) {
	if res := r.Result(); res != nil {
		return res, nil
	}
	ok, err := r.cfg.Cache.SetNX(ctx, r.key("lock"), r.cfg.ID, time.Minute)
	if err != nil {
		return nil, fmt.Errorf("skirmish %s: lock: %w", r.cfg.ID, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	defer func() {
		if err := r.cfg.Cache.Del(context.WithoutCancel(ctx), r.key("lock")); err != nil {
			r.logger.Warn("release lock", zap.Error(err))
		}
	}()

	rs := r.pending
	if rs == nil {
		rs = r.beginRound(ctx)
		r.pending = rs
	} else {
		r.logger.Info("resuming round", zap.Int("round", rs.round), zap.Int("next", rs.next))
	}
	round := rs.round

	for rs.next < len(rs.order) {
		if r.cfg.Limiter != nil {
			if err := r.cfg.Limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("skirmish %s round %d: %w", r.cfg.ID, round, err)
			}
		}
		c := rs.order[rs.next]
		rs.next++
		err := r.takeTurn(ctx, round, c)
		r.pushLog(ctx, r.cfg.Executor.Drain()...)
		r.settleFallen(ctx)
		if err != nil {
			return nil, err
		}
		if r.decided() {
			break
		}
	}
	r.pending = nil

	res := r.checkEnd(round)
	if res != nil {
		r.pushLog(ctx, &EventSkirmishEnd{Round: res.Rounds, Winner: res.Winner, Draw: res.Draw})
		r.logger.Info("skirmish over", zap.Int("round", round), zap.Int("winner", res.Winner), zap.Bool("draw", res.Draw))
	}
	r.storeState(ctx)
	return res, nil
}

// beginRound pays the grant, expires buffs and fixes the turn order.
func (r *Runner) beginRound(ctx context.Context) *roundState {
	round := r.cfg.Ledger.BeginRound()
	for _, c := range r.cfg.Board.Units() {
		c.resetTurn()
		if expired := c.Buffs.Expire(round); len(expired) > 0 {
			r.logger.Debug("buffs expired", zap.String("unit", c.ID()), zap.Strings("skills", expired))
		}
	}
	order := r.cfg.Order.Order(r.cfg.Board.Alive(), r.rng)
	ids := make([]string, len(order))
	for i, c := range order {
		ids[i] = c.ID()
	}
	r.pushLog(ctx, &EventRoundStart{Round: round, Order: ids})
	return &roundState{round: round, order: order}
}

func (r *Runner) takeTurn(ctx context.Context, round int, c *Combatant) error {
	if !c.IsAlive() {
		return nil
	}
	bt, err := r.cfg.Trees.For(c.Archetype())
	if err != nil {
		return err
	}
	st, tickErr := bt.Tick(ctx, c)

	d := Decision{
		SkirmishID: r.cfg.ID,
		Round:      round,
		UnitID:     c.ID(),
		Archetype:  c.Archetype(),
		Status:     st.String(),
	}
	if r.cfg.Recorder != nil {
		d.Trace = r.cfg.Recorder.Drain()
	}
	if tokens, err := r.cfg.Ledger.TokensOf(ctx, c.ID()); err == nil {
		d.Tokens = tokens
	}
	if tickErr != nil {
		d.Error = tickErr.Error()
	}
	if r.cfg.Sink != nil {
		r.cfg.Sink.RecordDecision(d)
	}
	if tickErr != nil {
		r.logger.Error("tick aborted", zap.String("unit", c.ID()), zap.Error(tickErr))
		return fmt.Errorf("skirmish %s round %d: %w", r.cfg.ID, round, tickErr)
	}
	r.logger.Debug("unit acted", zap.String("unit", c.ID()), zap.Stringer("status", st), zap.Int("tokens", d.Tokens))
	return nil
}

// settleFallen closes the accounts and cooldowns of newly defeated units.
func (r *Runner) settleFallen(ctx context.Context) {
	for _, c := range r.cfg.Board.Units() {
		if c.IsAlive() {
			continue
		}
		r.mu.Lock()
		seen := r.fallen[c.ID()]
		r.fallen[c.ID()] = true
		r.mu.Unlock()
		if seen {
			continue
		}
		r.cfg.Ledger.Close(c.ID())
		if err := r.cfg.Skills.Reset(ctx, c.ID()); err != nil {
			r.logger.Warn("reset cooldowns", zap.String("unit", c.ID()), zap.Error(err))
		}
	}
}

func (r *Runner) decided() bool {
	return len(r.cfg.Board.TeamsAlive()) <= 1
}

func (r *Runner) checkEnd(round int) *Result {
	teams := r.cfg.Board.TeamsAlive()
	var res *Result
	switch {
	case len(teams) == 0:
		res = &Result{Rounds: round, Winner: -1, Draw: true}
	case len(teams) == 1:
		for team := range teams {
			res = &Result{Rounds: round, Winner: team}
		}
	case round >= r.cfg.MaxRounds:
		res = &Result{Rounds: round, Winner: -1, Draw: true}
	default:
		return nil
	}
	r.mu.Lock()
	r.result = res
	r.mu.Unlock()
	return res
}

type logEntry struct {
	Type  string `json:"type"`
	Event Event  `json:"event"`
}

func (r *Runner) pushLog(ctx context.Context, events ...Event) {
	if len(events) == 0 {
		return
	}
	vals := make([]string, 0, len(events))
	for _, ev := range events {
		data, err := json.Marshal(logEntry{Type: ev.EventType(), Event: ev})
		if err != nil {
			r.logger.Warn("encode event", zap.Error(err))
			continue
		}
		vals = append(vals, string(data))
	}
	if err := r.cfg.Cache.LPush(ctx, r.key("log"), vals...); err != nil {
		r.logger.Warn("push log", zap.Error(err))
		return
	}
	if err := r.cfg.Cache.LTrim(ctx, r.key("log"), 0, int64(r.cfg.LogLimit-1)); err != nil {
		r.logger.Warn("trim log", zap.Error(err))
	}
}

// Log returns up to n log entries, newest first.
func (r *Runner) Log(ctx context.Context, n int) ([]json.RawMessage, error) {
	if n <= 0 {
		n = r.cfg.LogLimit
	}
	vals, err := r.cfg.Cache.LRange(ctx, r.key("log"), 0, int64(n-1))
	if err != nil {
		return nil, err
	}
	out := make([]json.RawMessage, len(vals))
	for i, v := range vals {
		out[i] = json.RawMessage(v)
	}
	return out, nil
}

// State is the JSON view of the whole skirmish.
type State struct {
	ID     string         `json:"id"`
	Round  int            `json:"round"`
	Units  []UnitSnapshot `json:"units"`
	Result *Result        `json:"result,omitempty"`
}

// Snapshot returns every unit with its tokens and cooldowns.
func (r *Runner) Snapshot(ctx context.Context) State {
	units := r.cfg.Board.Units()
	out := make([]UnitSnapshot, 0, len(units))
	for _, c := range units {
		s := c.Snapshot()
		if tokens, err := r.cfg.Ledger.TokensOf(ctx, c.ID()); err == nil {
			s.Tokens = tokens
		}
		if cds, err := r.cfg.Skills.Remaining(ctx, c.ID()); err == nil && len(cds) > 0 {
			s.Cooldowns = cds
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Team < out[j].Team })
	return State{ID: r.cfg.ID, Round: r.cfg.Ledger.Round(), Units: out, Result: r.Result()}
}

func (r *Runner) storeState(ctx context.Context) {
	data, err := json.Marshal(r.Snapshot(ctx))
	if err != nil {
		r.logger.Warn("encode state", zap.Error(err))
		return
	}
	if err := r.cfg.Cache.Set(ctx, r.key("state"), string(data), 0); err != nil {
		r.logger.Warn("store state", zap.Error(err))
	}
}
