// Package economy holds the per-round action token accounts.
package economy

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kasuganosora/tacticsai/game/ai"
	"go.uber.org/zap"
)

// Config is the token budget.
type Config struct {
	InitialTokens  int `mapstructure:"initial_tokens"`
	TokensPerRound int `mapstructure:"tokens_per_round"`
	MaxTokens      int `mapstructure:"max_tokens"` // 0 = uncapped
}

// SpendRecorder receives every accepted spend.
type SpendRecorder interface {
	RecordSpend(unitID string, round, cost, balance int)
}

// Ledger is the single writer for token balances. Every balance change
// happens under one mutex, so a spend's eligibility check and decrement
// can never interleave with another unit's spend.
type Ledger struct {
	mu       sync.Mutex
	cfg      Config
	round    int
	balances map[string]int
	recorder SpendRecorder
	logger   *zap.Logger
}

// NewLedger creates an empty ledger.
func NewLedger(cfg Config, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{cfg: cfg, balances: make(map[string]int), logger: logger}
}

// SetRecorder attaches a spend recorder.
func (l *Ledger) SetRecorder(r SpendRecorder) {
	l.mu.Lock()
	l.recorder = r
	l.mu.Unlock()
}

// Open creates or resets an account. A negative initial uses the configured default.
func (l *Ledger) Open(unitID string, initial int) {
	if initial < 0 {
		initial = l.cfg.InitialTokens
	}
	l.mu.Lock()
	l.balances[unitID] = l.clamp(initial)
	l.mu.Unlock()
}

// Close removes an account; later spends fail with ai.ErrNoAccount.
func (l *Ledger) Close(unitID string) {
	l.mu.Lock()
	delete(l.balances, unitID)
	l.mu.Unlock()
}

func (l *Ledger) clamp(v int) int {
	if l.cfg.MaxTokens > 0 && v > l.cfg.MaxTokens {
		return l.cfg.MaxTokens
	}
	return v
}

// BeginRound advances the round counter and pays out the per-round grant.
func (l *Ledger) BeginRound() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.round++
	for id, b := range l.balances {
		l.balances[id] = l.clamp(b + l.cfg.TokensPerRound)
	}
	l.logger.Debug("round begins", zap.Int("round", l.round), zap.Int("accounts", len(l.balances)))
	return l.round
}

// Round is the current round number, 0 before the first BeginRound.
func (l *Ledger) Round() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.round
}

func (l *Ledger) TokensOf(_ context.Context, unitID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.balances[unitID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ai.ErrNoAccount, unitID)
	}
	return b, nil
}

// TrySpend deducts cost when the balance covers it and eligible agrees.
// eligible runs with the ledger locked and must not call back into it.
func (l *Ledger) TrySpend(ctx context.Context, unitID string, cost int, eligible func() (bool, error)) (bool, error) {
	if cost < 0 {
		return false, fmt.Errorf("%w: negative cost %d", ai.ErrMalformedSkill, cost)
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.Lock()
	b, ok := l.balances[unitID]
	if !ok {
		l.mu.Unlock()
		return false, fmt.Errorf("%w: %s", ai.ErrNoAccount, unitID)
	}
	if b < cost {
		l.mu.Unlock()
		return false, nil
	}
	if eligible != nil {
		okToSpend, err := eligible()
		if err != nil || !okToSpend {
			l.mu.Unlock()
			return false, err
		}
	}
	b -= cost
	l.balances[unitID] = b
	round, rec := l.round, l.recorder
	l.mu.Unlock()

	if rec != nil {
		rec.RecordSpend(unitID, round, cost, b)
	}
	return true, nil
}

// Balance is one account in a Snapshot.
type Balance struct {
	UnitID string `json:"unit_id"`
	Tokens int    `json:"tokens"`
}

// Snapshot lists every open account sorted by unit id.
func (l *Ledger) Snapshot() []Balance {
	l.mu.Lock()
	out := make([]Balance, 0, len(l.balances))
	for id, b := range l.balances {
		out = append(out, Balance{UnitID: id, Tokens: b})
	}
	l.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].UnitID < out[j].UnitID })
	return out
}
