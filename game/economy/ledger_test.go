package economy

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kasuganosora/tacticsai/game/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type spend struct {
	unitID               string
	round, cost, balance int
}

type spendLog struct {
	mu      sync.Mutex
	entries []spend
}

func (s *spendLog) RecordSpend(unitID string, round, cost, balance int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, spend{unitID, round, cost, balance})
}

func newLedger() *Ledger {
	return NewLedger(Config{InitialTokens: 2, TokensPerRound: 2, MaxTokens: 5}, nil)
}

func always() (bool, error) { return true, nil }

func TestLedger_OpenAndRound(t *testing.T) {
	l := newLedger()
	l.Open("a", -1)
	l.Open("b", 9)

	a, err := l.TokensOf(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 2, a)
	b, _ := l.TokensOf(context.Background(), "b")
	assert.Equal(t, 5, b, "capped at max")

	assert.Equal(t, 0, l.Round())
	assert.Equal(t, 1, l.BeginRound())
	a, _ = l.TokensOf(context.Background(), "a")
	assert.Equal(t, 4, a)
	l.BeginRound()
	a, _ = l.TokensOf(context.Background(), "a")
	assert.Equal(t, 5, a)
	assert.Equal(t, 2, l.Round())
}

func TestLedger_TrySpend(t *testing.T) {
	l := newLedger()
	rec := &spendLog{}
	l.SetRecorder(rec)
	l.Open("a", 3)
	l.BeginRound()
	ctx := context.Background()

	ok, err := l.TrySpend(ctx, "a", 2, always)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.TrySpend(ctx, "a", 2, always)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.TrySpend(ctx, "a", 4, always)
	require.NoError(t, err)
	assert.False(t, ok, "balance 1 cannot cover 4")

	left, _ := l.TokensOf(ctx, "a")
	assert.Equal(t, 1, left)
	assert.Equal(t, []spend{{"a", 1, 2, 3}, {"a", 1, 2, 1}}, rec.entries)
}

func TestLedger_IneligibleSpendsNothing(t *testing.T) {
	l := newLedger()
	l.Open("a", 3)
	ctx := context.Background()

	ok, err := l.TrySpend(ctx, "a", 1, func() (bool, error) { return false, nil })
	require.NoError(t, err)
	assert.False(t, ok)

	boom := errors.New("cooldown store down")
	ok, err = l.TrySpend(ctx, "a", 1, func() (bool, error) { return true, boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, ok)

	left, _ := l.TokensOf(ctx, "a")
	assert.Equal(t, 3, left)
}

func TestLedger_EligibilityNotConsultedWhenBroke(t *testing.T) {
	l := newLedger()
	l.Open("a", 0)
	called := false
	ok, err := l.TrySpend(context.Background(), "a", 1, func() (bool, error) {
		called = true
		return true, nil
	})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, called)
}

func TestLedger_Errors(t *testing.T) {
	l := newLedger()
	ctx := context.Background()

	_, err := l.TokensOf(ctx, "ghost")
	assert.ErrorIs(t, err, ai.ErrNoAccount)
	_, err = l.TrySpend(ctx, "ghost", 1, always)
	assert.ErrorIs(t, err, ai.ErrNoAccount)

	l.Open("a", 3)
	_, err = l.TrySpend(ctx, "a", -1, always)
	assert.ErrorIs(t, err, ai.ErrMalformedSkill)

	l.Close("a")
	_, err = l.TokensOf(ctx, "a")
	assert.ErrorIs(t, err, ai.ErrNoAccount)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	l.Open("b", 3)
	_, err = l.TrySpend(cctx, "b", 1, always)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLedger_ConcurrentSpendsNeverOverdraw(t *testing.T) {
	l := NewLedger(Config{}, nil)
	l.Open("a", 50)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := l.TrySpend(ctx, "a", 1, always)
			if err == nil && ok {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, accepted)
	left, _ := l.TokensOf(ctx, "a")
	assert.Zero(t, left)
}

func TestLedger_Snapshot(t *testing.T) {
	l := newLedger()
	l.Open("b", 1)
	l.Open("a", 2)
	assert.Equal(t, []Balance{{"a", 2}, {"b", 1}}, l.Snapshot())
}
