// Package trace streams behavior tree node results over the cache pub/sub.
package trace

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kasuganosora/tacticsai/cache"
	"github.com/kasuganosora/tacticsai/game/ai"
	"go.uber.org/zap"
)

// DefaultChannel is the pub/sub channel node results are published on.
const DefaultChannel = "ai:trace"

const publishTimeout = 500 * time.Millisecond

// PubSubTracer publishes every node result as a JSON ai.TraceEvent.
// Publish failures are logged and otherwise ignored; tracing never changes
// how a tree runs.
type PubSubTracer struct {
	ps      cache.PubSub
	channel string
	logger  *zap.Logger
}

// NewPubSubTracer creates a tracer publishing on channel ("" = DefaultChannel).
func NewPubSubTracer(ps cache.PubSub, channel string, logger *zap.Logger) *PubSubTracer {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PubSubTracer{ps: ps, channel: channel, logger: logger}
}

func (t *PubSubTracer) OnNodeEvaluated(ai.Node, ai.Unit) {}

func (t *PubSubTracer) OnNodeResult(n ai.Node, u ai.Unit, st ai.Status, detail string) {
	data, err := json.Marshal(ai.TraceEvent{
		UnitID: u.ID(),
		Node:   n.Name(),
		Status: st.String(),
		Detail: detail,
		At:     time.Now(),
	})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := t.ps.Publish(ctx, t.channel, string(data)); err != nil {
		t.logger.Warn("trace publish failed", zap.String("channel", t.channel), zap.Error(err))
	}
}

// Subscribe decodes the trace stream on channel ("" = DefaultChannel).
// Messages that are not trace events are skipped. The returned channel is
// closed when ctx ends or cancel is called.
func Subscribe(ctx context.Context, ps cache.PubSub, channel string) (<-chan ai.TraceEvent, func(), error) {
	if channel == "" {
		channel = DefaultChannel
	}
	msgs, cancel, err := ps.Subscribe(ctx, channel)
	if err != nil {
		return nil, nil, err
	}
	out := make(chan ai.TraceEvent, 64)
	go func() {
		defer close(out)
		for msg := range msgs {
			var ev ai.TraceEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, cancel, nil
}
