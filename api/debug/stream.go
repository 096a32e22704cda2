package debug

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/tacticsai/cache"
	"github.com/kasuganosora/tacticsai/game/trace"
	"go.uber.org/zap"
)

const keepaliveEvery = 30 * time.Second

// Stream serves the live trace feed as server-sent events.
type Stream struct {
	pubsub  cache.PubSub
	channel string
	logger  *zap.Logger
}

// NewStream creates a Stream on channel ("" = trace.DefaultChannel).
func NewStream(pubsub cache.PubSub, channel string, logger *zap.Logger) *Stream {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stream{pubsub: pubsub, channel: channel, logger: logger}
}

// ServeSSE streams trace events, optionally filtered by ?unit=.
// GET /debug/trace/stream
func (s *Stream) ServeSSE(c *gin.Context) {
	unit := c.Query("unit")
	ctx := c.Request.Context()

	events, unsub, err := trace.Subscribe(ctx, s.pubsub, s.channel)
	if err != nil {
		s.logger.Error("trace subscribe failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "subscribe failed"})
		return
	}
	defer unsub()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	fmt.Fprintf(c.Writer, "event: connected\ndata: {}\n\n")
	c.Writer.Flush()

	ticker := time.NewTicker(keepaliveEvery)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if unit != "" && ev.UnitID != unit {
				continue
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(c.Writer, "event: trace\ndata: %s\n\n", data)
			c.Writer.Flush()

		case <-ticker.C:
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-ctx.Done():
			return
		}
	}
}
