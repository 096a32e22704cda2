package debug

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/tacticsai/game/ai"
	"github.com/kasuganosora/tacticsai/game/skirmish"
	"github.com/kasuganosora/tacticsai/model"
	"go.uber.org/zap"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Skirmish is the read side of a running skirmish.
type Skirmish interface {
	ID() string
	Snapshot(ctx context.Context) skirmish.State
	Log(ctx context.Context, n int) ([]json.RawMessage, error)
}

// DecisionStore serves persisted decisions.
type DecisionStore interface {
	RecentDecisions(ctx context.Context, skirmishID string, limit int) ([]model.DecisionLog, error)
}

// TaskLister lists scheduler tasks.
type TaskLister interface {
	ListTickers() []string
}

// Handler serves read-only views of the decision engine.
type Handler struct {
	trees     ai.Archetypes
	skirmish  Skirmish
	decisions DecisionStore
	tasks     TaskLister
	logger    *zap.Logger
}

// NewHandler creates a Handler. decisions and tasks may be nil.
func NewHandler(
	trees ai.Archetypes,
	sk Skirmish,
	decisions DecisionStore,
	tasks TaskLister,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{trees: trees, skirmish: sk, decisions: decisions, tasks: tasks, logger: logger}
}

// Archetypes returns the outline of every archetype tree.
// GET /debug/archetypes
func (h *Handler) Archetypes(c *gin.Context) {
	out := make(map[string]ai.Outline, len(h.trees))
	for _, name := range h.trees.Names() {
		out[name] = ai.Describe(h.trees[name].Root)
	}
	c.JSON(http.StatusOK, gin.H{"archetypes": out, "names": h.trees.Names()})
}

// Archetype returns one tree outline.
// GET /debug/archetypes/:name
func (h *Handler) Archetype(c *gin.Context) {
	bt, err := h.trees.For(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ai.Describe(bt.Root))
}

// State returns the whole skirmish snapshot.
// GET /debug/state
func (h *Handler) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.skirmish.Snapshot(c.Request.Context()))
}

// Unit returns one unit from the snapshot.
// GET /debug/units/:id
func (h *Handler) Unit(c *gin.Context) {
	id := c.Param("id")
	for _, u := range h.skirmish.Snapshot(c.Request.Context()).Units {
		if u.ID == id {
			c.JSON(http.StatusOK, u)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "unit not found"})
}

// Log returns the newest skirmish events.
// GET /debug/log?limit=
func (h *Handler) Log(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	events, err := h.skirmish.Log(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("read skirmish log", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "log unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

// Decisions returns persisted decisions with their traces.
// GET /debug/decisions?limit=
func (h *Handler) Decisions(c *gin.Context) {
	if h.decisions == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "decision store disabled"})
		return
	}
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	rows, err := h.decisions.RecentDecisions(c.Request.Context(), h.skirmish.ID(), limit)
	if err != nil {
		h.logger.Error("read decisions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "decisions unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"decisions": rows, "count": len(rows)})
}

// Scheduler lists the registered ticker tasks.
// GET /debug/scheduler
func (h *Handler) Scheduler(c *gin.Context) {
	tasks := []string{}
	if h.tasks != nil {
		tasks = h.tasks.ListTickers()
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// queryLimit parses ?limit=, answering 400 itself on bad input.
func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return 0, false
	}
	if n > maxLimit {
		n = maxLimit
	}
	return n, true
}
