package debug

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/tacticsai/config"
	mw "github.com/kasuganosora/tacticsai/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// NewRouter wires the debug endpoints behind the standard middleware chain.
// stream may be nil when no pub/sub is configured.
func NewRouter(ctx context.Context, srv config.ServerConfig, h *Handler, stream *Stream, logger *zap.Logger) *gin.Engine {
	if !srv.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.IPWhitelist(srv.AllowIPs))
	r.Use(mw.RateLimit(ctx, rate.Limit(srv.RateLimitRPS), srv.RateLimitBurst))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	g := r.Group("/debug")
	{
		g.GET("/archetypes", h.Archetypes)
		g.GET("/archetypes/:name", h.Archetype)
		g.GET("/state", h.State)
		g.GET("/units/:id", h.Unit)
		g.GET("/log", h.Log)
		g.GET("/decisions", h.Decisions)
		g.GET("/scheduler", h.Scheduler)
		if stream != nil {
			g.GET("/trace/stream", stream.ServeSSE)
		}
	}
	return r
}
