package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apidebug "github.com/kasuganosora/tacticsai/api/debug"
	"github.com/kasuganosora/tacticsai/audit"
	"github.com/kasuganosora/tacticsai/cache"
	"github.com/kasuganosora/tacticsai/config"
	dbadapter "github.com/kasuganosora/tacticsai/db"
	"github.com/kasuganosora/tacticsai/game/ai"
	"github.com/kasuganosora/tacticsai/game/economy"
	"github.com/kasuganosora/tacticsai/game/skill"
	"github.com/kasuganosora/tacticsai/game/skirmish"
	"github.com/kasuganosora/tacticsai/game/trace"
	"github.com/kasuganosora/tacticsai/model"
	"github.com/kasuganosora/tacticsai/scheduler"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "data/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database, logger)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(context.Background())

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- Skills / Scenario ----
	catalog, err := skill.LoadCatalog(cfg.Skirmish.SkillsPath)
	if err != nil {
		log.Fatalf("skills: %v", err)
	}
	sc, err := skirmish.LoadScenario(cfg.Skirmish.ScenarioPath)
	if err != nil {
		log.Fatalf("scenario: %v", err)
	}
	board, err := sc.Build(catalog)
	if err != nil {
		log.Fatalf("scenario %s: %v", sc.ID, err)
	}
	logger.Info("scenario loaded",
		zap.String("id", sc.ID),
		zap.Int("units", len(board.Units())),
		zap.Strings("skills", catalog.IDs()))

	// ---- Engine ----
	ledger := economy.NewLedger(economy.Config(cfg.Economy), logger)
	ledger.SetRecorder(auditSvc.Spends(sc.ID))
	skills := skill.NewService(c, catalog, ledger, logger)
	exec := skirmish.NewExecutor(board, ledger, logger)

	recorder := &ai.Recorder{Limit: cfg.Skirmish.TraceKeep}
	tracers := ai.MultiTracer{recorder, trace.NewPubSubTracer(pubsub, cfg.Skirmish.TraceChannel, logger)}
	if cfg.Server.Debug {
		tracers = append(tracers, ai.ZapTracer{Logger: logger})
	}
	trees, err := ai.BuildArchetypes(cfg.AI.Archetype(), ai.Deps{
		Ledger:     ledger,
		Skills:     skills,
		Executor:   exec,
		Roster:     board,
		Pathfinder: board.Pathfinder(),
		Mover:      exec,
		Tracer:     tracers,
	})
	if err != nil {
		log.Fatalf("archetypes: %v", err)
	}

	var limiter *rate.Limiter
	if cfg.Skirmish.TurnsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Skirmish.TurnsPerSec), max(1, cfg.Skirmish.TurnBurst))
	}
	runner, err := skirmish.NewRunner(skirmish.RunnerConfig{
		ID:            sc.ID,
		Board:         board,
		Ledger:        ledger,
		Skills:        skills,
		Executor:      exec,
		Trees:         trees,
		Recorder:      recorder,
		Sink:          auditSvc,
		Cache:         c,
		Limiter:       limiter,
		Seed:          cfg.Skirmish.Seed,
		MaxRounds:     cfg.Skirmish.MaxRounds,
		LogLimit:      cfg.Skirmish.LogLimit,
		InitialTokens: sc.InitialTokens(),
		Logger:        logger,
	})
	if err != nil {
		log.Fatalf("runner: %v", err)
	}

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	sched.AddTicker("skirmish:"+sc.ID, cfg.Skirmish.RoundInterval, func(ctx context.Context) error {
		res, err := runner.PlayRound(ctx)
		switch {
		case errors.Is(err, skirmish.ErrLocked):
			logger.Debug("round held by another worker")
			return nil
		case ai.IsStructural(err):
			logger.Error("skirmish halted", zap.Error(err))
			return scheduler.ErrDone
		case err != nil:
			return err
		case res != nil:
			logger.Info("skirmish finished",
				zap.Int("rounds", res.Rounds),
				zap.Int("winner", res.Winner),
				zap.Bool("draw", res.Draw))
			return scheduler.ErrDone
		}
		return nil
	})

	// ---- Debug HTTP ----
	if cfg.Server.DebugPort == 0 {
		logger.Info("debug server disabled")
		<-ctx.Done()
		return
	}
	handler := apidebug.NewHandler(trees, runner, auditSvc, sched, logger)
	stream := apidebug.NewStream(pubsub, cfg.Skirmish.TraceChannel, logger)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.DebugPort),
		Handler:           apidebug.NewRouter(ctx, cfg.Server, handler, stream, logger),
		ReadHeaderTimeout: 5 * time.Second,
		// Trace streams end on shutdown instead of holding it open.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	go func() {
		logger.Info("Debug server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("debug server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("debug server shutdown", zap.Error(err))
	}
}
