package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/kasuganosora/tacticsai/game/skirmish"
	"github.com/kasuganosora/tacticsai/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	queueSize     = 1024
	batchSize     = 100
	flushInterval = 2 * time.Second
)

// Service writes decisions and token spends asynchronously in batches.
// It implements skirmish.DecisionSink; Spends adapts it to
// economy.SpendRecorder.
type Service struct {
	db        *gorm.DB
	decisions chan *model.DecisionLog
	spends    chan *model.TokenSpend
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	logger    *zap.Logger
}

// New creates a new audit Service and starts its background worker.
func New(db *gorm.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &Service{
		db:        db,
		decisions: make(chan *model.DecisionLog, queueSize),
		spends:    make(chan *model.TokenSpend, queueSize),
		stopCh:    make(chan struct{}),
		logger:    logger,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// RecordDecision enqueues a decision for async DB write.
func (svc *Service) RecordDecision(d skirmish.Decision) {
	trace, err := json.Marshal(d.Trace)
	if err != nil {
		trace = []byte("[]")
	}
	record := &model.DecisionLog{
		SkirmishID: d.SkirmishID,
		Round:      d.Round,
		UnitID:     d.UnitID,
		Archetype:  d.Archetype,
		Status:     d.Status,
		Error:      d.Error,
		Tokens:     d.Tokens,
		Trace:      datatypes.JSON(trace),
	}
	select {
	case svc.decisions <- record:
	default:
		svc.logger.Warn("audit channel full, dropping decision",
			zap.String("unit", d.UnitID), zap.Int("round", d.Round))
	}
}

// Spends returns a spend recorder that tags spends with skirmishID.
func (svc *Service) Spends(skirmishID string) *SpendLog {
	return &SpendLog{svc: svc, skirmishID: skirmishID}
}

// SpendLog records ledger spends for one skirmish.
type SpendLog struct {
	svc        *Service
	skirmishID string
}

func (s *SpendLog) RecordSpend(unitID string, round, cost, balance int) {
	record := &model.TokenSpend{
		SkirmishID: s.skirmishID,
		UnitID:     unitID,
		Round:      round,
		Cost:       cost,
		Balance:    balance,
	}
	select {
	case s.svc.spends <- record:
	default:
		s.svc.logger.Warn("audit channel full, dropping spend", zap.String("unit", unitID))
	}
}

// RecentDecisions returns the newest decisions of a skirmish, newest first.
func (svc *Service) RecentDecisions(ctx context.Context, skirmishID string, limit int) ([]model.DecisionLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var out []model.DecisionLog
	err := svc.db.WithContext(ctx).
		Where("skirmish_id = ?", skirmishID).
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// Stop flushes remaining entries and shuts down the worker.
// It blocks until the worker goroutine has finished.
func (svc *Service) Stop(_ context.Context) {
	svc.stopOnce.Do(func() { close(svc.stopCh) })
	svc.wg.Wait()
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	decisions := make([]*model.DecisionLog, 0, batchSize)
	spends := make([]*model.TokenSpend, 0, batchSize)

	flush := func() {
		if len(decisions) > 0 {
			if err := svc.db.Create(&decisions).Error; err != nil {
				svc.logger.Error("decision batch write failed", zap.Error(err))
			}
			decisions = decisions[:0]
		}
		if len(spends) > 0 {
			if err := svc.db.Create(&spends).Error; err != nil {
				svc.logger.Error("spend batch write failed", zap.Error(err))
			}
			spends = spends[:0]
		}
	}

	for {
		select {
		case d := <-svc.decisions:
			decisions = append(decisions, d)
			if len(decisions) >= batchSize {
				flush()
			}
		case s := <-svc.spends:
			spends = append(spends, s)
			if len(spends) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			// Drain remaining entries.
			for {
				select {
				case d := <-svc.decisions:
					decisions = append(decisions, d)
				case s := <-svc.spends:
					spends = append(spends, s)
				default:
					flush()
					return
				}
			}
		}
	}
}
