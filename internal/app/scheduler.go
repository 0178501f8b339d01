package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// IndexPruner выгружает из индекса конфликтов закончившиеся занятия
type IndexPruner interface {
	PruneIndex() int
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	pruner   IndexPruner
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewScheduler создаёт новый планировщик. interval <= 0 отключает очистку индекса.
func NewScheduler(pruner IndexPruner, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		pruner:   pruner,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("Index pruning disabled")
		return
	}
	s.logger.Info("Starting background scheduler", zap.Duration("prune_interval", s.interval))

	s.wg.Add(1)
	go s.runPruneTask(ctx)
}

// Stop останавливает фоновые задачи и ждёт их завершения
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background scheduler")
		close(s.stopChan)
	})
	s.wg.Wait()
}

func (s *Scheduler) runPruneTask(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.prune()
		case <-s.stopChan:
			s.logger.Info("Index pruning task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Index pruning task cancelled")
			return
		}
	}
}

func (s *Scheduler) prune() {
	start := time.Now()
	removed := s.pruner.PruneIndex()
	if removed > 0 {
		s.logger.Info("Conflict index pruned",
			zap.Int("removed", removed),
			zap.Duration("took", time.Since(start)))
	}
}
