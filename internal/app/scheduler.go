package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// StaleLessonCompleter закрывает занятия, время которых давно прошло
type StaleLessonCompleter interface {
	AutoCompleteStale(ctx context.Context, now time.Time) (int, error)
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	completer StaleLessonCompleter
	interval  time.Duration
	logger    *zap.Logger
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	now       func() time.Time
}

// NewScheduler создаёт новый планировщик
func NewScheduler(completer StaleLessonCompleter, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		completer: completer,
		interval:  interval,
		logger:    logger,
		stopChan:  make(chan struct{}),
		now:       time.Now,
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler", zap.Duration("interval", s.interval))

	s.wg.Add(1)
	go s.runAutoCompleteTask(ctx)
}

// Stop останавливает фоновые задачи и ждёт их завершения
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background scheduler")
		close(s.stopChan)
	})
	s.wg.Wait()
}

// runAutoCompleteTask периодически закрывает забытые занятия
func (s *Scheduler) runAutoCompleteTask(ctx context.Context) {
	defer s.wg.Done()

	// Первый запуск сразу при старте
	s.completeStale(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.completeStale(ctx)
		case <-s.stopChan:
			s.logger.Info("Auto-complete task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Auto-complete task cancelled")
			return
		}
	}
}

func (s *Scheduler) completeStale(ctx context.Context) {
	n, err := s.completer.AutoCompleteStale(ctx, s.now())
	if err != nil {
		s.logger.Error("Failed to auto-complete stale lessons", zap.Error(err))
		return
	}

	if n > 0 {
		s.logger.Info("Stale lessons auto-completed", zap.Int("count", n))
	}
}
