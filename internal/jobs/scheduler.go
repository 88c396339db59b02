package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// runTimeout bounds a single reconciliation sweep.
const runTimeout = 5 * time.Minute

// Scheduler triggers the reconciler on a cron schedule. The reconciler stays
// out of the request path; this is its only periodic driver.
type Scheduler struct {
	cron       *cron.Cron
	reconciler *Reconciler
	logger     *zap.Logger
}

// NewScheduler creates a Scheduler around the given reconciler.
func NewScheduler(reconciler *Reconciler, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		reconciler: reconciler,
		logger:     logger.Named("scheduler"),
	}
}

// Start registers the reconciliation job with the given cron spec
// (e.g. "@every 5m") and starts the scheduler.
func (s *Scheduler) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		if err := s.reconciler.Run(ctx); err != nil {
			s.logger.Error("Reconciliation run failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("Reconciliation scheduler started", zap.String("spec", spec))
	return nil
}

// Stop halts the scheduler and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Reconciliation scheduler stopped")
}
