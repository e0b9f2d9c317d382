package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/pawmart/pawmart-backend/pkg/config"
	"github.com/pawmart/pawmart-backend/pkg/logger"
	"github.com/pawmart/pawmart-backend/pkg/metrics"
)

// Service runs the registered jobs on a fixed interval, one replica at a
// time per job via the distributed lock.
type Service struct {
	registry *Registry
	lock     *RedisLock
	cfg      config.CronConfig
	logg     *logger.Logger
	metrics  *metrics.CronJobMetrics
}

// NewService wires the cron runner.
func NewService(registry *Registry, lock *RedisLock, cfg config.CronConfig, logg *logger.Logger, m *metrics.CronJobMetrics) (*Service, error) {
	if registry == nil {
		return nil, fmt.Errorf("job registry required")
	}
	if lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	return &Service{registry: registry, lock: lock, cfg: cfg, logg: logg, metrics: m}, nil
}

// Run ticks until the context is cancelled. Each tick attempts every job.
func (s *Service) Run(ctx context.Context) error {
	interval := s.cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce executes every registered job once, skipping jobs whose lock is
// held elsewhere. Job failures are recorded and never stop the other jobs.
func (s *Service) RunOnce(ctx context.Context) {
	for _, job := range s.registry.Jobs() {
		s.runJob(ctx, job)
	}
}

func (s *Service) runJob(ctx context.Context, job Job) {
	name := job.Name()
	release, ok, err := s.lock.Acquire(ctx, name, s.cfg.LockTTL)
	if err != nil {
		if s.logg != nil {
			lctx := s.logg.WithField(ctx, "job", name)
			s.logg.Error(lctx, "acquiring job lock failed", err)
		}
		return
	}
	if !ok {
		return
	}
	defer release()

	start := time.Now()
	runErr := job.Run(ctx)
	elapsed := time.Since(start)

	if s.metrics != nil {
		s.metrics.ObserveDuration(name, elapsed)
	}
	lctx := ctx
	if s.logg != nil {
		lctx = s.logg.WithFields(ctx, map[string]any{"job": name, "elapsed": elapsed.String()})
	}
	if runErr != nil {
		if s.metrics != nil {
			s.metrics.IncFailure(name)
		}
		if s.logg != nil {
			s.logg.Error(lctx, "cron job failed", runErr)
		}
		return
	}
	if s.metrics != nil {
		s.metrics.IncSuccess(name)
	}
	if s.logg != nil {
		s.logg.Info(lctx, "cron job completed")
	}
}
