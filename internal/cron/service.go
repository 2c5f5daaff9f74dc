package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	// Interval between cycles in Run. Zero means daily.
	Interval time.Duration
}

// Service runs the storefront maintenance jobs (monthly leaderboard snapshot,
// outbox retention) under a lock so only one worker replica works a cycle.
type Service struct {
	logg     *logger.Logger
	jobs     *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
}

// Report summarizes one cycle.
type Report struct {
	Skipped   bool
	Completed []string
	Failed    []string
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.Lock == nil:
		return nil, fmt.Errorf("lock required")
	}
	s := &Service{
		logg:     params.Logger,
		jobs:     params.Registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: params.Interval,
	}
	if s.jobs == nil {
		s.jobs = NewRegistry()
	}
	if s.interval <= 0 {
		s.interval = 24 * time.Hour
	}
	return s, nil
}

// Run works one cycle right away and then one per interval until ctx ends.
// Job failures are logged and do not stop the loop.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logg.Error(ctx, "cron.cycle_failed", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce works a single cycle. The error joins every job failure, so a
// one-shot worker can exit non-zero when any job failed.
func (s *Service) RunOnce(ctx context.Context) (Report, error) {
	var report Report
	held, err := s.lock.Acquire(ctx)
	if err != nil {
		return report, fmt.Errorf("acquire cron lock: %w", err)
	}
	if !held {
		report.Skipped = true
		s.logg.Info(ctx, "cron.cycle_skipped")
		return report, nil
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.logg.Error(ctx, "cron.lock_release_failed", err)
		}
	}()

	var failures error
	for _, job := range s.jobs.Jobs() {
		if err := s.runJob(ctx, job); err != nil {
			report.Failed = append(report.Failed, job.Name())
			failures = multierr.Append(failures, fmt.Errorf("%s: %w", job.Name(), err))
			continue
		}
		report.Completed = append(report.Completed, job.Name())
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"completed": report.Completed,
		"failed":    report.Failed,
	}), "cron.cycle_done")
	return report, failures
}

func (s *Service) runJob(ctx context.Context, job Job) (err error) {
	jobCtx := s.logg.WithField(ctx, "job", job.Name())
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
		took := time.Since(start)
		s.metrics.Observe(job.Name(), took, err)
		jobCtx = s.logg.WithField(jobCtx, "duration_ms", took.Milliseconds())
		if err != nil {
			s.logg.Error(jobCtx, "cron.job_failed", err)
			return
		}
		s.logg.Info(jobCtx, "cron.job")
	}()
	return job.Run(jobCtx)
}
