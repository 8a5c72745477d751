/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/recruitd/internal/telemetry"
)

const (
	tracerName          = "recruitd/scheduler"
	defaultTickInterval = time.Minute
)

// Job is one unit of work run on every tick.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Service runs its jobs on a fixed interval. Jobs run in order and are
// isolated from each other: an error or panic in one is logged and counted
// and the remaining jobs still run.
type Service struct {
	jobs     []Job
	interval time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	lastRun time.Time
}

// New constructs the scheduler service.
func New(jobs []Job, interval time.Duration, logger zerolog.Logger) *Service {
	if interval <= 0 {
		interval = defaultTickInterval
	}
	return &Service{
		jobs:     jobs,
		interval: interval,
		logger:   logger.With().Str("component", "scheduler").Logger(),
	}
}

// Interval returns the tick interval.
func (s *Service) Interval() time.Duration {
	return s.interval
}

// LastRun returns when the last tick started.
func (s *Service) LastRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// Run executes the scheduler loop until the context is cancelled. The first
// tick runs immediately.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.interval).Int("jobs", len(s.jobs)).Msg("scheduler loop started")
	s.TickOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler loop stopped")
			return ctx.Err()
		case <-ticker.C:
			s.TickOnce(ctx)
		}
	}
}

// TickOnce runs every job once and returns the number that failed.
func (s *Service) TickOnce(ctx context.Context) int {
	telemetry.SchedulerTicksTotal.Inc()
	s.mu.Lock()
	s.lastRun = time.Now()
	s.mu.Unlock()

	failed := 0
	for _, job := range s.jobs {
		if ctx.Err() != nil {
			return failed
		}
		if err := s.runJob(ctx, job); err != nil {
			failed++
			s.logger.Error().Err(err).Str("job", job.Name).Msg("scheduler job failed")
			telemetry.SchedulerErrorsTotal.WithLabelValues(job.Name, "run").Inc()
		}
	}
	return failed
}

func (s *Service) runJob(ctx context.Context, job Job) (err error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "scheduler."+job.Name)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			telemetry.SchedulerErrorsTotal.WithLabelValues(job.Name, "panic").Inc()
		}
		telemetry.SchedulerJobDuration.WithLabelValues(job.Name).Observe(time.Since(start).Seconds())
		telemetry.RecordError(span, err)
		span.End()
	}()
	return job.Run(ctx)
}
