/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduler

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// Elector is the part of leadership.Election the wrapper needs.
type Elector interface {
	Start(ctx context.Context) error
	Stop() error
	IsLeader() bool
	LeaderCh() <-chan bool
}

// Runner is a loop that runs until its context is cancelled.
type Runner interface {
	Run(ctx context.Context) error
}

// LeaderAware runs the scheduler only while this instance holds the lease.
type LeaderAware struct {
	runner   Runner
	election Elector
	logger   zerolog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	running chan struct{}
}

// NewLeaderAware wraps runner with leader election.
func NewLeaderAware(runner Runner, election Elector, logger zerolog.Logger) *LeaderAware {
	return &LeaderAware{
		runner:   runner,
		election: election,
		logger:   logger.With().Str("component", "leader_aware_scheduler").Logger(),
	}
}

// Start begins the election and starts or stops the runner as leadership
// changes.
func (la *LeaderAware) Start(ctx context.Context) error {
	la.mu.Lock()
	la.ctx = ctx
	la.mu.Unlock()

	if err := la.election.Start(ctx); err != nil {
		return err
	}
	go la.monitor(ctx)
	return nil
}

// Stop halts the runner and leaves the election.
func (la *LeaderAware) Stop() error {
	la.stopRunner()
	return la.election.Stop()
}

// IsLeader reports whether this instance is the leader.
func (la *LeaderAware) IsLeader() bool {
	return la.election.IsLeader()
}

// Running reports whether the runner is active.
func (la *LeaderAware) Running() bool {
	la.mu.Lock()
	defer la.mu.Unlock()
	return la.running != nil
}

func (la *LeaderAware) monitor(ctx context.Context) {
	if la.election.IsLeader() {
		la.startRunner()
	}
	for {
		select {
		case <-ctx.Done():
			la.stopRunner()
			return
		case leader := <-la.election.LeaderCh():
			if leader {
				la.logger.Info().Msg("became leader, starting scheduler")
				la.startRunner()
			} else {
				la.logger.Warn().Msg("lost leadership, stopping scheduler")
				la.stopRunner()
			}
		}
	}
}

func (la *LeaderAware) startRunner() {
	la.mu.Lock()
	defer la.mu.Unlock()
	if la.running != nil {
		return
	}

	ctx, cancel := context.WithCancel(la.ctx)
	done := make(chan struct{})
	la.cancel, la.running = cancel, done

	go func() {
		defer close(done)
		if err := la.runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			la.logger.Error().Err(err).Msg("scheduler exited")
		}
	}()
}

func (la *LeaderAware) stopRunner() {
	la.mu.Lock()
	cancel, done := la.cancel, la.running
	la.cancel, la.running = nil, nil
	la.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
