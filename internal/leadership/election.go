/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package leadership elects a single scheduler instance through a Redis
// lease.
package leadership

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/recruitd/internal/telemetry"
)

const (
	defaultElectionKey     = "recruitd:leader:scheduler"
	defaultLeaseDuration   = 15 * time.Second
	defaultRenewalInterval = 5 * time.Second
	defaultRetryInterval   = 2 * time.Second
)

// renewScript extends the lease only while this instance still owns it.
var renewScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Config configures leader election.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Key is the Redis key holding the leader's instance ID.
	Key string
	// LeaseDuration is how long a lease lives without renewal.
	LeaseDuration time.Duration
	// RenewalInterval is how often the leader renews.
	RenewalInterval time.Duration
	// RetryInterval is how often followers campaign.
	RetryInterval time.Duration

	InstanceID string
}

// DefaultConfig returns default election configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:       "localhost:6379",
		Key:             defaultElectionKey,
		LeaseDuration:   defaultLeaseDuration,
		RenewalInterval: defaultRenewalInterval,
		RetryInterval:   defaultRetryInterval,
		InstanceID:      uuid.NewString(),
	}
}

// Election campaigns for, renews and releases the scheduler lease.
type Election struct {
	client redis.UniversalClient
	owned  bool
	logger zerolog.Logger
	cfg    Config

	leader   atomic.Bool
	leaderCh chan bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewElection connects to Redis and returns an election.
func NewElection(cfg Config, logger zerolog.Logger) (*Election, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	e := NewElectionWithClient(client, cfg, logger)
	e.owned = true
	e.logger.Info().Str("redis_addr", cfg.RedisAddr).Msg("connected to redis for leader election")
	return e, nil
}

// NewElectionWithClient returns an election using an existing client. The
// caller keeps ownership of the client.
func NewElectionWithClient(client redis.UniversalClient, cfg Config, logger zerolog.Logger) *Election {
	def := DefaultConfig()
	if cfg.Key == "" {
		cfg.Key = def.Key
	}
	if cfg.LeaseDuration <= 0 {
		cfg.LeaseDuration = def.LeaseDuration
	}
	if cfg.RenewalInterval <= 0 {
		cfg.RenewalInterval = def.RenewalInterval
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = def.RetryInterval
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = def.InstanceID
	}
	return &Election{
		client:   client,
		cfg:      cfg,
		logger:   logger.With().Str("component", "leader_election").Str("instance_id", cfg.InstanceID).Logger(),
		leaderCh: make(chan bool, 1),
	}
}

// InstanceID returns this instance's identity in the election.
func (e *Election) InstanceID() string {
	return e.cfg.InstanceID
}

// Start begins campaigning in the background.
func (e *Election) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		return errors.New("election already started")
	}
	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})

	e.logger.Info().Dur("lease", e.cfg.LeaseDuration).Msg("starting leader election")
	go e.campaignLoop(ctx)
	return nil
}

// Stop ends the campaign and releases the lease if held.
func (e *Election) Stop() error {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	var err error
	if e.leader.Load() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if rerr := e.release(ctx); rerr != nil {
			e.logger.Error().Err(rerr).Msg("failed to release leadership")
			err = rerr
		}
		e.setLeader(false)
	}
	if e.owned {
		if cerr := e.client.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// IsLeader reports whether this instance holds the lease.
func (e *Election) IsLeader() bool {
	return e.leader.Load()
}

// LeaderCh receives leadership changes. Slow readers only see the latest.
func (e *Election) LeaderCh() <-chan bool {
	return e.leaderCh
}

// Leader returns the current lease holder, or "" when there is none.
func (e *Election) Leader(ctx context.Context) (string, error) {
	id, err := e.client.Get(ctx, e.cfg.Key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get leader: %w", err)
	}
	return id, nil
}

func (e *Election) campaignLoop(ctx context.Context) {
	defer close(e.done)
	e.Campaign(ctx)
	for {
		interval := e.cfg.RetryInterval
		if e.leader.Load() {
			interval = e.cfg.RenewalInterval
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
			e.Campaign(ctx)
		}
	}
}

// Campaign makes one attempt to acquire or renew the lease and reports
// whether this instance is leader afterwards.
func (e *Election) Campaign(ctx context.Context) bool {
	held, err := e.acquire(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return e.leader.Load()
		}
		e.logger.Error().Err(err).Msg("leader election attempt failed")
		held = false
	}
	e.setLeader(held)
	return held
}

func (e *Election) acquire(ctx context.Context) (bool, error) {
	if e.leader.Load() {
		renewed, err := renewScript.Run(ctx, e.client, []string{e.cfg.Key},
			e.cfg.InstanceID, e.cfg.LeaseDuration.Milliseconds()).Int()
		if err != nil {
			return false, fmt.Errorf("renew lease: %w", err)
		}
		if renewed == 1 {
			return true, nil
		}
	}

	ok, err := e.client.SetNX(ctx, e.cfg.Key, e.cfg.InstanceID, e.cfg.LeaseDuration).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lease: %w", err)
	}
	return ok, nil
}

func (e *Election) release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, e.client, []string{e.cfg.Key}, e.cfg.InstanceID).Err(); err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	e.logger.Info().Msg("released leadership")
	return nil
}

func (e *Election) setLeader(leader bool) {
	if e.leader.Swap(leader) == leader {
		return
	}

	change := "lost"
	gauge := 0.0
	if leader {
		change, gauge = "acquired", 1
		e.logger.Info().Msg("acquired leadership")
	} else {
		e.logger.Warn().Msg("lost leadership")
	}
	telemetry.LeaderElectionStatus.WithLabelValues(e.cfg.InstanceID).Set(gauge)
	telemetry.LeaderElectionChanges.WithLabelValues(e.cfg.InstanceID, change).Inc()

	// Keep only the latest state in the buffer.
	select {
	case <-e.leaderCh:
	default:
	}
	select {
	case e.leaderCh <- leader:
	default:
	}
}
