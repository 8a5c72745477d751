/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package leadership

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestSingleLeader(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()
	cfg := Config{LeaseDuration: 10 * time.Second}

	a := NewElectionWithClient(client, withID(cfg, "a"), zerolog.Nop())
	b := NewElectionWithClient(client, withID(cfg, "b"), zerolog.Nop())

	assert.True(t, a.Campaign(ctx))
	assert.False(t, b.Campaign(ctx))
	assert.True(t, a.Campaign(ctx), "leader renews")

	leader, err := a.Leader(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", leader)
	assert.Equal(t, "recruitd:leader:scheduler", defaultElectionKey)
	assert.True(t, mr.Exists(defaultElectionKey))

	// Lease lapses without renewal.
	mr.FastForward(11 * time.Second)
	assert.True(t, b.Campaign(ctx))
	assert.False(t, a.Campaign(ctx), "former leader notices the takeover")
	assert.False(t, a.IsLeader())
	assert.True(t, b.IsLeader())
}

func TestRenewalExtendsLease(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()
	e := NewElectionWithClient(client, Config{InstanceID: "a", LeaseDuration: 10 * time.Second}, zerolog.Nop())

	require.True(t, e.Campaign(ctx))
	mr.FastForward(8 * time.Second)
	require.True(t, e.Campaign(ctx))
	mr.FastForward(8 * time.Second)

	leader, err := e.Leader(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", leader)
}

func TestLeaderChannelAndRelease(t *testing.T) {
	mr, client := newRedis(t)
	e := NewElectionWithClient(client, Config{
		InstanceID:      "a",
		LeaseDuration:   time.Second,
		RenewalInterval: 20 * time.Millisecond,
		RetryInterval:   20 * time.Millisecond,
	}, zerolog.Nop())

	require.NoError(t, e.Start(context.Background()))
	require.Error(t, e.Start(context.Background()), "double start")

	select {
	case leader := <-e.LeaderCh():
		assert.True(t, leader)
	case <-time.After(2 * time.Second):
		t.Fatal("no leadership notification")
	}

	require.NoError(t, e.Stop())
	assert.False(t, e.IsLeader())
	assert.False(t, mr.Exists(defaultElectionKey), "lease released on stop")
}

func TestReleaseKeepsForeignLease(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()
	require.NoError(t, mr.Set(defaultElectionKey, "other"))

	e := NewElectionWithClient(client, Config{InstanceID: "a"}, zerolog.Nop())
	require.NoError(t, e.release(ctx))
	got, err := mr.Get(defaultElectionKey)
	require.NoError(t, err)
	assert.Equal(t, "other", got)
}

func withID(cfg Config, id string) Config {
	cfg.InstanceID = id
	return cfg
}
