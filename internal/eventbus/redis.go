/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/friendsincode/recruitd/internal/events"
)

// RedisSink publishes every event to one Redis pub/sub channel.
type RedisSink struct {
	client  redis.UniversalClient
	channel string
}

// NewRedisSink returns a sink on client. The caller owns the client.
func NewRedisSink(client redis.UniversalClient, channel string) *RedisSink {
	return &RedisSink{client: client, channel: channel}
}

// Name implements Sink.
func (s *RedisSink) Name() string { return "redis" }

// Send implements Sink.
func (s *RedisSink) Send(ctx context.Context, _ events.EventType, data []byte) error {
	if err := s.client.Publish(ctx, s.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Close implements Sink.
func (s *RedisSink) Close() error { return nil }
