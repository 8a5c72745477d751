/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/friendsincode/recruitd/internal/events"
)

// NATSConfig contains NATS connection configuration.
type NATSConfig struct {
	URL           string
	Subject       string // events go to <Subject>.<event type>
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultNATSConfig returns default NATS configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Subject:       "recruitd.events",
		Name:          "recruitd",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// natsConn is the part of *nats.Conn the sink uses.
type natsConn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSSink publishes events to NATS core subjects.
type NATSSink struct {
	conn    natsConn
	subject string
}

// DialNATS connects to NATS and returns a sink.
func DialNATS(cfg NATSConfig, logger zerolog.Logger) (*NATSSink, error) {
	def := DefaultNATSConfig()
	if cfg.URL == "" {
		cfg.URL = def.URL
	}
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = def.ReconnectWait
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = def.MaxReconnects
	}
	log := logger.With().Str("component", "nats").Logger()

	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.Timeout(cfg.Timeout),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	log.Info().Str("url", nc.ConnectedUrl()).Msg("connected to nats")
	return newNATSSink(nc, cfg.Subject), nil
}

func newNATSSink(conn natsConn, subject string) *NATSSink {
	if subject == "" {
		subject = DefaultNATSConfig().Subject
	}
	return &NATSSink{conn: conn, subject: subject}
}

// Name implements Sink.
func (s *NATSSink) Name() string { return "nats" }

// Send implements Sink. Core NATS publishes are buffered by the client, so
// ctx only guards the call.
func (s *NATSSink) Send(ctx context.Context, eventType events.EventType, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.conn.Publish(s.subject+"."+string(eventType), data); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

// Close drains pending publishes and closes the connection.
func (s *NATSSink) Close() error {
	return s.conn.Drain()
}
