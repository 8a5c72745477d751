/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus forwards in-process domain events to external brokers.
package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friendsincode/recruitd/internal/events"
	"github.com/friendsincode/recruitd/internal/telemetry"
)

const (
	queueSize   = 256
	sendTimeout = 5 * time.Second
)

// Sink delivers encoded events to one broker.
type Sink interface {
	Name() string
	Send(ctx context.Context, eventType events.EventType, data []byte) error
	Close() error
}

// Envelope is the wire form of a forwarded event.
type Envelope struct {
	ID        string           `json:"id"`
	Type      events.EventType `json:"type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
}

type queued struct {
	eventType events.EventType
	data      []byte
}

// Forwarder publishes to a local publisher and queues a copy for each sink.
// Publish never blocks; when the queue is full the event is dropped and
// counted.
type Forwarder struct {
	local  events.Publisher
	sinks  []Sink
	nodeID string
	logger zerolog.Logger

	queue chan queued
	wg    sync.WaitGroup
	once  sync.Once
	mu    sync.RWMutex
	done  bool
}

// NewForwarder starts a forwarder. local may be nil.
func NewForwarder(local events.Publisher, sinks []Sink, nodeID string, logger zerolog.Logger) *Forwarder {
	if local == nil {
		local = events.Discard{}
	}
	if nodeID == "" {
		host, _ := os.Hostname()
		nodeID = host + "-" + uuid.NewString()[:8]
	}
	f := &Forwarder{
		local:  local,
		sinks:  sinks,
		nodeID: nodeID,
		logger: logger.With().Str("component", "eventbus").Logger(),
		queue:  make(chan queued, queueSize),
	}
	f.wg.Add(1)
	go f.loop()
	return f
}

// Publish implements events.Publisher.
func (f *Forwarder) Publish(eventType events.EventType, payload events.Payload) {
	f.local.Publish(eventType, payload)
	if len(f.sinks) == 0 {
		return
	}

	data, err := json.Marshal(Envelope{
		ID:        uuid.NewString(),
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    f.nodeID,
	})
	if err != nil {
		f.logger.Error().Err(err).Str("event", string(eventType)).Msg("encode event")
		return
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.done {
		return
	}
	select {
	case f.queue <- queued{eventType: eventType, data: data}:
	default:
		telemetry.EventsPublishedTotal.WithLabelValues(string(eventType), "queue", "dropped").Inc()
		f.logger.Warn().Str("event", string(eventType)).Msg("event queue full, dropping")
	}
}

func (f *Forwarder) loop() {
	defer f.wg.Done()
	for item := range f.queue {
		for _, sink := range f.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			err := sink.Send(ctx, item.eventType, item.data)
			cancel()

			status := "ok"
			if err != nil {
				status = "error"
				f.logger.Warn().Err(err).Str("sink", sink.Name()).Str("event", string(item.eventType)).Msg("forward event")
			}
			telemetry.EventsPublishedTotal.WithLabelValues(string(item.eventType), sink.Name(), status).Inc()
		}
	}
}

// Close drains queued events and closes every sink.
func (f *Forwarder) Close() error {
	var errs []error
	f.once.Do(func() {
		f.mu.Lock()
		f.done = true
		close(f.queue)
		f.mu.Unlock()
		f.wg.Wait()

		for _, sink := range f.sinks {
			if err := sink.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", sink.Name(), err))
			}
		}
	})
	return errors.Join(errs...)
}
