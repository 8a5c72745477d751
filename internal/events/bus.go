/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	EventInterviewBooked    EventType = "interview.booked"
	EventInterviewCancelled EventType = "interview.cancelled"
	EventInterviewCompleted EventType = "interview.completed"

	EventOfferCreated  EventType = "offer.created"
	EventOfferSent     EventType = "offer.sent"
	EventOfferAccepted EventType = "offer.accepted"
	EventOfferRejected EventType = "offer.rejected"
	EventOfferExpired  EventType = "offer.expired"

	EventApplicationStatus EventType = "application.status"
)

// AllEventTypes lists every type published by the service.
func AllEventTypes() []EventType {
	return []EventType{
		EventInterviewBooked,
		EventInterviewCancelled,
		EventInterviewCompleted,
		EventOfferCreated,
		EventOfferSent,
		EventOfferAccepted,
		EventOfferRejected,
		EventOfferExpired,
		EventApplicationStatus,
	}
}

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// Publisher is the write side of the bus. Publish never blocks.
type Publisher interface {
	Publish(eventType EventType, payload Payload)
}

// Bus implements a simple in-process pubsub.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 32)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers. Slow subscribers miss events.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	if b == nil {
		return
	}
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subs[eventType]...)
	b.mu.RUnlock()
	for _, sub := range subs {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes the subscriber.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			close(sub)
			break
		}
	}
	b.subs[eventType] = subs
}

// Discard is a Publisher that drops everything.
type Discard struct{}

// Publish implements Publisher.
func (Discard) Publish(EventType, Payload) {}
