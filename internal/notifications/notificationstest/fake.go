/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package notificationstest provides in-memory gateway fakes for tests.
package notificationstest

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/friendsincode/recruitd/internal/notifications"
)

// Sent is one captured outbound message.
type Sent struct {
	To      string
	Subject string
	Body    string
}

// Sender records messages and can be told to fail for given recipients.
type Sender struct {
	mu      sync.Mutex
	sent    []Sent
	failTo  map[string]error
	failAll error
}

// NewSender returns an empty recording sender.
func NewSender() *Sender {
	return &Sender{failTo: make(map[string]error)}
}

// Send implements notifications.Sender.
func (s *Sender) Send(_ context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return s.failAll
	}
	if err, ok := s.failTo[strings.ToLower(to)]; ok {
		return err
	}
	s.sent = append(s.sent, Sent{To: to, Subject: subject, Body: body})
	return nil
}

// FailFor makes every send to addr return err until Recover is called.
func (s *Sender) FailFor(addr string, err error) {
	s.mu.Lock()
	s.failTo[strings.ToLower(addr)] = err
	s.mu.Unlock()
}

// FailAll makes every send return err; nil restores delivery.
func (s *Sender) FailAll(err error) {
	s.mu.Lock()
	s.failAll = err
	s.mu.Unlock()
}

// Recover clears the failure for addr.
func (s *Sender) Recover(addr string) {
	s.mu.Lock()
	delete(s.failTo, strings.ToLower(addr))
	s.mu.Unlock()
}

// Sent returns a copy of all delivered messages.
func (s *Sender) Sent() []Sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Sent(nil), s.sent...)
}

// SentTo returns the messages delivered to addr.
func (s *Sender) SentTo(addr string) []Sent {
	var out []Sent
	for _, m := range s.Sent() {
		if strings.EqualFold(m.To, addr) {
			out = append(out, m)
		}
	}
	return out
}

// Reset forgets delivered messages.
func (s *Sender) Reset() {
	s.mu.Lock()
	s.sent = nil
	s.mu.Unlock()
}

// Inbox is an in-memory notifications.Inbox.
type Inbox struct {
	mu       sync.Mutex
	messages []notifications.Reply
	read     map[string]bool
	pollErr  error
}

// NewInbox returns an empty inbox.
func NewInbox() *Inbox {
	return &Inbox{read: make(map[string]bool)}
}

// Deliver adds an unread message and returns its inbox ID.
func (in *Inbox) Deliver(r notifications.Reply) string {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.MessageID == "" {
		r.MessageID = r.ID
	}
	in.mu.Lock()
	in.messages = append(in.messages, r)
	in.mu.Unlock()
	return r.ID
}

// FailPolls makes PollUnreadReplies return err; nil restores it.
func (in *Inbox) FailPolls(err error) {
	in.mu.Lock()
	in.pollErr = err
	in.mu.Unlock()
}

// PollUnreadReplies implements notifications.Inbox.
func (in *Inbox) PollUnreadReplies(_ context.Context, subjectFilter string) ([]notifications.Reply, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.pollErr != nil {
		return nil, in.pollErr
	}
	var out []notifications.Reply
	for _, m := range in.messages {
		if in.read[m.ID] {
			continue
		}
		if !strings.Contains(strings.ToLower(m.Subject), strings.ToLower(subjectFilter)) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// MarkRead implements notifications.Inbox.
func (in *Inbox) MarkRead(_ context.Context, id string) error {
	in.mu.Lock()
	in.read[id] = true
	in.mu.Unlock()
	return nil
}

// IsRead reports whether the message with inbox ID id was marked read.
func (in *Inbox) IsRead(id string) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.read[id]
}
