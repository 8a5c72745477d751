/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package notifications

import (
	"context"
	"time"
)

// Sender delivers one outbound plain-text message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Notifier sends a Message and records the outcome. Service implements it.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Reply is an unread inbound message.
type Reply struct {
	// ID is the inbox's handle for the message, passed back to MarkRead.
	ID string
	// MessageID is the RFC 5322 Message-Id, or ID when the header is absent.
	MessageID  string
	From       string
	Subject    string
	Body       string
	ReceivedAt time.Time
}

// Inbox exposes unread replies whose subject contains a filter string.
type Inbox interface {
	PollUnreadReplies(ctx context.Context, subjectFilter string) ([]Reply, error)
	MarkRead(ctx context.Context, id string) error
}

// NoopInbox is used when no inbound mailbox is configured.
type NoopInbox struct{}

// PollUnreadReplies implements Inbox.
func (NoopInbox) PollUnreadReplies(context.Context, string) ([]Reply, error) { return nil, nil }

// MarkRead implements Inbox.
func (NoopInbox) MarkRead(context.Context, string) error { return nil }
