/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package notifications

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	logger zerolog.Logger
}

// NewLogSender creates a development Sender.
func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger.With().Str("component", "mail_log").Logger()}
}

// Send implements Sender.
func (l *LogSender) Send(_ context.Context, to, subject, body string) error {
	l.logger.Info().Str("to", to).Str("subject", subject).Str("body", body).Msg("mail (not delivered)")
	return nil
}
