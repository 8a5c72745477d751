/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduler

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/friendsincode/recruitd/internal/offers"
	"github.com/friendsincode/recruitd/internal/reminders"
	"github.com/friendsincode/recruitd/internal/scheduling"
)

// ReminderJob sends due interview reminders. The dispatcher logs its own
// summary.
func ReminderJob(d *reminders.Dispatcher) Job {
	return Job{Name: "reminders", Run: func(ctx context.Context) error {
		_, err := d.Tick(ctx)
		return err
	}}
}

// OfferJob dispatches offers, applies replies and expires overdue offers.
func OfferJob(w *offers.Workflow, logger zerolog.Logger) Job {
	return Job{Name: "offers", Run: func(ctx context.Context) error {
		report, err := w.Tick(ctx)
		if report != (offers.TickReport{}) {
			logger.Info().
				Int("dispatched", report.Dispatched).
				Int("accepted", report.Accepted).
				Int("rejected", report.Rejected).
				Int("ambiguous", report.Ambiguous).
				Int("ignored", report.Ignored).
				Int("expired", report.Expired).
				Msg("offer pass")
		}
		return err
	}}
}

// RejectionJob mails rejections queued by interview feedback.
func RejectionJob(f *scheduling.FeedbackService, logger zerolog.Logger) Job {
	return Job{Name: "feedback_rejections", Run: func(ctx context.Context) error {
		n, err := f.SendPendingRejections(ctx)
		if n > 0 {
			logger.Info().Int("sent", n).Msg("rejection mails sent")
		}
		return err
	}}
}
