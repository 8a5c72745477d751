/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package reminders sends the day-before and hour-before interview reminders.
package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/recruitd/internal/clock"
	"github.com/friendsincode/recruitd/internal/config"
	"github.com/friendsincode/recruitd/internal/models"
	"github.com/friendsincode/recruitd/internal/notifications"
	"github.com/friendsincode/recruitd/internal/telemetry"
)

type reminderKind struct {
	label  string
	column string
	kind   models.NotificationKind
	window config.Window
}

// TickReport summarises one dispatcher pass.
type TickReport struct {
	Scanned  int
	DaySent  int
	HourSent int
	Failed   int
}

// Dispatcher scans scheduled interviews and sends each reminder at most
// once per interview. The sent flags are the idempotency guard; the windows
// only decide when a reminder is due.
type Dispatcher struct {
	db       *gorm.DB
	notifier notifications.Notifier
	clock    clock.Clock
	day      reminderKind
	hour     reminderKind
	logger   zerolog.Logger
}

// NewDispatcher creates a dispatcher for the given lead-time windows.
func NewDispatcher(db *gorm.DB, notifier notifications.Notifier, clk clock.Clock, day, hour config.Window, logger zerolog.Logger) *Dispatcher {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Dispatcher{
		db:       db,
		notifier: notifier,
		clock:    clk,
		day:      reminderKind{label: "day", column: "reminder_1day_sent", kind: models.NotificationReminderDay, window: day},
		hour:     reminderKind{label: "hour", column: "reminder_1hour_sent", kind: models.NotificationReminderHour, window: hour},
		logger:   logger.With().Str("component", "reminders").Logger(),
	}
}

// Tick runs one pass. An error is returned only when the scan itself fails;
// failures for individual interviews are logged, counted and retried on a
// later tick.
func (d *Dispatcher) Tick(ctx context.Context) (TickReport, error) {
	var report TickReport
	now := d.clock.Now()

	horizon := d.day.window.Upper
	if d.hour.window.Upper > horizon {
		horizon = d.hour.window.Upper
	}

	var due []models.InterviewSchedule
	if err := d.db.WithContext(ctx).
		Where("status = ? AND start_time > ? AND start_time <= ?", models.InterviewScheduled, now, now.Add(horizon)).
		Where("reminder_1day_sent = ? OR reminder_1hour_sent = ?", false, false).
		Order("start_time ASC").
		Find(&due).Error; err != nil {
		return report, fmt.Errorf("scan interviews: %w", err)
	}
	report.Scanned = len(due)

	for i := range due {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		iv := &due[i]
		lead := iv.StartTime.Sub(now)

		var rk *reminderKind
		switch {
		case d.day.window.Contains(lead) && !iv.Reminder1DaySent:
			rk = &d.day
		case d.hour.window.Contains(lead) && !iv.Reminder1HourSent:
			rk = &d.hour
		default:
			continue
		}

		sent, err := d.remind(ctx, iv, rk)
		if err != nil {
			report.Failed++
			telemetry.ReminderFailuresTotal.WithLabelValues(rk.label).Inc()
			d.logger.Warn().Err(err).
				Str("interview_id", iv.ID).
				Str("window", rk.label).
				Dur("lead", lead).
				Msg("reminder not flagged, will retry next tick")
			continue
		}
		if !sent {
			continue
		}
		telemetry.RemindersSentTotal.WithLabelValues(rk.label).Inc()
		if rk == &d.day {
			report.DaySent++
		} else {
			report.HourSent++
		}
	}

	if report.DaySent+report.HourSent+report.Failed > 0 {
		d.logger.Info().
			Int("scanned", report.Scanned).
			Int("day_sent", report.DaySent).
			Int("hour_sent", report.HourSent).
			Int("failed", report.Failed).
			Msg("reminder tick")
	}
	return report, nil
}

// remind sends one reminder pair and sets its flag. It reports false when
// the flag turned out to be set already.
func (d *Dispatcher) remind(ctx context.Context, iv *models.InterviewSchedule, rk *reminderKind) (bool, error) {
	var fresh models.InterviewSchedule
	if err := d.db.WithContext(ctx).
		Select("id", "status", "reminder_1day_sent", "reminder_1hour_sent").
		First(&fresh, "id = ?", iv.ID).Error; err != nil {
		return false, fmt.Errorf("reload interview: %w", err)
	}
	if fresh.Status != models.InterviewScheduled {
		return false, nil
	}
	if (rk.column == d.day.column && fresh.Reminder1DaySent) || (rk.column == d.hour.column && fresh.Reminder1HourSent) {
		return false, nil
	}

	var app models.Application
	if err := d.db.WithContext(ctx).First(&app, "id = ?", iv.ApplicationID).Error; err != nil {
		return false, fmt.Errorf("load application: %w", err)
	}

	// Both recipients are always attempted; any failure leaves the flag
	// unset so the whole pair is retried.
	var failures []error
	for _, msg := range notifications.Reminder(rk.kind, leadLabel(rk.window.Upper), &app, iv) {
		if err := d.notifier.Send(ctx, msg); err != nil {
			failures = append(failures, fmt.Errorf("send to %s: %w", msg.To, err))
		}
	}
	if len(failures) > 0 {
		return false, fmt.Errorf("%d of 2 reminder sends failed: %w", len(failures), failures[0])
	}

	res := d.db.WithContext(ctx).Model(&models.InterviewSchedule{}).
		Where("id = ? AND "+rk.column+" = ?", iv.ID, false).
		Update(rk.column, true)
	if res.Error != nil {
		return false, fmt.Errorf("set %s: %w", rk.column, res.Error)
	}
	if res.RowsAffected == 0 {
		d.logger.Debug().Str("interview_id", iv.ID).Str("window", rk.label).Msg("flag already set by a concurrent pass")
		return false, nil
	}

	d.logger.Debug().Str("interview_id", iv.ID).Str("window", rk.label).Msg("reminder sent")
	return true, nil
}

func leadLabel(d time.Duration) string {
	switch {
	case d == time.Hour:
		return "1 hour"
	case d%time.Hour == 0:
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	default:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	}
}
