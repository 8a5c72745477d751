/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package notifications_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/recruitd/internal/clock"
	"github.com/friendsincode/recruitd/internal/db/dbtest"
	"github.com/friendsincode/recruitd/internal/models"
	"github.com/friendsincode/recruitd/internal/notifications"
	"github.com/friendsincode/recruitd/internal/notifications/notificationstest"
)

func TestServiceSendLogsOutcome(t *testing.T) {
	database := dbtest.Open(t)
	sender := notificationstest.NewSender()
	clk := clock.NewFake(time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC))
	svc := notifications.NewService(database, sender, clk, zerolog.Nop())
	ctx := context.Background()

	sender.FailFor("down@example.com", errors.New("mailbox unavailable"))

	tests := []struct {
		name       string
		to         string
		wantErr    bool
		wantStatus models.NotificationStatus
	}{
		{"delivered", "ok@example.com", false, models.NotificationStatusSent},
		{"failed", "down@example.com", true, models.NotificationStatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Send(ctx, notifications.Message{
				To:            tt.to,
				Kind:          models.NotificationRejection,
				Subject:       "subject",
				Body:          "body",
				ReferenceType: "application",
				ReferenceID:   "app-1",
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Send() error = %v, wantErr %v", err, tt.wantErr)
			}

			var row models.Notification
			if err := database.Where("recipient = ?", tt.to).First(&row).Error; err != nil {
				t.Fatalf("load log row: %v", err)
			}
			if row.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", row.Status, tt.wantStatus)
			}
			if tt.wantErr && row.Error == "" {
				t.Error("expected error text on failed row")
			}
			if !tt.wantErr && (row.SentAt == nil || !row.SentAt.Equal(clk.Now())) {
				t.Errorf("sent_at = %v, want %v", row.SentAt, clk.Now())
			}
		})
	}

	if got := len(sender.SentTo("ok@example.com")); got != 1 {
		t.Fatalf("delivered %d messages to ok@example.com, want 1", got)
	}
}

func TestTemplatesCarryRecipientsAndMarker(t *testing.T) {
	app := &models.Application{ID: "a1", ApplicantName: "Sam", ApplicantEmail: "sam@example.com", Company: "Acme", Role: "Engineer"}
	iv := &models.InterviewSchedule{
		ID: "i1", InterviewerName: "Kim", InterviewerEmail: "kim@acme.test",
		Mode: models.ModeOnline, MeetingLink: "https://meet.example/abc",
		StartTime: time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC),
	}

	pair := notifications.Reminder(models.NotificationReminderDay, "24 hours", app, iv)
	if len(pair) != 2 || pair[0].To != "sam@example.com" || pair[1].To != "kim@acme.test" {
		t.Fatalf("unexpected reminder recipients: %+v", pair)
	}

	offer := notifications.Offer("Job Offer", app, &models.JobOffer{ID: "o1"}, 24*time.Hour)
	if offer.Subject != "Job Offer: Engineer at Acme" {
		t.Errorf("offer subject = %q", offer.Subject)
	}
	if offer.ReferenceID != "o1" {
		t.Errorf("offer reference = %q", offer.ReferenceID)
	}
}
