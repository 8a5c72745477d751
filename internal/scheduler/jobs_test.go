/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduler_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friendsincode/recruitd/internal/classify"
	"github.com/friendsincode/recruitd/internal/clock"
	"github.com/friendsincode/recruitd/internal/config"
	"github.com/friendsincode/recruitd/internal/db/dbtest"
	"github.com/friendsincode/recruitd/internal/models"
	"github.com/friendsincode/recruitd/internal/notifications"
	"github.com/friendsincode/recruitd/internal/notifications/notificationstest"
	"github.com/friendsincode/recruitd/internal/offers"
	"github.com/friendsincode/recruitd/internal/reminders"
	"github.com/friendsincode/recruitd/internal/scheduler"
	"github.com/friendsincode/recruitd/internal/scheduling"
)

// TestHiringPipeline drives one candidate from booking to hire with the
// tick loop doing every time-triggered step.
func TestHiringPipeline(t *testing.T) {
	ctx := context.Background()
	epoch := time.Date(2026, 9, 7, 8, 0, 0, 0, time.UTC)
	database := dbtest.Open(t)
	clk := clock.NewFake(epoch)
	sender := notificationstest.NewSender()
	inbox := notificationstest.NewInbox()
	notifier := notifications.NewService(database, sender, clk, zerolog.Nop())
	log := zerolog.Nop()

	alloc := scheduling.NewAllocator(database, notifier, nil, clk, log)
	feedback := scheduling.NewFeedbackService(database, notifier, nil, clk, log)
	dispatcher := reminders.NewDispatcher(database, notifier, clk,
		config.Window{Lower: 23 * time.Hour, Upper: 24 * time.Hour},
		config.Window{Lower: 30 * time.Minute, Upper: time.Hour}, log)
	workflow := offers.NewWorkflow(database, notifier, inbox, classify.NewKeywordClassifier(classify.DefaultKeywords()),
		nil, clk, offers.DefaultConfig(), log)

	svc := scheduler.New([]scheduler.Job{
		scheduler.ReminderJob(dispatcher),
		scheduler.OfferJob(workflow, log),
		scheduler.RejectionJob(feedback, log),
	}, time.Minute, log)

	for _, id := range []string{"hire", "reject"} {
		require.NoError(t, database.Create(&models.Application{
			ID: id, Company: "Acme", Role: "SRE", ApplicantName: id, ApplicantEmail: id + "@candidates.test",
			Status: models.ApplicationAccepted,
		}).Error)
	}

	book := func(appID, interviewer string) *models.InterviewSchedule {
		slot, err := alloc.CreateSlot(ctx, scheduling.SlotInput{
			Company: "Acme", Role: "SRE", InterviewerName: "Kim", InterviewerEmail: interviewer,
			StartTime: epoch.Add(24 * time.Hour), Mode: models.ModeOffline, Address: "1 Main St",
		})
		require.NoError(t, err)
		iv, err := alloc.BookSlot(ctx, appID, slot.ID)
		require.NoError(t, err)
		return iv
	}
	hireIV := book("hire", "kim@acme.test")
	rejectIV := book("reject", "lee@acme.test")

	assert.Zero(t, svc.TickOnce(ctx))
	assert.Len(t, sender.SentTo("hire@candidates.test"), 2, "confirmation and day reminder")

	clk.Advance(24*time.Hour + time.Hour)
	_, err := feedback.Submit(ctx, hireIV.ID, scheduling.FeedbackInput{Decision: models.FeedbackAccepted, TechnicalScore: 8})
	require.NoError(t, err)
	_, err = feedback.Submit(ctx, rejectIV.ID, scheduling.FeedbackInput{Decision: models.FeedbackRejected})
	require.NoError(t, err)
	offer, err := workflow.CreateOffer(ctx, "hire")
	require.NoError(t, err)

	assert.Zero(t, svc.TickOnce(ctx))
	assert.Len(t, sender.SentTo("reject@candidates.test"), 3, "confirmation, day reminder and rejection")
	got, err := workflow.GetOffer(ctx, offer.ID)
	require.NoError(t, err)
	require.True(t, got.OfferSent)

	clk.Advance(3 * time.Hour)
	inbox.Deliver(notifications.Reply{From: "hire@candidates.test", Subject: "RE: Job Offer: SRE at Acme", Body: "Happy to join, I accept."})
	assert.Zero(t, svc.TickOnce(ctx))

	got, err = workflow.GetOffer(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferAccepted, got.Status)

	var app models.Application
	require.NoError(t, database.First(&app, "id = ?", "hire").Error)
	assert.Equal(t, models.ApplicationHired, app.Status)

	assert.Zero(t, svc.TickOnce(ctx))
	assert.Len(t, sender.SentTo("reject@candidates.test"), 3, "rejection is not repeated")
}

func TestReminderJobLogsOneSummaryPerPass(t *testing.T) {
	ctx := context.Background()
	epoch := time.Date(2026, 9, 7, 8, 0, 0, 0, time.UTC)
	database := dbtest.Open(t)
	clk := clock.NewFake(epoch)
	notifier := notifications.NewService(database, notificationstest.NewSender(), clk, zerolog.Nop())

	var buf bytes.Buffer
	log := zerolog.New(&buf)

	alloc := scheduling.NewAllocator(database, notifier, nil, clk, zerolog.Nop())
	dispatcher := reminders.NewDispatcher(database, notifier, clk,
		config.Window{Lower: 23 * time.Hour, Upper: 24 * time.Hour},
		config.Window{Lower: 30 * time.Minute, Upper: time.Hour}, log)

	require.NoError(t, database.Create(&models.Application{
		ID: "a1", Company: "Acme", Role: "SRE", ApplicantName: "a1", ApplicantEmail: "a1@candidates.test",
		Status: models.ApplicationAccepted,
	}).Error)
	slot, err := alloc.CreateSlot(ctx, scheduling.SlotInput{
		Company: "Acme", Role: "SRE", InterviewerName: "Kim", InterviewerEmail: "kim@acme.test",
		StartTime: epoch.Add(24 * time.Hour), Mode: models.ModeOffline, Address: "1 Main St",
	})
	require.NoError(t, err)
	_, err = alloc.BookSlot(ctx, "a1", slot.ID)
	require.NoError(t, err)

	require.NoError(t, scheduler.ReminderJob(dispatcher).Run(ctx))
	assert.Equal(t, 1, strings.Count(buf.String(), `"day_sent":1`), buf.String())
}
