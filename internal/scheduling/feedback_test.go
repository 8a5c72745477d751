/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friendsincode/recruitd/internal/models"
	"github.com/friendsincode/recruitd/internal/scheduling"
)

func (f *fixture) bookedInterview(t *testing.T, appID string, start time.Time) *models.InterviewSchedule {
	t.Helper()
	f.application(t, appID, models.ApplicationAccepted)
	slot := f.slot(t, "kim@acme.test", start)
	interview, err := f.alloc.BookSlot(context.Background(), appID, slot.ID)
	require.NoError(t, err)
	return interview
}

func TestSubmitFeedbackAccepted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	interview := f.bookedInterview(t, "a1", epoch.Add(2*time.Hour))

	fb, err := f.feedback.Submit(ctx, interview.ID, scheduling.FeedbackInput{
		Decision:            models.FeedbackAccepted,
		Comments:            "  strong systems knowledge ",
		CommunicationScore:  8,
		TechnicalScore:      9,
		ProblemSolvingScore: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, "strong systems knowledge", fb.Comments)
	assert.Equal(t, "a1", fb.ApplicationID)

	done, err := f.alloc.GetInterview(ctx, interview.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InterviewCompleted, done.Status)
	assert.Nil(t, done.ActiveApplicationKey)

	slot := f.reloadSlot(t, *interview.SlotID)
	assert.True(t, slot.IsBooked)
	assert.True(t, slot.Closed)
	assert.Equal(t, models.ApplicationAccepted, f.reloadApp(t, "a1").Status)

	err = f.alloc.ReleaseSlot(ctx, slot.ID)
	require.ErrorIs(t, err, scheduling.ErrSlotUnavailable)
	assert.True(t, f.reloadSlot(t, slot.ID).IsBooked, "completed slot is never reused")

	_, err = f.feedback.Submit(ctx, interview.ID, scheduling.FeedbackInput{Decision: models.FeedbackRejected})
	assert.ErrorIs(t, err, scheduling.ErrFeedbackExists)

	sent, err := f.feedback.SendPendingRejections(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestSubmitFeedbackValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	interview := f.bookedInterview(t, "a1", epoch.Add(2*time.Hour))

	tests := []struct {
		name    string
		id      string
		in      scheduling.FeedbackInput
		wantErr error
	}{
		{"unknown decision", interview.ID, scheduling.FeedbackInput{Decision: "Maybe"}, scheduling.ErrInvalidFeedback},
		{"score out of range", interview.ID, scheduling.FeedbackInput{Decision: models.FeedbackAccepted, TechnicalScore: 11}, scheduling.ErrInvalidFeedback},
		{"missing interview", "missing", scheduling.FeedbackInput{Decision: models.FeedbackAccepted}, scheduling.ErrInterviewNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.feedback.Submit(ctx, tt.id, tt.in)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	require.NoError(t, f.alloc.CancelInterview(ctx, interview.ID))
	_, err := f.feedback.Submit(ctx, interview.ID, scheduling.FeedbackInput{Decision: models.FeedbackAccepted})
	assert.ErrorIs(t, err, scheduling.ErrInterviewNotActive)
}

func TestRejectionMailSentOnceAndRetried(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	interview := f.bookedInterview(t, "a1", epoch.Add(2*time.Hour))
	app := f.reloadApp(t, "a1")

	_, err := f.feedback.Submit(ctx, interview.ID, scheduling.FeedbackInput{
		Decision: models.FeedbackRejected,
		Comments: "needs more depth in distributed systems",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationRejected, f.reloadApp(t, "a1").Status)
	f.sender.Reset()

	f.sender.FailFor(app.ApplicantEmail, errors.New("mailbox full"))
	sent, err := f.feedback.SendPendingRejections(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)

	var fb models.Feedback
	require.NoError(t, f.db.First(&fb, "interview_id = ?", interview.ID).Error)
	assert.False(t, fb.RejectionEmailSent)

	f.sender.Recover(app.ApplicantEmail)
	sent, err = f.feedback.SendPendingRejections(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	mails := f.sender.SentTo(app.ApplicantEmail)
	require.Len(t, mails, 1)
	assert.True(t, strings.Contains(mails[0].Body, "distributed systems"))

	sent, err = f.feedback.SendPendingRejections(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Len(t, f.sender.SentTo(app.ApplicantEmail), 1)
}
