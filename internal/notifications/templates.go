/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package notifications

import (
	"fmt"
	"strings"
	"time"

	"github.com/friendsincode/recruitd/internal/models"
)

const timeLayout = "Mon 02 Jan 2006 15:04 MST"

func location(iv *models.InterviewSchedule) string {
	if iv.Mode == models.ModeOnline {
		return "Meeting link: " + iv.MeetingLink
	}
	return "Address: " + iv.Address
}

func jobLabel(app *models.Application) string {
	switch {
	case app.Role != "" && app.Company != "":
		return fmt.Sprintf("%s at %s", app.Role, app.Company)
	case app.Role != "":
		return app.Role
	default:
		return "the position you applied for"
	}
}

// InterviewScheduled returns the confirmation pair for a new booking:
// candidate first, interviewer second.
func InterviewScheduled(app *models.Application, iv *models.InterviewSchedule) []Message {
	when := iv.StartTime.UTC().Format(timeLayout)
	return []Message{
		{
			To:      app.ApplicantEmail,
			Kind:    models.NotificationInterviewScheduled,
			Subject: "Interview scheduled: " + jobLabel(app),
			Body: fmt.Sprintf("Hello %s,\n\nYour interview for %s is scheduled for %s (%s) with %s.\n%s\n",
				app.ApplicantName, jobLabel(app), when, iv.Mode, iv.InterviewerName, location(iv)),
			ReferenceType: "interview",
			ReferenceID:   iv.ID,
		},
		{
			To:      iv.InterviewerEmail,
			Kind:    models.NotificationInterviewScheduled,
			Subject: "New interview: " + app.ApplicantName,
			Body: fmt.Sprintf("Hello %s,\n\nYou are interviewing %s for %s on %s (%s).\n%s\n",
				iv.InterviewerName, app.ApplicantName, jobLabel(app), when, iv.Mode, location(iv)),
			ReferenceType: "interview",
			ReferenceID:   iv.ID,
		},
	}
}

// InterviewCancelled tells both parties a booking was withdrawn.
func InterviewCancelled(app *models.Application, iv *models.InterviewSchedule) []Message {
	when := iv.StartTime.UTC().Format(timeLayout)
	body := fmt.Sprintf("The interview of %s for %s on %s has been cancelled.\n", app.ApplicantName, jobLabel(app), when)
	return []Message{
		{To: app.ApplicantEmail, Kind: models.NotificationInterviewCancelled, Subject: "Interview cancelled", Body: body, ReferenceType: "interview", ReferenceID: iv.ID},
		{To: iv.InterviewerEmail, Kind: models.NotificationInterviewCancelled, Subject: "Interview cancelled", Body: body, ReferenceType: "interview", ReferenceID: iv.ID},
	}
}

// Reminder returns the reminder pair for one interview: candidate first,
// interviewer second. lead is the nominal lead time ("24 hours", "1 hour").
func Reminder(kind models.NotificationKind, lead string, app *models.Application, iv *models.InterviewSchedule) []Message {
	when := iv.StartTime.UTC().Format(timeLayout)
	subject := fmt.Sprintf("Reminder: interview in %s", lead)
	return []Message{
		{
			To:      app.ApplicantEmail,
			Kind:    kind,
			Subject: subject,
			Body: fmt.Sprintf("Hello %s,\n\nThis is a reminder that your interview for %s starts at %s with %s.\n%s\n",
				app.ApplicantName, jobLabel(app), when, iv.InterviewerName, location(iv)),
			ReferenceType: "interview",
			ReferenceID:   iv.ID,
		},
		{
			To:      iv.InterviewerEmail,
			Kind:    kind,
			Subject: subject,
			Body: fmt.Sprintf("Hello %s,\n\nReminder: you are interviewing %s for %s at %s.\n%s\n",
				iv.InterviewerName, app.ApplicantName, jobLabel(app), when, location(iv)),
			ReferenceType: "interview",
			ReferenceID:   iv.ID,
		},
	}
}

// Offer builds the offer mail. The subject always contains subjectMarker so
// replies can be found in the inbox.
func Offer(subjectMarker string, app *models.Application, offer *models.JobOffer, timeout time.Duration) Message {
	return Message{
		To:      app.ApplicantEmail,
		Kind:    models.NotificationOffer,
		Subject: fmt.Sprintf("%s: %s", subjectMarker, jobLabel(app)),
		Body: fmt.Sprintf("Dear %s,\n\nWe are delighted to offer you the role of %s.\n\n"+
			"Please reply to this email with \"Accept\" or \"Reject\" within %s. "+
			"If we do not hear from you in that time the offer will lapse.\n",
			app.ApplicantName, jobLabel(app), humanDuration(timeout)),
		ReferenceType: "offer",
		ReferenceID:   offer.ID,
	}
}

// Rejection builds the rejection mail sent after a status change or feedback.
func Rejection(app *models.Application) Message {
	return Message{
		To:      app.ApplicantEmail,
		Kind:    models.NotificationRejection,
		Subject: "Your application: " + jobLabel(app),
		Body: fmt.Sprintf("Dear %s,\n\nThank you for your interest in %s. "+
			"After careful consideration we will not be moving forward with your application.\n\n"+
			"We wish you the best in your search.\n", app.ApplicantName, jobLabel(app)),
		ReferenceType: "application",
		ReferenceID:   app.ID,
	}
}

// FeedbackRejection builds the post-interview rejection mail. Interviewer
// comments are included when present.
func FeedbackRejection(app *models.Application, fb *models.Feedback) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\nThank you for interviewing with us for %s. "+
		"Unfortunately we have decided not to proceed with your application.\n", app.ApplicantName, jobLabel(app))
	if c := strings.TrimSpace(fb.Comments); c != "" {
		fmt.Fprintf(&b, "\nFeedback from the interview:\n%s\n", c)
	}
	b.WriteString("\nWe wish you the best in your search.\n")
	return Message{
		To:            app.ApplicantEmail,
		Kind:          models.NotificationRejection,
		Subject:       "Your interview: " + jobLabel(app),
		Body:          b.String(),
		ReferenceType: "feedback",
		ReferenceID:   fb.ID,
	}
}

func humanDuration(d time.Duration) string {
	if d%(24*time.Hour) == 0 {
		days := int(d / (24 * time.Hour))
		if days == 1 {
			return "24 hours"
		}
		return fmt.Sprintf("%d days", days)
	}
	if d%time.Hour == 0 {
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	}
	return strings.TrimSuffix(d.String(), "0s")
}
