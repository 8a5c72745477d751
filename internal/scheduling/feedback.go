/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/recruitd/internal/clock"
	"github.com/friendsincode/recruitd/internal/events"
	"github.com/friendsincode/recruitd/internal/models"
	"github.com/friendsincode/recruitd/internal/notifications"
)

const maxScore = 10

// FeedbackInput is an interviewer's evaluation.
type FeedbackInput struct {
	Decision            models.FeedbackDecision `json:"decision"`
	Comments            string                  `json:"comments"`
	CommunicationScore  int                     `json:"communication_score"`
	TechnicalScore      int                     `json:"technical_score"`
	ProblemSolvingScore int                     `json:"problem_solving_score"`
}

// FeedbackService records interview outcomes and mails queued rejections.
type FeedbackService struct {
	db       *gorm.DB
	notifier notifications.Notifier
	bus      events.Publisher
	clock    clock.Clock
	logger   zerolog.Logger
}

// NewFeedbackService creates a feedback service.
func NewFeedbackService(db *gorm.DB, notifier notifications.Notifier, bus events.Publisher, clk clock.Clock, logger zerolog.Logger) *FeedbackService {
	if clk == nil {
		clk = clock.Real{}
	}
	if bus == nil {
		bus = events.Discard{}
	}
	return &FeedbackService{
		db:       db,
		notifier: notifier,
		bus:      bus,
		clock:    clk,
		logger:   logger.With().Str("component", "feedback").Logger(),
	}
}

func validateFeedback(in *FeedbackInput) error {
	if in.Decision != models.FeedbackAccepted && in.Decision != models.FeedbackRejected {
		return invalidFeedback("decision must be Accepted or Rejected")
	}
	for name, score := range map[string]int{
		"communication_score":   in.CommunicationScore,
		"technical_score":       in.TechnicalScore,
		"problem_solving_score": in.ProblemSolvingScore,
	} {
		if score < 0 || score > maxScore {
			return invalidFeedback(fmt.Sprintf("%s must be between 0 and %d", name, maxScore))
		}
	}
	in.Comments = strings.TrimSpace(in.Comments)
	return nil
}

// Submit records feedback for a scheduled interview. The interview is
// completed, its slot closed, and the application moves to Accepted (eligible
// for an offer) or Rejected. Rejections are mailed by SendPendingRejections.
func (s *FeedbackService) Submit(ctx context.Context, interviewID string, in FeedbackInput) (*models.Feedback, error) {
	if err := validateFeedback(&in); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var feedback *models.Feedback

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var interview models.InterviewSchedule
		if err := tx.First(&interview, "id = ?", interviewID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.WithHint(ErrInterviewNotFound, "check the interview id")
			}
			return fmt.Errorf("load interview: %w", err)
		}

		var existing int64
		if err := tx.Model(&models.Feedback{}).Where("interview_id = ?", interviewID).Count(&existing).Error; err != nil {
			return fmt.Errorf("check feedback: %w", err)
		}
		if existing > 0 {
			return errors.WithHint(ErrFeedbackExists, "feedback for this interview was already recorded")
		}

		res := tx.Model(&models.InterviewSchedule{}).
			Where("id = ? AND status = ?", interviewID, models.InterviewScheduled).
			Updates(map[string]any{
				"status":                 models.InterviewCompleted,
				"active_application_key": nil,
				"active_interviewer_key": nil,
				"updated_at":             now,
			})
		if res.Error != nil {
			return fmt.Errorf("complete interview: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errors.WithHintf(ErrInterviewNotActive, "the interview is already %s", interview.Status)
		}

		feedback = &models.Feedback{
			ID:                  uuid.NewString(),
			InterviewID:         interviewID,
			ApplicationID:       interview.ApplicationID,
			Decision:            in.Decision,
			Comments:            in.Comments,
			CommunicationScore:  in.CommunicationScore,
			TechnicalScore:      in.TechnicalScore,
			ProblemSolvingScore: in.ProblemSolvingScore,
			CreatedAt:           now,
		}
		if err := tx.Create(feedback).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errors.WithHint(ErrFeedbackExists, "feedback for this interview was already recorded")
			}
			return fmt.Errorf("create feedback: %w", err)
		}

		// The slot stays booked by this application and is closed for good.
		if interview.SlotID != nil {
			if err := tx.Model(&models.Slot{}).Where("id = ?", *interview.SlotID).
				Updates(map[string]any{"closed": true, "updated_at": now}).Error; err != nil {
				return fmt.Errorf("close slot: %w", err)
			}
		}

		status := models.ApplicationAccepted
		if in.Decision == models.FeedbackRejected {
			status = models.ApplicationRejected
		}
		if err := tx.Model(&models.Application{}).Where("id = ?", interview.ApplicationID).
			Update("status", status).Error; err != nil {
			return fmt.Errorf("update application status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("interview_id", interviewID).
		Str("application_id", feedback.ApplicationID).
		Str("decision", string(feedback.Decision)).
		Msg("interview feedback recorded")
	s.bus.Publish(events.EventInterviewCompleted, events.Payload{
		"interview_id":   interviewID,
		"application_id": feedback.ApplicationID,
		"decision":       string(feedback.Decision),
	})
	return feedback, nil
}

// SendPendingRejections mails every rejected feedback whose rejection mail
// has not gone out yet. The flag is set only after a successful send, so
// failures are retried on the next call. Returns the number of mails sent.
func (s *FeedbackService) SendPendingRejections(ctx context.Context) (int, error) {
	var pending []models.Feedback
	if err := s.db.WithContext(ctx).
		Where("decision = ? AND rejection_email_sent = ?", models.FeedbackRejected, false).
		Order("created_at ASC").
		Find(&pending).Error; err != nil {
		return 0, fmt.Errorf("load pending rejections: %w", err)
	}

	sent := 0
	for i := range pending {
		fb := &pending[i]
		var app models.Application
		if err := s.db.WithContext(ctx).First(&app, "id = ?", fb.ApplicationID).Error; err != nil {
			s.logger.Warn().Err(err).Str("feedback_id", fb.ID).Msg("rejection skipped: application not loadable")
			continue
		}

		if err := s.notifier.Send(ctx, notifications.FeedbackRejection(&app, fb)); err != nil {
			s.logger.Warn().Err(err).Str("feedback_id", fb.ID).Msg("rejection mail failed, will retry")
			continue
		}

		res := s.db.WithContext(ctx).Model(&models.Feedback{}).
			Where("id = ? AND rejection_email_sent = ?", fb.ID, false).
			Update("rejection_email_sent", true)
		if res.Error != nil {
			s.logger.Error().Err(res.Error).Str("feedback_id", fb.ID).Msg("failed to flag rejection mail")
			continue
		}
		sent++
	}
	return sent, nil
}
