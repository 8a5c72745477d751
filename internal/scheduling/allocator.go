/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package scheduling owns slots and interviews: booking, release,
// cancellation and post-interview feedback.
package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/recruitd/internal/clock"
	"github.com/friendsincode/recruitd/internal/events"
	"github.com/friendsincode/recruitd/internal/models"
	"github.com/friendsincode/recruitd/internal/notifications"
	"github.com/friendsincode/recruitd/internal/telemetry"
)

// errDuplicateInterview marks a unique-index violation on an active key. It
// is resolved into a typed conflict once the transaction has rolled back.
var errDuplicateInterview = errors.New("duplicate active interview")

// Allocator books slots for applications.
type Allocator struct {
	db       *gorm.DB
	notifier notifications.Notifier
	bus      events.Publisher
	clock    clock.Clock
	logger   zerolog.Logger
}

// NewAllocator creates an allocator. bus may be nil.
func NewAllocator(db *gorm.DB, notifier notifications.Notifier, bus events.Publisher, clk clock.Clock, logger zerolog.Logger) *Allocator {
	if clk == nil {
		clk = clock.Real{}
	}
	if bus == nil {
		bus = events.Discard{}
	}
	return &Allocator{
		db:       db,
		notifier: notifier,
		bus:      bus,
		clock:    clk,
		logger:   logger.With().Str("component", "allocator").Logger(),
	}
}

// BookSlot books slotID for applicationID. The slot flag, the interview row
// and the application status are written in one transaction; the slot is
// claimed with a compare-and-set so concurrent callers get exactly one
// winner. Confirmation mail goes out after commit and its failure does not
// undo the booking.
func (a *Allocator) BookSlot(ctx context.Context, applicationID, slotID string) (*models.InterviewSchedule, error) {
	ctx, span := telemetry.StartSpan(ctx, "scheduling", "BookSlot")
	defer span.End()
	telemetry.AddSpanAttributes(span, map[string]any{"application_id": applicationID, "slot_id": slotID})

	var (
		app       models.Application
		interview *models.InterviewSchedule
	)
	now := a.clock.Now()

	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&app, "id = ?", applicationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.WithHint(ErrApplicationNotFound, "check the application id")
			}
			return fmt.Errorf("load application: %w", err)
		}

		claim := tx.Model(&models.Slot{}).
			Where("id = ? AND is_booked = ? AND closed = ? AND start_time > ?", slotID, false, false, now).
			Updates(map[string]any{
				"is_booked":                true,
				"booked_by_application_id": applicationID,
				"updated_at":               now,
			})
		if claim.Error != nil {
			return fmt.Errorf("claim slot: %w", claim.Error)
		}
		if claim.RowsAffected == 0 {
			return slotClaimFailure(tx, slotID, now)
		}

		var slot models.Slot
		if err := tx.First(&slot, "id = ?", slotID).Error; err != nil {
			return fmt.Errorf("load slot: %w", err)
		}

		// A scheduled applicant falls through to the active-interview check
		// so the caller learns why.
		if app.Status != models.ApplicationAccepted && app.Status != models.ApplicationInterviewScheduled {
			return errors.WithHintf(ErrNotSchedulable,
				"only %q applications can be booked; this one is %q", models.ApplicationAccepted, app.Status)
		}

		var active int64
		if err := tx.Model(&models.InterviewSchedule{}).
			Where("application_id = ? AND status = ?", applicationID, models.InterviewScheduled).
			Count(&active).Error; err != nil {
			return fmt.Errorf("check candidate schedule: %w", err)
		}
		if active > 0 {
			return errors.WithHint(ErrCandidateAlreadyScheduled,
				"you already have an interview scheduled; cancel it before booking another slot")
		}

		interviewerKey := models.InterviewerKey(slot.InterviewerEmail, slot.StartTime)
		if err := tx.Model(&models.InterviewSchedule{}).
			Where("active_interviewer_key = ?", interviewerKey).
			Count(&active).Error; err != nil {
			return fmt.Errorf("check interviewer schedule: %w", err)
		}
		if active > 0 {
			return errors.WithHint(ErrInterviewerConflict,
				"the interviewer already has an interview at this time; pick a different slot")
		}

		appKey := applicationID
		interview = &models.InterviewSchedule{
			ID:                   uuid.NewString(),
			ApplicationID:        applicationID,
			SlotID:               &slot.ID,
			InterviewerName:      slot.InterviewerName,
			InterviewerEmail:     slot.InterviewerEmail,
			Mode:                 slot.Mode,
			StartTime:            slot.StartTime,
			MeetingLink:          slot.MeetingLink,
			Address:              slot.Address,
			Status:               models.InterviewScheduled,
			ActiveApplicationKey: &appKey,
			ActiveInterviewerKey: &interviewerKey,
		}
		if err := tx.Create(interview).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errDuplicateInterview
			}
			return fmt.Errorf("create interview: %w", err)
		}

		if err := tx.Model(&app).Update("status", models.ApplicationInterviewScheduled).Error; err != nil {
			return fmt.Errorf("update application status: %w", err)
		}
		return nil
	})

	if errors.Is(err, errDuplicateInterview) {
		err = a.classifyDuplicate(ctx, applicationID)
	}
	if err != nil {
		telemetry.BookingsTotal.WithLabelValues(bookingOutcome(err)).Inc()
		telemetry.RecordError(span, err)
		a.logger.Debug().Err(err).Str("application_id", applicationID).Str("slot_id", slotID).Msg("booking refused")
		return nil, err
	}

	telemetry.BookingsTotal.WithLabelValues("booked").Inc()
	a.logger.Info().
		Str("interview_id", interview.ID).
		Str("application_id", applicationID).
		Str("slot_id", slotID).
		Time("start_time", interview.StartTime).
		Msg("interview booked")

	app.Status = models.ApplicationInterviewScheduled
	a.notifyAll(ctx, notifications.InterviewScheduled(&app, interview))
	a.bus.Publish(events.EventInterviewBooked, events.Payload{
		"interview_id":      interview.ID,
		"application_id":    applicationID,
		"slot_id":           slotID,
		"interviewer_email": interview.InterviewerEmail,
		"start_time":        interview.StartTime,
	})

	return interview, nil
}

// slotClaimFailure explains why the compare-and-set matched no row.
func slotClaimFailure(tx *gorm.DB, slotID string, now time.Time) error {
	var slot models.Slot
	if err := tx.First(&slot, "id = ?", slotID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.WithHint(ErrSlotNotFound, "check the slot id")
		}
		return fmt.Errorf("load slot: %w", err)
	}
	if slot.IsBooked {
		return errors.WithHint(ErrAlreadyBooked, "this slot has just been taken; choose another available slot")
	}
	if !slot.StartTime.After(now) {
		return errors.WithHint(ErrSlotUnavailable, "this slot has already started; choose a future slot")
	}
	return errors.WithHint(ErrSlotUnavailable, "this slot is closed; choose another available slot")
}

// classifyDuplicate runs after rollback, when the unique indexes caught a
// race the in-transaction checks could not see.
func (a *Allocator) classifyDuplicate(ctx context.Context, applicationID string) error {
	var active int64
	if err := a.db.WithContext(ctx).Model(&models.InterviewSchedule{}).
		Where("active_application_key = ?", applicationID).
		Count(&active).Error; err != nil {
		return fmt.Errorf("classify duplicate interview: %w", err)
	}
	if active > 0 {
		return errors.WithHint(ErrCandidateAlreadyScheduled,
			"you already have an interview scheduled; cancel it before booking another slot")
	}
	return errors.WithHint(ErrInterviewerConflict,
		"the interviewer already has an interview at this time; pick a different slot")
}

func bookingOutcome(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyBooked):
		return "already_booked"
	case errors.Is(err, ErrCandidateAlreadyScheduled):
		return "candidate_already_scheduled"
	case errors.Is(err, ErrInterviewerConflict):
		return "interviewer_conflict"
	case errors.Is(err, ErrSlotUnavailable):
		return "unavailable"
	case errors.Is(err, ErrNotSchedulable):
		return "not_schedulable"
	case errors.Is(err, ErrSlotNotFound), errors.Is(err, ErrApplicationNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// CancelInterview withdraws a scheduled interview: the interview is marked
// cancelled, its slot is freed and the application returns to Accepted.
func (a *Allocator) CancelInterview(ctx context.Context, interviewID string) error {
	var (
		interview models.InterviewSchedule
		app       models.Application
	)
	now := a.clock.Now()

	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&interview, "id = ?", interviewID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.WithHint(ErrInterviewNotFound, "check the interview id")
			}
			return fmt.Errorf("load interview: %w", err)
		}

		res := tx.Model(&models.InterviewSchedule{}).
			Where("id = ? AND status = ?", interviewID, models.InterviewScheduled).
			Updates(map[string]any{
				"status":                 models.InterviewCancelled,
				"active_application_key": nil,
				"active_interviewer_key": nil,
				"updated_at":             now,
			})
		if res.Error != nil {
			return fmt.Errorf("cancel interview: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errors.WithHintf(ErrInterviewNotActive, "the interview is already %s", interview.Status)
		}

		if interview.SlotID != nil {
			if err := tx.Model(&models.Slot{}).
				Where("id = ? AND booked_by_application_id = ?", *interview.SlotID, interview.ApplicationID).
				Updates(map[string]any{
					"is_booked":                false,
					"booked_by_application_id": nil,
					"updated_at":               now,
				}).Error; err != nil {
				return fmt.Errorf("release slot: %w", err)
			}
		}

		if err := tx.Model(&models.Application{}).
			Where("id = ? AND status = ?", interview.ApplicationID, models.ApplicationInterviewScheduled).
			Update("status", models.ApplicationAccepted).Error; err != nil {
			return fmt.Errorf("reset application status: %w", err)
		}

		if err := tx.First(&app, "id = ?", interview.ApplicationID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("load application: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	a.logger.Info().Str("interview_id", interviewID).Str("application_id", interview.ApplicationID).Msg("interview cancelled")
	if app.ID != "" {
		a.notifyAll(ctx, notifications.InterviewCancelled(&app, &interview))
	}
	a.bus.Publish(events.EventInterviewCancelled, events.Payload{
		"interview_id":   interviewID,
		"application_id": interview.ApplicationID,
	})
	return nil
}

// GetInterview loads one interview.
func (a *Allocator) GetInterview(ctx context.Context, id string) (*models.InterviewSchedule, error) {
	var interview models.InterviewSchedule
	if err := a.db.WithContext(ctx).First(&interview, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.WithHint(ErrInterviewNotFound, "check the interview id")
		}
		return nil, fmt.Errorf("load interview: %w", err)
	}
	return &interview, nil
}

func (a *Allocator) notifyAll(ctx context.Context, msgs []notifications.Message) {
	for _, msg := range msgs {
		if err := a.notifier.Send(ctx, msg); err != nil {
			a.logger.Warn().Err(err).
				Str("kind", string(msg.Kind)).
				Str("to", msg.To).
				Str("reference_id", msg.ReferenceID).
				Msg("notification failed")
		}
	}
}
