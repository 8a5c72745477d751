/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import (
	"context"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"
	"gorm.io/gorm"

	"github.com/friendsincode/recruitd/internal/models"
)

const (
	defaultDurationMinutes = 60
	maxDurationMinutes     = 8 * 60

	// MaxRecurringSlots bounds a single recurring expansion.
	MaxRecurringSlots = 200

	defaultRecurrenceHorizon = 90 * 24 * time.Hour
)

// SlotInput describes a slot to create.
type SlotInput struct {
	Company          string               `json:"company"`
	Role             string               `json:"role"`
	InterviewerName  string               `json:"interviewer_name"`
	InterviewerEmail string               `json:"interviewer_email"`
	StartTime        time.Time            `json:"start_time"`
	DurationMinutes  int                  `json:"duration_minutes"`
	Mode             models.InterviewMode `json:"mode"`
	MeetingLink      string               `json:"meeting_link"`
	Address          string               `json:"address"`
}

// SlotFilter narrows ListSlots. Zero values match everything.
type SlotFilter struct {
	Company          string
	Role             string
	InterviewerEmail string
	OnlyAvailable    bool
	From             time.Time
	Limit            int
}

func (a *Allocator) validateSlot(in *SlotInput) error {
	in.Company = strings.TrimSpace(in.Company)
	in.Role = strings.TrimSpace(in.Role)
	in.InterviewerName = strings.TrimSpace(in.InterviewerName)
	in.InterviewerEmail = strings.TrimSpace(in.InterviewerEmail)
	in.MeetingLink = strings.TrimSpace(in.MeetingLink)
	in.Address = strings.TrimSpace(in.Address)

	switch {
	case in.Company == "":
		return invalidSlot("company is required")
	case in.Role == "":
		return invalidSlot("role is required")
	case in.InterviewerName == "":
		return invalidSlot("interviewer_name is required")
	case in.InterviewerEmail == "":
		return invalidSlot("interviewer_email is required")
	}
	if addr, err := mail.ParseAddress(in.InterviewerEmail); err != nil || addr.Address != in.InterviewerEmail {
		return invalidSlot("interviewer_email must be a plain email address")
	}

	if in.StartTime.IsZero() {
		return invalidSlot("start_time is required")
	}
	in.StartTime = in.StartTime.UTC()
	if !in.StartTime.After(a.clock.Now()) {
		return invalidSlot("start_time must be in the future")
	}

	if in.DurationMinutes == 0 {
		in.DurationMinutes = defaultDurationMinutes
	}
	if in.DurationMinutes < 0 || in.DurationMinutes > maxDurationMinutes {
		return invalidSlot(fmt.Sprintf("duration_minutes must be between 1 and %d", maxDurationMinutes))
	}

	switch in.Mode {
	case models.ModeOnline:
		if in.MeetingLink == "" {
			return invalidSlot("online slots need a meeting_link")
		}
		if u, err := url.Parse(in.MeetingLink); err != nil || u.Scheme == "" || u.Host == "" {
			return invalidSlot("meeting_link must be an absolute URL")
		}
		in.Address = ""
	case models.ModeOffline:
		if in.Address == "" {
			return invalidSlot("offline slots need an address")
		}
		in.MeetingLink = ""
	default:
		return invalidSlot("mode must be Online or Offline")
	}
	return nil
}

func slotFromInput(in SlotInput, start time.Time) models.Slot {
	return models.Slot{
		ID:               uuid.NewString(),
		Company:          in.Company,
		Role:             in.Role,
		InterviewerName:  in.InterviewerName,
		InterviewerEmail: in.InterviewerEmail,
		StartTime:        start.UTC(),
		DurationMinutes:  in.DurationMinutes,
		Mode:             in.Mode,
		MeetingLink:      in.MeetingLink,
		Address:          in.Address,
	}
}

// CreateSlot validates and stores one slot.
func (a *Allocator) CreateSlot(ctx context.Context, in SlotInput) (*models.Slot, error) {
	if err := a.validateSlot(&in); err != nil {
		return nil, err
	}
	slot := slotFromInput(in, in.StartTime)
	if err := a.db.WithContext(ctx).Create(&slot).Error; err != nil {
		return nil, fmt.Errorf("create slot: %w", err)
	}
	a.logger.Debug().Str("slot_id", slot.ID).Str("interviewer", slot.InterviewerEmail).Time("start_time", slot.StartTime).Msg("slot created")
	return &slot, nil
}

// CreateRecurringSlots expands an RFC 5545 RRULE starting at in.StartTime
// and stores one slot per occurrence up to until (inclusive). A zero until
// means 90 days after the first occurrence. Expansions larger than
// MaxRecurringSlots are refused.
func (a *Allocator) CreateRecurringSlots(ctx context.Context, in SlotInput, rule string, until time.Time) ([]models.Slot, error) {
	if err := a.validateSlot(&in); err != nil {
		return nil, err
	}

	rr, err := rrule.StrToRRule(rule)
	if err != nil {
		return nil, invalidSlot("rrule is not a valid RFC 5545 recurrence rule")
	}
	rr.DTStart(in.StartTime)

	if until.IsZero() {
		until = in.StartTime.Add(defaultRecurrenceHorizon)
	}
	if until.Before(in.StartTime) {
		return nil, invalidSlot("until must not be before start_time")
	}

	occurrences := rr.Between(in.StartTime, until.UTC(), true)
	if len(occurrences) == 0 {
		return nil, invalidSlot("rrule produces no occurrences before until")
	}
	if len(occurrences) > MaxRecurringSlots {
		return nil, invalidSlot(fmt.Sprintf("rrule expands to %d slots; the limit is %d", len(occurrences), MaxRecurringSlots))
	}

	slots := make([]models.Slot, 0, len(occurrences))
	for _, at := range occurrences {
		slots = append(slots, slotFromInput(in, at))
	}
	if err := a.db.WithContext(ctx).Create(&slots).Error; err != nil {
		return nil, fmt.Errorf("create recurring slots: %w", err)
	}

	a.logger.Info().
		Str("interviewer", in.InterviewerEmail).
		Str("rrule", rule).
		Int("count", len(slots)).
		Msg("recurring slots created")
	return slots, nil
}

// GetSlot loads one slot.
func (a *Allocator) GetSlot(ctx context.Context, id string) (*models.Slot, error) {
	var slot models.Slot
	if err := a.db.WithContext(ctx).First(&slot, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.WithHint(ErrSlotNotFound, "check the slot id")
		}
		return nil, fmt.Errorf("load slot: %w", err)
	}
	return &slot, nil
}

// ListSlots returns slots ordered by start time.
func (a *Allocator) ListSlots(ctx context.Context, f SlotFilter) ([]models.Slot, error) {
	q := a.db.WithContext(ctx).Model(&models.Slot{})
	if f.Company != "" {
		q = q.Where("company = ?", f.Company)
	}
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if f.InterviewerEmail != "" {
		q = q.Where("LOWER(interviewer_email) = ?", strings.ToLower(f.InterviewerEmail))
	}
	if f.OnlyAvailable {
		q = q.Where("is_booked = ? AND closed = ? AND start_time > ?", false, false, a.clock.Now())
	}
	if !f.From.IsZero() {
		q = q.Where("start_time >= ?", f.From.UTC())
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var slots []models.Slot
	if err := q.Order("start_time ASC").Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return slots, nil
}

// DeleteSlot removes an unbooked slot. The booked check and the delete are
// one statement.
func (a *Allocator) DeleteSlot(ctx context.Context, id string) error {
	res := a.db.WithContext(ctx).Where("id = ? AND is_booked = ?", id, false).Delete(&models.Slot{})
	if res.Error != nil {
		return fmt.Errorf("delete slot: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		a.logger.Debug().Str("slot_id", id).Msg("slot deleted")
		return nil
	}
	if _, err := a.GetSlot(ctx, id); err != nil {
		return err
	}
	return errors.WithHint(ErrSlotBooked, "cancel the interview booked on this slot before deleting it")
}

// ReleaseSlot frees a booked slot whose interview was cancelled. Releasing
// an unbooked slot is a no-op; a slot closed by a completed interview is
// refused.
func (a *Allocator) ReleaseSlot(ctx context.Context, id string) error {
	now := a.clock.Now()
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var slot models.Slot
		if err := tx.First(&slot, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.WithHint(ErrSlotNotFound, "check the slot id")
			}
			return fmt.Errorf("load slot: %w", err)
		}
		if !slot.IsBooked {
			return nil
		}
		if slot.Closed {
			return errors.WithHint(ErrSlotUnavailable, "the interview on this slot has been completed; the slot cannot be reused")
		}

		var active int64
		if err := tx.Model(&models.InterviewSchedule{}).
			Where("slot_id = ? AND status = ?", id, models.InterviewScheduled).
			Count(&active).Error; err != nil {
			return fmt.Errorf("check slot interviews: %w", err)
		}
		if active > 0 {
			return errors.WithHint(ErrSlotInUse, "cancel the scheduled interview on this slot first")
		}

		if err := tx.Model(&models.Slot{}).
			Where("id = ? AND is_booked = ?", id, true).
			Updates(map[string]any{
				"is_booked":                false,
				"booked_by_application_id": nil,
				"updated_at":               now,
			}).Error; err != nil {
			return fmt.Errorf("release slot: %w", err)
		}
		a.logger.Info().Str("slot_id", id).Msg("slot released")
		return nil
	})
}
