/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import "github.com/cockroachdb/errors"

// Precondition failures. They are returned before any mutation is committed
// and carry a user-facing hint (errors.FlattenHints).
var (
	ErrSlotNotFound              = errors.New("slot not found")
	ErrApplicationNotFound       = errors.New("application not found")
	ErrInterviewNotFound         = errors.New("interview not found")
	ErrInterviewNotActive        = errors.New("interview is not scheduled")
	ErrAlreadyBooked             = errors.New("slot already booked")
	ErrSlotUnavailable           = errors.New("slot unavailable")
	ErrCandidateAlreadyScheduled = errors.New("candidate already scheduled")
	ErrInterviewerConflict       = errors.New("interviewer conflict")
	ErrNotSchedulable            = errors.New("application is not schedulable")
	ErrSlotBooked                = errors.New("slot is booked")
	ErrSlotInUse                 = errors.New("slot in use by an active interview")
	ErrInvalidSlot               = errors.New("invalid slot")
	ErrInvalidFeedback           = errors.New("invalid feedback")
	ErrFeedbackExists            = errors.New("feedback already submitted")
)

func invalidSlot(hint string) error {
	return errors.WithHint(ErrInvalidSlot, hint)
}

func invalidFeedback(hint string) error {
	return errors.WithHint(ErrInvalidFeedback, hint)
}
