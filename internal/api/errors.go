/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/friendsincode/recruitd/internal/applications"
	"github.com/friendsincode/recruitd/internal/offers"
	"github.com/friendsincode/recruitd/internal/scheduling"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorTable maps domain sentinels to responses. Order matters only where
// one error wraps another.
var errorTable = []errorMapping{
	{scheduling.ErrAlreadyBooked, http.StatusConflict, "slot_already_booked"},
	{scheduling.ErrCandidateAlreadyScheduled, http.StatusConflict, "candidate_already_scheduled"},
	{scheduling.ErrInterviewerConflict, http.StatusConflict, "interviewer_conflict"},
	{scheduling.ErrSlotUnavailable, http.StatusConflict, "slot_unavailable"},
	{scheduling.ErrNotSchedulable, http.StatusConflict, "not_schedulable"},
	{scheduling.ErrSlotBooked, http.StatusConflict, "slot_booked"},
	{scheduling.ErrSlotInUse, http.StatusConflict, "slot_in_use"},
	{scheduling.ErrInterviewNotActive, http.StatusConflict, "interview_not_active"},
	{scheduling.ErrFeedbackExists, http.StatusConflict, "feedback_exists"},
	{scheduling.ErrInvalidSlot, http.StatusBadRequest, "invalid_slot"},
	{scheduling.ErrInvalidFeedback, http.StatusBadRequest, "invalid_feedback"},
	{scheduling.ErrSlotNotFound, http.StatusNotFound, "slot_not_found"},
	{scheduling.ErrInterviewNotFound, http.StatusNotFound, "interview_not_found"},
	{scheduling.ErrApplicationNotFound, http.StatusNotFound, "application_not_found"},

	{offers.ErrNotEligible, http.StatusConflict, "not_eligible"},
	{offers.ErrOfferExists, http.StatusConflict, "offer_exists"},
	{offers.ErrOfferNotFound, http.StatusNotFound, "offer_not_found"},
	{offers.ErrApplicationNotFound, http.StatusNotFound, "application_not_found"},

	{applications.ErrStatusLocked, http.StatusConflict, "status_locked"},
	{applications.ErrInvalidStatus, http.StatusBadRequest, "invalid_status"},
	{applications.ErrApplicationNotFound, http.StatusNotFound, "application_not_found"},
}

// writeDomainError answers with the mapped status and the error's hint.
// Unmapped errors are logged and reported as 500 without detail.
func (a *API) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			message := errors.FlattenHints(err)
			if message == "" {
				message = m.err.Error()
			}
			writeError(w, m.status, m.code, message)
			return
		}
	}
	a.logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal_error", "")
}
