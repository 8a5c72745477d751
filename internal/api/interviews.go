/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/recruitd/internal/scheduling"
)

type bookingRequest struct {
	ApplicationID string `json:"application_id"`
	SlotID        string `json:"slot_id"`
}

func (a *API) handleBook(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ApplicationID = strings.TrimSpace(req.ApplicationID)
	req.SlotID = strings.TrimSpace(req.SlotID)
	if req.ApplicationID == "" || req.SlotID == "" {
		writeError(w, http.StatusBadRequest, "missing_fields", "application_id and slot_id are required")
		return
	}

	interview, err := a.alloc.BookSlot(r.Context(), req.ApplicationID, req.SlotID)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, interview)
}

func (a *API) handleInterviewGet(w http.ResponseWriter, r *http.Request) {
	interview, err := a.alloc.GetInterview(r.Context(), chi.URLParam(r, "interviewID"))
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, interview)
}

func (a *API) handleInterviewCancel(w http.ResponseWriter, r *http.Request) {
	if err := a.alloc.CancelInterview(r.Context(), chi.URLParam(r, "interviewID")); err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleFeedbackSubmit(w http.ResponseWriter, r *http.Request) {
	var in scheduling.FeedbackInput
	if !decodeJSON(w, r, &in) {
		return
	}
	fb, err := a.feedback.Submit(r.Context(), chi.URLParam(r, "interviewID"), in)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, fb)
}
