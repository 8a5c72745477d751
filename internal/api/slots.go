/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/recruitd/internal/scheduling"
)

type recurringSlotRequest struct {
	scheduling.SlotInput
	Rule  string    `json:"rule"`
	Until time.Time `json:"until"`
}

func (a *API) handleSlotsList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := scheduling.SlotFilter{
		Company:          q.Get("company"),
		Role:             q.Get("role"),
		InterviewerEmail: q.Get("interviewer_email"),
		OnlyAvailable:    q.Get("available") == "true",
	}
	if v := q.Get("from"); v != "" {
		from, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_from", "from must be an RFC 3339 timestamp")
			return
		}
		filter.From = from
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	slots, err := a.alloc.ListSlots(r.Context(), filter)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

func (a *API) handleSlotGet(w http.ResponseWriter, r *http.Request) {
	slot, err := a.alloc.GetSlot(r.Context(), chi.URLParam(r, "slotID"))
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

func (a *API) handleSlotCreate(w http.ResponseWriter, r *http.Request) {
	var in scheduling.SlotInput
	if !decodeJSON(w, r, &in) {
		return
	}
	slot, err := a.alloc.CreateSlot(r.Context(), in)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, slot)
}

func (a *API) handleSlotCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringSlotRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	slots, err := a.alloc.CreateRecurringSlots(r.Context(), req.SlotInput, req.Rule, req.Until)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, slots)
}

func (a *API) handleSlotDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.alloc.DeleteSlot(r.Context(), chi.URLParam(r, "slotID")); err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleSlotRelease(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "slotID")
	if err := a.alloc.ReleaseSlot(r.Context(), id); err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	slot, err := a.alloc.GetSlot(r.Context(), id)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}
