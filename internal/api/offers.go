/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/recruitd/internal/models"
)

type offerRequest struct {
	ApplicationID string `json:"application_id"`
}

type statusRequest struct {
	Status models.ApplicationStatus `json:"status"`
}

func (a *API) handleOffersList(w http.ResponseWriter, r *http.Request) {
	status := models.OfferStatus(r.URL.Query().Get("status"))
	switch status {
	case "", models.OfferPending, models.OfferAccepted, models.OfferRejected, models.OfferExpired:
	default:
		writeError(w, http.StatusBadRequest, "invalid_status", "status must be pending, accepted, rejected or expired")
		return
	}
	list, err := a.offers.ListOffers(r.Context(), status)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleOfferCreate(w http.ResponseWriter, r *http.Request) {
	var req offerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ApplicationID == "" {
		writeError(w, http.StatusBadRequest, "missing_fields", "application_id is required")
		return
	}
	offer, err := a.offers.CreateOffer(r.Context(), req.ApplicationID)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, offer)
}

func (a *API) handleOfferGet(w http.ResponseWriter, r *http.Request) {
	offer, err := a.offers.GetOffer(r.Context(), chi.URLParam(r, "offerID"))
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

func (a *API) handleApplicationGet(w http.ResponseWriter, r *http.Request) {
	app, err := a.apps.Get(r.Context(), chi.URLParam(r, "applicationID"))
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (a *API) handleApplicationStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	app, err := a.apps.UpdateStatus(r.Context(), chi.URLParam(r, "applicationID"), req.Status)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}
