/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the recruiting engine over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/recruitd/internal/applications"
	"github.com/friendsincode/recruitd/internal/audit"
	"github.com/friendsincode/recruitd/internal/auth"
	"github.com/friendsincode/recruitd/internal/offers"
	"github.com/friendsincode/recruitd/internal/scheduling"
	"github.com/friendsincode/recruitd/internal/telemetry"
	"github.com/friendsincode/recruitd/internal/version"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Deps are the services behind the API.
type Deps struct {
	Allocator    *scheduling.Allocator
	Feedback     *scheduling.FeedbackService
	Offers       *offers.Workflow
	Applications *applications.Service
	Audit        *audit.Service
	JWTSecret    []byte
	IsLeader     func() bool // nil when leader election is off
	Logger       zerolog.Logger
}

// API exposes HTTP handlers.
type API struct {
	alloc     *scheduling.Allocator
	feedback  *scheduling.FeedbackService
	offers    *offers.Workflow
	apps      *applications.Service
	audit     *audit.Service
	jwtSecret []byte
	isLeader  func() bool
	started   time.Time
	logger    zerolog.Logger
}

// New creates the API router wrapper.
func New(d Deps) *API {
	return &API{
		alloc:     d.Allocator,
		feedback:  d.Feedback,
		offers:    d.Offers,
		apps:      d.Applications,
		audit:     d.Audit,
		jwtSecret: d.JWTSecret,
		isLeader:  d.IsLeader,
		started:   time.Now(),
		logger:    d.Logger.With().Str("component", "api").Logger(),
	}
}

// Routes registers every endpoint on r.
func (a *API) Routes(r chi.Router) {
	r.Get("/healthz", a.handleHealth)
	r.Handle("/metrics", telemetry.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(a.jwtSecret))

		staff := auth.RequireRoles(auth.RoleRecruiter)
		panel := auth.RequireRoles(auth.RoleRecruiter, auth.RoleInterviewer)

		r.Route("/slots", func(r chi.Router) {
			r.Get("/", a.handleSlotsList)
			r.Get("/{slotID}", a.handleSlotGet)
			r.With(panel).Post("/", a.handleSlotCreate)
			r.With(panel).Post("/recurring", a.handleSlotCreateRecurring)
			r.With(panel).Delete("/{slotID}", a.handleSlotDelete)
			r.With(staff).Post("/{slotID}/release", a.handleSlotRelease)
		})

		r.With(staff).Post("/bookings", a.handleBook)

		r.Route("/interviews/{interviewID}", func(r chi.Router) {
			r.Get("/", a.handleInterviewGet)
			r.With(staff).Delete("/", a.handleInterviewCancel)
			r.With(panel).Post("/feedback", a.handleFeedbackSubmit)
		})

		r.Route("/offers", func(r chi.Router) {
			r.Use(staff)
			r.Get("/", a.handleOffersList)
			r.Post("/", a.handleOfferCreate)
			r.Get("/{offerID}", a.handleOfferGet)
		})

		r.Route("/applications/{applicationID}", func(r chi.Router) {
			r.Use(staff)
			r.Get("/", a.handleApplicationGet)
			r.Put("/status", a.handleApplicationStatus)
			if a.audit != nil {
				r.Get("/history", a.handleApplicationHistory)
			}
		})

		if a.audit != nil {
			r.With(staff).Get("/audit", a.handleAuditList)
		}
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":  "ok",
		"version": version.Version,
		"uptime":  time.Since(a.started).Round(time.Second).String(),
	}
	if a.isLeader != nil {
		body["leader"] = a.isLeader()
	}
	writeJSON(w, http.StatusOK, body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	body := map[string]string{"error": code}
	if message != "" {
		body["message"] = message
	}
	writeJSON(w, status, body)
}
