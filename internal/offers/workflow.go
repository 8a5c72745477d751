/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package offers drives job offers from creation through an emailed reply
// or expiry.
package offers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/recruitd/internal/classify"
	"github.com/friendsincode/recruitd/internal/clock"
	"github.com/friendsincode/recruitd/internal/events"
	"github.com/friendsincode/recruitd/internal/models"
	"github.com/friendsincode/recruitd/internal/notifications"
	"github.com/friendsincode/recruitd/internal/telemetry"
)

// AmbiguousPolicy decides what happens to replies the classifier cannot
// label, including classifier errors.
type AmbiguousPolicy string

const (
	// PolicyReject treats an ambiguous reply as a rejection.
	PolicyReject AmbiguousPolicy = "reject"
	// PolicyReview keeps the offer pending and records the reply for a human.
	PolicyReview AmbiguousPolicy = "review"
)

// Config tunes the workflow.
type Config struct {
	Timeout         time.Duration
	PerTick         int
	SubjectMarker   string
	AmbiguousPolicy AmbiguousPolicy
}

// DefaultConfig returns the stock settings.
func DefaultConfig() Config {
	return Config{
		Timeout:         24 * time.Hour,
		PerTick:         1,
		SubjectMarker:   "Job Offer",
		AmbiguousPolicy: PolicyReject,
	}
}

// TickReport summarises one workflow pass.
type TickReport struct {
	Dispatched int
	Accepted   int
	Rejected   int
	Ambiguous  int
	Ignored    int
	Expired    int
}

// Workflow owns every offer state transition. Transitions are conditional
// updates guarded by the source state, so terminal states stay terminal.
type Workflow struct {
	db         *gorm.DB
	notifier   notifications.Notifier
	inbox      notifications.Inbox
	classifier classify.Classifier
	bus        events.Publisher
	clock      clock.Clock
	cfg        Config
	logger     zerolog.Logger
}

// NewWorkflow creates a workflow. inbox and bus may be nil.
func NewWorkflow(db *gorm.DB, notifier notifications.Notifier, inbox notifications.Inbox, classifier classify.Classifier,
	bus events.Publisher, clk clock.Clock, cfg Config, logger zerolog.Logger) *Workflow {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.PerTick <= 0 {
		cfg.PerTick = def.PerTick
	}
	if cfg.SubjectMarker == "" {
		cfg.SubjectMarker = def.SubjectMarker
	}
	if cfg.AmbiguousPolicy != PolicyReview {
		cfg.AmbiguousPolicy = PolicyReject
	}
	if inbox == nil {
		inbox = notifications.NoopInbox{}
	}
	if bus == nil {
		bus = events.Discard{}
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Workflow{
		db:         db,
		notifier:   notifier,
		inbox:      inbox,
		classifier: classifier,
		bus:        bus,
		clock:      clk,
		cfg:        cfg,
		logger:     logger.With().Str("component", "offers").Logger(),
	}
}

// CreateOffer creates a pending, unsent offer for an Accepted application.
func (w *Workflow) CreateOffer(ctx context.Context, applicationID string) (*models.JobOffer, error) {
	var offer *models.JobOffer

	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var app models.Application
		if err := tx.First(&app, "id = ?", applicationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.WithHint(ErrApplicationNotFound, "check the application id")
			}
			return fmt.Errorf("load application: %w", err)
		}
		if app.Status != models.ApplicationAccepted {
			return errors.WithHintf(ErrNotEligible,
				"the application is %q; only Accepted applications can receive an offer", app.Status)
		}

		var existing int64
		if err := tx.Model(&models.JobOffer{}).Where("application_id = ?", applicationID).Count(&existing).Error; err != nil {
			return fmt.Errorf("check existing offer: %w", err)
		}
		if existing > 0 {
			return errors.WithHint(ErrOfferExists, "this application already has an offer")
		}

		offer = &models.JobOffer{
			ID:            uuid.NewString(),
			ApplicationID: applicationID,
			Status:        models.OfferPending,
			CreatedAt:     w.clock.Now(),
		}
		if err := tx.Create(offer).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errors.WithHint(ErrOfferExists, "this application already has an offer")
			}
			return fmt.Errorf("create offer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	telemetry.OfferTransitionsTotal.WithLabelValues("created").Inc()
	w.logger.Info().Str("offer_id", offer.ID).Str("application_id", applicationID).Msg("offer created")
	w.bus.Publish(events.EventOfferCreated, events.Payload{"offer_id": offer.ID, "application_id": applicationID})
	return offer, nil
}

// GetOffer loads one offer.
func (w *Workflow) GetOffer(ctx context.Context, id string) (*models.JobOffer, error) {
	var offer models.JobOffer
	if err := w.db.WithContext(ctx).First(&offer, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.WithHint(ErrOfferNotFound, "check the offer id")
		}
		return nil, fmt.Errorf("load offer: %w", err)
	}
	return &offer, nil
}

// ListOffers returns offers, newest first, optionally filtered by status.
func (w *Workflow) ListOffers(ctx context.Context, status models.OfferStatus) ([]models.JobOffer, error) {
	q := w.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var offers []models.JobOffer
	if err := q.Find(&offers).Error; err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	return offers, nil
}

// Tick runs dispatch, reply processing and expiry in that order. A failing
// step does not stop the later ones; their errors are joined.
func (w *Workflow) Tick(ctx context.Context) (TickReport, error) {
	var (
		report TickReport
		errs   []error
	)

	n, err := w.DispatchPending(ctx)
	report.Dispatched = n
	if err != nil {
		errs = append(errs, fmt.Errorf("dispatch: %w", err))
	}

	rr, err := w.ProcessReplies(ctx)
	report.Accepted, report.Rejected, report.Ambiguous, report.Ignored = rr.Accepted, rr.Rejected, rr.Ambiguous, rr.Ignored
	if err != nil {
		errs = append(errs, fmt.Errorf("replies: %w", err))
	}

	n, err = w.ExpireOverdue(ctx)
	report.Expired = n
	if err != nil {
		errs = append(errs, fmt.Errorf("expiry: %w", err))
	}

	return report, errors.Join(errs...)
}

// DispatchPending sends up to PerTick unsent offers. Offers that have never
// failed go first, oldest first; a failed attempt is stamped so the offer
// moves behind the rest of the queue until its turn comes round again.
func (w *Workflow) DispatchPending(ctx context.Context) (int, error) {
	var pending []models.JobOffer
	if err := w.db.WithContext(ctx).
		Where("status = ? AND offer_sent = ?", models.OfferPending, false).
		Order("dispatch_attempted_at IS NOT NULL").
		Order("dispatch_attempted_at ASC").
		Order("created_at ASC").
		Limit(w.cfg.PerTick).
		Find(&pending).Error; err != nil {
		return 0, fmt.Errorf("load unsent offers: %w", err)
	}

	sent := 0
	for i := range pending {
		offer := &pending[i]
		var app models.Application
		if err := w.db.WithContext(ctx).First(&app, "id = ?", offer.ApplicationID).Error; err != nil {
			w.logger.Warn().Err(err).Str("offer_id", offer.ID).Msg("offer dispatch skipped: application not loadable")
			w.markAttempted(ctx, offer.ID)
			continue
		}

		msg := notifications.Offer(w.cfg.SubjectMarker, &app, offer, w.cfg.Timeout)
		if err := w.notifier.Send(ctx, msg); err != nil {
			w.logger.Warn().Err(err).Str("offer_id", offer.ID).Msg("offer send failed, will retry")
			w.markAttempted(ctx, offer.ID)
			continue
		}

		now := w.clock.Now()
		res := w.db.WithContext(ctx).Model(&models.JobOffer{}).
			Where("id = ? AND status = ? AND offer_sent = ?", offer.ID, models.OfferPending, false).
			Updates(map[string]any{"offer_sent": true, "offer_sent_time": now, "updated_at": now})
		if res.Error != nil {
			w.logger.Error().Err(res.Error).Str("offer_id", offer.ID).Msg("offer sent but not recorded")
			continue
		}
		if res.RowsAffected == 0 {
			continue
		}

		sent++
		telemetry.OfferTransitionsTotal.WithLabelValues("sent").Inc()
		w.logger.Info().Str("offer_id", offer.ID).Str("to", app.ApplicantEmail).Msg("offer sent")
		w.bus.Publish(events.EventOfferSent, events.Payload{"offer_id": offer.ID, "application_id": offer.ApplicationID, "sent_at": now})
	}
	return sent, nil
}

func (w *Workflow) markAttempted(ctx context.Context, offerID string) {
	err := w.db.WithContext(ctx).Model(&models.JobOffer{}).
		Where("id = ? AND offer_sent = ?", offerID, false).
		UpdateColumn("dispatch_attempted_at", w.clock.Now()).Error
	if err != nil {
		w.logger.Error().Err(err).Str("offer_id", offerID).Msg("failed to stamp dispatch attempt")
	}
}

// ExpireOverdue expires every sent offer whose deadline has been reached
// (now >= offer_sent_time + Timeout). It does not consult the inbox.
func (w *Workflow) ExpireOverdue(ctx context.Context) (int, error) {
	now := w.clock.Now()

	var overdue []models.JobOffer
	if err := w.db.WithContext(ctx).
		Where("status = ? AND offer_sent = ? AND offer_sent_time <= ?", models.OfferPending, true, now.Add(-w.cfg.Timeout)).
		Find(&overdue).Error; err != nil {
		return 0, fmt.Errorf("load overdue offers: %w", err)
	}

	expired := 0
	for i := range overdue {
		offer := &overdue[i]
		if offer.OfferSentTime == nil || now.Before(offer.OfferSentTime.Add(w.cfg.Timeout)) {
			continue
		}

		err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.JobOffer{}).
				Where("id = ? AND status = ? AND offer_sent = ?", offer.ID, models.OfferPending, true).
				Updates(map[string]any{"status": models.OfferExpired, "updated_at": now})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errOfferMoved
			}
			return tx.Model(&models.Application{}).Where("id = ?", offer.ApplicationID).
				Update("status", models.ApplicationOfferExpired).Error
		})
		if errors.Is(err, errOfferMoved) {
			continue
		}
		if err != nil {
			w.logger.Warn().Err(err).Str("offer_id", offer.ID).Msg("offer expiry failed, will retry")
			continue
		}

		expired++
		telemetry.OfferTransitionsTotal.WithLabelValues(string(models.OfferExpired)).Inc()
		w.logger.Info().Str("offer_id", offer.ID).Time("sent_at", *offer.OfferSentTime).Msg("offer expired")
		w.bus.Publish(events.EventOfferExpired, events.Payload{"offer_id": offer.ID, "application_id": offer.ApplicationID})
	}
	return expired, nil
}

// findAwaitingOffer returns the pending(sent) offer for the application
// whose applicant email matches from, or nil.
func (w *Workflow) findAwaitingOffer(ctx context.Context, from string) (*models.JobOffer, error) {
	var offer models.JobOffer
	err := w.db.WithContext(ctx).
		Joins("JOIN applications ON applications.id = job_offers.application_id").
		Where("LOWER(applications.applicant_email) = ?", strings.ToLower(strings.TrimSpace(from))).
		Where("job_offers.status = ? AND job_offers.offer_sent = ?", models.OfferPending, true).
		Order("job_offers.offer_sent_time DESC").
		First(&offer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find offer for %s: %w", from, err)
	}
	return &offer, nil
}
