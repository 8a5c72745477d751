/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package applications manages recruiter-driven application status changes.
package applications

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/recruitd/internal/events"
	"github.com/friendsincode/recruitd/internal/models"
	"github.com/friendsincode/recruitd/internal/notifications"
)

var (
	ErrApplicationNotFound = errors.New("application not found")
	ErrInvalidStatus       = errors.New("invalid application status")
	ErrStatusLocked        = errors.New("application status is locked")
)

// settable lists the statuses a recruiter may assign directly. The others
// are reached only through bookings, feedback and offers.
var settable = map[models.ApplicationStatus]bool{
	models.ApplicationPending:  true,
	models.ApplicationAccepted: true,
	models.ApplicationRejected: true,
}

// Service updates application statuses.
type Service struct {
	db       *gorm.DB
	notifier notifications.Notifier
	bus      events.Publisher
	logger   zerolog.Logger
}

// NewService creates an application service. bus may be nil.
func NewService(db *gorm.DB, notifier notifications.Notifier, bus events.Publisher, logger zerolog.Logger) *Service {
	if bus == nil {
		bus = events.Discard{}
	}
	return &Service{
		db:       db,
		notifier: notifier,
		bus:      bus,
		logger:   logger.With().Str("component", "applications").Logger(),
	}
}

// Get loads one application.
func (s *Service) Get(ctx context.Context, id string) (*models.Application, error) {
	var app models.Application
	if err := s.db.WithContext(ctx).First(&app, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.WithHint(ErrApplicationNotFound, "check the application id")
		}
		return nil, fmt.Errorf("load application: %w", err)
	}
	return &app, nil
}

// UpdateStatus sets the status of an application. The change is refused
// while an interview is scheduled, while an offer is pending or once the
// applicant is hired. Moving to Rejected mails the applicant the first time;
// a failed mail is retried by setting Rejected again.
func (s *Service) UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus) (*models.Application, error) {
	if !settable[status] {
		return nil, errors.WithHintf(ErrInvalidStatus,
			"status must be one of %q, %q or %q", models.ApplicationPending, models.ApplicationAccepted, models.ApplicationRejected)
	}

	var app models.Application
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&app, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.WithHint(ErrApplicationNotFound, "check the application id")
			}
			return fmt.Errorf("load application: %w", err)
		}
		if app.Status == models.ApplicationHired {
			return errors.WithHint(ErrStatusLocked, "the applicant has already been hired")
		}

		var active int64
		if err := tx.Model(&models.InterviewSchedule{}).
			Where("application_id = ? AND status = ?", id, models.InterviewScheduled).
			Count(&active).Error; err != nil {
			return fmt.Errorf("check interviews: %w", err)
		}
		if active > 0 {
			return errors.WithHint(ErrStatusLocked, "cancel the scheduled interview or record its feedback first")
		}

		var pending int64
		if err := tx.Model(&models.JobOffer{}).
			Where("application_id = ? AND status = ?", id, models.OfferPending).
			Count(&pending).Error; err != nil {
			return fmt.Errorf("check offers: %w", err)
		}
		if pending > 0 {
			return errors.WithHint(ErrStatusLocked, "an offer is awaiting the applicant's answer")
		}

		if err := tx.Model(&app).Update("status", status).Error; err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		app.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("application_id", id).Str("status", string(status)).Msg("application status updated")
	s.bus.Publish(events.EventApplicationStatus, events.Payload{"application_id": id, "status": string(status)})

	if status == models.ApplicationRejected && !app.RejectionEmailSent {
		s.sendRejection(ctx, &app)
	}
	return &app, nil
}

func (s *Service) sendRejection(ctx context.Context, app *models.Application) {
	if err := s.notifier.Send(ctx, notifications.Rejection(app)); err != nil {
		s.logger.Warn().Err(err).Str("application_id", app.ID).Msg("rejection mail failed")
		return
	}
	res := s.db.WithContext(ctx).Model(&models.Application{}).
		Where("id = ? AND rejection_email_sent = ?", app.ID, false).
		Update("rejection_email_sent", true)
	if res.Error != nil {
		s.logger.Error().Err(res.Error).Str("application_id", app.ID).Msg("failed to flag rejection mail")
		return
	}
	app.RejectionEmailSent = true
}
