/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/recruitd/internal/clock"
	"github.com/friendsincode/recruitd/internal/models"
	"github.com/friendsincode/recruitd/internal/telemetry"
)

// Message is one outbound notification.
type Message struct {
	To            string
	Kind          models.NotificationKind
	Subject       string
	Body          string
	ReferenceType string
	ReferenceID   string
}

// Service sends messages through a Sender and keeps the notification log.
// It must not be called from inside a database transaction.
type Service struct {
	db     *gorm.DB
	sender Sender
	clock  clock.Clock
	logger zerolog.Logger
}

// NewService creates a new notification service.
func NewService(db *gorm.DB, sender Sender, clk clock.Clock, logger zerolog.Logger) *Service {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Service{
		db:     db,
		sender: sender,
		clock:  clk,
		logger: logger.With().Str("component", "notifications").Logger(),
	}
}

// Send records the message, delivers it, and updates the log row with the
// outcome. The delivery error, if any, is returned to the caller.
func (s *Service) Send(ctx context.Context, msg Message) error {
	notification := &models.Notification{
		ID:            uuid.NewString(),
		Recipient:     msg.To,
		Kind:          msg.Kind,
		Subject:       msg.Subject,
		Body:          msg.Body,
		Status:        models.NotificationStatusPending,
		ReferenceType: msg.ReferenceType,
		ReferenceID:   msg.ReferenceID,
		CreatedAt:     s.clock.Now(),
	}

	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		s.logger.Error().Err(err).Str("kind", string(msg.Kind)).Msg("failed to save notification")
		return fmt.Errorf("save notification: %w", err)
	}

	err := s.sender.Send(ctx, msg.To, msg.Subject, msg.Body)
	if err != nil {
		notification.Status = models.NotificationStatusFailed
		notification.Error = err.Error()
		s.logger.Error().Err(err).
			Str("id", notification.ID).
			Str("kind", string(msg.Kind)).
			Str("to", msg.To).
			Msg("failed to send notification")
	} else {
		now := s.clock.Now()
		notification.Status = models.NotificationStatusSent
		notification.SentAt = &now
		s.logger.Debug().
			Str("id", notification.ID).
			Str("kind", string(msg.Kind)).
			Str("to", msg.To).
			Msg("notification sent")
	}
	telemetry.NotificationsTotal.WithLabelValues(string(msg.Kind), string(notification.Status)).Inc()

	if uerr := s.db.WithContext(ctx).Model(notification).Updates(map[string]any{
		"status":  notification.Status,
		"sent_at": notification.SentAt,
		"error":   notification.Error,
	}).Error; uerr != nil {
		s.logger.Warn().Err(uerr).Str("id", notification.ID).Msg("failed to update notification status")
	}

	return err
}
