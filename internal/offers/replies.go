/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package offers

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/friendsincode/recruitd/internal/classify"
	"github.com/friendsincode/recruitd/internal/events"
	"github.com/friendsincode/recruitd/internal/models"
	"github.com/friendsincode/recruitd/internal/notifications"
	"github.com/friendsincode/recruitd/internal/telemetry"
)

// ReplyReport counts what ProcessReplies did with each message.
type ReplyReport struct {
	Accepted  int
	Rejected  int
	Ambiguous int
	Ignored   int
	Failed    int
}

func (r *ReplyReport) add(d models.ReplyDecision) {
	switch d {
	case models.ReplyAccepted:
		r.Accepted++
	case models.ReplyRejected:
		r.Rejected++
	case models.ReplyAmbiguous:
		r.Ambiguous++
	default:
		r.Ignored++
	}
}

// ProcessReplies polls the inbox for offer replies and applies them. A
// message is marked read only after its outcome is stored; storage failures
// leave it unread for the next tick. A poll failure is returned as is.
func (w *Workflow) ProcessReplies(ctx context.Context) (ReplyReport, error) {
	var report ReplyReport

	replies, err := w.inbox.PollUnreadReplies(ctx, w.cfg.SubjectMarker)
	if err != nil {
		return report, fmt.Errorf("poll replies: %w", err)
	}

	for _, reply := range replies {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		decision, err := w.handleReply(ctx, reply)
		if err != nil {
			report.Failed++
			w.logger.Warn().Err(err).Str("message_id", reply.MessageID).Msg("reply not processed, left unread")
			continue
		}
		report.add(decision)
		telemetry.OfferRepliesTotal.WithLabelValues(string(decision)).Inc()

		if err := w.inbox.MarkRead(ctx, reply.ID); err != nil {
			w.logger.Warn().Err(err).Str("message_id", reply.MessageID).Msg("mark read failed; reply will be deduplicated")
		}
	}
	return report, nil
}

func (w *Workflow) handleReply(ctx context.Context, reply notifications.Reply) (models.ReplyDecision, error) {
	var seen int64
	if err := w.db.WithContext(ctx).Model(&models.OfferReply{}).
		Where("message_id = ?", reply.MessageID).Count(&seen).Error; err != nil {
		return "", fmt.Errorf("check reply: %w", err)
	}
	if seen > 0 {
		return models.ReplyIgnored, nil
	}

	cleaned := classify.CleanReply(reply.Body)
	label, err := w.classifier.Classify(ctx, cleaned)
	if err != nil {
		w.logger.Warn().Err(err).Str("message_id", reply.MessageID).Msg("classifier failed, treating reply as ambiguous")
		label = classify.Ambiguous
	}

	now := w.clock.Now()
	received := reply.ReceivedAt
	if received.IsZero() || received.After(now) {
		received = now
	}

	record := &models.OfferReply{
		ID:          uuid.NewString(),
		MessageID:   reply.MessageID,
		FromEmail:   reply.From,
		CleanedBody: cleaned,
		Decision:    models.ReplyIgnored,
		ReceivedAt:  received,
	}

	offer, err := w.findAwaitingOffer(ctx, reply.From)
	if err != nil {
		return "", err
	}
	if offer == nil || offer.OfferSentTime == nil {
		return w.recordOnly(ctx, record)
	}
	record.OfferID = &offer.ID

	// A reply that arrived after the deadline does not beat the expiry.
	if !received.Before(offer.OfferSentTime.Add(w.cfg.Timeout)) {
		w.logger.Info().Str("offer_id", offer.ID).Time("received_at", received).Msg("late offer reply ignored")
		return w.recordOnly(ctx, record)
	}

	target := models.ReplyAmbiguous
	switch label {
	case classify.Accepted:
		target = models.ReplyAccepted
	case classify.Rejected:
		target = models.ReplyRejected
	default:
		if w.cfg.AmbiguousPolicy == PolicyReject {
			target = models.ReplyRejected
		}
	}
	if target == models.ReplyAmbiguous {
		record.Decision = models.ReplyAmbiguous
		w.logger.Info().Str("offer_id", offer.ID).Str("message_id", reply.MessageID).Msg("ambiguous offer reply held for review")
		return w.recordOnly(ctx, record)
	}

	return w.transition(ctx, offer, record, target, now)
}

func (w *Workflow) recordOnly(ctx context.Context, record *models.OfferReply) (models.ReplyDecision, error) {
	if err := w.db.WithContext(ctx).Create(record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.ReplyIgnored, nil
		}
		return "", fmt.Errorf("record reply: %w", err)
	}
	return record.Decision, nil
}

// transition applies an accept or reject to a pending(sent) offer together
// with the reply record, the application status and, on acceptance, the
// AcceptedCandidate row.
func (w *Workflow) transition(ctx context.Context, offer *models.JobOffer, record *models.OfferReply,
	target models.ReplyDecision, now time.Time) (models.ReplyDecision, error) {
	offerStatus, appStatus := models.OfferRejected, models.ApplicationRejected
	if target == models.ReplyAccepted {
		offerStatus, appStatus = models.OfferAccepted, models.ApplicationHired
	}

	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.JobOffer{}).
			Where("id = ? AND status = ? AND offer_sent = ?", offer.ID, models.OfferPending, true).
			Updates(map[string]any{"status": offerStatus, "responded_at": now, "updated_at": now})
		if res.Error != nil {
			return fmt.Errorf("update offer: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errOfferMoved
		}

		var app models.Application
		if err := tx.First(&app, "id = ?", offer.ApplicationID).Error; err != nil {
			return fmt.Errorf("load application: %w", err)
		}
		if err := tx.Model(&app).Update("status", appStatus).Error; err != nil {
			return fmt.Errorf("update application: %w", err)
		}

		if target == models.ReplyAccepted {
			var hired int64
			if err := tx.Model(&models.AcceptedCandidate{}).Where("application_id = ?", app.ID).Count(&hired).Error; err != nil {
				return fmt.Errorf("check accepted candidate: %w", err)
			}
			if hired == 0 {
				if err := tx.Create(&models.AcceptedCandidate{
					ID:             uuid.NewString(),
					ApplicationID:  app.ID,
					OfferID:        offer.ID,
					ApplicantName:  app.ApplicantName,
					ApplicantEmail: app.ApplicantEmail,
					AcceptedAt:     now,
				}).Error; err != nil {
					return fmt.Errorf("create accepted candidate: %w", err)
				}
			}
		}

		record.Decision = target
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("record reply: %w", err)
		}
		return nil
	})

	switch {
	case errors.Is(err, errOfferMoved):
		record.Decision = models.ReplyIgnored
		return w.recordOnly(ctx, record)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		// Another pass stored this message first and rolled our change back.
		return models.ReplyIgnored, nil
	case err != nil:
		return "", err
	}

	telemetry.OfferTransitionsTotal.WithLabelValues(string(offerStatus)).Inc()
	w.logger.Info().
		Str("offer_id", offer.ID).
		Str("application_id", offer.ApplicationID).
		Str("status", string(offerStatus)).
		Msg("offer answered")

	eventType := events.EventOfferRejected
	if offerStatus == models.OfferAccepted {
		eventType = events.EventOfferAccepted
	}
	w.bus.Publish(eventType, events.Payload{"offer_id": offer.ID, "application_id": offer.ApplicationID})
	return target, nil
}
