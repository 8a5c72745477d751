/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package audit keeps a queryable trail of hiring events.
package audit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/recruitd/internal/clock"
	"github.com/friendsincode/recruitd/internal/events"
	"github.com/friendsincode/recruitd/internal/models"
)

// Service subscribes to the event bus and stores one audit entry per event.
type Service struct {
	db     *gorm.DB
	bus    *events.Bus
	clock  clock.Clock
	logger zerolog.Logger

	wg sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(db *gorm.DB, bus *events.Bus, clk clock.Clock, logger zerolog.Logger) *Service {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Service{
		db:     db,
		bus:    bus,
		clock:  clk,
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// Start subscribes to every event type and records entries until ctx is
// cancelled. Subscriptions are in place when Start returns.
func (s *Service) Start(ctx context.Context) {
	for _, eventType := range events.AllEventTypes() {
		sub := s.bus.Subscribe(eventType)
		s.wg.Add(1)
		go func(eventType events.EventType, sub events.Subscriber) {
			defer s.wg.Done()
			defer s.bus.Unsubscribe(eventType, sub)
			for {
				select {
				case <-ctx.Done():
					return
				case payload := <-sub:
					s.logAuditEntry(ctx, eventType, payload)
				}
			}
		}(eventType, sub)
	}
	s.logger.Info().Msg("audit service started")
}

// Wait blocks until the subscribers started by Start have exited.
func (s *Service) Wait() {
	s.wg.Wait()
}

// logAuditEntry creates an audit log entry from an event payload.
func (s *Service) logAuditEntry(ctx context.Context, eventType events.EventType, payload events.Payload) {
	resourceType, _, _ := strings.Cut(string(eventType), ".")
	entry := &models.AuditLog{
		Action:       string(eventType),
		ResourceType: resourceType,
		Details:      make(map[string]any, len(payload)),
	}
	if id, ok := payload[resourceType+"_id"].(string); ok {
		entry.ResourceID = id
	}
	if id, ok := payload["application_id"].(string); ok {
		entry.ApplicationID = id
	}
	for k, v := range payload {
		entry.Details[k] = v
	}

	// Shutdown must not lose the entry in flight.
	if err := s.Log(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Error().Err(err).
			Str("action", entry.Action).
			Msg("failed to log audit entry")
	}
}

// Log records an audit entry directly.
func (s *Service) Log(ctx context.Context, entry *models.AuditLog) error {
	now := s.clock.Now()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = now
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.Details == nil {
		entry.Details = make(map[string]any)
	}

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("store audit entry: %w", err)
	}

	s.logger.Debug().
		Str("action", entry.Action).
		Str("id", entry.ID).
		Msg("audit entry logged")
	return nil
}

// QueryFilters defines filters for querying audit logs.
type QueryFilters struct {
	ApplicationID string
	Action        string
	Since         *time.Time
	Limit         int
	Offset        int
}

// Query returns matching entries, most recent first, and the total match count.
func (s *Service) Query(ctx context.Context, filters QueryFilters) ([]models.AuditLog, int64, error) {
	var (
		logs  []models.AuditLog
		total int64
	)

	query := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if filters.ApplicationID != "" {
		query = query.Where("application_id = ?", filters.ApplicationID)
	}
	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}
	if filters.Since != nil {
		query = query.Where("timestamp >= ?", *filters.Since)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	limit := filters.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query = query.Limit(limit)
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Order("timestamp DESC").Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("query audit entries: %w", err)
	}
	return logs, total, nil
}
