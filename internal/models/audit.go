/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// AuditLog is one recorded engine event.
type AuditLog struct {
	ID            string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	Timestamp     time.Time      `gorm:"index:idx_audit_timestamp;not null" json:"timestamp"`
	Action        string         `gorm:"type:varchar(64);index:idx_audit_action;not null" json:"action"` // event type, e.g. "offer.sent"
	ApplicationID string         `gorm:"type:varchar(36);index:idx_audit_application" json:"application_id,omitempty"`
	ResourceType  string         `gorm:"type:varchar(32)" json:"resource_type"` // interview, offer or application
	ResourceID    string         `gorm:"type:varchar(36)" json:"resource_id,omitempty"`
	Details       map[string]any `gorm:"serializer:json" json:"details"`
	CreatedAt     time.Time      `json:"created_at"`
}

// TableName returns the table name for GORM.
func (AuditLog) TableName() string {
	return "audit_logs"
}
