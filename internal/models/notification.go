/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// NotificationKind defines what a notification is about.
type NotificationKind string

const (
	NotificationInterviewScheduled NotificationKind = "interview_scheduled"
	NotificationInterviewCancelled NotificationKind = "interview_cancelled"
	NotificationReminderDay        NotificationKind = "reminder_day"
	NotificationReminderHour       NotificationKind = "reminder_hour"
	NotificationOffer              NotificationKind = "offer"
	NotificationRejection          NotificationKind = "rejection"
)

// NotificationStatus defines the delivery status.
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

// Notification stores a notification log entry. Every outbound message is
// recorded whether or not delivery succeeded.
type Notification struct {
	ID        string             `gorm:"type:varchar(36);primaryKey" json:"id"`
	Recipient string             `gorm:"type:varchar(255);index:idx_notifications_recipient;not null" json:"recipient"`
	Kind      NotificationKind   `gorm:"type:varchar(64);index:idx_notifications_kind;not null" json:"kind"`
	Subject   string             `gorm:"type:varchar(255)" json:"subject,omitempty"`
	Body      string             `gorm:"type:text;not null" json:"body"`
	Status    NotificationStatus `gorm:"type:varchar(32);not null;default:'pending';index:idx_notifications_status" json:"status"`
	SentAt    *time.Time         `json:"sent_at,omitempty"`
	Error     string             `gorm:"type:text" json:"error,omitempty"`

	// Reference to related entity (interview, offer, application)
	ReferenceType string `gorm:"type:varchar(64)" json:"reference_type,omitempty"`
	ReferenceID   string `gorm:"type:varchar(36);index:idx_notifications_reference" json:"reference_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the table name for GORM.
func (Notification) TableName() string {
	return "notifications"
}
