/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// InterviewMode is how an interview is held.
type InterviewMode string

const (
	ModeOnline  InterviewMode = "Online"
	ModeOffline InterviewMode = "Offline"
)

// Valid reports whether m is a known mode.
func (m InterviewMode) Valid() bool {
	return m == ModeOnline || m == ModeOffline
}

// Slot is a bookable unit of interviewer availability.
//
// IsBooked is true exactly when BookedByApplicationID is non-nil; every write
// path sets both columns in the same statement.
type Slot struct {
	ID                    string        `gorm:"type:varchar(36);primaryKey" json:"id"`
	Company               string        `gorm:"type:varchar(255);not null;index:idx_slots_company_role" json:"company"`
	Role                  string        `gorm:"type:varchar(255);not null;index:idx_slots_company_role" json:"role"`
	InterviewerName       string        `gorm:"type:varchar(255);not null" json:"interviewer_name"`
	InterviewerEmail      string        `gorm:"type:varchar(255);not null;index:idx_slots_interviewer" json:"interviewer_email"`
	StartTime             time.Time     `gorm:"not null;index:idx_slots_start" json:"start_time"`
	DurationMinutes       int           `gorm:"not null;default:60" json:"duration_minutes"`
	Mode                  InterviewMode `gorm:"type:varchar(16);not null" json:"mode"`
	MeetingLink           string        `gorm:"type:varchar(1024)" json:"meeting_link,omitempty"`
	Address               string        `gorm:"type:text" json:"address,omitempty"`
	IsBooked              bool          `gorm:"not null;default:false;index:idx_slots_booked" json:"is_booked"`
	BookedByApplicationID *string       `gorm:"type:varchar(36)" json:"booked_by_application_id,omitempty"`
	Closed                bool          `gorm:"not null;default:false" json:"closed"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Slot) TableName() string {
	return "slots"
}

// EndTime returns when the slot ends.
func (s Slot) EndTime() time.Time {
	return s.StartTime.Add(time.Duration(s.DurationMinutes) * time.Minute)
}
