/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"strconv"
	"strings"
	"time"
)

// InterviewStatus tracks the lifecycle of a booked interview.
type InterviewStatus string

const (
	InterviewScheduled InterviewStatus = "scheduled"
	InterviewCompleted InterviewStatus = "completed"
	InterviewCancelled InterviewStatus = "cancelled"
)

// InterviewSchedule is created exactly once per successful booking.
//
// ActiveApplicationKey and ActiveInterviewerKey are populated only while the
// interview is scheduled. Their unique indexes stop a second active interview
// for the same application, or for the same interviewer at the same start
// time, from ever being committed. NULLs do not collide, so finished
// interviews drop out of both constraints.
type InterviewSchedule struct {
	ID                   string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	ApplicationID        string          `gorm:"type:varchar(36);not null;index:idx_interviews_application" json:"application_id"`
	SlotID               *string         `gorm:"type:varchar(36);index:idx_interviews_slot" json:"slot_id,omitempty"`
	InterviewerName      string          `gorm:"type:varchar(255);not null" json:"interviewer_name"`
	InterviewerEmail     string          `gorm:"type:varchar(255);not null;index:idx_interviews_interviewer" json:"interviewer_email"`
	Mode                 InterviewMode   `gorm:"type:varchar(16);not null" json:"mode"`
	StartTime            time.Time       `gorm:"not null;index:idx_interviews_start" json:"start_time"`
	MeetingLink          string          `gorm:"type:varchar(1024)" json:"meeting_link,omitempty"`
	Address              string          `gorm:"type:text" json:"address,omitempty"`
	Status               InterviewStatus `gorm:"type:varchar(16);not null;default:'scheduled';index:idx_interviews_status" json:"status"`
	Reminder1DaySent     bool            `gorm:"column:reminder_1day_sent;not null;default:false" json:"reminder_1day_sent"`
	Reminder1HourSent    bool            `gorm:"column:reminder_1hour_sent;not null;default:false" json:"reminder_1hour_sent"`
	ActiveApplicationKey *string         `gorm:"type:varchar(36);uniqueIndex:idx_interviews_active_application" json:"-"`
	ActiveInterviewerKey *string         `gorm:"type:varchar(320);uniqueIndex:idx_interviews_active_interviewer" json:"-"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (InterviewSchedule) TableName() string {
	return "interview_schedules"
}

// InterviewerKey is the value stored in ActiveInterviewerKey.
func InterviewerKey(email string, start time.Time) string {
	return strings.ToLower(strings.TrimSpace(email)) + "|" + strconv.FormatInt(start.UTC().Unix(), 10)
}
