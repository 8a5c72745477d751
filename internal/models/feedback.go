/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// FeedbackDecision is the interviewer's verdict.
type FeedbackDecision string

const (
	FeedbackAccepted FeedbackDecision = "Accepted"
	FeedbackRejected FeedbackDecision = "Rejected"
)

// Feedback is the single post-interview evaluation of an interview.
type Feedback struct {
	ID                  string           `gorm:"type:varchar(36);primaryKey" json:"id"`
	InterviewID         string           `gorm:"type:varchar(36);not null;uniqueIndex:idx_feedback_interview" json:"interview_id"`
	ApplicationID       string           `gorm:"type:varchar(36);not null;index:idx_feedback_application" json:"application_id"`
	Decision            FeedbackDecision `gorm:"type:varchar(16);not null" json:"decision"`
	Comments            string           `gorm:"type:text" json:"comments,omitempty"`
	CommunicationScore  int              `json:"communication_score"`
	TechnicalScore      int              `json:"technical_score"`
	ProblemSolvingScore int              `json:"problem_solving_score"`
	RejectionEmailSent  bool             `gorm:"not null;default:false" json:"rejection_email_sent"`
	CreatedAt           time.Time        `json:"created_at"`
}

// TableName returns the table name for GORM.
func (Feedback) TableName() string {
	return "feedback"
}
